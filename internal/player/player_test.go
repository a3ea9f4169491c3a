package player

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/decoder"
	"github.com/kikiluvv/driftshow/internal/media"
	"github.com/kikiluvv/driftshow/internal/texture"
	"github.com/kikiluvv/driftshow/internal/timeline"
)

type stillExtractor struct{}

func (stillExtractor) ExtractFrame(ctx context.Context, input string, seconds float64) (*image.RGBA, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func writeTestPhoto(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	path := filepath.Join(dir, "a.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create photo: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode photo: %v", err)
	}
	return path
}

// The render tick owns exactly the buffer it is handed; the one on
// screen must stay untouched until the swap.
func TestTickPaintsOnlyTheHandedBuffer(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPhoto(t, dir)

	set := config.DefaultSettings()
	set.Style = config.StyleCrossfade
	tl := timeline.Build(
		[]media.Item{media.NewPhoto(path, media.Rotate0)},
		set, nil, nil, rand.New(rand.NewSource(1)),
	)

	pool := decoder.NewPool(stillExtractor{}, 1, zerolog.Nop())
	textures := texture.NewManager(pool, zerolog.Nop())
	defer textures.Close()

	ctx := context.Background()
	cur, next, _ := tl.Resolve(0)
	if err := textures.SetSlots(ctx, cur, next); err != nil {
		t.Fatalf("set slots: %v", err)
	}

	p := New(tl, textures, Options{Width: 32, Height: 24}, zerolog.Nop())
	p.current, p.next = cur, next

	now := time.Now()
	p.cursor.Start(now)

	painted := image.NewRGBA(image.Rect(0, 0, 32, 24))
	shown := image.NewRGBA(image.Rect(0, 0, 32, 24))
	p.tick(ctx, painted, now)

	if painted.Pix[3] == 0 {
		t.Error("handed buffer was never painted")
	}
	for i, v := range shown.Pix {
		if v != 0 {
			t.Fatalf("displayed buffer written at offset %d", i)
		}
	}
}
