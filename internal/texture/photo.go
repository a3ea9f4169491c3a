package texture

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/kikiluvv/driftshow/internal/ffmpeg"
	"github.com/kikiluvv/driftshow/internal/media"
)

type photoKey struct {
	path string
	rot  media.Rotation
}

// PhotoCache holds decoded, pre-rotated photo textures keyed by
// (source path, rotation). Promoting an item between slots hits the
// cache instead of reloading, which is what prevents the reload flash
// on slide advance.
type PhotoCache struct {
	mu      sync.Mutex
	entries map[photoKey]*image.RGBA
}

func NewPhotoCache() *PhotoCache {
	return &PhotoCache{entries: make(map[photoKey]*image.RGBA)}
}

// Load returns the cached texture for the photo, decoding and rotating
// it on first use.
func (c *PhotoCache) Load(path string, rot media.Rotation) (*image.RGBA, error) {
	key := photoKey{path: path, rot: rot}

	c.mu.Lock()
	tex, ok := c.entries[key]
	c.mu.Unlock()
	if ok {
		return tex, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}

	tex = RotateImage(ffmpeg.ToRGBA(img), rot)

	c.mu.Lock()
	c.entries[key] = tex
	c.mu.Unlock()

	return tex, nil
}

// Evict drops one cached texture, for callers that know an item will
// not come back. Loop-mode playback deliberately keeps the cache warm.
func (c *PhotoCache) Evict(path string, rot media.Rotation) {
	c.mu.Lock()
	delete(c.entries, photoKey{path: path, rot: rot})
	c.mu.Unlock()
}

// Len reports the number of cached textures.
func (c *PhotoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// photoSource serves one cached still texture regardless of time.
type photoSource struct {
	item media.Item
	tex  *image.RGBA
}

func newPhotoSource(cache *PhotoCache, item media.Item) (*photoSource, error) {
	tex, err := cache.Load(item.Source.Path, item.Rotation)
	if err != nil {
		return nil, err
	}
	return &photoSource{item: item, tex: tex}, nil
}

func (s *photoSource) Item() media.Item { return s.item }

func (s *photoSource) Texture(t float64) *image.RGBA { return s.tex }

func (s *photoSource) Fetch(ctx context.Context, t float64) (*image.RGBA, error) {
	return s.tex, nil
}

func (s *photoSource) Ready() bool { return s.tex != nil }

func (s *photoSource) Close() {}
