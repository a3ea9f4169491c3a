package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os/exec"

	"github.com/kikiluvv/driftshow/pkg/util"
)

// ExtractFrame decodes a single frame at the given timestamp. The -ss
// before -i seeks on keyframes first, which is what makes arbitrary
// timestamps cheap enough for the render loop's texture misses.
func (e *Executor) ExtractFrame(ctx context.Context, input string, seconds float64) (*image.RGBA, error) {
	if input == "" {
		return nil, fmt.Errorf("input path is required")
	}
	if seconds < 0 {
		seconds = 0
	}

	args := []string{
		"-ss", util.FormatSeconds(seconds),
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("frame extraction failed: %w (%s)", err, errBuf.String())
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode extracted frame: %w", err)
	}

	return ToRGBA(img), nil
}

// ToRGBA converts any image to a zero-origin RGBA with a packed stride
func ToRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok &&
		rgba.Stride == bounds.Dx()*4 && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}
