package texture

import (
	"image"

	"github.com/kikiluvv/driftshow/internal/media"
)

// RotateImage returns a copy of src rotated by the given 90-degree
// multiple, clockwise. The permutation matches the face-box rotation in
// the media package so pre-rotated boxes line up with rotated pixels.
func RotateImage(src *image.RGBA, rot media.Rotation) *image.RGBA {
	if rot == media.Rotate0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	switch rot {
	case media.Rotate90:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < w; y++ {
			for x := 0; x < h; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(b.Min.X+y, b.Min.Y+h-1-x))
			}
		}
	case media.Rotate180:
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(b.Min.X+w-1-x, b.Min.Y+h-1-y))
			}
		}
	case media.Rotate270:
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
		for y := 0; y < w; y++ {
			for x := 0; x < h; x++ {
				dst.SetRGBA(x, y, src.RGBAAt(b.Min.X+w-1-y, b.Min.Y+x))
			}
		}
	default:
		return src
	}

	return dst
}
