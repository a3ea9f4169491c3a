package render

import (
	"image"
	"image/draw"
	"math/rand"

	"github.com/kikiluvv/driftshow/internal/config"
	"github.com/kikiluvv/driftshow/internal/media"
)

// postPass runs the second compositor pass: either a direct copy or a
// full-frame effect. t and the session seed drive temporal variation;
// rotation orients direction-sensitive effects (scanlines follow the
// item's upright axis).
func postPass(dst, scene *image.RGBA, post config.PostEffect, t float64, seed int64, rot media.Rotation) {
	switch post {
	case config.PostFilm:
		copyFrame(dst, scene)
		filmEffect(dst, t, seed)
	case config.PostTape:
		copyFrame(dst, scene)
		tapeEffect(dst, t, seed, rot)
	default:
		copyFrame(dst, scene)
	}
}

func copyFrame(dst, src *image.RGBA) {
	if dst == src {
		return
	}
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
}

// filmEffect: luminance grain plus a corner vignette. The grain pattern
// changes every frame; quantizing t to frame-ish steps keeps it stable
// within a frame regardless of caller timing.
func filmEffect(img *image.RGBA, t float64, seed int64) {
	rng := rand.New(rand.NewSource(seed ^ int64(t*1000)))

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := img.Pix

	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			i := row + x*4
			grain := int(rng.Int31n(21)) - 10

			// Vignette strength grows toward the corners
			dx := float64(2*x-w) / float64(w)
			dy := float64(2*y-h) / float64(h)
			vig := 1.0 - 0.18*(dx*dx+dy*dy)

			for c := 0; c < 3; c++ {
				pix[i+c] = clamp8(int(float64(int(pix[i+c])+grain) * vig))
			}
		}
	}
}

// tapeEffect: scanlines with a slight per-line channel offset jitter,
// in the item's upright orientation.
func tapeEffect(img *image.RGBA, t float64, seed int64, rot media.Rotation) {
	rng := rand.New(rand.NewSource(seed ^ int64(t*1000)))
	vertical := rot == media.Rotate90 || rot == media.Rotate270

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := img.Pix

	if vertical {
		for x := 0; x < w; x++ {
			dim := x%3 == 0
			shift := 0
			if rng.Int31n(100) < 3 {
				shift = 2
			}
			for y := 0; y < h; y++ {
				i := y*img.Stride + x*4
				if dim {
					pix[i] = pix[i] * 3 / 4
					pix[i+1] = pix[i+1] * 3 / 4
					pix[i+2] = pix[i+2] * 3 / 4
				}
				if shift != 0 && y+shift < h {
					j := (y+shift)*img.Stride + x*4
					pix[i] = pix[j]
				}
			}
		}
		return
	}

	for y := 0; y < h; y++ {
		row := y * img.Stride
		dim := y%3 == 0
		shift := 0
		if rng.Int31n(100) < 3 {
			shift = 2
		}
		for x := 0; x < w; x++ {
			i := row + x*4
			if dim {
				pix[i] = pix[i] * 3 / 4
				pix[i+1] = pix[i+1] * 3 / 4
				pix[i+2] = pix[i+2] * 3 / 4
			}
			if shift != 0 && x+shift < w {
				pix[i] = pix[row+(x+shift)*4]
			}
		}
	}
}
