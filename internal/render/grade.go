package render

import (
	"image"

	"github.com/kikiluvv/driftshow/internal/config"
)

// ApplyGrade transforms an RGBA buffer in place according to the color
// grade mode. Runs per drawn quad, so it only touches visible pixels.
func ApplyGrade(img *image.RGBA, grade config.ColorGrade) {
	switch grade {
	case config.GradeMono:
		gradeMono(img)
	case config.GradeSepia:
		gradeSepia(img)
	case config.GradeVivid:
		gradeVivid(img)
	}
}

func gradeMono(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		// BT.601 luma
		y := (299*int(pix[i]) + 587*int(pix[i+1]) + 114*int(pix[i+2])) / 1000
		pix[i], pix[i+1], pix[i+2] = uint8(y), uint8(y), uint8(y)
	}
}

func gradeSepia(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		pix[i] = clamp8((393*r + 769*g + 189*b) / 1000)
		pix[i+1] = clamp8((349*r + 686*g + 168*b) / 1000)
		pix[i+2] = clamp8((272*r + 534*g + 131*b) / 1000)
	}
}

func gradeVivid(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b := int(pix[i]), int(pix[i+1]), int(pix[i+2])
		y := (299*r + 587*g + 114*b) / 1000
		// Push channels away from luma to lift saturation ~30%
		pix[i] = clamp8(y + (r-y)*13/10)
		pix[i+1] = clamp8(y + (g-y)*13/10)
		pix[i+2] = clamp8(y + (b-y)*13/10)
	}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
