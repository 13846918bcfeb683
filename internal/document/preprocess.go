package document

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const DefaultMaxEdge = 2000

// normalizeForVision flattens any alpha channel onto white and caps the
// longest side at maxEdge.
func normalizeForVision(img image.Image, maxEdge int) *image.NRGBA {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxEdge
	}
	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	if b.Dx() > maxEdge || b.Dy() > maxEdge {
		flat = imaging.Fit(flat, maxEdge, maxEdge, imaging.Lanczos)
	}
	return flat
}

// sharpenForOCR runs the grayscale/contrast/sharpen chain tesseract reads
// best from.
func sharpenForOCR(img image.Image) *image.NRGBA {
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, 20)
	return imaging.Sharpen(out, 1.0)
}
