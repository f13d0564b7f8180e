package ocr

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// DefaultMaxDimension bounds both sides of the image handed to OCR.
	DefaultMaxDimension = 1200
	// DefaultThreshold is the luminance above which binarize paints white.
	DefaultThreshold = 180
)

// ParseThreshold converts a configured binarization threshold, rejecting
// values outside 0-255.
func ParseThreshold(v int) (uint8, error) {
	if v < 0 || v > 255 {
		return 0, fmt.Errorf("threshold %d out of range 0-255", v)
	}
	return uint8(v), nil
}

// 3x3 sharpen kernel, normalized by its sum (16).
var sharpenKernel = [9]float64{
	-2, -2, -2,
	-2, 32, -2,
	-2, -2, -2,
}

// Preprocess prepares a decoded image for OCR: it drops transparency, shrinks
// the image so neither side exceeds maxDim (never enlarges), converts it to
// grayscale and sharpens edges. maxDim <= 0 disables resizing.
func Preprocess(img image.Image, maxDim int) *image.NRGBA {
	out := opaque(img)
	if maxDim > 0 {
		b := out.Bounds()
		if b.Dx() > maxDim || b.Dy() > maxDim {
			out = imaging.Fit(out, maxDim, maxDim, imaging.Lanczos)
		}
	}
	out = imaging.Grayscale(out)
	return imaging.Convolve3x3(out, sharpenKernel, &imaging.ConvolveOptions{Normalize: true})
}

// Binarize performs a global threshold on a grayscale image: pixels brighter
// than threshold become white, everything else black.
func Binarize(img image.Image, threshold uint8) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		// grayscale input, red channel carries luminance
		if c.R > threshold {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	})
}

// opaque discards the alpha channel and keeps the underlying colour.
func opaque(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 255
		return c
	})
}
