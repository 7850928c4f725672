package spool

import (
	"image"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// Lanczos3 is a three-lobed Lanczos windowed-sinc resampling kernel.
var Lanczos3 = &draw.Kernel{Support: 3, At: lanczos3}

func lanczos3(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t >= 3 {
		return 0
	}
	return sinc(t) * sinc(t/3)
}

func sinc(x float64) float64 {
	x *= math.Pi
	return math.Sin(x) / x
}

// Resample scales img to exactly size pixels with the Lanczos3 filter. The source image
// is not modified.
func Resample(img image.Image, size image.Point) *image.RGBA {
	dst := image.NewRGBA(image.Rectangle{Max: size})
	Lanczos3.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// Rotate90 returns a new image holding img turned a quarter turn clockwise. The bounds
// grow to fit the rotated content, so nothing is cropped.
func Rotate90(img image.Image) *image.RGBA {
	sb := img.Bounds()
	w, h := sb.Dx(), sb.Dy()
	dst := image.NewRGBA(image.Rect(0, 0, h, w))

	// maps source (x, y) to destination (h - (y - minY), x - minX)
	s2d := f64.Aff3{
		0, -1, float64(h + sb.Min.Y),
		1, 0, float64(-sb.Min.X),
	}
	draw.NearestNeighbor.Transform(dst, s2d, img, sb, draw.Src, nil)
	return dst
}

// RotateAll rotates every page with Rotate90. The input slice and its images are left
// untouched; the result is a fresh set of images owned by the caller.
func RotateAll(pages []image.Image) []image.Image {
	rotated := make([]image.Image, len(pages))
	for i, p := range pages {
		rotated[i] = Rotate90(p)
	}
	return rotated
}
