package spool

import (
	"image"
	"math"
)

// PixelSize converts a physical page size in inches to device pixels, rounding each
// dimension to the nearest pixel.
func PixelSize(widthIn, heightIn float64, dpiX, dpiY int) image.Point {
	return image.Point{
		X: int(math.Round(widthIn * float64(dpiX))),
		Y: int(math.Round(heightIn * float64(dpiY))),
	}
}

// PageRect is the full page canvas in device pixels, anchored at the top-left origin.
func PageRect(widthIn, heightIn float64, dpiX, dpiY int) image.Rectangle {
	return image.Rectangle{Max: PixelSize(widthIn, heightIn, dpiX, dpiY)}
}
