package spool

import (
	"context"
	"errors"
	"image"
	"image/color"
)

// mockSpooler records every call the dispatcher makes against it.
type mockSpooler struct {
	dpiX, dpiY int
	openErr    error
	// failDrawOn makes DrawImage fail for the given 1-based page number.
	failDrawOn int

	opens int
	docs  []*mockDocument
}

func (m *mockSpooler) StartDoc(_ context.Context, name string) (Document, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	doc := &mockDocument{spooler: m, name: name}
	m.docs = append(m.docs, doc)
	return doc, nil
}

type mockDocument struct {
	spooler *mockSpooler
	name    string

	startPages int
	draws      []drawCall
	endPages   int
	endDocs    int
	closes     int
}

type drawCall struct {
	size image.Point
	dst  image.Rectangle
	// marker is the color at the image center, used to track page order
	marker color.RGBA
}

func (d *mockDocument) Resolution() (int, int) {
	return d.spooler.dpiX, d.spooler.dpiY
}

func (d *mockDocument) StartPage() error {
	d.startPages++
	return nil
}

func (d *mockDocument) DrawImage(img image.Image, dst image.Rectangle) error {
	b := img.Bounds()
	center := image.Pt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
	d.draws = append(d.draws, drawCall{
		size:   b.Size(),
		dst:    dst,
		marker: color.RGBAModel.Convert(img.At(center.X, center.Y)).(color.RGBA),
	})
	if d.spooler.failDrawOn == len(d.draws) {
		return errors.New("paper jam")
	}
	return nil
}

func (d *mockDocument) EndPage() error {
	d.endPages++
	return nil
}

func (d *mockDocument) EndDoc() error {
	d.endDocs++
	return nil
}

func (d *mockDocument) Close() error {
	d.closes++
	return nil
}

// solidPage returns a w x h page filled with a gray level derived from index.
func solidPage(index, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	c := pageColor(index)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func pageColor(index int) color.RGBA {
	v := uint8(20 * (index + 1))
	return color.RGBA{R: v, G: v, B: v, A: 0xFF}
}

func solidPages(n, w, h int) []image.Image {
	pages := make([]image.Image, n)
	for i := range pages {
		pages[i] = solidPage(i, w, h)
	}
	return pages
}
