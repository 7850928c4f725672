package rasterize

import (
	"context"
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// FitzRasterizer renders pages in-process with MuPDF.
type FitzRasterizer struct {
	logger *zap.Logger
}

// NewFitzRasterizer creates a MuPDF-backed rasterizer.
func NewFitzRasterizer(logger *zap.Logger) *FitzRasterizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FitzRasterizer{logger: logger}
}

// Rasterize renders every page of src at dpi.
func (r *FitzRasterizer) Rasterize(ctx context.Context, src Source, dpi int) ([]image.Image, error) {
	if err := checkArgs(src, dpi); err != nil {
		return nil, err
	}

	var (
		doc *fitz.Document
		err error
	)
	if src.IsFile() {
		doc, err = fitz.New(src.Path)
	} else {
		doc, err = fitz.NewFromMemory(src.Data)
	}
	if err != nil {
		return nil, printerr.New(printerr.InvalidDocument, "unable to open PDF document", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()
	if numPages <= 0 {
		return nil, emptyDocument()
	}

	images := make([]image.Image, 0, numPages)
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, printerr.New(printerr.InvalidDocument, fmt.Sprintf("unable to render page %d", i+1), err)
		}
		images = append(images, img)
	}

	r.logger.Debug("rasterized document",
		zap.Int("pages", numPages),
		zap.Int("dpi", dpi),
	)
	return images, nil
}
