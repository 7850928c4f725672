package printing

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/rasterize"
	"github.com/nixxel-company-limited/pdf-print-server/spool"
)

// Dispatcher prints ordered page images as one job.
type Dispatcher interface {
	Print(ctx context.Context, images []image.Image, pageWidthIn, pageHeightIn float64, documentName string) error
}

// RasterStrategy rasterizes the document and streams the page images to a spooler.
type RasterStrategy struct {
	name       string
	rasterizer rasterize.Rasterizer
	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewRasterStrategy creates an image-based strategy. name identifies the spooler back-end.
func NewRasterStrategy(name string, r rasterize.Rasterizer, d Dispatcher, logger *zap.Logger) *RasterStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RasterStrategy{
		name:       name,
		rasterizer: r,
		dispatcher: d,
		logger:     logger,
	}
}

func (s *RasterStrategy) Name() string {
	return s.name
}

// Print rasterizes req.Source at req.RasterDPI, rotates every page when requested and
// submits the pages as a single job.
func (s *RasterStrategy) Print(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	start := time.Now()
	pages, err := s.rasterizer.Rasterize(ctx, req.Source, req.RasterDPI)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		return printerr.New(printerr.EmptyDocument, "document has no pages", nil)
	}
	s.logger.Debug("Document rasterized",
		zap.String("document", req.DocumentName),
		zap.Int("pages", len(pages)),
		zap.Duration("elapsed", time.Since(start)),
	)

	if req.RotatePages {
		pages = spool.RotateAll(pages)
	}

	return s.dispatcher.Print(ctx, pages, req.PageWidthIn, req.PageHeightIn, req.DocumentName)
}
