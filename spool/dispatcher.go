package spool

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// Dispatcher streams page images into a single spooler job.
type Dispatcher struct {
	spooler Spooler
	logger  *zap.Logger
}

// NewDispatcher creates a dispatcher printing through spooler.
func NewDispatcher(spooler Spooler, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		spooler: spooler,
		logger:  logger,
	}
}

// Print submits images, in order, as the pages of one document. Each page is resampled to
// the physical page size at the device resolution and drawn over the full page canvas.
// An empty images slice fails with NoPagesToPrint before any job is opened. The job is
// released on every path; the first failing page abandons the whole job.
func (d *Dispatcher) Print(ctx context.Context, images []image.Image, pageWidthIn, pageHeightIn float64, documentName string) (err error) {
	if len(images) == 0 {
		return printerr.New(printerr.NoPagesToPrint, "no pages to print", nil)
	}
	if pageWidthIn <= 0 || pageHeightIn <= 0 {
		return printerr.New(printerr.InvalidRequest, "page size must be positive", nil)
	}

	job, err := OpenJob(ctx, d.spooler, documentName)
	if err != nil {
		d.logger.Error("Failed to open print job", zap.String("document", documentName), zap.Error(err))
		return err
	}
	defer func() {
		if relErr := job.Release(); relErr != nil {
			d.logger.Warn("Failed to release print job", zap.String("document", documentName), zap.Error(relErr))
			if err == nil {
				err = relErr
			}
		}
	}()

	pageRect := PageRect(pageWidthIn, pageHeightIn, job.DPIX, job.DPIY)
	d.logger.Info("Print job opened",
		zap.String("document", documentName),
		zap.Int("pages", len(images)),
		zap.Int("dpi_x", job.DPIX),
		zap.Int("dpi_y", job.DPIY),
		zap.Int("page_px_width", pageRect.Dx()),
		zap.Int("page_px_height", pageRect.Dy()),
	)
	if pageRect.Empty() {
		return printerr.New(printerr.DeviceError, "page size rounds to zero device pixels", nil)
	}

	for i, img := range images {
		if err := d.printPage(job, img, pageRect); err != nil {
			d.logger.Error("Print job abandoned",
				zap.String("document", documentName),
				zap.Int("page", i+1),
				zap.Error(err),
			)
			return err
		}
	}

	if err := job.Finish(); err != nil {
		return err
	}
	d.logger.Info("Print job submitted", zap.String("document", documentName), zap.Int("pages", job.Pages()))
	return nil
}

func (d *Dispatcher) printPage(job *PrintJob, img image.Image, pageRect image.Rectangle) error {
	if err := job.StartPage(); err != nil {
		return err
	}
	scaled := Resample(img, pageRect.Size())
	if err := job.SubmitPage(scaled, pageRect); err != nil {
		return err
	}
	return job.EndPage()
}
