// Package spool drives a print spooler through a per-document job: open the job, submit
// each page image scaled to the device's resolution, close the job.
package spool

import (
	"context"
	"image"
)

// Spooler opens print documents on one destination printer.
type Spooler interface {
	// StartDoc acquires the device and starts a document named name. The returned
	// Document must be closed by the caller on every path.
	StartDoc(ctx context.Context, name string) (Document, error)
}

// Document is one open spooler session. Calls are made from a single goroutine in the
// order StartPage, DrawImage, EndPage (repeated), then EndDoc, then Close.
type Document interface {
	// Resolution returns the device-reported horizontal and vertical dots per inch.
	Resolution() (dpiX, dpiY int)

	StartPage() error

	// DrawImage places img on the current page, covering dst in device pixels.
	DrawImage(img image.Image, dst image.Rectangle) error

	EndPage() error

	// EndDoc commits the document for printing.
	EndDoc() error

	// Close releases the device handle. A document closed before EndDoc is discarded.
	Close() error
}
