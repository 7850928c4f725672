// Package printing turns a PDF print request into output on a physical printer using the
// strategy the host supports.
package printing

import (
	"github.com/go-playground/validator/v10"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/rasterize"
)

const (
	DefaultRasterDPI    = 202
	DefaultDocumentName = "PDF Document"
)

var validate = validator.New()

// Request is one print attempt. It is passed by value and never modified once built.
type Request struct {
	Source       rasterize.Source
	PageWidthIn  float64 `validate:"gt=0,lte=100"`
	PageHeightIn float64 `validate:"gt=0,lte=100"`
	RasterDPI    int     `validate:"gt=0,lte=2400"`
	DocumentName string  `validate:"max=255"`
	RotatePages  bool
}

// WithDefaults returns a copy of r with the raster DPI and document name filled in when
// they are unset.
func (r Request) WithDefaults() Request {
	if r.RasterDPI == 0 {
		r.RasterDPI = DefaultRasterDPI
	}
	if r.DocumentName == "" {
		r.DocumentName = DefaultDocumentName
	}
	return r
}

// Validate checks the page geometry, DPI and source.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return printerr.New(printerr.InvalidRequest, "invalid print request", err)
	}
	if err := r.Source.Validate(); err != nil {
		return printerr.New(printerr.InvalidRequest, "invalid print request", err)
	}
	return nil
}
