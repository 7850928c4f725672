// Package rasterize converts PDF documents into ordered page images.
package rasterize

import (
	"context"
	"errors"
	"image"
	"os"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// Source is a PDF document given either as a file path or as an in-memory buffer.
// Exactly one of the two is set.
type Source struct {
	Path string
	Data []byte
}

// FromFile returns a Source reading the PDF at path.
func FromFile(path string) Source {
	return Source{Path: path}
}

// FromBytes returns a Source over an in-memory PDF.
func FromBytes(data []byte) Source {
	return Source{Data: data}
}

// IsFile reports whether the source is a file path.
func (s Source) IsFile() bool {
	return s.Path != ""
}

// Validate checks that exactly one of Path and Data is set.
func (s Source) Validate() error {
	switch {
	case s.Path != "" && len(s.Data) > 0:
		return errors.New("source must be either a file path or a byte buffer, not both")
	case s.Path == "" && len(s.Data) == 0:
		return errors.New("source is empty")
	}
	return nil
}

// Bytes returns the document contents, reading the file when the source is a path.
func (s Source) Bytes() ([]byte, error) {
	if !s.IsFile() {
		return s.Data, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, printerr.New(printerr.InvalidDocument, "cannot read "+s.Path, err)
	}
	return data, nil
}

// Rasterizer turns a PDF into one image per page, in page order.
type Rasterizer interface {
	// Rasterize renders every page of src at dpi. It fails with InvalidDocument,
	// ToolchainUnavailable or EmptyDocument, and never returns an empty slice without error.
	Rasterize(ctx context.Context, src Source, dpi int) ([]image.Image, error)
}

func checkArgs(src Source, dpi int) error {
	if dpi <= 0 {
		return printerr.New(printerr.InvalidRequest, "raster dpi must be positive", nil)
	}
	if err := src.Validate(); err != nil {
		return printerr.New(printerr.InvalidRequest, "invalid document source", err)
	}
	return nil
}

func emptyDocument() error {
	return printerr.New(printerr.EmptyDocument, "document has no pages", nil)
}
