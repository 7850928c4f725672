package spool

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/adapter"
	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

const (
	defaultEscPosDPI = 203
	// rows per GS v 0 command
	escPosBandHeight = 256
	// luminance below which a pixel is printed
	escPosThreshold = 128
)

var (
	escPosInit        = []byte{0x1B, 0x40}       // ESC @
	escPosFeed        = []byte{0x1B, 0x64, 0x03} // ESC d 3
	escPosPartialCut  = []byte{0x1D, 0x56, 0x42, 0x00}
	escPosRasterImage = []byte{0x1D, 0x76, 0x30, 0x00} // GS v 0, normal density
)

// EscPosConfig contains configuration for the ESC/POS raster spooler
type EscPosConfig struct {
	// DPI is the print head resolution in dots per inch.
	DPI int
	// Cut sends a partial cut after every page.
	Cut    bool
	Logger *zap.Logger
}

// EscPosSpooler prints page images as ESC/POS raster graphics over a raw adapter.
type EscPosSpooler struct {
	adapter adapter.Adapter
	config  EscPosConfig
	logger  *zap.Logger
}

// NewEscPosSpooler creates a spooler writing to a.
func NewEscPosSpooler(a adapter.Adapter, config EscPosConfig) *EscPosSpooler {
	if config.DPI <= 0 {
		config.DPI = defaultEscPosDPI
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscPosSpooler{adapter: a, config: config, logger: logger}
}

// StartDoc opens the adapter and resets the printer.
func (s *EscPosSpooler) StartDoc(_ context.Context, name string) (Document, error) {
	if s.adapter.IsOpen() {
		return nil, printerr.New(printerr.DeviceError, "printer is busy with another job", nil)
	}
	if err := s.adapter.Open(); err != nil {
		return nil, printerr.New(printerr.DeviceError, "failed to open printer", err)
	}

	doc := &escPosDocument{spooler: s, name: name}
	if err := doc.write(escPosInit); err != nil {
		s.adapter.Close()
		return nil, err
	}
	return doc, nil
}

type escPosDocument struct {
	spooler *EscPosSpooler
	name    string
	closed  bool
}

func (d *escPosDocument) write(data []byte) error {
	n, err := d.spooler.adapter.Write(data)
	if err != nil {
		return fmt.Errorf("printer write failed: %w", err)
	}
	if n != len(data) {
		return fmt.Errorf("short write to printer: %d of %d bytes", n, len(data))
	}
	return nil
}

func (d *escPosDocument) Resolution() (int, int) {
	return d.spooler.config.DPI, d.spooler.config.DPI
}

func (d *escPosDocument) StartPage() error {
	return nil
}

// DrawImage sends img as raster bands. The printer places graphics at the left margin,
// so only dst's size is honored.
func (d *escPosDocument) DrawImage(img image.Image, dst image.Rectangle) error {
	if img.Bounds().Size() != dst.Size() {
		return fmt.Errorf("image size %v does not match page area %v", img.Bounds().Size(), dst.Size())
	}
	for _, band := range RasterBands(img, escPosBandHeight) {
		if err := d.write(band); err != nil {
			return err
		}
	}
	return nil
}

func (d *escPosDocument) EndPage() error {
	if err := d.write(escPosFeed); err != nil {
		return err
	}
	if d.spooler.config.Cut {
		return d.write(escPosPartialCut)
	}
	return nil
}

func (d *escPosDocument) EndDoc() error {
	d.spooler.logger.Debug("document sent to printer", zap.String("document", d.name))
	return nil
}

func (d *escPosDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.spooler.adapter.Close()
}

// RasterBands encodes img as a sequence of GS v 0 commands of at most bandHeight rows.
// Dark pixels become printed dots, packed most significant bit first.
func RasterBands(img image.Image, bandHeight int) [][]byte {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	rowBytes := (width + 7) / 8

	var bands [][]byte
	for top := 0; top < height; top += bandHeight {
		rows := min(bandHeight, height-top)

		cmd := make([]byte, 0, len(escPosRasterImage)+4+rowBytes*rows)
		cmd = append(cmd, escPosRasterImage...)
		cmd = append(cmd,
			byte(rowBytes), byte(rowBytes>>8),
			byte(rows), byte(rows>>8),
		)
		for y := top; y < top+rows; y++ {
			row := make([]byte, rowBytes)
			for x := 0; x < width; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				if g.Y < escPosThreshold {
					row[x/8] |= 0x80 >> (x % 8)
				}
			}
			cmd = append(cmd, row...)
		}
		bands = append(bands, cmd)
	}
	return bands
}
