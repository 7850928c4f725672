package spool

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/toolchain"
)

const (
	defaultLPPath        = "lp"
	defaultLPOptionsPath = "lpoptions"
	defaultFallbackDPI   = 203
)

// CUPSConfig contains configuration for the CUPS raster spooler
type CUPSConfig struct {
	// Printer is the CUPS destination name.
	Printer string
	// LPPath and LPOptionsPath locate the CUPS utilities. Defaults: lp, lpoptions.
	LPPath        string
	LPOptionsPath string
	// FallbackDPI is used when the destination does not report a Resolution option.
	FallbackDPI int
	Runner      toolchain.Runner
	Logger      *zap.Logger
}

// CUPSSpooler collects the page images of a document into a PDF and submits it with lp.
type CUPSSpooler struct {
	config *CUPSConfig
	logger *zap.Logger
}

// NewCUPSSpooler creates a CUPS-backed spooler.
func NewCUPSSpooler(config *CUPSConfig) *CUPSSpooler {
	if config == nil {
		config = &CUPSConfig{}
	}
	if config.LPPath == "" {
		config.LPPath = defaultLPPath
	}
	if config.LPOptionsPath == "" {
		config.LPOptionsPath = defaultLPOptionsPath
	}
	if config.FallbackDPI <= 0 {
		config.FallbackDPI = defaultFallbackDPI
	}
	if config.Runner == nil {
		config.Runner = toolchain.ExecRunner{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CUPSSpooler{config: config, logger: logger}
}

// StartDoc resolves lp and the destination resolution and starts an empty document.
func (s *CUPSSpooler) StartDoc(ctx context.Context, name string) (Document, error) {
	lp, err := toolchain.Resolve("", s.config.LPPath)
	if err != nil {
		return nil, printerr.New(printerr.ToolchainUnavailable, "lp is not available", err)
	}

	dpiX, dpiY := s.resolution(ctx)
	pdf := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "in", Size: gofpdf.SizeType{Wd: 1, Ht: 1}})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(name, true)

	return &cupsDocument{
		ctx:     ctx,
		spooler: s,
		lp:      lp,
		name:    name,
		dpiX:    dpiX,
		dpiY:    dpiY,
		pdf:     pdf,
	}, nil
}

// resolution asks lpoptions for the destination's default resolution.
func (s *CUPSSpooler) resolution(ctx context.Context) (int, int) {
	fallback := s.config.FallbackDPI

	bin, err := toolchain.Resolve("", s.config.LPOptionsPath)
	if err != nil {
		s.logger.Debug("lpoptions not available, using fallback resolution", zap.Int("dpi", fallback))
		return fallback, fallback
	}
	out, err := s.config.Runner.Run(ctx, bin, []string{"-p", s.config.Printer, "-l"}, nil)
	if err != nil {
		s.logger.Warn("lpoptions failed, using fallback resolution", zap.Int("dpi", fallback), zap.Error(err))
		return fallback, fallback
	}
	x, y, ok := parseResolution(out)
	if !ok {
		return fallback, fallback
	}
	return x, y
}

// parseResolution reads the default choice of the Resolution option from lpoptions -l
// output, e.g. "Resolution/Output Resolution: 150dpi *203x203dpi 300dpi".
func parseResolution(out []byte) (int, int, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "Resolution/") && !strings.HasPrefix(line, "Resolution:") {
			continue
		}
		_, choices, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		for _, choice := range strings.Fields(choices) {
			if !strings.HasPrefix(choice, "*") {
				continue
			}
			value := strings.TrimSuffix(strings.TrimPrefix(choice, "*"), "dpi")
			xs, ys, hasY := strings.Cut(value, "x")
			if !hasY {
				ys = xs
			}
			x, errX := strconv.Atoi(xs)
			y, errY := strconv.Atoi(ys)
			if errX != nil || errY != nil || x <= 0 || y <= 0 {
				return 0, 0, false
			}
			return x, y, true
		}
	}
	return 0, 0, false
}

type cupsDocument struct {
	ctx     context.Context
	spooler *CUPSSpooler
	lp      string
	name    string
	dpiX    int
	dpiY    int

	pdf       *gofpdf.Fpdf
	pages     int
	pageAdded bool
	// first page size in inches, passed to lp as the media size
	mediaW, mediaH float64
	ended          bool
}

func (d *cupsDocument) Resolution() (int, int) {
	return d.dpiX, d.dpiY
}

func (d *cupsDocument) StartPage() error {
	d.pageAdded = false
	return nil
}

func (d *cupsDocument) addPage(widthIn, heightIn float64) {
	d.pdf.AddPageFormat("P", gofpdf.SizeType{Wd: widthIn, Ht: heightIn})
	if d.pages == 0 {
		d.mediaW, d.mediaH = widthIn, heightIn
	}
	d.pageAdded = true
}

func (d *cupsDocument) DrawImage(img image.Image, dst image.Rectangle) error {
	if !d.pageAdded {
		d.addPage(float64(dst.Max.X)/float64(d.dpiX), float64(dst.Max.Y)/float64(d.dpiY))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("failed to encode page image: %w", err)
	}

	imageName := fmt.Sprintf("page_%d", d.pages+1)
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	d.pdf.RegisterImageOptionsReader(imageName, opts, &buf)
	d.pdf.ImageOptions(
		imageName,
		float64(dst.Min.X)/float64(d.dpiX),
		float64(dst.Min.Y)/float64(d.dpiY),
		float64(dst.Dx())/float64(d.dpiX),
		float64(dst.Dy())/float64(d.dpiY),
		false,
		opts,
		0,
		"",
	)
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("failed to place page image: %w", err)
	}
	return nil
}

func (d *cupsDocument) EndPage() error {
	if !d.pageAdded {
		// blank page, same size as the previous one
		w, h := d.mediaW, d.mediaH
		if w == 0 || h == 0 {
			w, h = 1, 1
		}
		d.addPage(w, h)
	}
	d.pages++
	return nil
}

func (d *cupsDocument) EndDoc() error {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return fmt.Errorf("failed to assemble print document: %w", err)
	}

	args := []string{
		"-d", d.spooler.config.Printer,
		"-o", "media=" + MediaSize(d.mediaW, d.mediaH),
		"-t", d.name,
	}
	if _, err := d.spooler.config.Runner.Run(d.ctx, d.lp, args, &buf); err != nil {
		return printerr.New(printerr.DeviceError, "lp rejected the print job", err)
	}
	d.ended = true
	d.spooler.logger.Debug("document sent to lp",
		zap.String("document", d.name),
		zap.Int("pages", d.pages),
	)
	return nil
}

func (d *cupsDocument) Close() error {
	if !d.ended {
		d.spooler.logger.Debug("discarding unsent document", zap.String("document", d.name))
	}
	d.pdf = nil
	return nil
}

// MediaSize formats a page size for the lp media option, e.g. "2x3in".
func MediaSize(widthIn, heightIn float64) string {
	return formatInches(widthIn) + "x" + formatInches(heightIn) + "in"
}

func formatInches(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
