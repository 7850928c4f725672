package printing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/spool"
	"github.com/nixxel-company-limited/pdf-print-server/toolchain"
)

// rotation applied at the page-description level, clockwise like spool.Rotate90
const structuralRotation = 90

var disableConfigDir sync.Once

// CommandConfig contains configuration for the lp strategy
type CommandConfig struct {
	// Printer is the lp destination.
	Printer string
	// LPPath locates lp. Defaults to "lp" in PATH.
	LPPath string
	Runner toolchain.Runner
	Logger *zap.Logger
}

// CommandStrategy hands the PDF straight to lp with the media size as an option,
// rotating pages through their /Rotate entry instead of rasterizing.
type CommandStrategy struct {
	config *CommandConfig
	logger *zap.Logger
}

// NewCommandStrategy creates an lp-based strategy.
func NewCommandStrategy(config *CommandConfig) *CommandStrategy {
	if config == nil {
		config = &CommandConfig{}
	}
	if config.LPPath == "" {
		config.LPPath = "lp"
	}
	if config.Runner == nil {
		config.Runner = toolchain.ExecRunner{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	disableConfigDir.Do(api.DisableConfigDir)
	return &CommandStrategy{config: config, logger: logger}
}

func (s *CommandStrategy) Name() string {
	return "lp"
}

func pdfConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Print submits req to lp. The caller's file is only read; a rotated copy is streamed to
// lp on stdin.
func (s *CommandStrategy) Print(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	lp, err := toolchain.Resolve("", s.config.LPPath)
	if err != nil {
		return printerr.New(printerr.ToolchainUnavailable, "lp is not available", err)
	}

	rs, closeSource, err := openSource(req)
	if err != nil {
		return err
	}
	defer closeSource()

	conf := pdfConfig()
	pages, err := api.PageCount(rs, conf)
	if err != nil {
		return printerr.New(printerr.InvalidDocument, "unable to read PDF document", err)
	}
	if pages == 0 {
		return printerr.New(printerr.EmptyDocument, "document has no pages", nil)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return printerr.New(printerr.InvalidDocument, "unable to rewind PDF document", err)
	}

	args := []string{
		"-d", s.config.Printer,
		"-o", "media=" + spool.MediaSize(req.PageWidthIn, req.PageHeightIn),
		"-t", req.DocumentName,
	}
	var stdin io.Reader
	switch {
	case req.RotatePages:
		var rotated bytes.Buffer
		if err := api.Rotate(rs, &rotated, structuralRotation, nil, conf); err != nil {
			return printerr.New(printerr.InvalidDocument, "unable to rotate PDF pages", err)
		}
		stdin = &rotated
	case req.Source.IsFile():
		args = append(args, req.Source.Path)
	default:
		stdin = rs
	}

	s.logger.Info("Submitting document to lp",
		zap.String("document", req.DocumentName),
		zap.String("printer", s.config.Printer),
		zap.Int("pages", pages),
		zap.Bool("rotated", req.RotatePages),
	)
	if _, err := s.config.Runner.Run(ctx, lp, args, stdin); err != nil {
		if errors.Is(err, toolchain.ErrNotFound) {
			return printerr.New(printerr.ToolchainUnavailable, "lp is not available", err)
		}
		return printerr.New(printerr.DeviceError, "lp rejected the print job", err)
	}
	return nil
}

func openSource(req Request) (io.ReadSeeker, func(), error) {
	if !req.Source.IsFile() {
		return bytes.NewReader(req.Source.Data), func() {}, nil
	}
	f, err := os.Open(req.Source.Path)
	if err != nil {
		return nil, nil, printerr.New(printerr.InvalidDocument, "cannot open "+req.Source.Path, err)
	}
	return f, func() { f.Close() }, nil
}
