package rasterize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/toolchain"
)

const (
	pdftoppmBinary = "pdftoppm"
	pageFilePrefix = "page"

	// pdftoppm exit status for a document it could not open or parse.
	pdftoppmOpenError = 1
)

// PopplerConfig contains configuration for the pdftoppm rasterizer
type PopplerConfig struct {
	// ToolchainPath is the directory holding the poppler binaries.
	// If empty, pdftoppm is searched in PATH.
	ToolchainPath string
	// TempDir receives the per-call page files. Defaults to os.TempDir().
	TempDir string
	// Runner executes pdftoppm. Defaults to toolchain.ExecRunner.
	Runner toolchain.Runner
	Logger *zap.Logger
}

// PopplerRasterizer renders pages by running poppler's pdftoppm.
type PopplerRasterizer struct {
	config *PopplerConfig
	logger *zap.Logger
}

// NewPopplerRasterizer creates a pdftoppm-backed rasterizer. The binary is resolved on
// every call so a toolchain installed after startup is picked up.
func NewPopplerRasterizer(config *PopplerConfig) *PopplerRasterizer {
	if config == nil {
		config = &PopplerConfig{}
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}
	if config.Runner == nil {
		config.Runner = toolchain.ExecRunner{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PopplerRasterizer{config: config, logger: logger}
}

// Rasterize renders every page of src at dpi.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, src Source, dpi int) ([]image.Image, error) {
	if err := checkArgs(src, dpi); err != nil {
		return nil, err
	}

	binary, err := toolchain.Resolve(r.config.ToolchainPath, pdftoppmBinary)
	if err != nil {
		return nil, printerr.New(printerr.ToolchainUnavailable, "pdftoppm is not available", err)
	}

	outDir, err := os.MkdirTemp(r.config.TempDir, "raster-")
	if err != nil {
		return nil, fmt.Errorf("failed to create raster directory: %w", err)
	}
	defer os.RemoveAll(outDir)

	input := src.Path
	var stdin io.Reader
	if !src.IsFile() {
		input = "-"
		stdin = bytes.NewReader(src.Data)
	}
	args := []string{"-r", strconv.Itoa(dpi), "-png", input, filepath.Join(outDir, pageFilePrefix)}

	if _, err := r.config.Runner.Run(ctx, binary, args, stdin); err != nil {
		return nil, classifyPopplerError(err)
	}

	files, err := pageFiles(outDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, emptyDocument()
	}

	images := make([]image.Image, 0, len(files))
	for i, name := range files {
		img, err := decodePNG(name)
		if err != nil {
			return nil, printerr.New(printerr.InvalidDocument, fmt.Sprintf("unable to decode page %d", i+1), err)
		}
		images = append(images, img)
	}

	r.logger.Debug("rasterized document",
		zap.String("binary", binary),
		zap.Int("pages", len(images)),
		zap.Int("dpi", dpi),
	)
	return images, nil
}

func classifyPopplerError(err error) error {
	if errors.Is(err, toolchain.ErrNotFound) {
		return printerr.New(printerr.ToolchainUnavailable, "pdftoppm is not available", err)
	}
	var exitErr *toolchain.ExitError
	if errors.As(err, &exitErr) && exitErr.Code == pdftoppmOpenError {
		return printerr.New(printerr.InvalidDocument, "unable to open PDF document", err)
	}
	return printerr.New(printerr.ToolchainUnavailable, "pdftoppm failed", err)
}

// pageFiles lists the page images pdftoppm wrote, ordered by page number. pdftoppm pads
// the number to the width of the page count, so lexical order is not enough.
func pageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list raster directory: %w", err)
	}

	type page struct {
		num  int
		path string
	}
	var pages []page
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".png" {
			continue
		}
		stem := strings.TrimSuffix(name, ".png")
		idx := strings.LastIndex(stem, "-")
		if idx < 0 {
			continue
		}
		num, err := strconv.Atoi(stem[idx+1:])
		if err != nil {
			continue
		}
		pages = append(pages, page{num: num, path: filepath.Join(dir, name)})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].num < pages[j].num })

	paths := make([]string, len(pages))
	for i, p := range pages {
		paths[i] = p.path
	}
	return paths, nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
