package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "printrelay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5571", cfg.Server.Address)
	assert.Equal(t, "tmp", cfg.Server.TempDir)
	assert.True(t, cfg.Server.SpoolToDisk)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxUploadBytes())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "Westinghouse_WHTP203e", cfg.Printer.Name)
	assert.Equal(t, "auto", cfg.Printer.Strategy)
	assert.Equal(t, 2.0, cfg.Printer.PageWidthIn)
	assert.Equal(t, 3.0, cfg.Printer.PageHeightIn)
	assert.Equal(t, 202, cfg.Printer.RasterDPI)
	assert.True(t, cfg.Printer.RotatePages)
	assert.Equal(t, "PDF Document", cfg.Printer.DocumentName)

	assert.Equal(t, "fitz", cfg.Raster.Engine)
	assert.Equal(t, "lp", cfg.CUPS.LPPath)
	assert.Equal(t, 203, cfg.CUPS.FallbackDPI)
	assert.Equal(t, 203, cfg.USB.DPI)
	assert.True(t, cfg.USB.Cut)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  address: 127.0.0.1:9100
  spool_to_disk: false
printer:
  name: Zebra
  strategy: escpos-usb
  page_width_in: 4
  page_height_in: 6
usb:
  vendor_id: 1208
  product_id: 514
  cut: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.Server.Address)
	assert.False(t, cfg.Server.SpoolToDisk)
	assert.Equal(t, "Zebra", cfg.Printer.Name)
	assert.Equal(t, "escpos-usb", cfg.Printer.Strategy)
	assert.Equal(t, 4.0, cfg.Printer.PageWidthIn)
	assert.Equal(t, uint16(0x04b8), cfg.USB.VendorID)
	assert.Equal(t, uint16(0x0202), cfg.USB.ProductID)
	assert.False(t, cfg.USB.Cut)
	// untouched keys keep their defaults
	assert.Equal(t, 202, cfg.Printer.RasterDPI)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  address: 127.0.0.1:9100\n")
	t.Setenv("SERVER_ADDRESS", "localhost:9200")
	t.Setenv("PRINTER_STRATEGY", "LP")
	t.Setenv("PRINTER_RASTER_DPI", "300")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "localhost:9200", cfg.Server.Address)
	assert.Equal(t, "lp", cfg.Printer.Strategy)
	assert.Equal(t, 300, cfg.Printer.RasterDPI)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown strategy", "printer:\n  strategy: fax\n"},
		{"unknown engine", "raster:\n  engine: ghostscript\n"},
		{"zero page width", "printer:\n  page_width_in: 0\n"},
		{"negative dpi", "printer:\n  raster_dpi: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
