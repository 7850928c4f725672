// Package config loads the service configuration from an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig
	Printer PrinterConfig
	Raster  RasterConfig
	CUPS    CUPSConfig
	USB     USBConfig
	Log     LogConfig
}

type ServerConfig struct {
	Address         string `validate:"required"`
	TempDir         string `validate:"required"`
	SpoolToDisk     bool
	MaxUploadMB     int           `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
}

// PrinterConfig holds the destination printer and the defaults applied to every request.
type PrinterConfig struct {
	Name         string  `validate:"required"`
	Strategy     string  `validate:"oneof=auto gdi lp cups-raster escpos-usb"`
	PageWidthIn  float64 `validate:"gt=0"`
	PageHeightIn float64 `validate:"gt=0"`
	RasterDPI    int     `validate:"gt=0"`
	RotatePages  bool
	DocumentName string
}

type RasterConfig struct {
	Engine string `validate:"oneof=fitz poppler"`
	// ToolchainPath is the poppler bin directory; PATH is searched when empty.
	ToolchainPath string
}

type CUPSConfig struct {
	LPPath        string `validate:"required"`
	LPOptionsPath string `validate:"required"`
	FallbackDPI   int    `validate:"gt=0"`
}

type USBConfig struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
	DPI       int `validate:"gt=0"`
	Cut       bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0:5571")
	v.SetDefault("server.temp_dir", "tmp")
	v.SetDefault("server.spool_to_disk", true)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("printer.name", "Westinghouse_WHTP203e")
	v.SetDefault("printer.strategy", "auto")
	v.SetDefault("printer.page_width_in", 2.0)
	v.SetDefault("printer.page_height_in", 3.0)
	v.SetDefault("printer.raster_dpi", 202)
	v.SetDefault("printer.rotate_pages", true)
	v.SetDefault("printer.document_name", "PDF Document")

	v.SetDefault("raster.engine", "fitz")
	v.SetDefault("raster.toolchain_path", "")

	v.SetDefault("cups.lp_path", "lp")
	v.SetDefault("cups.lpoptions_path", "lpoptions")
	v.SetDefault("cups.fallback_dpi", 203)

	v.SetDefault("usb.vendor_id", 0)
	v.SetDefault("usb.product_id", 0)
	v.SetDefault("usb.serial", "")
	v.SetDefault("usb.dpi", 203)
	v.SetDefault("usb.cut", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
}

// Load reads configuration. When file is empty, printrelay.yaml is looked up in ".",
// "./config" and "/etc/printrelay" and may be absent. Environment variables override
// file values, with dots in keys replaced by underscores (SERVER_ADDRESS, PRINTER_NAME, ...).
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("printrelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/printrelay")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			TempDir:         v.GetString("server.temp_dir"),
			SpoolToDisk:     v.GetBool("server.spool_to_disk"),
			MaxUploadMB:     v.GetInt("server.max_upload_mb"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Printer: PrinterConfig{
			Name:         v.GetString("printer.name"),
			Strategy:     strings.ToLower(v.GetString("printer.strategy")),
			PageWidthIn:  v.GetFloat64("printer.page_width_in"),
			PageHeightIn: v.GetFloat64("printer.page_height_in"),
			RasterDPI:    v.GetInt("printer.raster_dpi"),
			RotatePages:  v.GetBool("printer.rotate_pages"),
			DocumentName: v.GetString("printer.document_name"),
		},
		Raster: RasterConfig{
			Engine:        strings.ToLower(v.GetString("raster.engine")),
			ToolchainPath: v.GetString("raster.toolchain_path"),
		},
		CUPS: CUPSConfig{
			LPPath:        v.GetString("cups.lp_path"),
			LPOptionsPath: v.GetString("cups.lpoptions_path"),
			FallbackDPI:   v.GetInt("cups.fallback_dpi"),
		},
		USB: USBConfig{
			VendorID:  v.GetUint16("usb.vendor_id"),
			ProductID: v.GetUint16("usb.product_id"),
			Serial:    v.GetString("usb.serial"),
			DPI:       v.GetInt("usb.dpi"),
			Cut:       v.GetBool("usb.cut"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// MaxUploadBytes is the upload size limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}
