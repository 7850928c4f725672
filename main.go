package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/adapter"
	"github.com/nixxel-company-limited/pdf-print-server/config"
	"github.com/nixxel-company-limited/pdf-print-server/logger"
	"github.com/nixxel-company-limited/pdf-print-server/printing"
	"github.com/nixxel-company-limited/pdf-print-server/rasterize"
	"github.com/nixxel-company-limited/pdf-print-server/server"
	"github.com/nixxel-company-limited/pdf-print-server/spool"
)

func main() {
	cfg, err := config.Load(os.Getenv("PRINTRELAY_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	strategy, closer, err := buildStrategy(cfg, log)
	if err != nil {
		log.Fatal("Cannot set up printing", zap.Error(err))
	}
	defer closer.Close()

	if err := os.MkdirAll(cfg.Server.TempDir, 0o755); err != nil {
		log.Fatal("Cannot create upload directory", zap.String("dir", cfg.Server.TempDir), zap.Error(err))
	}

	svr := server.NewWithLogger(strategy, cfg.Server.Address, server.Options{
		TempDir:         cfg.Server.TempDir,
		SpoolToDisk:     cfg.Server.SpoolToDisk,
		MaxUploadBytes:  cfg.Server.MaxUploadBytes(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Defaults: printing.Request{
			PageWidthIn:  cfg.Printer.PageWidthIn,
			PageHeightIn: cfg.Printer.PageHeightIn,
			RasterDPI:    cfg.Printer.RasterDPI,
			RotatePages:  cfg.Printer.RotatePages,
			DocumentName: cfg.Printer.DocumentName,
		},
	}, log)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		if err := svr.Stop(); err != nil {
			log.Error("Shutdown failed", zap.Error(err))
		}
	}()

	if err := svr.Start(); err != nil {
		log.Error("Server failed", zap.Error(err))
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// buildStrategy wires the print path selected by cfg.Printer.Strategy. The returned closer
// releases long-lived device resources.
func buildStrategy(cfg *config.Config, log *zap.Logger) (printing.Strategy, io.Closer, error) {
	mode, err := printing.Resolve(cfg.Printer.Strategy, printing.DetectHost(), cfg.CUPS.LPPath)
	if err != nil {
		return nil, nil, err
	}
	log.Info("Print strategy selected", zap.String("strategy", mode), zap.String("printer", cfg.Printer.Name))

	if mode == printing.ModeLP {
		return printing.NewCommandStrategy(&printing.CommandConfig{
			Printer: cfg.Printer.Name,
			LPPath:  cfg.CUPS.LPPath,
			Logger:  log.Named("strategy"),
		}), nopCloser{}, nil
	}

	var rasterizer rasterize.Rasterizer
	switch cfg.Raster.Engine {
	case "poppler":
		rasterizer = rasterize.NewPopplerRasterizer(&rasterize.PopplerConfig{
			ToolchainPath: cfg.Raster.ToolchainPath,
			TempDir:       cfg.Server.TempDir,
			Logger:        log.Named("rasterizer"),
		})
	default:
		rasterizer = rasterize.NewFitzRasterizer(log.Named("rasterizer"))
	}

	var (
		spooler spool.Spooler
		closer  io.Closer = nopCloser{}
	)
	switch mode {
	case printing.ModeGDI:
		spooler, err = spool.NewSystemSpooler(cfg.Printer.Name, log.Named("gdi"))
		if err != nil {
			return nil, nil, err
		}
	case printing.ModeCUPSRaster:
		spooler = spool.NewCUPSSpooler(&spool.CUPSConfig{
			Printer:       cfg.Printer.Name,
			LPPath:        cfg.CUPS.LPPath,
			LPOptionsPath: cfg.CUPS.LPOptionsPath,
			FallbackDPI:   cfg.CUPS.FallbackDPI,
			Logger:        log.Named("cups"),
		})
	case printing.ModeEscPosUSB:
		usb := adapter.NewUSBAdapter(adapter.USBConfig{
			VendorID:  cfg.USB.VendorID,
			ProductID: cfg.USB.ProductID,
			Serial:    cfg.USB.Serial,
			Logger:    log,
		})
		closer = shutdownCloser{usb}
		spooler = spool.NewEscPosSpooler(usb, spool.EscPosConfig{
			DPI:    cfg.USB.DPI,
			Cut:    cfg.USB.Cut,
			Logger: log.Named("escpos"),
		})
	}

	dispatcher := spool.NewDispatcher(spooler, log.Named("dispatcher"))
	return printing.NewRasterStrategy(mode, rasterizer, dispatcher, log.Named("strategy")), closer, nil
}

type shutdownCloser struct {
	usb *adapter.USBAdapter
}

func (s shutdownCloser) Close() error { return s.usb.Shutdown() }
