//go:build !windows

package spool

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// NewSystemSpooler returns the host's native image spooler. Only Windows (GDI) has one.
func NewSystemSpooler(printer string, logger *zap.Logger) (Spooler, error) {
	return nil, printerr.New(printerr.UnsupportedPlatform,
		"no image spooler on "+runtime.GOOS, nil)
}
