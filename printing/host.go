package printing

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// Strategy modes accepted in configuration.
const (
	ModeAuto       = "auto"
	ModeGDI        = "gdi"
	ModeLP         = "lp"
	ModeCUPSRaster = "cups-raster"
	ModeEscPosUSB  = "escpos-usb"
)

// Modes lists every accepted mode.
var Modes = []string{ModeAuto, ModeGDI, ModeLP, ModeCUPSRaster, ModeEscPosUSB}

// Host describes the print capabilities of the machine the service runs on.
type Host struct {
	OS       string
	LookPath func(file string) (string, error)
}

// DetectHost inspects the running machine.
func DetectHost() Host {
	return Host{OS: runtime.GOOS, LookPath: exec.LookPath}
}

func (h Host) has(tool string) bool {
	if h.LookPath == nil {
		return false
	}
	_, err := h.LookPath(tool)
	return err == nil
}

func hasCUPS(os string) bool {
	switch os {
	case "linux", "darwin", "freebsd", "netbsd", "openbsd":
		return true
	}
	return false
}

// Resolve picks the concrete mode for mode on host. lpPath is the lp binary the lp-based
// modes would run.
func Resolve(mode string, host Host, lpPath string) (string, error) {
	switch mode {
	case ModeAuto, "":
		if host.OS == "windows" {
			return ModeGDI, nil
		}
		if hasCUPS(host.OS) && host.has(lpPath) {
			return ModeLP, nil
		}
		return "", printerr.New(printerr.UnsupportedPlatform,
			fmt.Sprintf("printing is not implemented for %s", host.OS), nil)

	case ModeGDI:
		if host.OS != "windows" {
			return "", printerr.New(printerr.UnsupportedPlatform,
				fmt.Sprintf("GDI printing is not available on %s", host.OS), nil)
		}
		return ModeGDI, nil

	case ModeLP, ModeCUPSRaster:
		if !host.has(lpPath) {
			return "", printerr.New(printerr.ToolchainUnavailable,
				fmt.Sprintf("%s is required for %s printing", lpPath, mode), nil)
		}
		return mode, nil

	case ModeEscPosUSB:
		return ModeEscPosUSB, nil
	}

	return "", printerr.New(printerr.UnsupportedPlatform, fmt.Sprintf("unknown print strategy %q", mode), nil)
}
