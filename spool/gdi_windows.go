//go:build windows

package spool

import (
	"context"
	"errors"
	"fmt"
	"image"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

// GetDeviceCaps indexes
const (
	logPixelsX = 88
	logPixelsY = 90
)

const (
	biRGB        = 0
	dibRGBColors = 0
	srcCopy      = 0x00CC0020
)

var (
	gdi32             = windows.NewLazySystemDLL("gdi32.dll")
	procCreateDCW     = gdi32.NewProc("CreateDCW")
	procDeleteDC      = gdi32.NewProc("DeleteDC")
	procGetDeviceCaps = gdi32.NewProc("GetDeviceCaps")
	procStartDocW     = gdi32.NewProc("StartDocW")
	procEndDoc        = gdi32.NewProc("EndDoc")
	procAbortDoc      = gdi32.NewProc("AbortDoc")
	procStartPage     = gdi32.NewProc("StartPage")
	procEndPage       = gdi32.NewProc("EndPage")
	procStretchDIBits = gdi32.NewProc("StretchDIBits")
)

type docInfo struct {
	cbSize       int32
	lpszDocName  *uint16
	lpszOutput   *uint16
	lpszDatatype *uint16
	fwType       uint32
}

type bitmapInfoHeader struct {
	biSize          uint32
	biWidth         int32
	biHeight        int32
	biPlanes        uint16
	biBitCount      uint16
	biCompression   uint32
	biSizeImage     uint32
	biXPelsPerMeter int32
	biYPelsPerMeter int32
	biClrUsed       uint32
	biClrImportant  uint32
}

// GDISpooler prints through the Windows spooler via a printer device context.
type GDISpooler struct {
	printer string
	logger  *zap.Logger
}

// NewSystemSpooler returns a GDI spooler for printer.
func NewSystemSpooler(printer string, logger *zap.Logger) (Spooler, error) {
	if err := gdi32.Load(); err != nil {
		return nil, printerr.New(printerr.ToolchainUnavailable, "gdi32.dll is not available", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GDISpooler{printer: printer, logger: logger}, nil
}

func callErr(name string, err error) error {
	if err != nil && !errors.Is(err, windows.ERROR_SUCCESS) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s failed", name)
}

// StartDoc creates a printer DC and starts a document on it.
func (s *GDISpooler) StartDoc(_ context.Context, name string) (Document, error) {
	driver, err := windows.UTF16PtrFromString("WINSPOOL")
	if err != nil {
		return nil, err
	}
	device, err := windows.UTF16PtrFromString(s.printer)
	if err != nil {
		return nil, printerr.New(printerr.InvalidRequest, "invalid printer name", err)
	}
	docName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, printerr.New(printerr.InvalidRequest, "invalid document name", err)
	}

	hdc, _, callErrno := procCreateDCW.Call(
		uintptr(unsafe.Pointer(driver)),
		uintptr(unsafe.Pointer(device)),
		0,
		0,
	)
	if hdc == 0 {
		return nil, printerr.New(printerr.DeviceError,
			fmt.Sprintf("cannot open printer %q", s.printer), callErr("CreateDCW", callErrno))
	}

	dpiX, _, _ := procGetDeviceCaps.Call(hdc, logPixelsX)
	dpiY, _, _ := procGetDeviceCaps.Call(hdc, logPixelsY)

	di := docInfo{lpszDocName: docName}
	di.cbSize = int32(unsafe.Sizeof(di))
	jobID, _, callErrno := procStartDocW.Call(hdc, uintptr(unsafe.Pointer(&di)))
	if int32(jobID) <= 0 {
		procDeleteDC.Call(hdc)
		return nil, printerr.New(printerr.DeviceError, "spooler rejected the document", callErr("StartDocW", callErrno))
	}

	s.logger.Debug("GDI document started",
		zap.String("printer", s.printer),
		zap.Uint64("job_id", uint64(jobID)),
	)
	return &gdiDocument{
		hdc:  hdc,
		dpiX: int(int32(dpiX)),
		dpiY: int(int32(dpiY)),
	}, nil
}

type gdiDocument struct {
	hdc    uintptr
	dpiX   int
	dpiY   int
	ended  bool
	closed bool
}

func (d *gdiDocument) Resolution() (int, int) {
	return d.dpiX, d.dpiY
}

func (d *gdiDocument) StartPage() error {
	if r, _, err := procStartPage.Call(d.hdc); int32(r) <= 0 {
		return callErr("StartPage", err)
	}
	return nil
}

// DrawImage blits img as a top-down 32-bit DIB stretched over dst.
func (d *gdiDocument) DrawImage(img image.Image, dst image.Rectangle) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	bits := make([]byte, w*h*4)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			bits[i+0] = byte(bl >> 8)
			bits[i+1] = byte(g >> 8)
			bits[i+2] = byte(r >> 8)
			i += 4
		}
	}

	header := bitmapInfoHeader{
		biWidth:       int32(w),
		biHeight:      -int32(h),
		biPlanes:      1,
		biBitCount:    32,
		biCompression: biRGB,
	}
	header.biSize = uint32(unsafe.Sizeof(header))

	r, _, err := procStretchDIBits.Call(
		d.hdc,
		uintptr(dst.Min.X), uintptr(dst.Min.Y), uintptr(dst.Dx()), uintptr(dst.Dy()),
		0, 0, uintptr(w), uintptr(h),
		uintptr(unsafe.Pointer(&bits[0])),
		uintptr(unsafe.Pointer(&header)),
		dibRGBColors,
		srcCopy,
	)
	if int32(r) <= 0 {
		return callErr("StretchDIBits", err)
	}
	return nil
}

func (d *gdiDocument) EndPage() error {
	if r, _, err := procEndPage.Call(d.hdc); int32(r) <= 0 {
		return callErr("EndPage", err)
	}
	return nil
}

func (d *gdiDocument) EndDoc() error {
	if r, _, err := procEndDoc.Call(d.hdc); int32(r) <= 0 {
		return callErr("EndDoc", err)
	}
	d.ended = true
	return nil
}

// Close aborts an unfinished document and deletes the device context.
func (d *gdiDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if !d.ended {
		procAbortDoc.Call(d.hdc)
	}
	if r, _, err := procDeleteDC.Call(d.hdc); r == 0 {
		return callErr("DeleteDC", err)
	}
	return nil
}
