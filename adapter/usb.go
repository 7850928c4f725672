package adapter

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// Interface class code for printers.
// Reference: http://www.usb.org/developers/defined_class
const IfaceClassPrinter = 0x07

// USBConfig selects which USB printer an adapter talks to. When VendorID and ProductID
// are set they take precedence, then Serial; with neither the first printer found is used.
type USBConfig struct {
	VendorID  uint16
	ProductID uint16
	Serial    string
	Logger    *zap.Logger
}

// USBAdapter manages USB printer communication. Every Open claims the printer
// interface afresh and every Close gives it back, so one adapter serves many jobs.
type USBAdapter struct {
	config      USBConfig
	ctx         *gousb.Context
	device      *gousb.Device
	usbConfig   *gousb.Config
	iface       *gousb.Interface
	outEndpoint *gousb.OutEndpoint
	inEndpoint  *gousb.InEndpoint
	isOpen      bool
	mu          sync.Mutex
	logger      *zap.Logger
}

// NewUSBAdapter creates a new USB adapter instance. No device is touched until Open.
func NewUSBAdapter(config USBConfig) *USBAdapter {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &USBAdapter{
		config: config,
		ctx:    gousb.NewContext(),
		logger: logger.Named("usb"),
	}
}

// IsPrinter checks if a device is a printer
func IsPrinter(dev *gousb.Device) bool {
	if dev == nil {
		return false
	}

	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return false
	}

	cfg, err := dev.Config(cfgNum)
	if err != nil {
		return false
	}
	defer cfg.Close()

	return printerInterface(cfg.Desc) >= 0
}

// printerInterface returns the number of the first printer-class interface, or -1.
func printerInterface(desc gousb.ConfigDesc) int {
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return iface.Number
			}
		}
	}
	return -1
}

// FindPrinters returns all USB printer devices. The caller owns and must close them.
func FindPrinters(ctx *gousb.Context) []*gousb.Device {
	var printers []*gousb.Device

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true // Check all devices
	})
	if err != nil && len(devices) == 0 {
		return printers
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}

	return printers
}

// GetDeviceByVIDPID opens a device by VID and PID
func GetDeviceByVIDPID(ctx *gousb.Context, vid, pid uint16) (*gousb.Device, error) {
	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		return nil, err
	}
	if device == nil {
		return nil, errors.New("device not found")
	}
	return device, nil
}

// GetDeviceBySerial opens a device by serial number
func GetDeviceBySerial(ctx *gousb.Context, serial string) (*gousb.Device, error) {
	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil && len(devices) == 0 {
		return nil, err
	}

	var found *gousb.Device
	for _, dev := range devices {
		if found == nil {
			if s, err := dev.SerialNumber(); err == nil && s == serial {
				found = dev
				continue
			}
		}
		dev.Close()
	}

	if found == nil {
		return nil, errors.New("device with serial number not found")
	}
	return found, nil
}

func (a *USBAdapter) findDevice() (*gousb.Device, error) {
	switch {
	case a.config.VendorID != 0 && a.config.ProductID != 0:
		return GetDeviceByVIDPID(a.ctx, a.config.VendorID, a.config.ProductID)
	case a.config.Serial != "":
		return GetDeviceBySerial(a.ctx, a.config.Serial)
	}

	printers := FindPrinters(a.ctx)
	if len(printers) == 0 {
		return nil, errors.New("cannot find printer")
	}
	for _, p := range printers[1:] {
		p.Close()
	}
	return printers[0], nil
}

// Open finds the device and claims its printer interface
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}

	device, err := a.findDevice()
	if err != nil {
		return fmt.Errorf("failed to find printer: %w", err)
	}
	a.device = device

	// Set auto-detach kernel driver on Linux
	if runtime.GOOS == "linux" {
		a.device.SetAutoDetach(true)
	}

	if err := a.claim(); err != nil {
		a.release()
		return err
	}

	a.isOpen = true
	a.logger.Info("Printer opened", zap.String("device", a.device.Desc.String()))
	return nil
}

func (a *USBAdapter) claim() error {
	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}

	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	a.usbConfig = cfg

	ifaceNum := printerInterface(cfg.Desc)
	if ifaceNum < 0 {
		return errors.New("no printer interface found")
	}

	iface, err := cfg.Interface(ifaceNum, 0)
	if err != nil {
		return fmt.Errorf("failed to claim interface: %w", err)
	}
	a.iface = iface

	for _, epDesc := range iface.Setting.Endpoints {
		if epDesc.Direction == gousb.EndpointDirectionOut && a.outEndpoint == nil {
			if ep, err := iface.OutEndpoint(epDesc.Number); err == nil {
				a.outEndpoint = ep
			}
		}
		if epDesc.Direction == gousb.EndpointDirectionIn && a.inEndpoint == nil {
			if ep, err := iface.InEndpoint(epDesc.Number); err == nil {
				a.inEndpoint = ep
			}
		}
	}

	if a.outEndpoint == nil {
		return errors.New("cannot find output endpoint from printer")
	}
	return nil
}

// release frees whatever claim() and findDevice() acquired.
func (a *USBAdapter) release() error {
	var errs []error

	a.outEndpoint = nil
	a.inEndpoint = nil

	if a.iface != nil {
		a.iface.Close()
		a.iface = nil
	}
	if a.usbConfig != nil {
		if err := a.usbConfig.Close(); err != nil {
			errs = append(errs, err)
		}
		a.usbConfig = nil
	}
	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}

	return errors.Join(errs...)
}

// Write sends data to the printer
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	n, err := a.outEndpoint.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}

	return n, nil
}

// Read reads data from the printer
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	if a.inEndpoint == nil {
		return 0, errors.New("input endpoint not available")
	}

	n, err := a.inEndpoint.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}

	return n, nil
}

// Close releases the printer interface and device
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return nil
	}

	a.isOpen = false
	if err := a.release(); err != nil {
		return fmt.Errorf("close errors: %w", err)
	}
	a.logger.Info("Printer released")
	return nil
}

// Shutdown closes the adapter and its USB context. The adapter cannot be reopened.
func (a *USBAdapter) Shutdown() error {
	closeErr := a.Close()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return closeErr
	}
	ctxErr := a.ctx.Close()
	a.ctx = nil
	return errors.Join(closeErr, ctxErr)
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}
