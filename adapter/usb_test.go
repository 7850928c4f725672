package adapter

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAnyPrinter(t *testing.T) *USBAdapter {
	t.Helper()

	a := NewUSBAdapter(USBConfig{})
	t.Cleanup(func() { a.Shutdown() })
	if err := a.Open(); err != nil {
		t.Skip("No USB printer found, skipping test")
	}
	return a
}

func TestNewUSBAdapter(t *testing.T) {
	a := NewUSBAdapter(USBConfig{VendorID: 0x04b8, ProductID: 0x0202})
	defer a.Shutdown()

	assert.NotNil(t, a.ctx)
	assert.NotNil(t, a.logger)
	assert.False(t, a.IsOpen())
}

func TestOpenUnknownVIDPID(t *testing.T) {
	a := NewUSBAdapter(USBConfig{VendorID: 0xFFFF, ProductID: 0xFFFF})
	defer a.Shutdown()

	err := a.Open()
	assert.Error(t, err)
	assert.False(t, a.IsOpen())
}

func TestOpenUnknownSerial(t *testing.T) {
	a := NewUSBAdapter(USBConfig{Serial: "INVALID_SERIAL_NUMBER"})
	defer a.Shutdown()

	err := a.Open()
	assert.Error(t, err)
	assert.False(t, a.IsOpen())
}

func TestWriteReadWithoutOpen(t *testing.T) {
	a := NewUSBAdapter(USBConfig{})
	defer a.Shutdown()

	_, err := a.Write([]byte("test"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	_, err = a.Read(make([]byte, 64))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not open")

	// closing a never-opened adapter is a no-op
	assert.NoError(t, a.Close())
}

func TestFindPrinters(t *testing.T) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	printers := FindPrinters(ctx)
	if len(printers) == 0 {
		t.Skip("No USB printers found")
	}

	t.Logf("Found %d printer(s)", len(printers))
	for _, printer := range printers {
		assert.True(t, IsPrinter(printer))
		printer.Close()
	}
}

func TestIsPrinterNil(t *testing.T) {
	assert.False(t, IsPrinter(nil))
}

func TestPrinterInterface(t *testing.T) {
	desc := gousb.ConfigDesc{
		Interfaces: []gousb.InterfaceDesc{
			{Number: 0, AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassHID}}},
			{Number: 1, AltSettings: []gousb.InterfaceSetting{{Class: gousb.ClassPrinter}}},
		},
	}
	assert.Equal(t, 1, printerInterface(desc))
	assert.Equal(t, -1, printerInterface(gousb.ConfigDesc{}))
}

func TestUSBAdapterOpenClose(t *testing.T) {
	a := openAnyPrinter(t)
	assert.True(t, a.IsOpen())

	// Test double open
	err := a.Open()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already open")

	require.NoError(t, a.Close())
	assert.False(t, a.IsOpen())

	// Test double close (should not error)
	assert.NoError(t, a.Close())

	// the same adapter can claim the printer again
	require.NoError(t, a.Open())
	assert.True(t, a.IsOpen())
}

func TestUSBAdapterWrite(t *testing.T) {
	a := openAnyPrinter(t)

	testData := []byte{0x1B, 0x40} // ESC @ (Initialize printer)
	n, err := a.Write(testData)
	assert.NoError(t, err)
	assert.Equal(t, len(testData), n)
}
