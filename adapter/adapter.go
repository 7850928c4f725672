// Package adapter provides raw byte transports to directly attached printers.
package adapter

// Adapter defines the interface for printer communication adapters
type Adapter interface {
	// Open acquires the printer for exclusive use
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads status data from the printer
	Read(buf []byte) (int, error)

	// Close releases the printer so it can be opened again
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}
