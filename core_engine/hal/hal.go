// Package hal defines the hardware-access surface the kernel drivers are
// written against.
//
// Drivers never touch ports or device memory directly. They receive a
// Hardware value at construction time, which is either the hosted PC board
// (core_engine.Machine) or a scripted fake (haltest.Hardware).
package hal

// Hardware is the narrow capability set a console driver needs: byte-wide
// port I/O and 16-bit access to the text-mode cell buffer.
type Hardware interface {
	// ReadPort performs an IN of one byte from the given I/O port.
	ReadPort(port uint16) byte
	// WritePort performs an OUT of one byte to the given I/O port.
	WritePort(port uint16, value byte)
	// ReadCell returns the cell at index (row*width+column) of the
	// memory-mapped text buffer.
	ReadCell(index int) uint16
	// WriteCell stores a cell at index (row*width+column) of the
	// memory-mapped text buffer.
	WriteCell(index int, value uint16)
}
