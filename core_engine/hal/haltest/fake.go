// Package haltest provides a queue-backed fake of hal.Hardware for driver
// tests.
package haltest

import (
	"fmt"
	"strings"
)

const (
	// Columns and Rows match the VGA text mode the console drives.
	Columns = 80
	Rows    = 25

	keyboardDataPort   uint16 = 0x60
	keyboardStatusPort uint16 = 0x64

	// DefaultMaxIdlePolls bounds how many empty status reads the fake
	// tolerates before it gives up on a test that ran out of input.
	DefaultMaxIdlePolls = 100000
)

// PortWrite records a single OUT issued by a driver.
type PortWrite struct {
	Port  uint16
	Value byte
}

// Hardware is a scripted stand-in for the PC board. Scancodes queued with
// Type are served through the keyboard status/data ports; every other port
// reads back the value set with SetPort (zero by default).
//
// Reading the status port more than MaxIdlePolls times in a row with an
// empty queue panics, so a driver blocked in its poll loop fails the test
// instead of hanging it.
type Hardware struct {
	Cells        []uint16
	Writes       []PortWrite
	MaxIdlePolls int

	scancodes []byte
	ports     map[uint16]byte
	idlePolls int
}

// New returns a fake with an 80x25 cell buffer of zeroed (uninitialized)
// cells and an empty keyboard queue.
func New() *Hardware {
	return &Hardware{
		Cells:        make([]uint16, Columns*Rows),
		MaxIdlePolls: DefaultMaxIdlePolls,
		ports:        make(map[uint16]byte),
	}
}

// Type appends raw scancodes to the keyboard queue.
func (h *Hardware) Type(codes ...byte) {
	h.scancodes = append(h.scancodes, codes...)
}

// Pending returns the number of scancodes not yet read by the driver.
func (h *Hardware) Pending() int {
	return len(h.scancodes)
}

// SetPort sets the value returned by reads of a port other than the
// keyboard ports.
func (h *Hardware) SetPort(port uint16, value byte) {
	h.ports[port] = value
}

// ReadPort implements hal.Hardware.
func (h *Hardware) ReadPort(port uint16) byte {
	switch port {
	case keyboardStatusPort:
		if len(h.scancodes) > 0 {
			h.idlePolls = 0
			return 0x01
		}
		h.idlePolls++
		if h.idlePolls > h.MaxIdlePolls {
			panic(fmt.Sprintf("haltest: keyboard input exhausted after %d idle polls", h.MaxIdlePolls))
		}
		return 0x00
	case keyboardDataPort:
		if len(h.scancodes) == 0 {
			return 0x00
		}
		code := h.scancodes[0]
		h.scancodes = h.scancodes[1:]
		return code
	}
	return h.ports[port]
}

// WritePort implements hal.Hardware.
func (h *Hardware) WritePort(port uint16, value byte) {
	h.Writes = append(h.Writes, PortWrite{Port: port, Value: value})
}

// ReadCell implements hal.Hardware. Out of range indexes read as zero.
func (h *Hardware) ReadCell(index int) uint16 {
	if index < 0 || index >= len(h.Cells) {
		return 0
	}
	return h.Cells[index]
}

// WriteCell implements hal.Hardware. Out of range indexes are ignored.
func (h *Hardware) WriteCell(index int, value uint16) {
	if index < 0 || index >= len(h.Cells) {
		return
	}
	h.Cells[index] = value
}

// Cell splits the cell at (row, col) into its character and attribute bytes.
func (h *Hardware) Cell(row, col int) (ch byte, attr byte) {
	v := h.ReadCell(row*Columns + col)
	return byte(v), byte(v >> 8)
}

// Row returns the characters of one grid row.
func (h *Hardware) Row(row int) string {
	var sb strings.Builder
	for col := 0; col < Columns; col++ {
		ch, _ := h.Cell(row, col)
		sb.WriteByte(ch)
	}
	return sb.String()
}

// Screen returns all rows with trailing spaces trimmed, joined by newlines.
func (h *Hardware) Screen() string {
	lines := make([]string, Rows)
	for row := 0; row < Rows; row++ {
		lines[row] = strings.TrimRight(h.Row(row), " ")
	}
	return strings.Join(lines, "\n")
}

// PortOutput returns the bytes written to port, in order.
func (h *Hardware) PortOutput(port uint16) []byte {
	var out []byte
	for _, w := range h.Writes {
		if w.Port == port {
			out = append(out, w.Value)
		}
	}
	return out
}

// ResetWrites discards the recorded port writes.
func (h *Hardware) ResetWrites() {
	h.Writes = nil
}
