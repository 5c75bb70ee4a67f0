package devices

import (
	"fmt"
	"sync"
)

// VGADevice models the CRT controller index/data pair. Only the register
// file is kept; the text buffer itself lives in guest memory at
// VGA_TEXT_BASE.
type VGADevice struct {
	lock      sync.Mutex
	index     byte
	registers [VGA_CRTC_REGISTERS]byte
}

// NewVGADevice returns a CRTC with the cursor at the top-left cell.
func NewVGADevice() *VGADevice {
	v := &VGADevice{}
	v.registers[VGA_CRTC_CURSOR_START] = 0x0D
	v.registers[VGA_CRTC_CURSOR_END] = 0x0E
	return v
}

// CursorOffset returns the cell offset latched in the cursor location
// registers.
func (v *VGADevice) CursorOffset() int {
	v.lock.Lock()
	defer v.lock.Unlock()
	return int(v.registers[VGA_CRTC_CURSOR_HIGH])<<8 | int(v.registers[VGA_CRTC_CURSOR_LOW])
}

// Cursor returns the cursor position as a row and column. Offsets past the
// end of the screen are clamped to the last cell.
func (v *VGADevice) Cursor() (row, col int) {
	off := v.CursorOffset()
	if off >= VGA_TEXT_CELLS {
		off = VGA_TEXT_CELLS - 1
	}
	return off / VGA_TEXT_COLUMNS, off % VGA_TEXT_COLUMNS
}

// CursorHidden reports whether the cursor disable bit is set.
func (v *VGADevice) CursorHidden() bool {
	v.lock.Lock()
	defer v.lock.Unlock()
	return v.registers[VGA_CRTC_CURSOR_START]&VGA_CURSOR_DISABLE != 0
}

// HandleIO processes I/O operations on the CRTC index and data ports.
func (v *VGADevice) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	if size != 1 {
		return fmt.Errorf("VGADevice: %d-byte access to port 0x%x: %w", size, port, ErrUnsupportedSize)
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	switch port {
	case VGA_CRTC_INDEX_PORT:
		if direction == IODirectionOut {
			v.index = data[0]
		} else {
			data[0] = v.index
		}
	case VGA_CRTC_DATA_PORT:
		if int(v.index) >= len(v.registers) {
			// Unbacked registers read as zero and swallow writes.
			if direction == IODirectionIn {
				data[0] = 0x00
			}
			return nil
		}
		if direction == IODirectionOut {
			v.registers[v.index] = data[0]
		} else {
			data[0] = v.registers[v.index]
		}
	default:
		return fmt.Errorf("VGADevice: port 0x%x: %w", port, ErrUnhandledPort)
	}
	return nil
}
