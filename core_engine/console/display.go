// Package console implements the kernel's text console: a VGA text-mode
// display surface and a polled PS/2 keyboard driver.
package console

import (
	"strings"

	"example.com/fridgeos/core_engine/hal"
)

const (
	Width  = 80
	Height = 25

	// Default is white text on blue background.
	DefaultFG byte = 0x0F
	DefaultBG byte = 0x01
)

// Color directive embedded in printed text: {directivePrefix,
// directiveMarker, fg, bg}.
const (
	directivePrefix byte = 0x02
	directiveMarker byte = 0x01
)

// VGA CRTC registers holding the hardware cursor location.
const (
	crtcIndexPort  uint16 = 0x3D4
	crtcDataPort   uint16 = 0x3D5
	crtcCursorHigh byte   = 0x0E
	crtcCursorLow  byte   = 0x0F
)

// COM1, used to mirror console output.
const (
	com1DataPort       uint16 = 0x3F8
	com1LineStatusPort uint16 = 0x3FD
	lineStatusTHRE     byte   = 0x20
	mirrorPollLimit           = 64
)

// MakeCell packs a character and a color pair into a text buffer cell. The
// attribute byte is (bg << 4) | (fg & 0x0F); background bits above the low
// nibble are shifted out.
func MakeCell(ch, fg, bg byte) uint16 {
	attr := bg<<4 | fg&0x0F
	return uint16(ch) | uint16(attr)<<8
}

// SplitCell is the inverse of MakeCell.
func SplitCell(cell uint16) (ch, fg, bg byte) {
	attr := byte(cell >> 8)
	return byte(cell), attr & 0x0F, attr >> 4
}

// Display owns the text buffer and the cursor. It is not safe for
// concurrent use; the kernel has a single thread of execution.
type Display struct {
	hw     hal.Hardware
	row    int
	col    int
	mirror bool
}

// NewDisplay returns a display writing through hw. The buffer is left as
// is until the first Clear.
func NewDisplay(hw hal.Hardware) *Display {
	return &Display{hw: hw}
}

// Cursor returns the current (row, column).
func (d *Display) Cursor() (row, col int) {
	return d.row, d.col
}

// SetMirror enables or disables copying every written byte to COM1.
func (d *Display) SetMirror(on bool) {
	d.mirror = on
}

// Clear fills the grid with blanks in the default colors and homes the
// cursor.
func (d *Display) Clear() {
	blank := MakeCell(' ', DefaultFG, DefaultBG)
	for i := 0; i < Width*Height; i++ {
		d.hw.WriteCell(i, blank)
	}
	d.row = 0
	d.col = 0
	d.updateCursor()
}

// PutCh writes ch in the default colors.
func (d *Display) PutCh(ch byte) {
	d.PutChar(ch, DefaultFG, DefaultBG)
}

// PutChar writes one character at the cursor and advances it. '\n', '\r'
// and '\b' are interpreted; everything else is stored verbatim.
func (d *Display) PutChar(ch, fg, bg byte) {
	d.putChar(ch, fg, bg)
	if d.mirror {
		if ch == '\b' {
			// A terminal only moves left on BS; erase the cell as the screen does.
			d.mirrorByte('\b')
			d.mirrorByte(' ')
		}
		d.mirrorByte(ch)
	}
	d.updateCursor()
}

// Print writes text with PutChar. Colors start at the default pair and are
// switched by embedded directives. Text ends at the first NUL byte.
//
// A directive cut short by the end of the text is not consumed: its bytes
// are printed as ordinary characters.
func (d *Display) Print(text string) {
	if end := strings.IndexByte(text, 0); end >= 0 {
		text = text[:end]
	}

	fg, bg := DefaultFG, DefaultBG
	for i := 0; i < len(text); i++ {
		if text[i] == directivePrefix && i+3 < len(text) && text[i+1] == directiveMarker {
			fg, bg = text[i+2], text[i+3]
			i += 3
			continue
		}
		d.PutChar(text[i], fg, bg)
	}
}

func (d *Display) putChar(ch, fg, bg byte) {
	switch ch {
	case '\n':
		d.col = 0
		d.row++
		d.scrollIfNeeded()
		return
	case '\r':
		d.col = 0
		return
	case '\b':
		if d.col > 0 {
			d.col--
		} else if d.row > 0 {
			d.row--
			d.col = Width - 1
		}
		d.hw.WriteCell(d.row*Width+d.col, MakeCell(' ', fg, bg))
		return
	}

	d.hw.WriteCell(d.row*Width+d.col, MakeCell(ch, fg, bg))

	d.col++
	if d.col >= Width {
		d.col = 0
		d.row++
		d.scrollIfNeeded()
	}
}

func (d *Display) scrollIfNeeded() {
	if d.row < Height {
		return
	}

	for r := 1; r < Height; r++ {
		for c := 0; c < Width; c++ {
			d.hw.WriteCell((r-1)*Width+c, d.hw.ReadCell(r*Width+c))
		}
	}

	blank := MakeCell(' ', DefaultFG, DefaultBG)
	for c := 0; c < Width; c++ {
		d.hw.WriteCell((Height-1)*Width+c, blank)
	}

	d.row = Height - 1
}

func (d *Display) updateCursor() {
	pos := uint16(d.row*Width + d.col)

	d.hw.WritePort(crtcIndexPort, crtcCursorLow)
	d.hw.WritePort(crtcDataPort, byte(pos&0xFF))

	d.hw.WritePort(crtcIndexPort, crtcCursorHigh)
	d.hw.WritePort(crtcDataPort, byte(pos>>8))
}

// mirrorByte hands ch to the UART once its transmit holding register is
// empty. The byte is dropped if the UART never reports ready.
func (d *Display) mirrorByte(ch byte) {
	for i := 0; i < mirrorPollLimit; i++ {
		if d.hw.ReadPort(com1LineStatusPort)&lineStatusTHRE != 0 {
			d.hw.WritePort(com1DataPort, ch)
			return
		}
	}
}
