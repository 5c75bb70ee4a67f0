package host

import (
	"github.com/gdamore/tcell/v2"

	"example.com/fridgeos/core_engine/devices"
)

// KeyScancodes translates a terminal key event into the scancodes a PC
// keyboard would send for it. Keys the layout lacks yield nil.
func KeyScancodes(ev *tcell.EventKey) []byte {
	var ch byte
	switch ev.Key() {
	case tcell.KeyRune:
		r := ev.Rune()
		if r <= 0 || r >= 0x80 {
			return nil
		}
		ch = byte(r)
	case tcell.KeyEnter:
		ch = '\n'
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		ch = '\b'
	case tcell.KeyTab:
		ch = '\t'
	case tcell.KeyEscape:
		ch = 0x1B
	default:
		return nil
	}

	codes, ok := devices.ScancodesForByte(ch)
	if !ok {
		return nil
	}
	return codes
}
