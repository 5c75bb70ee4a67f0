package console

import "example.com/fridgeos/core_engine/hal"

const (
	keyboardDataPort   uint16 = 0x60
	keyboardStatusPort uint16 = 0x64

	outputBufferFull byte = 0x01
	breakCodeMask    byte = 0x80

	leftShiftScancode  byte = 0x2A
	rightShiftScancode byte = 0x36
	capsLockScancode   byte = 0x3A
)

// Modifiers is the keyboard latch state. Shift follows the shift keys while
// they are held; CapsLock toggles on every caps lock press.
type Modifiers struct {
	Shift    bool
	CapsLock bool
}

// Decode applies one raw scancode to mods. It returns the updated latches
// and the produced character, or NoKey for modifier keys, key releases and
// unmapped codes.
func Decode(mods Modifiers, raw byte) (Modifiers, byte) {
	release := raw&breakCodeMask != 0
	code := raw &^ breakCodeMask

	switch code {
	case leftShiftScancode, rightShiftScancode:
		mods.Shift = !release
		return mods, NoKey
	case capsLockScancode:
		if !release {
			mods.CapsLock = !mods.CapsLock
		}
		return mods, NoKey
	}

	if release {
		return mods, NoKey
	}

	ch := lookupScancode(code)
	if ch >= 'a' && ch <= 'z' && mods.Shift != mods.CapsLock {
		ch = ch - 'a' + 'A'
	}
	return mods, ch
}

// Keyboard is the polled PS/2 keyboard driver. Line editing echoes through
// the display it was built with.
type Keyboard struct {
	hw   hal.Hardware
	echo *Display
	mods Modifiers
}

// NewKeyboard returns a driver with both latches released.
func NewKeyboard(hw hal.Hardware, echo *Display) *Keyboard {
	return &Keyboard{hw: hw, echo: echo}
}

// Modifiers returns the current latch state.
func (k *Keyboard) Modifiers() Modifiers {
	return k.mods
}

// GetChar spins on the controller status port until a key press decodes to
// a character and returns it. There is no timeout.
func (k *Keyboard) GetChar() byte {
	for {
		if k.hw.ReadPort(keyboardStatusPort)&outputBufferFull == 0 {
			continue
		}

		var ch byte
		k.mods, ch = Decode(k.mods, k.hw.ReadPort(keyboardDataPort))
		if ch != NoKey {
			return ch
		}
	}
}

// ReadLine reads one line into buf with backspace editing and echo. The
// line is terminated by '\n' or '\r', which is not stored or echoed; a NUL
// is written after the last character. At most len(buf)-1 characters are
// kept and further input is dropped without echo. ReadLine returns the line
// length. An empty buf reads nothing.
func (k *Keyboard) ReadLine(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}

	n := 0
	for {
		ch := k.GetChar()
		switch ch {
		case '\n', '\r':
			buf[n] = 0
			return n
		case '\b':
			if n > 0 {
				n--
				k.echo.PutCh('\b')
			}
			continue
		}

		if n < len(buf)-1 {
			buf[n] = ch
			n++
			k.echo.PutCh(ch)
		}
	}
}
