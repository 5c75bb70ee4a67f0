package devices

// US layout, scancode set 1. Only unshifted legends are listed; upper case
// letters are produced by wrapping the letter in a left shift press.
var makeCodes = map[byte]byte{
	0x1B: SCANCODE_ESCAPE,
	'1':  0x02,
	'2':  0x03,
	'3':  0x04,
	'4':  0x05,
	'5':  0x06,
	'6':  0x07,
	'7':  0x08,
	'8':  0x09,
	'9':  0x0A,
	'0':  0x0B,
	'-':  0x0C,
	'=':  0x0D,
	'\b': SCANCODE_BACKSPACE,
	'\t': SCANCODE_TAB,
	'q':  0x10,
	'w':  0x11,
	'e':  0x12,
	'r':  0x13,
	't':  0x14,
	'y':  0x15,
	'u':  0x16,
	'i':  0x17,
	'o':  0x18,
	'p':  0x19,
	'[':  0x1A,
	']':  0x1B,
	'\n': SCANCODE_ENTER,
	'\r': SCANCODE_ENTER,
	'a':  0x1E,
	's':  0x1F,
	'd':  0x20,
	'f':  0x21,
	'g':  0x22,
	'h':  0x23,
	'j':  0x24,
	'k':  0x25,
	'l':  0x26,
	';':  0x27,
	'\'': 0x28,
	'`':  0x29,
	'\\': 0x2B,
	'z':  0x2C,
	'x':  0x2D,
	'c':  0x2E,
	'v':  0x2F,
	'b':  0x30,
	'n':  0x31,
	'm':  0x32,
	',':  0x33,
	'.':  0x34,
	'/':  0x35,
	' ':  SCANCODE_SPACE,
	'+':  0x4E, // Keypad plus
}

// ScancodesForByte returns the make and break sequence that types ch. The
// second result is false when the layout has no key for ch.
func ScancodesForByte(ch byte) ([]byte, bool) {
	if ch >= 'A' && ch <= 'Z' {
		code := makeCodes[ch-'A'+'a']
		return []byte{
			SCANCODE_LEFT_SHIFT,
			code,
			code | KEYBOARD_BREAK_BIT,
			SCANCODE_LEFT_SHIFT | KEYBOARD_BREAK_BIT,
		}, true
	}

	code, ok := makeCodes[ch]
	if !ok {
		return nil, false
	}
	return []byte{code, code | KEYBOARD_BREAK_BIT}, true
}

// ScancodesForText encodes text key by key. Bytes with no key are skipped.
func ScancodesForText(text string) []byte {
	out := make([]byte, 0, len(text)*2)
	for i := 0; i < len(text); i++ {
		if codes, ok := ScancodesForByte(text[i]); ok {
			out = append(out, codes...)
		}
	}
	return out
}
