package console

import "example.com/fridgeos/core_engine/hal"

// Console routes writes to the display and reads to the keyboard.
type Console struct {
	display  *Display
	keyboard *Keyboard
}

// New builds a console over hw. Call Clear before relying on the buffer
// contents.
func New(hw hal.Hardware) *Console {
	d := NewDisplay(hw)
	return &Console{
		display:  d,
		keyboard: NewKeyboard(hw, d),
	}
}

// Display returns the screen half of the console.
func (c *Console) Display() *Display { return c.display }

// Keyboard returns the input half of the console.
func (c *Console) Keyboard() *Keyboard { return c.keyboard }

// Clear blanks the screen and homes the cursor.
func (c *Console) Clear() { c.display.Clear() }

// PutChar writes ch in the given colors. See Display.PutChar.
func (c *Console) PutChar(ch, fg, bg byte) { c.display.PutChar(ch, fg, bg) }

// PutCh writes ch in the default colors.
func (c *Console) PutCh(ch byte) { c.display.PutCh(ch) }

// Print writes NUL-terminated text, honoring color directives.
func (c *Console) Print(text string) { c.display.Print(text) }

// GetChar blocks until a key produces a character and returns it.
func (c *Console) GetChar() byte { return c.keyboard.GetChar() }

// ReadLine reads an edited line into buf and returns its length. See
// Keyboard.ReadLine.
func (c *Console) ReadLine(buf []byte) int { return c.keyboard.ReadLine(buf) }

// ReadString reads a line of at most limit-1 characters and returns it.
func (c *Console) ReadString(limit int) string {
	if limit <= 0 {
		return ""
	}
	buf := make([]byte, limit)
	n := c.keyboard.ReadLine(buf)
	return string(buf[:n])
}
