package host

import (
	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/encoding/charmap"
)

// VGA palette order: black, blue, green, cyan, red, magenta, brown, light
// grey, then the bright variants.
var vgaColors = [16]tcell.Color{
	tcell.ColorBlack,
	tcell.ColorNavy,
	tcell.ColorGreen,
	tcell.ColorTeal,
	tcell.ColorMaroon,
	tcell.ColorPurple,
	tcell.ColorOlive,
	tcell.ColorSilver,
	tcell.ColorGray,
	tcell.ColorBlue,
	tcell.ColorLime,
	tcell.ColorAqua,
	tcell.ColorRed,
	tcell.ColorFuchsia,
	tcell.ColorYellow,
	tcell.ColorWhite,
}

// Code page 437 pictures for the control range.
var lowGlyphs = []rune(" ☺☻♥♦♣♠•◘○◙♂♀♪♫☼►◄↕‼¶§▬↨↑↓→←∟↔▲▼")

// cellStyle returns the tcell style for a VGA attribute byte.
func cellStyle(attr byte) tcell.Style {
	return tcell.StyleDefault.
		Foreground(vgaColors[attr&0x0F]).
		Background(vgaColors[attr>>4&0x0F])
}

// glyph returns the rune a VGA adapter would draw for ch.
func glyph(ch byte) rune {
	switch {
	case int(ch) < len(lowGlyphs):
		return lowGlyphs[ch]
	case ch == 0x7F:
		return '⌂'
	case ch < 0x80:
		return rune(ch)
	default:
		return charmap.CodePage437.DecodeByte(ch)
	}
}
