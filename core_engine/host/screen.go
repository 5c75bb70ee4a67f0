package host

import (
	"log"
	"time"

	"github.com/gdamore/tcell/v2"

	"example.com/fridgeos/core_engine/devices"
)

// DefaultRefresh is how often the screen is redrawn from guest memory.
const DefaultRefresh = 16 * time.Millisecond

// Screen shows the VGA text buffer of a board in a tcell screen and feeds
// key presses back as scancodes. Ctrl-C powers the board off.
type Screen struct {
	screen  tcell.Screen
	board   Board
	Refresh time.Duration
	Debug   bool
}

// NewScreen wraps an initialized tcell screen. The caller owns Init and
// Fini.
func NewScreen(screen tcell.Screen, board Board) *Screen {
	return &Screen{
		screen:  screen,
		board:   board,
		Refresh: DefaultRefresh,
	}
}

// Draw copies the text buffer and the hardware cursor to the terminal.
func (s *Screen) Draw() {
	cells := s.board.TextCells()
	if cells == nil {
		return
	}

	for row := 0; row < devices.VGA_TEXT_ROWS; row++ {
		for col := 0; col < devices.VGA_TEXT_COLUMNS; col++ {
			cell := cells[row*devices.VGA_TEXT_COLUMNS+col]
			s.screen.SetContent(col, row, glyph(byte(cell)), nil, cellStyle(byte(cell>>8)))
		}
	}

	if s.board.CursorHidden() {
		s.screen.HideCursor()
	} else {
		row, col := s.board.Cursor()
		s.screen.ShowCursor(col, row)
	}
	s.screen.Show()
}

// HandleEvent applies one terminal event. It returns false once the user
// asked to quit.
func (s *Screen) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyCtrlC {
			s.board.Stop()
			return false
		}
		codes := KeyScancodes(ev)
		if codes == nil {
			if s.Debug {
				log.Printf("Screen: No scancodes for key %v", ev.Name())
			}
			return true
		}
		s.board.PushScancodes(codes...)

	case *tcell.EventResize:
		s.screen.Sync()
		s.Draw()
	}
	return true
}

// Run redraws the screen and forwards input until done is closed, the
// board stops or the user quits.
func (s *Screen) Run(done <-chan struct{}) {
	refresh := s.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()

	quit := make(chan struct{})
	defer close(quit)

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := s.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	s.Draw()
	for {
		select {
		case ev := <-events:
			if !s.HandleEvent(ev) {
				return
			}
		case <-ticker.C:
			s.Draw()
		case <-done:
			s.Draw()
			return
		case <-s.board.Stopped():
			return
		}
	}
}
