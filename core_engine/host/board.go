// Package host connects a running machine to the user's terminal, either as
// a full-screen VGA view or as a raw serial line.
package host

// Board is the machine as seen by a frontend. *core_engine.Machine
// implements it.
type Board interface {
	TextCells() []uint16
	Cursor() (row, col int)
	CursorHidden() bool
	PushScancodes(codes ...byte)
	Pending() int
	Stop()
	Stopped() <-chan struct{}
}
