package host_test

import (
	"sync"

	"example.com/fridgeos/core_engine/devices"
)

// fakeBoard is a Board whose keyboard is drained by the test, not a guest.
type fakeBoard struct {
	mu        sync.Mutex
	cells     []uint16
	row, col  int
	hidden    bool
	scancodes []byte
	head      int
	peak      int
	drain     bool
	stopOnce  sync.Once
	stopped   chan struct{}
}

func newFakeBoard() *fakeBoard {
	b := &fakeBoard{
		cells:   make([]uint16, devices.VGA_TEXT_CELLS),
		stopped: make(chan struct{}),
	}
	for i := range b.cells {
		b.cells[i] = 0x1F20
	}
	return b
}

func (b *fakeBoard) put(row, col int, text string, attr byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < len(text); i++ {
		b.cells[row*devices.VGA_TEXT_COLUMNS+col+i] = uint16(attr)<<8 | uint16(text[i])
	}
}

func (b *fakeBoard) TextCells() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uint16(nil), b.cells...)
}

func (b *fakeBoard) Cursor() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.row, b.col
}

func (b *fakeBoard) CursorHidden() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hidden
}

func (b *fakeBoard) PushScancodes(codes ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scancodes = append(b.scancodes, codes...)
	if n := len(b.scancodes) - b.head; n > b.peak {
		b.peak = n
	}
}

// readKey consumes one queued scancode the way a guest would.
func (b *fakeBoard) readKey() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.head == len(b.scancodes) {
		return false
	}
	b.head++
	return true
}

// maxQueued returns the longest the unread queue has been.
func (b *fakeBoard) maxQueued() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.peak
}

// Pending reports the queue length, or zero once drain is set, which
// stands in for a guest that has read everything.
func (b *fakeBoard) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drain {
		return 0
	}
	return len(b.scancodes) - b.head
}

func (b *fakeBoard) Stop() {
	b.stopOnce.Do(func() { close(b.stopped) })
}

func (b *fakeBoard) Stopped() <-chan struct{} {
	return b.stopped
}

func (b *fakeBoard) isStopped() bool {
	select {
	case <-b.stopped:
		return true
	default:
		return false
	}
}

func (b *fakeBoard) typed() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.scancodes...)
}
