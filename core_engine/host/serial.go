package host

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"example.com/fridgeos/core_engine/devices"
)

// DefaultSettle is how long the serial frontend lets the guest run after
// the input ends and the keyboard has drained.
const DefaultSettle = 200 * time.Millisecond

const ctrlC = 0x03

// Serial drives a board from a byte stream: every input byte is typed on
// the keyboard, and the guest's COM1 output is expected to reach the user
// through the machine's serial writer.
type Serial struct {
	board  Board
	in     io.Reader
	Settle time.Duration
	Debug  bool
}

// NewSerial returns a frontend reading keystrokes from in.
func NewSerial(board Board, in io.Reader) *Serial {
	return &Serial{
		board:  board,
		in:     in,
		Settle: DefaultSettle,
	}
}

// TranslateByte maps a byte from a raw terminal onto the keyboard: CR
// becomes Enter and DEL becomes Backspace.
func TranslateByte(b byte) byte {
	switch b {
	case '\r':
		return '\n'
	case 0x7F:
		return '\b'
	}
	return b
}

// Run forwards input until done is closed or the board stops. Ctrl-C stops
// the board. When in is a terminal it is switched to raw mode for the
// duration. At end of input Run waits for the guest to read every queued
// key, lets it settle and then stops the board.
func (s *Serial) Run(done <-chan struct{}) error {
	if f, ok := s.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		oldState, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("failed to set raw mode: %w", err)
		}
		defer term.Restore(int(f.Fd()), oldState)
	}

	eof := make(chan error, 1)
	go s.pump(eof)

	var readErr error
	select {
	case <-done:
		return nil
	case <-s.board.Stopped():
		return nil
	case readErr = <-eof:
	}

	s.drain(done)
	s.board.Stop()
	return readErr
}

func (s *Serial) pump(eof chan<- error) {
	buf := make([]byte, 64)
	for {
		n, err := s.in.Read(buf)
		for _, b := range buf[:n] {
			if b == ctrlC {
				s.board.Stop()
				eof <- nil
				return
			}
			codes, ok := devices.ScancodesForByte(TranslateByte(b))
			if !ok {
				if s.Debug {
					log.Printf("Serial: No key for byte 0x%02x", b)
				}
				continue
			}
			if !pushKeys(s.board, codes) {
				eof <- nil
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = nil
			}
			eof <- err
			return
		}
	}
}

// pushKeys queues codes once the keyboard FIFO has room for all of them, so
// input faster than the guest reads it is held back instead of dropped. It
// returns false if the board stops first.
func pushKeys(board Board, codes []byte) bool {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for board.Pending()+len(codes) > devices.KEYBOARD_FIFO_SIZE {
		select {
		case <-board.Stopped():
			return false
		case <-tick.C:
		}
	}
	board.PushScancodes(codes...)
	return true
}

// TypeText types text on the board's keyboard at the pace the guest reads
// it. Bytes with no key are skipped. It returns false if the board stopped
// before every key was queued.
func TypeText(board Board, text string) bool {
	for i := 0; i < len(text); i++ {
		codes, ok := devices.ScancodesForByte(text[i])
		if !ok {
			continue
		}
		if !pushKeys(board, codes) {
			return false
		}
	}
	return true
}

func (s *Serial) drain(done <-chan struct{}) {
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for s.board.Pending() > 0 {
		select {
		case <-done:
			return
		case <-s.board.Stopped():
			return
		case <-tick.C:
		}
	}

	settle := time.NewTimer(s.Settle)
	defer settle.Stop()
	select {
	case <-done:
	case <-s.board.Stopped():
	case <-settle.C:
	}
}

// CRLFWriter expands "\n" into "\r\n" for terminals in raw mode.
type CRLFWriter struct {
	w io.Writer
}

func NewCRLFWriter(w io.Writer) *CRLFWriter {
	return &CRLFWriter{w: w}
}

func (c *CRLFWriter) Write(p []byte) (int, error) {
	start := 0
	for i, b := range p {
		if b != '\n' {
			continue
		}
		if _, err := c.w.Write(p[start:i]); err != nil {
			return start, err
		}
		if _, err := c.w.Write([]byte("\r\n")); err != nil {
			return i, err
		}
		start = i + 1
	}
	if _, err := c.w.Write(p[start:]); err != nil {
		return start, err
	}
	return len(p), nil
}
