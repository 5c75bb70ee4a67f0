package host_test

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"example.com/fridgeos/core_engine/devices"
	"example.com/fridgeos/core_engine/host"
)

func TestTranslateByte(t *testing.T) {
	for in, want := range map[byte]byte{'\r': '\n', 0x7F: '\b', 'a': 'a', '\n': '\n'} {
		if got := host.TranslateByte(in); got != want {
			t.Errorf("TranslateByte(0x%02x) = 0x%02x, want 0x%02x", in, got, want)
		}
	}
}

func TestSerialTypesInputThenStopsAtEOF(t *testing.T) {
	board := newFakeBoard()
	board.drain = true
	s := host.NewSerial(board, strings.NewReader("hi\r\x7f~"))
	s.Settle = time.Millisecond

	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []byte{0x23, 0xA3, 0x17, 0x97, 0x1C, 0x9C, 0x0E, 0x8E}
	if got := board.typed(); !bytes.Equal(got, want) {
		t.Errorf("typed % x, want % x", got, want)
	}
	if !board.isStopped() {
		t.Error("board not stopped after end of input")
	}
}

func TestSerialHoldsInputUntilKeyboardHasRoom(t *testing.T) {
	board := newFakeBoard()
	s := host.NewSerial(board, strings.NewReader(strings.Repeat("a", 300)))
	s.Settle = time.Millisecond

	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			select {
			case <-quit:
				return
			default:
			}
			if !board.readKey() {
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := len(board.typed()); got != 600 {
		t.Errorf("typed %d scancodes, want 600", got)
	}
	if peak := board.maxQueued(); peak > devices.KEYBOARD_FIFO_SIZE {
		t.Errorf("queue reached %d scancodes, FIFO holds %d", peak, devices.KEYBOARD_FIFO_SIZE)
	}
}

func TestTypeTextGivesUpWhenBoardStops(t *testing.T) {
	board := newFakeBoard()
	result := make(chan bool, 1)
	go func() { result <- host.TypeText(board, strings.Repeat("a", 200)) }()

	time.Sleep(10 * time.Millisecond)
	board.Stop()

	select {
	case ok := <-result:
		if ok {
			t.Error("TypeText reported success on a stopped board")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("TypeText did not return after Stop")
	}
	if got := len(board.typed()); got != devices.KEYBOARD_FIFO_SIZE {
		t.Errorf("typed %d scancodes, want a full FIFO of %d", got, devices.KEYBOARD_FIFO_SIZE)
	}
}

func TestSerialCtrlCStopsBoard(t *testing.T) {
	board := newFakeBoard()
	s := host.NewSerial(board, strings.NewReader("a\x03b"))

	if err := s.Run(nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !board.isStopped() {
		t.Error("Ctrl-C did not stop the board")
	}
	if got := board.typed(); !bytes.Equal(got, []byte{0x1E, 0x9E}) {
		t.Errorf("typed % x, want only 'a'", got)
	}
}

func TestSerialReturnsWhenDone(t *testing.T) {
	board := newFakeBoard()
	r, w := io.Pipe()
	defer w.Close()

	done := make(chan struct{})
	result := make(chan error, 1)
	go func() { result <- host.NewSerial(board, r).Run(done) }()
	close(done)

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after done was closed")
	}
	if board.isStopped() {
		t.Error("Run must leave the board running when done closes")
	}
}

func TestSerialReportsReadError(t *testing.T) {
	board := newFakeBoard()
	board.drain = true
	r, w := io.Pipe()
	w.CloseWithError(errors.New("line dropped"))

	s := host.NewSerial(board, r)
	s.Settle = time.Millisecond
	if err := s.Run(nil); err == nil || !strings.Contains(err.Error(), "line dropped") {
		t.Errorf("Run error = %v, want the read error", err)
	}
}

func TestCRLFWriter(t *testing.T) {
	var out bytes.Buffer
	w := host.NewCRLFWriter(&out)

	n, err := w.Write([]byte("a\nb\n\nc"))
	if err != nil || n != 6 {
		t.Fatalf("Write = (%d, %v), want (6, nil)", n, err)
	}
	if out.String() != "a\r\nb\r\n\r\nc" {
		t.Errorf("output %q", out.String())
	}
}
