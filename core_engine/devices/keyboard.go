package devices

import (
	"fmt"
	"sync"
)

// KeyboardDevice implements the guest-visible half of a PS/2 style keyboard
// controller. Frontends push scancode set 1 bytes into its FIFO; the guest
// polls the status port and pops them from the data port.
type KeyboardDevice struct {
	lock   sync.Mutex
	buffer []byte        // Pending scancodes, oldest first
	notify chan struct{} // Signalled whenever scancodes are queued
	last   byte          // Last byte returned on the data port
}

// NewKeyboardDevice creates a keyboard controller with an empty FIFO.
func NewKeyboardDevice() *KeyboardDevice {
	return &KeyboardDevice{
		notify: make(chan struct{}, 1),
	}
}

// PushScancodes queues raw scancodes for the guest. When the FIFO is full
// the oldest entries are discarded.
func (k *KeyboardDevice) PushScancodes(codes ...byte) {
	if len(codes) == 0 {
		return
	}

	k.lock.Lock()
	k.buffer = append(k.buffer, codes...)
	if over := len(k.buffer) - KEYBOARD_FIFO_SIZE; over > 0 {
		k.buffer = k.buffer[over:]
	}
	k.lock.Unlock()

	select {
	case k.notify <- struct{}{}:
	default:
	}
}

// Pending reports how many scancodes are waiting to be read.
func (k *KeyboardDevice) Pending() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	return len(k.buffer)
}

// Notify returns a channel that receives a value after scancodes are pushed.
// Sends are coalesced, so a receive means "check Pending again".
func (k *KeyboardDevice) Notify() <-chan struct{} {
	return k.notify
}

// HandleIO processes I/O operations for the keyboard device.
// It responds to reads on port 0x64 (status) and 0x60 (data).
func (k *KeyboardDevice) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	if size != 1 {
		return fmt.Errorf("KeyboardDevice: %d-byte access to port 0x%x: %w", size, port, ErrUnsupportedSize)
	}

	k.lock.Lock()
	defer k.lock.Unlock()

	if direction == IODirectionOut {
		// Controller and device commands (LEDs, typematic rate) are accepted
		// and ignored.
		return nil
	}

	switch port {
	case KEYBOARD_PORT_STATUS:
		if len(k.buffer) > 0 {
			data[0] = KEYBOARD_STATUS_OBF
		} else {
			data[0] = 0x00
		}

	case KEYBOARD_PORT_DATA:
		// With nothing queued the controller repeats its last output byte.
		if len(k.buffer) > 0 {
			k.last = k.buffer[0]
			k.buffer = k.buffer[1:]
		}
		data[0] = k.last

	default:
		return fmt.Errorf("KeyboardDevice: IN 0x%x: %w", port, ErrUnhandledPort)
	}

	return nil
}
