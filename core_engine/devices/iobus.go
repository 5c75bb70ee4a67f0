package devices

import (
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrUnhandledPort is returned for accesses to a port no device claims.
var ErrUnhandledPort = errors.New("unhandled I/O port")

// ErrUnsupportedSize is returned by devices that only decode byte-wide accesses.
var ErrUnsupportedSize = errors.New("unsupported I/O size")

// PioDevice defines the interface for a port I/O device.
type PioDevice interface {
	HandleIO(port uint16, direction uint8, size uint8, data []byte) error
}

// IOBus manages port I/O access to registered devices.
type IOBus struct {
	mu    sync.RWMutex
	ports map[uint16]PioDevice // Maps a port number to a device
}

// NewIOBus creates and initializes a new IOBus.
func NewIOBus() *IOBus {
	return &IOBus{
		ports: make(map[uint16]PioDevice),
	}
}

// RegisterDevice registers a device to handle I/O for a range of ports.
// The device is stored once per port in the range.
func (bus *IOBus) RegisterDevice(startPort, endPort uint16, device PioDevice) {
	if device == nil {
		log.Printf("IOBus: Warning: Attempted to register a nil device for ports 0x%x-0x%x", startPort, endPort)
		return
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	for port := startPort; port <= endPort; port++ {
		if existingDevice, ok := bus.ports[port]; ok {
			log.Printf("IOBus: Warning: Port 0x%x already registered to a device (%T). Overwriting with new device (%T).", port, existingDevice, device)
		}
		bus.ports[port] = device
		if port == 0xFFFF { // Avoid overflow if endPort is 0xFFFF
			break
		}
	}
}

// Device returns the device registered for port, or nil.
func (bus *IOBus) Device(port uint16) PioDevice {
	bus.mu.RLock()
	defer bus.mu.RUnlock()
	return bus.ports[port]
}

// HandleIO routes an I/O operation to the appropriate registered device.
func (bus *IOBus) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	device := bus.Device(port)
	if device == nil {
		return fmt.Errorf("IOBus: %s 0x%x: %w", directionString(direction), port, ErrUnhandledPort)
	}
	return device.HandleIO(port, direction, size, data)
}

func directionString(direction uint8) string {
	if direction == IODirectionIn {
		return "IN"
	}
	return "OUT"
}
