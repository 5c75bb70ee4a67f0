package core_engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"example.com/fridgeos/core_engine/devices"
)

const (
	DefaultMemorySize uint64 = 1 << 20 // Covers the text buffer at 0xB8000
	DefaultIdlePoll          = 2 * time.Millisecond
)

// ErrMachineStopped is returned for accesses after Stop.
var ErrMachineStopped = errors.New("machine stopped")

// ErrBadAddress is returned for memory accesses outside guest memory.
var ErrBadAddress = errors.New("address outside guest memory")

// Config holds the construction parameters of a Machine. Zero fields take
// their defaults.
type Config struct {
	MemorySize   uint64        // Bytes of guest memory
	IdlePoll     time.Duration // Longest wait on an empty keyboard status read
	SerialOutput io.Writer     // Receives COM1 output; nil discards it
	Debug        bool          // Log every port and memory access
}

// Machine is a hosted PC: guest memory holding the VGA text buffer plus the
// keyboard controller, COM1 and the CRT controller on an I/O bus. It
// implements hal.Hardware for code running on its CPU.
type Machine struct {
	memLock     sync.RWMutex
	guestMemory []byte

	ioBus          *devices.IOBus
	serialDevice   *devices.SerialPortDevice
	keyboardDevice *devices.KeyboardDevice
	vgaDevice      *devices.VGADevice

	MemorySize uint64
	idlePoll   time.Duration
	stopChan   chan struct{}
	stopOnce   sync.Once
	closeOnce  sync.Once
	Debug      bool
}

// NewMachine allocates guest memory and wires the devices.
func NewMachine(cfg Config) (*Machine, error) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = DefaultMemorySize
	}
	if cfg.IdlePoll <= 0 {
		cfg.IdlePoll = DefaultIdlePoll
	}
	if cfg.MemorySize < devices.VGA_TEXT_BASE+devices.VGA_TEXT_SIZE {
		return nil, fmt.Errorf("guest memory of %d bytes does not reach the text buffer at 0x%X", cfg.MemorySize, devices.VGA_TEXT_BASE)
	}

	guestMem, err := unix.Mmap(-1, 0, int(cfg.MemorySize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("failed to mmap guest memory: %w", err)
	}

	// Initialize I/O Bus and Devices
	ioBus := devices.NewIOBus()
	serial := devices.NewSerialPortDevice(cfg.SerialOutput)
	keyboard := devices.NewKeyboardDevice()
	vga := devices.NewVGADevice()

	ioBus.RegisterDevice(devices.COM1_PORT_BASE, devices.COM1_PORT_END, serial)
	ioBus.RegisterDevice(devices.KEYBOARD_PORT_DATA, devices.KEYBOARD_PORT_DATA, keyboard)
	ioBus.RegisterDevice(devices.KEYBOARD_PORT_STATUS, devices.KEYBOARD_PORT_STATUS, keyboard)
	ioBus.RegisterDevice(devices.VGA_CRTC_INDEX_PORT, devices.VGA_CRTC_DATA_PORT, vga)

	vm := &Machine{
		guestMemory:    guestMem,
		ioBus:          ioBus,
		serialDevice:   serial,
		keyboardDevice: keyboard,
		vgaDevice:      vga,
		MemorySize:     cfg.MemorySize,
		idlePoll:       cfg.IdlePoll,
		stopChan:       make(chan struct{}),
		Debug:          cfg.Debug,
	}
	if vm.Debug {
		log.Printf("Machine: %d bytes of guest memory, idle poll %v", vm.MemorySize, vm.idlePoll)
	}
	return vm, nil
}

// Stop powers the machine off. The CPU goroutine unwinds at its next port
// or memory access. Stop is idempotent.
func (vm *Machine) Stop() {
	vm.stopOnce.Do(func() {
		if vm.Debug {
			log.Println("Machine: Stopping")
		}
		close(vm.stopChan)
	})
}

// Stopped returns a channel closed by Stop.
func (vm *Machine) Stopped() <-chan struct{} {
	return vm.stopChan
}

func (vm *Machine) isStopped() bool {
	select {
	case <-vm.stopChan:
		return true
	default:
		return false
	}
}

// Close stops the machine and unmaps guest memory.
func (vm *Machine) Close() error {
	vm.Stop()

	var err error
	vm.closeOnce.Do(func() {
		vm.memLock.Lock()
		defer vm.memLock.Unlock()
		if vm.guestMemory != nil {
			err = unix.Munmap(vm.guestMemory)
			vm.guestMemory = nil
		}
		if vm.Debug {
			log.Println("Machine: Closed.")
		}
	})
	return err
}

// HandleIO dispatches a port access from a CPU to the device on the bus.
func (vm *Machine) HandleIO(cpuID int, port uint16, data []byte, direction uint8, size uint8) error {
	if vm.isStopped() {
		return ErrMachineStopped
	}
	if vm.Debug {
		directionStr := "OUT"
		if direction == devices.IODirectionIn {
			directionStr = "IN"
		}
		log.Printf("Machine: CPU %d IO: Port=0x%x, Dir=%s, Size=%d", cpuID, port, directionStr, size)
	}
	if len(data) < int(size) {
		return fmt.Errorf("HandleIO: data buffer too small for I/O operation (size %d, buffer %d)", size, len(data))
	}

	if err := vm.ioBus.HandleIO(port, direction, size, data[:size]); err != nil {
		return fmt.Errorf("CPU %d: %w", cpuID, err)
	}
	return nil
}

// HandleMMIO reads or writes len(data) bytes of guest memory at physAddr.
func (vm *Machine) HandleMMIO(cpuID int, physAddr uint64, data []byte, isWrite bool) error {
	if vm.isStopped() {
		return ErrMachineStopped
	}

	if isWrite {
		vm.memLock.Lock()
		defer vm.memLock.Unlock()
	} else {
		vm.memLock.RLock()
		defer vm.memLock.RUnlock()
	}

	if vm.guestMemory == nil {
		return ErrMachineStopped
	}
	if physAddr+uint64(len(data)) > uint64(len(vm.guestMemory)) {
		return fmt.Errorf("CPU %d: access of %d bytes at 0x%X: %w", cpuID, len(data), physAddr, ErrBadAddress)
	}
	if isWrite {
		copy(vm.guestMemory[physAddr:], data)
	} else {
		copy(data, vm.guestMemory[physAddr:])
	}
	return nil
}

// halt ends the calling CPU goroutine once the machine is stopped.
func (vm *Machine) halt(err error) bool {
	if errors.Is(err, ErrMachineStopped) {
		runtime.Goexit()
	}
	return err != nil
}

// ReadPort implements hal.Hardware. Bus errors read back as a floating bus
// (0xFF). An empty keyboard status read waits up to the idle poll interval
// for input before it is retried.
func (vm *Machine) ReadPort(port uint16) byte {
	data := []byte{0}
	if err := vm.HandleIO(0, port, data, devices.IODirectionIn, 1); vm.halt(err) {
		log.Printf("Machine: %v", err)
		return 0xFF
	}

	if port == devices.KEYBOARD_PORT_STATUS && data[0]&devices.KEYBOARD_STATUS_OBF == 0 {
		vm.idle()
		if err := vm.HandleIO(0, port, data, devices.IODirectionIn, 1); vm.halt(err) {
			log.Printf("Machine: %v", err)
			return 0xFF
		}
	}
	return data[0]
}

// WritePort implements hal.Hardware. Bus errors are logged and dropped.
func (vm *Machine) WritePort(port uint16, value byte) {
	if err := vm.HandleIO(0, port, []byte{value}, devices.IODirectionOut, 1); vm.halt(err) {
		log.Printf("Machine: %v", err)
	}
}

func (vm *Machine) idle() {
	t := time.NewTimer(vm.idlePoll)
	defer t.Stop()

	select {
	case <-vm.keyboardDevice.Notify():
	case <-vm.stopChan:
	case <-t.C:
	}
}

func cellAddress(index int) uint64 {
	return devices.VGA_TEXT_BASE + uint64(index)*2
}

// ReadCell implements hal.Hardware. Indices outside the grid read as zero.
func (vm *Machine) ReadCell(index int) uint16 {
	if index < 0 || index >= devices.VGA_TEXT_CELLS {
		return 0
	}
	var cell [2]byte
	if err := vm.HandleMMIO(0, cellAddress(index), cell[:], false); vm.halt(err) {
		log.Printf("Machine: %v", err)
		return 0
	}
	return binary.LittleEndian.Uint16(cell[:])
}

// WriteCell implements hal.Hardware. Indices outside the grid are ignored.
func (vm *Machine) WriteCell(index int, value uint16) {
	if index < 0 || index >= devices.VGA_TEXT_CELLS {
		return
	}
	var cell [2]byte
	binary.LittleEndian.PutUint16(cell[:], value)
	if err := vm.HandleMMIO(0, cellAddress(index), cell[:], true); vm.halt(err) {
		log.Printf("Machine: %v", err)
	}
}

// TextCells returns a snapshot of the text buffer in row-major order. It
// may be called from any goroutine, also after Stop; after Close it
// returns nil.
func (vm *Machine) TextCells() []uint16 {
	vm.memLock.RLock()
	defer vm.memLock.RUnlock()

	if vm.guestMemory == nil {
		return nil
	}
	cells := make([]uint16, devices.VGA_TEXT_CELLS)
	base := vm.guestMemory[devices.VGA_TEXT_BASE : devices.VGA_TEXT_BASE+devices.VGA_TEXT_SIZE]
	for i := range cells {
		cells[i] = binary.LittleEndian.Uint16(base[i*2:])
	}
	return cells
}

// Cursor returns the hardware cursor position.
func (vm *Machine) Cursor() (row, col int) {
	return vm.vgaDevice.Cursor()
}

// CursorHidden reports whether the guest disabled the hardware cursor.
func (vm *Machine) CursorHidden() bool {
	return vm.vgaDevice.CursorHidden()
}

// Type queues the scancodes that type text on the keyboard in one go. Bytes
// with no key are skipped. Past KEYBOARD_FIFO_SIZE scancodes the oldest are
// lost; host.TypeText paces longer input.
func (vm *Machine) Type(text string) {
	vm.keyboardDevice.PushScancodes(devices.ScancodesForText(text)...)
}

// PushScancodes queues raw scancodes on the keyboard.
func (vm *Machine) PushScancodes(codes ...byte) {
	vm.keyboardDevice.PushScancodes(codes...)
}

// Pending returns the number of scancodes the guest has not read yet.
func (vm *Machine) Pending() int {
	return vm.keyboardDevice.Pending()
}

// SerialWritten returns the number of bytes transmitted on COM1.
func (vm *Machine) SerialWritten() int {
	return vm.serialDevice.Written()
}
