package devices

import (
	"fmt"
	"io"
	"log"
	"sync"
)

// I/O directions as seen from the guest.
const (
	IODirectionIn  uint8 = 0 // Read from device
	IODirectionOut uint8 = 1 // Write to device
)

// SerialPortDevice implements the transmit side of a 16550A UART. Bytes the
// guest writes to THR go straight to the output writer; the transmitter is
// always reported empty.
type SerialPortDevice struct {
	outputWriter io.Writer // Where to write serial output (e.g., os.Stdout)
	lock         sync.Mutex

	// Internal registers state
	thrDll byte // Transmitter Holding Register / Divisor Latch Low (DLAB=1)
	ierDlh byte // Interrupt Enable Register
	dlh    byte // Divisor Latch High (DLAB=1)
	fcr    byte // FIFO Control Register (write only)
	lcr    byte // Line Control Register
	mcr    byte // Modem Control Register
	lsr    byte // Line Status Register
	scr    byte // Scratch Pad Register

	dlabActive bool // True if DLAB bit in LCR is set
	written    int  // Bytes transmitted so far
}

// NewSerialPortDevice creates a UART that transmits into writer. A nil
// writer discards output.
func NewSerialPortDevice(writer io.Writer) *SerialPortDevice {
	if writer == nil {
		writer = io.Discard
	}
	return &SerialPortDevice{
		outputWriter: writer,
		lsr:          LSR_THRE | LSR_TEMT,
	}
}

// Written returns the number of bytes the guest has transmitted.
func (s *SerialPortDevice) Written() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.written
}

// Divisor returns the programmed baud rate divisor.
func (s *SerialPortDevice) Divisor() uint16 {
	s.lock.Lock()
	defer s.lock.Unlock()
	return uint16(s.dlh)<<8 | uint16(s.thrDll)
}

// HandleIO processes I/O operations for the serial port.
// `port`: The I/O port address.
// `direction`: IODirectionIn or IODirectionOut.
// `size`: The size of the data transfer; only 1 is decoded.
// `data`: For IN, written by the device. For OUT, read by the device.
func (s *SerialPortDevice) HandleIO(port uint16, direction uint8, size uint8, data []byte) error {
	if size != 1 {
		return fmt.Errorf("SerialPortDevice: %d-byte access to port 0x%x: %w", size, port, ErrUnsupportedSize)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	offset := port - COM1_PORT_BASE

	switch direction {
	case IODirectionOut:
		val := data[0]

		switch offset {
		case RHR_THR_DLL:
			if s.dlabActive {
				s.thrDll = val
				return nil
			}
			s.written++
			if _, err := s.outputWriter.Write([]byte{val}); err != nil {
				// Host side trouble must not wedge the guest transmitter.
				log.Printf("SerialPortDevice: Error writing to output: %v", err)
			}
			s.lsr |= LSR_THRE | LSR_TEMT
		case IER_DLH:
			if s.dlabActive {
				s.dlh = val
			} else {
				s.ierDlh = val & IER_MASK
			}
		case IIR_FCR:
			s.fcr = val
		case LCR:
			s.lcr = val
			s.dlabActive = val&LCR_DLAB != 0
		case MCR:
			s.mcr = val
		case SCR:
			s.scr = val
		case LSR, MSR:
			// Read only; writes are ignored.
		default:
			return fmt.Errorf("SerialPortDevice: OUT 0x%x (offset 0x%x): %w", port, offset, ErrUnhandledPort)
		}

	case IODirectionIn:
		var readVal byte
		switch offset {
		case RHR_THR_DLL:
			if s.dlabActive {
				readVal = s.thrDll
			} else {
				// Nothing is ever received.
				readVal = 0x00
				s.lsr &^= LSR_DR
			}
		case IER_DLH:
			if s.dlabActive {
				readVal = s.dlh
			} else {
				readVal = s.ierDlh
			}
		case IIR_FCR:
			readVal = IIR_NO_INT_PENDING
			if s.fcr&FCR_ENABLE_FIFO != 0 {
				readVal |= IIR_FIFO_ENABLED
			}
		case LCR:
			readVal = s.lcr
		case MCR:
			readVal = s.mcr
		case LSR:
			readVal = s.lsr
		case MSR:
			readVal = 0x00
		case SCR:
			readVal = s.scr
		default:
			return fmt.Errorf("SerialPortDevice: IN 0x%x (offset 0x%x): %w", port, offset, ErrUnhandledPort)
		}
		data[0] = readVal

	default:
		return fmt.Errorf("SerialPortDevice: Invalid I/O direction %d for port 0x%x", direction, port)
	}
	return nil
}
