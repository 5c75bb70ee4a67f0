// core_engine/devices/constants.go
package devices

// Serial Port Constants
const (
	COM1_PORT_BASE uint16 = 0x3F8 // Base address for COM1
	COM1_PORT_END  uint16 = 0x3FF // End address for COM1 (8 registers)

	// Offsets from base port
	RHR_THR_DLL uint16 = 0 // Receiver Holding Reg (R), Transmitter Holding Reg (W), Divisor Latch LSB (DLAB=1)
	IER_DLH     uint16 = 1 // Interrupt Enable Reg, Divisor Latch MSB (DLAB=1)
	IIR_FCR     uint16 = 2 // Interrupt ID Reg (R), FIFO Control Reg (W)
	LCR         uint16 = 3 // Line Control Register
	MCR         uint16 = 4 // Modem Control Register
	LSR         uint16 = 5 // Line Status Register
	MSR         uint16 = 6 // Modem Status Register
	SCR         uint16 = 7 // Scratch Register
)
// Line Control Register (LCR) bits
const (
	LCR_DLAB byte = 0x80 // Divisor Latch Access Bit
	// ... other LCR bits for word length, stop bits, parity
)
// Line Status Register (LSR) bits
const (
	LSR_DR   byte = 0x01 // Data Ready
	LSR_OE   byte = 0x02 // Overrun Error
	LSR_PE   byte = 0x04 // Parity Error
	LSR_FE   byte = 0x08 // Framing Error
	LSR_BI   byte = 0x10 // Break Interrupt
	LSR_THRE byte = 0x20 // Transmitter Holding Register Empty
	LSR_TEMT byte = 0x40 // Transmitter Empty
	LSR_ERF  byte = 0x80 // Error in RCVR FIFO (16750) / Reserved (16550)
)
// Interrupt Identification Register (IIR) bits (when read)
const (
	IIR_NO_INT_PENDING byte = 0x01 // No interrupt pending
	IIR_FIFO_ENABLED   byte = 0xC0 // Both bits set if FIFO enabled (16550+)
)
// FIFO Control Register (FCR) bits
const (
	FCR_ENABLE_FIFO byte = 0x01
)
// Interrupt Enable Register (IER) bits
const (
	IER_RX_DATA_AVAILABLE byte = 0x01 // Enable Received Data Available Interrupt
	IER_THRE_ENABLE       byte = 0x02 // Enable Transmitter Holding Register Empty Interrupt
	IER_RX_LINE_STATUS    byte = 0x04 // Enable Receiver Line Status Interrupt
	IER_MODEM_STATUS      byte = 0x08 // Enable Modem Status Interrupt
	IER_MASK                   = IER_RX_DATA_AVAILABLE | IER_THRE_ENABLE | IER_RX_LINE_STATUS | IER_MODEM_STATUS
)

// Keyboard Controller Port Constants (8042 style)
const (
	KEYBOARD_PORT_DATA   uint16 = 0x60 // Data Register (read/write)
	KEYBOARD_PORT_STATUS uint16 = 0x64 // Status Register (read) / Command Register (write)

	KEYBOARD_STATUS_OBF byte = 0x01 // Output Buffer Full: a scancode is waiting on 0x60
	KEYBOARD_BREAK_BIT  byte = 0x80 // Set on the release (break) code of a key

	KEYBOARD_FIFO_SIZE = 256 // Scancodes buffered before the oldest are dropped
)

// Scancode set 1 make codes for the keys the typing helpers need by name.
const (
	SCANCODE_ESCAPE      byte = 0x01
	SCANCODE_BACKSPACE   byte = 0x0E
	SCANCODE_TAB         byte = 0x0F
	SCANCODE_ENTER       byte = 0x1C
	SCANCODE_LEFT_SHIFT  byte = 0x2A
	SCANCODE_RIGHT_SHIFT byte = 0x36
	SCANCODE_CAPS_LOCK   byte = 0x3A
	SCANCODE_SPACE       byte = 0x39
)

// VGA text mode
const (
	VGA_CRTC_INDEX_PORT uint16 = 0x3D4 // CRT Controller index register
	VGA_CRTC_DATA_PORT  uint16 = 0x3D5 // CRT Controller data register

	VGA_CRTC_CURSOR_START byte = 0x0A // Cursor shape start scanline; bit 5 disables the cursor
	VGA_CRTC_CURSOR_END   byte = 0x0B // Cursor shape end scanline
	VGA_CRTC_CURSOR_HIGH  byte = 0x0E // Cursor location, high byte
	VGA_CRTC_CURSOR_LOW   byte = 0x0F // Cursor location, low byte
	VGA_CRTC_REGISTERS         = 0x19 // Registers 0x00-0x18 are backed

	VGA_CURSOR_DISABLE byte = 0x20

	VGA_TEXT_BASE    uint64 = 0xB8000 // Physical address of the colour text buffer
	VGA_TEXT_COLUMNS        = 80
	VGA_TEXT_ROWS           = 25
	VGA_TEXT_CELLS          = VGA_TEXT_COLUMNS * VGA_TEXT_ROWS
	VGA_TEXT_SIZE    uint64 = VGA_TEXT_CELLS * 2 // Two bytes per cell: character, attribute
)
