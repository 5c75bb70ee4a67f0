package core_engine_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"example.com/fridgeos/core_engine"
	"example.com/fridgeos/core_engine/devices"
	"example.com/fridgeos/core_engine/hal"
	"example.com/fridgeos/core_engine/host"
	"example.com/fridgeos/core_engine/kernel"
)

func newMachine(t *testing.T, serial *bytes.Buffer) *core_engine.Machine {
	t.Helper()
	cfg := core_engine.Config{IdlePoll: time.Millisecond}
	if serial != nil {
		cfg.SerialOutput = serial
	}
	vm, err := core_engine.NewMachine(cfg)
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	t.Cleanup(func() { vm.Close() })
	return vm
}

func screenText(cells []uint16) string {
	var sb strings.Builder
	for row := 0; row < devices.VGA_TEXT_ROWS; row++ {
		line := make([]byte, devices.VGA_TEXT_COLUMNS)
		for col := range line {
			line[col] = byte(cells[row*devices.VGA_TEXT_COLUMNS+col])
		}
		sb.WriteString(strings.TrimRight(string(line), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func waitDone(t *testing.T, cpu *core_engine.CPU) {
	t.Helper()
	select {
	case <-cpu.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("CPU did not finish in time")
	}
}

// TestKernelBootEchoAndExit boots the shell, types two commands and checks
// the screen, the hardware cursor and the serial mirror.
func TestKernelBootEchoAndExit(t *testing.T) {
	var serial bytes.Buffer
	vm := newMachine(t, &serial)
	vm.Type("echo hello\nexit\n")

	cpu := core_engine.NewCPU(vm, 0, kernel.Main)
	cpu.Start()
	waitDone(t, cpu)

	if err := cpu.Wait(); err != nil {
		t.Fatalf("CPU fault: %v", err)
	}
	if !cpu.Halted() {
		t.Error("Expected the kernel to return on its own after exit")
	}

	screen := screenText(vm.TextCells())
	for _, want := range []string{"> echo hello\n[ECHO] hello\n", "> exit\n\nGoodbye!\n"} {
		if !strings.Contains(screen, want) {
			t.Errorf("Screen missing %q:\n%s", want, screen)
		}
	}
	if !strings.Contains(serial.String(), "[ECHO] hello\n") {
		t.Errorf("Serial output missing echo: %q", serial.String())
	}
	if vm.SerialWritten() != serial.Len() {
		t.Errorf("SerialWritten = %d, buffer holds %d", vm.SerialWritten(), serial.Len())
	}

	// Banner (8 rows), echo and its output, exit, blank, Goodbye.
	row, col := vm.Cursor()
	if row != 13 || col != 0 {
		t.Errorf("Expected hardware cursor at (13,0), got (%d,%d)", row, col)
	}
	if vm.Pending() != 0 {
		t.Errorf("Expected all input consumed, %d scancodes left", vm.Pending())
	}
}

func TestStopUnwindsBlockedCPU(t *testing.T) {
	vm := newMachine(t, nil)

	cpu := core_engine.NewCPU(vm, 0, kernel.Main)
	cpu.Start()
	cpu.Start()

	deadline := time.Now().Add(5 * time.Second)
	for {
		if row, _ := vm.Cursor(); row == 8 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Kernel never reached the prompt")
		}
		time.Sleep(time.Millisecond)
	}

	vm.Stop()
	vm.Stop()
	waitDone(t, cpu)

	if cpu.Halted() {
		t.Error("Expected the CPU to be unwound, not halted")
	}
	if err := cpu.Wait(); err != nil {
		t.Errorf("Expected no fault from Stop, got %v", err)
	}
	if cells := vm.TextCells(); !strings.HasPrefix(screenText(cells), "  ______") {
		t.Errorf("Screen should survive Stop, got:\n%s", screenText(cells))
	}
}

func TestCPUReportsGuestFault(t *testing.T) {
	vm := newMachine(t, nil)
	cpu := core_engine.NewCPU(vm, 1, func(hal.Hardware) { panic("triple fault") })
	cpu.Start()

	err := cpu.Wait()
	if err == nil || !strings.Contains(err.Error(), "triple fault") {
		t.Errorf("Expected guest fault error, got %v", err)
	}
	if cpu.Halted() {
		t.Error("A faulted CPU must not report halted")
	}
}

func TestMachinePortsAndCells(t *testing.T) {
	vm := newMachine(t, nil)

	vm.WriteCell(0, 0x1F41)
	vm.WriteCell(devices.VGA_TEXT_CELLS-1, 0x4E5A)
	vm.WriteCell(devices.VGA_TEXT_CELLS, 0xFFFF)
	vm.WriteCell(-1, 0xFFFF)

	if got := vm.ReadCell(0); got != 0x1F41 {
		t.Errorf("ReadCell(0) = 0x%04x, want 0x1f41", got)
	}
	if got := vm.ReadCell(devices.VGA_TEXT_CELLS); got != 0 {
		t.Errorf("Out of range ReadCell = 0x%04x, want 0", got)
	}

	raw := make([]byte, 2)
	if err := vm.HandleMMIO(0, devices.VGA_TEXT_BASE, raw, false); err != nil {
		t.Fatalf("HandleMMIO: %v", err)
	}
	if raw[0] != 'A' || raw[1] != 0x1F {
		t.Errorf("Cell bytes in guest memory = % x, want 41 1f", raw)
	}
	if cells := vm.TextCells(); cells[devices.VGA_TEXT_CELLS-1] != 0x4E5A {
		t.Errorf("Last cell = 0x%04x, want 0x4e5a", cells[devices.VGA_TEXT_CELLS-1])
	}

	if got := vm.ReadPort(0x80); got != 0xFF {
		t.Errorf("Unclaimed port read = 0x%02x, want 0xff", got)
	}
	err := vm.HandleIO(0, 0x80, []byte{0}, devices.IODirectionIn, 1)
	if !errors.Is(err, devices.ErrUnhandledPort) {
		t.Errorf("Expected ErrUnhandledPort, got %v", err)
	}

	vm.PushScancodes(0x1E)
	if got := vm.ReadPort(devices.KEYBOARD_PORT_STATUS); got&devices.KEYBOARD_STATUS_OBF == 0 {
		t.Errorf("Expected OBF with a queued scancode, status 0x%02x", got)
	}
	if got := vm.ReadPort(devices.KEYBOARD_PORT_DATA); got != 0x1E {
		t.Errorf("Data port = 0x%02x, want 0x1e", got)
	}
}

// TestSerialInputLongerThanKeyboardFIFO pipes more keystrokes than the
// keyboard buffer holds through the serial frontend and expects every
// command to run.
func TestSerialInputLongerThanKeyboardFIFO(t *testing.T) {
	var serial bytes.Buffer
	vm := newMachine(t, &serial)

	var input strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&input, "echo line%02d\n", i)
	}
	input.WriteString("exit\n")
	if n := len(devices.ScancodesForText(input.String())); n <= devices.KEYBOARD_FIFO_SIZE {
		t.Fatalf("input is only %d scancodes", n)
	}

	cpu := core_engine.NewCPU(vm, 0, kernel.Main)
	cpu.Start()
	// Run returns as soon as the kernel exits; the settle time only bounds
	// a hung guest.
	s := host.NewSerial(vm, strings.NewReader(input.String()))
	s.Settle = 5 * time.Second
	if err := s.Run(cpu.Done()); err != nil {
		t.Fatalf("Serial.Run: %v", err)
	}
	waitDone(t, cpu)
	if err := cpu.Wait(); err != nil {
		t.Fatalf("CPU fault: %v", err)
	}

	out := serial.String()
	for i := 0; i < 20; i++ {
		if want := fmt.Sprintf("[ECHO] line%02d\n", i); !strings.Contains(out, want) {
			t.Errorf("Serial output missing %q", want)
		}
	}
	if !cpu.Halted() {
		t.Errorf("Kernel did not reach exit: %q", out)
	}
}

func TestMachineIdleStatusReadWaits(t *testing.T) {
	vm, err := core_engine.NewMachine(core_engine.Config{IdlePoll: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	defer vm.Close()

	start := time.Now()
	if got := vm.ReadPort(devices.KEYBOARD_PORT_STATUS); got != 0 {
		t.Errorf("Empty status = 0x%02x, want 0", got)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Empty status read returned after %v, want at least the idle poll", elapsed)
	}

	go func() {
		time.Sleep(5 * time.Millisecond)
		vm.Type("a")
	}()
	vm.ReadPort(devices.KEYBOARD_PORT_STATUS)
	if vm.Pending() != 2 {
		t.Errorf("Expected the typed key to be queued, %d pending", vm.Pending())
	}
}

func TestMachineConfigAndLifecycle(t *testing.T) {
	if _, err := core_engine.NewMachine(core_engine.Config{MemorySize: 64 * 1024}); err == nil {
		t.Error("Expected an error for memory that does not reach the text buffer")
	}

	vm, err := core_engine.NewMachine(core_engine.Config{})
	if err != nil {
		t.Fatalf("NewMachine: %v", err)
	}
	if vm.MemorySize != core_engine.DefaultMemorySize {
		t.Errorf("MemorySize = %d, want %d", vm.MemorySize, core_engine.DefaultMemorySize)
	}

	if err := vm.HandleMMIO(0, vm.MemorySize-1, []byte{0, 0}, true); !errors.Is(err, core_engine.ErrBadAddress) {
		t.Errorf("Expected ErrBadAddress, got %v", err)
	}
	vm.WriteCell(0, 0x074F)
	if got := vm.TextCells()[0]; got != 0x074F {
		t.Errorf("First cell after WriteCell = 0x%04x, want 0x074f", got)
	}

	vm.Stop()
	select {
	case <-vm.Stopped():
	default:
		t.Error("Stopped channel not closed after Stop")
	}
	if err := vm.HandleIO(0, devices.KEYBOARD_PORT_STATUS, []byte{0}, devices.IODirectionIn, 1); !errors.Is(err, core_engine.ErrMachineStopped) {
		t.Errorf("Expected ErrMachineStopped, got %v", err)
	}

	if err := vm.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := vm.Close(); err != nil {
		t.Errorf("Second Close: %v", err)
	}
	if vm.TextCells() != nil {
		t.Error("Expected no cells after Close")
	}
}
