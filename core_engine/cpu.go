package core_engine

import (
	"fmt"
	"log"
	"sync"

	"example.com/fridgeos/core_engine/hal"
)

// CPU runs one entry function against a Machine on its own goroutine. The
// entry function is the guest: it sees the machine only as hal.Hardware.
type CPU struct {
	id    int
	vm    *Machine
	entry func(hal.Hardware)

	startOnce sync.Once
	done      chan struct{}

	mu     sync.Mutex
	halted bool  // entry returned on its own
	err    error // entry panicked
}

// NewCPU creates a CPU for the given machine. It does not start running
// until Start is called.
func NewCPU(vm *Machine, id int, entry func(hal.Hardware)) *CPU {
	return &CPU{
		id:    id,
		vm:    vm,
		entry: entry,
		done:  make(chan struct{}),
	}
}

// Start launches the run loop. Calling Start again has no effect.
func (c *CPU) Start() {
	c.startOnce.Do(func() {
		if c.vm.Debug {
			log.Printf("CPU %d: Starting", c.id)
		}
		go c.run()
	})
}

func (c *CPU) run() {
	defer close(c.done)
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("CPU %d: guest fault: %v", c.id, r)
			c.mu.Unlock()
			log.Printf("CPU %d: exited with error: %v", c.id, r)
		}
	}()

	c.entry(c.vm)

	c.mu.Lock()
	c.halted = true
	c.mu.Unlock()
	if c.vm.Debug {
		log.Printf("CPU %d: exited normally.", c.id)
	}
}

// Done is closed when the run loop has ended, whether the entry function
// returned, faulted or was unwound by Machine.Stop.
func (c *CPU) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the run loop ends and returns the guest fault, if any.
func (c *CPU) Wait() error {
	<-c.done
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Halted reports whether the entry function returned on its own, as
// opposed to being unwound by Stop or a fault.
func (c *CPU) Halted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.halted
}
