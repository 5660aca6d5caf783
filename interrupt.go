// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build !avr

// Interrupt delivery for a host register Map.

package adcmon

import (
	"errors"
	"sync"
)

// Vector identifies an interrupt source by its ATmega328P vector number.
// Lower vectors have higher priority.
type Vector uint8

// Interrupt vectors used by the firmware.
const (
	VectorInt0      Vector = 1
	VectorTimer1Ovf Vector = 13
	VectorUSARTUDRE Vector = 19
	VectorUSARTTX   Vector = 20
	VectorADC       Vector = 21

	MaxVector = 26
)

var (
	// ErrAlreadyRegistered indicates a handler is already registered for
	// the vector.
	ErrAlreadyRegistered = errors.New("handler already registered")

	// ErrClosed indicates the Controller has been closed.
	ErrClosed = errors.New("closed")
)

// vectorFlags are the interrupt flags the hardware clears on entry to the
// handler.
var vectorFlags = map[Vector]struct {
	reg  Register
	mask uint8
}{
	VectorInt0:      {EIFR, INT0},
	VectorTimer1Ovf: {TIFR1, TOV1},
	VectorADC:       {ADCSRA, ADIF},
}

// Controller delivers interrupts raised against a Map to their handlers.
//
// Handlers are called from a single goroutine, one at a time and in vector
// order, and only while the global interrupt enable bit in SREG is set.
// A handler runs to completion before the next is started, so handlers
// never nest.
type Controller struct {
	regs *Map
	mu   sync.Mutex // Guards the following.
	// Pending vectors as a bitmap.
	pending  uint32
	handlers map[Vector]func()
	closed   bool
	// Wakes the dispatcher.
	wake chan struct{}
	done chan struct{}
}

// NewController creates a Controller for the Map and starts its dispatcher.
func NewController(m *Map) *Controller {
	c := &Controller{
		regs:     m,
		handlers: make(map[Vector]func()),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go c.dispatch()
	return c
}

func (c *Controller) dispatch() {
	defer close(c.done)
	for range c.wake {
		for {
			h := c.next()
			if h == nil {
				break
			}
			h()
		}
	}
}

// next removes the highest priority deliverable interrupt and returns its
// handler, or nil if none can be delivered.
func (c *Controller) next() func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.regs.Read(SREG)&SREG_I == 0 {
		return nil
	}
	for v := Vector(1); v < MaxVector; v++ {
		bit := uint32(1) << v
		if c.pending&bit == 0 {
			continue
		}
		h, ok := c.handlers[v]
		if !ok {
			// nothing to deliver to, so leave pending until registered
			continue
		}
		c.pending &^= bit
		if f, ok := vectorFlags[v]; ok {
			c.regs.Update(f.reg, f.mask, 0)
		}
		return h
	}
	return nil
}

func (c *Controller) kick() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Register sets the handler for a vector.
// A vector can only be registered once. Subsequent registers, without an
// Unregister, return an error.
func (c *Controller) Register(v Vector, handler func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.handlers[v]; ok {
		return ErrAlreadyRegistered
	}
	c.handlers[v] = handler
	c.kick()
	return nil
}

// Unregister removes the handler for a vector.
func (c *Controller) Unregister(v Vector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, v)
}

// Raise marks the vector pending. It never blocks, so it may be called by
// simulated peripherals while they hold their own locks.
func (c *Controller) Raise(v Vector) {
	if v == 0 || v >= MaxVector {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending |= uint32(1) << v
	c.kick()
}

// Pending reports whether the vector has been raised but not yet delivered.
func (c *Controller) Pending(v Vector) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending&(uint32(1)<<v) != 0
}

// Enable sets the global interrupt enable, releasing any pending
// interrupts.
func (c *Controller) Enable() {
	c.regs.Modify(SREG, 0, SREG_I)
	c.mu.Lock()
	if !c.closed {
		c.kick()
	}
	c.mu.Unlock()
}

// Disable clears the global interrupt enable.
// A handler already running is allowed to complete.
func (c *Controller) Disable() {
	c.regs.Modify(SREG, SREG_I, 0)
}

// Close stops the dispatcher and waits for any running handler to return.
// It must not be called from a handler.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	c.closed = true
	close(c.wake)
	c.mu.Unlock()
	<-c.done
}
