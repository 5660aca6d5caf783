// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build avr

package adcmon

import (
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// Hardware is the Bus for the device's own register file.
//
// Read/modify/write sequences run with interrupts disabled so they cannot
// interleave with an interrupt handler modifying the same register.
type Hardware struct{}

func reg(r Register) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(uintptr(r)))
}

// Read returns the current value of the register.
func (Hardware) Read(r Register) uint8 {
	return reg(r).Get()
}

// Write sets the register.
func (Hardware) Write(r Register, v uint8) {
	reg(r).Set(v)
}

// Modify clears then sets bits in the register.
func (Hardware) Modify(r Register, clear, set uint8) {
	state := interrupt.Disable()
	p := reg(r)
	p.Set(p.Get()&^clear | set)
	interrupt.Restore(state)
}

// Toggle inverts the masked bits in the register.
func (Hardware) Toggle(r Register, mask uint8) {
	state := interrupt.Disable()
	p := reg(r)
	p.Set(p.Get() ^ mask)
	interrupt.Restore(state)
}
