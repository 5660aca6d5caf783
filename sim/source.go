// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package sim

import "sync"

// Resolution is the number of bits in an ADC result.
const Resolution = 10

const maxSample = 1<<Resolution - 1

// Source provides the analog level seen by each ADC channel, as a raw
// 10-bit conversion result.
type Source interface {
	Sample(ch uint8) uint16
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ch uint8) uint16

// Sample calls f.
func (f SourceFunc) Sample(ch uint8) uint16 {
	return f(ch)
}

// Constant returns a Source that reads v on every channel.
func Constant(v uint16) Source {
	return SourceFunc(func(uint8) uint16 {
		return v
	})
}

// Ramp is a Source that increases by a fixed step on every conversion,
// wrapping at full scale.
type Ramp struct {
	mu   sync.Mutex
	next uint16
	step uint16
}

// NewRamp creates a Ramp starting at start.
func NewRamp(start, step uint16) *Ramp {
	return &Ramp{next: start & maxSample, step: step}
}

// Sample returns the next value on the ramp, regardless of channel.
func (r *Ramp) Sample(uint8) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.next
	r.next = (r.next + r.step) & maxSample
	return v
}
