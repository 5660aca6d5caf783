// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"
)

// Flag signals from a single producer, an interrupt handler, to a single
// consumer, the main loop, that new data is available.
//
// Set stores with release semantics and Take loads with acquire semantics,
// so anything the producer wrote before Set is visible to a consumer once
// Take returns true.
//
// The zero value is not usable; use NewFlag.
type Flag struct {
	set  atomic.Bool
	wake wake
}

// NewFlag creates a cleared Flag.
func NewFlag() *Flag {
	return &Flag{wake: newWake()}
}

// Set raises the flag. It never blocks.
func (f *Flag) Set() {
	f.set.Store(true)
	f.wake.notify()
}

// Take clears the flag and reports whether it was set.
func (f *Flag) Take() bool {
	return f.set.Swap(false)
}

// Peek reports whether the flag is set, without clearing it.
func (f *Flag) Peek() bool {
	return f.set.Load()
}

// Poll takes the flag, polling until it is set, ctx is done or timeout has
// elapsed. It needs no scheduler and no channels.
func (f *Flag) Poll(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if f.Take() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		runtime.Gosched()
	}
}
