// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build avr

package adcmon

import (
	"context"
	"time"
)

// The device runs without a scheduler, so the flag is only ever polled and
// Set does nothing beyond the store.
type wake struct{}

func newWake() wake {
	return wake{}
}

func (wake) notify() {}

// Wait takes the flag, polling until it is set, ctx is done or timeout has
// elapsed.
func (f *Flag) Wait(ctx context.Context, timeout time.Duration) error {
	return f.Poll(ctx, timeout)
}
