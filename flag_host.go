// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build !avr

package adcmon

import (
	"context"
	"time"
)

// wake lets a host consumer sleep until the flag is set.
type wake chan struct{}

func newWake() wake {
	return make(wake, 1)
}

func (w wake) notify() {
	select {
	case w <- struct{}{}:
	default:
	}
}

// Ready returns a channel that receives after a Set.
// A receive is only a hint; the consumer must still Take the flag.
func (f *Flag) Ready() <-chan struct{} {
	return f.wake
}

// Wait takes the flag, sleeping until it is set, ctx is done or timeout
// has elapsed.
func (f *Flag) Wait(ctx context.Context, timeout time.Duration) error {
	if f.Take() {
		return nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-f.wake:
			if f.Take() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return ErrTimeout
		}
	}
}
