// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import (
	"errors"
	"runtime"
	"time"
)

var (
	// ErrTimeout indicates a hardware status bit did not reach the expected
	// state within the allowed time.
	ErrTimeout = errors.New("timeout")
)

// WaitBits polls a register until the masked bits equal want, or returns
// ErrTimeout once timeout has elapsed.
//
// The register is always polled at least once, so a zero timeout checks
// the current state.
func WaitBits(b Bus, r Register, mask, want uint8, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if b.Read(r)&mask == want {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		runtime.Gosched()
	}
}
