// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

//go:build linux && !baremetal
// +build linux,!baremetal

package adcmon

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// OpenFile creates a Map backed by a memory mapped register image file.
//
// The file is created if it does not exist and is extended to MemLength if
// it is shorter. The current contents are used as is, so a fresh image
// starts zeroed rather than at reset values. Writes are visible to any
// other process mapping the same file, which allows an external simulator
// or logic analyser to share the register file.
//
// Observers only see writes made through this Map.
func OpenFile(path string) (*Map, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_SYNC, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fi, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < MemLength {
		if err = file.Truncate(MemLength); err != nil {
			return nil, fmt.Errorf("can't size register image %s: %w", path, err)
		}
	}

	mem, err := unix.Mmap(
		int(file.Fd()),
		0,
		MemLength,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("can't map register image %s: %w", path, err)
	}

	return &Map{
		mem:       mem,
		observers: make(map[Register][]WriteObserver),
		unmap: func() error {
			return unix.Munmap(mem)
		},
	}, nil
}
