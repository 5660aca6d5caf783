// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package monitor

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/multierr"
)

const (
	// DefaultBaudRate matches the firmware's default setup.
	DefaultBaudRate = 19200
	// DefaultBufferSize is the default capacity of the samples channel.
	DefaultBufferSize = 64
)

// Record is a sample received from the device.
type Record struct {
	Time   time.Time
	Sample uint16
}

// Port reads samples from a serial port.
type Port struct {
	name string

	mu      sync.Mutex // Guards conn and closed.
	conn    io.ReadWriteCloser
	closed  bool
	samples chan Record
	done    chan struct{}
	// Count of malformed and dropped records.
	malformed uint32
	dropped   uint32
}

// Open opens the named serial port at the given baud rate, in 8N1 format,
// and starts reading samples from it.
func Open(name string, baud int, bufSize int) (*Port, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	mode := serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	conn, err := serial.Open(name, &mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	return newPort(name, conn, bufSize), nil
}

// newPort creates a Port reading from an already open connection.
func newPort(name string, conn io.ReadWriteCloser, bufSize int) *Port {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	p := &Port{
		name:    name,
		conn:    conn,
		samples: make(chan Record, bufSize),
		done:    make(chan struct{}),
	}
	go p.read()
	return p
}

// Ports returns the names of the serial ports available on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

// Samples returns the channel of received samples.
// The channel is closed when the port is closed or the stream ends.
func (p *Port) Samples() <-chan Record {
	return p.samples
}

// Errors returns the number of malformed records, and the number of
// records dropped because the samples channel was full.
func (p *Port) Errors() (malformed, dropped uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.malformed, p.dropped
}

func (p *Port) read() {
	defer close(p.done)
	defer close(p.samples)
	s := NewScanner(p.conn)
	for s.Scan() {
		if err := s.Err(); err != nil {
			p.mu.Lock()
			p.malformed++
			p.mu.Unlock()
			log.Printf("%s: %v", p.name, err)
			continue
		}
		select {
		case p.samples <- Record{Time: time.Now(), Sample: s.Sample()}:
		default:
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
		}
	}
	if err := s.Err(); err != nil && !p.isClosed() && !errors.Is(err, io.EOF) {
		log.Printf("%s: read error: %v", p.name, err)
	}
}

func (p *Port) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close closes the port and waits for the reader to stop.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	conn := p.conn
	p.mu.Unlock()
	var err error
	if d, ok := conn.(interface{ Drain() error }); ok {
		err = multierr.Append(err, d.Drain())
	}
	err = multierr.Append(err, conn.Close())
	<-p.done
	return err
}
