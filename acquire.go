// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Default limits on the Acquirer's waits.
const (
	DefaultReadyTimeout = time.Second
	DefaultTxTimeout    = 100 * time.Millisecond
)

// Acquirer runs the acquisition cycle: the tick and conversion complete
// handlers, and the main loop that reports each sample.
type Acquirer struct {
	ind   *Indicator
	timer *Timer1
	adc   *ADC
	tx    *Transmitter
	ready *Flag

	freeRun      bool
	readyTimeout time.Duration
	banner       string

	ticks       atomic.Uint32
	completions atomic.Uint32
	cycles      atomic.Uint32
}

// Stats counts the events seen by an Acquirer.
type Stats struct {
	// Ticks is the number of timer ticks handled.
	//
	// It is the only count kept in interrupt context, and is never read by
	// the main loop.
	Ticks uint32
	// Completions is the number of conversion completions taken by the
	// main loop. Completions that land while the flag is already set are
	// coalesced.
	Completions uint32
	// Cycles is the number of samples transmitted.
	Cycles uint32
}

type acquirerOptions struct {
	freeRun      bool
	readyTimeout time.Duration
	txTimeout    time.Duration
	byteDelay    time.Duration
	banner       string
}

// Option modifies the behaviour of an Acquirer.
type Option func(*acquirerOptions)

// WithFreeRun makes the main loop sample and transmit continuously,
// without waiting for a conversion to complete.
func WithFreeRun() Option {
	return func(o *acquirerOptions) {
		o.freeRun = true
	}
}

// WithReadyTimeout sets how long the main loop waits for a conversion to
// complete before giving up.
func WithReadyTimeout(d time.Duration) Option {
	return func(o *acquirerOptions) {
		o.readyTimeout = d
	}
}

// WithTxTimeout sets how long to wait for the transmitter to accept each
// byte.
func WithTxTimeout(d time.Duration) Option {
	return func(o *acquirerOptions) {
		o.txTimeout = d
	}
}

// WithByteDelay adds an idle period after each transmitted byte.
func WithByteDelay(d time.Duration) Option {
	return func(o *acquirerOptions) {
		o.byteDelay = d
	}
}

// WithBanner sends s, followed by a carriage return, once when Run starts.
func WithBanner(s string) Option {
	return func(o *acquirerOptions) {
		o.banner = s
	}
}

// NewAcquirer creates an Acquirer for peripherals initialised with c.
func NewAcquirer(b Bus, c Config, options ...Option) *Acquirer {
	opts := acquirerOptions{
		readyTimeout: DefaultReadyTimeout,
		txTimeout:    DefaultTxTimeout,
	}
	for _, option := range options {
		option(&opts)
	}
	return &Acquirer{
		ind:          NewIndicator(b),
		timer:        NewTimer1(b, c.Reload),
		adc:          NewADC(b),
		tx:           NewTransmitter(b, opts.txTimeout, opts.byteDelay),
		ready:        NewFlag(),
		freeRun:      opts.freeRun,
		readyTimeout: opts.readyTimeout,
		banner:       opts.banner,
	}
}

// Ready returns the flag raised by ConversionComplete.
func (a *Acquirer) Ready() *Flag {
	return a.ready
}

// Stats returns the current event counts.
func (a *Acquirer) Stats() Stats {
	return Stats{
		Ticks:       a.ticks.Load(),
		Completions: a.completions.Load(),
		Cycles:      a.cycles.Load(),
	}
}

// Cycle reads the latest sample and transmits it as decimal ASCII followed
// by a carriage return.
func (a *Acquirer) Cycle() (uint16, error) {
	s := a.adc.Sample()
	d, n := Encode(s)
	for _, c := range d[:n] {
		if err := a.tx.WriteByte(c); err != nil {
			return s, fmt.Errorf("transmit sample %d: %w", s, err)
		}
	}
	if err := a.tx.WriteByte('\r'); err != nil {
		return s, fmt.Errorf("transmit sample %d: %w", s, err)
	}
	a.cycles.Add(1)
	return s, nil
}

// Run transmits samples until ctx is done or a wait times out.
//
// Unless WithFreeRun is set, each sample is only read once a conversion
// has completed since the previous one.
func (a *Acquirer) Run(ctx context.Context) error {
	if a.banner != "" {
		// terminated so it stays a record of its own
		if err := a.tx.WriteString(a.banner + "\r"); err != nil {
			return fmt.Errorf("transmit banner: %w", err)
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.freeRun {
			if err := a.waitReady(ctx); err != nil {
				return err
			}
		}
		if _, err := a.Cycle(); err != nil {
			return err
		}
	}
}

func (a *Acquirer) waitReady(ctx context.Context) error {
	if err := a.ready.Wait(ctx, a.readyTimeout); err != nil {
		if errors.Is(err, ErrTimeout) {
			return fmt.Errorf("waiting for conversion: %w", err)
		}
		return err
	}
	a.completions.Add(1)
	return nil
}
