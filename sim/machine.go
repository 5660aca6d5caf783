// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package sim simulates the ATmega328P peripherals used by the adcmon
// firmware, so the firmware core can run against a host register Map.
//
// The Machine models Timer1 in normal mode, single conversion mode of the
// ADC and the USART0 transmitter. It watches CPU writes to the Map, updates
// status registers as the hardware would, and raises interrupts on a
// Raiser, normally an adcmon.Controller.
//
// Time advances only through Step, or Run which calls Step against the
// wall clock.
package sim

import (
	"context"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/warthog618/adcmon"
)

// Raiser accepts interrupt requests from the peripherals.
type Raiser interface {
	Raise(v adcmon.Vector)
}

// conversionClocks is the number of ADC clocks in a normal conversion.
const conversionClocks = 13

// Stats counts the events generated by a Machine.
type Stats struct {
	Cycles      uint64
	Overflows   uint32
	Conversions uint32
	BytesSent   uint32
	// Overruns counts bytes written to UDR0 while the buffer was full,
	// which the hardware discards.
	Overruns uint32
}

// Machine simulates the peripherals behind a register Map.
type Machine struct {
	regs  *adcmon.Map
	irq   Raiser
	src   Source
	out   io.Writer
	clock uint32

	mu sync.Mutex // Guards the following.
	// Timer1
	count    uint16
	temp     uint8
	tresidue uint32
	// ADC
	converting bool
	convLeft   uint32
	// USART0
	shifting  bool
	shiftByte byte
	shiftLeft uint32
	bufFull   bool
	buf       byte
	txc       bool
	// Stats
	stats Stats
}

// Option modifies a Machine.
type Option func(*Machine)

// WithClock sets the CPU clock in Hz, which Run uses to convert wall time
// to cycles. The default is 16MHz.
func WithClock(hz uint32) Option {
	return func(m *Machine) {
		m.clock = hz
	}
}

// New creates a Machine driving regs. Conversions read src and transmitted
// bytes are written to out.
//
// Writes to out are made while the Machine is locked, so out should not
// block for long.
func New(regs *adcmon.Map, irq Raiser, src Source, out io.Writer, options ...Option) *Machine {
	m := &Machine{
		regs:  regs,
		irq:   irq,
		src:   src,
		out:   out,
		clock: 16000000,
	}
	for _, option := range options {
		option(m)
	}
	m.count = adcmon.Read16(regs, adcmon.TCNT1L)
	regs.OnWrite(adcmon.TCNT1H, m.onTCNT1H)
	regs.OnWrite(adcmon.TCNT1L, m.onTCNT1L)
	regs.OnWrite(adcmon.ADCSRA, m.onADCSRA)
	regs.OnWrite(adcmon.UDR0, m.onUDR0)
	regs.OnWrite(adcmon.UCSR0A, m.onUCSR0A)
	m.mu.Lock()
	m.syncUSARTStatus()
	m.mu.Unlock()
	return m
}

// Stats returns the event counts so far.
func (m *Machine) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Step advances the peripherals by the given number of CPU cycles.
//
// Events falling within the step are processed at its end, in the order
// timer, ADC, USART.
func (m *Machine) Step(cycles uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Cycles += uint64(cycles)
	m.stepTimer(cycles)
	m.stepADC(cycles)
	m.stepUSART(cycles)
}

// Run advances the Machine until ctx is done.
//
// With a positive speed the Machine tracks the wall clock, scaled by speed.
// With a zero speed it steps as fast as it can, in steps of quantum cycles.
func (m *Machine) Run(ctx context.Context, speed float64, quantum uint32) error {
	if quantum == 0 {
		quantum = 64
	}
	if speed <= 0 {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			m.Step(quantum)
			runtime.Gosched()
		}
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	last := time.Now()
	var residue float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			residue += now.Sub(last).Seconds() * float64(m.clock) * speed
			last = now
			for residue >= float64(quantum) {
				m.Step(quantum)
				residue -= float64(quantum)
			}
		}
	}
}

// Timer1

func (m *Machine) onTCNT1H(_, v uint8) {
	m.mu.Lock()
	m.temp = v
	m.mu.Unlock()
}

func (m *Machine) onTCNT1L(_, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = uint16(m.temp)<<8 | uint16(v)
	m.tresidue = 0
	m.regs.Store16(adcmon.TCNT1L, m.count)
}

func (m *Machine) stepTimer(cycles uint32) {
	ps := adcmon.TimerPrescale(m.regs.Read(adcmon.TCCR1B))
	if ps == 0 {
		return
	}
	m.tresidue += cycles
	counts := m.tresidue / ps
	m.tresidue %= ps
	if counts == 0 {
		return
	}
	for counts > 0 {
		toOverflow := 0x10000 - uint32(m.count)
		if counts < toOverflow {
			m.count += uint16(counts)
			break
		}
		counts -= toOverflow
		m.count = 0
		m.overflow()
	}
	m.regs.Store16(adcmon.TCNT1L, m.count)
}

func (m *Machine) overflow() {
	m.stats.Overflows++
	m.regs.Update(adcmon.TIFR1, 0, adcmon.TOV1)
	if m.regs.Read(adcmon.TIMSK1)&adcmon.TOIE1 != 0 {
		m.irq.Raise(adcmon.VectorTimer1Ovf)
	}
}

// ADC

func (m *Machine) onADCSRA(_, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v&adcmon.ADIF != 0 {
		// cleared by writing a one
		m.regs.Update(adcmon.ADCSRA, adcmon.ADIF, 0)
	}
	switch {
	case m.converting:
		// ADSC reads as one until the conversion completes
		m.regs.Update(adcmon.ADCSRA, 0, adcmon.ADSC)
	case v&adcmon.ADSC == 0:
	case v&adcmon.ADEN == 0:
		m.regs.Update(adcmon.ADCSRA, adcmon.ADSC, 0)
	default:
		m.converting = true
		m.convLeft = conversionClocks * adcmon.ADCPrescale(v)
		m.regs.Update(adcmon.ADCSRA, 0, adcmon.ADSC)
	}
}

func (m *Machine) stepADC(cycles uint32) {
	if !m.converting {
		return
	}
	if cycles < m.convLeft {
		m.convLeft -= cycles
		return
	}
	m.convLeft = 0
	m.converting = false
	m.stats.Conversions++
	admux := m.regs.Read(adcmon.ADMUX)
	v := m.src.Sample(admux&adcmon.MUXMask) & maxSample
	if admux&adcmon.ADLAR != 0 {
		v <<= 16 - Resolution
	}
	m.regs.Store16(adcmon.ADCL, v)
	sr := m.regs.Update(adcmon.ADCSRA, adcmon.ADSC, adcmon.ADIF)
	if sr&adcmon.ADIE != 0 {
		m.irq.Raise(adcmon.VectorADC)
	}
}

// USART0

// frameCycles returns the number of CPU cycles to shift out one frame.
func (m *Machine) frameCycles() uint32 {
	ubrr := uint32(adcmon.Read16(m.regs, adcmon.UBRR0L) & 0x0fff)
	bitCycles := 16 * (ubrr + 1)
	if m.regs.Read(adcmon.UCSR0A)&adcmon.U2X0 != 0 {
		bitCycles /= 2
	}
	c := m.regs.Read(adcmon.UCSR0C)
	bits := uint32(1 + 5 + (c&adcmon.UCSZ0Mask)>>1 + 1)
	if c&adcmon.USBS0 != 0 {
		bits++
	}
	if c&0x30 != 0 {
		// parity
		bits++
	}
	return bits * bitCycles
}

func (m *Machine) onUDR0(_, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.regs.Read(adcmon.UCSR0B)&adcmon.TXEN0 == 0 {
		return
	}
	switch {
	case !m.shifting:
		m.shifting = true
		m.shiftByte = v
		m.shiftLeft = m.frameCycles()
	case !m.bufFull:
		m.bufFull = true
		m.buf = v
	default:
		m.stats.Overruns++
	}
	m.txc = false
	m.syncUSARTStatus()
}

func (m *Machine) onUCSR0A(_, v uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v&adcmon.TXC0 != 0 {
		// cleared by writing a one
		m.txc = false
	}
	m.syncUSARTStatus()
}

// syncUSARTStatus refreshes the read only status bits of UCSR0A, leaving
// the writable bits as the CPU last wrote them.
func (m *Machine) syncUSARTStatus() {
	var status uint8
	if !m.bufFull {
		status |= adcmon.UDRE0
	}
	if m.txc {
		status |= adcmon.TXC0
	}
	m.regs.Update(adcmon.UCSR0A, adcmon.RXC0|adcmon.TXC0|adcmon.UDRE0, status)
}

func (m *Machine) stepUSART(cycles uint32) {
	for m.shifting {
		if cycles < m.shiftLeft {
			m.shiftLeft -= cycles
			return
		}
		cycles -= m.shiftLeft
		m.out.Write([]byte{m.shiftByte})
		m.stats.BytesSent++
		if m.bufFull {
			m.shiftByte = m.buf
			m.bufFull = false
			m.shiftLeft = m.frameCycles()
		} else {
			m.shifting = false
			m.txc = true
		}
		m.syncUSARTStatus()
		b := m.regs.Read(adcmon.UCSR0B)
		if m.txc && b&adcmon.TXCIE0 != 0 {
			m.irq.Raise(adcmon.VectorUSARTTX)
		}
		if !m.bufFull && b&adcmon.UDRIE0 != 0 {
			m.irq.Raise(adcmon.VectorUSARTUDRE)
		}
	}
}
