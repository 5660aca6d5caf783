// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package adcmon samples an analog input on an ATmega328P and reports each
// reading as decimal ASCII over USART0.
//
// The core is interrupt driven:
//   - a Timer1 overflow tick toggles a status LED, reloads the counter and
//     starts an ADC conversion,
//   - the ADC completion interrupt sets a ready Flag,
//   - the main loop consumes the flag, reads ADCL/ADCH, encodes the sample
//     and transmits it, terminated by a carriage return.
//
// The core talks to the peripherals only through a Bus. On the device the
// Bus is the real register file (see Hardware, avr builds only). On a host
// it is a Map, driven by the sim package and a Controller that delivers
// interrupts.
//
// Example of use on a host:
//
//	regs := adcmon.New()
//	adcmon.Init(regs, adcmon.DefaultConfig())
//	ctrl := adcmon.NewController(regs)
//	defer ctrl.Close()
//	acq := adcmon.NewAcquirer(regs, adcmon.DefaultConfig())
//	ctrl.Register(adcmon.VectorTimer1Ovf, acq.TimerTick)
//	ctrl.Register(adcmon.VectorADC, acq.ConversionComplete)
//	ctrl.Enable()
//	acq.Run(ctx)
//
// Register addresses are data space addresses as listed in the ATmega328P
// datasheet, not I/O space addresses.
package adcmon

import (
	"sync"
)

// Register is the data space address of an 8-bit peripheral register.
type Register uint16

// Registers used by the firmware.
const (
	PINB   Register = 0x23
	DDRB   Register = 0x24
	PORTB  Register = 0x25
	PIND   Register = 0x29
	DDRD   Register = 0x2a
	PORTD  Register = 0x2b
	TIFR1  Register = 0x36
	EIFR   Register = 0x3c
	EIMSK  Register = 0x3d
	SREG   Register = 0x5f
	EICRA  Register = 0x69
	TIMSK1 Register = 0x6f
	ADCL   Register = 0x78
	ADCH   Register = 0x79
	ADCSRA Register = 0x7a
	ADCSRB Register = 0x7b
	ADMUX  Register = 0x7c
	DIDR0  Register = 0x7e
	TCCR1A Register = 0x80
	TCCR1B Register = 0x81
	TCNT1L Register = 0x84
	TCNT1H Register = 0x85
	UCSR0A Register = 0xc0
	UCSR0B Register = 0xc1
	UCSR0C Register = 0xc2
	UBRR0L Register = 0xc4
	UBRR0H Register = 0xc5
	UDR0   Register = 0xc6

	// MemLength is the size of the register file, which covers every
	// register above.
	MemLength = 0x100
)

// Bit masks within the registers above.
const (
	// SREG
	SREG_I uint8 = 1 << 7

	// PORTB
	PB6 uint8 = 1 << 6
	PB7 uint8 = 1 << 7

	// PORTD
	PD2 uint8 = 1 << 2

	// TIMSK1 / TIFR1
	TOIE1 uint8 = 1 << 0
	TOV1  uint8 = 1 << 0

	// TCCR1B
	CS1Mask uint8 = 0x07

	// ADCSRA
	ADEN     uint8 = 1 << 7
	ADSC     uint8 = 1 << 6
	ADATE    uint8 = 1 << 5
	ADIF     uint8 = 1 << 4
	ADIE     uint8 = 1 << 3
	ADPSMask uint8 = 0x07

	// ADMUX
	REFSMask uint8 = 0xc0
	ADLAR    uint8 = 1 << 5
	MUXMask  uint8 = 0x0f

	// UCSR0A
	RXC0  uint8 = 1 << 7
	TXC0  uint8 = 1 << 6
	UDRE0 uint8 = 1 << 5
	U2X0  uint8 = 1 << 1

	// UCSR0B
	RXCIE0 uint8 = 1 << 7
	TXCIE0 uint8 = 1 << 6
	UDRIE0 uint8 = 1 << 5
	RXEN0  uint8 = 1 << 4
	TXEN0  uint8 = 1 << 3

	// UCSR0C
	USBS0     uint8 = 1 << 3
	UCSZ0Mask uint8 = 0x06

	// EIMSK
	INT0 uint8 = 1 << 0
)

// Bus provides access to the peripheral register file.
//
// Modify and Toggle are read-modify-write operations and are atomic with
// respect to other accesses through the same Bus.
type Bus interface {
	// Read returns the current value of the register.
	Read(r Register) uint8

	// Write sets the register to v.
	Write(r Register, v uint8)

	// Modify clears the bits in clear, then sets the bits in set.
	Modify(r Register, clear, set uint8)

	// Toggle inverts the bits in mask.
	Toggle(r Register, mask uint8)
}

// Read16 reads a 16-bit register pair, low byte first as the hardware
// latches the high byte on the low byte read.
func Read16(b Bus, low Register) uint16 {
	l := b.Read(low)
	h := b.Read(low + 1)
	return uint16(h)<<8 | uint16(l)
}

// Write16 writes a 16-bit register pair, high byte first as the hardware
// commits both bytes on the low byte write.
func Write16(b Bus, low Register, v uint16) {
	b.Write(low+1, uint8(v>>8))
	b.Write(low, uint8(v))
}

// WriteObserver is called after a CPU write to a register, with the value
// before and after the write.
type WriteObserver func(old, new uint8)

// Map is a register file held in host memory.
//
// Writes made through the Bus methods model CPU writes and are reported to
// any WriteObservers. Store and Update model writes by the peripherals
// themselves and are not reported.
type Map struct {
	// The mu covers all access to mem, including read/modify/write
	// sequences. Go provides no byte wide atomics so single reads and
	// writes also take the lock.
	mu        sync.Mutex
	mem       []uint8
	observers map[Register][]WriteObserver
	unmap     func() error
}

// New creates a Map with the registers set to their reset values.
func New() *Map {
	m := &Map{
		mem:       make([]uint8, MemLength),
		observers: make(map[Register][]WriteObserver),
	}
	m.reset()
	return m
}

func (m *Map) reset() {
	for i := range m.mem {
		m.mem[i] = 0
	}
	m.mem[UCSR0A] = UDRE0
	m.mem[UCSR0C] = UCSZ0Mask
}

// OnWrite registers an observer for CPU writes to r.
// Observers are called after the write completes, without the Map locked,
// so they may themselves access the Map.
func (m *Map) OnWrite(r Register, o WriteObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers[r] = append(m.observers[r], o)
}

// Read returns the current value of a register.
func (m *Map) Read(r Register) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem[r]
}

// Write sets a register.
func (m *Map) Write(r Register, v uint8) {
	m.mu.Lock()
	old := m.mem[r]
	m.mem[r] = v
	oo := m.observers[r]
	m.mu.Unlock()
	notify(oo, old, v)
}

// Modify performs a read/modify/write of a register.
func (m *Map) Modify(r Register, clear, set uint8) {
	m.mu.Lock()
	old := m.mem[r]
	v := old&^clear | set
	m.mem[r] = v
	oo := m.observers[r]
	m.mu.Unlock()
	notify(oo, old, v)
}

// Toggle inverts the masked bits of a register.
func (m *Map) Toggle(r Register, mask uint8) {
	m.mu.Lock()
	old := m.mem[r]
	v := old ^ mask
	m.mem[r] = v
	oo := m.observers[r]
	m.mu.Unlock()
	notify(oo, old, v)
}

// SetBits sets the masked bits of a register.
func (m *Map) SetBits(r Register, mask uint8) {
	m.Modify(r, 0, mask)
}

// ClearBits clears the masked bits of a register.
func (m *Map) ClearBits(r Register, mask uint8) {
	m.Modify(r, mask, 0)
}

// Store sets a register on behalf of the hardware.
// Observers are not notified.
func (m *Map) Store(r Register, v uint8) {
	m.mu.Lock()
	m.mem[r] = v
	m.mu.Unlock()
}

// Store16 sets a 16-bit register pair on behalf of the hardware, updating
// both bytes together. Observers are not notified.
func (m *Map) Store16(low Register, v uint16) {
	m.mu.Lock()
	m.mem[low] = uint8(v)
	m.mem[low+1] = uint8(v >> 8)
	m.mu.Unlock()
}

// Update performs a read/modify/write on behalf of the hardware and returns
// the new value. Observers are not notified.
func (m *Map) Update(r Register, clear, set uint8) uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.mem[r]&^clear | set
	m.mem[r] = v
	return v
}

// Snapshot returns a copy of the register file.
func (m *Map) Snapshot() []uint8 {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := make([]uint8, len(m.mem))
	copy(s, m.mem)
	return s
}

// Close releases the backing memory of a Map created by OpenFile.
// It is a no-op for a Map created by New.
func (m *Map) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	m.mem = make([]uint8, MemLength)
	return err
}

func notify(oo []WriteObserver, old, v uint8) {
	for _, o := range oo {
		o(old, v)
	}
}
