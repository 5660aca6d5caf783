// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import "time"

// Config holds the one-time peripheral setup applied by Init.
//
// The values are written to the registers verbatim, so they follow the
// datasheet encodings. DefaultConfig returns the values for a 16MHz part
// ticking every 5ms and reporting ADC5 at 19200 baud.
type Config struct {
	// Clock is the CPU clock frequency in Hz.
	Clock uint32

	// Timer1
	TCCR1A uint8
	TCCR1B uint8
	TIMSK1 uint8
	// Reload is the TCNT1 value loaded at start and after every overflow.
	Reload uint16

	// USART0
	UCSR0B uint8
	UCSR0C uint8
	UBRR0  uint16

	// ADC
	ADMUX  uint8
	ADCSRA uint8

	// Ports and external interrupt
	DDRB  uint8
	DDRD  uint8
	PORTD uint8
	EICRA uint8
	EIMSK uint8
}

// DefaultConfig returns the standard firmware setup.
func DefaultConfig() Config {
	return Config{
		Clock:  16000000,
		TCCR1A: 0,     // normal mode
		TCCR1B: 2,     // clk/8
		TIMSK1: TOIE1, // overflow interrupt
		Reload: 55535, // overflow after 10001 counts
		UCSR0B: 0x18,  // TX and RX enabled
		UCSR0C: 0x06,  // 8N1
		UBRR0:  51,    // 19200 baud @ 16MHz
		ADMUX:  0x45,  // AVcc reference, ADC5
		ADCSRA: 0x8e,  // enabled, interrupt, clk/64
		DDRB:   0xff,  // indicator port all outputs
		DDRD:   0,     // inputs
		PORTD:  PD2,   // pull-up on INT0
		EICRA:  2,     // INT0 on falling edge
		EIMSK:  INT0,
	}
}

var timerPrescale = [8]uint32{0, 1, 8, 64, 256, 1024, 0, 0}

// TimerPrescale returns the Timer1 clock divider selected by TCCR1B, or 0
// if the timer is stopped or externally clocked.
func TimerPrescale(tccr1b uint8) uint32 {
	return timerPrescale[tccr1b&CS1Mask]
}

// ADCPrescale returns the ADC clock divider selected by ADCSRA.
func ADCPrescale(adcsra uint8) uint32 {
	ps := adcsra & ADPSMask
	if ps == 0 {
		return 2
	}
	return 1 << ps
}

// TickPeriod returns the interval between Timer1 overflow ticks, or 0 if
// the timer is stopped.
func (c Config) TickPeriod() time.Duration {
	ps := TimerPrescale(c.TCCR1B)
	if ps == 0 || c.Clock == 0 {
		return 0
	}
	counts := uint64(0x10000 - uint32(c.Reload))
	return time.Duration(counts * uint64(ps) * uint64(time.Second) / uint64(c.Clock))
}

// BaudRate returns the USART0 bit rate in normal speed mode.
func (c Config) BaudRate() uint32 {
	return c.Clock / (16 * (uint32(c.UBRR0) + 1))
}

// Channel returns the ADC input selected by ADMUX.
func (c Config) Channel() uint8 {
	return c.ADMUX & MUXMask
}

// Init applies the one-time setup to the peripherals, in the order timer,
// serial, ADC then ports.
//
// Init does not enable interrupts globally; that is left as the caller's
// final step once the handlers are in place.
func Init(b Bus, c Config) {
	// Timer1
	b.Write(TCCR1A, c.TCCR1A)
	b.Write(TCCR1B, c.TCCR1B)
	b.Write(TIMSK1, c.TIMSK1)
	Write16(b, TCNT1L, c.Reload)

	// USART0
	b.Write(UCSR0C, c.UCSR0C)
	Write16(b, UBRR0L, c.UBRR0)
	b.Write(UCSR0B, c.UCSR0B)

	// ADC
	b.Write(ADMUX, c.ADMUX)
	b.Write(ADCSRA, c.ADCSRA)
	NewADC(b).DisableDigitalInput(c.Channel())

	// Ports
	b.Write(DDRB, c.DDRB)
	b.Write(DDRD, c.DDRD)
	b.Write(EICRA, c.EICRA)
	b.Write(EIMSK, c.EIMSK)
	b.Write(PORTD, c.PORTD)
}
