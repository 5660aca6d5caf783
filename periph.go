// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import (
	"time"
)

// Level represents the high (true) or low (false) level of an output.
type Level bool

// Level of an output, High / Low
const (
	Low  Level = false
	High Level = true
)

// Indicator is the status LED.
type Indicator struct {
	bus  Bus
	port Register
	ddr  Register
	mask uint8
}

// NewIndicator creates the status LED on PORTB bit 6.
func NewIndicator(b Bus) *Indicator {
	return &Indicator{bus: b, port: PORTB, ddr: DDRB, mask: PB6}
}

// Output sets the indicator pin as an output.
func (i *Indicator) Output() {
	i.bus.Modify(i.ddr, 0, i.mask)
}

// Toggle inverts the indicator with a read/modify/write of the port.
func (i *Indicator) Toggle() {
	i.bus.Toggle(i.port, i.mask)
}

// Level returns the level currently driven on the indicator.
func (i *Indicator) Level() Level {
	return i.bus.Read(i.port)&i.mask != 0
}

// Timer1 is the 16-bit timer providing the acquisition tick.
type Timer1 struct {
	bus    Bus
	reload uint16
}

// NewTimer1 creates a Timer1 that restarts from reload after each overflow.
func NewTimer1(b Bus, reload uint16) *Timer1 {
	return &Timer1{bus: b, reload: reload}
}

// Reload restarts the count so the next overflow is a full period away.
func (t *Timer1) Reload() {
	Write16(t.bus, TCNT1L, t.reload)
}

// Count returns the current counter value.
func (t *Timer1) Count() uint16 {
	return Read16(t.bus, TCNT1L)
}

// EnableOverflowInterrupt enables the TIMER1_OVF interrupt.
func (t *Timer1) EnableOverflowInterrupt() {
	t.bus.Modify(TIMSK1, 0, TOIE1)
}

// DisableOverflowInterrupt disables the TIMER1_OVF interrupt.
func (t *Timer1) DisableOverflowInterrupt() {
	t.bus.Modify(TIMSK1, TOIE1, 0)
}

// ADC is the on-chip analog to digital converter.
type ADC struct {
	bus Bus
}

// NewADC creates an ADC.
func NewADC(b Bus) *ADC {
	return &ADC{bus: b}
}

// StartConversion requests a single conversion of the selected channel.
func (a *ADC) StartConversion() {
	a.bus.Modify(ADCSRA, 0, ADSC)
}

// Converting reports whether a conversion is in progress.
func (a *ADC) Converting() bool {
	return a.bus.Read(ADCSRA)&ADSC != 0
}

// SelectChannel selects the input channel for subsequent conversions,
// leaving the reference and adjust bits untouched.
func (a *ADC) SelectChannel(ch uint8) {
	a.bus.Modify(ADMUX, MUXMask, ch&MUXMask)
}

// Channel returns the selected input channel.
func (a *ADC) Channel() uint8 {
	return a.bus.Read(ADMUX) & MUXMask
}

// DisableDigitalInput disables the digital input buffer on an analog pin,
// reducing power when the pin is used only for conversion. Only ADC0 to
// ADC5 have a buffer; other channels are ignored.
func (a *ADC) DisableDigitalInput(ch uint8) {
	if ch < 6 {
		a.bus.Modify(DIDR0, 0, 1<<ch)
	}
}

// EnableDigitalInput re-enables the digital input buffer on an analog pin.
func (a *ADC) EnableDigitalInput(ch uint8) {
	if ch < 6 {
		a.bus.Modify(DIDR0, 1<<ch, 0)
	}
}

// UseChannel moves conversions to ch, restoring the digital input of the
// previous channel and disabling that of the new one.
func (a *ADC) UseChannel(ch uint8) {
	a.EnableDigitalInput(a.Channel())
	a.SelectChannel(ch)
	a.DisableDigitalInput(ch & MUXMask)
}

// Sample returns the result of the latest completed conversion.
//
// ADCL must be read first, which locks ADCH until it is read.
func (a *ADC) Sample() uint16 {
	l := a.bus.Read(ADCL)
	h := a.bus.Read(ADCH)
	return uint16(h)<<8 | uint16(l)
}

// Convert performs a single polled conversion and returns its result.
//
// It is not for use while conversions are being driven by the tick, as the
// conversion complete interrupt will also fire.
func (a *ADC) Convert(timeout time.Duration) (uint16, error) {
	a.StartConversion()
	if err := WaitBits(a.bus, ADCSRA, ADSC, 0, timeout); err != nil {
		return 0, err
	}
	return a.Sample(), nil
}

// USART is the transmit side of USART0.
type USART struct {
	bus Bus
}

// NewUSART creates a USART.
func NewUSART(b Bus) *USART {
	return &USART{bus: b}
}

// TxReady reports whether the transmit buffer can accept another byte.
func (u *USART) TxReady() bool {
	return u.bus.Read(UCSR0A)&UDRE0 != 0
}

// TxComplete reports whether all written bytes have been shifted out.
func (u *USART) TxComplete() bool {
	return u.bus.Read(UCSR0A)&TXC0 != 0
}

// ClearTxComplete clears the transmit complete flag.
// The flag is cleared by writing a one to it.
func (u *USART) ClearTxComplete() {
	u.bus.Modify(UCSR0A, 0, TXC0)
}

// WriteData writes a byte to the transmit buffer without checking that it
// is ready.
func (u *USART) WriteData(b byte) {
	u.bus.Write(UDR0, b)
}
