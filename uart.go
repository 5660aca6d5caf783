// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

import (
	"io"
	"time"
)

// Transmitter sends bytes over USART0, pacing each byte on the transmit
// buffer becoming ready.
type Transmitter struct {
	bus   Bus
	usart *USART
	// Maximum time to wait for a status bit.
	timeout time.Duration
	// Idle time after each byte.
	delay time.Duration
}

var (
	_ io.Writer     = (*Transmitter)(nil)
	_ io.ByteWriter = (*Transmitter)(nil)
)

// NewTransmitter creates a Transmitter that waits at most timeout for the
// USART to become ready and idles for byteDelay after each byte.
func NewTransmitter(b Bus, timeout, byteDelay time.Duration) *Transmitter {
	return &Transmitter{
		bus:     b,
		usart:   NewUSART(b),
		timeout: timeout,
		delay:   byteDelay,
	}
}

// WriteByte sends a byte once the transmit buffer is empty.
func (t *Transmitter) WriteByte(c byte) error {
	if err := WaitBits(t.bus, UCSR0A, UDRE0, UDRE0, t.timeout); err != nil {
		return err
	}
	t.usart.WriteData(c)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	return nil
}

// Write sends p, stopping at the first byte that cannot be sent.
func (t *Transmitter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := t.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString sends s, waiting for each byte to be completely shifted out
// before sending the next.
func (t *Transmitter) WriteString(s string) error {
	for i := 0; i < len(s); i++ {
		t.usart.ClearTxComplete()
		if err := t.WriteByte(s[i]); err != nil {
			return err
		}
		if err := t.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// Flush waits until the transmitter reports all bytes sent.
func (t *Transmitter) Flush() error {
	return WaitBits(t.bus, UCSR0A, TXC0, TXC0, t.timeout)
}
