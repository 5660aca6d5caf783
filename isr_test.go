// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warthog618/adcmon"
)

func setupAcquirer(options ...adcmon.Option) (*adcmon.Map, *adcmon.Acquirer) {
	m := adcmon.New()
	c := adcmon.DefaultConfig()
	adcmon.Init(m, c)
	return m, adcmon.NewAcquirer(m, c, options...)
}

func TestTimerTick(t *testing.T) {
	m, a := setupAcquirer()
	m.Store16(adcmon.TCNT1L, 3)
	m.Store(adcmon.PORTB, 0x01)

	a.TimerTick()
	assert.Equal(t, uint8(0x41), m.Read(adcmon.PORTB))
	assert.Equal(t, uint16(55535), adcmon.Read16(m, adcmon.TCNT1L))
	assert.Equal(t, adcmon.ADSC, m.Read(adcmon.ADCSRA)&adcmon.ADSC)
	// the rest of ADCSRA is untouched
	assert.Equal(t, uint8(0x8e), m.Read(adcmon.ADCSRA)&^adcmon.ADSC)
	assert.False(t, a.Ready().Peek())

	a.TimerTick()
	assert.Equal(t, uint8(0x01), m.Read(adcmon.PORTB))
	assert.Equal(t, adcmon.Stats{Ticks: 2}, a.Stats())
}

func TestConversionComplete(t *testing.T) {
	m, a := setupAcquirer()
	before := m.Snapshot()
	assert.False(t, a.Ready().Peek())
	a.ConversionComplete()
	assert.True(t, a.Ready().Peek())
	// only the flag changes
	assert.Equal(t, before, m.Snapshot())
	// counted once taken by the main loop, not here
	assert.Equal(t, adcmon.Stats{}, a.Stats())
	a.ConversionComplete()
	assert.Equal(t, adcmon.Stats{}, a.Stats())
}
