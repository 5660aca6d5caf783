// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/adcmon"
)

func waitInterrupt(ch chan int, timeout time.Duration) (int, error) {
	select {
	case v := <-ch:
		return v, nil
	case <-time.After(timeout):
		return 0, errors.New("timeout")
	}
}

func setupIntr(t *testing.T) (*adcmon.Map, *adcmon.Controller) {
	m := adcmon.New()
	c := adcmon.NewController(m)
	t.Cleanup(c.Close)
	return m, c
}

func TestRegister(t *testing.T) {
	_, c := setupIntr(t)
	ich := make(chan int)
	count := 0
	err := c.Register(adcmon.VectorTimer1Ovf, func() {
		count++
		ich <- count
	})
	require.Nil(t, err)
	c.Enable()
	_, err = waitInterrupt(ich, time.Millisecond)
	assert.NotNil(t, err, "spurious interrupt")

	c.Raise(adcmon.VectorTimer1Ovf)
	v, err := waitInterrupt(ich, time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 1, v)
	_, err = waitInterrupt(ich, time.Millisecond)
	assert.NotNil(t, err, "spurious interrupt")
}

func TestReregister(t *testing.T) {
	_, c := setupIntr(t)
	h := func() {}
	assert.Nil(t, c.Register(adcmon.VectorADC, h))
	assert.Equal(t, adcmon.ErrAlreadyRegistered, c.Register(adcmon.VectorADC, h))
	c.Unregister(adcmon.VectorADC)
	assert.Nil(t, c.Register(adcmon.VectorADC, h))
}

func TestDisabled(t *testing.T) {
	m, c := setupIntr(t)
	ich := make(chan int)
	require.Nil(t, c.Register(adcmon.VectorADC, func() {
		ich <- 1
	}))
	c.Raise(adcmon.VectorADC)
	_, err := waitInterrupt(ich, 5*time.Millisecond)
	assert.NotNil(t, err, "delivered while disabled")
	assert.True(t, c.Pending(adcmon.VectorADC))

	c.Enable()
	assert.Equal(t, adcmon.SREG_I, m.Read(adcmon.SREG)&adcmon.SREG_I)
	_, err = waitInterrupt(ich, time.Second)
	assert.Nil(t, err)
	assert.False(t, c.Pending(adcmon.VectorADC))

	c.Disable()
	assert.Equal(t, uint8(0), m.Read(adcmon.SREG)&adcmon.SREG_I)
	c.Raise(adcmon.VectorADC)
	_, err = waitInterrupt(ich, 5*time.Millisecond)
	assert.NotNil(t, err, "delivered while disabled")
}

func TestUnhandled(t *testing.T) {
	_, c := setupIntr(t)
	c.Enable()
	c.Raise(adcmon.VectorInt0)
	time.Sleep(time.Millisecond)
	// held until a handler is registered
	assert.True(t, c.Pending(adcmon.VectorInt0))

	ich := make(chan int)
	require.Nil(t, c.Register(adcmon.VectorInt0, func() {
		ich <- 1
	}))
	_, err := waitInterrupt(ich, time.Second)
	assert.Nil(t, err)
}

func TestFlagClearedOnEntry(t *testing.T) {
	m, c := setupIntr(t)
	m.Store(adcmon.TIFR1, adcmon.TOV1)
	m.Store(adcmon.ADCSRA, 0x8e|adcmon.ADIF)
	ich := make(chan int, 2)
	require.Nil(t, c.Register(adcmon.VectorTimer1Ovf, func() {
		ich <- int(m.Read(adcmon.TIFR1))
	}))
	require.Nil(t, c.Register(adcmon.VectorADC, func() {
		ich <- int(m.Read(adcmon.ADCSRA))
	}))
	c.Raise(adcmon.VectorTimer1Ovf)
	c.Raise(adcmon.VectorADC)
	c.Enable()
	v, err := waitInterrupt(ich, time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 0, v)
	v, err = waitInterrupt(ich, time.Second)
	assert.Nil(t, err)
	assert.Equal(t, 0x8e, v)
}

func TestPriority(t *testing.T) {
	_, c := setupIntr(t)
	var mu sync.Mutex
	var order []adcmon.Vector
	done := make(chan int, 3)
	for _, v := range []adcmon.Vector{adcmon.VectorADC, adcmon.VectorTimer1Ovf, adcmon.VectorInt0} {
		v := v
		require.Nil(t, c.Register(v, func() {
			mu.Lock()
			order = append(order, v)
			mu.Unlock()
			done <- 1
		}))
	}
	c.Raise(adcmon.VectorADC)
	c.Raise(adcmon.VectorTimer1Ovf)
	c.Raise(adcmon.VectorInt0)
	c.Enable()
	for i := 0; i < 3; i++ {
		_, err := waitInterrupt(done, time.Second)
		require.Nil(t, err)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []adcmon.Vector{adcmon.VectorInt0, adcmon.VectorTimer1Ovf, adcmon.VectorADC}, order)
}

func TestNoNesting(t *testing.T) {
	_, c := setupIntr(t)
	events := make(chan string, 4)
	require.Nil(t, c.Register(adcmon.VectorTimer1Ovf, func() {
		events <- "tick start"
		c.Raise(adcmon.VectorADC)
		time.Sleep(time.Millisecond)
		events <- "tick end"
	}))
	require.Nil(t, c.Register(adcmon.VectorADC, func() {
		events <- "adc"
	}))
	c.Enable()
	c.Raise(adcmon.VectorTimer1Ovf)
	var got []string
	for i := 0; i < 3; i++ {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatal("timeout")
		}
	}
	assert.Equal(t, []string{"tick start", "tick end", "adc"}, got)
}

func TestClosed(t *testing.T) {
	_, c := setupIntr(t)
	c.Close()
	assert.Equal(t, adcmon.ErrClosed, c.Register(adcmon.VectorADC, func() {}))
	c.Raise(adcmon.VectorADC)
	assert.False(t, c.Pending(adcmon.VectorADC))
	// enable after close is harmless
	c.Enable()
}
