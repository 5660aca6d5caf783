// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/monitor"
)

// records returns a channel receiving each record sent through UDR0.
func records(m *adcmon.Map) <-chan string {
	ch := make(chan string, 100)
	var rec []byte
	m.OnWrite(adcmon.UDR0, func(_, v uint8) {
		rec = append(rec, v)
		if v == '\r' {
			select {
			case ch <- string(rec):
			default:
			}
			rec = rec[:0]
		}
	})
	return ch
}

func nextRecord(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(time.Second):
		t.Fatal("no record")
	}
	return ""
}

func TestCycle(t *testing.T) {
	patterns := []struct {
		name   string
		h, l   uint8
		sample uint16
		rec    string
	}{
		{"zero", 0, 0, 0, "0\r"},
		{"mid", 0x02, 0x00, 512, "512\r"},
		{"split", 0x02, 0x34, 0x0234, "564\r"},
		{"max", 0x03, 0xff, 1023, "1023\r"},
	}
	for _, p := range patterns {
		tf := func(t *testing.T) {
			m, a := setupAcquirer()
			ch := records(m)
			m.Store(adcmon.ADCH, p.h)
			m.Store(adcmon.ADCL, p.l)
			s, err := a.Cycle()
			assert.Nil(t, err)
			assert.Equal(t, p.sample, s)
			assert.Equal(t, p.rec, nextRecord(t, ch))
			assert.Equal(t, uint32(1), a.Stats().Cycles)
		}
		t.Run(p.name, tf)
	}
}

func TestCycleTxTimeout(t *testing.T) {
	m, a := setupAcquirer(adcmon.WithTxTimeout(time.Millisecond))
	m.Store16(adcmon.ADCL, 512)
	m.Store(adcmon.UCSR0A, 0)
	s, err := a.Cycle()
	assert.True(t, errors.Is(err, adcmon.ErrTimeout), err)
	assert.Contains(t, err.Error(), "transmit sample 512")
	assert.Equal(t, uint16(512), s)
	assert.Equal(t, uint32(0), a.Stats().Cycles)
}

func TestRunGated(t *testing.T) {
	m, a := setupAcquirer()
	ch := records(m)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errs := make(chan error, 1)
	go func() {
		errs <- a.Run(ctx)
	}()

	// nothing sent until a conversion completes
	select {
	case r := <-ch:
		t.Fatalf("unexpected record %q", r)
	case <-time.After(5 * time.Millisecond):
	}
	for _, v := range []uint16{0, 100, 1023} {
		m.Store16(adcmon.ADCL, v)
		a.ConversionComplete()
		d, n := adcmon.Encode(v)
		assert.Equal(t, string(d[:n])+"\r", nextRecord(t, ch))
	}
	cancel()
	select {
	case err := <-errs:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, adcmon.Stats{Completions: 3, Cycles: 3}, a.Stats())
}

func TestRunReadyTimeout(t *testing.T) {
	_, a := setupAcquirer(adcmon.WithReadyTimeout(5 * time.Millisecond))
	start := time.Now()
	err := a.Run(context.Background())
	assert.True(t, errors.Is(err, adcmon.ErrTimeout), err)
	assert.True(t, time.Since(start) >= 5*time.Millisecond)
	assert.Equal(t, uint32(0), a.Stats().Cycles)
}

func TestRunFreeRun(t *testing.T) {
	m, a := setupAcquirer(adcmon.WithFreeRun())
	ch := records(m)
	m.Store16(adcmon.ADCL, 512)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- a.Run(ctx)
	}()
	// no conversions complete, but samples keep coming
	for i := 0; i < 5; i++ {
		assert.Equal(t, "512\r", nextRecord(t, ch))
	}
	cancel()
	select {
	case err := <-errs:
		assert.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, uint32(0), a.Stats().Completions)
	assert.GreaterOrEqual(t, a.Stats().Cycles, uint32(5))
}

func TestRunBanner(t *testing.T) {
	m, a := setupAcquirer(adcmon.WithBanner("hello"))
	ch := records(m)
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- a.Run(ctx)
	}()
	assert.Equal(t, "hello\r", nextRecord(t, ch))
	m.Store16(adcmon.ADCL, 512)
	a.ConversionComplete()
	// the first sample is a record of its own
	rec := nextRecord(t, ch)
	assert.Equal(t, "512\r", rec)
	v, err := monitor.ParseRecord([]byte(strings.TrimSuffix(rec, "\r")))
	assert.Nil(t, err)
	assert.Equal(t, uint16(512), v)
	cancel()
	require.Equal(t, context.Canceled, <-errs)
}

func TestRunBannerTimeout(t *testing.T) {
	m, a := setupAcquirer(adcmon.WithBanner("hi"), adcmon.WithTxTimeout(time.Millisecond))
	m.Store(adcmon.UCSR0A, 0)
	err := a.Run(context.Background())
	assert.True(t, errors.Is(err, adcmon.ErrTimeout), err)
	assert.True(t, strings.HasPrefix(err.Error(), "transmit banner"))
}

func TestRunCancelled(t *testing.T) {
	_, a := setupAcquirer()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, a.Run(ctx))
}
