// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package monitor

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConn is a connection fed by the test through an io.Pipe.
type pipeConn struct {
	*io.PipeReader
	w *io.PipeWriter
}

func newPipeConn() *pipeConn {
	r, w := io.Pipe()
	return &pipeConn{PipeReader: r, w: w}
}

func (c *pipeConn) Write(p []byte) (int, error) {
	return len(p), nil
}

func (c *pipeConn) Close() error {
	c.w.Close()
	return c.PipeReader.Close()
}

func waitRecord(t *testing.T, ch <-chan Record) Record {
	t.Helper()
	select {
	case r, ok := <-ch:
		require.True(t, ok, "samples closed")
		return r
	case <-time.After(time.Second):
		t.Fatal("no sample")
	}
	return Record{}
}

func TestPort(t *testing.T) {
	conn := newPipeConn()
	p := newPort("test", conn, 0)
	go conn.w.Write([]byte("512\r10"))
	r := waitRecord(t, p.Samples())
	assert.Equal(t, uint16(512), r.Sample)
	assert.False(t, r.Time.IsZero())

	go conn.w.Write([]byte("23\rxx\r0\r"))
	assert.Equal(t, uint16(1023), waitRecord(t, p.Samples()).Sample)
	assert.Equal(t, uint16(0), waitRecord(t, p.Samples()).Sample)

	assert.Nil(t, p.Close())
	_, ok := <-p.Samples()
	assert.False(t, ok)
	malformed, dropped := p.Errors()
	assert.Equal(t, uint32(1), malformed)
	assert.Equal(t, uint32(0), dropped)

	// already closed
	assert.Nil(t, p.Close())
}

func TestPortEOF(t *testing.T) {
	conn := newPipeConn()
	p := newPort("test", conn, 0)
	go func() {
		conn.w.Write([]byte("1\r2"))
		conn.w.Close()
	}()
	assert.Equal(t, uint16(1), waitRecord(t, p.Samples()).Sample)
	// trailing unterminated record
	assert.Equal(t, uint16(2), waitRecord(t, p.Samples()).Sample)
	_, ok := <-p.Samples()
	assert.False(t, ok)
	assert.Nil(t, p.Close())
}

func TestPortDropped(t *testing.T) {
	conn := newPipeConn()
	p := newPort("test", conn, 1)
	conn.w.Write([]byte("1\r"))
	conn.w.Write([]byte("2\r3\r"))
	conn.w.Close()
	// wait for the reader to finish
	<-p.done
	assert.Equal(t, uint16(1), waitRecord(t, p.Samples()).Sample)
	_, dropped := p.Errors()
	assert.Equal(t, uint32(2), dropped)
	assert.Nil(t, p.Close())
}

func TestOpenMissing(t *testing.T) {
	p, err := Open("/dev/does-not-exist", 0, 0)
	assert.NotNil(t, err)
	assert.Nil(t, p)
}
