// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warthog618/adcmon"
	"github.com/warthog618/adcmon/profile"
)

func TestFlagKey(t *testing.T) {
	assert.Equal(t, "ready.timeout", flagKey("ready-timeout"))
	assert.Equal(t, "port", flagKey("port"))
}

func TestParseSample(t *testing.T) {
	v, err := parseSample("0x3ff")
	assert.Nil(t, err)
	assert.Equal(t, uint16(1023), v)
	_, err = parseSample("65536")
	assert.NotNil(t, err)
}

func TestRecordPrinter(t *testing.T) {
	var buf bytes.Buffer
	stops := 0
	p := newRecordPrinter(&buf, false, 2, func() { stops++ })
	p.Write([]byte("hi\r51"))
	p.Write([]byte("2\r0\r"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, `text: "hi"`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "sample:   512 "))
	assert.True(t, strings.HasPrefix(lines[2], "sample:     0 "))
	assert.Equal(t, 1, stops)
}

func TestRecordPrinterQuiet(t *testing.T) {
	var buf bytes.Buffer
	p := newRecordPrinter(&buf, true, 0, func() {})
	n, err := p.Write([]byte("1\r2\r"))
	assert.Nil(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, uint(2), p.count)
	assert.Empty(t, buf.String())
}

func TestNest(t *testing.T) {
	n := nest(map[string]interface{}{
		"port":          "x",
		"ready.timeout": "1s",
		"tx.timeout":    "2s",
		"num.samples":   3,
	})
	assert.Equal(t, map[string]interface{}{
		"port":  "x",
		"ready": map[string]interface{}{"timeout": "1s"},
		"tx":    map[string]interface{}{"timeout": "2s"},
		"num":   map[string]interface{}{"samples": 3},
	}, n)
}

// execute runs the command line args, returning what the command wrote.
// Flags keep their values between calls, as cobra commands are global.
func execute(args ...string) (string, error) {
	var buf bytes.Buffer
	rootCmd.SetOutput(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRun(t *testing.T) {
	out, err := execute("run", "--speed", "0", "-n", "3", "-v", "700", "--banner", "adcmon")
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `text: "adcmon"`, lines[0])
	for _, l := range lines[1:] {
		assert.True(t, strings.HasPrefix(l, "sample:   700 "), l)
	}
}

func TestEncode(t *testing.T) {
	out, err := execute("encode", "0", "512", "0xffff")
	require.Nil(t, err)
	assert.Equal(t,
		"    0: \"0\\r\" (1)\n"+
			"  512: \"512\\r\" (3)\n"+
			"65535: \"65535\\r\" (5)\n",
		out)

	_, err = execute("encode", "70000")
	assert.NotNil(t, err)
}

func TestRegs(t *testing.T) {
	out, err := execute("regs")
	require.Nil(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, len(regNames)+1)
	assert.Equal(t, "tick: 5.0005ms, baud: 19230, channel: 5", lines[0])
	assert.Contains(t, lines, "ADCSRA  0x7a: 0x8e 10001110")
	assert.Contains(t, lines, "ADMUX   0x7c: 0x45 01000101")
	assert.Contains(t, lines, "DIDR0   0x7e: 0x20 00100000")
	assert.Contains(t, lines, "UBRR0L  0xc4: 0x33 00110011")
	assert.Contains(t, lines, "TCNT1H  0x85: 0xd8 11011000")
	assert.Contains(t, lines, "SREG    0x5f: 0x00 00000000")

	out, err = execute("regs", "--short")
	require.Nil(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Fields(lines[1]), len(regNames))
	assert.True(t, strings.HasPrefix(lines[1], "ff 00 00 04 "), lines[1])

	// live image, closed again once displayed
	path := filepath.Join(t.TempDir(), "regs.img")
	m, err := adcmon.OpenFile(path)
	require.Nil(t, err)
	m.Write(adcmon.ADMUX, 0x47)
	require.Nil(t, m.Close())
	out, err = execute("regs", "--regfile", path)
	require.Nil(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, len(regNames))
	for i, r := range regNames {
		if r.reg == adcmon.ADMUX {
			assert.Equal(t, "47", fields[i])
		}
	}

	out, err = execute("regs", "--yaml")
	require.Nil(t, err)
	p, err := profile.Decode([]byte(out))
	require.Nil(t, err)
	assert.Equal(t, profile.Default(), p)
}
