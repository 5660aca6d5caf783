// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

// Package monitor reads the sample stream transmitted by the adcmon
// firmware.
//
// The stream is a sequence of records, each the decimal ASCII form of a
// sample followed by a carriage return. Records have no leading zeros,
// sign or whitespace.
package monitor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// MaxRecord is the longest valid record, excluding the terminator.
const MaxRecord = 5

var (
	// ErrMalformed indicates a record that is not a valid sample.
	ErrMalformed = errors.New("malformed record")
)

// ParseRecord parses a record, without its terminator, into a sample.
func ParseRecord(rec []byte) (uint16, error) {
	if len(rec) == 0 || len(rec) > MaxRecord {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, rec)
	}
	if rec[0] == '0' && len(rec) > 1 {
		return 0, fmt.Errorf("%w: leading zero in %q", ErrMalformed, rec)
	}
	var v uint32
	for _, c := range rec {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q", ErrMalformed, rec)
		}
		v = v*10 + uint32(c-'0')
	}
	if v > 0xffff {
		return 0, fmt.Errorf("%w: %q out of range", ErrMalformed, rec)
	}
	return uint16(v), nil
}

// splitRecords is a bufio.SplitFunc for carriage return terminated records.
func splitRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.IndexByte(data, '\r'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF && len(data) > 0 {
		// unterminated trailing record
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Scanner reads samples from a stream.
type Scanner struct {
	s      *bufio.Scanner
	sample uint16
	err    error
}

// NewScanner creates a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Split(splitRecords)
	return &Scanner{s: s}
}

// Scan advances to the next record, returning false at the end of the
// stream or on a read error.
//
// A malformed record does not stop the scan; Scan returns true and Err
// reports the problem for that record.
func (s *Scanner) Scan() bool {
	if !s.s.Scan() {
		s.err = s.s.Err()
		return false
	}
	s.sample, s.err = ParseRecord(s.s.Bytes())
	return true
}

// Sample returns the most recently scanned sample.
func (s *Scanner) Sample() uint16 {
	return s.sample
}

// Err returns the error for the most recent record, or the read error that
// stopped the scan.
func (s *Scanner) Err() error {
	return s.err
}
