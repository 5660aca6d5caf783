// SPDX-License-Identifier: MIT
//
// Copyright © 2019 Kent Gibson <warthog618@gmail.com>.

package adcmon

// MaxDigits is the number of decimal digits in the largest uint16.
const MaxDigits = 5

// Digits holds the decimal ASCII form of a sample.
type Digits [MaxDigits]byte

// Encode returns the decimal ASCII representation of v and the number of
// digits in it.
//
// Only the first n bytes of the returned Digits are written, and n is always
// at least 1, so 0 encodes as "0".
func Encode(v uint16) (d Digits, n int) {
	// digits come out least significant first
	for {
		d[n] = '0' + byte(v%10)
		v /= 10
		n++
		if v == 0 {
			break
		}
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		d[i], d[j] = d[j], d[i]
	}
	return
}

// AppendSample appends the decimal ASCII form of v to dst.
func AppendSample(dst []byte, v uint16) []byte {
	d, n := Encode(v)
	return append(dst, d[:n]...)
}
