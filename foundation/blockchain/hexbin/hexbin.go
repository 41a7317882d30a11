// Package hexbin converts hex digests into their binary digit form so the
// number of leading zero bits can be checked against a difficulty.
package hexbin

import (
	"fmt"
	"strings"
)

// table maps a hex digit to its four binary digits.
var table = [...]string{
	"0000", "0001", "0010", "0011",
	"0100", "0101", "0110", "0111",
	"1000", "1001", "1010", "1011",
	"1100", "1101", "1110", "1111",
}

// ToBinary returns the binary digit string for the hex string. Every hex
// digit becomes exactly four binary digits so leading zeros are preserved.
func ToBinary(hex string) (string, error) {
	var b strings.Builder
	b.Grow(len(hex) * 4)

	for i := 0; i < len(hex); i++ {
		v, err := nibble(hex[i])
		if err != nil {
			return "", fmt.Errorf("position %d: %w", i, err)
		}
		b.WriteString(table[v])
	}

	return b.String(), nil
}

// HasLeadingZeros reports whether the first n bits of the hex string are
// zero. A malformed hex string or one holding fewer than n bits never
// qualifies.
func HasLeadingZeros(hex string, n uint) bool {
	bin, err := ToBinary(hex)
	if err != nil {
		return false
	}

	if uint(len(bin)) < n {
		return false
	}

	for _, c := range bin[:n] {
		if c != '0' {
			return false
		}
	}

	return true
}

// nibble returns the value of a single hex digit.
func nibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	}

	return 0, fmt.Errorf("invalid hex digit %q", c)
}
