// Package amount converts between base-unit integer amounts and decimal
// strings. Decoding is exact string arithmetic on big integers: base-unit
// amounts routinely exceed the exact-integer range of float64, so floating
// point is allowed only for final display rounding, never for the decode step.
package amount

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for negative amounts or negative decimals.
var ErrInvalidAmount = errors.New("invalid amount")

// Decode places a decimal point `decimals` digits from the right of the
// base-10 representation of raw, left-padding with zeros when the
// representation is shorter than `decimals`. Trailing fractional zeros are
// trimmed; a whole value decodes without a fractional part.
func Decode(raw *big.Int, decimals int) (string, error) {
	if raw == nil || raw.Sign() < 0 || decimals < 0 {
		return "", ErrInvalidAmount
	}

	s := raw.String()
	if decimals == 0 {
		return s, nil
	}

	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}

	cut := len(s) - decimals
	intPart := s[:cut]
	fracPart := strings.TrimRight(s[cut:], "0")

	if fracPart == "" {
		return intPart, nil
	}
	return intPart + "." + fracPart, nil
}

// Encode reverses Decode: it converts a decimal string back to base units.
// The fractional part must fit in `decimals` digits.
func Encode(dec string, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrInvalidAmount
	}

	intPart := dec
	fracPart := ""
	if i := strings.IndexByte(dec, '.'); i >= 0 {
		intPart = dec[:i]
		fracPart = dec[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", ErrInvalidAmount, dec, decimals)
	}

	digits := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, dec)
	}
	return v, nil
}

// Format renders a decoded decimal string for human display:
//   - zero renders as "0"
//   - values below 0.01 use exponential notation with 2 fractional digits
//   - values below 1,000,000 use a comma-grouped decimal
//   - larger values are divided by 1,000,000 and suffixed "M"
//
// Display rounding may go through float64; the input string stays exact.
func Format(dec string) string {
	v, err := strconv.ParseFloat(dec, 64)
	if err != nil || v == 0 {
		return "0"
	}

	switch {
	case v < 0.01:
		return fmt.Sprintf("%.2e", v)
	case v < 1_000_000:
		return groupDecimal(dec)
	default:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
}

// groupDecimal groups the integer digits of an exact decimal string with
// commas and keeps at most two fractional digits, trailing zeros trimmed.
func groupDecimal(dec string) string {
	intPart := dec
	fracPart := ""
	if i := strings.IndexByte(dec, '.'); i >= 0 {
		intPart = dec[:i]
		fracPart = dec[i+1:]
	}

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	if len(fracPart) > 2 {
		fracPart = fracPart[:2]
	}
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
