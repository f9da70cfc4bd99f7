package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Number is a JSON scalar that may arrive as a number or as a numeric
// string. CSV-sourced producers emit bare numbers, but replayed or
// hand-fed payloads often quote them, so both forms decode to the same
// value. The raw text is preserved so downstream exact-decimal
// conversion never round-trips through a float64.
type Number struct {
	raw string
}

// NewNumber wraps a raw textual value without validating it. Use
// CoerceNumber when a fallback for unparsable input is wanted.
func NewNumber(raw string) Number {
	return Number{raw: raw}
}

// NumberFromFloat formats f with the shortest representation that
// round-trips.
func NumberFromFloat(f float64) Number {
	return Number{raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// CoerceNumber parses s as a decimal number and keeps its original text
// when it is well formed. Blank or unparsable input coerces to zero.
func CoerceNumber(s string) Number {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return Number{raw: "0"}
	}
	return Number{raw: s}
}

// UnmarshalJSON accepts a JSON number or a quoted numeric string. A
// malformed value is kept verbatim; Float reports the parse failure so
// validation can name the offending text.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	n.raw = s
	return nil
}

// MarshalJSON emits well-formed values as bare JSON numbers and
// anything else as a quoted string so bad input survives transport
// unchanged.
func (n Number) MarshalJSON() ([]byte, error) {
	if n.raw == "" {
		return []byte("0"), nil
	}
	if _, err := strconv.ParseFloat(n.raw, 64); err != nil {
		return []byte(strconv.Quote(n.raw)), nil
	}
	return []byte(n.raw), nil
}

func (n Number) String() string {
	if n.raw == "" {
		return "0"
	}
	return n.raw
}

// Float parses the value, failing on non-numeric text.
func (n Number) Float() (float64, error) {
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing number %q: %w", n.raw, err)
	}
	return f, nil
}

// FloatOr parses the value, substituting fallback for non-numeric text.
func (n Number) FloatOr(fallback float64) float64 {
	f, err := n.Float()
	if err != nil {
		return fallback
	}
	return f
}
