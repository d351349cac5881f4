// Package aob parses array-of-bytes signatures such as
//
//	48 8b 05 ? ? ? ? 48 8b 50 10
//
// and scans byte buffers for them. A signature is a sequence of exact bytes and
// wildcards; "?" and "??" both match any byte.
package aob

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMalformedPattern is returned for signature text that is empty or has
	// a token that is neither two hex digits nor a wildcard.
	ErrMalformedPattern = errors.New("malformed pattern")

	// ErrPatternNotFound is returned when a buffer holds no match.
	ErrPatternNotFound = errors.New("pattern not found")
)

const (
	maskExact    byte = 0xFF
	maskWildcard byte = 0x00
)

// ParseError reports the offending token of a malformed signature.
type ParseError struct {
	Index int    // token index, -1 when the whole text is empty
	Token string // offending token
}

func (e *ParseError) Error() string {
	if e.Index < 0 {
		return ErrMalformedPattern.Error() + ": empty signature"
	}
	return fmt.Sprintf("%s: token %d %q is neither a hex byte nor a wildcard", ErrMalformedPattern, e.Index, e.Token)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedPattern
}

// Pattern is a parsed signature. Bytes and Mask have the same non-zero length;
// Mask is 0xFF for exact positions and 0x00 for wildcards, whose Bytes entry is
// always zero. Build one with Parse or FromBytes and treat it as read-only.
type Pattern struct {
	Bytes []byte
	Mask  []byte
}

// Parse parses whitespace-separated tokens. Hex digits are case-insensitive.
func Parse(text string) (Pattern, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return Pattern{}, &ParseError{Index: -1}
	}

	p := Pattern{
		Bytes: make([]byte, len(tokens)),
		Mask:  make([]byte, len(tokens)),
	}

	for i, tok := range tokens {
		if tok == "?" || tok == "??" {
			p.Mask[i] = maskWildcard
			continue
		}

		if len(tok) != 2 {
			return Pattern{}, &ParseError{Index: i, Token: tok}
		}
		val, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return Pattern{}, &ParseError{Index: i, Token: tok}
		}

		p.Bytes[i] = byte(val)
		p.Mask[i] = maskExact
	}

	return p, nil
}

// MustParse is Parse for signatures known at compile time.
func MustParse(text string) Pattern {
	p, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return p
}

// FromBytes builds a pattern without wildcards.
func FromBytes(b []byte) (Pattern, error) {
	if len(b) == 0 {
		return Pattern{}, &ParseError{Index: -1}
	}

	p := Pattern{
		Bytes: make([]byte, len(b)),
		Mask:  make([]byte, len(b)),
	}
	copy(p.Bytes, b)
	for i := range p.Mask {
		p.Mask[i] = maskExact
	}
	return p, nil
}

// Len returns the number of tokens.
func (p Pattern) Len() int {
	return len(p.Bytes)
}

// IsValid checks the Bytes/Mask invariants.
func (p Pattern) IsValid() bool {
	if len(p.Bytes) == 0 || len(p.Bytes) != len(p.Mask) {
		return false
	}
	for i, m := range p.Mask {
		if m != maskExact && m != maskWildcard {
			return false
		}
		if m == maskWildcard && p.Bytes[i] != 0 {
			return false
		}
	}
	return true
}

// IsWildcard reports whether token i matches any byte.
func (p Pattern) IsWildcard(i int) bool {
	return p.Mask[i] == maskWildcard
}

// String renders the canonical form: lowercase hex pairs and "??".
func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.Bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.IsWildcard(i) {
			sb.WriteString("??")
			continue
		}
		fmt.Fprintf(&sb, "%02x", b)
	}
	return sb.String()
}
