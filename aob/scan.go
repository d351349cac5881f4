package aob

import (
	"bytes"
	"fmt"
	"iter"
)

// MatchAt reports whether the pattern matches buf at offset i. Offsets that
// would run past either end of buf never match.
func (p Pattern) MatchAt(buf []byte, i int) bool {
	n := len(p.Bytes)
	if n == 0 || len(p.Mask) != n || i < 0 || i > len(buf)-n {
		return false
	}

	for j, b := range buf[i : i+n] {
		if p.Mask[j] == maskExact && b != p.Bytes[j] {
			return false
		}
	}
	return true
}

// Scan returns the lowest offset in buf where the pattern matches.
func (p Pattern) Scan(buf []byte) (int, error) {
	if !p.IsValid() {
		return -1, fmt.Errorf("%w: zero or inconsistent pattern", ErrMalformedPattern)
	}

	i := p.next(buf, 0)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrPatternNotFound, p)
	}
	return i, nil
}

// ScanAll yields every matching offset in ascending order. The sequence is
// lazy and each range over it starts from the beginning of buf again.
// Overlapping matches are all reported.
func (p Pattern) ScanAll(buf []byte) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !p.IsValid() {
			return
		}
		for i := p.next(buf, 0); i >= 0; i = p.next(buf, i+1) {
			if !yield(i) {
				return
			}
		}
	}
}

// ScanNth returns the offset of the nth match, counting from zero.
func (p Pattern) ScanNth(buf []byte, n int) (int, error) {
	if !p.IsValid() {
		return -1, fmt.Errorf("%w: zero or inconsistent pattern", ErrMalformedPattern)
	}
	if n < 0 {
		return -1, fmt.Errorf("negative occurrence %d", n)
	}

	seen := 0
	for i := range p.ScanAll(buf) {
		if seen == n {
			return i, nil
		}
		seen++
	}
	return -1, fmt.Errorf("%w: %s (occurrence %d, %d found)", ErrPatternNotFound, p, n, seen)
}

// Count returns the number of matches in buf.
func (p Pattern) Count(buf []byte) int {
	count := 0
	for range p.ScanAll(buf) {
		count++
	}
	return count
}

// next returns the lowest match at or after start, or -1.
func (p Pattern) next(buf []byte, start int) int {
	n := len(p.Bytes)
	last := len(buf) - n
	if start < 0 {
		start = 0
	}

	anchor := p.anchor()
	for i := start; i <= last; i++ {
		// Jump straight to the next position where the first exact byte lines up.
		if anchor >= 0 {
			k := bytes.IndexByte(buf[i+anchor:last+anchor+1], p.Bytes[anchor])
			if k < 0 {
				return -1
			}
			i += k
		}

		if p.MatchAt(buf, i) {
			return i
		}
	}
	return -1
}

// anchor returns the index of the first exact token, -1 for all-wildcard patterns.
func (p Pattern) anchor() int {
	for j, m := range p.Mask {
		if m == maskExact {
			return j
		}
	}
	return -1
}
