// Package search discovers pointer chains: starting from a root address it
// walks the pointers reachable within a bounded depth and reports every path
// that leads to a wanted value.
package search

import (
	"errors"
	"unsafe"

	"sigmem/aob"
	"sigmem/pointer"
	"sigmem/process"
)

// Target is what Search walks. Every process.Process satisfies it.
type Target interface {
	process.Accessor
	IsValidAddress(addr process.ProcessMemoryAddress) bool
}

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	SearchFor     func([]byte) bool
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithSearchForType matches the in-memory bytes of val.
func WithSearchForType[T any](val T) Option {
	size := int(unsafe.Sizeof(val))
	want := make([]byte, size)
	copy(want, unsafe.Slice((*byte)(unsafe.Pointer(&val)), size))

	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			if len(data) < size {
				return false
			}
			return string(data[:size]) == string(want)
		}
	}
}

// WithSearchForPattern matches a byte signature, wildcards included.
func WithSearchForPattern(p aob.Pattern) Option {
	return func(s *Searcher) {
		s.SearchFor = func(data []byte) bool {
			return p.MatchAt(data, 0)
		}
	}
}

// SearchResult is one path to the value. Path is in pointer chain form:
// pointer.New(target, root, Path...) resolves to Address.
type SearchResult struct {
	Path    []process.ProcessMemoryOffset
	Address process.ProcessMemoryAddress
}

// Pointer builds the chain for this result.
func (r SearchResult) Pointer(acc process.Accessor, root process.ProcessMemoryAddress) *pointer.Pointer {
	return pointer.New(acc, root, r.Path...)
}

var ErrNoSearchTarget = errors.New("no search target specified")

// Search dereferences root and scans the structure it points at. Pointer
// fields that lead to valid addresses are followed up to MaxDepth levels.
func Search(target Target, root process.ProcessMemoryAddress, options ...Option) ([]SearchResult, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.SearchFor == nil {
		return nil, ErrNoSearchTarget
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	base, err := process.ReadPointer(target, root)
	if err != nil {
		return nil, err
	}
	if base == 0 {
		return nil, &pointer.ChainError{Index: 0, Address: root, Err: process.ErrChainBroken}
	}

	ptrSize := uint(target.PointerSize())
	var results []SearchResult
	visited := make(map[process.ProcessMemoryAddress]bool)

	var searchRecursive func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemoryOffset)
	searchRecursive = func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemoryOffset) {
		if depth > s.MaxDepth || visited[addr] {
			return
		}
		visited[addr] = true

		data, err := target.ReadMemory(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			return
		}

		for offset := uint(0); offset < uint(len(data)); offset += s.MinAlignment {
			here := append(append([]process.ProcessMemoryOffset(nil), path...), process.ProcessMemoryOffset(offset))

			if s.SearchFor(data[offset:]) {
				results = append(results, SearchResult{
					Path:    here,
					Address: addr.Add(process.ProcessMemoryOffset(offset)),
				})
			}

			if offset%ptrSize != 0 || depth == s.MaxDepth || offset+ptrSize > uint(len(data)) {
				continue
			}

			ptr, err := process.DecodePointer(data[offset:], target.PointerSize())
			if err != nil || ptr == 0 || !target.IsValidAddress(ptr) {
				continue
			}
			searchRecursive(ptr, depth+1, here)
		}
	}

	searchRecursive(base, 0, nil)

	return results, nil
}
