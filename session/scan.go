package session

import (
	"fmt"
	"iter"

	"sigmem/aob"
	"sigmem/pointer"
	"sigmem/process"
)

// ScanError names the signature a scan or resolution failed for.
type ScanError struct {
	Pattern string
	Err     error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %q: %v", e.Pattern, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// scanNth returns the module-relative offset of the nth match of text.
func (s *Session) scanNth(text string, n int) (int, error) {
	p, err := aob.Parse(text)
	if err != nil {
		return 0, &ScanError{Pattern: text, Err: err}
	}

	image, err := s.MainModuleBytes()
	if err != nil {
		return 0, &ScanError{Pattern: text, Err: err}
	}

	offset, err := p.ScanNth(image, n)
	if err != nil {
		return 0, &ScanError{Pattern: text, Err: err}
	}
	s.log.Debugln("Pattern", text, "found at", s.main.Name, "+", fmt.Sprintf("0x%X", offset))
	return offset, nil
}

// Scan returns the absolute address of the first match inside the main module.
func (s *Session) Scan(pattern string) (process.ProcessMemoryAddress, error) {
	offset, err := s.scanNth(pattern, 0)
	if err != nil {
		return 0, err
	}
	return s.main.Base.Add(process.ProcessMemoryOffset(offset)), nil
}

// ScanAll yields the absolute address of every match, in ascending order.
func (s *Session) ScanAll(pattern string) (iter.Seq[process.ProcessMemoryAddress], error) {
	p, err := aob.Parse(pattern)
	if err != nil {
		return nil, &ScanError{Pattern: pattern, Err: err}
	}
	image, err := s.MainModuleBytes()
	if err != nil {
		return nil, &ScanError{Pattern: pattern, Err: err}
	}

	base := s.main.Base
	return func(yield func(process.ProcessMemoryAddress) bool) {
		for offset := range p.ScanAll(image) {
			if !yield(base.Add(process.ProcessMemoryOffset(offset))) {
				return
			}
		}
	}, nil
}

// ScanAndResolve finds pattern in the main module, decodes the RIP-relative
// operand at displacementOffset of an instruction instructionLength bytes long,
// and returns a Pointer rooted at the decoded address.
//
//	ptr, err := s.ScanAndResolve("48 8b 05 ? ? ? ? 48 8b 50 10", 3, 7, 0x10, 0x20)
func (s *Session) ScanAndResolve(pattern string, displacementOffset, instructionLength int, offsets ...process.ProcessMemoryOffset) (*pointer.Pointer, error) {
	return s.ScanAndResolveNth(0, pattern, displacementOffset, instructionLength, offsets...)
}

// ScanAndResolveNth is ScanAndResolve for the nth (0-based) match.
func (s *Session) ScanAndResolveNth(n int, pattern string, displacementOffset, instructionLength int, offsets ...process.ProcessMemoryOffset) (*pointer.Pointer, error) {
	offset, err := s.scanNth(pattern, n)
	if err != nil {
		return nil, err
	}

	scanAddr := s.main.Base.Add(process.ProcessMemoryOffset(offset))
	root, err := pointer.ResolveRelative(s, scanAddr, instructionLength, displacementOffset)
	if err != nil {
		return nil, &ScanError{Pattern: pattern, Err: err}
	}

	s.log.Debugln("Pattern", pattern, "resolves to", root.ToString())
	return s.CreatePointer(root, offsets...), nil
}

// ScanAbsolute finds pattern and roots a Pointer at the match plus scanOffset,
// for targets that embed absolute addresses in their code.
func (s *Session) ScanAbsolute(pattern string, scanOffset int, offsets ...process.ProcessMemoryOffset) (*pointer.Pointer, error) {
	return s.ScanAbsoluteNth(0, pattern, scanOffset, offsets...)
}

// ScanAbsoluteNth is ScanAbsolute for the nth (0-based) match.
func (s *Session) ScanAbsoluteNth(n int, pattern string, scanOffset int, offsets ...process.ProcessMemoryOffset) (*pointer.Pointer, error) {
	offset, err := s.scanNth(pattern, n)
	if err != nil {
		return nil, err
	}

	root := s.main.Base.Add(process.ProcessMemoryOffset(offset + scanOffset))
	return s.CreatePointer(root, offsets...), nil
}

// CreatePointer builds a Pointer over the session for an address obtained
// some other way.
func (s *Session) CreatePointer(address process.ProcessMemoryAddress, offsets ...process.ProcessMemoryOffset) *pointer.Pointer {
	p := pointer.New(s, address, offsets...)
	p.Debug = s.pointerDebug
	p.SetLogger(s.log)
	return p
}
