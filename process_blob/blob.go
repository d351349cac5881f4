package process_blob

import (
	"fmt"

	"sigmem/process"
)

// ProcessBlob is a single contiguous buffer mapped at a base address, for
// example a module image copied out of a target or read from a file. It
// satisfies process.Accessor so pointers and resolvers can run against it.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	pointerSize process.ProcessMemorySize
}

var _ process.Accessor = (*ProcessBlob)(nil)

// NewProcessBlob wraps data without copying. Pointers are 8 bytes wide until
// SetPointerSize says otherwise.
func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		pointerSize: process.PointerSize64,
	}
}

func (p *ProcessBlob) SetPointerSize(size process.ProcessMemorySize) {
	p.pointerSize = size
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

// Module describes the blob as a loaded image named name.
func (p *ProcessBlob) Module(name string) process.Module {
	return process.Module{
		Name: name,
		Base: p.baseaddress,
		Size: process.ProcessMemorySize(len(p.data)),
	}
}

func (p *ProcessBlob) PointerSize() process.ProcessMemorySize {
	return p.pointerSize
}

func (p *ProcessBlob) span(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (uint64, bool) {
	if addr < p.baseaddress {
		return 0, false
	}
	offset := uint64(addr - p.baseaddress)
	if offset > uint64(len(p.data)) || uint64(size) > uint64(len(p.data))-offset {
		return 0, false
	}
	return offset, true
}

// ReadMemory returns a copy of size bytes at addr.
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	offset, ok := p.span(addr, size)
	if !ok {
		return nil, process.ReadError(addr, size, fmt.Errorf("%w: outside blob at %s", process.ErrAddressNotMapped, p.baseaddress.ToString()))
	}

	result := make([]byte, size)
	copy(result, p.data[offset:])
	return result, nil
}

// WriteMemory patches the blob in place.
func (p *ProcessBlob) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	size := process.ProcessMemorySize(len(data))
	offset, ok := p.span(addr, size)
	if !ok {
		return process.WriteError(addr, size, fmt.Errorf("%w: outside blob at %s", process.ErrAddressNotMapped, p.baseaddress.ToString()))
	}

	copy(p.data[offset:], data)
	return nil
}
