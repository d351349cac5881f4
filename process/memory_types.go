package process

import (
	"fmt"
)

// ProcessMemoryAddress represents an absolute address inside the target process.
// It is only a number: nothing in this module ever turns it into a Go pointer.
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Add applies a signed offset with wrap-around, the way the target CPU would.
func (pma ProcessMemoryAddress) Add(offset ProcessMemoryOffset) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(offset)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// ProcessMemoryOffset is a signed byte offset used in pointer chains and
// relative displacements.
type ProcessMemoryOffset int64

func (pmo ProcessMemoryOffset) ToString() string {
	if pmo < 0 {
		return fmt.Sprintf("-0x%X", uint64(-pmo))
	}
	return fmt.Sprintf("0x%X", uint64(pmo))
}

// Pointer widths supported by Accessor.PointerSize.
const (
	PointerSize32 ProcessMemorySize = 4
	PointerSize64 ProcessMemorySize = 8
)
