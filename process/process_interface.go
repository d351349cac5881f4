package process

import (
	"sigmem/process/memory_map"
)

// Accessor is the memory capability everything above this package depends on.
// Reads and writes either transfer every byte or fail; a failure always wraps
// ErrMemoryAccessDenied.
type Accessor interface {
	// ReadMemory reads size bytes at addr
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// WriteMemory writes data at addr
	WriteMemory(addr ProcessMemoryAddress, data []byte) error

	// PointerSize is the width of a pointer in the target, 4 or 8
	PointerSize() ProcessMemorySize
}

// Process is an attached target. Implementations own the OS handle and a
// cached memory map; they may be shared between goroutines.
type Process interface {
	Accessor

	// GetPID returns the process ID
	GetPID() ProcessID

	// Name returns the executable name the process was found by
	Name() string

	// Close closes the process and releases resources
	Close() error

	// IsAlive reports whether the target is still running. It is cheap enough
	// to call once per poll.
	IsAlive() bool

	// UpdateMemoryMap refreshes the memory map for the process
	UpdateMemoryMap() error

	// GetMemoryMap returns a copy of the current memory map
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)

	// IsValidAddress checks if the given memory address is mapped and readable
	IsValidAddress(addr ProcessMemoryAddress) bool

	// MainModule returns the primary executable image
	MainModule() (Module, error)

	// Modules returns every loaded module, main module first
	Modules() ([]Module, error)

	// Save saves the process memory and metadata to a directory
	Save(dirname string) error
}
