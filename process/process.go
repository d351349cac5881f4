// Package process defines the address types, the memory accessor capability and
// the process abstraction that the scanner, pointer and session packages consume.
//
// Platform implementations live in process_linux, process_windows and
// process_blob (snapshots). Nothing here talks to the operating system.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessNotRunning means the target is not attached: it was never found,
	// or it exited since the last refresh. Recoverable by refreshing later.
	ErrProcessNotRunning = errors.New("process not running")

	// ErrMemoryAccessDenied is wrapped by every failed read or write against the
	// target (exited process, protected page, invalid handle, partial transfer).
	ErrMemoryAccessDenied = errors.New("memory access denied")

	// ErrChainBroken means a pointer chain hit a null pointer before it was
	// exhausted. Usually the target has not allocated the structure yet.
	ErrChainBroken = errors.New("pointer chain broken")
)

// AccessError describes a failed transfer against the target address space.
// It always matches ErrMemoryAccessDenied with errors.Is, plus whatever cause
// the platform reported.
type AccessError struct {
	Op      string // "read" or "write"
	Address ProcessMemoryAddress
	Size    ProcessMemorySize
	Err     error
}

func (e *AccessError) Error() string {
	msg := e.Op + " " + e.Size.ToString() + " at " + e.Address.ToString() + ": " + ErrMemoryAccessDenied.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AccessError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMemoryAccessDenied}
	}
	return []error{ErrMemoryAccessDenied, e.Err}
}

// ReadError wraps cause as a failed read of size bytes at addr.
func ReadError(addr ProcessMemoryAddress, size ProcessMemorySize, cause error) error {
	return &AccessError{Op: "read", Address: addr, Size: size, Err: cause}
}

// WriteError wraps cause as a failed write of size bytes at addr.
func WriteError(addr ProcessMemoryAddress, size ProcessMemorySize, cause error) error {
	return &AccessError{Op: "write", Address: addr, Size: size, Err: cause}
}
