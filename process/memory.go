package process

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unsafe"
)

// SizeOf returns the in-memory size of T as it is transferred by Read and Write.
func SizeOf[T any]() ProcessMemorySize {
	var t T
	return ProcessMemorySize(unsafe.Sizeof(t))
}

// Read reads a single value of type T from memory.
// T must be plain data (integers, floats, arrays and structs of those); its
// bytes are copied verbatim, so the target and the host must agree on byte order.
func Read[T any](acc Accessor, addr ProcessMemoryAddress) (T, error) {
	var t T
	size := SizeOf[T]()
	if size == 0 {
		return t, errors.New("read: size of T is zero")
	}

	data, err := acc.ReadMemory(addr, size)
	if err != nil {
		return t, err
	}
	if ProcessMemorySize(len(data)) != size {
		return t, ReadError(addr, size, fmt.Errorf("short read: %d of %d bytes", len(data), size))
	}

	copyTo(&t, data)
	return t, nil
}

// Write writes a single value of type T to memory using its in-memory layout.
func Write[T any](acc Accessor, addr ProcessMemoryAddress, value T) error {
	size := int(unsafe.Sizeof(value))
	if size == 0 {
		return errors.New("write: size of T is zero")
	}

	src := unsafe.Slice((*byte)(unsafe.Pointer(&value)), size)
	data := make([]byte, size)
	copy(data, src)

	return acc.WriteMemory(addr, data)
}

// ReadPointer reads a pointer-sized little-endian value at addr. The width comes
// from the accessor, never from the host.
func ReadPointer(acc Accessor, addr ProcessMemoryAddress) (ProcessMemoryAddress, error) {
	size := acc.PointerSize()

	data, err := acc.ReadMemory(addr, size)
	if err != nil {
		return 0, err
	}

	ptr, err := DecodePointer(data, size)
	if err != nil {
		return 0, ReadError(addr, size, err)
	}
	return ptr, nil
}

// DecodePointer decodes a little-endian pointer of the given width.
func DecodePointer(data []byte, size ProcessMemorySize) (ProcessMemoryAddress, error) {
	if ProcessMemorySize(len(data)) < size {
		return 0, fmt.Errorf("pointer needs %d bytes, have %d", size, len(data))
	}

	switch size {
	case PointerSize32:
		return ProcessMemoryAddress(binary.LittleEndian.Uint32(data)), nil
	case PointerSize64:
		return ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
	default:
		return 0, fmt.Errorf("unsupported pointer size %d", size)
	}
}

// EncodePointer is the inverse of DecodePointer.
func EncodePointer(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	switch size {
	case PointerSize32:
		return binary.LittleEndian.AppendUint32(nil, uint32(addr)), nil
	case PointerSize64:
		return binary.LittleEndian.AppendUint64(nil, uint64(addr)), nil
	default:
		return nil, fmt.Errorf("unsupported pointer size %d", size)
	}
}

// ReadNTS reads a null-terminated string of at most maxLength bytes.
func ReadNTS(acc Accessor, addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error) {
	if maxLength == 0 {
		return "", nil
	}

	data, err := acc.ReadMemory(addr, maxLength)
	if err != nil {
		return "", err
	}

	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}
	return string(data), nil
}

// copyTo copies bytes to *T
func copyTo[T any](dst *T, src []byte) {
	size := int(unsafe.Sizeof(*dst))
	if len(src) < size {
		return
	}

	dstBytes := unsafe.Slice((*byte)(unsafe.Pointer(dst)), size)
	copy(dstBytes, src)
}
