package process

import (
	"errors"
	"testing"
)

// shortAccessor returns fewer bytes than asked for without an error.
type shortAccessor struct{}

func (shortAccessor) ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	return make([]byte, size/2), nil
}

func (shortAccessor) WriteMemory(addr ProcessMemoryAddress, data []byte) error {
	return nil
}

func (shortAccessor) PointerSize() ProcessMemorySize {
	return PointerSize64
}

func TestReadPointer_ShortRead(t *testing.T) {
	_, err := ReadPointer(shortAccessor{}, 0x1000)
	if !errors.Is(err, ErrMemoryAccessDenied) {
		t.Fatalf("expected ErrMemoryAccessDenied - got %v", err)
	}

	var accessErr *AccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected an *AccessError - got %T", err)
	}
}

func TestReadPointer(t *testing.T) {
	data, err := EncodePointer(0x7ff600001000, PointerSize64)
	if err != nil {
		t.Fatal(err)
	}

	ptr, err := DecodePointer(data, PointerSize64)
	if err != nil {
		t.Fatal(err)
	}
	if ptr != 0x7ff600001000 {
		t.Fatalf("expected 0x7FF600001000 - got %s", ptr.ToString())
	}
}
