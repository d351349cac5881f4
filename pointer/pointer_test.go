package pointer

import (
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"sigmem/process"
	"sigmem/process_blob"
)

// newMemory maps 0x1000..0x4000 with:
//
//	*0x1000 = 0x2000
//	*0x2010 = 0x3000
func newMemory(t *testing.T, pointerSize process.ProcessMemorySize) *process_blob.ProcessBlob {
	t.Helper()

	blob := process_blob.NewProcessBlob(0x1000, make([]byte, 0x3000))
	blob.SetPointerSize(pointerSize)
	put := func(addr, value process.ProcessMemoryAddress) {
		data, err := process.EncodePointer(value, pointerSize)
		if err != nil {
			t.Fatal(err)
		}
		if err := blob.WriteMemory(addr, data); err != nil {
			t.Fatal(err)
		}
	}
	put(0x1000, 0x2000)
	put(0x2010, 0x3000)
	return blob
}

func TestResolve(t *testing.T) {
	for _, size := range []process.ProcessMemorySize{process.PointerSize64, process.PointerSize32} {
		mem := newMemory(t, size)

		tests := []struct {
			name    string
			offsets []process.ProcessMemoryOffset
			expAddr process.ProcessMemoryAddress
		}{
			{name: "empty chain", offsets: nil, expAddr: 0x1000},
			{name: "one hop", offsets: []process.ProcessMemoryOffset{0x10}, expAddr: 0x2010},
			{name: "two hops", offsets: []process.ProcessMemoryOffset{0x10, 0x20}, expAddr: 0x3020},
			{name: "negative offset", offsets: []process.ProcessMemoryOffset{0x10, -0x20}, expAddr: 0x2fe0},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := New(mem, 0x1000, tt.offsets...)
				addr, err := p.Resolve()
				if err != nil {
					t.Fatal(err)
				}
				if addr != tt.expAddr {
					t.Fatalf("pointer size %d: expected %s - got %s", size, tt.expAddr.ToString(), addr.ToString())
				}
				if p.LastResolved() != tt.expAddr {
					t.Fatalf("expected LastResolved %s - got %s", tt.expAddr.ToString(), p.LastResolved().ToString())
				}
			})
		}
	}
}

func TestResolve_Wraps32(t *testing.T) {
	mem := newMemory(t, process.PointerSize32)

	// *0x1000 = 0x2000, and 0x2000 - 0x3000 must wrap at 32 bits
	addr, err := New(mem, 0x1000, -0x3000).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0xFFFFF000 {
		t.Fatalf("expected 0xFFFFF000 - got %s", addr.ToString())
	}

	addr, err = New(mem, 0x1000, 0x10).Address(-0x3000)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0xFFFFF010 {
		t.Fatalf("expected 0xFFFFF010 - got %s", addr.ToString())
	}

	wide := newMemory(t, process.PointerSize64)
	addr, err = New(wide, 0x1000, -0x3000).Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0xFFFFFFFFFFFFF000 {
		t.Fatalf("expected 64-bit wrap 0xFFFFFFFFFFFFF000 - got %s", addr.ToString())
	}
}

func TestResolve_ChainBroken(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	if err := mem.WriteMemory(0x2010, make([]byte, 8)); err != nil {
		t.Fatal(err)
	}

	_, err := New(mem, 0x1000, 0x10, 0x20).Resolve()
	if !errors.Is(err, process.ErrChainBroken) {
		t.Fatalf("expected ErrChainBroken - got %v", err)
	}
	if errors.Is(err, process.ErrMemoryAccessDenied) {
		t.Fatalf("expected a null pointer not to look like access denied - got %v", err)
	}

	var chainErr *ChainError
	if !errors.As(err, &chainErr) {
		t.Fatalf("expected *ChainError - got %T", err)
	}
	if chainErr.Index != 1 || chainErr.Address != 0x2010 {
		t.Fatalf("expected step 1 at 0x2010 - got step %d at %s", chainErr.Index, chainErr.Address.ToString())
	}
}

func TestResolve_AccessDenied(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)

	_, err := New(mem, 0x9000, 0x10).Resolve()
	if !errors.Is(err, process.ErrMemoryAccessDenied) {
		t.Fatalf("expected ErrMemoryAccessDenied - got %v", err)
	}
	if errors.Is(err, process.ErrChainBroken) {
		t.Fatalf("expected an unmapped root not to look like a broken chain - got %v", err)
	}
}

func TestResolve_FollowsChanges(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	p := New(mem, 0x1000, 0x10, 0x20)

	if err := WriteAs[uint64](New(mem, 0x1000, 0x10), 0x3800); err != nil {
		t.Fatal(err)
	}

	addr, err := p.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x3820 {
		t.Fatalf("expected the chain to follow the new pointer to 0x3820 - got %s", addr.ToString())
	}
}

func TestReadWriteAs(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	p := New(mem, 0x1000, 0x10, 0x20)

	if err := WriteAs[uint32](p, 42); err != nil {
		t.Fatal(err)
	}
	v, err := ReadAs[uint32](p)
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("expected 42 - got %d", v)
	}

	raw, _ := mem.ReadMemory(0x3020, 4)
	if binary.LittleEndian.Uint32(raw) != 42 {
		t.Fatalf("expected 42 at 0x3020 - got %x", raw)
	}

	if err := WriteAs[float32](p, 1.5, 8); err != nil {
		t.Fatal(err)
	}
	f, err := p.ReadFLOAT32(8)
	if err != nil {
		t.Fatal(err)
	}
	if f != 1.5 {
		t.Fatalf("expected 1.5 - got %v", f)
	}

	if err := WriteAs[int16](p, math.MinInt16, 12); err != nil {
		t.Fatal(err)
	}
	i, err := p.ReadINT16(12)
	if err != nil {
		t.Fatal(err)
	}
	if i != math.MinInt16 {
		t.Fatalf("expected %d - got %d", math.MinInt16, i)
	}

	type vec3 struct{ X, Y, Z float32 }
	if err := WriteAs(p, vec3{1, 2, 3}, 0x40); err != nil {
		t.Fatal(err)
	}
	got, err := ReadAs[vec3](p, 0x40)
	if err != nil {
		t.Fatal(err)
	}
	if got != (vec3{1, 2, 3}) {
		t.Fatalf("expected {1 2 3} - got %v", got)
	}
}

func TestReadNTSAndBytes(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	p := New(mem, 0x1000, 0x10, 0x20)

	if err := p.WriteBytes([]byte("player\x00junk"), 0x80); err != nil {
		t.Fatal(err)
	}
	s, err := p.ReadNTS(32, 0x80)
	if err != nil {
		t.Fatal(err)
	}
	if s != "player" {
		t.Fatalf("expected %q - got %q", "player", s)
	}

	b, err := p.ReadBytes(3, 0x80)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "pla" {
		t.Fatalf("expected %q - got %q", "pla", b)
	}

	ptr, err := New(mem, 0x1000).ReadPOINTER()
	if err != nil {
		t.Fatal(err)
	}
	if ptr != 0x2000 {
		t.Fatalf("expected 0x2000 - got %s", ptr.ToString())
	}
}

func TestTooManyOffsets(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	p := New(mem, 0x1000)

	if _, err := p.ReadUINT32(1, 2); !errors.Is(err, ErrTooManyOffsets) {
		t.Fatalf("expected ErrTooManyOffsets - got %v", err)
	}
	if err := WriteAs[uint8](p, 1, 1, 2); !errors.Is(err, ErrTooManyOffsets) {
		t.Fatalf("expected ErrTooManyOffsets - got %v", err)
	}
}

func TestOffsetsAreCopied(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	offsets := []process.ProcessMemoryOffset{0x10, 0x20}
	p := New(mem, 0x1000, offsets...)

	offsets[0] = 0x99
	got := p.Offsets()
	got[1] = 0x99

	if !slices.Equal(p.Offsets(), []process.ProcessMemoryOffset{0x10, 0x20}) {
		t.Fatalf("expected the chain to be immutable - got %v", p.Offsets())
	}
	if p.String() != "0x1000 -> [0x10, 0x20]" {
		t.Fatalf("unexpected String - got %q", p.String())
	}
}

func TestDebugTrace(t *testing.T) {
	mem := newMemory(t, process.PointerSize64)
	p := New(mem, 0x1000, 0x10, 0x20)
	p.Debug = true

	addr, err := p.Resolve()
	if err != nil || addr != 0x3020 {
		t.Fatalf("expected debug resolution to match - got %s, %v", addr.ToString(), err)
	}
}

func TestNull(t *testing.T) {
	p := Null()

	_, err := p.ReadUINT32()
	if !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning - got %v", err)
	}

	_, err = Null().Child(0x10).Resolve()
	if !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning - got %v", err)
	}
}
