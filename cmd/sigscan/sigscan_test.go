package main

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"sigmem/aob"
	"sigmem/pointer"
	"sigmem/process"
	"sigmem/process_blob"
)

func TestParseOffsets(t *testing.T) {
	offsets, err := parseOffsets([]string{"0x10", "-0x8", "32"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []process.ProcessMemoryOffset{0x10, -0x8, 32}
	for i, exp := range expected {
		if offsets[i] != exp {
			t.Fatalf("offset %d: expected %d - got %d", i, exp, offsets[i])
		}
	}

	if _, err := parseOffsets([]string{"zz"}); err == nil {
		t.Fatal("expected an error for a malformed offset")
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("0x7ff600001000")
	if err != nil {
		t.Fatal(err)
	}
	if addr != 0x7ff600001000 {
		t.Fatalf("expected 0x7ff600001000 - got %s", addr.ToString())
	}

	if _, err := parseAddress("-1"); err == nil {
		t.Fatal("expected an error for a negative address")
	}
}

func TestDecodeInstruction(t *testing.T) {
	code := []byte{0x48, 0x8b, 0x05, 0x10, 0x00, 0x00, 0x00, 0xc3}

	inst, text, err := decodeInstruction(code, 0x1000, 64)
	if err != nil {
		t.Fatal(err)
	}
	if inst.Len != 7 {
		t.Fatalf("expected length 7 - got %d", inst.Len)
	}
	if !strings.HasPrefix(text, "mov") {
		t.Fatalf("expected a mov - got %q", text)
	}

	target, ok := ripTarget(inst, 0x1000)
	if !ok || target != 0x1017 {
		t.Fatalf("expected RIP target 0x1017 - got %s %v", target.ToString(), ok)
	}

	back, _, err := decodeInstruction([]byte{0x48, 0x8b, 0x05, 0xf0, 0xff, 0xff, 0xff}, 0x1000, 64)
	if err != nil {
		t.Fatal(err)
	}
	if target, _ := ripTarget(back, 0x1000); target != 0xff7 {
		t.Fatalf("expected backward RIP target 0xFF7 - got %s", target.ToString())
	}

	ret, _, err := decodeInstruction(code[7:], 0x1007, 64)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ripTarget(ret, 0x1007); ok {
		t.Fatal("expected no RIP-relative operand in ret")
	}
}

func TestCheckRelativeFlags(t *testing.T) {
	tests := []struct {
		name       string
		dispOffset int
		instrLen   int
		ok         bool
	}{
		{"unset", -1, 0, true},
		{"mov", 3, 7, true},
		{"missing length", 3, 0, false},
		{"displacement past end", 4, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkRelativeFlags(tt.dispOffset, tt.instrLen)
			if (err == nil) != tt.ok {
				t.Fatalf("expected ok=%v - got %v", tt.ok, err)
			}
		})
	}
}

func TestDescribeMatch(t *testing.T) {
	code := make([]byte, 0x20)
	copy(code, []byte{0x48, 0x8b, 0x05, 0xf0, 0xff, 0xff, 0xff})

	text, err := describeMatch(process_blob.NewProcessBlob(0x1000, code), 0x1000, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(text, "-> 0xFF7") {
		t.Fatalf("expected the RIP target 0xFF7 - got %q", text)
	}
}

func TestReadValue(t *testing.T) {
	data := make([]byte, 0x100)
	binary.LittleEndian.PutUint64(data, 0x1080)
	binary.LittleEndian.PutUint32(data[0x90:], 42)
	copy(data[0xa0:], "player\x00")
	mem := process_blob.NewProcessBlob(0x1000, data)

	tests := []struct {
		name   string
		offset process.ProcessMemoryOffset
		typ    string
		exp    string
	}{
		{"u32", 0x10, "u32", "42"},
		{"i16", 0x10, "i16", "42"},
		{"str", 0x20, "str", `"player"`},
		{"ptr", 0x10, "ptr", "0x2A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readValue(pointer.New(mem, 0x1000, tt.offset), tt.typ, 16)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.exp {
				t.Fatalf("expected %s - got %s", tt.exp, got)
			}
		})
	}

	if _, err := readValue(pointer.New(mem, 0x1000), "u128", 0); err == nil {
		t.Fatal("expected an error for an unknown type")
	}
}

// saveGame writes a dump whose main module holds a RIP-relative load of
// 0x401000, which starts the chain 0x900000 -> 0x900100.
func saveGame(t *testing.T) string {
	t.Helper()

	code := make([]byte, 0x1000)
	copy(code[0x100:], []byte{0x48, 0x8b, 0x05})
	binary.LittleEndian.PutUint32(code[0x103:], uint32(0x401000-(0x400100+7)))
	copy(code[0x107:], []byte{0x48, 0x8b, 0x50, 0x10})

	data := make([]byte, 0x1000)
	binary.LittleEndian.PutUint64(data, 0x900000)

	heap := make([]byte, 0x1000)
	binary.LittleEndian.PutUint64(heap[0x10:], 0x900100)
	binary.LittleEndian.PutUint32(heap[0x120:], 42)

	game := process_blob.NewProcessDump(100, "game.exe", process.PointerSize64)
	game.AddRegion(0x400000, code, "r-xp", "/opt/game/game.exe")
	game.AddRegion(0x401000, data, "rw-p", "/opt/game/game.exe")
	game.AddRegion(0x900000, heap, "rw-p", "")

	dir := t.TempDir()
	if err := game.Save(dir); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestCommands_Dump(t *testing.T) {
	dir := saveGame(t)

	rootCmd.SetArgs([]string{"--dump", dir, "resolve", "48 8b 05 ? ? ? ? 48 8b 50 10", "-o", "0x10", "-o", "0x20", "-t", "u32"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("expected resolve to succeed - got %v", err)
	}

	rootCmd.SetArgs([]string{"--dump", dir, "scan", "de ad be ef"})
	if err := rootCmd.Execute(); !errors.Is(err, aob.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound - got %v", err)
	}

	rootCmd.SetArgs([]string{"--dump", dir, "scan", "48 8b ?", "--all", "--decode", "--context", "16"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("expected scan to succeed - got %v", err)
	}

	rootCmd.SetArgs([]string{"--dump", dir, "scan", "48 8b 05", "--disp-offset", "3", "--instr-len", "7"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("expected relative scan to succeed - got %v", err)
	}
}
