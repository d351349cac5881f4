package session

import (
	"encoding/binary"
	"errors"
	"slices"
	"testing"

	"sigmem/aob"
	"sigmem/process"
	"sigmem/process_blob"
)

const (
	codeBase = 0x400000
	dataBase = 0x401000
	heapBase = 0x900000

	movSignature = "48 8b 05 ? ? ? ? 48 8b 50 10"
	absSignature = "48 a1 ? ? ? ? ? ? ? ? c3"
)

// newGame builds a target whose main module holds
//
//	0x400100: mov rax, [rip+disp] ; -> 0x401000
//	0x400200: movabs rax, [0x401000]
//
// and whose heap holds the chain 0x401000 -> 0x900000 -> 0x900100, with the
// u32 42 at 0x900120.
func newGame(pid process.ProcessID) *process_blob.ProcessDump {
	code := make([]byte, 0x1000)
	copy(code[0x100:], []byte{0x48, 0x8b, 0x05})
	binary.LittleEndian.PutUint32(code[0x103:], uint32(dataBase-(codeBase+0x100+7)))
	copy(code[0x107:], []byte{0x48, 0x8b, 0x50, 0x10})

	copy(code[0x200:], []byte{0x48, 0xa1})
	binary.LittleEndian.PutUint64(code[0x202:], dataBase)
	code[0x20a] = 0xc3

	data := make([]byte, 0x1000)
	binary.LittleEndian.PutUint64(data, heapBase)

	heap := make([]byte, 0x1000)
	binary.LittleEndian.PutUint64(heap[0x10:], heapBase+0x100)
	binary.LittleEndian.PutUint32(heap[0x120:], 42)

	p := process_blob.NewProcessDump(pid, "game.exe", process.PointerSize64)
	p.AddRegion(codeBase, code, "r-xp", "/opt/game/game.exe")
	p.AddRegion(dataBase, data, "rw-p", "/opt/game/game.exe")
	p.AddRegion(heapBase, heap, "rw-p", "")
	return p
}

func attached(t *testing.T, opts ...Option) (*Session, *process_blob.Opener, *process_blob.ProcessDump) {
	t.Helper()

	game := newGame(100)
	opener := process_blob.NewOpener(game)
	s := New("Game.exe", opener, opts...)
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if !s.IsAttached() {
		t.Fatal("expected session to be attached")
	}
	return s, opener, game
}

func TestRefresh_NotRunning(t *testing.T) {
	s := New("game.exe", process_blob.NewOpener())

	err := s.Refresh()
	if !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning - got %v", err)
	}
	if s.IsAttached() {
		t.Fatal("expected session to stay detached")
	}

	_, err = s.ReadMemory(heapBase, 4)
	if !errors.Is(err, process.ErrProcessNotRunning) || !errors.Is(err, process.ErrMemoryAccessDenied) {
		t.Fatalf("expected detached read to be denied and not running - got %v", err)
	}
	if _, err := s.Scan(movSignature); !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected detached scan to fail with ErrProcessNotRunning - got %v", err)
	}
}

func TestRefresh_Idempotent(t *testing.T) {
	s, _, game := attached(t)

	for i := 0; i < 3; i++ {
		if err := s.Refresh(); err != nil {
			t.Fatal(err)
		}
	}
	if s.Process().GetPID() != game.GetPID() {
		t.Fatalf("expected pid %d - got %d", game.GetPID(), s.Process().GetPID())
	}

	main, err := s.MainModule()
	if err != nil {
		t.Fatal(err)
	}
	if main.Base != codeBase || main.Size != 0x2000 {
		t.Fatalf("expected main module 0x400000+0x2000 - got %s", main)
	}
}

func TestScanAndResolve(t *testing.T) {
	for _, cache := range []bool{true, false} {
		s, _, _ := attached(t, WithCacheImage(cache))

		ptr, err := s.ScanAndResolve(movSignature, 3, 7, 0x10, 0x20)
		if err != nil {
			t.Fatal(err)
		}
		if ptr.Root() != dataBase {
			t.Fatalf("expected root 0x401000 - got %s", ptr.Root().ToString())
		}

		v, err := ptr.ReadUINT32()
		if err != nil {
			t.Fatal(err)
		}
		if v != 42 {
			t.Fatalf("expected 42 - got %d", v)
		}

		if err := ptr.WriteBytes([]byte{43, 0, 0, 0}); err != nil {
			t.Fatal(err)
		}
		v, err = ptr.ReadUINT32()
		if err != nil {
			t.Fatal(err)
		}
		if v != 43 {
			t.Fatalf("expected 43 after write - got %d", v)
		}
	}
}

func TestScanAbsolute(t *testing.T) {
	s, _, _ := attached(t)

	ptr, err := s.ScanAbsolute(absSignature, 2, 0, 0x10, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	if ptr.Root() != codeBase+0x202 {
		t.Fatalf("expected root 0x400202 - got %s", ptr.Root().ToString())
	}

	addr, err := ptr.Resolve()
	if err != nil {
		t.Fatal(err)
	}
	if addr != heapBase+0x120 {
		t.Fatalf("expected 0x900120 - got %s", addr.ToString())
	}
}

func TestScanAbsoluteNth(t *testing.T) {
	s, _, _ := attached(t)

	ptr, err := s.ScanAbsoluteNth(0, absSignature, 2)
	if err != nil {
		t.Fatal(err)
	}
	if ptr.Root() != codeBase+0x202 {
		t.Fatalf("expected root 0x400202 - got %s", ptr.Root().ToString())
	}

	_, err = s.ScanAbsoluteNth(1, absSignature, 2)
	if !errors.Is(err, aob.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound for the second match - got %v", err)
	}
}

func TestScan(t *testing.T) {
	s, _, _ := attached(t)

	addr, err := s.Scan("48 8b ? ? ? ? ? 48")
	if err != nil {
		t.Fatal(err)
	}
	if addr != codeBase+0x100 {
		t.Fatalf("expected 0x400100 - got %s", addr.ToString())
	}

	seq, err := s.ScanAll("48")
	if err != nil {
		t.Fatal(err)
	}
	got := slices.Collect(seq)
	exp := []process.ProcessMemoryAddress{codeBase + 0x100, codeBase + 0x107, codeBase + 0x200}
	if !slices.Equal(got, exp) {
		t.Fatalf("expected %v - got %v", exp, got)
	}

	if _, err := s.ScanAndResolveNth(1, movSignature, 3, 7); !errors.Is(err, aob.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound for a second match - got %v", err)
	}
}

func TestScanErrors(t *testing.T) {
	s, _, _ := attached(t)

	_, err := s.ScanAndResolve("48 8b zz", 3, 7)
	if !errors.Is(err, aob.ErrMalformedPattern) {
		t.Fatalf("expected ErrMalformedPattern - got %v", err)
	}
	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.Pattern != "48 8b zz" {
		t.Fatalf("expected *ScanError naming the pattern - got %v", err)
	}

	_, err = s.ScanAndResolve("de ad be ef", 3, 7)
	if !errors.Is(err, aob.ErrPatternNotFound) {
		t.Fatalf("expected ErrPatternNotFound - got %v", err)
	}

	_, err = s.ScanAndResolve(movSignature, 5, 7)
	if err == nil {
		t.Fatal("expected a displacement past the instruction end to fail")
	}
}

func TestReattach(t *testing.T) {
	s, opener, game := attached(t)

	ptr, err := s.ScanAndResolve(movSignature, 3, 7, 0x10, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ptr.Resolve(); err != nil {
		t.Fatal(err)
	}

	game.Kill()

	if err := s.Refresh(); !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning after exit - got %v", err)
	}
	if s.IsAttached() {
		t.Fatal("expected session to detach after exit")
	}

	_, err = ptr.Resolve()
	if !errors.Is(err, process.ErrMemoryAccessDenied) {
		t.Fatalf("expected stale pointer to fail with ErrMemoryAccessDenied - got %v", err)
	}
	if ptr.LastResolved() != heapBase+0x120 {
		t.Fatalf("expected last resolved address to remain a hint - got %s", ptr.LastResolved().ToString())
	}

	if err := s.Refresh(); !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning while nothing runs - got %v", err)
	}

	restarted := newGame(101)
	opener.Add(restarted)
	if err := s.Refresh(); err != nil {
		t.Fatal(err)
	}
	if s.Process().GetPID() != 101 {
		t.Fatalf("expected to attach to pid 101 - got %d", s.Process().GetPID())
	}

	ptr, err = s.ScanAndResolve(movSignature, 3, 7, 0x10, 0x20)
	if err != nil {
		t.Fatal(err)
	}
	v, err := ptr.ReadUINT32()
	if err != nil {
		t.Fatal(err)
	}
	if v != 42 {
		t.Fatalf("expected 42 from the restarted target - got %d", v)
	}
}

func TestIndependentSessions(t *testing.T) {
	a, _, gameA := attached(t)
	b, _, _ := attached(t)

	gameA.Kill()
	if err := a.Refresh(); !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning - got %v", err)
	}
	if err := b.Refresh(); err != nil {
		t.Fatalf("expected the other session to be unaffected - got %v", err)
	}
}

func TestPointerSize32(t *testing.T) {
	heap := make([]byte, 0x100)
	binary.LittleEndian.PutUint32(heap[0x00:], heapBase+0x40)
	binary.LittleEndian.PutUint32(heap[0x48:], 7)

	game := process_blob.NewProcessDump(5, "old.exe", process.PointerSize32)
	game.AddRegion(codeBase, make([]byte, 0x100), "r-xp", "/srv/old/old.exe")
	game.AddRegion(heapBase, heap, "rw-p", "")

	s := New("old.exe", process_blob.NewOpener(game), WithPointerDebug(true))
	if err := s.Attach(); err != nil {
		t.Fatal(err)
	}
	if s.PointerSize() != process.PointerSize32 {
		t.Fatalf("expected 4 byte pointers - got %d", s.PointerSize())
	}

	v, err := s.CreatePointer(heapBase, 0x8).ReadUINT32()
	if err != nil {
		t.Fatal(err)
	}
	if v != 7 {
		t.Fatalf("expected 7 - got %d", v)
	}
}

func TestModules(t *testing.T) {
	s, _, game := attached(t)
	game.AddRegion(0x7f0000, make([]byte, 0x100), "r--p", "/usr/lib/libc.so.6")

	modules, err := s.Modules()
	if err != nil {
		t.Fatal(err)
	}
	if len(modules) != 2 || modules[0].Name != "game.exe" || modules[1].Name != "libc.so.6" {
		t.Fatalf("expected game.exe then libc.so.6 - got %v", modules)
	}

	s.Detach()
	if _, err := s.Modules(); !errors.Is(err, process.ErrProcessNotRunning) {
		t.Fatalf("expected ErrProcessNotRunning after Detach - got %v", err)
	}
}
