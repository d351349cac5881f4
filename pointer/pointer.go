// Package pointer resolves addresses inside a target process: RIP-relative
// operands found by a signature scan, and multi-level pointer chains that are
// re-walked every time they are read.
package pointer

import (
	"errors"
	"fmt"
	"strings"

	"sigmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ErrTooManyOffsets is returned when a read or write is given more than one
// trailing offset.
var ErrTooManyOffsets = errors.New("at most one trailing offset is allowed")

var defaultLog = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "pointer"))

// ChainError reports the hop at which a chain could not be followed. Index is
// the offset whose dereference failed and Address the address that was being
// dereferenced.
type ChainError struct {
	Index   int
	Address process.ProcessMemoryAddress
	Err     error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("pointer chain step %d at %s: %v", e.Index, e.Address.ToString(), e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Pointer is a root address plus a chain of offsets. Resolving starts at root:
// for every offset the current address is dereferenced and the offset added,
// so
//
//	[]            -> root
//	[a]           -> *root + a
//	[a, b]        -> *(*root + a) + b
//
// Nothing is cached; each read walks the chain again so that reallocations in
// the target are followed.
type Pointer struct {
	acc     process.Accessor
	root    process.ProcessMemoryAddress
	offsets []process.ProcessMemoryOffset
	last    process.ProcessMemoryAddress

	// Debug logs every hop of every resolution.
	Debug bool
	log   *logger.Logger
}

// New builds a Pointer. The offsets slice is copied.
func New(acc process.Accessor, root process.ProcessMemoryAddress, offsets ...process.ProcessMemoryOffset) *Pointer {
	return &Pointer{
		acc:     acc,
		root:    root,
		offsets: append([]process.ProcessMemoryOffset(nil), offsets...),
		log:     defaultLog,
	}
}

// Null returns a placeholder whose every access fails with
// process.ErrProcessNotRunning. Use it for fields that are filled in once a
// target is attached.
func Null() *Pointer {
	return New(nullAccessor{}, 0)
}

// SetLogger replaces the logger used for Debug traces.
func (p *Pointer) SetLogger(log *logger.Logger) {
	if log != nil {
		p.log = log
	}
}

func (p *Pointer) Root() process.ProcessMemoryAddress {
	return p.root
}

// Offsets returns a copy of the chain.
func (p *Pointer) Offsets() []process.ProcessMemoryOffset {
	return append([]process.ProcessMemoryOffset(nil), p.offsets...)
}

// LastResolved is the result of the last successful Resolve. It is a hint for
// logging only and may be stale.
func (p *Pointer) LastResolved() process.ProcessMemoryAddress {
	return p.last
}

func (p *Pointer) String() string {
	parts := make([]string, len(p.offsets))
	for i, off := range p.offsets {
		parts[i] = off.ToString()
	}
	return fmt.Sprintf("%s -> [%s]", p.root.ToString(), strings.Join(parts, ", "))
}

// Resolve walks the chain and returns the final address. A zero pointer met on
// the way yields a *ChainError wrapping process.ErrChainBroken; a failed read
// yields a *ChainError wrapping the accessor error.
func (p *Pointer) Resolve() (process.ProcessMemoryAddress, error) {
	cur := p.root
	if p.Debug {
		p.log.Infoln("resolve", p.String())
	}

	for i, off := range p.offsets {
		ptr, err := process.ReadPointer(p.acc, cur)
		if err != nil {
			return 0, &ChainError{Index: i, Address: cur, Err: err}
		}
		if p.Debug {
			p.log.Infoln(fmt.Sprintf("step %d: *%s = %s, + %s", i, cur.ToString(), ptr.ToString(), off.ToString()))
		}
		if ptr == 0 {
			p.log.Debugln("chain broken at step", i, "address", cur.ToString())
			return 0, &ChainError{Index: i, Address: cur, Err: process.ErrChainBroken}
		}
		cur = wrap(ptr.Add(off), p.acc.PointerSize())
	}

	if p.Debug {
		p.log.Infoln("resolved", cur.ToString())
	}
	p.last = cur
	return cur, nil
}

// Address resolves the chain and applies the optional trailing offset.
func (p *Pointer) Address(offset ...process.ProcessMemoryOffset) (process.ProcessMemoryAddress, error) {
	if len(offset) > 1 {
		return 0, fmt.Errorf("%w: got %d", ErrTooManyOffsets, len(offset))
	}

	addr, err := p.Resolve()
	if err != nil {
		return 0, err
	}
	if len(offset) == 1 {
		addr = wrap(addr.Add(offset[0]), p.acc.PointerSize())
	}
	return addr, nil
}

// wrap truncates addr to the target's pointer width, as its CPU would.
func wrap(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) process.ProcessMemoryAddress {
	if size == process.PointerSize32 {
		return addr & 0xFFFFFFFF
	}
	return addr
}

// ReadAs reads a T at the resolved address plus the optional trailing offset.
// T must be fixed-size plain data; it is copied in host byte order.
func ReadAs[T any](p *Pointer, offset ...process.ProcessMemoryOffset) (T, error) {
	addr, err := p.Address(offset...)
	if err != nil {
		var zero T
		return zero, err
	}
	return process.Read[T](p.acc, addr)
}

// WriteAs writes value at the resolved address plus the optional trailing offset.
func WriteAs[T any](p *Pointer, value T, offset ...process.ProcessMemoryOffset) error {
	addr, err := p.Address(offset...)
	if err != nil {
		return err
	}
	return process.Write(p.acc, addr, value)
}

func (p *Pointer) ReadBytes(size process.ProcessMemorySize, offset ...process.ProcessMemoryOffset) ([]byte, error) {
	addr, err := p.Address(offset...)
	if err != nil {
		return nil, err
	}
	return p.acc.ReadMemory(addr, size)
}

func (p *Pointer) WriteBytes(data []byte, offset ...process.ProcessMemoryOffset) error {
	addr, err := p.Address(offset...)
	if err != nil {
		return err
	}
	return p.acc.WriteMemory(addr, data)
}

func (p *Pointer) ReadUINT8(offset ...process.ProcessMemoryOffset) (uint8, error) {
	return ReadAs[uint8](p, offset...)
}

func (p *Pointer) ReadUINT16(offset ...process.ProcessMemoryOffset) (uint16, error) {
	return ReadAs[uint16](p, offset...)
}

func (p *Pointer) ReadUINT32(offset ...process.ProcessMemoryOffset) (uint32, error) {
	return ReadAs[uint32](p, offset...)
}

func (p *Pointer) ReadUINT64(offset ...process.ProcessMemoryOffset) (uint64, error) {
	return ReadAs[uint64](p, offset...)
}

func (p *Pointer) ReadINT8(offset ...process.ProcessMemoryOffset) (int8, error) {
	return ReadAs[int8](p, offset...)
}

func (p *Pointer) ReadINT16(offset ...process.ProcessMemoryOffset) (int16, error) {
	return ReadAs[int16](p, offset...)
}

func (p *Pointer) ReadINT32(offset ...process.ProcessMemoryOffset) (int32, error) {
	return ReadAs[int32](p, offset...)
}

func (p *Pointer) ReadINT64(offset ...process.ProcessMemoryOffset) (int64, error) {
	return ReadAs[int64](p, offset...)
}

func (p *Pointer) ReadFLOAT32(offset ...process.ProcessMemoryOffset) (float32, error) {
	return ReadAs[float32](p, offset...)
}

func (p *Pointer) ReadFLOAT64(offset ...process.ProcessMemoryOffset) (float64, error) {
	return ReadAs[float64](p, offset...)
}

// ReadNTS reads a null-terminated string of at most maxLength bytes.
func (p *Pointer) ReadNTS(maxLength process.ProcessMemorySize, offset ...process.ProcessMemoryOffset) (string, error) {
	addr, err := p.Address(offset...)
	if err != nil {
		return "", err
	}
	return process.ReadNTS(p.acc, addr, maxLength)
}

// ReadPOINTER reads a target-sized pointer.
func (p *Pointer) ReadPOINTER(offset ...process.ProcessMemoryOffset) (process.ProcessMemoryAddress, error) {
	addr, err := p.Address(offset...)
	if err != nil {
		return 0, err
	}
	return process.ReadPointer(p.acc, addr)
}

// Child returns a Pointer rooted at the same place with extra offsets appended.
func (p *Pointer) Child(offsets ...process.ProcessMemoryOffset) *Pointer {
	c := New(p.acc, p.root, append(p.Offsets(), offsets...)...)
	c.Debug = p.Debug
	c.log = p.log
	return c
}

type nullAccessor struct{}

func (nullAccessor) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	return nil, fmt.Errorf("null pointer: %w", process.ErrProcessNotRunning)
}

func (nullAccessor) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	return fmt.Errorf("null pointer: %w", process.ErrProcessNotRunning)
}

func (nullAccessor) PointerSize() process.ProcessMemorySize {
	return process.PointerSize64
}
