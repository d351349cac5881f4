//go:build windows

package process_windows

import (
	"fmt"
	"strconv"
	"sync"
	"unsafe"

	"sigmem/process"
	"sigmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const (
	stillActive = 259 // STILL_ACTIVE

	processAccess = windows.PROCESS_QUERY_INFORMATION |
		windows.PROCESS_VM_READ |
		windows.PROCESS_VM_WRITE |
		windows.PROCESS_VM_OPERATION
)

const hostPointerSize = process.ProcessMemorySize(strconv.IntSize / 8)

// WindowsProcess implements process.Process with ReadProcessMemory and
// WriteProcessMemory on a handle opened with OpenProcess.
type WindowsProcess struct {
	pid         process.ProcessID
	name        string
	handle      windows.Handle
	pointerSize process.ProcessMemorySize
	log         *logger.Logger
	mm          []memory_map.MemoryMapItem
	mu          sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)

// Open opens pid for reading, writing and querying.
func Open(pid process.ProcessID) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(processAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess %d: %w", pid, err)
	}

	p := &WindowsProcess{
		pid:         pid,
		handle:      handle,
		pointerSize: hostPointerSize,
		log:         logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err == nil && wow64 {
		p.pointerSize = process.PointerSize32
	}

	modules, err := p.snapshotModules()
	if err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}
	p.name = modules[0].Name

	if err := p.UpdateMemoryMap(); err != nil {
		p.log.Warn("Failed to initialize memory map: ", err)
	}

	p.log.Infoln("Process opened:", p.name, "pointer size", uint(p.pointerSize))
	return p, nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil
	}

	err := windows.CloseHandle(p.handle)
	p.handle = 0
	p.pid = 0
	p.mm = nil
	p.log.Infoln("Process closed")
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	if err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}
	return nil
}

func (p *WindowsProcess) getHandle() windows.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) Name() string {
	return p.name
}

func (p *WindowsProcess) PointerSize() process.ProcessMemorySize {
	return p.pointerSize
}

// IsAlive asks for the exit code; anything but STILL_ACTIVE means exited.
func (p *WindowsProcess) IsAlive() bool {
	handle := p.getHandle()
	if handle == 0 {
		return false
	}

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return false
	}
	return code == stillActive
}

func (p *WindowsProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadMemoryMapHandle(p.handle)
	if err != nil {
		return err
	}
	p.mm = mm
	return nil
}

func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle == 0 {
		return nil, process.ErrProcessNotOpen
	}
	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

func (p *WindowsProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := memory_map.Lookup(uint64(addr), p.mm)
	return item != nil && item.IsReadable()
}

func (p *WindowsProcess) MainModule() (process.Module, error) {
	modules, err := p.Modules()
	if err != nil {
		return process.Module{}, err
	}
	return modules[0], nil
}

func (p *WindowsProcess) Modules() ([]process.Module, error) {
	if p.getHandle() == 0 {
		return nil, process.ErrProcessNotOpen
	}
	return p.snapshotModules()
}

// snapshotModules walks the toolhelp module list. The first entry is the
// executable itself.
func (p *WindowsProcess) snapshotModules() ([]process.Module, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, uint32(p.pid))
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var modules []process.Module
	var me windows.ModuleEntry32
	me.Size = uint32(unsafe.Sizeof(me))

	err = windows.Module32First(snap, &me)
	for err == nil {
		modules = append(modules, process.Module{
			Name: windows.UTF16ToString(me.Module[:]),
			Path: windows.UTF16ToString(me.ExePath[:]),
			Base: process.ProcessMemoryAddress(me.ModBaseAddr),
			Size: process.ProcessMemorySize(me.ModBaseSize),
		})
		err = windows.Module32Next(snap, &me)
	}

	if len(modules) == 0 {
		return nil, fmt.Errorf("no modules: %w", process.ErrAddressNotMapped)
	}
	return modules, nil
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	handle := p.getHandle()
	if handle == 0 {
		return nil, process.ReadError(addr, size, process.ErrProcessNotOpen)
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, process.ReadError(addr, size, fmt.Errorf("ReadProcessMemory: %w", err))
	}
	if bytesRead != uintptr(size) {
		return nil, process.ReadError(addr, size, fmt.Errorf("partial read: %d of %d bytes", bytesRead, size))
	}

	return buf, nil
}

func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	size := process.ProcessMemorySize(len(data))
	if size == 0 {
		return nil
	}

	handle := p.getHandle()
	if handle == 0 {
		return process.WriteError(addr, size, process.ErrProcessNotOpen)
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(size), &written); err != nil {
		return process.WriteError(addr, size, fmt.Errorf("WriteProcessMemory: %w", err))
	}
	if written != uintptr(size) {
		return process.WriteError(addr, size, fmt.Errorf("partial write: %d of %d bytes", written, size))
	}
	return nil
}
