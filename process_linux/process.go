//go:build linux

package process_linux

import (
	"fmt"
	"path/filepath"
	"sync"

	"sigmem/process"
	"sigmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements process.Process on top of /proc and
// process_vm_readv/process_vm_writev.
type LinuxProcess struct {
	pid         process.ProcessID
	name        string
	exe         string
	startTime   uint64
	pointerSize process.ProcessMemorySize
	log         *logger.Logger
	mm          []memory_map.MemoryMapItem
	mu          sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)

// Open attaches to pid. The executable path, start time and pointer width are
// captured once; the memory map is read immediately.
func Open(pid process.ProcessID) (*LinuxProcess, error) {
	if !procExists(int(pid)) {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotRunning)
	}

	st, err := readStat(pid)
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}
	if st.State.Exited() {
		return nil, fmt.Errorf("pid %d is %s: %w", pid, st.State, process.ErrProcessNotRunning)
	}

	exe, err := readExe(pid)
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, err)
	}

	p := &LinuxProcess{
		pid:         pid,
		name:        filepath.Base(exe),
		exe:         exe,
		startTime:   st.StartTime,
		pointerSize: exePointerSize(pid),
		log:         logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return nil, fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened:", p.exe, "pointer size", uint(p.pointerSize))
	return p, nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil
	}

	p.log.Infoln("Process closed")
	p.pid = 0
	p.mm = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	return nil
}

// GetPID returns the process ID, 0 once closed.
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// Name is the base name of the executable.
func (p *LinuxProcess) Name() string {
	return p.name
}

func (p *LinuxProcess) PointerSize() process.ProcessMemorySize {
	return p.pointerSize
}

// IsAlive checks /proc/<pid>/stat. A zombie counts as exited, and so does a
// new process that reused the pid.
func (p *LinuxProcess) IsAlive() bool {
	pid := p.GetPID()
	if pid == 0 || !procExists(int(pid)) {
		return false
	}

	st, err := readStat(pid)
	if err != nil {
		return false
	}
	return !st.State.Exited() && st.StartTime == p.startTime
}

func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(p.pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mm = mm
	return nil
}

func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)
	return result, nil
}

// IsValidAddress checks addr against the cached memory map.
func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if addr < 0x10000 {
		return false
	}
	item := memory_map.Lookup(uint64(addr), p.mm)
	return item != nil && item.IsReadable()
}

// MainModule is the span of the mappings backed by /proc/<pid>/exe.
func (p *LinuxProcess) MainModule() (process.Module, error) {
	modules, err := p.Modules()
	if err != nil {
		return process.Module{}, err
	}
	return modules[0], nil
}

// Modules lists every file-backed image, main module first. The memory map is
// re-read so libraries loaded since attach are included.
func (p *LinuxProcess) Modules() ([]process.Module, error) {
	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return process.ModulesFromMap(p.mm, p.exe)
}
