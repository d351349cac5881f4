//go:build windows

package process_windows

import (
	"fmt"
	"sort"
	"strings"
	"unsafe"

	"sigmem/process"

	"golang.org/x/sys/windows"
)

// WindowsProcessFinder implements process.ProcessFinder and
// process.ProcessOpener with toolhelp snapshots.
type WindowsProcessFinder struct{}

var (
	_ process.ProcessFinder = (*WindowsProcessFinder)(nil)
	_ process.ProcessOpener = (*WindowsProcessFinder)(nil)
)

func NewProcessFinder() *WindowsProcessFinder {
	return &WindowsProcessFinder{}
}

func (f *WindowsProcessFinder) FindAllProcesses() ([]process.ProcessInfo, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var results []process.ProcessInfo
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	err = windows.Process32First(snap, &entry)
	for err == nil {
		results = append(results, process.ProcessInfo{
			PID:     process.ProcessID(entry.ProcessID),
			PPID:    process.ProcessID(entry.ParentProcessID),
			Name:    windows.UTF16ToString(entry.ExeFile[:]),
			State:   process.ProcessRunning,
			Threads: int(entry.Threads),
		})
		err = windows.Process32Next(snap, &entry)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})
	return results, nil
}

// FindProcessByName matches executable names case-insensitively.
func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	all, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}

	var results []process.ProcessInfo
	for _, info := range all {
		if strings.EqualFold(info.Name, name) {
			results = append(results, info)
		}
	}
	return results, nil
}

func (f *WindowsProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	all, err := f.FindAllProcesses()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].PID == pid {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotRunning)
}

// OpenProcessByName opens the lowest-PID process named name. Processes that
// refuse OpenProcess are skipped.
func (f *WindowsProcessFinder) OpenProcessByName(name string) (process.Process, error) {
	processes, err := f.FindProcessByName(name)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, info := range processes {
		p, err := Open(info.PID)
		if err != nil {
			lastErr = err
			continue
		}
		return p, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%q: %w: %w", name, process.ErrProcessNotRunning, lastErr)
	}
	return nil, fmt.Errorf("%q: %w", name, process.ErrProcessNotRunning)
}

func (f *WindowsProcessFinder) OpenProcessByPID(pid process.ProcessID) (process.Process, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
