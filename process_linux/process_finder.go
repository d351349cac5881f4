//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"sigmem/process"
)

// LinuxProcessFinder implements process.ProcessFinder and
// process.ProcessOpener over /proc.
type LinuxProcessFinder struct{}

var (
	_ process.ProcessFinder = (*LinuxProcessFinder)(nil)
	_ process.ProcessOpener = (*LinuxProcessFinder)(nil)
)

func NewProcessFinder() *LinuxProcessFinder {
	return &LinuxProcessFinder{}
}

func (f *LinuxProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	if !procExists(int(pid)) {
		return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotRunning)
	}
	return getProcessInfo(pid)
}

// FindProcessByName returns live processes whose executable base name or comm
// equals name, ignoring case, ordered by PID.
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	return f.find(func(info *process.ProcessInfo, comm string) bool {
		return matchesName(info, comm, name)
	})
}

// FindAllProcesses returns every process readable under /proc, ordered by PID.
func (f *LinuxProcessFinder) FindAllProcesses() ([]process.ProcessInfo, error) {
	return f.find(func(*process.ProcessInfo, string) bool { return true })
}

func (f *LinuxProcessFinder) find(match func(info *process.ProcessInfo, comm string) bool) ([]process.ProcessInfo, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	self := os.Getpid()
	var results []process.ProcessInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 || pid == self {
			continue
		}

		st, err := readStat(process.ProcessID(pid))
		if err != nil || st.State.Exited() {
			// Gone while we were reading
			continue
		}
		info, err := getProcessInfo(process.ProcessID(pid))
		if err != nil {
			continue
		}

		if match(info, st.Comm) {
			results = append(results, *info)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].PID < results[j].PID
	})
	return results, nil
}

// OpenProcessByName opens the lowest-PID process named name.
func (f *LinuxProcessFinder) OpenProcessByName(name string) (process.Process, error) {
	processes, err := f.FindProcessByName(name)
	if err != nil {
		return nil, err
	}
	if len(processes) == 0 {
		return nil, fmt.Errorf("%q: %w", name, process.ErrProcessNotRunning)
	}

	return f.OpenProcessByPID(processes[0].PID)
}

func (f *LinuxProcessFinder) OpenProcessByPID(pid process.ProcessID) (process.Process, error) {
	p, err := Open(pid)
	if err != nil {
		return nil, err
	}
	return p, nil
}
