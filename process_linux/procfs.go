//go:build linux

package process_linux

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"sigmem/process"
)

func procPath(pid process.ProcessID, name string) string {
	return filepath.Join("/proc", strconv.Itoa(int(pid)), name)
}

func procExists(pid int) bool {
	_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	// For transient errors (permission, EIO): fall back to kill 0
	return syscall.Kill(pid, 0) == nil
}

type procStat struct {
	Comm      string
	State     process.ProcessState
	PPID      process.ProcessID
	Threads   int
	StartTime uint64 // clock ticks since boot
}

func readStat(pid process.ProcessID) (procStat, error) {
	data, err := os.ReadFile(procPath(pid, "stat"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return procStat{}, process.ErrProcessNotRunning
		}
		return procStat{}, err
	}
	return parseStat(data)
}

// parseStat parses /proc/<pid>/stat. comm may contain spaces and parentheses,
// so the fields are taken after the last ')'.
func parseStat(data []byte) (procStat, error) {
	open := bytes.IndexByte(data, '(')
	end := bytes.LastIndexByte(data, ')')
	if open < 0 || end < open {
		return procStat{}, fmt.Errorf("malformed stat: %q", data)
	}

	fields := strings.Fields(string(data[end+1:]))
	// fields[0] is field 3 (state); starttime is field 22.
	if len(fields) < 20 {
		return procStat{}, fmt.Errorf("malformed stat: %d fields", len(fields)+2)
	}

	st := procStat{
		Comm:  string(data[open+1 : end]),
		State: process.ProcessState(fields[0]),
	}
	if ppid, err := strconv.Atoi(fields[1]); err == nil {
		st.PPID = process.ProcessID(ppid)
	}
	if threads, err := strconv.Atoi(fields[17]); err == nil {
		st.Threads = threads
	}
	startTime, err := strconv.ParseUint(fields[19], 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("malformed stat starttime %q: %w", fields[19], err)
	}
	st.StartTime = startTime
	return st, nil
}

func readExe(pid process.ProcessID) (string, error) {
	exe, err := os.Readlink(procPath(pid, "exe"))
	if err != nil {
		return "", fmt.Errorf("readlink exe: %w", err)
	}
	return strings.TrimSuffix(exe, " (deleted)"), nil
}

// exePointerSize derives the target's pointer width from the ELF class of its
// executable, falling back to the host width.
func exePointerSize(pid process.ProcessID) process.ProcessMemorySize {
	f, err := elf.Open(procPath(pid, "exe"))
	if err != nil {
		return hostPointerSize
	}
	defer f.Close()

	if f.Class == elf.ELFCLASS32 {
		return process.PointerSize32
	}
	return process.PointerSize64
}

const hostPointerSize = process.ProcessMemorySize(strconv.IntSize / 8)

func readCmdline(pid process.ProcessID) []string {
	data, err := os.ReadFile(procPath(pid, "cmdline"))
	if err != nil || len(data) == 0 {
		return nil
	}
	data = bytes.TrimSuffix(data, []byte{0})

	var cmdline []string
	for _, arg := range bytes.Split(data, []byte{0}) {
		cmdline = append(cmdline, string(arg))
	}
	return cmdline
}

func getProcessInfo(pid process.ProcessID) (*process.ProcessInfo, error) {
	st, err := readStat(pid)
	if err != nil {
		return nil, err
	}

	// Kernel threads have no exe.
	exe, _ := readExe(pid)

	name := st.Comm
	if exe != "" {
		name = filepath.Base(exe)
	}

	return &process.ProcessInfo{
		PID:     pid,
		PPID:    st.PPID,
		Name:    name,
		Exe:     exe,
		Cmdline: readCmdline(pid),
		State:   st.State,
		Threads: st.Threads,
	}, nil
}

// matchesName compares against the exe base name and against comm, which the
// kernel truncates to 15 bytes.
func matchesName(info *process.ProcessInfo, comm, name string) bool {
	if strings.EqualFold(info.Name, name) {
		return true
	}
	return strings.EqualFold(comm, name)
}
