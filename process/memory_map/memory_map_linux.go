//go:build linux

package memory_map

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// LinuxMemoryMap implements MemoryMap for Linux
type LinuxMemoryMap struct{}

// NewLinuxMemoryMap creates a new LinuxMemoryMap instance
func NewLinuxMemoryMap() *LinuxMemoryMap {
	return &LinuxMemoryMap{}
}

// ReadMemoryMap reads and parses the memory map for a process from /proc/[pid]/maps
func (l *LinuxMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	file, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ParseMaps(file)
}

// ParseMaps parses the /proc/[pid]/maps format:
//
//	00400000-0040b000 r-xp 00000000 08:01 1234   /usr/bin/target
func ParseMaps(r io.Reader) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		addrRange := strings.Split(fields[0], "-")
		if len(addrRange) != 2 {
			continue
		}

		startAddr, err := strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}

		endAddr, err := strconv.ParseUint(addrRange[1], 16, 64)
		if err != nil || endAddr < startAddr {
			continue
		}

		item := MemoryMapItem{
			Address: startAddr,
			Size:    uint(endAddr - startAddr),
			Perms:   fields[1],
		}
		// Paths may contain spaces; deleted files carry a " (deleted)" suffix.
		if len(fields) >= 6 {
			item.Pathname = strings.TrimSuffix(strings.Join(fields[5:], " "), " (deleted)")
		}

		memoryMap = append(memoryMap, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	Sort(memoryMap)
	return memoryMap, nil
}

func (l *LinuxMemoryMap) IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func (l *LinuxMemoryMap) IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func (l *LinuxMemoryMap) IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}
