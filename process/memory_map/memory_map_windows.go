//go:build windows

package memory_map

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// WindowsMemoryMap implements MemoryMap for Windows
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

// ReadMemoryMap opens the process for querying and walks it with VirtualQueryEx.
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryMapItem, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess failed: %w", err)
	}
	defer windows.CloseHandle(handle)

	return ReadMemoryMapHandle(handle)
}

// ReadMemoryMapHandle walks the committed regions of an already opened process.
func ReadMemoryMapHandle(handle windows.Handle) ([]MemoryMapItem, error) {
	var memoryMap []MemoryMapItem
	var mbi windows.MemoryBasicInformation

	addr := uintptr(0)
	for {
		err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi))
		if err != nil {
			// ERROR_INVALID_PARAMETER marks the end of the user address space.
			break
		}
		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			memoryMap = append(memoryMap, MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   protectToPerms(mbi.Protect),
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	Sort(memoryMap)
	return memoryMap, nil
}

// protectToPerms renders a PAGE_* protection as a maps-style "rwxp" string.
func protectToPerms(protect uint32) string {
	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return "---p"
	}

	perms := []byte("---p")
	switch protect &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		perms[0] = 'r'
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		perms[0], perms[1] = 'r', 'w'
	case windows.PAGE_EXECUTE:
		perms[2] = 'x'
	case windows.PAGE_EXECUTE_READ:
		perms[0], perms[2] = 'r', 'x'
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		perms[0], perms[1], perms[2] = 'r', 'w', 'x'
	}
	return string(perms)
}

func (w *WindowsMemoryMap) IsReadablePerms(perms string) bool {
	return len(perms) > 0 && perms[0] == 'r'
}

func (w *WindowsMemoryMap) IsWritablePerms(perms string) bool {
	return len(perms) > 1 && perms[1] == 'w'
}

func (w *WindowsMemoryMap) IsExecutablePerms(perms string) bool {
	return len(perms) > 2 && perms[2] == 'x'
}
