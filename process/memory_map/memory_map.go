package memory_map

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address  uint64 `json:"Address"`            // The starting address of the memory region
	Size     uint   `json:"Size"`               // The size of the memory region in bytes
	Perms    string `json:"Perms"`              // Permissions (e.g., "r-xp" for read, execute, private)
	Pathname string `json:"Pathname,omitempty"` // Backing file, empty for anonymous memory
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	if mmItem.Pathname == "" {
		return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", mmItem.Address, mmItem.Size, mmItem.Perms)
	}
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s, Path: %s", mmItem.Address, mmItem.Size, mmItem.Perms, mmItem.Pathname)
}

// End returns the first address past the region.
func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return len(mmItem.Perms) > 0 && mmItem.Perms[0] == 'r'
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return len(mmItem.Perms) > 1 && mmItem.Perms[1] == 'w'
}

func (mmItem MemoryMapItem) IsExecutable() bool {
	return len(mmItem.Perms) > 2 && mmItem.Perms[2] == 'x'
}

// MemoryMap defines the interface for operations related to a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryMapItem, error)

	// IsReadablePerms checks if a memory region has read permissions
	IsReadablePerms(perms string) bool

	// IsWritablePerms checks if a memory region has write permissions
	IsWritablePerms(perms string) bool

	// IsExecutablePerms checks if a memory region has execute permissions
	IsExecutablePerms(perms string) bool
}

// Sort orders the map by address; Lookup requires it.
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Lookup finds the region containing addr in a map sorted by address.
func Lookup(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// Covers reports whether [addr, addr+size) lies entirely inside mapped regions
// of a sorted map. Adjacent regions are allowed to chain.
func Covers(addr uint64, size uint, memoryMap []MemoryMapItem) bool {
	end := addr + uint64(size)
	for addr < end {
		item := Lookup(addr, memoryMap)
		if item == nil {
			return false
		}
		addr = item.End()
	}
	return true
}

// Image is a file-backed span of the address space: every region mapped from
// the same path, from the lowest start to the highest end.
type Image struct {
	Path string
	Base uint64
	Size uint
}

func (img Image) Name() string {
	return filepath.Base(img.Path)
}

// Images groups file-backed regions by pathname, ordered by base address.
// Pseudo paths such as "[heap]" or "[vdso]" are skipped.
func Images(memoryMap []MemoryMapItem) []Image {
	spans := make(map[string]*Image)
	var order []string

	for _, item := range memoryMap {
		if item.Pathname == "" || strings.HasPrefix(item.Pathname, "[") {
			continue
		}

		img, ok := spans[item.Pathname]
		if !ok {
			spans[item.Pathname] = &Image{Path: item.Pathname, Base: item.Address, Size: item.Size}
			order = append(order, item.Pathname)
			continue
		}

		end := img.Base + uint64(img.Size)
		if item.Address < img.Base {
			img.Base = item.Address
		}
		if item.End() > end {
			end = item.End()
		}
		img.Size = uint(end - img.Base)
	}

	result := make([]Image, 0, len(order))
	for _, path := range order {
		result = append(result, *spans[path])
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Base < result[j].Base
	})
	return result
}

// FindImage returns the image whose path equals path, or whose base name
// matches it case-insensitively when path has no directory part.
func FindImage(memoryMap []MemoryMapItem, path string) (Image, bool) {
	byName := filepath.Base(path) == path
	for _, img := range Images(memoryMap) {
		if img.Path == path {
			return img, true
		}
		if byName && strings.EqualFold(img.Name(), path) {
			return img, true
		}
	}
	return Image{}, false
}
