package process

import (
	"fmt"

	"sigmem/process/memory_map"
)

// Module is a loaded image inside the target's address space.
type Module struct {
	Name string               `json:"name"`
	Path string               `json:"path"`
	Base ProcessMemoryAddress `json:"base"`
	Size ProcessMemorySize    `json:"size"`
}

// End returns the first address past the module.
func (m Module) End() ProcessMemoryAddress {
	return m.Base + ProcessMemoryAddress(m.Size)
}

// Contains reports whether addr falls inside the module image.
func (m Module) Contains(addr ProcessMemoryAddress) bool {
	return addr >= m.Base && addr < m.End()
}

func (m Module) String() string {
	return fmt.Sprintf("%s [0x%X-0x%X] %s", m.Name, uint64(m.Base), uint64(m.End()), m.Size.ToString())
}

// ModuleFromImage converts a memory map image span to a Module.
func ModuleFromImage(img memory_map.Image) Module {
	return Module{
		Name: img.Name(),
		Path: img.Path,
		Base: ProcessMemoryAddress(img.Base),
		Size: ProcessMemorySize(img.Size),
	}
}

// ModulesFromMap lists the file-backed images of a memory map with the image
// matching main first. main may be a full path or a bare executable name.
func ModulesFromMap(memoryMap []memory_map.MemoryMapItem, main string) ([]Module, error) {
	mainImage, ok := memory_map.FindImage(memoryMap, main)
	if !ok {
		return nil, fmt.Errorf("main module %q: %w", main, ErrAddressNotMapped)
	}

	result := []Module{ModuleFromImage(mainImage)}
	for _, img := range memory_map.Images(memoryMap) {
		if img.Path == mainImage.Path {
			continue
		}
		result = append(result, ModuleFromImage(img))
	}
	return result, nil
}
