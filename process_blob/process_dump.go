package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"sigmem/process"
	"sigmem/process/memory_map"
)

// Metadata is the metadata.json document of a dump directory.
type Metadata struct {
	PID         process.ProcessID         `json:"pid"`
	Name        string                    `json:"name"`
	PointerSize process.ProcessMemorySize `json:"pointer_size,omitempty"`
	MainModule  *process.Module           `json:"main_module,omitempty"`
	Modules     []process.Module          `json:"modules,omitempty"`
}

// ProcessDump implements process.Process over captured memory regions, either
// loaded from a dump directory or assembled region by region. Writes land in
// the captured copy. Kill makes it behave like a target that exited.
type ProcessDump struct {
	mu     sync.Mutex
	meta   Metadata
	mm     []memory_map.MemoryMapItem
	blobs  map[uint64][]byte // region address -> data
	alive  bool
	closed bool
}

var _ process.Process = (*ProcessDump)(nil)

// NewProcessDump creates an empty, live snapshot.
func NewProcessDump(pid process.ProcessID, name string, pointerSize process.ProcessMemorySize) *ProcessDump {
	return &ProcessDump{
		meta: Metadata{
			PID:         pid,
			Name:        name,
			PointerSize: pointerSize,
		},
		blobs: make(map[uint64][]byte),
		alive: true,
	}
}

// AddRegion maps a copy of data at addr. pathname marks file-backed regions;
// regions sharing the main executable's path form the main module.
func (p *ProcessDump) AddRegion(addr process.ProcessMemoryAddress, data []byte, perms, pathname string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mm = append(p.mm, memory_map.MemoryMapItem{
		Address:  uint64(addr),
		Size:     uint(len(data)),
		Perms:    perms,
		Pathname: pathname,
	})
	memory_map.Sort(p.mm)
	p.blobs[uint64(addr)] = slices.Clone(data)
}

// Kill marks the snapshot as exited. Reads and writes fail from now on.
func (p *ProcessDump) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive = false
}

func (p *ProcessDump) Metadata() Metadata {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.meta
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.meta.PID
}

func (p *ProcessDump) Name() string {
	return p.meta.Name
}

func (p *ProcessDump) PointerSize() process.ProcessMemorySize {
	if p.meta.PointerSize == 0 {
		return process.PointerSize64
	}
	return p.meta.PointerSize
}

func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *ProcessDump) running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive
}

func (p *ProcessDump) reopen() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = false
}

func (p *ProcessDump) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive && !p.closed
}

// UpdateMemoryMap is a no-op: the map of a snapshot never changes on its own.
func (p *ProcessDump) UpdateMemoryMap() error {
	return nil
}

func (p *ProcessDump) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.mm), nil
}

func (p *ProcessDump) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	item := memory_map.Lookup(uint64(addr), p.mm)
	return item != nil && item.IsReadable()
}

func (p *ProcessDump) MainModule() (process.Module, error) {
	modules, err := p.Modules()
	if err != nil {
		return process.Module{}, err
	}
	return modules[0], nil
}

// Modules prefers the module list recorded in the metadata and falls back to
// the file-backed regions of the memory map.
func (p *ProcessDump) Modules() ([]process.Module, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meta.MainModule != nil {
		result := []process.Module{*p.meta.MainModule}
		for _, m := range p.meta.Modules {
			if m.Base != p.meta.MainModule.Base {
				result = append(result, m)
			}
		}
		return result, nil
	}
	return process.ModulesFromMap(p.mm, p.meta.Name)
}

// errNotCaptured is the cause for regions listed in the map whose bytes were
// not saved (unreadable or too large at capture time).
var errNotCaptured = errors.New("region not captured")

func (p *ProcessDump) checkLive() error {
	if p.closed {
		return process.ErrProcessNotOpen
	}
	if !p.alive {
		return process.ErrProcessNotRunning
	}
	return nil
}

// ReadMemory copies size bytes at addr. A read may span adjacent regions.
func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.checkLive(); err != nil {
		return nil, process.ReadError(addr, size, err)
	}

	result := make([]byte, size)
	done := 0
	for done < len(result) {
		cur := uint64(addr) + uint64(done)
		data, err := p.regionData(cur, false)
		if err != nil {
			return nil, process.ReadError(addr, size, err)
		}
		done += copy(result[done:], data)
	}
	return result, nil
}

// WriteMemory patches the captured bytes. Only writable regions accept writes.
func (p *ProcessDump) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := process.ProcessMemorySize(len(data))
	if err := p.checkLive(); err != nil {
		return process.WriteError(addr, size, err)
	}

	done := 0
	for done < len(data) {
		cur := uint64(addr) + uint64(done)
		dst, err := p.regionData(cur, true)
		if err != nil {
			return process.WriteError(addr, size, err)
		}
		done += copy(dst, data[done:])
	}
	return nil
}

// regionData returns the captured bytes from addr to the end of its region.
// Callers hold p.mu.
func (p *ProcessDump) regionData(addr uint64, write bool) ([]byte, error) {
	region := memory_map.Lookup(addr, p.mm)
	if region == nil {
		return nil, fmt.Errorf("0x%x: %w", addr, process.ErrAddressNotMapped)
	}
	if write && !region.IsWritable() {
		return nil, fmt.Errorf("region 0x%x is %s", region.Address, region.Perms)
	}
	if !write && !region.IsReadable() {
		return nil, fmt.Errorf("region 0x%x is %s", region.Address, region.Perms)
	}

	data, ok := p.blobs[region.Address]
	offset := addr - region.Address
	if !ok || offset >= uint64(len(data)) {
		return nil, fmt.Errorf("0x%x: %w", region.Address, errNotCaptured)
	}
	return data[offset:], nil
}

// Save writes the snapshot in the same layout Load reads.
func (p *ProcessDump) Save(dirname string) error {
	mm, _ := p.GetMemoryMap()
	meta := p.Metadata()
	meta.PointerSize = p.PointerSize()
	if modules, err := p.Modules(); err == nil {
		meta.MainModule = &modules[0]
		meta.Modules = modules
	}
	return SaveDump(dirname, meta, mm, p, dumpLog)
}

// Load reads a dump directory written by SaveDump.
func Load(dirname string) (*ProcessDump, error) {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(metadataBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, memoryMapFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	p := NewProcessDump(meta.PID, meta.Name, meta.PointerSize)
	p.meta = meta
	if err := json.Unmarshal(mmBytes, &p.mm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.Sort(p.mm)

	for _, region := range p.mm {
		filename := filepath.Join(dirname, blobFileName(region))
		data, err := os.ReadFile(filename)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		p.blobs[region.Address] = data
	}

	dumpLog.Infoln("Loaded dump of", meta.Name, "pid", meta.PID, "with", len(p.blobs), "of", len(p.mm), "regions")
	return p, nil
}
