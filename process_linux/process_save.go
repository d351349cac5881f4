//go:build linux

package process_linux

import (
	"fmt"

	"sigmem/process"
	"sigmem/process_blob"
)

// Save writes a dump of every readable region that process_blob.Load can read
// back for offline scanning.
func (p *LinuxProcess) Save(dirname string) error {
	if p.GetPID() == 0 {
		return process.ErrProcessNotOpen
	}

	modules, err := p.Modules()
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return err
	}

	meta := process_blob.Metadata{
		PID:         p.GetPID(),
		Name:        p.name,
		PointerSize: p.pointerSize,
		MainModule:  &modules[0],
		Modules:     modules,
	}

	p.mu.Lock()
	log := p.log
	p.mu.Unlock()

	return process_blob.SaveDump(dirname, meta, mm, p, log)
}
