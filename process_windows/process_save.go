//go:build windows

package process_windows

import (
	"fmt"

	"sigmem/process"
	"sigmem/process_blob"
)

// Save writes a dump that process_blob.Load can read back.
func (p *WindowsProcess) Save(dirname string) error {
	if p.getHandle() == 0 {
		return process.ErrProcessNotOpen
	}

	modules, err := p.Modules()
	if err != nil {
		return fmt.Errorf("failed to list modules: %w", err)
	}
	if err := p.UpdateMemoryMap(); err != nil {
		return err
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
