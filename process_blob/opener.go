package process_blob

import (
	"fmt"
	"strings"
	"sync"

	"sigmem/process"
)

// Opener hands out registered snapshots as if they were running processes.
// Killed snapshots are not found, so a session sees its target come and go.
type Opener struct {
	mu    sync.Mutex
	procs []*ProcessDump
}

var _ process.ProcessOpener = (*Opener)(nil)

func NewOpener(procs ...*ProcessDump) *Opener {
	return &Opener{procs: procs}
}

// Add registers another snapshot, e.g. a restarted target.
func (o *Opener) Add(p *ProcessDump) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.procs = append(o.procs, p)
}

// OpenProcessByName returns the live snapshot with the lowest PID whose name
// matches case-insensitively.
func (o *Opener) OpenProcessByName(name string) (process.Process, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var found *ProcessDump
	for _, p := range o.procs {
		if !strings.EqualFold(p.Name(), name) || !p.running() {
			continue
		}
		if found == nil || p.GetPID() < found.GetPID() {
			found = p
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%q: %w", name, process.ErrProcessNotRunning)
	}

	found.reopen()
	return found, nil
}

func (o *Opener) OpenProcessByPID(pid process.ProcessID) (process.Process, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, p := range o.procs {
		if p.GetPID() == pid && p.running() {
			p.reopen()
			return p, nil
		}
	}
	return nil, fmt.Errorf("pid %d: %w", pid, process.ErrProcessNotRunning)
}
