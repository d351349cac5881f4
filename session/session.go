// Package session attaches to a target process by executable name and
// exposes its main module to signature scans and pointer chains.
//
// A Session is driven by its caller: call Refresh once per tick, and rebuild
// pointers after a re-attach. Nothing runs in the background and a Session is
// not safe for concurrent use.
package session

import (
	"fmt"
	"slices"

	"sigmem/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Session owns one attachment to a named target. It implements
// process.Accessor; once the target is gone every access fails with an error
// matching both process.ErrProcessNotRunning and process.ErrMemoryAccessDenied.
type Session struct {
	name         string
	opener       process.ProcessOpener
	log          *logger.Logger
	cacheImage   bool
	pointerDebug bool

	proc  process.Process
	main  process.Module
	image []byte
}

var _ process.Accessor = (*Session)(nil)

// New creates a detached session for the executable name, e.g. "game.exe".
func New(name string, opener process.ProcessOpener, opts ...Option) *Session {
	s := &Session{
		name:       name,
		opener:     opener,
		log:        logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "session-"+name)),
		cacheImage: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) Name() string {
	return s.name
}

func (s *Session) IsAttached() bool {
	return s.proc != nil
}

// Process returns the attached process, or nil.
func (s *Session) Process() process.Process {
	return s.proc
}

// Attach opens the target and captures its main module. It is a no-op when
// already attached.
func (s *Session) Attach() error {
	if s.proc != nil {
		return nil
	}

	proc, err := s.opener.OpenProcessByName(s.name)
	if err != nil {
		return fmt.Errorf("attach %s: %w", s.name, err)
	}

	main, err := proc.MainModule()
	if err != nil {
		proc.Close()
		return fmt.Errorf("attach %s: %w", s.name, err)
	}

	s.proc = proc
	s.main = main

	if s.cacheImage {
		if err := s.ReloadImage(); err != nil {
			s.Detach()
			return fmt.Errorf("attach %s: %w", s.name, err)
		}
	}

	s.log.Infoln("Attached to", s.name, "pid", proc.GetPID(), "main module", main.String())
	return nil
}

// Refresh attaches when detached. When attached it checks that the target is
// still alive; if it exited the session detaches and ErrProcessNotRunning is
// returned. Calling it every tick is cheap.
func (s *Session) Refresh() error {
	if s.proc == nil {
		return s.Attach()
	}

	if !s.proc.IsAlive() {
		pid := s.proc.GetPID()
		s.Detach()
		s.log.Infoln("Target", s.name, "pid", pid, "exited")
		return fmt.Errorf("%s pid %d exited: %w", s.name, pid, process.ErrProcessNotRunning)
	}
	return nil
}

// Detach releases the target and drops the cached image.
func (s *Session) Detach() {
	if s.proc == nil {
		return
	}
	if err := s.proc.Close(); err != nil {
		s.log.Warn("Close failed: ", err)
	}
	s.proc = nil
	s.main = process.Module{}
	s.image = nil
}

// Close detaches. It exists so a Session can be deferred like any io.Closer.
func (s *Session) Close() error {
	s.Detach()
	return nil
}

func (s *Session) notRunning() error {
	return fmt.Errorf("%s: %w", s.name, process.ErrProcessNotRunning)
}

func (s *Session) MainModule() (process.Module, error) {
	if s.proc == nil {
		return process.Module{}, s.notRunning()
	}
	return s.main, nil
}

// Modules lists every module of the target, main module first.
func (s *Session) Modules() ([]process.Module, error) {
	if s.proc == nil {
		return nil, s.notRunning()
	}
	return s.proc.Modules()
}

// ReloadImage copies the main module out of the target again.
func (s *Session) ReloadImage() error {
	if s.proc == nil {
		return s.notRunning()
	}

	image, err := s.proc.ReadMemory(s.main.Base, s.main.Size)
	if err != nil {
		return fmt.Errorf("read main module %s: %w", s.main.Name, err)
	}
	s.image = image
	s.log.Debugln("Cached", len(image), "bytes of", s.main.Name)
	return nil
}

// MainModuleBytes returns the main module image. With image caching on this
// is the copy taken at attach time and must not be modified.
func (s *Session) MainModuleBytes() ([]byte, error) {
	if s.proc == nil {
		return nil, s.notRunning()
	}
	if s.cacheImage && s.image != nil {
		return s.image, nil
	}
	image, err := s.proc.ReadMemory(s.main.Base, s.main.Size)
	if err != nil {
		return nil, fmt.Errorf("read main module %s: %w", s.main.Name, err)
	}
	return image, nil
}

func (s *Session) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if s.proc == nil {
		return nil, process.ReadError(addr, size, s.notRunning())
	}
	return s.proc.ReadMemory(addr, size)
}

func (s *Session) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if s.proc == nil {
		return process.WriteError(addr, process.ProcessMemorySize(len(data)), s.notRunning())
	}
	return s.proc.WriteMemory(addr, slices.Clone(data))
}

// PointerSize is the target's pointer width, or 8 while detached.
func (s *Session) PointerSize() process.ProcessMemorySize {
	if s.proc == nil {
		return process.PointerSize64
	}
	return s.proc.PointerSize()
}
