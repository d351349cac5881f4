package main

import (
	"errors"
	"fmt"
	"strconv"

	"sigmem/process"
	"sigmem/process_blob"
	"sigmem/session"

	"github.com/spf13/cobra"
)

type platformFinder interface {
	process.ProcessFinder
	process.ProcessOpener
}

// pidOpener attaches to one PID whatever name it is asked for.
type pidOpener struct {
	opener process.ProcessOpener
	pid    process.ProcessID
}

func (o pidOpener) OpenProcessByName(string) (process.Process, error) {
	return o.opener.OpenProcessByPID(o.pid)
}

func (o pidOpener) OpenProcessByPID(pid process.ProcessID) (process.Process, error) {
	return o.opener.OpenProcessByPID(pid)
}

// openSession attaches to whatever the persistent target flags select.
func openSession(cmd *cobra.Command) (*session.Session, error) {
	name, _ := cmd.Flags().GetString("name")
	pid, _ := cmd.Flags().GetInt("pid")
	dumpDir, _ := cmd.Flags().GetString("dump")
	debug, _ := cmd.Flags().GetBool("debug")

	var opener process.ProcessOpener
	switch {
	case dumpDir != "":
		dump, err := process_blob.Load(dumpDir)
		if err != nil {
			return nil, err
		}
		opener = process_blob.NewOpener(dump)
		if name == "" {
			name = dump.Name()
		}
	case pid != 0:
		finder, err := platform()
		if err != nil {
			return nil, err
		}
		opener = pidOpener{opener: finder, pid: process.ProcessID(pid)}
		if name == "" {
			name = fmt.Sprintf("pid-%d", pid)
		}
	case name != "":
		finder, err := platform()
		if err != nil {
			return nil, err
		}
		opener = finder
	default:
		return nil, errors.New("one of --name, --pid or --dump is required")
	}

	s := session.New(name, opener, session.WithLogger(cliLog), session.WithPointerDebug(debug))
	if err := s.Attach(); err != nil {
		return nil, err
	}
	return s, nil
}

// parseAddress accepts decimal or 0x-prefixed hex.
func parseAddress(text string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", text, err)
	}
	return process.ProcessMemoryAddress(v), nil
}

// parseOffsets accepts signed decimal or hex offsets such as "0x10" or "-0x8".
func parseOffsets(texts []string) ([]process.ProcessMemoryOffset, error) {
	offsets := make([]process.ProcessMemoryOffset, 0, len(texts))
	for _, text := range texts {
		v, err := strconv.ParseInt(text, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", text, err)
		}
		offsets = append(offsets, process.ProcessMemoryOffset(v))
	}
	return offsets, nil
}
