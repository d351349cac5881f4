//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"
)

func platform() (platformFinder, error) {
	return nil, fmt.Errorf("live processes are not supported on %s, use --dump", runtime.GOOS)
}
