//go:build linux

package main

import "sigmem/process_linux"

func platform() (platformFinder, error) {
	return process_linux.NewProcessFinder(), nil
}
