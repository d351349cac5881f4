//go:build windows

package main

import "sigmem/process_windows"

func platform() (platformFinder, error) {
	return process_windows.NewProcessFinder(), nil
}
