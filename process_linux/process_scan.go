//go:build linux

package process_linux

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"sigmem/aob"
	"sigmem/process"
)

// ScanRegions searches every readable region of the process for pattern,
// reading up to maxdop regions concurrently. Regions that cannot be read are
// skipped. Matches are returned in ascending address order.
func (p *LinuxProcess) ScanRegions(pattern aob.Pattern, maxdop uint) ([]process.ProcessMemoryAddress, error) {
	if !pattern.IsValid() {
		return nil, aob.ErrMalformedPattern
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return nil, err
	}
	memMap, err := p.GetMemoryMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get memory map: %w", err)
	}

	if maxdop == 0 {
		maxdop = 1
	}
	if numCPU := uint(runtime.NumCPU()); maxdop > numCPU {
		maxdop = numCPU
		p.log.Debugln("Limiting maxdop to number of CPUs:", maxdop)
	}

	p.log.Infoln("Scanning", len(memMap), "regions for", pattern.String(), "maxdop", maxdop)

	sem := make(chan struct{}, maxdop)
	var wg sync.WaitGroup
	var resultsMutex sync.Mutex
	var results []process.ProcessMemoryAddress

	for _, region := range memMap {
		if !region.IsReadable() || region.Size < uint(pattern.Len()) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(addr uint64, size uint) {
			defer func() {
				<-sem
				wg.Done()
			}()

			data, err := p.ReadMemory(process.ProcessMemoryAddress(addr), process.ProcessMemorySize(size))
			if err != nil {
				p.log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", addr), err)
				return
			}

			var found []process.ProcessMemoryAddress
			for offset := range pattern.ScanAll(data) {
				found = append(found, process.ProcessMemoryAddress(addr+uint64(offset)))
			}
			if len(found) == 0 {
				return
			}

			resultsMutex.Lock()
			results = append(results, found...)
			resultsMutex.Unlock()
		}(region.Address, region.Size)
	}

	wg.Wait()

	slices.Sort(results)
	p.log.Infoln("Scan complete, found", len(results), "matches")
	return results, nil
}
