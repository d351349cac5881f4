package process_blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sigmem/process"
	"sigmem/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"

	maxSavedRegion = 100 * 1024 * 1024
	saveTimeout    = 30 * time.Second
)

var dumpLog = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "dump"))

func blobFileName(region memory_map.MemoryMapItem) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

// SaveDump writes metadata.json, process_memory_map.json and one
// blob_0x<addr>_<size>.bin per readable region into dirname. Regions that
// cannot be read are skipped and counted; only I/O on dirname is fatal.
func SaveDump(dirname string, meta Metadata, mm []memory_map.MemoryMapItem, acc process.Accessor, log *logger.Logger) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	log.Infoln("Saving process to directory:", dirname)

	if err := writeJSON(filepath.Join(dirname, metadataFile), meta); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dirname, memoryMapFile), mm); err != nil {
		return err
	}

	deadline := time.Now().Add(saveTimeout)
	saved, skipped, failed := 0, 0, 0

	for _, region := range mm {
		if time.Now().After(deadline) {
			return fmt.Errorf("save timed out after %v with %d regions saved", saveTimeout, saved)
		}

		if !region.IsReadable() {
			skipped++
			continue
		}
		if region.Size > maxSavedRegion {
			log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address), "(size:", region.Size/1024/1024, "MB)")
			skipped++
			continue
		}

		data, err := acc.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), err)
			failed++
			continue
		}

		if err := os.WriteFile(filepath.Join(dirname, blobFileName(region)), data, 0644); err != nil {
			return fmt.Errorf("failed to write region 0x%x: %w", region.Address, err)
		}
		saved++
	}

	log.Infoln("Process dump saved:", saved, "regions saved,", skipped, "skipped,", failed, "unreadable")
	return nil
}

func writeJSON(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(filename), err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(filename), err)
	}
	return nil
}
