package main

import (
	"errors"
	"fmt"
	"slices"

	"sigmem/aob"
	"sigmem/hexdump"
	"sigmem/pointer"
	"sigmem/process"
	"sigmem/session"

	"github.com/spf13/cobra"
)

type regionScanner interface {
	ScanRegions(pattern aob.Pattern, maxdop uint) ([]process.ProcessMemoryAddress, error)
}

var scanCmd = &cobra.Command{
	Use:   "scan PATTERN",
	Short: "Scan the main module for a byte signature",
	Long: `Scan the main module for a signature such as "48 8b 05 ? ? ? ?".
By default the first match is printed; --all prints every match.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolP("all", "a", false, "Print every match")
	scanCmd.Flags().Int("nth", 0, "Print only the nth match, counting from 0")
	scanCmd.Flags().Bool("decode", false, "Decode the instruction at each match")
	scanCmd.Flags().Int("instr-len", 0, "Instruction length; with --decode, warn when the decoded length differs")
	scanCmd.Flags().Int("disp-offset", -1, "Print the RIP-relative target using the displacement at this offset")
	scanCmd.Flags().Int("context", 0, "Hex dump this many bytes around each match")
	scanCmd.Flags().Bool("all-regions", false, "Scan every readable region instead of the main module (Linux)")
	scanCmd.Flags().Uint("threads", 4, "Regions scanned concurrently with --all-regions")
}

func runScan(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	nth, _ := cmd.Flags().GetInt("nth")
	decode, _ := cmd.Flags().GetBool("decode")
	instrLen, _ := cmd.Flags().GetInt("instr-len")
	dispOffset, _ := cmd.Flags().GetInt("disp-offset")
	context, _ := cmd.Flags().GetInt("context")
	allRegions, _ := cmd.Flags().GetBool("all-regions")
	threads, _ := cmd.Flags().GetUint("threads")

	if err := checkRelativeFlags(dispOffset, instrLen); err != nil {
		return err
	}

	pattern, err := aob.Parse(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	matches, err := findMatches(s, args[0], pattern, allRegions, threads)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return &session.ScanError{Pattern: args[0], Err: aob.ErrPatternNotFound}
	}

	switch {
	case all:
	case nth >= len(matches) || nth < 0:
		return fmt.Errorf("match %d requested, %d found: %w", nth, len(matches), aob.ErrPatternNotFound)
	default:
		matches = matches[nth : nth+1]
	}

	mod, _ := s.MainModule()
	for _, addr := range matches {
		line := addr.ToString()
		if mod.Contains(addr) {
			line += fmt.Sprintf(" %s+0x%X", mod.Name, uint64(addr-mod.Base))
		}

		if dispOffset >= 0 && mod.Contains(addr) {
			target, err := relativeTarget(s, mod, addr, instrLen, dispOffset)
			if err != nil {
				return err
			}
			line += " -> " + target.ToString()
		}

		if decode {
			text, err := describeMatch(s, addr, instrLen)
			if err != nil {
				cliLog.Warn("Decode failed: ", err)
			} else {
				line += "  " + text
			}
		}
		fmt.Println(line)

		if context > 0 {
			printContext(s, addr, pattern, context)
		}
	}
	return nil
}

func findMatches(s *session.Session, text string, pattern aob.Pattern, allRegions bool, threads uint) ([]process.ProcessMemoryAddress, error) {
	if allRegions {
		rs, ok := s.Process().(regionScanner)
		if !ok {
			return nil, fmt.Errorf("--all-regions is not supported for %s", s.Name())
		}
		return rs.ScanRegions(pattern, threads)
	}

	seq, err := s.ScanAll(text)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// checkRelativeFlags rejects --disp-offset without an instruction length that
// can hold the displacement.
func checkRelativeFlags(dispOffset, instrLen int) error {
	if dispOffset < 0 {
		return nil
	}
	if instrLen <= 0 {
		return errors.New("--disp-offset needs --instr-len")
	}
	if dispOffset+4 > instrLen {
		return fmt.Errorf("--disp-offset %d does not fit a %d byte instruction: %w", dispOffset, instrLen, pointer.ErrDisplacementOutOfBounds)
	}
	return nil
}

// relativeTarget decodes the displacement from the cached module image
// instead of reading the target again.
func relativeTarget(s *session.Session, mod process.Module, addr process.ProcessMemoryAddress, instrLen, dispOffset int) (process.ProcessMemoryAddress, error) {
	image, err := s.MainModuleBytes()
	if err != nil {
		return 0, err
	}

	offset, err := pointer.RelativeDisplacement(image, int(addr-mod.Base), instrLen, dispOffset)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", addr.ToString(), err)
	}
	return mod.Base.Add(process.ProcessMemoryOffset(offset)), nil
}

func printContext(acc process.Accessor, addr process.ProcessMemoryAddress, pattern aob.Pattern, context int) {
	start := addr - process.ProcessMemoryAddress(context/2)
	size := process.ProcessMemorySize(context + pattern.Len())

	data, err := acc.ReadMemory(start, size)
	if err != nil {
		// the match may sit at the start of a region
		start = addr
		if data, err = acc.ReadMemory(start, process.ProcessMemorySize(pattern.Len())); err != nil {
			cliLog.Warn("Context read failed: ", err)
			return
		}
	}
	fmt.Print(hexdump.DumpMatch(data, start, pattern))
}
