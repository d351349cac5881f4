package main

import (
	"errors"
	"fmt"

	"sigmem/aob"
	"sigmem/process"
	"sigmem/search"

	"github.com/spf13/cobra"
)

var findPathCmd = &cobra.Command{
	Use:   "find-path ROOT",
	Short: "Search the structures reachable from ROOT for a value",
	Long: `find-path dereferences ROOT and walks the pointers it finds, printing
every offset list that leads to the value. The printed offsets can be passed
straight to "sigscan read ROOT -o ...".`,
	Args: cobra.ExactArgs(1),
	RunE: runFindPath,
}

func init() {
	findPathCmd.Flags().Uint32("u32", 0, "Search for a 32-bit value")
	findPathCmd.Flags().String("pattern", "", "Search for a byte signature")
	findPathCmd.Flags().Int("depth", 3, "Maximum pointer depth")
	findPathCmd.Flags().Uint("max-struct", 256, "Bytes scanned per structure")
	findPathCmd.Flags().Uint("align", 4, "Alignment of candidate fields")
}

func runFindPath(cmd *cobra.Command, args []string) error {
	root, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	depth, _ := cmd.Flags().GetInt("depth")
	maxStruct, _ := cmd.Flags().GetUint("max-struct")
	align, _ := cmd.Flags().GetUint("align")
	options := []search.Option{
		search.WithMaxDepth(depth),
		search.WithMaxStructSize(maxStruct),
		search.WithMinAlignment(align),
	}

	switch {
	case cmd.Flags().Changed("pattern"):
		text, _ := cmd.Flags().GetString("pattern")
		pattern, err := aob.Parse(text)
		if err != nil {
			return err
		}
		options = append(options, search.WithSearchForPattern(pattern))
	case cmd.Flags().Changed("u32"):
		v, _ := cmd.Flags().GetUint32("u32")
		options = append(options, search.WithSearchForType(v))
	default:
		return errors.New("one of --u32 or --pattern is required")
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := search.Search(s.Process(), root, options...)
	if err != nil {
		return err
	}

	for _, r := range results {
		fmt.Println(r.Address.ToString(), formatPath(r.Path))
	}
	cliLog.Infoln("Found", len(results), "paths from", root.ToString())
	return nil
}

func formatPath(path []process.ProcessMemoryOffset) string {
	s := ""
	for _, off := range path {
		s += " -o " + off.ToString()
	}
	return s
}
