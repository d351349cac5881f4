package main

import (
	"fmt"

	"sigmem/pointer"
	"sigmem/process"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve PATTERN",
	Short: "Turn a signature match into a pointer chain and read through it",
	Long: `Resolve finds PATTERN in the main module and builds a pointer from it.
By default the match is a RIP-relative instruction: the root is the address
after the instruction plus its 32-bit displacement. With --absolute the root
is a pointer stored in the instruction at --scan-offset.`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Int("disp-offset", 3, "Offset of the 32-bit displacement inside the instruction")
	resolveCmd.Flags().Int("instr-len", 7, "Length of the instruction")
	resolveCmd.Flags().Int("nth", 0, "Use the nth match, counting from 0")
	resolveCmd.Flags().Bool("absolute", false, "Read an absolute address from the match instead")
	resolveCmd.Flags().Int("scan-offset", 0, "Offset of the absolute address inside the match")
	addValueFlags(resolveCmd)
}

// addValueFlags adds the flags that pick the chain and what to read at its end.
func addValueFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceP("offset", "o", nil, "Pointer chain offset, repeatable, e.g. -o 0x10 -o -0x8")
	cmd.Flags().StringP("type", "t", "ptr", "Value type: "+valueTypes)
	cmd.Flags().Uint("size", 64, "Byte count for the str and bytes types")
}

func runResolve(cmd *cobra.Command, args []string) error {
	dispOffset, _ := cmd.Flags().GetInt("disp-offset")
	instrLen, _ := cmd.Flags().GetInt("instr-len")
	nth, _ := cmd.Flags().GetInt("nth")
	absolute, _ := cmd.Flags().GetBool("absolute")
	scanOffset, _ := cmd.Flags().GetInt("scan-offset")

	offsetTexts, _ := cmd.Flags().GetStringSlice("offset")
	offsets, err := parseOffsets(offsetTexts)
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var p *pointer.Pointer
	if absolute {
		p, err = s.ScanAbsoluteNth(nth, args[0], scanOffset, offsets...)
	} else {
		p, err = s.ScanAndResolveNth(nth, args[0], dispOffset, instrLen, offsets...)
	}
	if err != nil {
		return err
	}

	return printValue(cmd, p)
}

func printValue(cmd *cobra.Command, p *pointer.Pointer) error {
	typ, _ := cmd.Flags().GetString("type")
	size, _ := cmd.Flags().GetUint("size")

	addr, err := p.Resolve()
	if err != nil {
		return err
	}
	fmt.Println("chain:  ", p.String())
	fmt.Println("address:", addr.ToString())

	value, err := readValue(p, typ, process.ProcessMemorySize(size))
	if err != nil {
		return err
	}
	fmt.Println("value:  ", value)
	return nil
}
