package main

import (
	"fmt"

	"sigmem/process"

	"github.com/spf13/cobra"
)

var psCmd = &cobra.Command{
	Use:   "ps [NAME]",
	Short: "List running processes, optionally only those named NAME",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		finder, err := platform()
		if err != nil {
			return err
		}

		var procs []process.ProcessInfo
		if len(args) == 1 {
			procs, err = finder.FindProcessByName(args[0])
		} else {
			procs, err = finder.FindAllProcesses()
		}
		if err != nil {
			return err
		}

		for _, p := range procs {
			fmt.Printf("%7d %7d %-24s %s\n", p.PID, p.PPID, p.Name, p.Exe)
		}
		return nil
	},
}
