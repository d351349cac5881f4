package main

import (
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump DIR",
	Short: "Save the target's readable memory for offline use with --dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		return s.Process().Save(args[0])
	},
}
