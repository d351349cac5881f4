package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List the modules loaded by the target, main module first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		modules, err := s.Modules()
		if err != nil {
			return err
		}
		for _, m := range modules {
			fmt.Printf("%016X %10d %s\n", uint64(m.Base), uint(m.Size), m.Path)
		}
		return nil
	},
}
