package main

import (
	"github.com/spf13/cobra"
)

var readCmd = &cobra.Command{
	Use:   "read ADDRESS",
	Short: "Follow a pointer chain from an address and read the value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := parseAddress(args[0])
		if err != nil {
			return err
		}

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

		return printValue(cmd, s.CreatePointer(root, offsets...))
	},
}

func init() {
	addValueFlags(readCmd)
}
