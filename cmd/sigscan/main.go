package main

import (
	"os"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
)

var cliLog = logger.NewLogger(coloransi.Color(coloransi.ColorTeal, coloransi.ColorWhite, "sigscan"))

var rootCmd = &cobra.Command{
	Use:   "sigscan",
	Short: "Signature scanning and pointer chains for running processes",
	Long: `sigscan attaches to a process by executable name or PID, scans its main
module for byte signatures and follows pointer chains from what it finds.
A directory written by "sigscan dump" can stand in for a live process.`,
	Example: `
# Find a RIP-relative global and read a u32 two hops away
sigscan resolve -n game.exe "48 8b 05 ? ? ? ? 48 8b 50 10" --disp-offset 3 --instr-len 7 --offset 0x10 --offset 0x20 --type u32

# Scan a saved dump and show the decoded instruction at every match
sigscan scan --dump ./game-dump "48 8b 05 ? ? ? ?" --all --decode
  `,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringP("name", "n", "", "Executable name of the target, e.g. game.exe")
	rootCmd.PersistentFlags().IntP("pid", "p", 0, "Process ID of the target")
	rootCmd.PersistentFlags().String("dump", "", "Use a saved dump directory instead of a live process")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Trace every pointer chain hop")

	rootCmd.AddCommand(scanCmd, resolveCmd, readCmd, findPathCmd, dumpCmd, modulesCmd, psCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
