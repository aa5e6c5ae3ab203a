// Package main is the symi CLI, a thin cobra front-end over the
// session store exposing the host-facing operations as
// subcommands for scripting and testing outside an embedding editor.
//
// Grounded on praetorian-inc-titus's cmd/titus layout: a root.go
// wiring a persistent rootCmd plus one file per subcommand.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	noColor    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "symi",
	Short: "Compile and inspect Symi microtonal notation files",
	Long: `symi lexes, parses, macro-expands, and time-resolves .symi source
files, and exports the result to Standard MIDI Files with per-note
pitch-bend for microtonal accuracy.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".symi.yaml", "project config path")

	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(diagnosticsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(validateMidiCmd)
	rootCmd.AddCommand(exportMidiCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
