package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/symi-lang/symi/diag"
)

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <file>",
	Short: "Print lex/parse/expand/resolve diagnostics (get_diagnostics)",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnostics,
}

// diagnosticStyles holds the color formatters for severities, grounded
// on titus's report.go newStyles pattern (disable all on !enabled).
type diagnosticStyles struct {
	warning *color.Color
	error   *color.Color
}

func newDiagnosticStyles(enabled bool) *diagnosticStyles {
	s := &diagnosticStyles{
		warning: color.New(color.FgYellow),
		error:   color.New(color.Bold, color.FgHiRed),
	}
	if !enabled {
		s.warning.DisableColor()
		s.error.DisableColor()
	}
	return s
}

func colorEnabled() bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	store, fileID, err := buildFile(args[0])
	if err != nil {
		return err
	}

	s := newDiagnosticStyles(colorEnabled())
	out := cmd.OutOrStdout()
	for _, d := range store.GetDiagnostics(fileID) {
		label := s.warning.Sprint(d.Severity.String())
		if d.Severity == diag.Error {
			label = s.error.Sprint(d.Severity.String())
		}
		fmt.Fprintf(out, "%s: %s (%d..%d)\n", label, d.Message, d.From, d.To)
	}
	return nil
}
