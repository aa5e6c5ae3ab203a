package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/symi-lang/symi/event"
)

var eventsCmd = &cobra.Command{
	Use:   "events <file>",
	Short: "Print the resolved event list (get_events)",
	Args:  cobra.ExactArgs(1),
	RunE:  runEvents,
}

func runEvents(cmd *cobra.Command, args []string) error {
	store, fileID, err := buildFile(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, e := range store.GetEvents(fileID) {
		switch e.Kind {
		case event.KindNote:
			n := e.Note
			fmt.Fprintf(out, "Note  freq=%.3f start=%.4f dur=%.4f bar=%d\n", n.Freq, n.StartSec, n.DurationSec, n.StartBar)
		case event.KindNewMeasure:
			m := e.NewMeasure
			fmt.Fprintf(out, "Bar   bar=%d start=%.4f\n", m.StartBar, m.StartSec)
		case event.KindBaseFrequencyDef:
			b := e.BaseFrequencyDef
			fmt.Fprintf(out, "Base  freq=%.3f start=%.4f\n", b.Freq, b.StartSec)
		}
	}
	return nil
}
