package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/symi-lang/symi/midiexport"
)

var (
	validateBendRange int
	validateTPQ        int
	validateTimeTol    float64
	validatePitchTol   float64
)

var validateMidiCmd = &cobra.Command{
	Use:   "validate-midi <file>",
	Short: "Check whether a file can be exported to MIDI (validate_midi_export)",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateMidi,
}

func init() {
	exportFlags(validateMidiCmd.Flags(), &validateBendRange, &validateTPQ, &validateTimeTol, &validatePitchTol)
}

// exportFlags wires the four export-tolerance flags shared by
// validate-midi and export-midi onto a *pflag.FlagSet, defaulting
// each from the project config so the CLI and config stay in sync.
func exportFlags(flags *pflag.FlagSet, bendRange, tpq *int, timeTol, pitchTol *float64) {
	cfg := loadExportConfig()
	flags.IntVar(bendRange, "bend-range", cfg.BendRangeSemitones, "pitch-bend range in semitones")
	flags.IntVar(tpq, "ticks-per-quarter", cfg.TicksPerQuarter, "MIDI ticks per quarter note")
	flags.Float64Var(timeTol, "time-tolerance", cfg.TimeToleranceSec, "allowed timing round-trip error, seconds")
	flags.Float64Var(pitchTol, "pitch-tolerance", cfg.PitchToleranceCents, "allowed pitch round-trip error, cents")
}

func runValidateMidi(cmd *cobra.Command, args []string) error {
	store, fileID, err := buildFile(args[0])
	if err != nil {
		return err
	}

	opts := midiexport.Options{
		PitchBendRangeSemitones: validateBendRange,
		TicksPerQuarter:         validateTPQ,
		TimeToleranceSeconds:    validateTimeTol,
		PitchToleranceCents:     validatePitchTol,
	}

	if err := midiexport.Validate(store.GetEvents(fileID), opts); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s\n", err)
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
