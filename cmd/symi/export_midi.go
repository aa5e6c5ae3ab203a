package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/symi-lang/symi/midiexport"
)

var (
	exportBendRange int
	exportTPQ        int
	exportTimeTol    float64
	exportPitchTol   float64
	exportOutput     string
	exportProgram    uint8
)

var exportMidiCmd = &cobra.Command{
	Use:   "export-midi <file>",
	Short: "Export a file to a Standard MIDI File (export_midi)",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportMidi,
}

func init() {
	exportFlags(exportMidiCmd.Flags(), &exportBendRange, &exportTPQ, &exportTimeTol, &exportPitchTol)
	exportMidiCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output .mid path (required)")
	exportMidiCmd.Flags().Uint8Var(&exportProgram, "program", 0, "GM1 program number for note tracks")
	exportMidiCmd.MarkFlagRequired("output")
}

func runExportMidi(cmd *cobra.Command, args []string) error {
	store, fileID, err := buildFile(args[0])
	if err != nil {
		return err
	}

	opts := midiexport.Options{
		PitchBendRangeSemitones: exportBendRange,
		TicksPerQuarter:         exportTPQ,
		TimeToleranceSeconds:    exportTimeTol,
		PitchToleranceCents:     exportPitchTol,
		Program:                 exportProgram,
	}

	if err := midiexport.ExportToFile(exportOutput, store.GetEvents(fileID), opts); err != nil {
		return fmt.Errorf("export-midi: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", exportOutput)
	return nil
}
