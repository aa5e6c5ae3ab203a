package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.symi")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunTokensPrintsKinds(t *testing.T) {
	path := writeTestFile(t, "(120) C4,\n")

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runTokens(cmd, []string{path}))
	assert.Contains(t, buf.String(), "PitchSpellOctave")
}

func TestRunEventsPrintsNotes(t *testing.T) {
	path := writeTestFile(t, "(120) C4,\n")

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runEvents(cmd, []string{path}))
	assert.Contains(t, buf.String(), "Note")
}

func TestRunValidateMidiOk(t *testing.T) {
	path := writeTestFile(t, "(120) C4,\n")

	validateBendRange, validateTPQ = 2, 480
	validateTimeTol, validatePitchTol = 0.002, 1.0

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runValidateMidi(cmd, []string{path}))
	assert.Contains(t, buf.String(), "ok")
}

func TestRunExportMidiWritesFile(t *testing.T) {
	path := writeTestFile(t, "(120) C4,\n")
	out := filepath.Join(t.TempDir(), "out.mid")

	exportBendRange, exportTPQ = 2, 480
	exportTimeTol, exportPitchTol = 0.002, 1.0
	exportOutput = out
	exportProgram = 0

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runExportMidi(cmd, []string{path}))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))
}
