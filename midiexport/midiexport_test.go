package midiexport

import (
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/symi-lang/symi/event"
)

func defaultOpts() Options {
	return Options{
		PitchBendRangeSemitones: 2,
		TicksPerQuarter:         480,
		TimeToleranceSeconds:    0.002,
		PitchToleranceCents:     1.0,
	}
}

func noteEvent(startSec, durSec, freq float64) event.Event {
	return event.Event{Kind: event.KindNote, Note: event.Note{
		StartSec: startSec, DurationSec: durSec, Freq: freq,
	}}
}

func chainEvent(startSec, durSec, fromFreq, toFreq float64) event.Event {
	return event.Event{Kind: event.KindNote, Note: event.Note{
		StartSec: startSec, DurationSec: durSec, Freq: fromFreq,
		IsChain: true, ChainToHz: toFreq,
	}}
}

func TestValidateAcceptsInRangeNotes(t *testing.T) {
	events := []event.Event{noteEvent(0, 0.5, 261.625565), noteEvent(0.5, 0.5, 293.665)}
	assert.NoError(t, Validate(events, defaultOpts()))
}

func TestValidateRejectsBendBeyondRange(t *testing.T) {
	// A plain note's deviation from its nearest 12-TET semitone is
	// bounded to +-50 cents by construction, so it only exceeds a
	// pitch-bend range of zero (bend disabled): a quarter-tone-sharp
	// note then has nowhere to go.
	opts := defaultOpts()
	opts.PitchBendRangeSemitones = 0
	events := []event.Event{noteEvent(0, 0.5, 261.625565*math.Pow(2, 0.5/12))}
	err := Validate(events, opts)
	require.Error(t, err)
	var bendErr *BendOutOfRangeError
	require.ErrorAs(t, err, &bendErr)
}

func TestValidateRejectsChainSpanBeyondRange(t *testing.T) {
	// C4@G4 glides a full perfect fifth (700 cents), far past the
	// +-2-semitone (+-200c) range a single channel's bend can cover,
	// even though both endpoints individually sit exactly on a 12-TET
	// semitone (0 cents deviation from their own nearest key).
	c4 := 261.625565
	g4 := c4 * math.Pow(2, 7.0/12)
	events := []event.Event{chainEvent(0, 0.5, c4, g4)}
	err := Validate(events, defaultOpts())
	require.Error(t, err)
	var bendErr *BendOutOfRangeError
	require.ErrorAs(t, err, &bendErr)
}

func TestFreqToKeyAndCentsFindsNearestSemitone(t *testing.T) {
	key, cents := freqToKeyAndCents(440)
	assert.Equal(t, uint8(69), key)
	assert.InDelta(t, 0, cents, 1e-6)

	key, cents = freqToKeyAndCents(466.16) // Bb4, a semitone above 440... actually key 70
	assert.Equal(t, uint8(70), key)
	assert.InDelta(t, 0, cents, 1.0)
}

func TestBendFromCentsIsCenteredAtZero(t *testing.T) {
	assert.Equal(t, int16(pitchBendCenter), bendFromCents(0, 2))
	assert.Greater(t, bendFromCents(50, 2), int16(pitchBendCenter))
	assert.Less(t, bendFromCents(-50, 2), int16(pitchBendCenter))
}

func TestExportProducesNonEmptySMF(t *testing.T) {
	events := []event.Event{
		noteEvent(0, 0.5, 261.625565),
		noteEvent(0.5, 0.5, 293.665),
	}
	data, err := Export(events, defaultOpts())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// SMF files start with the "MThd" chunk header.
	assert.Equal(t, "MThd", string(data[:4]))
}

func TestExportAssignsSimultaneousDetunedNotesDistinctChannels(t *testing.T) {
	events := []event.Event{
		noteEvent(0, 1.0, 261.625565),
		noteEvent(0, 1.0, 261.625565*1.03), // enough detune to need its own channel
	}
	specs := collectNoteSpecs(events, defaultOpts())
	require.Len(t, specs, 2)
	tracks := assignToTracks(specs, defaultOpts())
	require.Len(t, tracks, 1)
	require.Len(t, tracks[0].notes, 2)
	assert.NotEqual(t, tracks[0].notes[0].channel, tracks[0].notes[1].channel)
}

func TestExportReusesChannelForMatchingBend(t *testing.T) {
	events := []event.Event{
		noteEvent(0, 0.5, 261.625565),
		noteEvent(0.5, 0.5, 261.625565), // same pitch, starts after the first ends
	}
	specs := collectNoteSpecs(events, defaultOpts())
	tracks := assignToTracks(specs, defaultOpts())
	require.Len(t, tracks[0].notes, 2)
	assert.Equal(t, tracks[0].notes[0].channel, tracks[0].notes[1].channel)
}

func TestExportSkipsDrumChannel(t *testing.T) {
	opts := defaultOpts()
	var events []event.Event
	// Enough simultaneous, mutually-detuned notes to walk past channel 9.
	for i := 0; i < 11; i++ {
		events = append(events, noteEvent(0, 1.0, 261.625565*(1+0.02*float64(i))))
	}
	specs := collectNoteSpecs(events, opts)
	tracks := assignToTracks(specs, opts)
	for _, tr := range tracks {
		for _, n := range tr.notes {
			assert.NotEqual(t, uint8(drumChannel), n.channel)
		}
	}
}

func TestExportToFileWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	target := dir + "/out.mid"
	events := []event.Event{noteEvent(0, 0.5, 261.625565)}
	require.NoError(t, ExportToFile(target, events, defaultOpts()))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "MThd", string(data[:4]))
}
