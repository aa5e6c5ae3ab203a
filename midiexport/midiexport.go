// Package midiexport serializes a resolved event stream to a Standard
// MIDI File, merging concurrent notes onto the minimum number of
// channels/tracks such that per-channel pitch-bend covers every
// microtonal offset within a configured bend range.
//
// Channel assignment is interval-graph coloring (RPN 0,0 bend-range
// setup per channel, same-tick NoteOff-before-NoteOn ordering,
// write-to-temp-then-rename on export) built over
// gitlab.com/gomidi/midi/v2/smf: accumulate absolute-tick events into
// a slice, sort, then convert to a relative-delta smf.Track.
package midiexport

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/symi-lang/symi/event"
	"github.com/symi-lang/symi/internal/gm"
)

// Options configures validation and export.
type Options struct {
	PitchBendRangeSemitones int
	TicksPerQuarter         int
	TimeToleranceSeconds    float64
	PitchToleranceCents     float64

	// Program is the GM1 program number assigned to every note track
	// (timbre never varies per note; only pitch-bend conveys tuning).
	Program uint8
}

const (
	pitchBendCenter = 8192
	pitchBendMax     = 16383
	drumChannel      = gm.DrumChannel

	// referenceBpm is the single tempo the emitter embeds in the SMF's
	// tempo track. resolve.Resolve's contract returns only seconds-
	// stamped events, not its internal piecewise BPM schedule, so the
	// emitter cannot recover the original tempo map; it instead fixes
	// one reference tempo and lets the tick grid be an arbitrary but
	// exact scaling of wall-clock time. Microtonal accuracy lives in
	// the per-note frequency/pitch-bend, not in tempo fidelity.
	referenceBpm = 120.0
)

// BendOutOfRangeError is returned when a note's deviation from 12-TET
// exceeds the configured pitch-bend range.
type BendOutOfRangeError struct {
	From, To       int
	Cents          float64
	RangeSemitones int
}

func (e *BendOutOfRangeError) Error() string {
	return fmt.Sprintf("BendOutOfRange: %.1fc exceeds ±%d semitones at %d..%d", e.Cents, e.RangeSemitones, e.From, e.To)
}

// ToleranceExceededError is returned when rounding a note's timing or
// pitch to the MIDI grid drifts beyond the configured tolerance.
type ToleranceExceededError struct {
	From, To int
	Kind     string // "time" or "pitch"
}

func (e *ToleranceExceededError) Error() string {
	return fmt.Sprintf("ToleranceExceeded: %s tolerance exceeded at %d..%d", e.Kind, e.From, e.To)
}

// NoChannelAvailableError is returned only when TicksPerQuarter is zero
// or negative; ordinary channel exhaustion instead allocates a new
// track, so this is unreachable under any reasonable configuration.
type NoChannelAvailableError struct {
	From, To int
}

func (e *NoChannelAvailableError) Error() string {
	return fmt.Sprintf("NoChannelAvailable at %d..%d", e.From, e.To)
}

// Validate runs the pre-export checks without building any
// bytes: bend range, then timing/pitch round-trip tolerance.
func Validate(events []event.Event, opts Options) error {
	if opts.TicksPerQuarter <= 0 {
		return &NoChannelAvailableError{}
	}
	for _, e := range events {
		if e.Kind != event.KindNote {
			continue
		}
		if err := validateNote(e.Note, opts); err != nil {
			return err
		}
	}
	return nil
}

func validateNote(n event.Note, opts Options) error {
	_, cents := freqToKeyAndCents(n.Freq)
	if math.Abs(cents) > float64(opts.PitchBendRangeSemitones)*100 {
		return &BendOutOfRangeError{From: n.SpanFrom, To: n.SpanTo, Cents: cents, RangeSemitones: opts.PitchBendRangeSemitones}
	}
	if n.IsChain {
		_, toCents := freqToKeyAndCents(n.ChainToHz)
		if math.Abs(toCents) > float64(opts.PitchBendRangeSemitones)*100 {
			return &BendOutOfRangeError{From: n.SpanFrom, To: n.SpanTo, Cents: toCents, RangeSemitones: opts.PitchBendRangeSemitones}
		}
		// The ramp holds the NoteOn key fixed and glides the pitch-bend
		// from the note's own offset to the target key+cents gap, so the
		// channel's single bend range must cover the whole span, not
		// just each endpoint's own distance to its nearest semitone.
		key, _ := freqToKeyAndCents(n.Freq)
		chainKey, chainCents := freqToKeyAndCents(n.ChainToHz)
		targetCents := float64(int(chainKey)-int(key))*100 + chainCents
		if math.Abs(targetCents) > float64(opts.PitchBendRangeSemitones)*100 {
			return &BendOutOfRangeError{From: n.SpanFrom, To: n.SpanTo, Cents: targetCents, RangeSemitones: opts.PitchBendRangeSemitones}
		}
	}

	tick := secondsToTick(n.StartSec, opts.TicksPerQuarter)
	actual := tickToSeconds(tick, opts.TicksPerQuarter)
	if math.Abs(actual-n.StartSec) > opts.TimeToleranceSeconds {
		return &ToleranceExceededError{From: n.SpanFrom, To: n.SpanTo, Kind: "time"}
	}

	bend := bendFromCents(cents, opts.PitchBendRangeSemitones)
	emittedCents := float64(int(bend)-pitchBendCenter) / pitchBendCenter * float64(opts.PitchBendRangeSemitones) * 100
	if math.Abs(emittedCents-cents) > opts.PitchToleranceCents {
		return &ToleranceExceededError{From: n.SpanFrom, To: n.SpanTo, Kind: "pitch"}
	}
	return nil
}

// freqToKeyAndCents finds the nearest 12-TET semitone and the signed
// cents offset from it.
func freqToKeyAndCents(freq float64) (key uint8, cents float64) {
	if freq <= 0 {
		return 69, 0
	}
	s0 := int(math.Round(69 + 12*math.Log2(freq/440)))
	if s0 < 0 {
		s0 = 0
	}
	if s0 > 127 {
		s0 = 127
	}
	ref := 440 * math.Pow(2, float64(s0-69)/12)
	return uint8(s0), 1200 * math.Log2(freq/ref)
}

// bendFromCents converts a cents offset to a 14-bit pitch-bend value
// centered at 8192, scaled by the configured bend range.
func bendFromCents(cents float64, rangeSemitones int) int16 {
	maxCents := float64(rangeSemitones) * 100
	if maxCents <= 0 {
		return pitchBendCenter
	}
	v := pitchBendCenter + int(math.Round((cents/maxCents)*pitchBendCenter))
	if v < 0 {
		v = 0
	}
	if v > pitchBendMax {
		v = pitchBendMax
	}
	return int16(v)
}

func secondsToTick(sec float64, ticksPerQuarter int) uint32 {
	secPerTick := (60.0 / referenceBpm) / float64(ticksPerQuarter)
	t := sec / secPerTick
	if t < 0 {
		t = 0
	}
	return uint32(math.Round(t))
}

func tickToSeconds(tick uint32, ticksPerQuarter int) float64 {
	secPerTick := (60.0 / referenceBpm) / float64(ticksPerQuarter)
	return float64(tick) * secPerTick
}

// noteSpec is a validated note ready for channel assignment.
type noteSpec struct {
	startSec, endSec float64
	key              uint8
	cents            float64
	isChain          bool
	chainKey         uint8
	chainCents       float64
	spanFrom, spanTo int
}

// channelSlot tracks the most recent note placed on one channel of
// one track, via interval-graph coloring.
type channelSlot struct {
	used       bool
	lastCents  float64
	lastEndSec float64
}

type trackBuild struct {
	channels [16]channelSlot
	notes    []placedNote
}

type placedNote struct {
	channel uint8
	spec    noteSpec
}

// Export validates events and, on success, returns a Type-1 SMF.
func Export(events []event.Event, opts Options) ([]byte, error) {
	if err := Validate(events, opts); err != nil {
		return nil, err
	}

	specs := collectNoteSpecs(events, opts)
	tracks := assignToTracks(specs, opts)

	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(opts.TicksPerQuarter)
	s.Add(buildTempoTrack())
	for _, tr := range tracks {
		s.Add(buildNoteTrack(tr, opts))
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("writing SMF: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToFile writes the export atomically: to a temp file beside
// targetPath, then rename, so a failed or interrupted export never
// leaves a partial file.
func ExportToFile(targetPath string, events []event.Event, opts Options) error {
	data, err := Export(events, opts)
	if err != nil {
		return err
	}
	dir := filepath.Dir(targetPath)
	tmp, err := os.CreateTemp(dir, ".symi-export-*.mid")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, targetPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

func collectNoteSpecs(events []event.Event, opts Options) []noteSpec {
	var specs []noteSpec
	for _, e := range events {
		if e.Kind != event.KindNote {
			continue
		}
		n := e.Note
		key, cents := freqToKeyAndCents(n.Freq)
		spec := noteSpec{
			startSec: n.StartSec, endSec: n.StartSec + n.DurationSec,
			key: key, cents: cents, spanFrom: n.SpanFrom, spanTo: n.SpanTo,
		}
		if n.IsChain {
			spec.isChain = true
			spec.chainKey, spec.chainCents = freqToKeyAndCents(n.ChainToHz)
		}
		specs = append(specs, spec)
	}
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].startSec < specs[j].startSec })
	return specs
}

// assignToTracks implements channel-coloring: reuse a channel
// whose bent state matches within tolerance, or whose last note ended
// long enough ago; otherwise allocate a new channel, and a new track
// once channels 0-15 (minus the reserved drum channel) are exhausted.
func assignToTracks(specs []noteSpec, opts Options) []*trackBuild {
	tracks := []*trackBuild{{}}

	for _, spec := range specs {
		if placeOnExistingTrack(tracks, spec, opts) {
			continue
		}
		tr := &trackBuild{}
		ch := firstUsableChannel()
		placeOnChannel(tr, ch, spec)
		tracks = append(tracks, tr)
	}
	return tracks
}

func firstUsableChannel() uint8 { return 0 }

func placeOnExistingTrack(tracks []*trackBuild, spec noteSpec, opts Options) bool {
	for _, tr := range tracks {
		for ch := 0; ch < 16; ch++ {
			if ch == drumChannel {
				continue
			}
			slot := &tr.channels[ch]
			if !slot.used {
				placeOnChannel(tr, uint8(ch), spec)
				return true
			}
			matchesBend := math.Abs(slot.lastCents-spec.cents) <= opts.PitchToleranceCents
			clearOfPrevious := spec.startSec-slot.lastEndSec >= opts.TimeToleranceSeconds
			if matchesBend || clearOfPrevious {
				placeOnChannel(tr, uint8(ch), spec)
				return true
			}
		}
	}
	return false
}

func placeOnChannel(tr *trackBuild, ch uint8, spec noteSpec) {
	tr.channels[ch].used = true
	tr.channels[ch].lastCents = spec.cents
	tr.channels[ch].lastEndSec = spec.endSec
	tr.notes = append(tr.notes, placedNote{channel: ch, spec: spec})
}

func buildTempoTrack() smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName("tempo"))})
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTempo(referenceBpm))})
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

// rampSteps is how many equal steps approximate a Chain note's
// continuous glide from its start pitch to its target; rampSteps+1
// pitch-bend messages are emitted, both endpoints included.
const rampSteps = 8

type tickEvent struct {
	tick     uint32
	priority int // 0 = NoteOff, 1 = PitchBend, 2 = NoteOn; lower sorts first at equal tick
	msg      smf.Message
}

func buildNoteTrack(tr *trackBuild, opts Options) smf.Track {
	track := smf.Track{}
	track = append(track, smf.Event{Delta: 0, Message: smf.Message(smf.MetaTrackSequenceName(gm.Name(opts.Program)))})

	var events []tickEvent
	channelsUsed := map[uint8]bool{}
	for _, pn := range tr.notes {
		channelsUsed[pn.channel] = true
	}
	for ch := range channelsUsed {
		if ch != drumChannel {
			events = append(events, tickEvent{tick: 0, priority: 1, msg: smf.Message(midi.ProgramChange(ch, opts.Program))})
		}
		events = append(events, rpnSetupEvents(ch, opts.PitchBendRangeSemitones)...)
	}

	for _, pn := range tr.notes {
		startTick := secondsToTick(pn.spec.startSec, opts.TicksPerQuarter)
		endTick := secondsToTick(pn.spec.endSec, opts.TicksPerQuarter)
		if endTick <= startTick {
			endTick = startTick + 1
		}

		if pn.spec.isChain {
			events = append(events, rampEvents(pn, startTick, endTick, opts.PitchBendRangeSemitones)...)
		} else {
			bend := bendFromCents(pn.spec.cents, opts.PitchBendRangeSemitones)
			events = append(events, tickEvent{tick: startTick, priority: 1, msg: smf.Message(midi.Pitchbend(pn.channel, bend))})
		}
		events = append(events, tickEvent{tick: startTick, priority: 2, msg: smf.Message(midi.NoteOn(pn.channel, pn.spec.key, 100))})
		events = append(events, tickEvent{tick: endTick, priority: 0, msg: smf.Message(midi.NoteOff(pn.channel, pn.spec.key))})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].priority < events[j].priority
	})

	var lastTick uint32
	for _, ev := range events {
		track = append(track, smf.Event{Delta: ev.tick - lastTick, Message: ev.msg})
		lastTick = ev.tick
	}
	track = append(track, smf.Event{Delta: 0, Message: smf.EOT})
	return track
}

// rpnSetupEvents sets the pitch-bend range via RPN 0,0 at track start,
// per the standard CC 101/100/6/38 sequence.
func rpnSetupEvents(channel uint8, rangeSemitones int) []tickEvent {
	return []tickEvent{
		{tick: 0, priority: 1, msg: smf.Message(midi.ControlChange(channel, 101, 0))},
		{tick: 0, priority: 1, msg: smf.Message(midi.ControlChange(channel, 100, 0))},
		{tick: 0, priority: 1, msg: smf.Message(midi.ControlChange(channel, 6, uint8(rangeSemitones)))},
		{tick: 0, priority: 1, msg: smf.Message(midi.ControlChange(channel, 38, 0))},
	}
}

func rampEvents(pn placedNote, startTick, endTick uint32, rangeSemitones int) []tickEvent {
	var out []tickEvent
	span := endTick - startTick
	// Target offset from the note's own key, in cents, so the ramp
	// glides through the full key+chain-key gap plus each end's
	// sub-semitone deviation.
	targetCents := float64(int(pn.spec.chainKey)-int(pn.spec.key))*100 + pn.spec.chainCents
	for step := 0; step <= rampSteps; step++ {
		frac := float64(step) / float64(rampSteps)
		cents := pn.spec.cents + frac*(targetCents-pn.spec.cents)
		tick := startTick + uint32(frac*float64(span))
		bend := bendFromCents(cents, rangeSemitones)
		out = append(out, tickEvent{tick: tick, priority: 1, msg: smf.Message(midi.Pitchbend(pn.channel, bend))})
	}
	return out
}
