// Package resolve walks an expanded AST and produces a flat, ordered
// event list: notes with both wall-clock and musical coordinates, bar
// markers, and base-frequency changes. All positions stay exact
// rationals until the final beats-to-seconds conversion; a forward
// cursor per voice walks the piecewise-constant BPM-over-beats
// schedule, integrating rectangle-by-rectangle as tempo changes pass.
package resolve

import (
	"math"
	"math/big"
	"sort"

	"github.com/symi-lang/symi/ast"
	"github.com/symi-lang/symi/diag"
	"github.com/symi-lang/symi/event"
	"github.com/symi-lang/symi/rational"
)

const defaultBaseFreqHz = 261.625565 // middle C
const defaultBaseNote = 60           // C4, in the same semitone numbering as semitoneForLetter

var defaultBeatAnchor = rational.New(1, 4)

// Resolve runs the time resolver over an expanded tree.
func Resolve(root *ast.Root) ([]event.Event, []diag.Diagnostic) {
	r := &resolver{
		timeSigNum: 4, timeSigDen: 4,
		beatUnit:       rational.New(1, 4),
		beatAnchor:     defaultBeatAnchor,
		lastBarEmitted: -1,
	}
	r.tempo = []tempoSegment{{startBeats: rational.Zero(), secPerWhole: secPerWhole(120, defaultBeatAnchor)}}
	r.baseFreq = []baseFreqSegment{{startSec: 0, freq: defaultBaseFreqHz, note: defaultBaseNote}}

	r.crossBars(rational.Zero())

	main := &voiceState{cursorBeats: rational.Zero(), lastOctave: 4, lastNoteIdx: -1}
	var prevLineStart rational.Rational

	for _, item := range root.Items {
		switch n := item.(type) {
		case *ast.MacroDef:
			// Definitions emit nothing directly; their body only
			// produces events at call sites, already inlined there.
		case *ast.ControlTimeSig:
			r.timeSigNum, r.timeSigDen = n.Num, n.Den
			r.crossBars(main.cursorBeats)
		case *ast.ControlBpm:
			anchor := r.beatAnchor
			if n.BeatFraction != nil {
				anchor = *n.BeatFraction
				r.beatAnchor = anchor
			}
			r.tempo = append(r.tempo, tempoSegment{startBeats: main.cursorBeats, secPerWhole: secPerWhole(n.Bpm, anchor)})
		case *ast.ControlBaseFreq:
			r.resolveBaseFreqControl(n, main)
		case *ast.GhostLine:
			ghost := &voiceState{cursorBeats: prevLineStart, lastOctave: main.lastOctave, lastFreq: main.lastFreq, lastNoteIdx: -1}
			r.resolveSequence(asSequence(n.Body), ghost)
		default:
			lineStart := main.cursorBeats
			r.resolveSequence(asSequence(item), main)
			prevLineStart = lineStart
		}
	}

	sortEvents(r.events)
	return r.events, r.diags
}

func asSequence(n ast.Node) *ast.Sequence {
	if seq, ok := n.(*ast.Sequence); ok {
		return seq
	}
	from, to := n.Span()
	return &ast.Sequence{From: from, To: to, Items: []ast.Node{n}}
}

// tempoSegment is a piecewise-constant BPM region, keyed by the
// cursor position (in whole notes) where it took effect.
type tempoSegment struct {
	startBeats  rational.Rational
	secPerWhole float64
}

func secPerWhole(bpm float64, beatAnchor rational.Rational) float64 {
	if bpm <= 0 {
		bpm = 120
	}
	anchor := beatAnchor.Float64()
	if anchor <= 0 {
		anchor = 0.25
	}
	return (60.0 / bpm) / anchor
}

// baseFreqSegment is a piecewise base-frequency region, keyed by
// absolute seconds. note is the anchor's semitone number in the same
// numbering as semitoneForLetter (A4 = 69), so a Spell pitch resolves
// relative to whichever anchor was last set by a <letter=freq> control,
// not a fixed 440Hz reference.
type baseFreqSegment struct {
	startSec float64
	freq     float64
	note     int
}

// voiceState is the per-voice cursor and sustain/octave memory used
// while walking one Sequence (the main timeline, a chord voice, or a
// ghost line's overlay voice).
type voiceState struct {
	cursorBeats rational.Rational
	lastFreq    float64
	lastOctave  int
	lastNoteIdx int // index into resolver.events, -1 if none yet
}

type resolver struct {
	timeSigNum, timeSigDen int
	beatUnit               rational.Rational
	beatAnchor             rational.Rational
	tempo                  []tempoSegment
	baseFreq               []baseFreqSegment
	lastBarEmitted         int

	events []event.Event
	diags  []diag.Diagnostic
}

func (r *resolver) errorf(from, to int, format string, args ...any) {
	r.diags = append(r.diags, diag.Errorf(from, to, format, args...))
}

// beatsToSeconds integrates the piecewise tempo schedule from 0 to
// beats: seconds(beats) = ∫ 60/(bpm(t)·beatAnchor) dt,
// a sum of rectangles since bpm is piecewise-constant in beats.
func (r *resolver) beatsToSeconds(beats rational.Rational) float64 {
	total := 0.0
	for i, seg := range r.tempo {
		segEnd := beats
		if i+1 < len(r.tempo) {
			segEnd = r.tempo[i+1].startBeats
		}
		hi := segEnd
		if rational.Less(beats, hi) {
			hi = beats
		}
		width := rational.Sub(hi, seg.startBeats)
		if width.Sign() > 0 {
			total += width.Float64() * seg.secPerWhole
		}
		if !rational.Less(beats, segEnd) {
			continue
		}
		break
	}
	return total
}

func (r *resolver) baseFreqAt(sec float64) float64 {
	val := defaultBaseFreqHz
	for _, seg := range r.baseFreq {
		if seg.startSec <= sec {
			val = seg.freq
		}
	}
	return val
}

// baseNoteAt returns the semitone number the base-frequency anchor sits
// on at sec, tracking whichever <letter=freq> control last set it.
func (r *resolver) baseNoteAt(sec float64) int {
	val := defaultBaseNote
	for _, seg := range r.baseFreq {
		if seg.startSec <= sec {
			val = seg.note
		}
	}
	return val
}

// barLength is the duration of one bar in whole notes: num * (1/den).
func (r *resolver) barLength() rational.Rational {
	return rational.Mul(rational.FromInt(int64(r.timeSigNum)), rational.New(1, int64(r.timeSigDen)))
}

// barIndexAt returns floor(beats / barLength).
func (r *resolver) barIndexAt(beats rational.Rational) int {
	barLen := r.barLength()
	if barLen.IsZero() {
		return 0
	}
	an, ad := beats.Num(), beats.Denom()
	bn, bd := barLen.Num(), barLen.Denom()
	if an == 0 {
		return 0
	}
	num := new(big.Int).Mul(big.NewInt(an), big.NewInt(bd))
	den := new(big.Int).Mul(big.NewInt(ad), big.NewInt(bn))
	q := new(big.Int)
	mod := new(big.Int)
	q.DivMod(num, den, mod) // Euclidean division; beats/barLen are both >= 0 here
	return int(q.Int64())
}

func (r *resolver) tickInBar(beats rational.Rational) event.TickPos {
	bar := r.barIndexAt(beats)
	barLen := r.barLength()
	offset := rational.Sub(beats, rational.Mul(rational.FromInt(int64(bar)), barLen))
	n, d := offset.Pair()
	return event.TickPos{Num: n, Den: d}
}

func tickFromBeats(beats rational.Rational) event.TickPos {
	n, d := beats.Pair()
	return event.TickPos{Num: n, Den: d}
}

// crossBars emits a NewMeasure event for every bar boundary between
// the last one emitted and the bar containing/starting at beatsReached.
func (r *resolver) crossBars(beatsReached rational.Rational) {
	target := r.barIndexAt(beatsReached)
	for b := r.lastBarEmitted + 1; b <= target; b++ {
		boundary := rational.Mul(rational.FromInt(int64(b)), r.barLength())
		sec := r.beatsToSeconds(boundary)
		r.events = append(r.events, event.Event{Kind: event.KindNewMeasure, NewMeasure: event.NewMeasure{StartBar: b, StartSec: sec}})
		r.lastBarEmitted = b
	}
}

func (r *resolver) advanceVoice(voice *voiceState, delta rational.Rational) {
	voice.cursorBeats = rational.Add(voice.cursorBeats, delta)
	r.crossBars(voice.cursorBeats)
}

func (r *resolver) resolveBaseFreqControl(n *ast.ControlBaseFreq, voice *voiceState) {
	sec := r.beatsToSeconds(voice.cursorBeats)
	for _, entry := range n.Items {
		freq, _, _ := r.resolvePitchHz(entry.Freq, voice, sec)
		note := r.baseNoteAt(sec)
		if entry.Letter != nil {
			note = letterToSemitone(*entry.Letter, voice)
		}
		r.baseFreq = append(r.baseFreq, baseFreqSegment{startSec: sec, freq: freq, note: note})
		r.events = append(r.events, event.Event{Kind: event.KindBaseFrequencyDef, BaseFrequencyDef: event.BaseFrequencyDef{
			Freq: freq, StartSec: sec, SpanFrom: n.From, SpanTo: n.To,
		}})
	}
}

// resolveSequence processes a comma-separated list of items, each
// consuming one beat unit (or an overridden duration via a leading
// DurationScope).
func (r *resolver) resolveSequence(seq *ast.Sequence, voice *voiceState) {
	for _, item := range seq.Items {
		switch v := item.(type) {
		case *ast.Chord:
			r.resolveChord(v, voice)
		case *ast.CommaDuration:
			r.resolveCommaDuration(v, voice)
		default:
			r.resolveOneBeatItem(item, voice)
		}
	}
}

func (r *resolver) resolveChord(c *ast.Chord, voice *voiceState) {
	start := voice.cursorBeats
	maxEnd := start
	for _, v := range c.Voices {
		sub := &voiceState{cursorBeats: start, lastOctave: voice.lastOctave, lastFreq: voice.lastFreq, lastNoteIdx: -1}
		r.resolveSequence(v, sub)
		if rational.Less(maxEnd, sub.cursorBeats) {
			maxEnd = sub.cursorBeats
		}
	}
	voice.cursorBeats = maxEnd
	r.crossBars(voice.cursorBeats)
}

// resolveCommaDuration handles "[,,,]" with k commas
// retroactively extends the previous note's duration by k beat units.
func (r *resolver) resolveCommaDuration(c *ast.CommaDuration, voice *voiceState) {
	if voice.lastNoteIdx < 0 {
		r.errorf(c.From, c.To, "comma-duration has no predecessor note on this voice")
		return
	}
	extend := rational.Mul(rational.FromInt(int64(c.CommaCount)), r.beatUnit)
	extraSec := r.beatsToSeconds(rational.Add(voice.cursorBeats, extend)) - r.beatsToSeconds(voice.cursorBeats)
	ev := &r.events[voice.lastNoteIdx]
	ev.Note.DurationSec += extraSec
	ev.Note.DurationTick = addTicks(ev.Note.DurationTick, tickFromBeats(extend))
	r.advanceVoice(voice, extend)
}

func addTicks(a, b event.TickPos) event.TickPos {
	sum := rational.Add(rational.New(a.Num, a.Den), rational.New(b.Num, b.Den))
	n, d := sum.Pair()
	return event.TickPos{Num: n, Den: d}
}

// resolveOneBeatItem processes a single Sequence item: a plain atom
// (or group of atoms sharing one beat), or a DurationScope overriding
// the unit for its one child.
func (r *resolver) resolveOneBeatItem(item ast.Node, voice *voiceState) {
	unit := r.beatUnit
	content := item
	if ds, ok := item.(*ast.DurationScope); ok {
		unit = ds.Duration
		if len(ds.Children) > 0 {
			content = ds.Children[0]
		} else {
			content = nil
		}
	}

	start := voice.cursorBeats
	if content != nil {
		r.resolveBeatContent(content, unit, start, voice)
	}
	r.advanceVoice(voice, unit)
}

// resolveBeatContent lays out the atom(s) occupying one beat unit
// an equal split among sibling atoms when no quantize
// is active, or n of m equal subdivisions when a Quantize wraps them.
func (r *resolver) resolveBeatContent(node ast.Node, unit rational.Rational, start rational.Rational, voice *voiceState) {
	var atoms []ast.Node
	n, m := 1, 1

	switch v := node.(type) {
	case *ast.Quantize:
		n, m = v.N, v.M
		atoms = v.Children
	case *ast.Sequence:
		atoms = v.Items
		n, m = len(atoms), len(atoms)
	case *ast.Group:
		atoms = v.Items
		n, m = len(atoms), len(atoms)
	default:
		atoms = []ast.Node{node}
	}

	if len(atoms) == 0 {
		return
	}

	slot := rational.Div(unit, rational.FromInt(int64(m)))
	usable := atoms
	if m > 0 && len(atoms) > n {
		r.errorf(spanStart(node), spanEnd(node), "quantize overflow: %d atoms don't fit in %d of %d slots", len(atoms), n, m)
		usable = atoms[:n]
	}

	cum := start
	for _, atom := range usable {
		switch a := atom.(type) {
		case *ast.Quantize:
			r.resolveBeatContent(a, slot, cum, voice)
		case *ast.Group:
			r.resolveBeatContent(a, slot, cum, voice)
		case *ast.DurationScope:
			childUnit := a.Duration
			if len(a.Children) > 0 {
				r.resolveBeatContent(a.Children[0], childUnit, cum, voice)
			}
			cum = rational.Add(cum, childUnit)
			continue
		default:
			r.resolveLeafAtom(atom, cum, slot, voice)
		}
		cum = rational.Add(cum, slot)
	}
}

func spanStart(n ast.Node) int { f, _ := n.Span(); return f }
func spanEnd(n ast.Node) int   { _, t := n.Span(); return t }

// resolveLeafAtom handles a Note, Rest, Sustain, or ChainOp occupying
// the beat slot [start, start+dur).
func (r *resolver) resolveLeafAtom(atom ast.Node, start, dur rational.Rational, voice *voiceState) {
	startSec := r.beatsToSeconds(start)
	endSec := r.beatsToSeconds(rational.Add(start, dur))
	durSec := endSec - startSec
	if durSec < 0 {
		durSec = 0
	}

	switch a := atom.(type) {
	case *ast.Rest:
		voice.lastNoteIdx = -1

	case *ast.Sustain:
		if voice.lastNoteIdx < 0 {
			r.errorf(a.From, a.To, "sustain has no predecessor note on this voice")
			return
		}
		ev := &r.events[voice.lastNoteIdx]
		ev.Note.DurationSec += durSec
		ev.Note.DurationTick = addTicks(ev.Note.DurationTick, tickFromBeats(dur))

	case *ast.Note:
		freq, hasRatio, ratio := r.resolvePitchHz(a.Pitch, voice, startSec)
		ev := event.Event{Kind: event.KindNote, Note: event.Note{
			Freq: freq, StartSec: startSec, DurationSec: durSec,
			StartBar: r.barIndexAt(start), StartTick: r.tickInBar(start), DurationTick: tickFromBeats(dur),
			SpanFrom: a.From, SpanTo: a.To,
			HasInvoked: a.HasInvoked, InvokedFrom: a.InvokedFrom, InvokedTo: a.InvokedTo,
			HasPitchRatio: hasRatio, PitchRatio: ratio,
		}}
		r.events = append(r.events, ev)
		voice.lastNoteIdx = len(r.events) - 1
		voice.lastFreq = freq
		if a.Pitch.Kind == ast.PitchSpell && a.Pitch.Octave != nil {
			voice.lastOctave = *a.Pitch.Octave
		}

	case *ast.ChainOp:
		leftNote, _ := a.Left.(*ast.Note)
		rightNote, _ := a.Right.(*ast.Note)
		if leftNote == nil || rightNote == nil {
			return
		}
		fromHz, hasRatio, ratio := r.resolvePitchHz(leftNote.Pitch, voice, startSec)
		toHz, _, _ := r.resolvePitchHz(rightNote.Pitch, voice, startSec)
		ev := event.Event{Kind: event.KindNote, Note: event.Note{
			Freq: fromHz, StartSec: startSec, DurationSec: durSec,
			StartBar: r.barIndexAt(start), StartTick: r.tickInBar(start), DurationTick: tickFromBeats(dur),
			SpanFrom: a.From, SpanTo: a.To,
			HasPitchRatio: hasRatio, PitchRatio: ratio,
			IsChain: true, ChainToHz: toHz,
		}}
		r.events = append(r.events, ev)
		voice.lastNoteIdx = len(r.events) - 1
		voice.lastFreq = fromHz
	}
}

var semitoneForLetter = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// letterToSemitone gives a Spell pitch's absolute semitone number (A4 =
// 69), independent of any base-frequency anchor: used both to resolve
// a Spell note's pitch and to read the anchor note out of a
// <letter=freq> control's left-hand side.
func letterToSemitone(p ast.Pitch, voice *voiceState) int {
	octave := 4
	if p.Octave != nil {
		octave = *p.Octave
	} else if voice != nil {
		octave = voice.lastOctave
	}
	return semitoneForLetter[p.Letter] + p.Accidentals + (octave+1)*12
}

// resolvePitchHz converts a parsed pitch literal to hertz.
// Ratio/Edo/Cents kinds resolve relative to the base-frequency
// schedule and carry a pitchRatio; Frequency is a literal absolute
// hertz value; Spell resolves relative to the base-frequency/base-note
// anchor pair, so redefining the anchor with a <letter=freq> control
// moves every subsequent spelled pitch along with it.
func (r *resolver) resolvePitchHz(p ast.Pitch, voice *voiceState, atSec float64) (freq float64, hasRatio bool, ratio float64) {
	base := r.baseFreqAt(atSec)
	switch p.Kind {
	case ast.PitchFrequencyKind:
		return p.Freq, false, 0

	case ast.PitchRatio:
		if p.RatioDen == 0 {
			return base, false, 0
		}
		f := base * float64(p.RatioNum) / float64(p.RatioDen)
		return f, true, f / base

	case ast.PitchEdo:
		if p.EdoDivisions == 0 {
			return base, false, 0
		}
		f := base * math.Pow(2, float64(p.EdoStep)/float64(p.EdoDivisions))
		return f, true, f / base

	case ast.PitchCents:
		f := base * math.Pow(2, p.Cents/1200)
		return f, true, f / base

	case ast.PitchSpell:
		s := letterToSemitone(p, voice)
		baseNote := r.baseNoteAt(atSec)
		f := base * math.Pow(2, float64(s-baseNote)/12) * math.Pow(2, float64(p.MicroOffset)/24)
		return f, false, 0

	default:
		return base, false, 0
	}
}

func sortEvents(events []event.Event) {
	// Ties keep source order: events are appended in the order they
	// were resolved, so SliceStable only needs to fix up startSec.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartSec() < events[j].StartSec()
	})
}
