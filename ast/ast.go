// Package ast defines the tree produced by the parser: macro
// definitions, ghost lines, control headers, and the nested
// sequence/chord/quantize structure of a Symi score.
package ast

import "github.com/symi-lang/symi/rational"

// Node is implemented by every AST node. Span returns the node's
// half-open byte range, which must enclose every child's span.
type Node interface {
	Span() (from, to int)
}

// Root is the top-level node: the ordered list of lines in a document.
type Root struct {
	Items []Node
}

func (r *Root) Span() (int, int) {
	if len(r.Items) == 0 {
		return 0, 0
	}
	from, _ := r.Items[0].Span()
	_, to := r.Items[len(r.Items)-1].Span()
	return from, to
}

// MacroDef is `name = body` or, with a relative marker, `name() = body`.
type MacroDef struct {
	From, To          int
	Name              string
	HasRelativeMarker bool
	Body              Node
}

func (n *MacroDef) Span() (int, int) { return n.From, n.To }

// GhostLine is a `= body` line that layers onto the preceding line's
// time cursor rather than advancing past it.
type GhostLine struct {
	From, To int
	Body     Node
}

func (n *GhostLine) Span() (int, int) { return n.From, n.To }

// ControlTimeSig is `(n/m)`.
type ControlTimeSig struct {
	From, To int
	Num, Den int
}

func (n *ControlTimeSig) Span() (int, int) { return n.From, n.To }

// ControlBpm is `(120)` or `([-1:4]=120)`.
type ControlBpm struct {
	From, To     int
	BeatFraction *rational.Rational // nil when unset
	Bpm          float64
}

func (n *ControlBpm) Span() (int, int) { return n.From, n.To }

// BaseFreqEntry is one `[pitch=]pitch` pair inside a ControlBaseFreq list.
type BaseFreqEntry struct {
	Letter *Pitch // optional left-hand reference pitch, nil if omitted
	Freq   Pitch
}

// ControlBaseFreq is `<A4=440>`, optionally chained `<C4=261.63, A4=440>`.
type ControlBaseFreq struct {
	From, To int
	Items    []BaseFreqEntry
}

func (n *ControlBaseFreq) Span() (int, int) { return n.From, n.To }

// PitchKind discriminates the variant carried by a Pitch literal.
type PitchKind int

const (
	PitchRest PitchKind = iota
	PitchSustain
	PitchFrequencyKind
	PitchRatio
	PitchEdo
	PitchCents
	PitchSpell
)

// Pitch is the parsed (not yet resolved) form of a pitch literal.
type Pitch struct {
	Kind PitchKind

	RestCount int // PitchRest

	Freq float64 // PitchFrequencyKind

	RatioNum, RatioDen int64 // PitchRatio

	EdoStep, EdoDivisions int64 // PitchEdo

	Cents float64 // PitchCents

	// PitchSpell fields.
	Letter      byte // 'A'..'G'
	Accidentals int  // net # (+1) / b (-1) shift
	Octave      *int // nil if unspecified
	MicroOffset int  // net +/- quarter-tone count
}

// Note wraps a Pitch literal as a sequence atom. InvokedFrom/InvokedTo
// record the outermost macro call site this note was reached through,
// set by the expander; HasInvoked is false for notes written directly
// in the document.
type Note struct {
	From, To             int
	Pitch                Pitch
	HasInvoked           bool
	InvokedFrom, InvokedTo int
}

func (n *Note) Span() (int, int) { return n.From, n.To }

// Rest is `.`, `..`, … with Count dots.
type Rest struct {
	From, To int
	Count    int
}

func (n *Rest) Span() (int, int) { return n.From, n.To }

// Sustain is a bare `-` extending the previous pitch on its voice.
type Sustain struct {
	From, To int
}

func (n *Sustain) Span() (int, int) { return n.From, n.To }

// DurationScope is `[n:m] child` — applies a duration override to the
// next beat unit only.
type DurationScope struct {
	From, To int
	Duration rational.Rational
	Children []Node
}

func (n *DurationScope) Span() (int, int) { return n.From, n.To }

// CommaDuration is `[,,,]`, retroactively extending the previous atom's
// duration by CommaCount beat units.
type CommaDuration struct {
	From, To   int
	CommaCount int
}

func (n *CommaDuration) Span() (int, int) { return n.From, n.To }

// Quantize is `{n:m} children` — subdivides the containing beat unit
// into m parts and uses n of them for the children.
type Quantize struct {
	From, To int
	N, M     int
	Children []Node
}

func (n *Quantize) Span() (int, int) { return n.From, n.To }

// MacroCall is a bare `NAME` reference.
type MacroCall struct {
	From, To int
	Name     string
}

func (n *MacroCall) Span() (int, int) { return n.From, n.To }

// Chord is a set of voices (`;`-separated sequences) all starting at
// the same time cursor.
type Chord struct {
	From, To int
	Voices   []*Sequence
}

func (n *Chord) Span() (int, int) { return n.From, n.To }

// Sequence is a `,`-separated list of items.
type Sequence struct {
	From, To int
	Items    []Node
}

func (n *Sequence) Span() (int, int) { return n.From, n.To }

// ChainOpKind distinguishes chain operator variants (currently only `@`).
type ChainOpKind int

const (
	ChainAt ChainOpKind = iota
)

// ChainOp is `A@B`: a single note whose pitch moves from A to B.
type ChainOp struct {
	From, To int
	Kind     ChainOpKind
	Left     Node
	Right    Node
}

func (n *ChainOp) Span() (int, int) { return n.From, n.To }

// Group is `( … )` used as a plain grouping in a rhythm context (not a
// control header).
type Group struct {
	From, To int
	Items    []Node
}

func (n *Group) Span() (int, int) { return n.From, n.To }

var (
	_ Node = (*Root)(nil)
	_ Node = (*MacroDef)(nil)
	_ Node = (*GhostLine)(nil)
	_ Node = (*ControlTimeSig)(nil)
	_ Node = (*ControlBpm)(nil)
	_ Node = (*ControlBaseFreq)(nil)
	_ Node = (*Note)(nil)
	_ Node = (*Rest)(nil)
	_ Node = (*Sustain)(nil)
	_ Node = (*DurationScope)(nil)
	_ Node = (*CommaDuration)(nil)
	_ Node = (*Quantize)(nil)
	_ Node = (*MacroCall)(nil)
	_ Node = (*Chord)(nil)
	_ Node = (*Sequence)(nil)
	_ Node = (*ChainOp)(nil)
	_ Node = (*Group)(nil)
)
