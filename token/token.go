// Package token defines the lexical token kinds produced by the lexer.
package token

// Kind identifies the lexical category of a Token. Spans are always
// half-open [From, To) byte offsets into the source buffer.
type Kind int

const (
	Whitespace Kind = iota
	Newline
	Comment
	Comma
	Colon
	Semicolon
	At
	Equals
	LParen
	RParen
	LAngle
	RAngle
	LBracket
	RBracket
	LBrace
	RBrace
	Identifier
	PitchSpellOctave
	PitchSpellSimple
	PitchFrequency
	PitchRatio
	PitchEdo
	PitchCents
	PitchRest
	PitchSustain
	DurationFraction
	DurationCommas
	Quantize
)

var names = map[Kind]string{
	Whitespace:       "Whitespace",
	Newline:          "Newline",
	Comment:          "Comment",
	Comma:            "Comma",
	Colon:            "Colon",
	Semicolon:        "Semicolon",
	At:               "At",
	Equals:           "Equals",
	LParen:           "LParen",
	RParen:           "RParen",
	LAngle:           "LAngle",
	RAngle:           "RAngle",
	LBracket:         "LBracket",
	RBracket:         "RBracket",
	LBrace:           "LBrace",
	RBrace:           "RBrace",
	Identifier:       "Identifier",
	PitchSpellOctave: "PitchSpellOctave",
	PitchSpellSimple: "PitchSpellSimple",
	PitchFrequency:   "PitchFrequency",
	PitchRatio:       "PitchRatio",
	PitchEdo:         "PitchEdo",
	PitchCents:       "PitchCents",
	PitchRest:        "PitchRest",
	PitchSustain:     "PitchSustain",
	DurationFraction: "DurationFraction",
	DurationCommas:   "DurationCommas",
	Quantize:         "Quantize",
}

func (k Kind) String() string {
	if name, ok := names[k]; ok {
		return name
	}
	return "Unknown"
}

// IsTrivia reports whether tokens of this kind are whitespace, newline
// or comment. The parser skips whitespace and comments but keeps
// Newline, which separates lines.
func (k Kind) IsTrivia() bool {
	return k == Whitespace || k == Newline || k == Comment
}

// IsPitch reports whether this kind is one of the pitch literal forms.
func (k Kind) IsPitch() bool {
	switch k {
	case PitchSpellOctave, PitchSpellSimple, PitchFrequency, PitchRatio, PitchEdo, PitchCents, PitchRest, PitchSustain:
		return true
	default:
		return false
	}
}

// Token is {kind, from, to} with a half-open byte span.
type Token struct {
	Kind Kind
	From int
	To   int
}

// Text slices the token's span out of the original source.
func (t Token) Text(src []byte) string {
	return string(src[t.From:t.To])
}
