package lexer

import (
	"testing"

	"github.com/symi-lang/symi/token"
)

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func assertKinds(t *testing.T, src string, want ...token.Kind) {
	t.Helper()
	toks, diags := Tokenize([]byte(src))
	if len(diags) != 0 {
		t.Fatalf("tokenize(%q): unexpected diagnostics %v", src, diags)
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("tokenize(%q) = %v, want %v", src, got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("tokenize(%q)[%d] = %s, want %s", src, i, got[i], want[i])
		}
	}
}

func TestWhitespaceAndNewline(t *testing.T) {
	assertKinds(t, "  \n", token.Whitespace, token.Newline)
}

func TestComment(t *testing.T) {
	toks, _ := Tokenize([]byte("// hi there\nA"))
	if toks[0].Kind != token.Comment || toks[0].Text([]byte("// hi there\nA")) != "// hi there" {
		t.Fatalf("got %v", toks[0])
	}
}

func TestPitchSpellSimple(t *testing.T) {
	assertKinds(t, "C", token.PitchSpellSimple)
	assertKinds(t, "Bb", token.PitchSpellSimple)
	assertKinds(t, "F#+", token.PitchSpellSimple)
}

func TestPitchSpellOctave(t *testing.T) {
	assertKinds(t, "C4", token.PitchSpellOctave)
	assertKinds(t, "Bb-1", token.PitchSpellOctave)
	assertKinds(t, "C#-1+", token.PitchSpellOctave)
}

func TestIdentifierBeatsShortSpellOnlyWhenLonger(t *testing.T) {
	// "Cmaj" is not a valid accidental/octave/micro continuation, so the
	// pitch-spell run stops at "C" (length 1) while the identifier run
	// covers all four bytes; the longer match wins.
	toks, _ := Tokenize([]byte("Cmaj"))
	if len(toks) != 1 || toks[0].Kind != token.Identifier {
		t.Fatalf("got %v, want single Identifier", toks)
	}
}

func TestBareLetterPrefersSpellOverIdentifier(t *testing.T) {
	// Both readings are length 1, so the tie goes to the pitch spelling.
	assertKinds(t, "C ", token.PitchSpellSimple, token.Whitespace)
}

func TestLowercaseAndUnderscoreAreIdentifiers(t *testing.T) {
	assertKinds(t, "tempo", token.Identifier)
	assertKinds(t, "_v1", token.Identifier)
	assertKinds(t, "H4", token.Identifier) // H is not in A-G
}

func TestPitchRatio(t *testing.T) {
	assertKinds(t, "3/2", token.PitchRatio)
}

func TestPitchEdoSignedNumerator(t *testing.T) {
	assertKinds(t, "7\\12", token.PitchEdo)
	assertKinds(t, "-3\\12", token.PitchEdo)
}

func TestPitchCentsRequiresWordBoundary(t *testing.T) {
	assertKinds(t, "100c", token.PitchCents)
	// "100cm" is not a bare cents literal; the 'c' is swallowed into a
	// longer identifier-like continuation so this must not tokenize as
	// PitchFrequency followed by PitchCents.
	toks, _ := Tokenize([]byte("100cm"))
	if toks[0].Kind == token.PitchCents {
		t.Fatalf("got %v, want frequency-then-identifier split, not cents", toks)
	}
}

func TestPitchFrequency(t *testing.T) {
	assertKinds(t, "440", token.PitchFrequency)
	assertKinds(t, "440.5", token.PitchFrequency)
	assertKinds(t, "-440.5", token.PitchFrequency)
}

func TestPitchRestRunLength(t *testing.T) {
	toks, _ := Tokenize([]byte("..."))
	if len(toks) != 1 || toks[0].Kind != token.PitchRest || toks[0].To-toks[0].From != 3 {
		t.Fatalf("got %v, want single 3-dot PitchRest", toks)
	}
}

func TestPitchSustain(t *testing.T) {
	assertKinds(t, "-", token.PitchSustain)
	assertKinds(t, "- ", token.PitchSustain, token.Whitespace)
}

func TestDurationCommas(t *testing.T) {
	assertKinds(t, "[,,]", token.DurationCommas)
}

func TestDurationFraction(t *testing.T) {
	assertKinds(t, "[4]", token.DurationFraction)
	assertKinds(t, "[-1]", token.DurationFraction)
	assertKinds(t, "[3:8]", token.DurationFraction)
}

func TestMalformedBracketIsRepaired(t *testing.T) {
	toks, diags := Tokenize([]byte("[abc"))
	if len(diags) != 1 {
		t.Fatalf("expected one repair diagnostic, got %v", diags)
	}
	if toks[0].Kind != token.DurationFraction || toks[0].To-toks[0].From != 1 {
		t.Fatalf("got %v, want single-byte repaired DurationFraction", toks)
	}
}

func TestQuantize(t *testing.T) {
	assertKinds(t, "{16}", token.Quantize)
	assertKinds(t, "{3:16}", token.Quantize)
}

func TestMalformedBraceFallsBackToLBrace(t *testing.T) {
	toks, diags := Tokenize([]byte("{abc}"))
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for bare brace, got %v", diags)
	}
	if toks[0].Kind != token.LBrace {
		t.Fatalf("got %v, want LBrace", toks[0].Kind)
	}
}

func TestPunctuation(t *testing.T) {
	assertKinds(t, ",:;@=()<>",
		token.Comma, token.Colon, token.Semicolon, token.At, token.Equals,
		token.LParen, token.RParen, token.LAngle, token.RAngle)
}

func TestChordLineEndToEnd(t *testing.T) {
	toks, diags := Tokenize([]byte("C4, E4, G4[2]"))
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	want := []token.Kind{
		token.PitchSpellOctave, token.Comma, token.Whitespace,
		token.PitchSpellOctave, token.Comma, token.Whitespace,
		token.PitchSpellOctave, token.DurationFraction,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
