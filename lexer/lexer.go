// Package lexer tokenizes Symi source text.
//
// Tokenize uses a single forward cursor over the byte slice, switching
// on the current rune with small lookahead helpers for each ambiguous
// prefix, rather than reaching for a lexer-generator or a
// regexp-per-token approach. Nothing in this package fails:
// unrecognized bytes fold into an Identifier token (or, for an
// unmatched '[', an error-repaired DurationFraction) and scanning
// always advances by at least one byte.
package lexer

import (
	"github.com/symi-lang/symi/diag"
	"github.com/symi-lang/symi/token"
)

// Tokenize converts a source buffer into a token stream. It never fails:
// the returned diagnostics are informational repairs (e.g. an unclosed
// "[" salvaged as a DurationFraction(1)), not parse errors.
func Tokenize(src []byte) ([]token.Token, []diag.Diagnostic) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		l.scanOne()
	}
	return l.tokens, l.diags
}

type lexer struct {
	src    []byte
	pos    int
	tokens []token.Token
	diags  []diag.Diagnostic
}

func (l *lexer) emit(kind token.Kind, from, to int) {
	l.tokens = append(l.tokens, token.Token{Kind: kind, From: from, To: to})
	l.pos = to
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

func isIdentCont(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isUpperAG(b byte) bool { return b >= 'A' && b <= 'G' }

func (l *lexer) byteAt(i int) byte {
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *lexer) scanOne() {
	i := l.pos
	b := l.src[i]

	switch {
	case b == ' ' || b == '\t':
		j := i
		for j < len(l.src) && (l.src[j] == ' ' || l.src[j] == '\t') {
			j++
		}
		l.emit(token.Whitespace, i, j)
	case b == '\r' || b == '\n':
		j := i
		if b == '\r' && l.byteAt(j+1) == '\n' {
			j += 2
		} else {
			j++
		}
		l.emit(token.Newline, i, j)
	case b == '/' && l.byteAt(i+1) == '/':
		j := i
		for j < len(l.src) && l.src[j] != '\n' && l.src[j] != '\r' {
			j++
		}
		l.emit(token.Comment, i, j)
	case b == '[':
		l.scanBracket(i)
	case b == '{':
		l.scanBrace(i)
	case b == ',':
		l.emit(token.Comma, i, i+1)
	case b == ':':
		l.emit(token.Colon, i, i+1)
	case b == ';':
		l.emit(token.Semicolon, i, i+1)
	case b == '@':
		l.emit(token.At, i, i+1)
	case b == '=':
		l.emit(token.Equals, i, i+1)
	case b == '(':
		l.emit(token.LParen, i, i+1)
	case b == ')':
		l.emit(token.RParen, i, i+1)
	case b == '<':
		l.emit(token.LAngle, i, i+1)
	case b == '>':
		l.emit(token.RAngle, i, i+1)
	case b == ']':
		l.emit(token.RBracket, i, i+1)
	case b == '}':
		l.emit(token.RBrace, i, i+1)
	case b == '.':
		j := i
		for j < len(l.src) && l.src[j] == '.' {
			j++
		}
		l.emit(token.PitchRest, i, j)
	case b == '-':
		if isDigit(l.byteAt(i + 1)) {
			l.scanNumeric(i)
		} else {
			l.emit(token.PitchSustain, i, i+1)
		}
	case isDigit(b):
		l.scanNumeric(i)
	case isUpperAG(b):
		l.scanLetterAG(i)
	case isIdentStart(b):
		j := i + 1
		for j < len(l.src) && isIdentCont(l.src[j]) {
			j++
		}
		l.emit(token.Identifier, i, j)
	default:
		// Unrecognized byte: fold into a single-byte Identifier rather
		// than failing, per the lexer's never-fail contract.
		l.emit(token.Identifier, i, i+1)
	}
}

// scanBracket recognizes "[,,,]" duration-commas, "[n]"/"[n:m]"
// duration-fraction (n possibly negative), or an unclosed "[" repaired
// to DurationFraction(1) with a diagnostic.
func (l *lexer) scanBracket(start int) {
	// [,+]
	j := start + 1
	commaCount := 0
	for j < len(l.src) && l.src[j] == ',' {
		commaCount++
		j++
	}
	if commaCount > 0 && j < len(l.src) && l.src[j] == ']' {
		l.emit(token.DurationCommas, start, j+1)
		return
	}

	// [-?digits(:digits)?]
	j = start + 1
	if j < len(l.src) && l.src[j] == '-' {
		j++
	}
	digitsStart := j
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	if j > digitsStart {
		if j < len(l.src) && l.src[j] == ':' {
			k := j + 1
			dStart := k
			for k < len(l.src) && isDigit(l.src[k]) {
				k++
			}
			if k > dStart && k < len(l.src) && l.src[k] == ']' {
				l.emit(token.DurationFraction, start, k+1)
				return
			}
		} else if j < len(l.src) && l.src[j] == ']' {
			l.emit(token.DurationFraction, start, j+1)
			return
		}
	}

	// Unrecognized "[...": error-repair a bare "[" as DurationFraction(1).
	l.diags = append(l.diags, diag.Warningf(start, start+1,
		"unclosed or malformed '[' treated as [1]"))
	l.emit(token.DurationFraction, start, start+1)
}

// scanBrace recognizes "{n}"/"{n:m}" Quantize, else a bare "{"
// token so the parser can report the stray brace itself.
func (l *lexer) scanBrace(start int) {
	j := start + 1
	dStart := j
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	if j == dStart {
		l.emit(token.LBrace, start, start+1)
		return
	}
	if j < len(l.src) && l.src[j] == ':' {
		k := j + 1
		d2Start := k
		for k < len(l.src) && isDigit(l.src[k]) {
			k++
		}
		if k > d2Start && k < len(l.src) && l.src[k] == '}' {
			l.emit(token.Quantize, start, k+1)
			return
		}
		l.emit(token.LBrace, start, start+1)
		return
	}
	if j < len(l.src) && l.src[j] == '}' {
		l.emit(token.Quantize, start, j+1)
		return
	}
	l.emit(token.LBrace, start, start+1)
}

// scanNumeric distinguishes ratio, edo, cents, or frequency,
// picked by looking at what follows the leading digit run.
func (l *lexer) scanNumeric(start int) {
	i := start
	hasSign := false
	if l.src[i] == '-' {
		hasSign = true
		i++
	}
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}

	if !hasSign && i < len(l.src) && l.src[i] == '/' {
		j := i + 1
		k := j
		for k < len(l.src) && isDigit(l.src[k]) {
			k++
		}
		if k > j {
			l.emit(token.PitchRatio, start, k)
			return
		}
	}

	if i < len(l.src) && l.src[i] == '\\' {
		j := i + 1
		k := j
		for k < len(l.src) && isDigit(l.src[k]) {
			k++
		}
		if k > j {
			l.emit(token.PitchEdo, start, k)
			return
		}
	}

	if i < len(l.src) && l.src[i] == 'c' {
		after := i + 1
		if after >= len(l.src) || !isIdentCont(l.src[after]) {
			l.emit(token.PitchCents, start, i+1)
			return
		}
	}

	end := i
	if end < len(l.src) && l.src[end] == '.' && isDigit(l.byteAt(end+1)) {
		j := end + 1
		for j < len(l.src) && isDigit(l.src[j]) {
			j++
		}
		end = j
	}
	l.emit(token.PitchFrequency, start, end)
}

// scanLetterAG picks pitch-spelling vs. identifier: an
// identifier beats a pitch spelling only by being strictly longer.
func (l *lexer) scanLetterAG(start int) {
	spellEnd := l.spellScanEnd(start + 1)
	hasOctave := l.spellHasOctave(start + 1)

	identEnd := start + 1
	for identEnd < len(l.src) && isIdentCont(l.src[identEnd]) {
		identEnd++
	}

	if identEnd-start > spellEnd-start {
		l.emit(token.Identifier, start, identEnd)
		return
	}
	if hasOctave {
		l.emit(token.PitchSpellOctave, start, spellEnd)
	} else {
		l.emit(token.PitchSpellSimple, start, spellEnd)
	}
}

// spellScanEnd returns the end offset of the pitch-spelling run
// starting right after the letter: accidentals*, optional signed
// octave digits, then a micro (+/-)* run.
func (l *lexer) spellScanEnd(i int) int {
	for i < len(l.src) && (l.src[i] == '#' || l.src[i] == 'b') {
		i++
	}
	octStart := i
	j := i
	if j < len(l.src) && l.src[j] == '-' {
		j++
	}
	digitsStart := j
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	if j > digitsStart {
		i = j
	} else {
		i = octStart
	}
	for i < len(l.src) && (l.src[i] == '+' || l.src[i] == '-') {
		i++
	}
	return i
}

func (l *lexer) spellHasOctave(i int) bool {
	for i < len(l.src) && (l.src[i] == '#' || l.src[i] == 'b') {
		i++
	}
	j := i
	if j < len(l.src) && l.src[j] == '-' {
		j++
	}
	digitsStart := j
	for j < len(l.src) && isDigit(l.src[j]) {
		j++
	}
	return j > digitsStart
}
