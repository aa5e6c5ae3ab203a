// Package parser builds an AST from a token stream.
//
// The parser is a hand-written recursive-descent reader over the
// token slice, explicit-cursor style: a struct holding the token slice
// and a position, small peek/advance helpers, and functions named
// after the grammar rule they implement. There is no parser generator
// and no backtracking; ambiguity is resolved by one-token lookahead
// plus the lexer's own disambiguation.
package parser

import (
	"strconv"
	"strings"

	"github.com/symi-lang/symi/ast"
	"github.com/symi-lang/symi/diag"
	"github.com/symi-lang/symi/rational"
	"github.com/symi-lang/symi/token"
)

// Parse builds a Root from tokens produced by lexer.Tokenize.
func Parse(src []byte, toks []token.Token) (*ast.Root, []diag.Diagnostic) {
	p := &parser{src: src, toks: significant(toks)}
	root := &ast.Root{}
	for !p.atEnd() {
		if p.at(token.Newline) {
			p.advance()
			continue
		}
		line := p.parseLine()
		if line != nil {
			root.Items = append(root.Items, line)
		}
	}
	return root, p.diags
}

// significant drops trivia tokens the parser doesn't consult, except
// Newline which is meaningful to the ghost-line/macro-definition rules.
func significant(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == token.Whitespace || t.Kind == token.Comment {
			continue
		}
		out = append(out, t)
	}
	return out
}

type parser struct {
	src   []byte
	toks  []token.Token
	pos   int
	diags []diag.Diagnostic
}

func (p *parser) atEnd() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token.Token {
	if p.atEnd() {
		if len(p.toks) == 0 {
			return token.Token{}
		}
		last := p.toks[len(p.toks)-1]
		return token.Token{Kind: -1, From: last.To, To: last.To}
	}
	return p.toks[p.pos]
}

func (p *parser) at(k token.Kind) bool { return !p.atEnd() && p.toks[p.pos].Kind == k }

func (p *parser) advance() token.Token {
	t := p.peek()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *parser) text(t token.Token) string { return t.Text(p.src) }

func (p *parser) errorf(from, to int, format string, args ...any) {
	p.diags = append(p.diags, diag.Errorf(from, to, format, args...))
}

// synchronize skips tokens until a separator (",", ";", Newline, "]",
// "}", ")", ">") or end of input, so one bad header never cascades.
func (p *parser) synchronize() {
	for !p.atEnd() {
		switch p.peek().Kind {
		case token.Comma, token.Semicolon, token.Newline,
			token.RBracket, token.RBrace, token.RParen, token.RAngle:
			return
		}
		p.advance()
	}
}

// parseLine implements `Line := MacroDef | GhostLine | ControlHeader | Sequence`.
func (p *parser) parseLine() ast.Node {
	start := p.peek().From

	if p.at(token.Equals) {
		return p.parseGhostLine(start)
	}
	if p.at(token.LParen) {
		if n := p.tryParseControlHeader(start); n != nil {
			return n
		}
	}
	if p.at(token.LAngle) {
		return p.parseBaseFreqControl(start)
	}
	if p.at(token.Identifier) && p.lookaheadIsMacroDef() {
		return p.parseMacroDef(start)
	}
	return p.parseSequence()
}

// lookaheadIsMacroDef reports whether the upcoming tokens form
// `Identifier ("()")? "="`.
func (p *parser) lookaheadIsMacroDef() bool {
	i := p.pos
	if i >= len(p.toks) || p.toks[i].Kind != token.Identifier {
		return false
	}
	i++
	if i+1 < len(p.toks) && p.toks[i].Kind == token.LParen && p.toks[i+1].Kind == token.RParen {
		i += 2
	}
	return i < len(p.toks) && p.toks[i].Kind == token.Equals
}

func (p *parser) parseGhostLine(start int) *ast.GhostLine {
	p.advance() // consume '='
	body := p.parseSequence()
	end := p.currentEnd(start)
	return &ast.GhostLine{From: start, To: end, Body: body}
}

func (p *parser) parseMacroDef(start int) *ast.MacroDef {
	nameTok := p.advance()
	name := p.text(nameTok)
	relative := false
	if p.at(token.LParen) {
		p.advance()
		if p.at(token.RParen) {
			p.advance()
			relative = true
		} else {
			p.errorf(nameTok.From, nameTok.To, "expected ')' after '(' in macro definition")
			p.synchronize()
		}
	}
	if p.at(token.Equals) {
		p.advance()
	} else {
		p.errorf(p.peek().From, p.peek().To, "expected '=' in macro definition")
	}
	body := p.parseSequence()
	end := p.currentEnd(start)
	return &ast.MacroDef{From: start, To: end, Name: name, HasRelativeMarker: relative, Body: body}
}

// tryParseControlHeader attempts `(` (TimeSig | Bpm) `)`. It returns
// nil (without consuming) if the parenthesized content doesn't look
// like a control header, so the caller falls back to treating the
// parens as a plain rhythm Group.
func (p *parser) tryParseControlHeader(start int) ast.Node {
	save := p.pos
	p.advance() // '('

	// TimeSig: digits '/' digits ')'
	if n, ok := p.tryTimeSig(start); ok {
		return n
	}
	// Bpm: [beatFraction '='] digits('.'digits)? ')'
	if n, ok := p.tryBpm(start); ok {
		return n
	}

	p.pos = save
	return nil
}

func (p *parser) tryTimeSig(start int) (*ast.ControlTimeSig, bool) {
	save := p.pos
	if !p.at(token.PitchFrequency) && !p.at(token.PitchRatio) {
		p.pos = save
		return nil, false
	}
	if p.at(token.PitchRatio) {
		t := p.advance()
		num, den, ok := parseRatioText(p.text(t))
		if !ok || !p.at(token.RParen) {
			p.pos = save
			return nil, false
		}
		p.advance()
		return &ast.ControlTimeSig{From: start, To: p.currentEnd(start), Num: num, Den: den}, true
	}
	p.pos = save
	return nil, false
}

func (p *parser) tryBpm(start int) (*ast.ControlBpm, bool) {
	save := p.pos
	var beatFraction *rational.Rational

	if p.at(token.DurationFraction) {
		t := p.advance()
		r, ok := parseDurationFractionText(p.text(t))
		if !ok || !p.at(token.Equals) {
			p.pos = save
			return nil, false
		}
		p.advance()
		beatFraction = &r
	}

	if !p.at(token.PitchFrequency) {
		p.pos = save
		return nil, false
	}
	t := p.advance()
	bpm, err := strconv.ParseFloat(p.text(t), 64)
	if err != nil || !p.at(token.RParen) {
		p.pos = save
		return nil, false
	}
	p.advance()
	return &ast.ControlBpm{From: start, To: p.currentEnd(start), BeatFraction: beatFraction, Bpm: bpm}, true
}

func parseRatioText(s string) (num, den int, ok bool) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(parts[0])
	d, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || d == 0 {
		return 0, 0, false
	}
	return n, d, true
}

// parseDurationFractionText parses the body of a DurationFraction
// token ("[n]" or "[n:m]", n possibly negative) into a Rational |n|/m
// (m defaults to 1): a negative numerator reads as its magnitude.
func parseDurationFractionText(s string) (rational.Rational, bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	parts := strings.SplitN(inner, ":", 2)
	n, err := strconv.Atoi(parts[0])
	if err != nil {
		return rational.Zero(), false
	}
	if n < 0 {
		n = -n
	}
	m := 1
	if len(parts) == 2 {
		m, err = strconv.Atoi(parts[1])
		if err != nil || m == 0 {
			return rational.Zero(), false
		}
	}
	return rational.New(int64(n), int64(m)), true
}

func (p *parser) parseBaseFreqControl(start int) *ast.ControlBaseFreq {
	p.advance() // '<'
	var items []ast.BaseFreqEntry
	for !p.atEnd() && !p.at(token.RAngle) {
		entry := p.parseBaseFreqEntry()
		items = append(items, entry)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if p.at(token.RAngle) {
		p.advance()
	} else {
		p.errorf(start, p.peek().To, "unclosed '<' base-frequency control")
		p.synchronize()
	}
	return &ast.ControlBaseFreq{From: start, To: p.currentEnd(start), Items: items}
}

func (p *parser) parseBaseFreqEntry() ast.BaseFreqEntry {
	first := p.parsePitchLiteral()
	if p.at(token.Equals) {
		p.advance()
		second := p.parsePitchLiteral()
		return ast.BaseFreqEntry{Letter: &first, Freq: second}
	}
	return ast.BaseFreqEntry{Freq: first}
}

// parseSequence implements `Sequence := Item (',' Item)*`.
func (p *parser) parseSequence() *ast.Sequence {
	start := p.peek().From
	seq := &ast.Sequence{From: start}
	if p.atLineEnd() {
		seq.To = p.currentEnd(start)
		return seq
	}
	seq.Items = append(seq.Items, p.parseItem())
	for p.at(token.Comma) {
		p.advance()
		if p.atLineEnd() {
			break
		}
		seq.Items = append(seq.Items, p.parseItem())
	}
	seq.To = p.currentEnd(start)
	return seq
}

func (p *parser) atLineEnd() bool {
	return p.atEnd() || p.at(token.Newline)
}

// parseItem implements `Item := Chord | Atom`, where a Chord is
// detected by a following `;`.
func (p *parser) parseItem() ast.Node {
	start := p.peek().From
	first := p.parseAtomSeq()
	if !p.at(token.Semicolon) {
		return first
	}
	voices := []*ast.Sequence{asSequence(first)}
	for p.at(token.Semicolon) {
		p.advance()
		voices = append(voices, asSequence(p.parseAtomSeq()))
	}
	return &ast.Chord{From: start, To: p.currentEnd(start), Voices: voices}
}

func asSequence(n ast.Node) *ast.Sequence {
	if seq, ok := n.(*ast.Sequence); ok {
		return seq
	}
	from, to := n.Span()
	return &ast.Sequence{From: from, To: to, Items: []ast.Node{n}}
}

// parseAtomSeq implements `AtomSeq := Atom+`, stopping at a separator.
func (p *parser) parseAtomSeq() ast.Node {
	start := p.peek().From
	var items []ast.Node
	for !p.atLineEnd() && !p.at(token.Comma) && !p.at(token.Semicolon) &&
		!p.at(token.RBracket) && !p.at(token.RBrace) && !p.at(token.RParen) && !p.at(token.RAngle) {
		items = append(items, p.parseAtom())
	}
	if len(items) == 1 {
		return items[0]
	}
	return &ast.Sequence{From: start, To: p.currentEnd(start), Items: items}
}

// parseAtom implements `Atom := Pitch | MacroCall | DurationScope |
// Quantize | Group | Rest | Sustain | Chain`.
func (p *parser) parseAtom() ast.Node {
	start := p.peek().From

	switch {
	case p.at(token.DurationFraction):
		return p.parseDurationScope(start)
	case p.at(token.DurationCommas):
		return p.parseCommaDuration(start)
	case p.at(token.Quantize):
		return p.parseQuantize(start)
	case p.at(token.LParen):
		return p.parseGroup(start)
	case p.at(token.PitchRest):
		t := p.advance()
		return &ast.Rest{From: t.From, To: t.To, Count: t.To - t.From}
	case p.at(token.PitchSustain):
		t := p.advance()
		return &ast.Sustain{From: t.From, To: t.To}
	case p.at(token.Identifier):
		t := p.advance()
		return &ast.MacroCall{From: t.From, To: t.To, Name: p.text(t)}
	case p.peek().Kind.IsPitch():
		return p.parsePitchOrChain(start)
	default:
		bad := p.advance()
		p.errorf(bad.From, bad.To, "unexpected token %s", bad.Kind)
		p.synchronize()
		return &ast.Rest{From: bad.From, To: bad.To, Count: 0}
	}
}

func (p *parser) parsePitchOrChain(start int) ast.Node {
	left := p.parsePitchLiteralNode(start)
	if !p.at(token.At) {
		return left
	}
	p.advance()
	rightStart := p.peek().From
	right := p.parsePitchLiteralNode(rightStart)
	return &ast.ChainOp{From: start, To: p.currentEnd(start), Kind: ast.ChainAt, Left: left, Right: right}
}

func (p *parser) parsePitchLiteralNode(start int) *ast.Note {
	pitch := p.parsePitchLiteral()
	return &ast.Note{From: start, To: p.currentEnd(start), Pitch: pitch}
}

// parsePitchLiteral decodes a single pitch token's text into an
// ast.Pitch value (resolved against the base-frequency schedule later).
func (p *parser) parsePitchLiteral() ast.Pitch {
	t := p.advance()
	text := p.text(t)
	switch t.Kind {
	case token.PitchFrequency:
		f, _ := strconv.ParseFloat(text, 64)
		return ast.Pitch{Kind: ast.PitchFrequencyKind, Freq: f}
	case token.PitchRatio:
		num, den, _ := parseRatioText(text)
		return ast.Pitch{Kind: ast.PitchRatio, RatioNum: int64(num), RatioDen: int64(den)}
	case token.PitchEdo:
		parts := strings.SplitN(text, "\\", 2)
		step, _ := strconv.Atoi(parts[0])
		div, _ := strconv.Atoi(parts[1])
		return ast.Pitch{Kind: ast.PitchEdo, EdoStep: int64(step), EdoDivisions: int64(div)}
	case token.PitchCents:
		c, _ := strconv.ParseFloat(strings.TrimSuffix(text, "c"), 64)
		return ast.Pitch{Kind: ast.PitchCents, Cents: c}
	case token.PitchSpellSimple, token.PitchSpellOctave:
		return parseSpellText(text)
	default:
		p.errorf(t.From, t.To, "expected pitch literal, got %s", t.Kind)
		return ast.Pitch{Kind: ast.PitchFrequencyKind, Freq: 0}
	}
}

// parseSpellText decodes "C", "Bb-1", "C#-1+", etc. into a Spell pitch.
func parseSpellText(s string) ast.Pitch {
	i := 0
	letter := s[i]
	i++
	accidentals := 0
	for i < len(s) && (s[i] == '#' || s[i] == 'b') {
		if s[i] == '#' {
			accidentals++
		} else {
			accidentals--
		}
		i++
	}
	var octave *int
	octStart := i
	j := i
	if j < len(s) && s[j] == '-' {
		j++
	}
	digitsStart := j
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j > digitsStart {
		v, _ := strconv.Atoi(s[octStart:j])
		octave = &v
		i = j
	}
	micro := 0
	for i < len(s) {
		if s[i] == '+' {
			micro++
		} else if s[i] == '-' {
			micro--
		}
		i++
	}
	return ast.Pitch{Kind: ast.PitchSpell, Letter: letter, Accidentals: accidentals, Octave: octave, MicroOffset: micro}
}

func (p *parser) parseDurationScope(start int) *ast.DurationScope {
	t := p.advance()
	dur, ok := parseDurationFractionText(p.text(t))
	if !ok {
		p.errorf(t.From, t.To, "malformed duration fraction")
	}
	var children []ast.Node
	if !p.atLineEnd() && !p.at(token.Comma) && !p.at(token.Semicolon) {
		children = append(children, p.parseAtom())
	}
	return &ast.DurationScope{From: start, To: p.currentEnd(start), Duration: dur, Children: children}
}

func (p *parser) parseCommaDuration(start int) *ast.CommaDuration {
	t := p.advance()
	count := strings.Count(p.text(t), ",")
	return &ast.CommaDuration{From: start, To: t.To, CommaCount: count}
}

func (p *parser) parseQuantize(start int) *ast.Quantize {
	t := p.advance()
	n, m, ok := parseQuantizeText(p.text(t))
	if !ok {
		p.errorf(t.From, t.To, "malformed quantize")
	}
	var children []ast.Node
	for !p.atLineEnd() && !p.at(token.Comma) && !p.at(token.Semicolon) &&
		!p.at(token.RBracket) && !p.at(token.RBrace) {
		children = append(children, p.parseAtom())
	}
	return &ast.Quantize{From: start, To: p.currentEnd(start), N: n, M: m, Children: children}
}

func parseQuantizeText(s string) (n, m int, ok bool) {
	inner := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
	parts := strings.SplitN(inner, ":", 2)
	m = 1
	var err error
	n, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 2 {
		m, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, false
		}
	} else {
		m = n
	}
	return n, m, true
}

func (p *parser) parseGroup(start int) ast.Node {
	p.advance() // '('
	var items []ast.Node
	for !p.atEnd() && !p.at(token.RParen) {
		items = append(items, p.parseAtom())
		if p.at(token.Comma) {
			p.advance()
		}
	}
	if p.at(token.RParen) {
		p.advance()
	} else {
		p.errorf(start, p.peek().To, "unclosed '('")
		p.synchronize()
	}
	return &ast.Group{From: start, To: p.currentEnd(start), Items: items}
}

// currentEnd returns the end of the most recently consumed token, used
// as the closing offset for nodes whose span was opened at start.
func (p *parser) currentEnd(start int) int {
	if p.pos == 0 {
		return start
	}
	return p.toks[p.pos-1].To
}
