package expand

import (
	"testing"

	"github.com/symi-lang/symi/ast"
	"github.com/symi-lang/symi/lexer"
	"github.com/symi-lang/symi/parser"
)

func parseSrc(t *testing.T, src string) *ast.Root {
	t.Helper()
	toks, _ := lexer.Tokenize([]byte(src))
	root, diags := parser.Parse([]byte(src), toks)
	for _, d := range diags {
		t.Logf("parse diagnostic: %s", d)
	}
	return root
}

func countNotes(n ast.Node, out *[]*ast.Note) {
	switch v := n.(type) {
	case *ast.Note:
		*out = append(*out, v)
	case *ast.Sequence:
		for _, c := range v.Items {
			countNotes(c, out)
		}
	case *ast.Chord:
		for _, c := range v.Voices {
			countNotes(c, out)
		}
	case *ast.DurationScope:
		for _, c := range v.Children {
			countNotes(c, out)
		}
	case *ast.Quantize:
		for _, c := range v.Children {
			countNotes(c, out)
		}
	case *ast.Group:
		for _, c := range v.Items {
			countNotes(c, out)
		}
	case *ast.GhostLine:
		countNotes(v.Body, out)
	case *ast.MacroDef:
		countNotes(v.Body, out)
	}
}

func TestSimpleCallInlinesBody(t *testing.T) {
	root := parseSrc(t, "lo = C,D,E,\nlo,\n")
	expanded, diags := Expand(root)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	var notes []*ast.Note
	// Second line is the call site; find it specifically (skip the def).
	countNotes(expanded.Items[1], &notes)
	if len(notes) != 3 {
		t.Fatalf("got %d notes from call, want 3", len(notes))
	}
	for _, n := range notes {
		if !n.HasInvoked {
			t.Fatalf("expanded note missing invoked span: %+v", n)
		}
	}
}

func TestUndefinedMacroProducesErrorAndEmpty(t *testing.T) {
	root := parseSrc(t, "missing,\n")
	_, diags := Expand(root)
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics, want 1: %v", len(diags), diags)
	}
}

func TestSelfRecursionDetected(t *testing.T) {
	root := parseSrc(t, "x = x\nx,\n")
	_, diags := Expand(root)
	if len(diags) == 0 {
		t.Fatalf("expected a recursion diagnostic")
	}
}

func TestRedefinitionShadows(t *testing.T) {
	root := parseSrc(t, "lo = C,\nlo = D,E,\nlo,\n")
	expanded, _ := Expand(root)
	var notes []*ast.Note
	countNotes(expanded.Items[2], &notes)
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2 from the redefinition", len(notes))
	}
}

func TestOutermostInvokedSpanWinsOnNesting(t *testing.T) {
	root := parseSrc(t, "inner = C,\nouter = inner,\nouter,\n")
	expanded, _ := Expand(root)
	var notes []*ast.Note
	countNotes(expanded.Items[2], &notes)
	if len(notes) != 1 {
		t.Fatalf("got %d notes, want 1", len(notes))
	}
	callNode := root.Items[2].(*ast.Sequence).Items[0]
	callFrom, callTo := callNode.Span()
	if notes[0].InvokedFrom != callFrom || notes[0].InvokedTo != callTo {
		t.Fatalf("invoked span %d..%d, want outer call span %d..%d",
			notes[0].InvokedFrom, notes[0].InvokedTo, callFrom, callTo)
	}
}
