// Package expand eliminates macro calls from a parsed tree, replacing
// each MacroCall with a copy of its most recent preceding definition's
// body, tracking both the body's defining span and the outermost call
// site's invoking span.
package expand

import (
	"github.com/symi-lang/symi/ast"
	"github.com/symi-lang/symi/diag"
)

// Expand walks root in document order and returns a tree with no
// MacroCall nodes remaining.
func Expand(root *ast.Root) (*ast.Root, []diag.Diagnostic) {
	e := &expander{defs: map[string]*ast.MacroDef{}}
	out := &ast.Root{}
	for _, item := range root.Items {
		switch n := item.(type) {
		case *ast.MacroDef:
			e.defs[n.Name] = n
			expanded := e.expandNode(n.Body, nil)
			out.Items = append(out.Items, &ast.MacroDef{
				From: n.From, To: n.To, Name: n.Name,
				HasRelativeMarker: n.HasRelativeMarker, Body: expanded,
			})
		default:
			out.Items = append(out.Items, e.expandNode(item, nil))
		}
	}
	return out, e.diags
}

// invokeSpan is the outermost call site a node is being expanded
// under, or nil when the node is written directly in the document.
type invokeSpan struct {
	From, To int
}

type expander struct {
	defs      map[string]*ast.MacroDef
	callStack []string
	diags     []diag.Diagnostic
}

// expandNode copies n, replacing any MacroCall descendants. inv
// identifies the outermost call site currently in effect and
// propagates unchanged into every node produced while expanding a
// call: only the outermost invocation matters.
func (e *expander) expandNode(n ast.Node, inv *invokeSpan) ast.Node {
	if n == nil {
		return nil
	}
	switch v := n.(type) {
	case *ast.MacroCall:
		return e.expandCall(v, inv)
	case *ast.Sequence:
		out := &ast.Sequence{From: v.From, To: v.To}
		for _, item := range v.Items {
			out.Items = append(out.Items, e.expandNode(item, inv))
		}
		return out
	case *ast.Chord:
		out := &ast.Chord{From: v.From, To: v.To}
		for _, voice := range v.Voices {
			out.Voices = append(out.Voices, e.expandNode(voice, inv).(*ast.Sequence))
		}
		return out
	case *ast.DurationScope:
		out := &ast.DurationScope{From: v.From, To: v.To, Duration: v.Duration}
		for _, c := range v.Children {
			out.Children = append(out.Children, e.expandNode(c, inv))
		}
		return out
	case *ast.Quantize:
		out := &ast.Quantize{From: v.From, To: v.To, N: v.N, M: v.M}
		for _, c := range v.Children {
			out.Children = append(out.Children, e.expandNode(c, inv))
		}
		return out
	case *ast.Group:
		out := &ast.Group{From: v.From, To: v.To}
		for _, c := range v.Items {
			out.Items = append(out.Items, e.expandNode(c, inv))
		}
		return out
	case *ast.ChainOp:
		return &ast.ChainOp{
			From: v.From, To: v.To, Kind: v.Kind,
			Left:  e.expandNode(v.Left, inv),
			Right: e.expandNode(v.Right, inv),
		}
	case *ast.GhostLine:
		return &ast.GhostLine{From: v.From, To: v.To, Body: e.expandNode(v.Body, inv)}
	case *ast.Note:
		if inv == nil {
			return v
		}
		cp := *v
		cp.HasInvoked = true
		cp.InvokedFrom, cp.InvokedTo = inv.From, inv.To
		return &cp
	default:
		// Rest, Sustain, CommaDuration, control headers: leaves with
		// no MacroCall descendants and no invoked-span field.
		return n
	}
}

// expandCall resolves call to its most recent preceding definition,
// detects recursion via an explicit call stack, and expands the
// definition's body in the call's place.
func (e *expander) expandCall(call *ast.MacroCall, outer *invokeSpan) ast.Node {
	def, ok := e.defs[call.Name]
	if !ok {
		e.diags = append(e.diags, diag.Errorf(call.From, call.To, "undefined macro %q", call.Name))
		return emptySequence(call.From, call.To)
	}

	for _, onStack := range e.callStack {
		if onStack == call.Name {
			e.diags = append(e.diags, diag.Errorf(call.From, call.To, "recursive macro call %q", call.Name))
			return emptySequence(call.From, call.To)
		}
	}

	inv := outer
	if inv == nil {
		inv = &invokeSpan{From: call.From, To: call.To}
	}

	e.callStack = append(e.callStack, call.Name)
	expanded := e.expandNode(def.Body, inv)
	e.callStack = e.callStack[:len(e.callStack)-1]
	return expanded
}

func emptySequence(from, to int) *ast.Sequence {
	return &ast.Sequence{From: from, To: to}
}
