// Package diag defines the diagnostic type shared by every compiler stage.
package diag

import "fmt"

// Severity is how serious a Diagnostic is.
type Severity int

const (
	// Warning means the pipeline continues and produces a best-effort result.
	Warning Severity = iota
	// Error means the offending construct was dropped or replaced with a
	// neutral default.
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic carries a span pointing at either the offending token
// (lex/parse) or the most informative AST span (expand/resolve).
type Diagnostic struct {
	Severity Severity
	Message  string
	From, To int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%d..%d)", d.Severity, d.Message, d.From, d.To)
}

// Warningf returns a Warning diagnostic.
func Warningf(from, to int, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Warning, Message: fmt.Sprintf(format, args...), From: from, To: to}
}

// Errorf returns an Error diagnostic.
func Errorf(from, to int, format string, args ...any) Diagnostic {
	return Diagnostic{Severity: Error, Message: fmt.Sprintf(format, args...), From: from, To: to}
}

// HasErrors reports whether any diagnostic in the slice is an Error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
