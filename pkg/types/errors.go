package types

import (
	"fmt"

	"github.com/lemonberrylabs/manifestc/pkg/lexer"
)

// EvaluationError is the evaluator's non-local exit. It unwinds to the
// top-level node compile, where it is reported as a diagnostic.
type EvaluationError struct {
	Message string
	Path    string
	Pos     lexer.Position
	Line    string // text of the offending line, for the diagnostic snippet
}

func (e *EvaluationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s:%s: %s", e.Path, e.Pos, e.Message)
}

// NewEvaluationError creates a positioned evaluation error.
func NewEvaluationError(path string, pos lexer.Position, line, format string, args ...any) *EvaluationError {
	return &EvaluationError{
		Message: fmt.Sprintf(format, args...),
		Path:    path,
		Pos:     pos,
		Line:    line,
	}
}

// ArgumentError reports a problem with a positional argument; the caller
// maps the index back to the argument's source position.
type ArgumentError struct {
	Message string
	Index   int
}

func (e *ArgumentError) Error() string { return e.Message }

// AttributeError reports a problem with a named resource attribute; the
// caller maps the name back to the attribute's source position.
type AttributeError struct {
	Message string
	Name    string
	// ForValue selects whether the diagnostic should point at the
	// attribute's value rather than its name.
	ForValue bool
}

func (e *AttributeError) Error() string { return e.Message }
