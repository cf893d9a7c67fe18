package runtime

import (
	"fmt"

	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/parser"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Session is a persistent evaluation context for interactive use: variable
// bindings, definitions, and declared resources survive across inputs.
type Session struct {
	ctx     *Context
	catalog *catalog.Catalog
	counter int
}

// NewSession creates an interactive session with an empty catalog.
func NewSession(facts FactProvider, logger logging.Logger) *Session {
	cat := catalog.New()
	if main, err := cat.Add(types.NewResourceType("class", "main"), "", 0, nil, catalog.StatusReal); err == nil {
		main.AddTag("class")
	}
	return &Session{
		ctx:     NewContext(facts, cat, logger),
		catalog: cat,
	}
}

// Catalog returns the session's catalog.
func (s *Session) Catalog() *catalog.Catalog { return s.catalog }

// Evaluate parses and evaluates one input, returning the value of its last
// expression.
func (s *Session) Evaluate(source string) (types.Value, error) {
	s.counter++
	path := fmt.Sprintf("<repl:%d>", s.counter)

	tree, err := parser.Parse(path, source)
	if err != nil {
		return types.Undef, err
	}
	s.ctx.RegisterSource(path, source)

	scanner := NewDefinitionScanner(s.catalog, path, source)
	if err := scanner.Scan(tree); err != nil {
		return types.Undef, err
	}

	evaluator := NewEvaluator(s.ctx, path, source)
	return evaluator.EvaluateBlock(tree.Expressions)
}
