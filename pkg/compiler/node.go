package compiler

import (
	"context"
	"fmt"
	"os"

	"github.com/lemonberrylabs/manifestc/pkg/ast"
	"github.com/lemonberrylabs/manifestc/pkg/catalog"
	"github.com/lemonberrylabs/manifestc/pkg/lexer"
	"github.com/lemonberrylabs/manifestc/pkg/logging"
	"github.com/lemonberrylabs/manifestc/pkg/parser"
	"github.com/lemonberrylabs/manifestc/pkg/runtime"
	"github.com/lemonberrylabs/manifestc/pkg/types"
)

// Node compiles manifests for one node into a catalog.
type Node struct {
	settings *Settings
	facts    runtime.FactProvider
	logger   logging.Logger
}

// NewNode creates a node compiler. A nil logger defers to the logger
// carried by the context passed to Compile.
func NewNode(settings *Settings, facts runtime.FactProvider, logger logging.Logger) *Node {
	return &Node{settings: settings, facts: facts, logger: logger}
}

type manifest struct {
	path   string
	source string
	tree   *ast.SyntaxTree
}

// Compile parses every manifest, scans definitions, evaluates top-level
// expressions and the matching node definition, and finalizes the catalog.
// The first error-level diagnostic aborts the compilation. Diagnostics go
// to the injected logger, or to the one carried by ctx.
func (n *Node) Compile(ctx context.Context) (*catalog.Catalog, error) {
	if n.logger == nil {
		n.logger = logging.FromContext(ctx)
	}

	var manifests []manifest
	for _, path := range n.settings.Manifests {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, n.fatal(fmt.Errorf("cannot open manifest: %w", err))
		}
		manifests = append(manifests, manifest{path: path, source: string(data)})
	}

	for i := range manifests {
		tree, err := parser.Parse(manifests[i].path, manifests[i].source)
		if err != nil {
			return nil, n.report(err)
		}
		manifests[i].tree = tree
	}

	cat := catalog.New()

	// The main class contains all top-level resources
	main, err := cat.Add(types.NewResourceType("class", "main"), "", 0, nil, catalog.StatusReal)
	if err != nil {
		return nil, n.fatal(err)
	}
	main.AddTag("class")

	rtCtx := runtime.NewContext(n.facts, cat, n.logger)
	for i := range manifests {
		rtCtx.RegisterSource(manifests[i].path, manifests[i].source)
	}

	// Scan phase: register classes, defined types, and nodes before any
	// evaluation so declaration can precede definition
	for i := range manifests {
		scanner := runtime.NewDefinitionScanner(cat, manifests[i].path, manifests[i].source)
		if err := scanner.Scan(manifests[i].tree); err != nil {
			return nil, n.report(err)
		}
	}

	// Evaluation phase: top-level expressions in manifest order
	for i := range manifests {
		evaluator := runtime.NewEvaluator(rtCtx, manifests[i].path, manifests[i].source)
		if err := evaluator.EvaluateTree(manifests[i].tree); err != nil {
			return nil, n.report(err)
		}
	}

	// Node phase: evaluate the matching node definition, if any
	if len(manifests) > 0 {
		evaluator := runtime.NewEvaluator(rtCtx, manifests[0].path, manifests[0].source)
		if err := evaluator.EvaluateNode(n.settings.NodeName); err != nil {
			return nil, n.report(err)
		}
	}

	if err := cat.Finalize(); err != nil {
		return nil, n.fatal(err)
	}
	return cat, nil
}

// report emits an error diagnostic for a positioned compilation error and
// returns it.
func (n *Node) report(err error) error {
	record := logging.Record{Level: logging.Error, Message: err.Error()}
	switch failure := err.(type) {
	case *types.EvaluationError:
		record.Path = failure.Path
		record.Pos = failure.Pos
		record.Snippet = failure.Line
		record.Message = failure.Message
	case *parser.Error:
		record.Pos = failure.Pos
		record.Snippet = failure.Line
		record.Message = failure.Message
	case *lexer.Error:
		record.Pos = failure.Pos
		record.Snippet = failure.Line
		record.Message = failure.Message
	}
	n.logger.Log(record)
	return err
}

// fatal emits an error diagnostic without position information.
func (n *Node) fatal(err error) error {
	n.logger.Log(logging.Record{Level: logging.Error, Message: err.Error()})
	return err
}

// CompileSource compiles a single in-memory manifest; used by tests.
func CompileSource(path, source, nodeName string, facts runtime.FactProvider, logger logging.Logger) (*catalog.Catalog, error) {
	tree, err := parser.Parse(path, source)
	if err != nil {
		return nil, err
	}

	cat := catalog.New()
	main, err := cat.Add(types.NewResourceType("class", "main"), "", 0, nil, catalog.StatusReal)
	if err != nil {
		return nil, err
	}
	main.AddTag("class")

	ctx := runtime.NewContext(facts, cat, logger)
	ctx.RegisterSource(path, source)

	scanner := runtime.NewDefinitionScanner(cat, path, source)
	if err := scanner.Scan(tree); err != nil {
		return nil, err
	}

	evaluator := runtime.NewEvaluator(ctx, path, source)
	if err := evaluator.EvaluateTree(tree); err != nil {
		return nil, err
	}
	if err := evaluator.EvaluateNode(nodeName); err != nil {
		return nil, err
	}
	if err := cat.Finalize(); err != nil {
		return nil, err
	}
	return cat, nil
}
