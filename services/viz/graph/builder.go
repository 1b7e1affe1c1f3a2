// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"context"
	"fmt"
	"time"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/vizlab/structviz/services/viz/ast"
)

// ProgressPhase indicates which phase of building is in progress.
type ProgressPhase int

const (
	// ProgressPhaseEntities indicates the entity/relation walk is running.
	ProgressPhaseEntities ProgressPhase = iota

	// ProgressPhaseExpanding indicates container literals are being expanded.
	ProgressPhaseExpanding

	// ProgressPhaseFinalizing indicates the graph is being frozen.
	ProgressPhaseFinalizing
)

// String returns the string representation of the ProgressPhase.
func (p ProgressPhase) String() string {
	switch p {
	case ProgressPhaseEntities:
		return "entities"
	case ProgressPhaseExpanding:
		return "expanding"
	case ProgressPhaseFinalizing:
		return "finalizing"
	default:
		return "unknown"
	}
}

// BuildProgress contains progress information during a build.
type BuildProgress struct {
	// Phase is the current build phase.
	Phase ProgressPhase

	// NodesCreated is the number of nodes created so far.
	NodesCreated int

	// EdgesCreated is the number of edges created so far.
	EdgesCreated int
}

// ProgressFunc is a callback function for build progress updates.
type ProgressFunc func(progress BuildProgress)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// MaxNodes is the maximum number of nodes (passed to Graph).
	MaxNodes int

	// MaxEdges is the maximum number of edges (passed to Graph).
	MaxEdges int

	// ProgressCallback is called at each phase boundary. May be nil.
	ProgressCallback ProgressFunc
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithBuilderMaxNodes sets the maximum number of nodes.
func WithBuilderMaxNodes(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxNodes = n
	}
}

// WithBuilderMaxEdges sets the maximum number of edges.
func WithBuilderMaxEdges(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxEdges = n
	}
}

// WithProgressCallback sets the progress callback function.
func WithProgressCallback(fn ProgressFunc) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProgressCallback = fn
	}
}

// BuildStats summarizes a completed build.
type BuildStats struct {
	// NodesCreated is the total node count, including the module node.
	NodesCreated int

	// EdgesCreated is the total edge count.
	EdgesCreated int

	// DurationMilli is the wall-clock build duration in milliseconds.
	DurationMilli int64
}

// BuildResult contains the frozen graph and build statistics.
type BuildResult struct {
	// Graph is the populated, frozen graph.
	Graph *Graph

	// Stats holds build statistics.
	Stats BuildStats
}

// Builder constructs structure graphs from parsed Python syntax trees.
//
// The builder is stateless and can be reused across multiple builds.
// Each Build() call creates a new graph; given the same input it yields
// the same node and edge sets.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build() call operates
//	independently with its own internal state.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
//
// Example:
//
//	builder := NewBuilder(WithBuilderMaxNodes(50_000))
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return &Builder{options: options}
}

// buildState holds mutable state during a single build operation.
type buildState struct {
	graph *Graph
	src   []byte
}

// Build constructs a graph from one parsed source file.
//
// Description:
//
//	Build runs two traversals over the syntax tree. The first flat walk
//	creates nodes for the module, classes, functions, variables and call
//	targets, with contains/method/var/calls/arg edges. The second walk
//	expands container literals on the right-hand side of assignments
//	into indexed or keyed child nodes. Constructs outside those rules
//	contribute nothing: the model is best-effort, not exhaustive.
//
// Inputs:
//   - ctx: Context for cancellation. Checked between traversals.
//   - parsed: A successful parse result. Must not be nil.
//
// Outputs:
//   - *BuildResult: The frozen graph plus statistics. Nil on error.
//   - error: Non-nil for nil input, cancellation, or a violated graph
//     invariant (capacity exceeded).
func (b *Builder) Build(ctx context.Context, parsed *ast.ParseResult) (*BuildResult, error) {
	if parsed == nil {
		return nil, fmt.Errorf("parse result must not be nil")
	}

	ctx, span := startBuildSpan(ctx, parsed.Module)
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordBuildMetrics(ctx, time.Since(start), 0, 0, false)
		return nil, fmt.Errorf("build canceled before start: %w", err)
	}

	state := &buildState{
		graph: NewGraph(parsed.Module,
			WithMaxNodes(b.options.MaxNodes),
			WithMaxEdges(b.options.MaxEdges),
		),
		src: parsed.Source,
	}

	// Traversal 1: entities and relations.
	if err := b.walk(parsed.Root(), func(n *sitter.Node) error {
		return b.visitEntity(state, n)
	}); err != nil {
		recordBuildMetrics(ctx, time.Since(start), state.graph.NodeCount(), state.graph.EdgeCount(), false)
		return nil, fmt.Errorf("entity walk: %w", err)
	}
	b.reportProgress(state, ProgressPhaseEntities)

	if err := ctx.Err(); err != nil {
		recordBuildMetrics(ctx, time.Since(start), state.graph.NodeCount(), state.graph.EdgeCount(), false)
		return nil, fmt.Errorf("build canceled after entity walk: %w", err)
	}

	// Traversal 2: container-literal expansion. Purely additive; the
	// parent variable nodes from traversal 1 are never reclassified here.
	if err := b.walk(parsed.Root(), func(n *sitter.Node) error {
		return b.visitLiteral(state, n)
	}); err != nil {
		recordBuildMetrics(ctx, time.Since(start), state.graph.NodeCount(), state.graph.EdgeCount(), false)
		return nil, fmt.Errorf("literal expansion walk: %w", err)
	}
	b.reportProgress(state, ProgressPhaseExpanding)

	state.graph.Freeze()
	b.reportProgress(state, ProgressPhaseFinalizing)

	duration := time.Since(start)
	result := &BuildResult{
		Graph: state.graph,
		Stats: BuildStats{
			NodesCreated:  state.graph.NodeCount(),
			EdgesCreated:  state.graph.EdgeCount(),
			DurationMilli: duration.Milliseconds(),
		},
	}

	setBuildSpanResult(span, result.Stats.NodesCreated, result.Stats.EdgesCreated)
	recordBuildMetrics(ctx, duration, result.Stats.NodesCreated, result.Stats.EdgesCreated, true)

	return result, nil
}

// walk visits every named node of the tree in preorder.
func (b *Builder) walk(n *sitter.Node, visit func(*sitter.Node) error) error {
	if n == nil {
		return nil
	}
	if err := visit(n); err != nil {
		return err
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if err := b.walk(n.NamedChild(i), visit); err != nil {
			return err
		}
	}
	return nil
}

// visitEntity handles one node of the entity/relation traversal.
func (b *Builder) visitEntity(state *buildState, n *sitter.Node) error {
	switch n.Type() {
	case "class_definition":
		return b.addClass(state, n)
	case "function_definition":
		// Methods are discovered through the class branch one level deep;
		// emitting them here as well would duplicate them as top-level
		// functions.
		if isClassBodyFunction(n) {
			return nil
		}
		return b.addFunction(state, n)
	case "assignment":
		return b.addAssignment(state, n)
	case "call":
		return b.addCall(state, n)
	default:
		// Anything else contributes no nodes or edges.
		return nil
	}
}

// isClassBodyFunction reports whether n is a function defined directly in a
// class body, possibly wrapped in a decorated_definition. Only one level of
// containment is considered; functions nested deeper are not methods.
func isClassBodyFunction(n *sitter.Node) bool {
	p := n.Parent()
	if p != nil && p.Type() == "decorated_definition" {
		p = p.Parent()
	}
	if p == nil || p.Type() != "block" {
		return false
	}
	owner := p.Parent()
	return owner != nil && owner.Type() == "class_definition"
}

// addClass creates the class node, its contains edge from the module, and
// one method node per function defined directly in the class body.
func (b *Builder) addClass(state *buildState, n *sitter.Node) error {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	className := ast.NodeText(nameNode, state.src)

	if _, err := state.graph.UpsertNode(className, ast.KindClass); err != nil {
		return err
	}
	if err := state.graph.AddEdge(state.graph.ModuleKey(), className, RelationContains); err != nil {
		return err
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return nil
	}

	// One level deep: direct children of the class body only.
	for i := 0; i < int(body.NamedChildCount()); i++ {
		def := body.NamedChild(i)
		if def.Type() == "decorated_definition" {
			def = def.ChildByFieldName("definition")
		}
		if def == nil || def.Type() != "function_definition" {
			continue
		}
		methodName := def.ChildByFieldName("name")
		if methodName == nil {
			continue
		}
		key := fmt.Sprintf("%s.%s()", className, ast.NodeText(methodName, state.src))
		if _, err := state.graph.UpsertNode(key, ast.KindFunction); err != nil {
			return err
		}
		if err := state.graph.AddEdge(className, key, RelationMethod); err != nil {
			return err
		}
	}
	return nil
}

// addFunction creates a "name()" node for a function outside any class body.
func (b *Builder) addFunction(state *buildState, n *sitter.Node) error {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	key := ast.NodeText(nameNode, state.src) + "()"

	if _, err := state.graph.UpsertNode(key, ast.KindFunction); err != nil {
		return err
	}
	return state.graph.AddEdge(state.graph.ModuleKey(), key, RelationContains)
}

// assignmentValue resolves the right-hand side of an assignment through any
// chained assignments (a = b = [1] nests the inner assignment on the right;
// every target binds the final value expression).
func assignmentValue(n *sitter.Node) *sitter.Node {
	value := n.ChildByFieldName("right")
	for value != nil && value.Type() == "assignment" {
		value = value.ChildByFieldName("right")
	}
	return value
}

// addAssignment upserts the variable node for a simple or annotated
// assignment with a bare-name target, classifying the bound value.
//
// Classification: a present value wins; an annotated assignment without a
// value falls back to the annotation text when it names a member of the
// kind enumeration, else unknown. Reassignment overwrites the node's kind
// (last assignment wins). Non-identifier targets (tuple unpacking,
// attribute or subscript targets) are skipped.
func (b *Builder) addAssignment(state *buildState, n *sitter.Node) error {
	target := n.ChildByFieldName("left")
	if target == nil || target.Type() != "identifier" {
		return nil
	}

	var kind ast.Kind
	if value := assignmentValue(n); value != nil {
		kind = ast.Classify(value, state.src)
	} else if annotation := n.ChildByFieldName("type"); annotation != nil {
		annText := ast.NodeText(annotation, state.src)
		if ast.KnownKind(annText) {
			kind = ast.Kind(annText)
		} else {
			kind = ast.KindUnknown
		}
	} else {
		return nil
	}

	name := ast.NodeText(target, state.src)
	if _, err := state.graph.UpsertNode(name, kind); err != nil {
		return err
	}
	return state.graph.AddEdge(state.graph.ModuleKey(), name, RelationVar)
}

// addCall records a call site: the callee node (created as a function
// placeholder only when absent), a calls edge from the module, and arg
// edges from bare-identifier positional arguments that already exist as
// nodes.
func (b *Builder) addCall(state *buildState, n *sitter.Node) error {
	callee := n.ChildByFieldName("function")
	if callee == nil {
		return nil
	}

	var key string
	switch callee.Type() {
	case "identifier":
		key = ast.NodeText(callee, state.src) + "()"
	case "attribute":
		// obj.method(...) keeps the full reconstructed callee text.
		key = ast.NodeText(callee, state.src) + "()"
	default:
		// Calls on subscripts, lambdas, nested calls etc. are ignored.
		return nil
	}

	if !state.graph.HasNode(key) {
		if _, err := state.graph.UpsertNode(key, ast.KindFunction); err != nil {
			return err
		}
	}
	if err := state.graph.AddEdge(state.graph.ModuleKey(), key, RelationCalls); err != nil {
		return err
	}

	args := n.ChildByFieldName("arguments")
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		if arg.Type() != "identifier" {
			continue
		}
		name := ast.NodeText(arg, state.src)
		if !state.graph.HasNode(name) {
			continue
		}
		if err := state.graph.AddEdge(name, key, RelationArg); err != nil {
			return err
		}
	}
	return nil
}

// visitLiteral handles one node of the container-expansion traversal.
// Only un-annotated assignments of a container literal to a bare name
// produce children.
func (b *Builder) visitLiteral(state *buildState, n *sitter.Node) error {
	if n.Type() != "assignment" || n.ChildByFieldName("type") != nil {
		return nil
	}

	target := n.ChildByFieldName("left")
	if target == nil || target.Type() != "identifier" {
		return nil
	}
	parent := ast.NodeText(target, state.src)

	value := assignmentValue(n)
	if value == nil {
		return nil
	}

	switch value.Type() {
	case "dictionary":
		return b.expandDict(state, parent, value)
	case "list", "set", "tuple", "expression_list":
		return b.expandSequence(state, parent, value)
	default:
		return nil
	}
}

// expandDict creates one "P.<key-source>" child per key/value pair.
func (b *Builder) expandDict(state *buildState, parent string, dict *sitter.Node) error {
	for i := 0; i < int(dict.NamedChildCount()); i++ {
		pair := dict.NamedChild(i)
		if pair.Type() != "pair" {
			// dictionary_splat and comments carry no key to label.
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")

		childKey := fmt.Sprintf("%s.%s", parent, ast.NodeText(key, state.src))
		if _, err := state.graph.UpsertNode(childKey, ast.Classify(value, state.src)); err != nil {
			return err
		}
		if err := state.graph.AddEdge(parent, childKey, RelationDictItem); err != nil {
			return err
		}
	}
	return nil
}

// expandSequence creates one "P[i]" child per positional element.
func (b *Builder) expandSequence(state *buildState, parent string, seq *sitter.Node) error {
	idx := 0
	for i := 0; i < int(seq.NamedChildCount()); i++ {
		elt := seq.NamedChild(i)
		if elt.Type() == "comment" {
			continue
		}

		childKey := fmt.Sprintf("%s[%d]", parent, idx)
		if _, err := state.graph.UpsertNode(childKey, ast.Classify(elt, state.src)); err != nil {
			return err
		}
		if err := state.graph.AddEdge(parent, childKey, RelationSeqItem); err != nil {
			return err
		}
		idx++
	}
	return nil
}

// reportProgress invokes the progress callback if one is configured.
func (b *Builder) reportProgress(state *buildState, phase ProgressPhase) {
	if b.options.ProgressCallback == nil {
		return
	}
	b.options.ProgressCallback(BuildProgress{
		Phase:        phase,
		NodesCreated: state.graph.NodeCount(),
		EdgesCreated: state.graph.EdgeCount(),
	})
}
