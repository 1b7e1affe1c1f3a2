// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph holds the structural graph model and the builder that
// populates it from a parsed Python syntax tree.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/vizlab/structviz/services/viz/ast"
)

// Graph capacity defaults.
const (
	// DefaultMaxNodes is the default maximum number of nodes in a graph.
	DefaultMaxNodes = 100_000

	// DefaultMaxEdges is the default maximum number of edges in a graph.
	DefaultMaxEdges = 400_000
)

// Relation tags describe why two nodes are connected.
const (
	// RelationContains links the module to a class or top-level function.
	RelationContains = "contains"

	// RelationMethod links a class to one of its methods.
	RelationMethod = "method"

	// RelationVar links the module to a bound variable.
	RelationVar = "var"

	// RelationCalls links the module to a call target.
	RelationCalls = "calls"

	// RelationArg links a variable to a call it is passed into.
	RelationArg = "arg"

	// RelationDictItem links a dict variable to one of its keyed children.
	RelationDictItem = "dict-item"

	// RelationSeqItem links a sequence variable to one of its indexed children.
	RelationSeqItem = "seq-item"
)

// Sentinel errors for graph invariant violations.
var (
	// ErrGraphFrozen indicates a mutation was attempted after Freeze.
	ErrGraphFrozen = errors.New("graph is frozen")

	// ErrEmptyKey indicates a node key or edge endpoint was empty.
	ErrEmptyKey = errors.New("empty node key")

	// ErrUnknownEndpoint indicates an edge endpoint that is not a node.
	// Both endpoints must exist before an edge is added; the builder is
	// responsible for creating placeholder nodes first.
	ErrUnknownEndpoint = errors.New("edge endpoint is not a node")

	// ErrTooManyNodes indicates the node capacity was exceeded.
	ErrTooManyNodes = errors.New("too many nodes")

	// ErrTooManyEdges indicates the edge capacity was exceeded.
	ErrTooManyEdges = errors.New("too many edges")
)

// Node is a single entity in the structure graph.
//
// Key is the graph-wide unique identity: the module filename, a qualified
// "Class.method()" name, a "function()" name, a bare variable name, or a
// synthesized compound key for literal items ("P[0]", "P.key").
type Node struct {
	// Key is the unique node identifier.
	Key string `json:"key"`

	// Kind is the semantic category tag.
	Kind ast.Kind `json:"kind"`

	// Label is the display text; normally equal to Key.
	Label string `json:"label"`
}

// Edge is an undirected connection between two existing nodes.
type Edge struct {
	// A and B are the endpoint node keys.
	A string `json:"a"`
	B string `json:"b"`

	// Relation describes why the endpoints are connected.
	Relation string `json:"relation"`
}

// edgeKey identifies an edge by its unordered endpoint pair. A pair holds
// at most one edge; re-adding overwrites the relation (last one wins).
type edgeKey struct {
	lo, hi string
}

func pairKey(a, b string) edgeKey {
	if b < a {
		a, b = b, a
	}
	return edgeKey{lo: a, hi: b}
}

// GraphOption is a functional option for configuring a Graph.
type GraphOption func(*Graph)

// WithMaxNodes sets the maximum number of nodes.
func WithMaxNodes(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.maxNodes = n
		}
	}
}

// WithMaxEdges sets the maximum number of edges.
func WithMaxEdges(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.maxEdges = n
		}
	}
}

// Graph is the mutable structure graph built for one source file.
//
// Description:
//
//	Graph is an explicit builder object passed by reference through the
//	traversal, never ambient global state. It enforces two invariants:
//	node keys are unique graph-wide (UpsertNode overwrites the kind of an
//	existing key instead of duplicating it), and both endpoints of an
//	edge must already exist as nodes.
//
//	After Freeze the graph is immutable and safe to hand to the renderer.
//
// Thread Safety:
//
//	Not safe for concurrent mutation. Safe for concurrent reads once
//	frozen. The builder owns the graph exclusively until it returns it.
type Graph struct {
	moduleKey string
	nodes     map[string]*Node
	edges     map[edgeKey]*Edge
	frozen    bool
	maxNodes  int
	maxEdges  int

	// BuiltAtMilli is the Unix timestamp in milliseconds when the graph
	// was frozen. Zero while building.
	BuiltAtMilli int64
}

// NewGraph creates a new graph containing only the module root node.
//
// Inputs:
//   - moduleKey: The module identifier (base filename). Must not be empty;
//     an empty key yields a graph whose module node is "<module>".
//   - opts: Optional capacity overrides.
func NewGraph(moduleKey string, opts ...GraphOption) *Graph {
	if moduleKey == "" {
		moduleKey = "<module>"
	}

	g := &Graph{
		moduleKey: moduleKey,
		nodes:     make(map[string]*Node),
		edges:     make(map[edgeKey]*Edge),
		maxNodes:  DefaultMaxNodes,
		maxEdges:  DefaultMaxEdges,
	}
	for _, opt := range opts {
		opt(g)
	}

	g.nodes[moduleKey] = &Node{Key: moduleKey, Kind: ast.KindModule, Label: moduleKey}
	return g
}

// ModuleKey returns the key of the module root node.
func (g *Graph) ModuleKey() string {
	return g.moduleKey
}

// Frozen reports whether the graph has been frozen.
func (g *Graph) Frozen() bool {
	return g.frozen
}

// UpsertNode creates the node for key, or overwrites its kind if the key
// already exists (last classification wins, no history kept).
//
// Outputs:
//   - *Node: The node now stored under key.
//   - error: ErrGraphFrozen, ErrEmptyKey, or ErrTooManyNodes.
func (g *Graph) UpsertNode(key string, kind ast.Kind) (*Node, error) {
	if g.frozen {
		return nil, ErrGraphFrozen
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	if existing, ok := g.nodes[key]; ok {
		existing.Kind = kind
		return existing, nil
	}

	if len(g.nodes) >= g.maxNodes {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManyNodes, g.maxNodes)
	}

	n := &Node{Key: key, Kind: kind, Label: key}
	g.nodes[key] = n
	return n, nil
}

// AddEdge connects two existing nodes with an undirected edge.
//
// Description:
//
//	Both endpoints must already exist; the builder creates placeholder
//	nodes for unknown call targets before linking to them. A node pair
//	carries at most one edge; re-adding the pair overwrites the relation.
//
// Outputs:
//   - error: ErrGraphFrozen, ErrEmptyKey, ErrUnknownEndpoint, or
//     ErrTooManyEdges.
func (g *Graph) AddEdge(a, b, relation string) error {
	if g.frozen {
		return ErrGraphFrozen
	}
	if a == "" || b == "" {
		return ErrEmptyKey
	}
	if _, ok := g.nodes[a]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, a)
	}
	if _, ok := g.nodes[b]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEndpoint, b)
	}

	key := pairKey(a, b)
	if existing, ok := g.edges[key]; ok {
		existing.Relation = relation
		return nil
	}

	if len(g.edges) >= g.maxEdges {
		return fmt.Errorf("%w: limit %d", ErrTooManyEdges, g.maxEdges)
	}

	g.edges[key] = &Edge{A: a, B: b, Relation: relation}
	return nil
}

// Freeze makes the graph immutable. Idempotent.
func (g *Graph) Freeze() {
	if g.frozen {
		return
	}
	g.frozen = true
	g.BuiltAtMilli = time.Now().UnixMilli()
}

// Node returns the node stored under key, or nil.
func (g *Graph) Node(key string) *Node {
	return g.nodes[key]
}

// HasNode reports whether key exists in the graph.
func (g *Graph) HasNode(key string) bool {
	_, ok := g.nodes[key]
	return ok
}

// NodeCount returns the number of nodes, including the module node.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Nodes returns all nodes sorted by key for deterministic iteration.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Key < nodes[j].Key })
	return nodes
}

// Edges returns all edges sorted by endpoint pair for deterministic iteration.
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		ki, kj := pairKey(edges[i].A, edges[i].B), pairKey(edges[j].A, edges[j].B)
		if ki.lo != kj.lo {
			return ki.lo < kj.lo
		}
		return ki.hi < kj.hi
	})
	return edges
}

// EdgeBetween returns the edge connecting a and b in either order, or nil.
func (g *Graph) EdgeBetween(a, b string) *Edge {
	return g.edges[pairKey(a, b)]
}

// Neighbors returns the keys of all nodes sharing an edge with key, sorted.
func (g *Graph) Neighbors(key string) []string {
	var out []string
	for _, e := range g.edges {
		switch key {
		case e.A:
			out = append(out, e.B)
		case e.B:
			out = append(out, e.A)
		}
	}
	sort.Strings(out)
	return out
}
