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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GraphSchemaVersion is the version of the serialization schema.
// Increment when the serialization format changes in a breaking way.
const GraphSchemaVersion = "1.0"

// SerializableGraph is the JSON-serializable representation of a Graph.
//
// Description:
//
//	Contains all data needed to reconstruct a Graph from JSON. Nodes and
//	edges are sorted for deterministic output, enabling reliable diffing
//	and content hashing. This is also the exact shape the renderer
//	consumes: every node carries {key, kind, label}, every edge carries
//	its two endpoints and relation.
//
// Thread Safety: SerializableGraph is a value type with no internal state.
type SerializableGraph struct {
	// SchemaVersion identifies the serialization format version.
	SchemaVersion string `json:"schema_version"`

	// Module is the key of the module root node.
	Module string `json:"module"`

	// BuiltAtMilli is the Unix timestamp in milliseconds when the graph
	// was frozen.
	BuiltAtMilli int64 `json:"built_at_milli"`

	// GraphHash is the deterministic hash of the graph structure.
	GraphHash string `json:"graph_hash"`

	// Nodes contains all nodes, sorted by key.
	Nodes []Node `json:"nodes"`

	// Edges contains all edges, sorted by endpoint pair.
	Edges []Edge `json:"edges"`
}

// ToSerializable converts a Graph to its JSON-serializable representation.
//
// Outputs:
//   - *SerializableGraph: The serializable representation. Never nil.
//
// Complexity:
//
//	O(V log V + E log E); sorting dominates.
//
// Thread Safety:
//
//	Safe for concurrent use on frozen graphs.
func (g *Graph) ToSerializable() *SerializableGraph {
	if g == nil {
		return &SerializableGraph{
			SchemaVersion: GraphSchemaVersion,
			Nodes:         []Node{},
			Edges:         []Edge{},
		}
	}

	sorted := g.Nodes()
	nodes := make([]Node, 0, len(sorted))
	for _, n := range sorted {
		nodes = append(nodes, *n)
	}

	sortedEdges := g.Edges()
	edges := make([]Edge, 0, len(sortedEdges))
	for _, e := range sortedEdges {
		edges = append(edges, *e)
	}

	return &SerializableGraph{
		SchemaVersion: GraphSchemaVersion,
		Module:        g.moduleKey,
		BuiltAtMilli:  g.BuiltAtMilli,
		GraphHash:     g.Hash(),
		Nodes:         nodes,
		Edges:         edges,
	}
}

// FromSerializable reconstructs a Graph from its serializable representation.
//
// Description:
//
//	Creates a new Graph in building state, replays UpsertNode and AddEdge
//	for each entry so the normal construction path enforces all
//	invariants, then freezes it and restores the original BuiltAtMilli.
//
// Outputs:
//   - *Graph: The reconstructed graph in read-only state.
//   - error: Non-nil if sg is nil, the schema version is unsupported, or
//     an entry violates a graph invariant.
func FromSerializable(sg *SerializableGraph, opts ...GraphOption) (*Graph, error) {
	if sg == nil {
		return nil, fmt.Errorf("serializable graph must not be nil")
	}
	if sg.SchemaVersion != GraphSchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %q (expected %q)", sg.SchemaVersion, GraphSchemaVersion)
	}

	g := NewGraph(sg.Module, opts...)

	for i, n := range sg.Nodes {
		if _, err := g.UpsertNode(n.Key, n.Kind); err != nil {
			return nil, fmt.Errorf("adding node %d (%s): %w", i, n.Key, err)
		}
	}

	for i, e := range sg.Edges {
		if err := g.AddEdge(e.A, e.B, e.Relation); err != nil {
			return nil, fmt.Errorf("adding edge %d (%s -- %s): %w", i, e.A, e.B, err)
		}
	}

	g.Freeze()
	g.BuiltAtMilli = sg.BuiltAtMilli

	return g, nil
}

// Hash returns a deterministic hash of the graph structure.
//
// Description:
//
//	Hashes the sorted node and edge sets, excluding BuiltAtMilli, so two
//	builds of identical input produce identical hashes (the idempotence
//	property). Node kinds participate: reclassifying a variable changes
//	the hash.
func (g *Graph) Hash() string {
	h := sha256.New()
	for _, n := range g.Nodes() {
		fmt.Fprintf(h, "n\x00%s\x00%s\x00%s\n", n.Key, n.Kind, n.Label)
	}
	for _, e := range g.Edges() {
		k := pairKey(e.A, e.B)
		fmt.Fprintf(h, "e\x00%s\x00%s\x00%s\n", k.lo, k.hi, e.Relation)
	}
	return hex.EncodeToString(h.Sum(nil))
}
