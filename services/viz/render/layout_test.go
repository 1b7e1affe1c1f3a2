// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package render

import (
	"math"
	"testing"

	"github.com/vizlab/structviz/services/viz/ast"
	"github.com/vizlab/structviz/services/viz/graph"
)

func testLayoutGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.NewGraph("m.py")
	for _, n := range []struct {
		key  string
		kind ast.Kind
	}{
		{"A", ast.KindClass},
		{"A.b()", ast.KindFunction},
		{"items", ast.KindList},
		{"items[0]", ast.KindInt},
		{"items[1]", ast.KindStr},
	} {
		if _, err := g.UpsertNode(n.key, n.kind); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range []struct{ a, b, rel string }{
		{"m.py", "A", graph.RelationContains},
		{"A", "A.b()", graph.RelationMethod},
		{"m.py", "items", graph.RelationVar},
		{"items", "items[0]", graph.RelationSeqItem},
		{"items", "items[1]", graph.RelationSeqItem},
	} {
		if err := g.AddEdge(e.a, e.b, e.rel); err != nil {
			t.Fatal(err)
		}
	}
	g.Freeze()
	return g
}

func TestLayout3D(t *testing.T) {
	g := testLayoutGraph(t)

	t.Run("covers every node", func(t *testing.T) {
		pos := Layout3D(g, DefaultLayoutOptions())
		if len(pos) != g.NodeCount() {
			t.Fatalf("expected %d positions, got %d", g.NodeCount(), len(pos))
		}
		for _, n := range g.Nodes() {
			if _, ok := pos[n.Key]; !ok {
				t.Errorf("no position for node %q", n.Key)
			}
		}
	})

	t.Run("deterministic per seed", func(t *testing.T) {
		first := Layout3D(g, DefaultLayoutOptions())
		second := Layout3D(g, DefaultLayoutOptions())
		for key, p := range first {
			q := second[key]
			if p != q {
				t.Errorf("node %q moved between identical runs: %+v vs %+v", key, p, q)
			}
		}
	})

	t.Run("different seed yields a different embedding", func(t *testing.T) {
		first := Layout3D(g, DefaultLayoutOptions())
		opts := DefaultLayoutOptions()
		opts.Seed = 7
		second := Layout3D(g, opts)

		same := true
		for key, p := range first {
			if p != second[key] {
				same = false
				break
			}
		}
		if same {
			t.Error("changing the seed produced an identical layout")
		}
	})

	t.Run("coordinates bounded", func(t *testing.T) {
		opts := DefaultLayoutOptions()
		pos := Layout3D(g, opts)
		for key, p := range pos {
			if math.Abs(p.X) > 1+1e-9 || math.Abs(p.Y) > 1+1e-9 {
				t.Errorf("node %q outside [-1,1] plane: %+v", key, p)
			}
			if math.Abs(p.Z) > opts.ZJitter/2+1e-9 {
				t.Errorf("node %q outside z jitter range: %+v", key, p)
			}
		}
	})

	t.Run("finite coordinates", func(t *testing.T) {
		pos := Layout3D(g, DefaultLayoutOptions())
		for key, p := range pos {
			if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) ||
				math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) || math.IsInf(p.Z, 0) {
				t.Errorf("node %q has non-finite position: %+v", key, p)
			}
		}
	})

	t.Run("empty graph", func(t *testing.T) {
		empty := graph.NewGraph("e.py")
		empty.Freeze()
		pos := Layout3D(empty, DefaultLayoutOptions())
		if len(pos) != 1 {
			t.Errorf("expected a position for the module node only, got %d", len(pos))
		}
	})

	t.Run("zero options fall back to defaults", func(t *testing.T) {
		pos := Layout3D(g, LayoutOptions{})
		if len(pos) != g.NodeCount() {
			t.Errorf("expected %d positions, got %d", g.NodeCount(), len(pos))
		}
	})
}
