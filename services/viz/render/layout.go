// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package render turns a frozen structure graph into an interactive 3D
// plotly visualization: force-directed layout, kind-based coloring, and
// HTML/JSON output. The renderer only reads the graph; it never mutates it.
package render

import (
	"math"
	"math/rand"

	"github.com/vizlab/structviz/services/viz/graph"
)

// Layout defaults.
const (
	// DefaultSeed makes layouts reproducible across runs.
	DefaultSeed int64 = 42

	// DefaultIterations is the number of force-simulation steps.
	DefaultIterations = 50

	// DefaultSpread is the optimal node distance of the spring layout.
	DefaultSpread = 0.6

	// DefaultZJitter is the depth range the 2D embedding is lifted into.
	DefaultZJitter = 0.8
)

// Position is a point in the 3D scene.
type Position struct {
	X float64
	Y float64
	Z float64
}

// LayoutOptions configures the force-directed layout.
type LayoutOptions struct {
	// Seed seeds the random generator for initial placement and z jitter.
	Seed int64

	// Iterations is the number of simulation steps. Must be positive.
	Iterations int

	// Spread is the optimal distance between connected nodes.
	Spread float64

	// ZJitter is the total depth range for the 3D lift.
	ZJitter float64
}

// DefaultLayoutOptions returns the layout defaults.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{
		Seed:       DefaultSeed,
		Iterations: DefaultIterations,
		Spread:     DefaultSpread,
		ZJitter:    DefaultZJitter,
	}
}

// Layout3D computes spatial coordinates for every node of a graph.
//
// Description:
//
//	Runs a Fruchterman–Reingold spring simulation in two dimensions over
//	the node set (deterministic for a given seed: nodes are processed in
//	sorted key order), rescales the embedding into [-1, 1], then lifts it
//	into 3D by assigning each node a random z offset within ZJitter.
//
// Inputs:
//   - g: The graph to lay out. Should be frozen; only read.
//   - opts: Layout parameters; zero values fall back to defaults.
//
// Outputs:
//   - map[string]Position: One position per node key. Never nil.
func Layout3D(g *graph.Graph, opts LayoutOptions) map[string]Position {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.Spread <= 0 {
		opts.Spread = DefaultSpread
	}
	if opts.ZJitter <= 0 {
		opts.ZJitter = DefaultZJitter
	}

	nodes := g.Nodes()
	positions := make(map[string]Position, len(nodes))
	if len(nodes) == 0 {
		return positions
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	keys := make([]string, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		keys[i] = n.Key
		index[n.Key] = i
	}

	// Initial placement in the unit square.
	xs := make([]float64, len(keys))
	ys := make([]float64, len(keys))
	for i := range keys {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
	}

	if len(keys) == 1 {
		positions[keys[0]] = Position{X: 0, Y: 0, Z: (rng.Float64() - 0.5) * opts.ZJitter}
		return positions
	}

	edges := g.Edges()
	k := opts.Spread

	dx := make([]float64, len(keys))
	dy := make([]float64, len(keys))

	// Linear cooling from an initial temperature of 0.1 of the frame.
	temp := 0.1
	cool := temp / float64(opts.Iterations+1)

	for iter := 0; iter < opts.Iterations; iter++ {
		for i := range dx {
			dx[i], dy[i] = 0, 0
		}

		// Repulsion between every pair.
		for i := 0; i < len(keys); i++ {
			for j := i + 1; j < len(keys); j++ {
				ddx := xs[i] - xs[j]
				ddy := ys[i] - ys[j]
				dist := math.Hypot(ddx, ddy)
				if dist < 1e-9 {
					dist = 1e-9
				}
				force := k * k / dist
				fx := ddx / dist * force
				fy := ddy / dist * force
				dx[i] += fx
				dy[i] += fy
				dx[j] -= fx
				dy[j] -= fy
			}
		}

		// Attraction along edges.
		for _, e := range edges {
			i, j := index[e.A], index[e.B]
			if i == j {
				continue
			}
			ddx := xs[i] - xs[j]
			ddy := ys[i] - ys[j]
			dist := math.Hypot(ddx, ddy)
			if dist < 1e-9 {
				dist = 1e-9
			}
			force := dist * dist / k
			fx := ddx / dist * force
			fy := ddy / dist * force
			dx[i] -= fx
			dy[i] -= fy
			dx[j] += fx
			dy[j] += fy
		}

		// Apply displacement, capped by the current temperature.
		for i := range keys {
			disp := math.Hypot(dx[i], dy[i])
			if disp < 1e-9 {
				continue
			}
			limited := math.Min(disp, temp)
			xs[i] += dx[i] / disp * limited
			ys[i] += dy[i] / disp * limited
		}

		temp -= cool
		if temp < 1e-4 {
			temp = 1e-4
		}
	}

	rescale(xs)
	rescale(ys)

	for i, key := range keys {
		positions[key] = Position{
			X: xs[i],
			Y: ys[i],
			Z: (rng.Float64() - 0.5) * opts.ZJitter,
		}
	}
	return positions
}

// rescale maps values into [-1, 1] preserving their relative spacing.
func rescale(vs []float64) {
	lo, hi := vs[0], vs[0]
	for _, v := range vs {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span < 1e-9 {
		for i := range vs {
			vs[i] = 0
		}
		return
	}
	for i, v := range vs {
		vs[i] = (v-lo)/span*2 - 1
	}
}
