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
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sort"

	"github.com/vizlab/structviz/services/viz/ast"
	"github.com/vizlab/structviz/services/viz/graph"
)

// ErrNilGraph is returned when a figure is requested for a nil graph.
var ErrNilGraph = errors.New("render: graph is nil")

// Rendering defaults.
const (
	// DefaultTitle is the figure title when no config overrides it.
	DefaultTitle = "Python Program Data Structures (3D)"

	// EdgeColor is the line color of the relation trace.
	EdgeColor = "rgb(0,100,200)"

	// EdgeWidth is the line width of the relation trace.
	EdgeWidth = 3

	// MarkerSize is the node marker size.
	MarkerSize = 6

	// MarkerOpacity is the node marker opacity.
	MarkerOpacity = 0.9

	// plotlyCDN is the script source embedded in HTML output.
	plotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"
)

// Marker styles the points of a scatter3d trace.
type Marker struct {
	Size    int     `json:"size"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// Line styles the segments of a scatter3d trace.
type Line struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

// Trace is a plotly scatter3d trace. Coordinates use pointers so that
// nil serializes as JSON null, which plotly reads as a segment break.
type Trace struct {
	Type         string     `json:"type"`
	X            []*float64 `json:"x"`
	Y            []*float64 `json:"y"`
	Z            []*float64 `json:"z"`
	Mode         string     `json:"mode"`
	Name         string     `json:"name"`
	Text         []string   `json:"text,omitempty"`
	TextPosition string     `json:"textposition,omitempty"`
	HoverInfo    string     `json:"hoverinfo,omitempty"`
	HoverText    []*string  `json:"hovertext,omitempty"`
	Marker       *Marker    `json:"marker,omitempty"`
	Line         *Line      `json:"line,omitempty"`
}

// Axis hides the scene axes so only the graph is visible.
type Axis struct {
	ShowBackground bool `json:"showbackground"`
	ShowTickLabels bool `json:"showticklabels"`
	Visible        bool `json:"visible"`
}

// Scene configures the 3D scene of the figure.
type Scene struct {
	XAxis Axis `json:"xaxis"`
	YAxis Axis `json:"yaxis"`
	ZAxis Axis `json:"zaxis"`
}

// Margin is the figure margin in pixels.
type Margin struct {
	L int `json:"l"`
	R int `json:"r"`
	T int `json:"t"`
	B int `json:"b"`
}

// FigureLayout is the plotly layout block.
type FigureLayout struct {
	Title      string `json:"title"`
	ShowLegend bool   `json:"showlegend"`
	Scene      Scene  `json:"scene"`
	Margin     Margin `json:"margin"`
}

// Figure is a complete plotly figure: one edge trace followed by one
// marker trace per node kind.
type Figure struct {
	Data   []Trace      `json:"data"`
	Layout FigureLayout `json:"layout"`
}

// BuildFigure assembles a plotly figure from a laid-out graph.
//
// Description:
//
//	Emits the edge trace first (paired endpoints separated by nulls,
//	hover text naming both endpoints and the relation), then one
//	markers+text trace per node kind in sorted kind order so output is
//	deterministic. Kinds without nodes produce no trace.
//
// Inputs:
//   - g: The frozen graph to render.
//   - pos: Node positions from Layout3D. Must cover every node.
//   - palette: Kind colors; nil falls back to DefaultPalette.
//   - title: Figure title; empty falls back to DefaultTitle.
//
// Outputs:
//   - *Figure: The assembled figure.
//   - error: ErrNilGraph if g is nil.
func BuildFigure(g *graph.Graph, pos map[string]Position, palette map[ast.Kind]string, title string) (*Figure, error) {
	if g == nil {
		return nil, ErrNilGraph
	}
	if palette == nil {
		palette = DefaultPalette()
	}
	if title == "" {
		title = DefaultTitle
	}

	fig := &Figure{
		Data: []Trace{edgeTrace(g, pos)},
		Layout: FigureLayout{
			Title:      title,
			ShowLegend: true,
			Margin:     Margin{L: 0, R: 0, T: 40, B: 0},
		},
	}

	byKind := make(map[ast.Kind][]*graph.Node)
	for _, n := range g.Nodes() {
		byKind[n.Kind] = append(byKind[n.Kind], n)
	}
	kinds := make([]ast.Kind, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	for _, kind := range kinds {
		fig.Data = append(fig.Data, nodeTrace(kind, byKind[kind], pos, palette))
	}
	return fig, nil
}

// edgeTrace builds the single line trace carrying every relation.
func edgeTrace(g *graph.Graph, pos map[string]Position) Trace {
	edges := g.Edges()
	t := Trace{
		Type:      "scatter3d",
		Mode:      "lines",
		Name:      "relations",
		HoverInfo: "text",
		Line:      &Line{Color: EdgeColor, Width: EdgeWidth},
		X:         make([]*float64, 0, len(edges)*3),
		Y:         make([]*float64, 0, len(edges)*3),
		Z:         make([]*float64, 0, len(edges)*3),
		HoverText: make([]*string, 0, len(edges)*3),
	}
	for _, e := range edges {
		pa, pb := pos[e.A], pos[e.B]
		t.X = append(t.X, f(pa.X), f(pb.X), nil)
		t.Y = append(t.Y, f(pa.Y), f(pb.Y), nil)
		t.Z = append(t.Z, f(pa.Z), f(pb.Z), nil)

		label := fmt.Sprintf("%s → %s", e.A, e.B)
		if e.Relation != "" {
			label = fmt.Sprintf("%s (%s)", label, e.Relation)
		}
		t.HoverText = append(t.HoverText, &label, &label, nil)
	}
	return t
}

// nodeTrace builds the markers+text trace for one kind.
func nodeTrace(kind ast.Kind, nodes []*graph.Node, pos map[string]Position, palette map[ast.Kind]string) Trace {
	t := Trace{
		Type:         "scatter3d",
		Mode:         "markers+text",
		Name:         string(kind),
		TextPosition: "top center",
		Marker:       &Marker{Size: MarkerSize, Color: colorFor(palette, kind), Opacity: MarkerOpacity},
		X:            make([]*float64, 0, len(nodes)),
		Y:            make([]*float64, 0, len(nodes)),
		Z:            make([]*float64, 0, len(nodes)),
		Text:         make([]string, 0, len(nodes)),
	}
	for _, n := range nodes {
		p := pos[n.Key]
		t.X = append(t.X, f(p.X))
		t.Y = append(t.Y, f(p.Y))
		t.Z = append(t.Z, f(p.Z))
		t.Text = append(t.Text, n.Label)
	}
	return t
}

func f(v float64) *float64 { return &v }

// WriteJSON writes the figure as indented JSON.
func (fig *Figure) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fig); err != nil {
		return fmt.Errorf("encoding figure: %w", err)
	}
	return nil
}

var htmlTemplate = template.Must(template.New("figure").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.CDN}}"></script>
<style>html, body, #graph { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="graph"></div>
<script>
var figure = {{.Figure}};
Plotly.newPlot("graph", figure.data, figure.layout, {responsive: true});
</script>
</body>
</html>
`))

// WriteHTML writes a standalone HTML page rendering the figure via the
// plotly.js CDN build.
func (fig *Figure) WriteHTML(w io.Writer) error {
	raw, err := json.Marshal(fig)
	if err != nil {
		return fmt.Errorf("encoding figure: %w", err)
	}
	data := struct {
		Title  string
		CDN    string
		Figure template.JS
	}{
		Title:  fig.Layout.Title,
		CDN:    plotlyCDN,
		Figure: template.JS(raw),
	}
	if err := htmlTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering html: %w", err)
	}
	return nil
}
