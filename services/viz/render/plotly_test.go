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
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/vizlab/structviz/services/viz/ast"
)

func TestBuildFigure(t *testing.T) {
	g := testLayoutGraph(t)
	pos := Layout3D(g, DefaultLayoutOptions())

	t.Run("nil graph rejected", func(t *testing.T) {
		if _, err := BuildFigure(nil, pos, nil, ""); !errors.Is(err, ErrNilGraph) {
			t.Fatalf("expected ErrNilGraph, got %v", err)
		}
	})

	fig, err := BuildFigure(g, pos, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("edge trace comes first", func(t *testing.T) {
		if len(fig.Data) == 0 {
			t.Fatal("figure has no traces")
		}
		edge := fig.Data[0]
		if edge.Mode != "lines" || edge.Name != "relations" {
			t.Errorf("unexpected edge trace: mode=%q name=%q", edge.Mode, edge.Name)
		}
		wantLen := g.EdgeCount() * 3
		if len(edge.X) != wantLen {
			t.Errorf("expected %d edge x values, got %d", wantLen, len(edge.X))
		}
		// Every third coordinate is a null separator.
		for i := 2; i < len(edge.X); i += 3 {
			if edge.X[i] != nil || edge.Y[i] != nil || edge.Z[i] != nil {
				t.Errorf("expected null separator at index %d", i)
			}
		}
	})

	t.Run("edge hover names endpoints and relation", func(t *testing.T) {
		edge := fig.Data[0]
		if len(edge.HoverText) != g.EdgeCount()*3 {
			t.Fatalf("expected %d hover entries, got %d", g.EdgeCount()*3, len(edge.HoverText))
		}
		found := false
		for _, h := range edge.HoverText {
			if h != nil && strings.Contains(*h, "A.b()") && strings.Contains(*h, "(method)") {
				found = true
			}
		}
		if !found {
			t.Error("no hover text for the method edge")
		}
	})

	t.Run("one marker trace per populated kind", func(t *testing.T) {
		// testLayoutGraph holds module, class, function, list, int, str.
		wantKinds := map[string]bool{
			"module": true, "class": true, "function": true,
			"list": true, "int": true, "str": true,
		}
		got := map[string]bool{}
		for _, tr := range fig.Data[1:] {
			if tr.Mode != "markers+text" {
				t.Errorf("unexpected node trace mode %q", tr.Mode)
			}
			got[tr.Name] = true
		}
		if len(got) != len(wantKinds) {
			t.Errorf("expected %d node traces, got %d", len(wantKinds), len(got))
		}
		for kind := range wantKinds {
			if !got[kind] {
				t.Errorf("missing trace for kind %q", kind)
			}
		}
	})

	t.Run("marker colors follow the palette", func(t *testing.T) {
		palette := DefaultPalette()
		for _, tr := range fig.Data[1:] {
			want := palette[ast.Kind(tr.Name)]
			if tr.Marker == nil || tr.Marker.Color != want {
				t.Errorf("trace %q: expected color %q, got %+v", tr.Name, want, tr.Marker)
			}
		}
	})

	t.Run("default title applied", func(t *testing.T) {
		if fig.Layout.Title != DefaultTitle {
			t.Errorf("expected default title, got %q", fig.Layout.Title)
		}
	})

	t.Run("custom title and palette", func(t *testing.T) {
		palette := DefaultPalette()
		palette[ast.KindClass] = "rgb(1,2,3)"
		custom, err := BuildFigure(g, pos, palette, "My Program")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if custom.Layout.Title != "My Program" {
			t.Errorf("expected custom title, got %q", custom.Layout.Title)
		}
		for _, tr := range custom.Data[1:] {
			if tr.Name == "class" && tr.Marker.Color != "rgb(1,2,3)" {
				t.Errorf("palette override not applied: %q", tr.Marker.Color)
			}
		}
	})
}

func TestFigure_WriteJSON(t *testing.T) {
	g := testLayoutGraph(t)
	pos := Layout3D(g, DefaultLayoutOptions())
	fig, err := BuildFigure(g, pos, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := fig.WriteJSON(&buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded struct {
		Data []struct {
			Type string     `json:"type"`
			X    []*float64 `json:"x"`
		} `json:"data"`
		Layout struct {
			Title string `json:"title"`
		} `json:"layout"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded.Data) != len(fig.Data) {
		t.Errorf("expected %d traces, got %d", len(fig.Data), len(decoded.Data))
	}
	if decoded.Layout.Title != DefaultTitle {
		t.Errorf("expected title %q, got %q", DefaultTitle, decoded.Layout.Title)
	}
	for _, tr := range decoded.Data {
		if tr.Type != "scatter3d" {
			t.Errorf("expected scatter3d traces, got %q", tr.Type)
		}
	}
	// Segment separators survive as JSON nulls.
	if !bytes.Contains(buf.Bytes(), []byte("null")) {
		t.Error("expected null separators in edge coordinates")
	}
}

func TestFigure_WriteHTML(t *testing.T) {
	g := testLayoutGraph(t)
	pos := Layout3D(g, DefaultLayoutOptions())
	fig, err := BuildFigure(g, pos, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var buf bytes.Buffer
	if err := fig.WriteHTML(&buf); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<!DOCTYPE html>",
		"cdn.plot.ly",
		`<div id="graph">`,
		"Plotly.newPlot",
		DefaultTitle,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML output missing %q", want)
		}
	}
}

func TestDefaultPalette(t *testing.T) {
	palette := DefaultPalette()
	for _, k := range ast.Kinds() {
		if _, ok := palette[k]; !ok {
			t.Errorf("palette missing kind %q", k)
		}
	}
	if colorFor(palette, ast.Kind("nonsense")) != UnknownColor {
		t.Error("expected unknown fallback color for unrecognized kind")
	}
}
