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

import "github.com/vizlab/structviz/services/viz/ast"

// UnknownColor is the fallback for kinds without a palette entry.
const UnknownColor = "rgb(120,120,120)"

// DefaultPalette returns the marker color for each node kind.
func DefaultPalette() map[ast.Kind]string {
	return map[ast.Kind]string{
		ast.KindList:     "rgb(0,150,255)",
		ast.KindDict:     "rgb(255,140,0)",
		ast.KindSet:      "rgb(50,200,50)",
		ast.KindTuple:    "rgb(200,0,200)",
		ast.KindClass:    "rgb(255,0,0)",
		ast.KindFunction: "rgb(0,0,255)",
		ast.KindInt:      "rgb(200,200,200)",
		ast.KindStr:      "rgb(255,105,180)",
		ast.KindFloat:    "rgb(180,180,255)",
		ast.KindBool:     "rgb(150,150,150)",
		ast.KindModule:   "rgb(0,0,0)",
		ast.KindUnknown:  UnknownColor,
	}
}

// colorFor looks up a kind in the palette with the unknown fallback.
func colorFor(palette map[ast.Kind]string, kind ast.Kind) string {
	if c, ok := palette[kind]; ok {
		return c
	}
	return UnknownColor
}
