// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Kind is the semantic category tag attached to a graph node.
//
// The enumeration is closed: any expression or annotation that does not
// match one of these names resolves to KindUnknown.
type Kind string

// The full kind enumeration.
const (
	KindList     Kind = "list"
	KindDict     Kind = "dict"
	KindSet      Kind = "set"
	KindTuple    Kind = "tuple"
	KindClass    Kind = "class"
	KindFunction Kind = "function"
	KindInt      Kind = "int"
	KindStr      Kind = "str"
	KindFloat    Kind = "float"
	KindBool     Kind = "bool"
	KindModule   Kind = "module"
	KindUnknown  Kind = "unknown"
)

// knownKinds is the closed set of valid kind names.
var knownKinds = map[Kind]bool{
	KindList:     true,
	KindDict:     true,
	KindSet:      true,
	KindTuple:    true,
	KindClass:    true,
	KindFunction: true,
	KindInt:      true,
	KindStr:      true,
	KindFloat:    true,
	KindBool:     true,
	KindModule:   true,
	KindUnknown:  true,
}

// KnownKind reports whether name is a member of the kind enumeration.
func KnownKind(name string) bool {
	return knownKinds[Kind(name)]
}

// Kinds returns every member of the kind enumeration in display order.
func Kinds() []Kind {
	return []Kind{
		KindList, KindDict, KindSet, KindTuple,
		KindClass, KindFunction,
		KindInt, KindStr, KindFloat, KindBool,
		KindModule, KindUnknown,
	}
}

// Classify maps an expression node to exactly one kind tag.
//
// Description:
//
//	Classify is a pure function over the shallow syntactic shape of a
//	single expression. It never inspects surrounding context (variable
//	history, annotations) and never fails: unrecognized input degrades
//	to KindUnknown. Rules apply in priority order:
//
//	 1. Container literals classify as list/dict/set/tuple.
//	 2. Literal constants classify by their value type name when that
//	    name is in the enumeration (int, float, str, bool); None and
//	    every other constant are unknown.
//	 3. A call whose callee is a bare identifier matching an enumeration
//	    name case-insensitively classifies as that name (list(...) →
//	    list); any other call is unknown.
//	 4. Everything else is unknown.
//
// Inputs:
//   - node: The expression node. May be nil (returns KindUnknown).
//   - src: The source bytes the node was parsed from.
//
// Outputs:
//   - Kind: Exactly one member of the enumeration.
func Classify(node *sitter.Node, src []byte) Kind {
	if node == nil {
		return KindUnknown
	}

	switch node.Type() {
	case "list":
		return KindList
	case "dictionary":
		return KindDict
	case "set":
		return KindSet
	case "tuple", "expression_list":
		// A bare comma-separated expression list (x = 1, 2) is a tuple.
		return KindTuple
	case "integer":
		return KindInt
	case "float":
		return KindFloat
	case "string", "concatenated_string":
		return KindStr
	case "true", "false":
		return KindBool
	case "call":
		// Constructor heuristics for calls like list(), dict(), set().
		callee := node.ChildByFieldName("function")
		if callee != nil && callee.Type() == "identifier" {
			name := strings.ToLower(NodeText(callee, src))
			if KnownKind(name) {
				return Kind(name)
			}
		}
		return KindUnknown
	case "parenthesized_expression":
		// (expr) wraps a single expression; classify the inner value.
		if inner := node.NamedChild(0); inner != nil {
			return Classify(inner, src)
		}
		return KindUnknown
	default:
		return KindUnknown
	}
}
