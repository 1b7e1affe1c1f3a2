// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast parses Python source files into tree-sitter syntax trees and
// provides the shallow expression classifier used by the graph builder.
package ast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Parser limits.
const (
	// DefaultMaxFileSize is the maximum file size the parser accepts (10MB).
	DefaultMaxFileSize int64 = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Sentinel errors returned by Parse.
var (
	// ErrFileTooLarge indicates the content exceeds the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the content is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrSyntax indicates the source could not be parsed as valid Python.
	// A syntax error is fatal for the whole build: no partial graph is
	// ever produced from a malformed file.
	ErrSyntax = errors.New("syntax error")
)

// NodeTextPlaceholder is returned by NodeText when no source text can be
// reconstructed for a node. The build degrades to this fixed placeholder
// instead of failing.
const NodeTextPlaceholder = "<expr>"

// PythonParserOption configures a PythonParser instance.
type PythonParserOption func(*PythonParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
//
// Parameters:
//   - bytes: Maximum file size in bytes. Must be positive.
//
// Example:
//
//	parser := NewPythonParser(WithMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithMaxFileSize(bytes int64) PythonParserOption {
	return func(p *PythonParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// PythonParser parses Python source code with tree-sitter.
//
// Description:
//
//	PythonParser validates the input and produces a ParseResult that owns
//	the tree-sitter syntax tree for one source file. Each Parse call
//	creates its own tree-sitter parser instance internally.
//
// Thread Safety:
//
//	PythonParser instances are safe for concurrent use. Multiple goroutines
//	may call Parse simultaneously on the same PythonParser instance.
type PythonParser struct {
	maxFileSize int64
}

// NewPythonParser creates a new PythonParser with the given options.
//
// Outputs:
//   - *PythonParser: Configured parser instance, never nil
func NewPythonParser(opts ...PythonParserOption) *PythonParser {
	p := &PythonParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ParseResult holds the parsed syntax tree for a single source file.
//
// Description:
//
//	ParseResult owns the underlying tree-sitter tree. Callers must call
//	Close when the graph has been built. The Source slice backs all text
//	reconstruction and must not be mutated.
//
// Thread Safety: Safe for concurrent reads. Close must be called once.
type ParseResult struct {
	// FilePath is the path the content was read from.
	FilePath string

	// Module is the module identifier: the base name of FilePath.
	// It becomes the root node key of the graph.
	Module string

	// Source is the raw source bytes the tree was parsed from.
	Source []byte

	tree *sitter.Tree
}

// Root returns the root node of the parsed syntax tree.
func (r *ParseResult) Root() *sitter.Node {
	if r == nil || r.tree == nil {
		return nil
	}
	return r.tree.RootNode()
}

// Close releases the underlying tree-sitter tree. Safe to call once.
func (r *ParseResult) Close() {
	if r != nil && r.tree != nil {
		r.tree.Close()
		r.tree = nil
	}
}

// Parse parses Python source code into a syntax tree.
//
// Description:
//
//	Parse validates the content, runs tree-sitter over it, and rejects
//	any file whose tree contains syntax errors. Unlike tree-sitter's
//	native error tolerance, a malformed file here is a fatal input error:
//	the caller never receives a partial tree.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: Tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Python source code bytes. Must be valid UTF-8.
//   - filePath: Path to the file (for the module key and error reporting).
//
// Outputs:
//   - *ParseResult: The parsed tree. Never nil on success. Caller owns it
//     and must call Close.
//   - error: Non-nil for any failure:
//   - ErrFileTooLarge: Content exceeds maxFileSize
//   - ErrInvalidContent: Content is not valid UTF-8
//   - ErrSyntax: The source does not parse as valid Python
//   - Context errors: Context was canceled or timed out
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *PythonParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseResult, error) {
	ctx, span := startParseSpan(ctx, filePath, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("parse canceled before start: %w", err)
	}

	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// Create tree-sitter parser (new instance per call for thread safety)
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("parse canceled after tree-sitter: %w", err)
	}

	rootNode := tree.RootNode()
	if rootNode == nil {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node for %s", ErrSyntax, filePath)
	}

	if rootNode.HasError() {
		tree.Close()
		recordParseMetrics(ctx, time.Since(start), false)
		return nil, fmt.Errorf("%w: %s contains malformed Python", ErrSyntax, filePath)
	}

	result := &ParseResult{
		FilePath: filePath,
		Module:   filepath.Base(filePath),
		Source:   content,
		tree:     tree,
	}

	setParseSpanResult(span, result.Module)
	recordParseMetrics(ctx, time.Since(start), true)

	return result, nil
}

// Language returns the canonical language name for this parser.
func (p *PythonParser) Language() string {
	return "python"
}

// Extensions returns the file extensions this parser handles.
func (p *PythonParser) Extensions() []string {
	return []string{".py", ".pyi"}
}

// NodeText reconstructs the exact source text of a syntax node.
//
// Description:
//
//	Tree-sitter nodes carry byte offsets into the original source, so
//	reconstruction is a slice of the content. This is the equivalent of
//	an unparser for the small expressions (dict keys, attribute callees)
//	the graph builder turns into node keys. A nil node or an offset
//	outside the source degrades to NodeTextPlaceholder.
//
// Inputs:
//   - n: The syntax node. May be nil.
//   - src: The source bytes the node was parsed from.
//
// Outputs:
//   - string: The node's source text, or NodeTextPlaceholder.
func NodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return NodeTextPlaceholder
	}
	start, end := n.StartByte(), n.EndByte()
	if int(end) > len(src) || start > end {
		return NodeTextPlaceholder
	}
	return string(src[start:end])
}
