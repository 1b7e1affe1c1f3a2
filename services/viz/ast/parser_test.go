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
	"context"
	"errors"
	"strings"
	"testing"
)

const validPython = `
class Point:
    def __init__(self, x, y):
        self.x = x
        self.y = y

def origin():
    return Point(0, 0)

points = [origin(), origin()]
`

func TestPythonParser_Parse(t *testing.T) {
	ctx := context.Background()

	t.Run("valid source", func(t *testing.T) {
		parser := NewPythonParser()
		result, err := parser.Parse(ctx, []byte(validPython), "/tmp/shapes.py")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer result.Close()

		if result.Module != "shapes.py" {
			t.Errorf("expected module %q, got %q", "shapes.py", result.Module)
		}
		if result.Root() == nil {
			t.Fatal("expected non-nil root node")
		}
		if result.Root().Type() != "module" {
			t.Errorf("expected root type module, got %q", result.Root().Type())
		}
	})

	t.Run("syntax error is fatal", func(t *testing.T) {
		parser := NewPythonParser()
		result, err := parser.Parse(ctx, []byte("def broken(:\n    pass\n"), "broken.py")
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("expected ErrSyntax, got %v", err)
		}
		if result != nil {
			t.Error("expected nil result for malformed source")
		}
	})

	t.Run("file too large", func(t *testing.T) {
		parser := NewPythonParser(WithMaxFileSize(16))
		_, err := parser.Parse(ctx, []byte(validPython), "big.py")
		if !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("invalid utf8", func(t *testing.T) {
		parser := NewPythonParser()
		_, err := parser.Parse(ctx, []byte{0xff, 0xfe, 0x00}, "junk.py")
		if !errors.Is(err, ErrInvalidContent) {
			t.Fatalf("expected ErrInvalidContent, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		parser := NewPythonParser()
		_, err := parser.Parse(cancelled, []byte("x = 1\n"), "x.py")
		if err == nil {
			t.Fatal("expected error for cancelled context")
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		parser := NewPythonParser()
		result, err := parser.Parse(ctx, []byte("x = 1\n"), "x.py")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result.Close()
		result.Close()
		if result.Root() != nil {
			t.Error("expected nil root after Close")
		}
	})
}

func TestPythonParser_Metadata(t *testing.T) {
	parser := NewPythonParser()
	if parser.Language() != "python" {
		t.Errorf("expected language python, got %q", parser.Language())
	}
	exts := parser.Extensions()
	if len(exts) == 0 || exts[0] != ".py" {
		t.Errorf("expected .py as primary extension, got %v", exts)
	}
}

func TestNodeText(t *testing.T) {
	ctx := context.Background()
	src := []byte("value = {\"key\": 1}\n")

	parser := NewPythonParser()
	result, err := parser.Parse(ctx, src, "d.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer result.Close()

	t.Run("reconstructs source exactly", func(t *testing.T) {
		assign := result.Root().NamedChild(0).NamedChild(0)
		right := assign.ChildByFieldName("right")
		got := NodeText(right, src)
		if got != `{"key": 1}` {
			t.Errorf("NodeText = %q, want %q", got, `{"key": 1}`)
		}
	})

	t.Run("nil node degrades to placeholder", func(t *testing.T) {
		if got := NodeText(nil, src); got != NodeTextPlaceholder {
			t.Errorf("NodeText(nil) = %q, want %q", got, NodeTextPlaceholder)
		}
	})

	t.Run("truncated source degrades to placeholder", func(t *testing.T) {
		assign := result.Root().NamedChild(0).NamedChild(0)
		right := assign.ChildByFieldName("right")
		if got := NodeText(right, src[:4]); got != NodeTextPlaceholder {
			t.Errorf("NodeText with short source = %q, want %q", got, NodeTextPlaceholder)
		}
	})
}

func TestParse_LargeFileStillSucceeds(t *testing.T) {
	// Above the warn threshold but below the hard limit.
	var b strings.Builder
	for b.Len() <= WarnFileSize {
		b.WriteString("x = [1, 2, 3]\n")
	}

	parser := NewPythonParser()
	result, err := parser.Parse(context.Background(), []byte(b.String()), "huge.py")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result.Close()
}
