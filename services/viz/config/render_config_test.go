// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path yields zero config", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Title != "" || cfg.Palette != nil {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("missing file yields zero config", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Title != "" {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("valid config parsed", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "c.yaml", `
title: "My Structures"
palette:
  function: "rgb(10,20,30)"
layout:
  seed: 7
  iterations: 100
  spread: 1.5
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Title != "My Structures" {
			t.Errorf("expected title, got %q", cfg.Title)
		}
		if cfg.Palette["function"] != "rgb(10,20,30)" {
			t.Errorf("palette not parsed: %v", cfg.Palette)
		}
		if cfg.Layout.Seed == nil || *cfg.Layout.Seed != 7 {
			t.Errorf("seed not parsed: %v", cfg.Layout.Seed)
		}
		if cfg.Layout.Iterations != 100 || cfg.Layout.Spread != 1.5 {
			t.Errorf("layout not parsed: %+v", cfg.Layout)
		}
	})

	t.Run("absent seed stays nil", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "c.yaml", "title: x\n")
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Layout.Seed != nil {
			t.Errorf("expected nil seed, got %v", *cfg.Layout.Seed)
		}
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "c.yaml", "title: [unclosed\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected error for invalid YAML")
		}
	})
}

func TestLoadBeside(t *testing.T) {
	t.Run("finds config next to the input", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, ConfigFileName, "title: beside\n")

		cfg, err := LoadBeside(filepath.Join(dir, "program.py"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Title != "beside" {
			t.Errorf("expected title beside, got %q", cfg.Title)
		}
	})

	t.Run("no config beside the input", func(t *testing.T) {
		cfg, err := LoadBeside(filepath.Join(t.TempDir(), "program.py"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Title != "" {
			t.Errorf("expected zero config, got %+v", cfg)
		}
	})

	t.Run("empty input path", func(t *testing.T) {
		if _, err := LoadBeside(""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
