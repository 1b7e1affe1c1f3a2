// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads user-provided rendering overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the config file looked up next to the input file.
const ConfigFileName = "structviz.config.yaml"

// LayoutConfig holds optional overrides for the force-directed layout.
type LayoutConfig struct {
	// Seed overrides the layout random seed. Nil keeps the default.
	Seed *int64 `yaml:"seed"`

	// Iterations overrides the simulation step count. Zero keeps the default.
	Iterations int `yaml:"iterations"`

	// Spread overrides the optimal node distance. Zero keeps the default.
	Spread float64 `yaml:"spread"`
}

// RenderConfig holds user-provided overrides for rendering.
//
// Description:
//
//	Loaded from structviz.config.yaml next to the analyzed file, or from
//	an explicit path. All fields are optional. A missing config file is
//	not an error (zero-config works out of the box).
//
// Thread Safety: Safe for concurrent reads after construction.
type RenderConfig struct {
	// Title overrides the figure title.
	Title string `yaml:"title"`

	// Palette overrides marker colors per kind name.
	// Example: {"function": "rgb(0,0,255)"}
	Palette map[string]string `yaml:"palette"`

	// Layout overrides layout parameters.
	Layout LayoutConfig `yaml:"layout"`
}

// Load reads a render config file from an explicit path.
//
// Description:
//
//	Reads and parses the config file. If the path is empty or the file
//	does not exist, returns an empty config with no error. Only returns
//	an error if the file exists but cannot be read or parsed.
//
// Inputs:
//
//	path - Path to the config file. May be empty.
//
// Outputs:
//
//	RenderConfig - The parsed config, or empty config if file is missing.
//	error - Non-nil only if the file exists but is unreadable or invalid.
func Load(path string) (RenderConfig, error) {
	if path == "" {
		return RenderConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RenderConfig{}, nil
		}
		return RenderConfig{}, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	var cfg RenderConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RenderConfig{}, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	return cfg, nil
}

// LoadBeside looks for structviz.config.yaml in the directory of the
// analyzed file. A missing file yields an empty config.
func LoadBeside(inputPath string) (RenderConfig, error) {
	if inputPath == "" {
		return RenderConfig{}, nil
	}
	return Load(filepath.Join(filepath.Dir(inputPath), ConfigFileName))
}
