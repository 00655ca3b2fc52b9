// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/relmap/services/relmap/ast"
)

// ConfigFileName is the optional per-project configuration file,
// looked up at the project root.
const ConfigFileName = "relmap.config.yaml"

// Directories never descended into during discovery.
var defaultSkipDirs = map[string]struct{}{
	".git":         {},
	"target":       {},
	"node_modules": {},
}

// ProjectConfig is the optional per-project configuration.
//
// Example relmap.config.yaml:
//
//	exclude:
//	  - tests/fixtures
//	  - benches
//	workers: 8
type ProjectConfig struct {
	// Exclude lists path prefixes (relative to the project root,
	// forward slashes) to skip during discovery.
	Exclude []string `yaml:"exclude"`

	// Include, when non-empty, restricts discovery to these path
	// prefixes.
	Include []string `yaml:"include"`

	// Workers overrides the pass-one worker count. Zero means
	// runtime default.
	Workers int `yaml:"workers"`
}

// LoadProjectConfig reads ConfigFileName under root. A missing file is
// not an error: it returns the zero config.
func LoadProjectConfig(root string) (ProjectConfig, error) {
	var cfg ProjectConfig

	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read project config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse project config %s: %w", path, err)
	}

	slog.Debug("loaded project config",
		slog.String("path", path),
		slog.Int("exclude_rules", len(cfg.Exclude)))
	return cfg, nil
}

// DiscoverFiles walks root and returns the sorted list of source files
// matching the registry's extensions, after applying the config's
// include/exclude prefixes.
func DiscoverFiles(root string, cfg ProjectConfig, registry *ast.ParserRegistry) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if _, skip := defaultSkipDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if rel != "." && cfg.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if _, ok := registry.GetByExtension(filepath.Ext(path)); !ok {
			return nil
		}
		if cfg.excluded(rel) || !cfg.included(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover files under %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

func (c ProjectConfig) excluded(rel string) bool {
	for _, prefix := range c.Exclude {
		if hasPathPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

func (c ProjectConfig) included(rel string) bool {
	if len(c.Include) == 0 {
		return true
	}
	for _, prefix := range c.Include {
		if hasPathPrefix(rel, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(rel, prefix string) bool {
	prefix = strings.TrimSuffix(filepath.ToSlash(prefix), "/")
	if prefix == "" {
		return false
	}
	return rel == prefix || strings.HasPrefix(rel, prefix+"/")
}
