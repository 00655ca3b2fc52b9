// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast turns raw source text into parse trees for relationship
// extraction.
//
// The package exposes a Parser interface plus a ParserRegistry that maps
// file extensions to parsers. Parsing is fail-soft: a file with syntax
// errors produces a *ParseError carrying the location of the first error
// node, never a panic, and never aborts a multi-file run (callers decide
// how to aggregate failures).
package ast

import (
	"context"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// Location identifies a position in a source file.
//
// Lines are 1-indexed, columns are 0-indexed, matching tree-sitter's
// point convention shifted to human-readable line numbers.
type Location struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// ParseTree is the result of a successful parse.
//
// The underlying tree-sitter tree holds C-allocated memory; callers own
// the tree and must call Close when done with it. Source is retained
// because tree-sitter nodes only carry byte offsets, not text.
type ParseTree struct {
	// Root is the root node of the syntax tree.
	Root *sitter.Node

	// Source is the raw file content the tree was parsed from.
	Source []byte

	// FilePath is the path the content was read from.
	FilePath string

	// Language is the language identifier (e.g. "rust").
	Language string

	// ContentHash is the SHA-256 of Source, hex-encoded. Used for
	// change detection and cache keys.
	ContentHash string

	// ParsedAtMs is the parse timestamp in Unix milliseconds.
	ParsedAtMs int64

	tree *sitter.Tree
}

// Close releases the C-allocated memory backing the tree.
//
// Safe to call more than once.
func (t *ParseTree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// Text returns the source text spanned by node.
func (t *ParseTree) Text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(t.Source[node.StartByte():node.EndByte()])
}

// Parser is the interface implemented by language-specific parsers.
//
// Implementations must be safe for concurrent use: Parse may be called
// from multiple goroutines at once, one file per call.
type Parser interface {
	// Parse parses content into a tree. On syntax errors it returns a
	// *ParseError wrapping ErrSyntaxError with the location of the
	// first error node.
	Parse(ctx context.Context, content []byte, filePath string) (*ParseTree, error)

	// Language returns the language identifier (e.g. "rust").
	Language() string

	// Extensions returns the file extensions this parser accepts,
	// including the leading dot.
	Extensions() []string
}

// ParserRegistry maps file extensions to parsers.
//
// Thread Safety: all methods are safe for concurrent use.
type ParserRegistry struct {
	mu     sync.RWMutex
	byExt  map[string]Parser
	byLang map[string]Parser
}

// NewParserRegistry creates an empty registry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byExt:  make(map[string]Parser),
		byLang: make(map[string]Parser),
	}
}

// NewDefaultRegistry creates a registry with the built-in parsers
// registered. Currently that is the Rust parser only.
func NewDefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewRustParser())
	return r
}

// Register adds a parser for its declared language and extensions,
// replacing any previous registration.
func (r *ParserRegistry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byLang[p.Language()] = p
	for _, ext := range p.Extensions() {
		r.byExt[strings.ToLower(ext)] = p
	}
}

// GetByExtension returns the parser for a file extension (with or
// without the leading dot).
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byExt[strings.ToLower(ext)]
	return p, ok
}

// GetByLanguage returns the parser for a language identifier.
func (r *ParserRegistry) GetByLanguage(lang string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byLang[strings.ToLower(lang)]
	return p, ok
}

// Extensions returns every registered extension.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}
