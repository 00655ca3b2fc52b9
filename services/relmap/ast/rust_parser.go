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
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
	"go.opentelemetry.io/otel/codes"
)

// Default parser limits.
const (
	// DefaultMaxFileSize is the largest file the parser accepts (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// RustParserOption configures a RustParser instance.
type RustParserOption func(*RustParser)

// WithRustMaxFileSize sets the maximum file size the parser will accept.
//
// Example:
//
//	parser := NewRustParser(WithRustMaxFileSize(5 * 1024 * 1024)) // 5MB limit
func WithRustMaxFileSize(bytes int64) RustParserOption {
	return func(p *RustParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// RustParser implements the Parser interface for Rust source code.
//
// Description:
//
//	RustParser uses tree-sitter to parse Rust source files into syntax
//	trees consumed by the extraction layer. A file whose tree contains
//	ERROR nodes is rejected with a *ParseError carrying the location of
//	the first error node; downstream treats that as a per-file parse
//	failure, not a run failure.
//
// Thread Safety:
//
//	RustParser instances are safe for concurrent use. Each Parse call
//	creates its own tree-sitter parser instance internally.
//
// Example:
//
//	parser := NewRustParser()
//	tree, err := parser.Parse(ctx, []byte("fn main() {}"), "main.rs")
//	if err != nil {
//	    return err
//	}
//	defer tree.Close()
type RustParser struct {
	maxFileSize int64
}

// NewRustParser creates a new RustParser with the given options.
func NewRustParser(opts ...RustParserOption) *RustParser {
	p := &RustParser{
		maxFileSize: DefaultMaxFileSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Language returns "rust".
func (p *RustParser) Language() string { return "rust" }

// Extensions returns the extensions handled by this parser.
func (p *RustParser) Extensions() []string { return []string{".rs"} }

// Parse parses Rust source code into a ParseTree.
//
// Description:
//
//	Validates content (size, UTF-8), parses it with tree-sitter, and
//	rejects trees containing syntax errors. The returned tree holds
//	C-allocated memory; the caller must Close it.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//     Note: tree-sitter parsing itself cannot be interrupted mid-parse.
//   - content: Raw Rust source bytes. Must be valid UTF-8.
//   - filePath: Path to the file, used for error reporting only.
//
// Outputs:
//   - *ParseTree: Syntax tree plus source and content hash. Nil on error.
//   - error: Non-nil for failures:
//   - ErrFileTooLarge: content exceeds the configured limit
//   - ErrInvalidContent: content is not valid UTF-8
//   - *ParseError wrapping ErrSyntaxError: tree contains ERROR nodes
//   - Context errors: context was canceled or timed out
//
// Thread Safety:
//
//	This method is safe for concurrent use.
func (p *RustParser) Parse(ctx context.Context, content []byte, filePath string) (*ParseTree, error) {
	ctx, span := startParseSpan(ctx, "rust", filePath)
	defer span.End()

	start := time.Now()

	// Check context before starting
	if err := ctx.Err(); err != nil {
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("%w: %w", ErrContextCanceled, err)
	}

	// Validate file size
	if int64(len(content)) > p.maxFileSize {
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), p.maxFileSize)
	}

	// Log warning for large files
	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	// Validate UTF-8
	if !utf8.Valid(content) {
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidContent)
	}

	// Compute hash before parsing (captures input)
	hash := sha256.Sum256(content)
	hashStr := hex.EncodeToString(hash[:])

	// Create tree-sitter parser (new instance per call for thread safety)
	parser := sitter.NewParser()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}

	// Check context after parsing
	if err := ctx.Err(); err != nil {
		tree.Close()
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("%w: %w", ErrContextCanceled, err)
	}

	root := tree.RootNode()
	if root == nil {
		tree.Close()
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		return nil, fmt.Errorf("%w: tree-sitter returned nil root node", ErrSyntaxError)
	}

	if root.HasError() {
		loc := firstErrorLocation(root, filePath)
		tree.Close()
		recordParseMetrics(ctx, "rust", time.Since(start), false)
		perr := NewParseError(filePath, loc.Line, loc.Column, "source contains syntax errors", ErrSyntaxError)
		span.SetStatus(codes.Error, perr.Message)
		return nil, perr
	}

	recordParseMetrics(ctx, "rust", time.Since(start), true)

	return &ParseTree{
		Root:        root,
		Source:      content,
		FilePath:    filePath,
		Language:    "rust",
		ContentHash: hashStr,
		ParsedAtMs:  time.Now().UnixMilli(),
		tree:        tree,
	}, nil
}

// firstErrorLocation finds the location of the first ERROR or missing
// node in a depth-first walk. Falls back to the root position when no
// explicit error node exists (HasError can be set by missing tokens).
func firstErrorLocation(root *sitter.Node, filePath string) Location {
	var found *sitter.Node

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if found != nil || n == nil {
			return
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return
		}
		if !n.HasError() {
			return // no error anywhere in this subtree
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	node := root
	if found != nil {
		node = found
	}
	return Location{
		FilePath: filePath,
		Line:     int(node.StartPoint().Row) + 1,
		Column:   int(node.StartPoint().Column),
	}
}
