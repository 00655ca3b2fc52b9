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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/relmap/services/relmap/ast"
	"github.com/AleutianAI/relmap/services/relmap/extract"
)

// ProgressPhase identifies a stage of a build.
type ProgressPhase string

const (
	// PhaseParsing covers pass one: parse and per-file extraction.
	PhaseParsing ProgressPhase = "parsing"

	// PhaseResolving covers pass two: reference resolution against
	// the global declaration index.
	PhaseResolving ProgressPhase = "resolving"

	// PhaseFinalizing covers usage-graph derivation and freezing.
	PhaseFinalizing ProgressPhase = "finalizing"
)

// Progress describes build progress for an optional callback.
type Progress struct {
	Phase    ProgressPhase
	Current  int
	Total    int
	FilePath string
}

// ProgressCallback receives progress updates. Called from the build
// goroutine; must not block.
type ProgressCallback func(Progress)

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithWorkerCount sets the number of parallel pass-one workers.
// Zero means runtime.NumCPU().
func WithWorkerCount(n int) BuilderOption {
	return func(b *Builder) {
		if n >= 0 {
			b.workers = n
		}
	}
}

// WithProgressCallback registers a progress callback.
func WithProgressCallback(cb ProgressCallback) BuilderOption {
	return func(b *Builder) { b.progress = cb }
}

// WithParserRegistry replaces the default parser registry.
func WithParserRegistry(r *ast.ParserRegistry) BuilderOption {
	return func(b *Builder) {
		if r != nil {
			b.registry = r
		}
	}
}

// Builder runs the two-pass extraction pipeline over a file set.
//
// Description:
//
//	Pass one parses each file exactly once and extracts declarations
//	plus unresolved call references; independent files may be handled
//	concurrently because each traversal only touches per-file state.
//	Pass two starts only after pass one has completed for every file:
//	it builds the global declaration index, resolves every reference
//	into a call edge, and merges per-file facts into the aggregate in
//	sorted file order so the result is identical regardless of input
//	order or worker count.
//
//	Builds are fail-soft: files that fail to parse are recorded in the
//	result's parse-failure list and skipped; files aborted by an
//	extractor invariant violation are logged loudly and recorded
//	separately. The build itself only fails on context cancellation.
type Builder struct {
	registry  *ast.ParserRegistry
	extractor *extract.Extractor
	workers   int
	progress  ProgressCallback
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		registry:  ast.NewDefaultRegistry(),
		extractor: extract.NewExtractor(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// fileOutcome is the pass-one result slot for one file.
type fileOutcome struct {
	facts     *extract.FileFacts
	parseFail *ParseFailure
	invariant *InvariantFailure
}

// Build extracts relationships from the given files.
//
// The input order is irrelevant: files are processed from a sorted
// copy and merged deterministically. The returned Relationships is
// frozen. The error is non-nil only for context cancellation; per-file
// problems are reported inside the result.
func (b *Builder) Build(ctx context.Context, files []string) (*Relationships, error) {
	ctx, span := tracer.Start(ctx, "graph.build")
	defer span.End()
	start := time.Now()

	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	outcomes := make([]fileOutcome, len(sorted))

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Pass one: parse + extract, one file per task.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range sorted {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = b.processFile(gctx, path)
			b.report(Progress{Phase: PhaseParsing, Current: i + 1, Total: len(sorted), FilePath: path})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	// Pass two: global declaration index, then resolution. Must not
	// start before pass one has finished for every file.
	decls := extract.NewDeclIndex()
	for _, o := range outcomes {
		if o.facts != nil {
			decls.AddFunctions(o.facts.Functions)
		}
	}
	decls.Freeze()
	resolver := extract.NewResolver(decls)

	rels := NewRelationships()
	failures := 0
	for i, o := range outcomes {
		switch {
		case o.parseFail != nil:
			rels.AddParseFailure(*o.parseFail)
			failures++
		case o.invariant != nil:
			rels.AddInvariantFailure(*o.invariant)
			failures++
		case o.facts != nil:
			if err := b.merge(rels, resolver, o.facts); err != nil {
				return nil, err
			}
		}
		b.report(Progress{Phase: PhaseResolving, Current: i + 1, Total: len(outcomes)})
	}

	b.report(Progress{Phase: PhaseFinalizing, Current: 1, Total: 1})
	if err := rels.Freeze(); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("files", len(sorted)),
		attribute.Int("failures", failures),
		attribute.Int("functions", rels.FunctionCount()),
		attribute.Int("edges", rels.EdgeCount()),
	)
	recordBuildMetrics(ctx, time.Since(start), len(sorted), failures, rels.EdgeCount())

	slog.Info("relationship build complete",
		slog.Int("files", len(sorted)),
		slog.Int("functions", rels.FunctionCount()),
		slog.Int("edges", rels.EdgeCount()),
		slog.Int("parse_failures", len(rels.ParseFailures())),
		slog.Duration("elapsed", time.Since(start)))

	return rels, nil
}

// BuildDir discovers source files under root (honoring the project
// config, if present) and builds relationships from them.
func (b *Builder) BuildDir(ctx context.Context, root string) (*Relationships, error) {
	cfg, err := LoadProjectConfig(root)
	if err != nil {
		return nil, err
	}
	files, err := DiscoverFiles(root, cfg, b.registry)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: under %s", ErrNoFiles, root)
	}
	return b.Build(ctx, files)
}

// processFile runs pass one for a single file. Failures are returned
// in the outcome, never as errors, so one bad file cannot sink the
// batch.
func (b *Builder) processFile(ctx context.Context, path string) fileOutcome {
	content, err := os.ReadFile(path)
	if err != nil {
		return fileOutcome{parseFail: &ParseFailure{
			FilePath: path,
			Message:  fmt.Sprintf("read failed: %v", err),
		}}
	}

	parser, ok := b.registry.GetByExtension(filepath.Ext(path))
	if !ok {
		return fileOutcome{parseFail: &ParseFailure{
			FilePath: path,
			Message:  fmt.Sprintf("no parser for extension %q", filepath.Ext(path)),
		}}
	}

	tree, err := parser.Parse(ctx, content, path)
	if err != nil {
		var perr *ast.ParseError
		if errors.As(err, &perr) {
			return fileOutcome{parseFail: &ParseFailure{
				FilePath: path,
				Line:     perr.Line,
				Column:   perr.Column,
				Message:  perr.Message,
			}}
		}
		return fileOutcome{parseFail: &ParseFailure{FilePath: path, Message: err.Error()}}
	}
	defer tree.Close()

	facts, err := b.extractor.ExtractFile(ctx, tree)
	if err != nil {
		if errors.Is(err, extract.ErrInvariantViolation) {
			// A bug in the extractor, not bad input. Surface loudly
			// and abort only this file.
			slog.Error("extractor invariant violation",
				slog.String("file", path),
				slog.String("error", err.Error()))
			return fileOutcome{invariant: &InvariantFailure{FilePath: path, Message: err.Error()}}
		}
		return fileOutcome{parseFail: &ParseFailure{FilePath: path, Message: err.Error()}}
	}

	return fileOutcome{facts: facts}
}

// merge folds one file's facts into the aggregate, resolving call
// references on the way in.
func (b *Builder) merge(rels *Relationships, resolver *extract.Resolver, facts *extract.FileFacts) error {
	for _, fn := range facts.Functions {
		err := rels.AddFunction(FunctionRecord{
			Name:               fn.Name,
			FullyQualifiedName: fn.QualifiedName,
			IsMethod:           fn.IsMethod,
			IsPublic:           fn.IsPublic,
			ParentType:         fn.ParentType,
			ParentTrait:        fn.ParentTrait,
			FilePath:           fn.FilePath,
		})
		if err != nil {
			return err
		}
	}

	for _, impl := range facts.Impls {
		err := rels.AddImplementation(ImplementationRecord{
			TraitName:    impl.TraitName,
			TypeName:     impl.TypeName,
			Methods:      impl.Methods,
			Bounds:       impl.Bounds,
			ParentTraits: impl.Supertraits,
			IsTraitDef:   impl.IsTraitDef,
		})
		if err != nil {
			return err
		}
	}

	for _, call := range facts.Calls {
		if err := rels.AddCall(call.CallerQN, resolver.Resolve(call.Ref)); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) report(p Progress) {
	if b.progress != nil {
		b.progress(p)
	}
}
