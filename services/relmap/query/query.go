// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query implements read-only analyses over a frozen
// relationship graph: callers/callees, dead-code candidates, trait
// implementations, and call chains.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/relmap/services/relmap/graph"
	"github.com/AleutianAI/relmap/services/relmap/index"
)

var tracer = otel.Tracer("aleutian.relmap.query")

// Limit defaults and caps shared by the query surfaces.
const (
	DefaultLimit = 50
	MaxLimit     = 1000
)

// Engine answers queries against one frozen Relationships value.
//
// Thread Safety: safe for concurrent use; all operations are
// read-only.
type Engine struct {
	rels *graph.Relationships
	idx  *index.SymbolIndex
}

// NewEngine creates an Engine over a frozen result.
func NewEngine(rels *graph.Relationships) *Engine {
	return &Engine{
		rels: rels,
		idx:  index.FromRelationships(rels),
	}
}

// Index exposes the underlying symbol index.
func (e *Engine) Index() *index.SymbolIndex { return e.idx }

// Relationships exposes the underlying frozen result.
func (e *Engine) Relationships() *graph.Relationships { return e.rels }

// clampLimit applies the shared default and cap.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// CallersResult is the output of Callers.
type CallersResult struct {
	Target       string   `json:"target"`
	TotalCallers int      `json:"total_callers"`
	Callers      []string `json:"callers"`
}

// Callers finds the functions calling name. name may be a simple
// name; ambiguous simple names return one result per match.
func (e *Engine) Callers(ctx context.Context, name string, limit int) ([]CallersResult, error) {
	_, span := tracer.Start(ctx, "query.callers",
		trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	limit = clampLimit(limit)
	targets := e.resolveTargets(name)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	results := make([]CallersResult, 0, len(targets))
	for _, target := range targets {
		callers := e.rels.Callers(target)
		r := CallersResult{Target: target, TotalCallers: len(callers)}
		if len(callers) > limit {
			callers = callers[:limit]
		}
		r.Callers = callers
		results = append(results, r)
	}
	return results, nil
}

// CalleesResult is the output of Callees.
type CalleesResult struct {
	Source       string   `json:"source"`
	TotalCallees int      `json:"total_callees"`
	Callees      []string `json:"callees"`
}

// Callees finds the functions called by name.
func (e *Engine) Callees(ctx context.Context, name string, limit int) ([]CalleesResult, error) {
	_, span := tracer.Start(ctx, "query.callees",
		trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	limit = clampLimit(limit)
	targets := e.resolveTargets(name)
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	results := make([]CalleesResult, 0, len(targets))
	for _, target := range targets {
		callees := e.rels.Callees(target)
		r := CalleesResult{Source: target, TotalCallees: len(callees)}
		if len(callees) > limit {
			callees = callees[:limit]
		}
		r.Callees = callees
		results = append(results, r)
	}
	return results, nil
}

// DeadCodeOptions configures DeadCode.
type DeadCodeOptions struct {
	// IncludePublic reports public functions too. Public functions
	// are excluded by default since external crates may call them.
	IncludePublic bool

	// Limit caps the number of reported candidates.
	Limit int
}

// DeadCodeCandidate is one orphan function.
type DeadCodeCandidate struct {
	QualifiedName string `json:"qualified_name"`
	FilePath      string `json:"file_path"`
	IsPublic      bool   `json:"is_public"`
}

// DeadCode lists declared functions with no incoming usage edge.
//
// Entry points (main) and test functions are never reported. Trait
// methods are kept: an orphan trait method is usually reachable only
// through dynamic dispatch, so callers should treat those hits as
// weaker signals.
func (e *Engine) DeadCode(ctx context.Context, opts DeadCodeOptions) ([]DeadCodeCandidate, error) {
	_, span := tracer.Start(ctx, "query.dead_code")
	defer span.End()

	limit := clampLimit(opts.Limit)
	usage := e.rels.UsageGraph()

	var out []DeadCodeCandidate
	for qn, rec := range e.rels.Functions() {
		if _, used := usage[qn]; used {
			continue
		}
		if isEntryPoint(rec) {
			continue
		}
		if rec.IsPublic && !opts.IncludePublic {
			continue
		}
		out = append(out, DeadCodeCandidate{
			QualifiedName: qn,
			FilePath:      rec.FilePath,
			IsPublic:      rec.IsPublic,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QualifiedName < out[j].QualifiedName })

	span.SetAttributes(attribute.Int("candidates", len(out)))
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ImplementationsResult describes trait/type implementation lookups.
type ImplementationsResult struct {
	Query   string                 `json:"query"`
	Entries []ImplementationsEntry `json:"entries"`
}

// ImplementationsEntry is one inheritance-table hit.
type ImplementationsEntry struct {
	Key    string                     `json:"key"`
	Record graph.ImplementationRecord `json:"record"`
}

// Implementations looks up the inheritance table by type or trait
// name. A trait name returns every type implementing it; a type name
// returns its impl records.
func (e *Engine) Implementations(ctx context.Context, name string) (*ImplementationsResult, error) {
	_, span := tracer.Start(ctx, "query.implementations",
		trace.WithAttributes(attribute.String("name", name)))
	defer span.End()

	result := &ImplementationsResult{Query: name}
	for key, rec := range e.rels.Inheritance() {
		if key == name || rec.TypeName == name || rec.TraitName == name {
			result.Entries = append(result.Entries, ImplementationsEntry{Key: key, Record: rec})
		}
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	sort.Slice(result.Entries, func(i, j int) bool {
		return result.Entries[i].Key < result.Entries[j].Key
	})
	return result, nil
}

// CallChain finds a shortest path from one function to another through
// the call graph using breadth-first search. Returns ErrNoPath when
// the target is unreachable.
func (e *Engine) CallChain(ctx context.Context, from, to string) ([]string, error) {
	_, span := tracer.Start(ctx, "query.call_chain",
		trace.WithAttributes(attribute.String("from", from)))
	defer span.End()

	fromTargets := e.resolveTargets(from)
	toTargets := e.resolveTargets(to)
	if len(fromTargets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, from)
	}
	if len(toTargets) == 0 {
		// The target may be an unresolved callee key; allow it.
		toTargets = []string{to}
	}
	goal := make(map[string]struct{}, len(toTargets))
	for _, t := range toTargets {
		goal[t] = struct{}{}
	}

	callGraph := e.rels.CallGraph()
	for _, start := range fromTargets {
		if path := bfs(callGraph, start, goal); path != nil {
			return path, nil
		}
	}
	return nil, fmt.Errorf("%w: %s -> %s", ErrNoPath, from, to)
}

func bfs(callGraph map[string]map[string]struct{}, start string, goal map[string]struct{}) []string {
	if _, ok := goal[start]; ok {
		return []string{start}
	}
	prev := map[string]string{start: ""}
	queue := []string{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		// Sorted neighbor order keeps the returned path deterministic.
		for _, next := range sortedSet(callGraph[cur]) {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if _, ok := goal[next]; ok {
				return rebuildPath(prev, next)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func rebuildPath(prev map[string]string, end string) []string {
	var path []string
	for cur := end; cur != ""; cur = prev[cur] {
		path = append([]string{cur}, path...)
	}
	return path
}

// resolveTargets maps a user-supplied name to graph keys: resolved
// declarations first, else the literal name when it appears as a graph
// key (unresolved callees are legitimate targets).
func (e *Engine) resolveTargets(name string) []string {
	if matches := e.idx.Resolve(name); len(matches) > 0 {
		return matches
	}
	if _, ok := e.rels.CallGraph()[name]; ok {
		return []string{name}
	}
	if _, ok := e.rels.UsageGraph()[name]; ok {
		return []string{name}
	}
	return nil
}

// isEntryPoint reports functions that legitimately have no callers.
func isEntryPoint(rec graph.FunctionRecord) bool {
	if rec.Name == "main" {
		return true
	}
	return strings.HasPrefix(rec.Name, "test_")
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
