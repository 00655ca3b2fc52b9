// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/relmap/services/relmap/graph"
)

// testEngine builds an engine over a small fixed graph:
//
//	main -> parse -> validate
//	main -> report
//	parse -> log_line (unresolved: no function record)
func testEngine(t *testing.T) *Engine {
	t.Helper()
	rels := graph.NewRelationships()

	for _, fn := range []graph.FunctionRecord{
		{Name: "main", FullyQualifiedName: "main", FilePath: "main.rs"},
		{Name: "parse", FullyQualifiedName: "parse", FilePath: "parse.rs"},
		{Name: "validate", FullyQualifiedName: "validate", FilePath: "parse.rs"},
		{Name: "report", FullyQualifiedName: "report", FilePath: "report.rs"},
		{Name: "unused", FullyQualifiedName: "unused", FilePath: "report.rs"},
		{Name: "exported", FullyQualifiedName: "exported", FilePath: "lib.rs", IsPublic: true},
	} {
		require.NoError(t, rels.AddFunction(fn))
	}

	require.NoError(t, rels.AddCall("main", "parse"))
	require.NoError(t, rels.AddCall("main", "report"))
	require.NoError(t, rels.AddCall("parse", "validate"))
	require.NoError(t, rels.AddCall("parse", "log_line"))

	require.NoError(t, rels.AddImplementation(graph.ImplementationRecord{
		TypeName: "Circle", TraitName: "Shape", Methods: []string{"area"},
	}))
	require.NoError(t, rels.AddImplementation(graph.ImplementationRecord{
		TypeName: "Square", TraitName: "Shape", Methods: []string{"area"},
	}))

	require.NoError(t, rels.Freeze())
	return NewEngine(rels)
}

func TestEngine_Callers(t *testing.T) {
	e := testEngine(t)

	results, err := e.Callers(context.Background(), "validate", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "validate", results[0].Target)
	assert.Equal(t, []string{"parse"}, results[0].Callers)
	assert.Equal(t, 1, results[0].TotalCallers)
}

func TestEngine_CallersOfUnresolvedCallee(t *testing.T) {
	e := testEngine(t)

	// log_line has no declaration; it is still a usage-graph key.
	results, err := e.Callers(context.Background(), "log_line", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"parse"}, results[0].Callers)
}

func TestEngine_CallersUnknown(t *testing.T) {
	e := testEngine(t)

	_, err := e.Callers(context.Background(), "nonexistent", 0)
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestEngine_Callees(t *testing.T) {
	e := testEngine(t)

	results, err := e.Callees(context.Background(), "main", 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"parse", "report"}, results[0].Callees)
}

func TestEngine_CalleesLimit(t *testing.T) {
	e := testEngine(t)

	results, err := e.Callees(context.Background(), "main", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 2, results[0].TotalCallees)
	assert.Len(t, results[0].Callees, 1)
}

func TestEngine_DeadCode(t *testing.T) {
	e := testEngine(t)

	out, err := e.DeadCode(context.Background(), DeadCodeOptions{})
	require.NoError(t, err)

	names := make([]string, 0, len(out))
	for _, c := range out {
		names = append(names, c.QualifiedName)
	}
	// main is an entry point, exported is public, everything with
	// callers is live.
	assert.Equal(t, []string{"unused"}, names)
}

func TestEngine_DeadCodeIncludePublic(t *testing.T) {
	e := testEngine(t)

	out, err := e.DeadCode(context.Background(), DeadCodeOptions{IncludePublic: true})
	require.NoError(t, err)

	names := make([]string, 0, len(out))
	for _, c := range out {
		names = append(names, c.QualifiedName)
	}
	assert.Equal(t, []string{"exported", "unused"}, names)
}

func TestEngine_Implementations(t *testing.T) {
	e := testEngine(t)

	res, err := e.Implementations(context.Background(), "Shape")
	require.NoError(t, err)
	require.Len(t, res.Entries, 4) // two impls, each under bare and compound keys

	res, err = e.Implementations(context.Background(), "Circle")
	require.NoError(t, err)
	for _, entry := range res.Entries {
		assert.Equal(t, "Circle", entry.Record.TypeName)
	}

	_, err = e.Implementations(context.Background(), "Nothing")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestEngine_CallChain(t *testing.T) {
	e := testEngine(t)

	path, err := e.CallChain(context.Background(), "main", "validate")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "parse", "validate"}, path)
}

func TestEngine_CallChainToSelf(t *testing.T) {
	e := testEngine(t)

	path, err := e.CallChain(context.Background(), "parse", "parse")
	require.NoError(t, err)
	assert.Equal(t, []string{"parse"}, path)
}

func TestEngine_CallChainToUnresolvedCallee(t *testing.T) {
	e := testEngine(t)

	path, err := e.CallChain(context.Background(), "main", "log_line")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "parse", "log_line"}, path)
}

func TestEngine_CallChainNoPath(t *testing.T) {
	e := testEngine(t)

	_, err := e.CallChain(context.Background(), "report", "parse")
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestEngine_CallChainUnknownFrom(t *testing.T) {
	e := testEngine(t)

	_, err := e.CallChain(context.Background(), "ghost", "main")
	assert.ErrorIs(t, err, ErrUnknownFunction)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, clampLimit(0))
	assert.Equal(t, DefaultLimit, clampLimit(-5))
	assert.Equal(t, 10, clampLimit(10))
	assert.Equal(t, MaxLimit, clampLimit(MaxLimit+1))
}
