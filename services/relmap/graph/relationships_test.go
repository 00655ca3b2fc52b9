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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationships_AddCallIdempotent(t *testing.T) {
	r := NewRelationships()

	require.NoError(t, r.AddCall("foo", "bar"))
	require.NoError(t, r.AddCall("foo", "bar"))
	require.NoError(t, r.AddCall("foo", "bar"))

	assert.Equal(t, 1, r.EdgeCount())
	assert.Equal(t, []string{"bar"}, r.Callees("foo"))
}

func TestRelationships_AddCallRejectsEmpty(t *testing.T) {
	r := NewRelationships()

	assert.ErrorIs(t, r.AddCall("", "bar"), ErrInvalidEdge)
	assert.ErrorIs(t, r.AddCall("foo", ""), ErrInvalidEdge)
}

func TestRelationships_SelfRecursion(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddCall("f", "f"))
	require.NoError(t, r.Freeze())

	assert.Equal(t, []string{"f"}, r.Callees("f"))
	assert.Equal(t, []string{"f"}, r.Callers("f"))
}

func TestRelationships_UsageGraphIsInversion(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddCall("a", "b"))
	require.NoError(t, r.AddCall("a", "c"))
	require.NoError(t, r.AddCall("b", "c"))
	require.NoError(t, r.Freeze())

	assert.Equal(t, []string{"a"}, r.Callers("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Callers("c"))
	assert.Empty(t, r.Callers("a"))

	// Every forward edge has exactly one mirror, and vice versa.
	forward := 0
	for caller, callees := range r.CallGraph() {
		for callee := range callees {
			forward++
			_, ok := r.UsageGraph()[callee][caller]
			assert.True(t, ok, "missing reverse edge %s<-%s", callee, caller)
		}
	}
	reverse := 0
	for _, callers := range r.UsageGraph() {
		reverse += len(callers)
	}
	assert.Equal(t, forward, reverse)
}

func TestRelationships_FrozenRejectsMutation(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddCall("a", "b"))
	require.NoError(t, r.Freeze())

	assert.ErrorIs(t, r.AddCall("x", "y"), ErrGraphFrozen)
	assert.ErrorIs(t, r.AddFunction(FunctionRecord{FullyQualifiedName: "x"}), ErrGraphFrozen)
	assert.ErrorIs(t, r.AddImplementation(ImplementationRecord{TypeName: "X"}), ErrGraphFrozen)
	assert.ErrorIs(t, r.Freeze(), ErrGraphFrozen)
}

func TestRelationships_AddFunctionLastWins(t *testing.T) {
	r := NewRelationships()

	require.NoError(t, r.AddFunction(FunctionRecord{
		Name: "f", FullyQualifiedName: "m::f", FilePath: "a.rs",
	}))
	require.NoError(t, r.AddFunction(FunctionRecord{
		Name: "f", FullyQualifiedName: "m::f", FilePath: "b.rs",
	}))

	assert.Equal(t, 1, r.FunctionCount())
	assert.Equal(t, "b.rs", r.Functions()["m::f"].FilePath)
}

func TestRelationships_AddImplementationMergesMethods(t *testing.T) {
	r := NewRelationships()

	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Point", Methods: []string{"new"},
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Point", Methods: []string{"new", "distance"},
	}))
	require.NoError(t, r.Freeze())

	rec, ok := r.Inheritance()["Point"]
	require.True(t, ok)
	assert.Equal(t, []string{"new", "distance"}, rec.Methods)
}

func TestRelationships_InheritanceSoleTraitImpl(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Circle", TraitName: "Shape", Methods: []string{"area"},
	}))
	require.NoError(t, r.Freeze())

	// Reachable under both the compound and the bare key.
	compound, ok := r.Inheritance()["Circle::Shape"]
	require.True(t, ok)
	assert.Equal(t, "Shape", compound.TraitName)

	bare, ok := r.Inheritance()["Circle"]
	require.True(t, ok)
	assert.Equal(t, "Shape", bare.TraitName)
	assert.Equal(t, []string{"area"}, bare.Methods)
}

func TestRelationships_InheritanceTraitImplPlusInherent(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Person", Methods: []string{"new"},
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Person", TraitName: "Greet", Methods: []string{"greet"},
	}))
	require.NoError(t, r.Freeze())

	inh := r.Inheritance()

	bare, ok := inh["Person"]
	require.True(t, ok)
	assert.Empty(t, bare.TraitName)
	assert.Equal(t, []string{"new"}, bare.Methods)

	compound, ok := inh["Person::Greet"]
	require.True(t, ok)
	assert.Equal(t, "Greet", compound.TraitName)
	assert.Equal(t, []string{"greet"}, compound.Methods)
}

func TestRelationships_InheritanceMultipleTraitImpls(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Widget", TraitName: "Draw",
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Widget", TraitName: "Debug",
	}))
	require.NoError(t, r.Freeze())

	inh := r.Inheritance()
	assert.Contains(t, inh, "Widget::Draw")
	assert.Contains(t, inh, "Widget::Debug")
	// Ambiguous: no bare key when multiple trait impls exist.
	assert.NotContains(t, inh, "Widget")
}

func TestRelationships_InheritanceTraitDefinition(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName:     "Animal",
		TraitName:    "Animal",
		Methods:      []string{"speak"},
		ParentTraits: []string{"Named"},
		IsTraitDef:   true,
	}))
	require.NoError(t, r.Freeze())

	rec, ok := r.Inheritance()["Animal"]
	require.True(t, ok)
	assert.True(t, rec.IsTraitDef)
	assert.Equal(t, []string{"Named"}, rec.ParentTraits)
	assert.Equal(t, []string{"speak"}, rec.Methods)
}

func TestRelationships_SupertraitsPropagateToImpls(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Animal", TraitName: "Animal",
		ParentTraits: []string{"Named"}, IsTraitDef: true,
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Dog", TraitName: "Animal", Methods: []string{"speak"},
	}))
	require.NoError(t, r.Freeze())

	rec, ok := r.Inheritance()["Dog::Animal"]
	require.True(t, ok)
	assert.Equal(t, []string{"Named"}, rec.ParentTraits)
}

func TestRelationships_ImplRecordWinsOverTraitDefOnCollision(t *testing.T) {
	// A type named like a trait: the impl's record takes the key.
	r := NewRelationships()
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Thing", TraitName: "Thing", IsTraitDef: true,
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Thing", Methods: []string{"new"},
	}))
	require.NoError(t, r.Freeze())

	rec, ok := r.Inheritance()["Thing"]
	require.True(t, ok)
	assert.False(t, rec.IsTraitDef)
	assert.Equal(t, []string{"new"}, rec.Methods)
}

func TestRelationships_DerivedViewsNilUntilFreeze(t *testing.T) {
	r := NewRelationships()
	require.NoError(t, r.AddCall("a", "b"))

	assert.Nil(t, r.UsageGraph())
	assert.Nil(t, r.Inheritance())
	assert.Empty(t, r.Callers("b"))
	assert.False(t, r.Frozen())

	require.NoError(t, r.Freeze())
	assert.True(t, r.Frozen())
	assert.NotNil(t, r.UsageGraph())
	assert.NotNil(t, r.Inheritance())
}

func TestRelationships_FailureLists(t *testing.T) {
	r := NewRelationships()
	r.AddParseFailure(ParseFailure{FilePath: "bad.rs", Line: 3, Message: "syntax"})
	r.AddInvariantFailure(InvariantFailure{FilePath: "odd.rs", Message: "depth 1"})
	require.NoError(t, r.Freeze())

	require.Len(t, r.ParseFailures(), 1)
	assert.Equal(t, "bad.rs", r.ParseFailures()[0].FilePath)
	require.Len(t, r.InvariantFailures(), 1)
	assert.Equal(t, "odd.rs", r.InvariantFailures()[0].FilePath)
}

func TestUnionOrdered(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unionOrdered([]string{"a", "b"}, []string{"b", "c"}))
	assert.Equal(t, []string{"a"}, unionOrdered([]string{"a"}, nil))
	assert.Equal(t, []string{"a"}, unionOrdered(nil, []string{"a", "a"}))
}
