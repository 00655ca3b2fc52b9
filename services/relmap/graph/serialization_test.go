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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frozenFixture(t *testing.T) *Relationships {
	t.Helper()
	r := NewRelationships()
	require.NoError(t, r.AddCall("foo", "bar"))
	require.NoError(t, r.AddCall("foo", "baz"))
	require.NoError(t, r.AddFunction(FunctionRecord{
		Name: "foo", FullyQualifiedName: "foo", FilePath: "main.rs",
	}))
	require.NoError(t, r.AddImplementation(ImplementationRecord{
		TypeName: "Circle", TraitName: "Shape", Methods: []string{"area"},
	}))
	r.AddParseFailure(ParseFailure{FilePath: "bad.rs", Message: "syntax"})
	require.NoError(t, r.Freeze())
	return r
}

func TestToSerializable_RequiresFreeze(t *testing.T) {
	r := NewRelationships()
	_, err := r.ToSerializable()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFrozen)
}

func TestToSerializable_SortedValues(t *testing.T) {
	r := frozenFixture(t)

	s, err := r.ToSerializable()
	require.NoError(t, err)

	assert.Equal(t, SchemaVersion, s.SchemaVersion)
	assert.Equal(t, []string{"bar", "baz"}, s.CallGraph["foo"])
	assert.Equal(t, []string{"foo"}, s.UsageGraph["bar"])
	require.Len(t, s.ParseFailures, 1)
}

func TestToJSON_Deterministic(t *testing.T) {
	r := frozenFixture(t)

	first, err := r.ToJSON()
	require.NoError(t, err)
	second, err := r.ToJSON()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// No wall-clock fields may leak into the document.
	assert.NotContains(t, string(first), "timestamp")
}

func TestHash_StableAndSensitive(t *testing.T) {
	a := frozenFixture(t)
	b := frozenFixture(t)

	hashA, err := a.Hash()
	require.NoError(t, err)
	hashB, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB)

	c := NewRelationships()
	require.NoError(t, c.AddCall("foo", "bar"))
	require.NoError(t, c.Freeze())
	hashC, err := c.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashC)
}

func TestFromJSON_Roundtrip(t *testing.T) {
	r := frozenFixture(t)

	data, err := r.ToJSON()
	require.NoError(t, err)

	s, err := FromJSON(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"bar", "baz"}, s.CallGraph["foo"])
	assert.Equal(t, "Circle", s.Inheritance["Circle"].TypeName)
	assert.Equal(t, "Shape", s.Inheritance["Circle"].TraitName)
	assert.Equal(t, "main.rs", s.Functions["foo"].FilePath)
}

func TestFromJSON_RejectsWrongSchema(t *testing.T) {
	r := frozenFixture(t)

	data, err := r.ToJSON()
	require.NoError(t, err)
	doc := strings.Replace(string(data), `"schema_version": "`+SchemaVersion+`"`, `"schema_version": "0.9"`, 1)

	_, err = FromJSON([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaVersion)
}

func TestFromJSON_RejectsGarbage(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	require.Error(t, err)
}
