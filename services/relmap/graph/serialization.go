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
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// SchemaVersion is the serialization format version. Bump on
// incompatible changes.
const SchemaVersion = "1.0"

// SerializableRelationships is the wire form of a frozen
// Relationships value.
//
// Serialization is deterministic: set values are emitted as sorted
// arrays and encoding/json writes map keys in sorted order, so equal
// graphs produce byte-identical documents. No timestamp is included
// for the same reason.
type SerializableRelationships struct {
	SchemaVersion string                          `json:"schema_version"`
	CallGraph     map[string][]string             `json:"call_graph"`
	UsageGraph    map[string][]string             `json:"usage_graph"`
	Inheritance   map[string]ImplementationRecord `json:"inheritance"`
	Functions     map[string]FunctionRecord       `json:"functions"`
	ParseFailures []ParseFailure                  `json:"parse_failures,omitempty"`
}

// ToSerializable converts a frozen Relationships into its wire form.
func (r *Relationships) ToSerializable() (*SerializableRelationships, error) {
	if !r.frozen {
		return nil, fmt.Errorf("serialize: %w", ErrNotFrozen)
	}

	s := &SerializableRelationships{
		SchemaVersion: SchemaVersion,
		CallGraph:     setsToSortedSlices(r.callGraph),
		UsageGraph:    setsToSortedSlices(r.usageGraph),
		Inheritance:   make(map[string]ImplementationRecord, len(r.inheritance)),
		Functions:     make(map[string]FunctionRecord, len(r.functions)),
	}
	for k, v := range r.inheritance {
		s.Inheritance[k] = v
	}
	for k, v := range r.functions {
		s.Functions[k] = v
	}

	failures := append([]ParseFailure(nil), r.parseFailures...)
	sort.Slice(failures, func(i, j int) bool { return failures[i].FilePath < failures[j].FilePath })
	s.ParseFailures = failures

	return s, nil
}

// ToJSON serializes a frozen Relationships deterministically.
func (r *Relationships) ToJSON() ([]byte, error) {
	s, err := r.ToSerializable()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(s, "", "  ")
}

// Hash returns the hex SHA-256 of the deterministic serialization.
// Equal graphs hash identically regardless of build order.
func (r *Relationships) Hash() (string, error) {
	data, err := r.ToJSON()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FromJSON parses a serialized document, checking the schema version.
func FromJSON(data []byte) (*SerializableRelationships, error) {
	var s SerializableRelationships
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("deserialize: %w", err)
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: got %q, want %q", ErrSchemaVersion, s.SchemaVersion, SchemaVersion)
	}
	return &s, nil
}

func setsToSortedSlices(in map[string]map[string]struct{}) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, set := range in {
		out[k] = sortedKeys(set)
	}
	return out
}
