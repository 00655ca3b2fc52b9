// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph aggregates extraction facts into the final
// relationship graphs: a forward call graph, a reverse usage graph
// derived by inversion, a type/trait implementation table, and
// per-function metadata.
package graph

import (
	"fmt"
	"sort"
)

// FunctionRecord is the per-function metadata kept for every
// discovered declaration.
type FunctionRecord struct {
	Name               string `json:"name"`
	FullyQualifiedName string `json:"fully_qualified_name"`
	IsMethod           bool   `json:"is_method"`
	IsPublic           bool   `json:"is_public"`
	ParentType         string `json:"parent_type,omitempty"`
	ParentTrait        string `json:"parent_trait,omitempty"`
	FilePath           string `json:"file_path"`
}

// ImplementationRecord describes one entry in the inheritance table:
// an inherent impl, a trait impl, or a trait definition. For trait
// definitions TypeName holds the trait's own name and ParentTraits
// lists its supertraits.
type ImplementationRecord struct {
	TraitName    string   `json:"trait_name,omitempty"`
	TypeName     string   `json:"type_name"`
	Methods      []string `json:"methods"`
	Bounds       []string `json:"bounds,omitempty"`
	ParentTraits []string `json:"parent_traits,omitempty"`
	IsTraitDef   bool     `json:"is_trait_def,omitempty"`
}

// ParseFailure identifies a file that could not be parsed. The run
// continues without it.
type ParseFailure struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Message  string `json:"message"`
}

// InvariantFailure identifies a file whose traversal was aborted by an
// extractor defect. Kept separate from parse failures because it
// signals a bug, not bad input.
type InvariantFailure struct {
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// implKey identifies an accumulating implementation entry.
type implKey struct {
	typeName   string
	traitName  string
	isTraitDef bool
}

// Relationships is the accumulating and, after Freeze, final result of
// a run.
//
// Description:
//
//	All inserts are idempotent: re-adding an existing call edge or an
//	identical implementation record is a no-op. Function records use a
//	documented last-declaration-wins policy on key collision. The usage
//	graph is never mutated directly; Freeze derives it by inverting the
//	call graph, which makes the inversion law hold by construction.
//
// Thread Safety:
//
//	Not synchronized. The builder merges per-file facts from a single
//	goroutine; after Freeze the value is immutable and safe to share.
type Relationships struct {
	callGraph map[string]map[string]struct{}
	functions map[string]FunctionRecord
	impls     map[implKey]*ImplementationRecord
	implOrder []implKey

	parseFailures     []ParseFailure
	invariantFailures []InvariantFailure

	// Derived at Freeze.
	usageGraph  map[string]map[string]struct{}
	inheritance map[string]ImplementationRecord
	frozen      bool
}

// NewRelationships creates an empty aggregate.
func NewRelationships() *Relationships {
	return &Relationships{
		callGraph: make(map[string]map[string]struct{}),
		functions: make(map[string]FunctionRecord),
		impls:     make(map[implKey]*ImplementationRecord),
	}
}

// AddCall inserts a caller→callee edge. Inserting an existing pair is
// a no-op.
func (r *Relationships) AddCall(caller, callee string) error {
	if r.frozen {
		return ErrGraphFrozen
	}
	if caller == "" || callee == "" {
		return fmt.Errorf("%w: empty caller or callee", ErrInvalidEdge)
	}
	set, ok := r.callGraph[caller]
	if !ok {
		set = make(map[string]struct{})
		r.callGraph[caller] = set
	}
	set[callee] = struct{}{}
	return nil
}

// AddFunction records function metadata. A colliding qualified name is
// replaced (last declaration wins), never duplicated.
func (r *Relationships) AddFunction(rec FunctionRecord) error {
	if r.frozen {
		return ErrGraphFrozen
	}
	if rec.FullyQualifiedName == "" {
		return fmt.Errorf("%w: function record without qualified name", ErrInvalidEdge)
	}
	r.functions[rec.FullyQualifiedName] = rec
	return nil
}

// AddImplementation merges an implementation record into the table.
// Records for the same (type, trait) pair union their method, bound,
// and supertrait lists, so re-inserting identical content is a no-op.
func (r *Relationships) AddImplementation(rec ImplementationRecord) error {
	if r.frozen {
		return ErrGraphFrozen
	}
	key := implKey{typeName: rec.TypeName, traitName: rec.TraitName, isTraitDef: rec.IsTraitDef}
	existing, ok := r.impls[key]
	if !ok {
		stored := rec
		stored.Methods = append([]string(nil), rec.Methods...)
		stored.Bounds = append([]string(nil), rec.Bounds...)
		stored.ParentTraits = append([]string(nil), rec.ParentTraits...)
		r.impls[key] = &stored
		r.implOrder = append(r.implOrder, key)
		return nil
	}
	existing.Methods = unionOrdered(existing.Methods, rec.Methods)
	existing.Bounds = unionOrdered(existing.Bounds, rec.Bounds)
	existing.ParentTraits = unionOrdered(existing.ParentTraits, rec.ParentTraits)
	return nil
}

// AddParseFailure records a skipped file.
func (r *Relationships) AddParseFailure(f ParseFailure) {
	if r.frozen {
		return
	}
	r.parseFailures = append(r.parseFailures, f)
}

// AddInvariantFailure records a file aborted by an extractor defect.
func (r *Relationships) AddInvariantFailure(f InvariantFailure) {
	if r.frozen {
		return
	}
	r.invariantFailures = append(r.invariantFailures, f)
}

// Freeze derives the usage graph and the final inheritance table and
// marks the value immutable. Calling Freeze twice is an error.
//
// Inheritance keying policy (deterministic):
//   - Trait definitions are keyed by the trait's own name.
//   - Inherent impls are keyed by the bare type name.
//   - Trait impls are keyed "Type::Trait". A type with exactly one
//     trait impl and no inherent impl is additionally reachable under
//     its bare name.
//   - On a key collision, impl records take precedence over trait
//     definitions.
//
// Freeze also propagates supertraits recorded on trait definitions
// onto every impl record of that trait.
func (r *Relationships) Freeze() error {
	if r.frozen {
		return ErrGraphFrozen
	}

	// Usage graph: exact inversion of the call graph.
	r.usageGraph = make(map[string]map[string]struct{})
	for caller, callees := range r.callGraph {
		for callee := range callees {
			set, ok := r.usageGraph[callee]
			if !ok {
				set = make(map[string]struct{})
				r.usageGraph[callee] = set
			}
			set[caller] = struct{}{}
		}
	}

	r.inheritance = r.finalizeInheritance()
	r.frozen = true
	return nil
}

func (r *Relationships) finalizeInheritance() map[string]ImplementationRecord {
	supertraitsByTrait := make(map[string][]string)
	traitImplCount := make(map[string]int)
	hasInherent := make(map[string]bool)

	for key, rec := range r.impls {
		if key.isTraitDef {
			supertraitsByTrait[key.traitName] = rec.ParentTraits
			continue
		}
		if key.traitName == "" {
			hasInherent[key.typeName] = true
		} else {
			traitImplCount[key.typeName]++
		}
	}

	final := make(map[string]ImplementationRecord)

	// Trait definitions first so impl records win key collisions.
	for _, key := range r.implOrder {
		if !key.isTraitDef {
			continue
		}
		final[key.traitName] = *r.impls[key]
	}

	for _, key := range r.implOrder {
		if key.isTraitDef {
			continue
		}
		rec := *r.impls[key]
		if rec.TraitName != "" {
			if parents, ok := supertraitsByTrait[rec.TraitName]; ok {
				rec.ParentTraits = append([]string(nil), parents...)
			}
			final[rec.TypeName+pathSep+rec.TraitName] = rec
			if traitImplCount[rec.TypeName] == 1 && !hasInherent[rec.TypeName] {
				final[rec.TypeName] = rec
			}
			continue
		}
		final[rec.TypeName] = rec
	}

	return final
}

// Frozen reports whether Freeze has been called.
func (r *Relationships) Frozen() bool { return r.frozen }

// Callees returns the sorted callees of a function.
func (r *Relationships) Callees(fn string) []string {
	return sortedKeys(r.callGraph[fn])
}

// Callers returns the sorted callers of a function. Empty until
// Freeze.
func (r *Relationships) Callers(fn string) []string {
	return sortedKeys(r.usageGraph[fn])
}

// HasEdge reports whether caller→callee exists in the call graph.
func (r *Relationships) HasEdge(caller, callee string) bool {
	_, ok := r.callGraph[caller][callee]
	return ok
}

// CallGraph returns the forward graph. Callers must treat it as
// read-only.
func (r *Relationships) CallGraph() map[string]map[string]struct{} { return r.callGraph }

// UsageGraph returns the derived reverse graph. Nil until Freeze.
// Callers must treat it as read-only.
func (r *Relationships) UsageGraph() map[string]map[string]struct{} { return r.usageGraph }

// Inheritance returns the final implementation table. Nil until
// Freeze.
func (r *Relationships) Inheritance() map[string]ImplementationRecord { return r.inheritance }

// Functions returns the function metadata map. Callers must treat it
// as read-only.
func (r *Relationships) Functions() map[string]FunctionRecord { return r.functions }

// ParseFailures returns the per-file parse failure list.
func (r *Relationships) ParseFailures() []ParseFailure { return r.parseFailures }

// InvariantFailures returns files aborted by extractor defects.
func (r *Relationships) InvariantFailures() []InvariantFailure { return r.invariantFailures }

// FunctionCount returns the number of recorded functions.
func (r *Relationships) FunctionCount() int { return len(r.functions) }

// EdgeCount returns the number of call edges.
func (r *Relationships) EdgeCount() int {
	n := 0
	for _, callees := range r.callGraph {
		n += len(callees)
	}
	return n
}

const pathSep = "::"

// unionOrdered appends the elements of add missing from base,
// preserving first-seen order.
func unionOrdered(base, add []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if _, ok := seen[s]; !ok {
			base = append(base, s)
			seen[s] = struct{}{}
		}
	}
	return base
}

// sortedKeys returns the keys of a set in sorted order.
func sortedKeys(set map[string]struct{}) []string {
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
