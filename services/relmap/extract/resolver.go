// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extract

import "strings"

// DeclIndex is the read-only set of declarations gathered in pass one,
// consulted by the Resolver in pass two.
//
// Thread Safety: immutable after Freeze; safe for concurrent reads.
type DeclIndex struct {
	freeFunctions map[string]struct{}
	frozen        bool
}

// NewDeclIndex creates an empty index.
func NewDeclIndex() *DeclIndex {
	return &DeclIndex{freeFunctions: make(map[string]struct{})}
}

// AddFunctions records the free functions from a file's facts. Methods
// are skipped: receiver-based resolution never consults the index.
func (d *DeclIndex) AddFunctions(facts []FunctionFact) {
	if d.frozen {
		return
	}
	for _, f := range facts {
		if !f.IsMethod {
			d.freeFunctions[f.QualifiedName] = struct{}{}
		}
	}
}

// Freeze marks the index immutable. Must be called before handing it
// to concurrent resolvers.
func (d *DeclIndex) Freeze() { d.frozen = true }

// HasFreeFunction reports whether a free function with the given
// qualified name was declared anywhere in the corpus.
func (d *DeclIndex) HasFreeFunction(qualifiedName string) bool {
	_, ok := d.freeFunctions[qualifiedName]
	return ok
}

// Len returns the number of indexed free functions.
func (d *DeclIndex) Len() int { return len(d.freeFunctions) }

// Resolver converts call-site references into best-effort qualified
// callee names.
//
// Description:
//
//	Resolve is total and deterministic: it never fails, and the same
//	reference under the same index always yields the same name.
//	Unresolvable references degrade to the bare simple name, which is
//	a legitimate graph key (absence of function metadata under that
//	key is what signals "unresolved" downstream).
//
// Thread Safety:
//
//	Safe for concurrent use once the index is frozen.
type Resolver struct {
	decls *DeclIndex
}

// NewResolver creates a Resolver over a frozen declaration index.
func NewResolver(decls *DeclIndex) *Resolver {
	return &Resolver{decls: decls}
}

// Resolve applies, in order:
//
//  1. Path-qualified references are used verbatim after normalizing a
//     leading `Self` segment to the enclosing type.
//  2. A method call on `self` with an enclosing type active resolves
//     to that type's method.
//  3. A bare identifier that matches a free function declared in the
//     same module scope resolves to that function's qualified name.
//  4. Otherwise the bare name is returned as-is.
func (r *Resolver) Resolve(ref CallRef) string {
	switch ref.Kind {
	case RefPath:
		return r.normalizePath(ref)
	case RefMethod:
		if ref.ReceiverIsSelf && ref.EnclosingType != "" {
			return joinPath(ref.ModulePath, ref.EnclosingType, ref.Name)
		}
		return ref.Name
	case RefDirect:
		candidate := joinPath(ref.ModulePath, ref.Name)
		if r.decls != nil && r.decls.HasFreeFunction(candidate) {
			return candidate
		}
		return ref.Name
	default:
		return ref.Name
	}
}

// normalizePath rewrites a leading `Self` segment to the enclosing
// type when one is active; everything else passes through verbatim.
func (r *Resolver) normalizePath(ref CallRef) string {
	if ref.EnclosingType == "" {
		return ref.Name
	}
	segments := strings.Split(ref.Name, PathSeparator)
	if len(segments) > 1 && segments[0] == "Self" {
		segments[0] = joinPath(ref.ModulePath, ref.EnclosingType)
		return strings.Join(segments, PathSeparator)
	}
	return ref.Name
}

// joinPath joins module segments and trailing names, skipping empties.
func joinPath(modulePath []string, names ...string) string {
	parts := make([]string, 0, len(modulePath)+len(names))
	parts = append(parts, modulePath...)
	for _, n := range names {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, PathSeparator)
}
