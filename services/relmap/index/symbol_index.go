// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index provides fast lookup of function records by qualified
// name, simple name, or file, so query surfaces can accept "area" as
// shorthand for "geometry::Circle::area".
package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/relmap/services/relmap/graph"
)

// IndexStats contains statistics about the symbol index.
type IndexStats struct {
	// TotalFunctions is the number of indexed function records.
	TotalFunctions int

	// UniqueSimpleNames is the number of distinct simple names.
	UniqueSimpleNames int

	// FileCount is the number of distinct source files.
	FileCount int
}

// SymbolIndex provides O(1) lookups of function records.
//
// Thread Safety:
//
//	SymbolIndex is safe for concurrent use. Multiple goroutines can
//	call any combination of methods simultaneously.
type SymbolIndex struct {
	mu sync.RWMutex

	// Primary index: qualified name → record.
	byQualified map[string]graph.FunctionRecord

	// Secondary indexes.
	bySimple map[string][]string
	byFile   map[string][]string
}

// NewSymbolIndex creates an empty index.
func NewSymbolIndex() *SymbolIndex {
	return &SymbolIndex{
		byQualified: make(map[string]graph.FunctionRecord),
		bySimple:    make(map[string][]string),
		byFile:      make(map[string][]string),
	}
}

// FromRelationships builds an index over a frozen result's functions.
func FromRelationships(rels *graph.Relationships) *SymbolIndex {
	idx := NewSymbolIndex()
	for _, rec := range rels.Functions() {
		idx.Add(rec)
	}
	return idx
}

// Add inserts or replaces a record under its qualified name.
func (idx *SymbolIndex) Add(rec graph.FunctionRecord) {
	if rec.FullyQualifiedName == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.byQualified[rec.FullyQualifiedName]; !exists {
		idx.bySimple[rec.Name] = insertSorted(idx.bySimple[rec.Name], rec.FullyQualifiedName)
		idx.byFile[rec.FilePath] = insertSorted(idx.byFile[rec.FilePath], rec.FullyQualifiedName)
	}
	idx.byQualified[rec.FullyQualifiedName] = rec
}

// Get returns the record under a qualified name.
func (idx *SymbolIndex) Get(qualifiedName string) (graph.FunctionRecord, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	rec, ok := idx.byQualified[qualifiedName]
	return rec, ok
}

// Resolve maps a user-supplied name to qualified names, in order of
// preference: exact qualified match, simple-name matches, then
// "::name" suffix matches. Results are sorted.
func (idx *SymbolIndex) Resolve(name string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if _, ok := idx.byQualified[name]; ok {
		return []string{name}
	}
	if matches := idx.bySimple[name]; len(matches) > 0 {
		return append([]string(nil), matches...)
	}

	suffix := "::" + name
	var matches []string
	for qn := range idx.byQualified {
		if strings.HasSuffix(qn, suffix) {
			matches = append(matches, qn)
		}
	}
	sort.Strings(matches)
	return matches
}

// ResolveOne returns the single match for a name, or false when the
// name is unknown or ambiguous.
func (idx *SymbolIndex) ResolveOne(name string) (graph.FunctionRecord, bool) {
	matches := idx.Resolve(name)
	if len(matches) != 1 {
		return graph.FunctionRecord{}, false
	}
	return idx.Get(matches[0])
}

// ByFile returns the qualified names declared in a file, sorted.
func (idx *SymbolIndex) ByFile(filePath string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]string(nil), idx.byFile[filePath]...)
}

// Stats returns index statistics.
func (idx *SymbolIndex) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return IndexStats{
		TotalFunctions:    len(idx.byQualified),
		UniqueSimpleNames: len(idx.bySimple),
		FileCount:         len(idx.byFile),
	}
}

// insertSorted inserts s into a sorted slice unless already present.
func insertSorted(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}
