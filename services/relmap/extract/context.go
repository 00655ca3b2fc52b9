// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract walks Rust syntax trees and emits raw relationship
// facts: function declarations, implementation records, and unresolved
// call references. Resolution of references into call edges happens in
// a second pass once declarations from every file are visible.
package extract

import "strings"

// PathSeparator joins segments of a qualified name.
const PathSeparator = "::"

// Context is the per-file scope state threaded through a traversal.
//
// Description:
//
//	Context tracks the nested lexical scope (module path, enclosing
//	type, enclosing trait, trait being implemented, enclosing function)
//	so declarations can be recorded under fully qualified names. One
//	Context is created per file and discarded afterwards; it is never
//	shared across files or goroutines.
//
//	Every Enter* method returns a restore function that must be called
//	when leaving the scope, usually via defer. Each Enter*/restore pair
//	adjusts an internal depth counter; a nonzero depth after a full
//	traversal indicates an extractor bug and is reported as an
//	invariant violation by the caller.
type Context struct {
	modulePath []string

	currentType     string
	currentTrait    string
	implTrait       string
	currentFunction string

	depth int
}

// NewContext creates an empty per-file context.
func NewContext() *Context {
	return &Context{}
}

// Qualify composes a fully qualified name for a new declaration from
// the current module path, the current type (when inside an impl
// block), and the simple name.
//
// Example: module path ["geometry"], current type "Circle", name
// "area" → "geometry::Circle::area".
func (c *Context) Qualify(name string) string {
	parts := make([]string, 0, len(c.modulePath)+2)
	parts = append(parts, c.modulePath...)
	if c.currentType != "" {
		parts = append(parts, c.currentType)
	}
	parts = append(parts, name)
	return strings.Join(parts, PathSeparator)
}

// EnterModule pushes a module segment. The returned function pops it.
func (c *Context) EnterModule(name string) func() {
	c.modulePath = append(c.modulePath, name)
	c.depth++
	return func() {
		c.modulePath = c.modulePath[:len(c.modulePath)-1]
		c.depth--
	}
}

// EnterImpl establishes an implementation-block scope: the type being
// implemented and, for trait impls, the trait. traitName is empty for
// inherent impls. The returned function restores the previous scope.
func (c *Context) EnterImpl(typeName, traitName string) func() {
	prevType, prevImpl := c.currentType, c.implTrait
	c.currentType = typeName
	c.implTrait = traitName
	c.depth++
	return func() {
		c.currentType, c.implTrait = prevType, prevImpl
		c.depth--
	}
}

// EnterTrait establishes a trait-definition scope.
func (c *Context) EnterTrait(name string) func() {
	prev := c.currentTrait
	c.currentTrait = name
	c.depth++
	return func() {
		c.currentTrait = prev
		c.depth--
	}
}

// EnterFunction establishes a function scope under the given qualified
// name. Nested function items restore the outer function on exit.
func (c *Context) EnterFunction(qualifiedName string) func() {
	prev := c.currentFunction
	c.currentFunction = qualifiedName
	c.depth++
	return func() {
		c.currentFunction = prev
		c.depth--
	}
}

// ModulePath returns a copy of the current module path segments.
func (c *Context) ModulePath() []string {
	out := make([]string, len(c.modulePath))
	copy(out, c.modulePath)
	return out
}

// CurrentType returns the enclosing impl type, or "".
func (c *Context) CurrentType() string { return c.currentType }

// CurrentTrait returns the enclosing trait definition, or "".
func (c *Context) CurrentTrait() string { return c.currentTrait }

// ImplTrait returns the trait being implemented, or "".
func (c *Context) ImplTrait() string { return c.implTrait }

// CurrentFunction returns the enclosing function's qualified name, or
// "" at module level.
func (c *Context) CurrentFunction() string { return c.currentFunction }

// Depth returns the current scope nesting depth. Zero after a
// well-formed traversal.
func (c *Context) Depth() int { return c.depth }

// PseudoCaller returns the synthetic caller name used for call
// expressions encountered outside any function scope, so module-level
// calls are still represented in the graph.
func PseudoCaller(filePath string) string {
	return "<file:" + filePath + ">"
}
