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

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/relmap/services/relmap/ast"
)

var tracer = otel.Tracer("aleutian.relmap.extract")

// ErrInvariantViolation signals a defect in the extractor itself, such
// as a scope depth mismatch after a traversal. It aborts only the
// affected file, never the run, and is reported separately from parse
// failures because it indicates a bug rather than bad input.
var ErrInvariantViolation = errors.New("extractor invariant violation")

// nodeKind is the closed set of node categories the traversal
// dispatches on. Unrecognized grammar nodes map to kindOther and are
// recursed generically; the dispatch switch itself is exhaustive over
// this set and asserts on anything else.
type nodeKind int

const (
	kindSource nodeKind = iota
	kindFunction
	kindImpl
	kindTrait
	kindModule
	kindCall
	kindClosure
	kindOther
)

// classifyNode maps a tree-sitter grammar node type to a nodeKind.
func classifyNode(nodeType string) nodeKind {
	switch nodeType {
	case "source_file":
		return kindSource
	case "function_item":
		return kindFunction
	case "impl_item":
		return kindImpl
	case "trait_item":
		return kindTrait
	case "mod_item":
		return kindModule
	case "call_expression":
		return kindCall
	case "closure_expression":
		return kindClosure
	default:
		return kindOther
	}
}

// Extractor walks a parsed file once and emits raw facts.
//
// Description:
//
//	One depth-first pre-order traversal per file. Context-establishing
//	nodes (modules, impl blocks, trait definitions, functions) push
//	scope before recursing into children and restore it afterwards.
//	Call-like expressions anywhere inside a body — arguments, closure
//	bodies, match arms, loop bodies — produce one unresolved CallRef
//	attributed to the nearest enclosing named function, or to a
//	per-file pseudo-caller at module level. Closures never receive
//	their own function record.
//
// Thread Safety:
//
//	Extractor is stateless; a single instance may extract multiple
//	files concurrently.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile traverses one parse tree and returns its facts.
//
// Returns an error wrapping ErrInvariantViolation if the scope stack
// is unbalanced after the traversal; the caller should abort this
// file's contribution and surface the defect loudly.
func (e *Extractor) ExtractFile(goCtx context.Context, tree *ast.ParseTree) (*FileFacts, error) {
	_, span := tracer.Start(goCtx, "extract.file",
		trace.WithAttributes(attribute.String("file_path", tree.FilePath)))
	defer span.End()

	facts := &FileFacts{FilePath: tree.FilePath}
	w := &walker{
		scope: NewContext(),
		tree:  tree,
		facts: facts,
	}

	if err := w.walk(tree.Root); err != nil {
		return nil, err
	}
	if d := w.scope.Depth(); d != 0 {
		return nil, fmt.Errorf("%w: scope depth %d after traversing %s",
			ErrInvariantViolation, d, tree.FilePath)
	}

	span.SetAttributes(
		attribute.Int("functions", len(facts.Functions)),
		attribute.Int("impls", len(facts.Impls)),
		attribute.Int("calls", len(facts.Calls)),
	)
	return facts, nil
}

// walker holds the per-file traversal state.
type walker struct {
	scope *Context
	tree  *ast.ParseTree
	facts *FileFacts
}

func (w *walker) walk(node *sitter.Node) error {
	if node == nil {
		return nil
	}

	kind := classifyNode(node.Type())
	switch kind {
	case kindSource:
		return w.walkChildren(node)
	case kindFunction:
		return w.visitFunction(node)
	case kindImpl:
		return w.visitImpl(node)
	case kindTrait:
		return w.visitTrait(node)
	case kindModule:
		return w.visitModule(node)
	case kindCall:
		return w.visitCall(node)
	case kindClosure:
		// Calls inside closures belong to the enclosing function.
		return w.walkChildren(node)
	case kindOther:
		return w.walkChildren(node)
	default:
		return fmt.Errorf("%w: unhandled node kind %d (%s)", ErrInvariantViolation, kind, node.Type())
	}
}

func (w *walker) walkChildren(node *sitter.Node) error {
	for i := 0; i < int(node.ChildCount()); i++ {
		if err := w.walk(node.Child(i)); err != nil {
			return err
		}
	}
	return nil
}

// visitFunction handles free functions, impl methods, and trait
// default methods (all function_item in the grammar; the scope decides
// which one this is).
func (w *walker) visitFunction(node *sitter.Node) error {
	name := w.tree.Text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}

	qualified := w.scope.Qualify(name)
	parentTrait := w.scope.ImplTrait()
	if parentTrait == "" {
		parentTrait = w.scope.CurrentTrait()
	}

	w.facts.Functions = append(w.facts.Functions, FunctionFact{
		Name:          name,
		QualifiedName: qualified,
		IsMethod:      w.scope.CurrentType() != "" || w.scope.CurrentTrait() != "",
		IsPublic:      isPublic(node, w.tree),
		ParentType:    w.scope.CurrentType(),
		ParentTrait:   parentTrait,
		FilePath:      w.tree.FilePath,
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	restore := w.scope.EnterFunction(qualified)
	defer restore()
	return w.walk(body)
}

// visitImpl handles both inherent impls and trait impls.
func (w *walker) visitImpl(node *sitter.Node) error {
	typeName := typeText(node.ChildByFieldName("type"), w.tree)
	if typeName == "" {
		typeName = "Unknown"
	}
	traitName := typeText(node.ChildByFieldName("trait"), w.tree)

	w.facts.Impls = append(w.facts.Impls, ImplFact{
		TypeName:  typeName,
		TraitName: traitName,
		Methods:   methodNames(node.ChildByFieldName("body"), w.tree),
		Bounds:    typeParamBounds(node.ChildByFieldName("type_parameters"), w.tree),
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	restore := w.scope.EnterImpl(typeName, traitName)
	defer restore()
	return w.walk(body)
}

// visitTrait records the trait definition (with supertraits and
// declared method names) and recurses into default method bodies.
func (w *walker) visitTrait(node *sitter.Node) error {
	name := w.tree.Text(node.ChildByFieldName("name"))
	if name == "" {
		return nil
	}

	w.facts.Impls = append(w.facts.Impls, ImplFact{
		TypeName:    name,
		TraitName:   name,
		Methods:     methodNames(node.ChildByFieldName("body"), w.tree),
		Supertraits: supertraits(node.ChildByFieldName("bounds"), w.tree),
		IsTraitDef:  true,
	})

	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	restore := w.scope.EnterTrait(name)
	defer restore()
	return w.walk(body)
}

// visitModule only descends into inline modules; `mod foo;` external
// declarations have no body and resolve before this layer runs.
func (w *walker) visitModule(node *sitter.Node) error {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	name := w.tree.Text(node.ChildByFieldName("name"))
	if name == "" {
		return w.walk(body)
	}
	restore := w.scope.EnterModule(name)
	defer restore()
	return w.walk(body)
}

// visitCall records one unresolved reference for this call site, then
// recurses into children so nested and chained calls are found too.
func (w *walker) visitCall(node *sitter.Node) error {
	if ref, ok := w.classifyCallee(node.ChildByFieldName("function")); ok {
		caller := w.scope.CurrentFunction()
		if caller == "" {
			caller = PseudoCaller(w.tree.FilePath)
		}
		ref.ModulePath = w.scope.ModulePath()
		ref.EnclosingType = w.scope.CurrentType()
		w.facts.Calls = append(w.facts.Calls, RawCall{CallerQN: caller, Ref: ref})
	}
	return w.walkChildren(node)
}

// classifyCallee inspects the function position of a call expression.
// Returns false for callee shapes that carry no usable name (e.g. an
// immediately-invoked closure).
func (w *walker) classifyCallee(fn *sitter.Node) (CallRef, bool) {
	if fn == nil {
		return CallRef{}, false
	}
	switch fn.Type() {
	case "identifier":
		return CallRef{Name: w.tree.Text(fn), Kind: RefDirect}, true
	case "scoped_identifier", "scoped_type_identifier":
		return CallRef{Name: pathText(fn, w.tree), Kind: RefPath}, true
	case "generic_function":
		// Turbofish: helper::<i32>() — classify the inner function.
		return w.classifyCallee(fn.ChildByFieldName("function"))
	case "field_expression":
		field := w.tree.Text(fn.ChildByFieldName("field"))
		if field == "" {
			return CallRef{}, false
		}
		value := fn.ChildByFieldName("value")
		return CallRef{
			Name:           field,
			Kind:           RefMethod,
			ReceiverIsSelf: value != nil && value.Type() == "self",
		}, true
	default:
		return CallRef{}, false
	}
}

// isPublic reports whether a declaration carries a bare `pub`
// modifier. Restricted visibility (pub(crate), pub(super)) does not
// count as public.
func isPublic(node *sitter.Node, tree *ast.ParseTree) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "visibility_modifier" {
			return tree.Text(child) == "pub"
		}
	}
	return false
}

// pathText renders a path node as "::"-joined identifier segments,
// dropping generic arguments (Vec::<i32>::new → Vec::new).
func pathText(node *sitter.Node, tree *ast.ParseTree) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "scoped_identifier", "scoped_type_identifier":
		path := pathText(node.ChildByFieldName("path"), tree)
		name := tree.Text(node.ChildByFieldName("name"))
		if path == "" {
			return name
		}
		return path + PathSeparator + name
	case "generic_type":
		return pathText(node.ChildByFieldName("type"), tree)
	case "bracketed_type":
		if node.NamedChildCount() > 0 {
			return pathText(node.NamedChild(0), tree)
		}
		return ""
	default:
		return tree.Text(node)
	}
}

// typeText renders a type position as a name, dropping generic
// arguments so `Foo<T>` and `Foo` key identically.
func typeText(node *sitter.Node, tree *ast.ParseTree) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "type_identifier", "identifier":
		return tree.Text(node)
	case "scoped_type_identifier", "scoped_identifier":
		return pathText(node, tree)
	case "generic_type":
		return typeText(node.ChildByFieldName("type"), tree)
	case "reference_type":
		return typeText(node.ChildByFieldName("type"), tree)
	default:
		text := tree.Text(node)
		if i := strings.IndexByte(text, '<'); i > 0 {
			return strings.TrimSpace(text[:i])
		}
		return text
	}
}

// methodNames collects function names declared directly in an impl or
// trait body, in source order. Trait method signatures without bodies
// count too.
func methodNames(body *sitter.Node, tree *ast.ParseTree) []string {
	if body == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		switch child.Type() {
		case "function_item", "function_signature_item":
			if name := tree.Text(child.ChildByFieldName("name")); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// supertraits extracts trait names from a trait_bounds node
// (`trait Animal: Named + Aged`).
func supertraits(bounds *sitter.Node, tree *ast.ParseTree) []string {
	if bounds == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(bounds.NamedChildCount()); i++ {
		child := bounds.NamedChild(i)
		switch child.Type() {
		case "type_identifier", "scoped_type_identifier", "generic_type":
			if name := typeText(child, tree); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// typeParamBounds collects textual bound descriptions from an impl
// block's type parameter list (`impl<T: Display> ...` → "T: Display").
func typeParamBounds(params *sitter.Node, tree *ast.ParseTree) []string {
	if params == nil {
		return nil
	}
	var bounds []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		child := params.NamedChild(i)
		if child.Type() == "constrained_type_parameter" {
			bounds = append(bounds, tree.Text(child))
		}
	}
	return bounds
}
