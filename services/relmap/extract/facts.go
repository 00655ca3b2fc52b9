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

// FunctionFact records a function-like declaration found during
// traversal. Immutable once emitted.
type FunctionFact struct {
	// Name is the simple (unqualified) name.
	Name string

	// QualifiedName is the name composed via Context.Qualify.
	QualifiedName string

	// IsMethod is true for functions declared inside an impl block or
	// a trait definition.
	IsMethod bool

	// IsPublic is true when the declaration carries a bare `pub`
	// visibility modifier.
	IsPublic bool

	// ParentType is the enclosing impl type, or "".
	ParentType string

	// ParentTrait is the trait being implemented (for trait impl
	// methods) or the enclosing trait definition (for default
	// methods), or "".
	ParentTrait string

	// FilePath identifies the source file.
	FilePath string
}

// ImplFact records an impl block or a trait definition.
type ImplFact struct {
	// TypeName is the implemented type. For trait definitions it
	// holds the trait's own name.
	TypeName string

	// TraitName is the implemented trait, or "" for inherent impls.
	// For trait definitions it equals the trait's own name.
	TraitName string

	// Methods lists method names declared in the block, in source
	// order.
	Methods []string

	// Bounds lists generic trait-bound descriptions found on the
	// block's type parameters (e.g. "T: Display").
	Bounds []string

	// Supertraits lists declared supertraits. Only populated for
	// trait definitions.
	Supertraits []string

	// IsTraitDef marks a trait definition as opposed to an impl
	// block.
	IsTraitDef bool
}

// RefKind classifies how a call site names its target.
type RefKind int

const (
	// RefDirect is a call through a bare identifier: foo().
	RefDirect RefKind = iota

	// RefMethod is a receiver-based method call: x.foo().
	RefMethod

	// RefPath is an explicitly path-qualified call: a::b::foo() or
	// Type::foo().
	RefPath
)

// String returns the kind name for logging.
func (k RefKind) String() string {
	switch k {
	case RefDirect:
		return "direct"
	case RefMethod:
		return "method"
	case RefPath:
		return "path"
	default:
		return "unknown"
	}
}

// CallRef is an unresolved call-site reference plus the scope it was
// seen in. The Resolver turns it into a best-effort qualified callee.
type CallRef struct {
	// Name is the textual reference: a bare identifier, a method
	// name, or a joined path such as "std::mem::drop".
	Name string

	// Kind is how the call site names its target.
	Kind RefKind

	// ModulePath is the module path active at the call site.
	ModulePath []string

	// EnclosingType is the impl type active at the call site, or "".
	EnclosingType string

	// ReceiverIsSelf is true for method calls whose receiver is the
	// literal `self`.
	ReceiverIsSelf bool
}

// RawCall pairs a call reference with the function it occurred in.
type RawCall struct {
	// CallerQN is the qualified name of the enclosing function, or a
	// pseudo-caller for module-level calls.
	CallerQN string

	// Ref is the unresolved reference.
	Ref CallRef
}

// FileFacts is everything extracted from one file in pass one.
type FileFacts struct {
	FilePath  string
	Functions []FunctionFact
	Impls     []ImplFact
	Calls     []RawCall
}
