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
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestIndex(qualifiedNames ...string) *DeclIndex {
	idx := NewDeclIndex()
	facts := make([]FunctionFact, 0, len(qualifiedNames))
	for _, qn := range qualifiedNames {
		facts = append(facts, FunctionFact{QualifiedName: qn})
	}
	idx.AddFunctions(facts)
	idx.Freeze()
	return idx
}

func TestResolver_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		declared []string
		ref      CallRef
		want     string
	}{
		{
			name: "path reference used verbatim",
			ref:  CallRef{Name: "std::mem::drop", Kind: RefPath},
			want: "std::mem::drop",
		},
		{
			name: "associated function path",
			ref:  CallRef{Name: "String::new", Kind: RefPath},
			want: "String::new",
		},
		{
			name: "self path normalized to enclosing type",
			ref:  CallRef{Name: "Self::new", Kind: RefPath, EnclosingType: "Foo"},
			want: "Foo::new",
		},
		{
			name: "self path with module prefix",
			ref: CallRef{
				Name:          "Self::new",
				Kind:          RefPath,
				ModulePath:    []string{"models"},
				EnclosingType: "Foo",
			},
			want: "models::Foo::new",
		},
		{
			name: "self path outside impl passes through",
			ref:  CallRef{Name: "Self::new", Kind: RefPath},
			want: "Self::new",
		},
		{
			name: "method on self with enclosing type",
			ref: CallRef{
				Name:           "helper",
				Kind:           RefMethod,
				EnclosingType:  "MyStruct",
				ReceiverIsSelf: true,
			},
			want: "MyStruct::helper",
		},
		{
			name: "method on self inside module",
			ref: CallRef{
				Name:           "area",
				Kind:           RefMethod,
				ModulePath:     []string{"geometry"},
				EnclosingType:  "Circle",
				ReceiverIsSelf: true,
			},
			want: "geometry::Circle::area",
		},
		{
			name: "method on other receiver stays bare",
			ref:  CallRef{Name: "len", Kind: RefMethod},
			want: "len",
		},
		{
			name: "method on self outside impl stays bare",
			ref:  CallRef{Name: "len", Kind: RefMethod, ReceiverIsSelf: true},
			want: "len",
		},
		{
			name:     "direct call to declared sibling",
			declared: []string{"helper"},
			ref:      CallRef{Name: "helper", Kind: RefDirect},
			want:     "helper",
		},
		{
			name:     "direct call qualified by module scope",
			declared: []string{"geometry::helper"},
			ref:      CallRef{Name: "helper", Kind: RefDirect, ModulePath: []string{"geometry"}},
			want:     "geometry::helper",
		},
		{
			name:     "direct call to undeclared name stays bare",
			declared: []string{"other"},
			ref:      CallRef{Name: "helper", Kind: RefDirect, ModulePath: []string{"geometry"}},
			want:     "helper",
		},
		{
			name:     "direct call does not cross module scopes",
			declared: []string{"other_mod::helper"},
			ref:      CallRef{Name: "helper", Kind: RefDirect, ModulePath: []string{"geometry"}},
			want:     "helper",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newTestIndex(tt.declared...))
			assert.Equal(t, tt.want, r.Resolve(tt.ref))
		})
	}
}

func TestResolver_Deterministic(t *testing.T) {
	r := NewResolver(newTestIndex("helper"))
	ref := CallRef{Name: "helper", Kind: RefDirect}

	first := r.Resolve(ref)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve(ref))
	}
}

func TestDeclIndex_SkipsMethods(t *testing.T) {
	idx := NewDeclIndex()
	idx.AddFunctions([]FunctionFact{
		{QualifiedName: "free_fn", IsMethod: false},
		{QualifiedName: "Type::method", IsMethod: true},
	})
	idx.Freeze()

	assert.True(t, idx.HasFreeFunction("free_fn"))
	assert.False(t, idx.HasFreeFunction("Type::method"))
	assert.Equal(t, 1, idx.Len())
}

func TestDeclIndex_FrozenRejectsWrites(t *testing.T) {
	idx := NewDeclIndex()
	idx.Freeze()
	idx.AddFunctions([]FunctionFact{{QualifiedName: "late"}})

	assert.False(t, idx.HasFreeFunction("late"))
}
