package typing

import (
	"errors"
	"reflect"
	"testing"

	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

func TestResolveEmptyBlockType(t *testing.T) {
	h, err := Resolve([]syntax.TypeDecl{{Name: "block", Parent: "object"}}, nil, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if ext := h.Extension("block"); ext == nil || len(ext) != 0 {
		t.Errorf("Extension(block) = %v, want empty", ext)
	}
	if len(h.Extensions()) != 4 || h.Len() != 4 {
		t.Errorf("expected 4 types and 4 extensions, got %d and %d", h.Len(), len(h.Extensions()))
	}
	want := []string{"object", "int", "number", "block"}
	if !reflect.DeepEqual(h.Types(), want) {
		t.Errorf("Types() = %v, want %v", h.Types(), want)
	}
}

func TestTypeClosure(t *testing.T) {
	declared := []syntax.TypeDecl{
		{Name: "vehicle", Parent: "object"},
		{Name: "truck", Parent: "vehicle"},
		{Name: "place", Parent: "object"},
		{Name: "city", Parent: "location"}, // location is never declared
	}
	objects := []syntax.TypedName{
		{Name: "t1", Type: "truck"},
		{Name: "v1", Type: "vehicle"},
		{Name: "p1", Type: "place"},
		{Name: "c1", Type: "city"},
		{Name: "thing", Type: "object"},
	}

	h, err := Resolve(declared, objects, nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := h.Supertypes("truck"); !reflect.DeepEqual(got, []string{"vehicle", "object"}) {
		t.Errorf("Supertypes(truck) = %v", got)
	}
	if got := h.Supertypes("object"); len(got) != 0 {
		t.Errorf("Supertypes(object) = %v, want empty", got)
	}
	if h.Parent("location") != "object" {
		t.Errorf("undeclared parent should be back-filled under object, got %q", h.Parent("location"))
	}

	for _, typ := range h.Types() {
		sup := h.Supertypes(typ)
		if typ != Object && !h.IsNumeric(typ) && (len(sup) == 0 || sup[len(sup)-1] != Object) {
			t.Errorf("Supertypes(%s) = %v should end with object", typ, sup)
		}
	}

	for _, o := range objects {
		for _, typ := range append([]string{o.Type}, h.Supertypes(o.Type)...) {
			if !contains(h.Extension(typ), o.Name) {
				t.Errorf("object %s missing from extension of %s", o.Name, typ)
			}
		}
	}

	if got := h.Extension("object"); len(got) != len(objects) {
		t.Errorf("object extension should list every object once, got %v", got)
	}
	if got := h.Extension("vehicle"); !reflect.DeepEqual(got, []string{"t1", "v1"}) {
		t.Errorf("Extension(vehicle) = %v", got)
	}
}

func TestBoundedIntegerTypes(t *testing.T) {
	h, err := Resolve(
		[]syntax.TypeDecl{{Name: "step", Parent: "int"}},
		nil,
		[]syntax.BoundDecl{{Type: "step", Lower: 1, Upper: 4}, {Type: "level", Lower: 0, Upper: 1}},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := h.Extension("step"); !reflect.DeepEqual(got, []string{"1", "2", "3", "4"}) {
		t.Errorf("Extension(step) = %v", got)
	}
	if h.Parent("level") != Int {
		t.Errorf("undeclared bounded type should sit under int, got %q", h.Parent("level"))
	}
	if iv, ok := h.Bound("level"); !ok || iv != (Interval{0, 1}) {
		t.Errorf("Bound(level) = %v, %v", iv, ok)
	}
	if !h.IsNumeric("step") || h.IsNumeric("object") {
		t.Errorf("IsNumeric classification wrong")
	}
}

func TestNumericTypesAreRoots(t *testing.T) {
	h, err := Resolve(
		[]syntax.TypeDecl{{Name: "block", Parent: "object"}, {Name: "step", Parent: "int"}, {Name: "ratio", Parent: "number"}},
		[]syntax.TypedName{{Name: "b1", Type: "block"}},
		[]syntax.BoundDecl{{Type: "step", Lower: 0, Upper: 2}},
	)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, root := range []string{Object, Int, Number} {
		if p := h.Parent(root); p != "" {
			t.Errorf("Parent(%s) = %q, want a root", root, p)
		}
		if sup := h.Supertypes(root); len(sup) != 0 {
			t.Errorf("Supertypes(%s) = %v, want empty", root, sup)
		}
	}

	tests := []struct {
		typ, ancestor string
		want          bool
	}{
		{"int", "object", false},
		{"number", "object", false},
		{"step", "int", true},
		{"step", "object", false},
		{"ratio", "number", true},
		{"ratio", "object", false},
		{"block", "object", true},
		{"block", "int", false},
	}
	for _, tc := range tests {
		if got := h.IsSubtype(tc.typ, tc.ancestor); got != tc.want {
			t.Errorf("IsSubtype(%s, %s) = %v, want %v", tc.typ, tc.ancestor, got, tc.want)
		}
	}

	if got := h.Supertypes("step"); !reflect.DeepEqual(got, []string{"int"}) {
		t.Errorf("Supertypes(step) = %v, want [int]", got)
	}
	if got := h.Extension("object"); !reflect.DeepEqual(got, []string{"b1"}) {
		t.Errorf("Extension(object) = %v, want [b1]", got)
	}
	if !h.IsNumeric("ratio") || h.IsNumeric("block") {
		t.Errorf("IsNumeric classification wrong")
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name     string
		declared []syntax.TypeDecl
		objects  []syntax.TypedName
		bounds   []syntax.BoundDecl
	}{
		{
			name:   "inverted bound",
			bounds: []syntax.BoundDecl{{Type: "step", Lower: 10, Upper: 1}},
		},
		{
			name:     "duplicate type",
			declared: []syntax.TypeDecl{{Name: "block", Parent: "object"}, {Name: "block", Parent: "object"}},
		},
		{
			name:    "unknown object type",
			objects: []syntax.TypedName{{Name: "b1", Type: "block"}},
		},
		{
			name:     "cycle",
			declared: []syntax.TypeDecl{{Name: "a", Parent: "b"}, {Name: "b", Parent: "a"}},
		},
		{
			name:    "duplicate object",
			objects: []syntax.TypedName{{Name: "b1", Type: "object"}, {Name: "b1", Type: "object"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.declared, tc.objects, tc.bounds)
			if !errors.Is(err, taskerr.ErrType) {
				t.Errorf("expected TypeError, got %v", err)
			}
		})
	}
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
