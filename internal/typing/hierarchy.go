// Package typing resolves the type lattice of a planning domain and the
// extension (member values) of every type.
package typing

import (
	"strconv"

	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

// Builtin type names. Object, Int and Number are the roots of the lattice:
// numeric types never share an ancestor with object types. Bool is the
// codomain of predicates and is not part of the lattice.
const (
	Object = "object"
	Int    = "int"
	Number = "number"
	Bool   = "bool"
)

// Interval is the range of a bounded integer type.
type Interval struct {
	Lower int
	Upper int
}

// Hierarchy is the resolved type lattice. It is immutable once built.
type Hierarchy struct {
	types      []string
	ids        map[string]int
	parent     map[string]string
	supertypes map[string][]string
	extension  map[string][]string
	bounds     map[string]Interval
}

// Resolve builds the hierarchy from declared types, objects and numeric
// bounds.
func Resolve(declared []syntax.TypeDecl, objects []syntax.TypedName, bounds []syntax.BoundDecl) (*Hierarchy, error) {
	h := &Hierarchy{
		ids:        make(map[string]int),
		parent:     make(map[string]string),
		supertypes: make(map[string][]string),
		extension:  make(map[string][]string),
		bounds:     make(map[string]Interval),
	}

	for _, root := range roots {
		h.register(root, "")
	}

	// Bounds are checked first so an inverted range fails before anything else.
	for _, b := range bounds {
		if b.Lower > b.Upper {
			return nil, taskerr.Type(taskerr.StageTypes, b.Type, "inverted numeric bound int[%d..%d]", b.Lower, b.Upper)
		}
		if _, dup := h.bounds[b.Type]; dup {
			return nil, taskerr.Type(taskerr.StageTypes, b.Type, "numeric bound declared twice")
		}
		h.bounds[b.Type] = Interval{Lower: b.Lower, Upper: b.Upper}
	}

	for _, d := range declared {
		if isBuiltin(d.Name) {
			continue
		}
		if _, dup := h.ids[d.Name]; dup {
			return nil, taskerr.Type(taskerr.StageTypes, d.Name, "duplicate type declaration")
		}
		parent := d.Parent
		if parent == "" {
			parent = Object
		}
		h.register(d.Name, parent)
	}

	// Back-fill parents that were referenced but never declared.
	for _, name := range append([]string(nil), h.types...) {
		p := h.parent[name]
		if p == "" {
			continue
		}
		if _, ok := h.ids[p]; !ok {
			h.register(p, Object)
		}
	}

	for _, b := range bounds {
		if _, ok := h.ids[b.Type]; !ok {
			h.register(b.Type, Int)
		}
	}

	if err := h.computeSupertypes(); err != nil {
		return nil, err
	}

	for _, name := range h.types {
		h.extension[name] = []string{}
	}

	seen := make(map[string]bool, len(objects))
	for _, o := range objects {
		if seen[o.Name] {
			return nil, taskerr.Type(taskerr.StageTypes, o.Name, "object declared twice")
		}
		seen[o.Name] = true

		if _, ok := h.ids[o.Type]; !ok {
			return nil, taskerr.Type(taskerr.StageTypes, o.Name, "object has unknown type %q", o.Type)
		}
		h.extension[o.Type] = append(h.extension[o.Type], o.Name)
		for _, anc := range h.supertypes[o.Type] {
			h.extension[anc] = append(h.extension[anc], o.Name)
		}
	}

	for _, b := range bounds {
		iv := h.bounds[b.Type]
		values := make([]string, 0, iv.Upper-iv.Lower+1)
		for v := iv.Lower; v <= iv.Upper; v++ {
			values = append(values, strconv.Itoa(v))
		}
		h.extension[b.Type] = values
	}

	return h, nil
}

func (h *Hierarchy) register(name, parent string) {
	h.ids[name] = len(h.types)
	h.types = append(h.types, name)
	h.parent[name] = parent
}

// computeSupertypes walks the parent->children adjacency breadth-first from
// the roots. Types never reached sit on a cycle.
func (h *Hierarchy) computeSupertypes() error {
	children := make(map[string][]string)
	for _, name := range h.types {
		if p := h.parent[name]; p != "" {
			children[p] = append(children[p], name)
		}
	}

	queue := make([]string, 0, len(roots))
	for _, root := range roots {
		h.supertypes[root] = []string{}
		queue = append(queue, root)
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if _, done := h.supertypes[child]; done {
				continue
			}
			chain := make([]string, 0, len(h.supertypes[cur])+1)
			chain = append(chain, cur)
			chain = append(chain, h.supertypes[cur]...)
			h.supertypes[child] = chain
			queue = append(queue, child)
		}
	}

	for _, name := range h.types {
		if _, ok := h.supertypes[name]; !ok {
			return taskerr.Type(taskerr.StageTypes, name, "type does not resolve to a root (cyclic hierarchy)")
		}
	}
	return nil
}

var roots = []string{Object, Int, Number}

func isBuiltin(name string) bool {
	return name == Object || name == Int || name == Number
}

// Types returns all type names in id order.
func (h *Hierarchy) Types() []string {
	return h.types
}

// Len returns the number of types.
func (h *Hierarchy) Len() int {
	return len(h.types)
}

// Has reports whether name is a known type.
func (h *Hierarchy) Has(name string) bool {
	_, ok := h.ids[name]
	return ok
}

// ID returns the id of a type.
func (h *Hierarchy) ID(name string) (int, bool) {
	id, ok := h.ids[name]
	return id, ok
}

// Parent returns the immediate parent of a type, "" for a root.
func (h *Hierarchy) Parent(name string) string {
	return h.parent[name]
}

// Supertypes returns the ancestors of a type, nearest first.
func (h *Hierarchy) Supertypes(name string) []string {
	return h.supertypes[name]
}

// Extension returns the member values of a type: object names, or decimal
// integers for bounded numeric types.
func (h *Hierarchy) Extension(name string) []string {
	return h.extension[name]
}

// Extensions returns the whole type map.
func (h *Hierarchy) Extensions() map[string][]string {
	out := make(map[string][]string, len(h.extension))
	for k, v := range h.extension {
		out[k] = v
	}
	return out
}

// Bound returns the interval of a bounded integer type.
func (h *Hierarchy) Bound(name string) (Interval, bool) {
	iv, ok := h.bounds[name]
	return iv, ok
}

// IsSubtype reports whether t equals ancestor or descends from it.
func (h *Hierarchy) IsSubtype(t, ancestor string) bool {
	if t == ancestor {
		return true
	}
	for _, s := range h.supertypes[t] {
		if s == ancestor {
			return true
		}
	}
	return false
}

// IsNumeric reports whether values of t are numbers rather than objects.
func (h *Hierarchy) IsNumeric(t string) bool {
	if _, ok := h.bounds[t]; ok {
		return true
	}
	return h.IsSubtype(t, Int) || h.IsSubtype(t, Number)
}
