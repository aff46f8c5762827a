package ast

import (
	"groundc/internal/taskerr"
)

// Binding is a named, typed variable in scope.
type Binding struct {
	Name string
	Type string
}

// BindingUnit is the ordered set of variables in scope at a node. Positions
// are stable: extending a unit never renumbers existing entries. A unit is
// never mutated after construction.
type BindingUnit struct {
	entries   []Binding
	positions map[string]int
}

// NewBindingUnit creates a unit from an ordered parameter list.
func NewBindingUnit(params []Binding) (*BindingUnit, error) {
	var empty *BindingUnit
	return empty.Extend(params)
}

// Extend returns a new unit holding u's entries followed by params. A nil
// receiver is the empty unit. Redeclaring a name already in scope fails.
func (u *BindingUnit) Extend(params []Binding) (*BindingUnit, error) {
	n := u.Len()
	out := &BindingUnit{
		entries:   make([]Binding, 0, n+len(params)),
		positions: make(map[string]int, n+len(params)),
	}
	if u != nil {
		out.entries = append(out.entries, u.entries...)
		for k, v := range u.positions {
			out.positions[k] = v
		}
	}
	for _, p := range params {
		if _, dup := out.positions[p.Name]; dup {
			return nil, taskerr.ParseStructure(taskerr.StageLowering, p.Name, "variable bound twice in the same scope")
		}
		out.positions[p.Name] = len(out.entries)
		out.entries = append(out.entries, p)
	}
	return out, nil
}

// ID returns the position of a variable.
func (u *BindingUnit) ID(name string) (int, bool) {
	if u == nil {
		return 0, false
	}
	id, ok := u.positions[name]
	return id, ok
}

// TypeName returns the type of a variable.
func (u *BindingUnit) TypeName(name string) (string, bool) {
	id, ok := u.ID(name)
	if !ok {
		return "", false
	}
	return u.entries[id].Type, true
}

// Len returns the number of variables in scope.
func (u *BindingUnit) Len() int {
	if u == nil {
		return 0
	}
	return len(u.entries)
}

// Bindings returns a copy of the entries in position order.
func (u *BindingUnit) Bindings() []Binding {
	if u == nil {
		return nil
	}
	return append([]Binding(nil), u.entries...)
}
