// Package index assigns stable ids to objects and symbols, classifies
// symbols as static or fluent, and bundles the results with the type
// hierarchy into the immutable compilation Context.
package index

import (
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
	"groundc/internal/typing"
)

// Reserved boolean constants. Their ids are fixed before any declared object.
const (
	False = "false"
	True  = "true"

	FalseID = 0
	TrueID  = 1
)

// ObjectIndex is a bijection between object names and 0-based ids.
type ObjectIndex struct {
	names []string
	ids   map[string]int
	types map[string]string
}

// NewObjectIndex indexes the declared objects after the two boolean
// constants (false=0, true=1).
func NewObjectIndex(objects []syntax.TypedName) (*ObjectIndex, error) {
	idx := &ObjectIndex{
		names: make([]string, 0, len(objects)+2),
		ids:   make(map[string]int, len(objects)+2),
		types: make(map[string]string, len(objects)+2),
	}
	idx.add(False, typing.Bool)
	idx.add(True, typing.Bool)

	for _, o := range objects {
		if _, dup := idx.ids[o.Name]; dup {
			if o.Name == True || o.Name == False {
				return nil, taskerr.Type(taskerr.StageIndex, o.Name, "object name collides with a reserved boolean constant")
			}
			return nil, taskerr.Type(taskerr.StageIndex, o.Name, "object declared twice")
		}
		idx.add(o.Name, o.Type)
	}
	return idx, nil
}

func (idx *ObjectIndex) add(name, typ string) {
	idx.ids[name] = len(idx.names)
	idx.names = append(idx.names, name)
	idx.types[name] = typ
}

// ID returns the id of an object.
func (idx *ObjectIndex) ID(name string) (int, bool) {
	id, ok := idx.ids[name]
	return id, ok
}

// Name returns the object with the given id.
func (idx *ObjectIndex) Name(id int) (string, bool) {
	if id < 0 || id >= len(idx.names) {
		return "", false
	}
	return idx.names[id], true
}

// TypeOf returns the declared type of an object.
func (idx *ObjectIndex) TypeOf(name string) string {
	return idx.types[name]
}

// Len returns the number of indexed objects, booleans included.
func (idx *ObjectIndex) Len() int {
	return len(idx.names)
}

// Names returns all object names in id order.
func (idx *ObjectIndex) Names() []string {
	return idx.names
}
