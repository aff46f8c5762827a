package index

import (
	"fmt"

	"groundc/internal/syntax"
	"groundc/internal/typing"
)

// Context is the immutable compilation context handed to every stage after
// indexing.
type Context struct {
	Types   *typing.Hierarchy
	Objects *ObjectIndex
	Symbols *SymbolTable
}

// Build resolves types and indexes objects and symbols. Domain constants are
// indexed before problem objects.
func Build(domain *syntax.Domain, problem *syntax.Problem) (*Context, error) {
	objects := make([]syntax.TypedName, 0, len(domain.Constants)+len(problem.Objects))
	objects = append(objects, domain.Constants...)
	objects = append(objects, problem.Objects...)

	types, err := typing.Resolve(domain.Types, objects, domain.Bounds)
	if err != nil {
		return nil, fmt.Errorf("resolving types: %w", err)
	}

	objIdx, err := NewObjectIndex(objects)
	if err != nil {
		return nil, fmt.Errorf("indexing objects: %w", err)
	}

	symbols, err := NewSymbolTable(domain, types)
	if err != nil {
		return nil, fmt.Errorf("indexing symbols: %w", err)
	}

	return &Context{Types: types, Objects: objIdx, Symbols: symbols}, nil
}

// ObjectID resolves an object constant.
func (c *Context) ObjectID(name string) (int, bool) {
	return c.Objects.ID(name)
}

// SymbolID resolves a declared symbol.
func (c *Context) SymbolID(name string) (int, bool) {
	sym, ok := c.Symbols.Lookup(name)
	if !ok {
		return 0, false
	}
	return sym.ID, true
}

// TypeID resolves a type name.
func (c *Context) TypeID(name string) (int, bool) {
	return c.Types.ID(name)
}
