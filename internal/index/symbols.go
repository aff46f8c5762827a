package index

import (
	"strings"

	"github.com/hashicorp/go-set/v3"

	"groundc/internal/syntax"
	"groundc/internal/taskerr"
	"groundc/internal/typing"
)

const (
	// ExternalPrefix marks symbols implemented outside the compiler.
	ExternalPrefix = "@"
	// CostSymbol is the action-cost function.
	CostSymbol = "total-cost"
	// Equality is the builtin equality relation, always static.
	Equality = "="
)

// SymbolKind distinguishes predicates from functions.
type SymbolKind string

const (
	KindPredicate SymbolKind = "predicate"
	KindFunction  SymbolKind = "function"
)

// Symbol is a declared predicate or function.
type Symbol struct {
	ID       int
	Name     string
	Kind     SymbolKind
	Params   []string // argument types
	Codomain string
	External bool
	Variadic bool
	Cost     bool
	Derived  bool
}

// Arity returns the number of declared arguments.
func (s *Symbol) Arity() int {
	return len(s.Params)
}

// Grounded reports whether the symbol can own state variables.
func (s *Symbol) Grounded() bool {
	return !s.External && !s.Cost && !s.Derived
}

// SymbolTable holds declared symbols and the fluent/static partition.
type SymbolTable struct {
	symbols []*Symbol
	byName  map[string]*Symbol
	fluent  *set.Set[string]
	static  *set.Set[string]
}

// IsExternal reports whether name carries the external marker.
func IsExternal(name string) bool {
	return strings.HasPrefix(name, ExternalPrefix)
}

// IsRelational reports whether op is a builtin relational operator.
func IsRelational(op string) bool {
	switch op {
	case "=", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

// IsArithmetic reports whether op is a builtin arithmetic operator.
func IsArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/":
		return true
	}
	return false
}

// NewSymbolTable indexes the domain's predicates (first) and functions,
// registers axiom heads as derived predicates, and classifies every symbol.
func NewSymbolTable(domain *syntax.Domain, types *typing.Hierarchy) (*SymbolTable, error) {
	st := &SymbolTable{byName: make(map[string]*Symbol)}

	for _, d := range domain.Predicates {
		if err := st.declare(d, KindPredicate, typing.Bool, types); err != nil {
			return nil, err
		}
	}
	for _, d := range domain.Functions {
		if err := st.declare(d, KindFunction, d.Codomain, types); err != nil {
			return nil, err
		}
	}

	for _, ax := range domain.Axioms {
		sym, ok := st.byName[ax.Name]
		if !ok {
			decl := syntax.SymbolDecl{Name: ax.Name, Params: ax.Params}
			if err := st.declare(decl, KindPredicate, typing.Bool, types); err != nil {
				return nil, err
			}
			sym = st.byName[ax.Name]
		}
		if sym.Kind != KindPredicate {
			return nil, taskerr.ParseStructure(taskerr.StageIndex, ax.Name, "axiom defines a function symbol")
		}
		sym.Derived = true
	}

	if err := st.classify(domain); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *SymbolTable) declare(d syntax.SymbolDecl, kind SymbolKind, codomain string, types *typing.Hierarchy) error {
	if _, dup := st.byName[d.Name]; dup {
		return taskerr.ParseStructure(taskerr.StageIndex, d.Name, "symbol declared twice")
	}
	if IsRelational(d.Name) || IsArithmetic(d.Name) {
		return taskerr.ParseStructure(taskerr.StageIndex, d.Name, "symbol name is a builtin operator")
	}

	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		if !types.Has(p.Type) {
			return taskerr.Type(taskerr.StageIndex, d.Name, "argument %d has unknown type %q", i, p.Type)
		}
		params[i] = p.Type
	}
	if kind == KindFunction && !types.Has(codomain) {
		return taskerr.Type(taskerr.StageIndex, d.Name, "unknown codomain %q", codomain)
	}

	sym := &Symbol{
		ID:       len(st.symbols),
		Name:     d.Name,
		Kind:     kind,
		Params:   params,
		Codomain: codomain,
		External: IsExternal(d.Name),
		Variadic: d.Variadic,
	}
	sym.Cost = kind == KindFunction && d.Name == CostSymbol && (len(params) == 0 || codomain == typing.Number)

	st.symbols = append(st.symbols, sym)
	st.byName[d.Name] = sym
	return nil
}

// classify computes the fluent/static partition: a symbol is fluent iff it
// heads at least one action effect. Derived predicates are fluent.
func (st *SymbolTable) classify(domain *syntax.Domain) error {
	st.fluent = set.New[string](len(st.symbols))
	st.static = set.New[string](len(st.symbols) + 1)

	for _, a := range domain.Actions {
		for _, head := range syntax.EffectHeads(a.Effect) {
			sym, ok := st.byName[head]
			if !ok {
				if IsExternal(head) {
					return taskerr.ExternalSymbolConstraint(taskerr.StageIndex, head, "external symbol affected by action %s", a.Name)
				}
				return taskerr.UndeclaredSymbol(taskerr.StageIndex, head, "affected by action %s but not declared", a.Name)
			}
			if sym.External {
				return taskerr.ExternalSymbolConstraint(taskerr.StageIndex, head, "external symbol affected by action %s", a.Name)
			}
			if sym.Derived {
				return taskerr.ParseStructure(taskerr.StageIndex, head, "derived predicate affected by action %s", a.Name)
			}
			if sym.Cost {
				continue
			}
			st.fluent.Insert(head)
		}
	}

	for _, sym := range st.symbols {
		if sym.Derived {
			st.fluent.Insert(sym.Name)
		}
		if !st.fluent.Contains(sym.Name) {
			st.static.Insert(sym.Name)
		}
	}
	st.static.Insert(Equality)
	return nil
}

// Lookup returns a declared symbol.
func (st *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := st.byName[name]
	return sym, ok
}

// Symbols returns all declared symbols in id order.
func (st *SymbolTable) Symbols() []*Symbol {
	return st.symbols
}

// Len returns the number of declared symbols.
func (st *SymbolTable) Len() int {
	return len(st.symbols)
}

// IsFluent reports whether name is affected by some action (or derived).
func (st *SymbolTable) IsFluent(name string) bool {
	return st.fluent.Contains(name)
}

// IsStatic reports whether name is never affected by any action.
func (st *SymbolTable) IsStatic(name string) bool {
	return st.static.Contains(name)
}

// FluentSymbols returns the fluent symbols in id order.
func (st *SymbolTable) FluentSymbols() []string {
	var out []string
	for _, sym := range st.symbols {
		if st.fluent.Contains(sym.Name) {
			out = append(out, sym.Name)
		}
	}
	return out
}

// StaticSymbols returns the static symbols in id order, followed by "=".
func (st *SymbolTable) StaticSymbols() []string {
	var out []string
	for _, sym := range st.symbols {
		if st.static.Contains(sym.Name) {
			out = append(out, sym.Name)
		}
	}
	return append(out, Equality)
}
