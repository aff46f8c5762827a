// Package lower turns syntax trees into typed ast nodes.
package lower

import (
	"strconv"
	"strings"

	"groundc/internal/ast"
	"groundc/internal/index"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

// Engine lowers formulas and terms against an indexed context. It holds no
// mutable state; every method is a pure function of its arguments.
type Engine struct {
	ctx *index.Context
}

// New creates a lowering engine.
func New(ctx *index.Context) *Engine {
	return &Engine{ctx: ctx}
}

// Bindings converts typed parameters into ast bindings, checking their types.
func (e *Engine) Bindings(params []syntax.TypedName) ([]ast.Binding, error) {
	out := make([]ast.Binding, len(params))
	for i, p := range params {
		if !e.ctx.Types.Has(p.Type) {
			return nil, taskerr.Type(taskerr.StageLowering, p.Name, "unknown type %q", p.Type)
		}
		out[i] = ast.Binding{Name: p.Name, Type: p.Type}
	}
	return out, nil
}

// Formula lowers f under unit. The returned unit is unit extended with the
// variables of every quantifier in f, in encounter order. Each Quantified
// node carries a prefix of the returned unit, so a variable has the same
// position in both.
func (e *Engine) Formula(f syntax.Formula, unit *ast.BindingUnit) (ast.Node, *ast.BindingUnit, error) {
	acc := unit
	n, err := e.formula(f, unit, &acc)
	if err != nil {
		return nil, nil, err
	}
	return n, acc, nil
}

// Term lowers t under unit.
func (e *Engine) Term(t syntax.Term, unit *ast.BindingUnit) (ast.Node, error) {
	switch v := t.(type) {
	case syntax.Token:
		return e.token(v, unit)
	case syntax.Application:
		return e.application(v, unit)
	}
	return nil, taskerr.Internal(taskerr.StageLowering, "", "unknown term %T", t)
}

func (e *Engine) formula(f syntax.Formula, unit *ast.BindingUnit, acc **ast.BindingUnit) (ast.Node, error) {
	switch v := f.(type) {
	case syntax.Atom:
		return e.atom(v, unit)

	case syntax.Not:
		body, err := e.formula(v.Body, unit, acc)
		if err != nil {
			return nil, err
		}
		if _, isAtom := v.Body.(syntax.Atom); isAtom {
			switch b := body.(type) {
			case ast.Relation:
				op, _ := ast.Negate(b.Op)
				return ast.Relation{Op: op, LHS: b.LHS, RHS: b.RHS}, nil
			case ast.AtomicRelation:
				if b.External {
					return nil, taskerr.ExternalSymbolConstraint(taskerr.StageLowering, b.Symbol, "external predicate used under negation")
				}
				b.Negated = !b.Negated
				return b, nil
			}
		}
		return ast.Open{Connective: ast.KindNot, Children: []ast.Node{body}}, nil

	case syntax.And:
		if len(v.Parts) == 0 {
			return ast.Tautology{}, nil
		}
		children, err := e.formulas(v.Parts, unit, acc)
		if err != nil {
			return nil, err
		}
		return ast.Open{Connective: ast.KindAnd, Children: children}, nil

	case syntax.Or:
		children, err := e.formulas(v.Parts, unit, acc)
		if err != nil {
			return nil, err
		}
		return ast.Open{Connective: ast.KindOr, Children: children}, nil

	case syntax.Exists:
		return e.quantified(ast.KindExists, v.Params, v.Body, unit, acc)

	case syntax.Forall:
		return e.quantified(ast.KindForall, v.Params, v.Body, unit, acc)

	case syntax.Truth:
		return ast.Tautology{}, nil
	}
	return nil, taskerr.Internal(taskerr.StageLowering, "", "unknown formula %T", f)
}

func (e *Engine) formulas(fs []syntax.Formula, unit *ast.BindingUnit, acc **ast.BindingUnit) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(fs))
	for _, f := range fs {
		n, err := e.formula(f, unit, acc)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) quantified(q ast.NodeKind, params []syntax.TypedName, body []syntax.Formula, unit *ast.BindingUnit, acc **ast.BindingUnit) (ast.Node, error) {
	if len(body) != 1 {
		return nil, taskerr.ParseStructure(taskerr.StageLowering, string(q), "quantifier takes exactly one subformula, got %d", len(body))
	}
	vars, err := e.Bindings(params)
	if err != nil {
		return nil, err
	}
	// lexical only checks which names the body may reference.
	lexical, err := unit.Extend(vars)
	if err != nil {
		return nil, err
	}

	// A name already bound by an earlier sibling quantifier keeps its
	// position.
	var fresh []ast.Binding
	for _, b := range vars {
		typ, seen := (*acc).TypeName(b.Name)
		if !seen {
			fresh = append(fresh, b)
			continue
		}
		if typ != b.Type {
			return nil, taskerr.ParseStructure(taskerr.StageLowering, b.Name, "variable rebound as %s, previously %s", b.Type, typ)
		}
	}
	if *acc, err = (*acc).Extend(fresh); err != nil {
		return nil, err
	}
	scope := *acc

	sub, err := e.formula(body[0], lexical, acc)
	if err != nil {
		return nil, err
	}
	return ast.Quantified{Quantifier: q, Variables: vars, Unit: scope, Body: sub}, nil
}

func (e *Engine) atom(a syntax.Atom, unit *ast.BindingUnit) (ast.Node, error) {
	if index.IsRelational(a.Symbol) {
		if len(a.Args) != 2 {
			return nil, taskerr.ParseStructure(taskerr.StageLowering, a.Symbol, "relation takes 2 arguments, got %d", len(a.Args))
		}
		args, err := e.terms(a.Args, unit)
		if err != nil {
			return nil, err
		}
		return ast.Relation{Op: a.Symbol, LHS: args[0], RHS: args[1]}, nil
	}

	sym, declared := e.ctx.Symbols.Lookup(a.Symbol)
	switch {
	case declared:
		if sym.Kind != index.KindPredicate {
			return nil, taskerr.ParseStructure(taskerr.StageLowering, a.Symbol, "function symbol used as a predicate")
		}
		if err := checkArity(sym, len(a.Args)); err != nil {
			return nil, err
		}
	case !index.IsExternal(a.Symbol):
		return nil, taskerr.UndeclaredSymbol(taskerr.StageLowering, a.Symbol, "predicate not declared")
	}

	args, err := e.terms(a.Args, unit)
	if err != nil {
		return nil, err
	}
	// External symbols can never head an effect, so they are always static.
	external := index.IsExternal(a.Symbol)
	return ast.AtomicRelation{
		Symbol:       a.Symbol,
		Args:         args,
		External:     external,
		StaticSymbol: external || e.ctx.Symbols.IsStatic(a.Symbol),
	}, nil
}

func (e *Engine) application(app syntax.Application, unit *ast.BindingUnit) (ast.Node, error) {
	args, err := e.terms(app.Args, unit)
	if err != nil {
		return nil, err
	}
	if index.IsArithmetic(app.Symbol) {
		return ast.Arithmetic{Op: app.Symbol, Args: args}, nil
	}

	sym, declared := e.ctx.Symbols.Lookup(app.Symbol)
	if !declared {
		if index.IsExternal(app.Symbol) {
			return ast.Functional{Symbol: app.Symbol, Class: ast.KindExternal, Args: args}, nil
		}
		return nil, taskerr.UndeclaredSymbol(taskerr.StageLowering, app.Symbol, "function not declared")
	}
	if sym.Kind != index.KindFunction {
		return nil, taskerr.ParseStructure(taskerr.StageLowering, app.Symbol, "predicate used as a term")
	}
	if err := checkArity(sym, len(args)); err != nil {
		return nil, err
	}

	class := ast.KindStatic
	switch {
	case sym.Cost:
		class = ast.KindCost
	case sym.External:
		class = ast.KindExternal
	case e.ctx.Symbols.IsFluent(sym.Name):
		class = ast.KindFluent
	}
	return ast.Functional{Symbol: app.Symbol, Class: class, Args: args}, nil
}

func (e *Engine) terms(ts []syntax.Term, unit *ast.BindingUnit) ([]ast.Node, error) {
	out := make([]ast.Node, 0, len(ts))
	for _, t := range ts {
		n, err := e.Term(t, unit)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Engine) token(t syntax.Token, unit *ast.BindingUnit) (ast.Node, error) {
	if t.IsParameter() {
		if _, ok := unit.ID(t.Text); !ok {
			return nil, taskerr.UndeclaredSymbol(taskerr.StageLowering, t.Text, "parameter not bound in scope")
		}
		return ast.Parameter{Name: t.Text}, nil
	}
	if n, ok := ParseNumber(t.Text); ok {
		return n, nil
	}
	if _, ok := e.ctx.Objects.ID(t.Text); !ok {
		return nil, taskerr.UndeclaredSymbol(taskerr.StageLowering, t.Text, "object not declared")
	}
	return ast.Object{Name: t.Text, Type: e.ctx.Objects.TypeOf(t.Text)}, nil
}

// ParseNumber recognizes numeric literals. Literals without a fractional
// part or exponent are integers.
func ParseNumber(s string) (ast.Numeric, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ast.Numeric{Value: float64(i), Integer: true}, true
	}
	if strings.ContainsAny(s, "0123456789") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ast.Numeric{Value: f}, true
		}
	}
	return ast.Numeric{}, false
}

func checkArity(sym *index.Symbol, n int) error {
	if sym.Variadic {
		if n < sym.Arity() {
			return taskerr.ParseStructure(taskerr.StageLowering, sym.Name, "expected at least %d arguments, got %d", sym.Arity(), n)
		}
		return nil
	}
	if n != sym.Arity() {
		return taskerr.ParseStructure(taskerr.StageLowering, sym.Name, "expected %d arguments, got %d", sym.Arity(), n)
	}
	return nil
}
