// Package schema compiles lifted actions, axioms, goals and metrics into
// typed ast form.
package schema

import (
	"groundc/internal/ast"
	"groundc/internal/index"
	"groundc/internal/lower"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

// EffectKind classifies a compiled effect.
type EffectKind string

const (
	EffectAdd        EffectKind = "add"
	EffectDel        EffectKind = "del"
	EffectFunctional EffectKind = "functional"
)

// Effect is one concrete assignment lhs := rhs, applied when Condition holds.
// Unit is the action's unit extended with the condition's quantified
// variables.
type Effect struct {
	Kind      EffectKind
	Unit      *ast.BindingUnit
	Condition ast.Node
	LHS       ast.Node
	RHS       ast.Node
}

// ActionSchema is a compiled lifted action.
type ActionSchema struct {
	Name         string
	Params       []ast.Binding
	Unit         *ast.BindingUnit
	Precondition ast.Node
	Effects      []Effect

	// Groundings are the reachable parameter tuples found by the grounder,
	// sorted. Nil when no grounder ran.
	Groundings [][]int
}

// Axiom is a compiled derived-predicate definition.
type Axiom struct {
	Name   string
	Params []ast.Binding
	Unit   *ast.BindingUnit
	Body   ast.Node
}

// Metric is a compiled optimization criterion.
type Metric struct {
	Optimization string
	Expression   ast.Node
}

// Compiler compiles declarations against one context.
type Compiler struct {
	ctx   *index.Context
	lower *lower.Engine
}

// NewCompiler creates a compiler.
func NewCompiler(ctx *index.Context) *Compiler {
	return &Compiler{ctx: ctx, lower: lower.New(ctx)}
}

// Action compiles a lifted action.
func (c *Compiler) Action(a syntax.ActionDecl) (*ActionSchema, error) {
	params, err := c.lower.Bindings(a.Params)
	if err != nil {
		return nil, err
	}
	unit, err := ast.NewBindingUnit(params)
	if err != nil {
		return nil, err
	}

	pre := a.Precondition
	if pre == nil {
		pre = syntax.Truth{}
	}
	precondition, _, err := c.lower.Formula(pre, unit)
	if err != nil {
		return nil, err
	}

	s := &ActionSchema{Name: a.Name, Params: params, Unit: unit, Precondition: precondition}
	if a.Effect != nil {
		if err := c.effects(s, a.Effect, nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Actions compiles every action, in declaration order.
func (c *Compiler) Actions(decls []syntax.ActionDecl) ([]*ActionSchema, error) {
	out := make([]*ActionSchema, 0, len(decls))
	for _, a := range decls {
		s, err := c.Action(a)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// effects flattens e into s.Effects. cond is the conjunction of enclosing
// when conditions, nil at the top level.
func (c *Compiler) effects(s *ActionSchema, e syntax.Effect, cond syntax.Formula) error {
	switch v := e.(type) {
	case syntax.AndEffect:
		for _, p := range v.Parts {
			if err := c.effects(s, p, cond); err != nil {
				return err
			}
		}
		return nil

	case syntax.When:
		return c.effects(s, v.Effect, conjoin(cond, v.Condition))

	case syntax.ForallEffect:
		if len(v.Params) != 1 {
			return taskerr.UnsupportedFeature(taskerr.StageSchema, s.Name, "quantified effect binds %d variables, only one is supported", len(v.Params))
		}
		p := v.Params[0]
		if !c.ctx.Types.Has(p.Type) {
			return taskerr.Type(taskerr.StageSchema, p.Name, "unknown type %q", p.Type)
		}
		for _, value := range c.ctx.Types.Extension(p.Type) {
			if err := c.effects(s, syntax.SubstituteEffect(v.Effect, p.Name, value), cond); err != nil {
				return err
			}
		}
		return nil

	case syntax.Literal:
		unit, condition, err := c.condition(s.Unit, cond)
		if err != nil {
			return err
		}
		if index.IsRelational(v.Atom.Symbol) {
			return taskerr.ParseStructure(taskerr.StageSchema, v.Atom.Symbol, "relation used as an effect")
		}
		lhs, _, err := c.lower.Formula(v.Atom, unit)
		if err != nil {
			return err
		}
		kind, value := EffectAdd, index.True
		if v.Negated {
			kind, value = EffectDel, index.False
		}
		s.Effects = append(s.Effects, Effect{
			Kind:      kind,
			Unit:      unit,
			Condition: condition,
			LHS:       lhs,
			RHS:       ast.Object{Name: value, Type: "bool"},
		})
		return nil

	case syntax.Assign:
		if sym, ok := c.ctx.Symbols.Lookup(v.LHS.Symbol); ok && sym.Cost {
			return nil
		}
		unit, condition, err := c.condition(s.Unit, cond)
		if err != nil {
			return err
		}
		lhs, err := c.lower.Term(v.LHS, unit)
		if err != nil {
			return err
		}
		rhs, err := c.lower.Term(v.RHS, unit)
		if err != nil {
			return err
		}
		if v.Op != syntax.AssignSet {
			op, ok := assignOps[v.Op]
			if !ok {
				return taskerr.ParseStructure(taskerr.StageSchema, v.Op, "unknown assignment operator")
			}
			rhs = ast.Arithmetic{Op: op, Args: []ast.Node{lhs, rhs}}
		}
		s.Effects = append(s.Effects, Effect{
			Kind:      EffectFunctional,
			Unit:      unit,
			Condition: condition,
			LHS:       lhs,
			RHS:       rhs,
		})
		return nil
	}
	return taskerr.Internal(taskerr.StageSchema, s.Name, "unknown effect %T", e)
}

var assignOps = map[string]string{
	syntax.AssignIncrease:  "+",
	syntax.AssignDecrease:  "-",
	syntax.AssignScaleUp:   "*",
	syntax.AssignScaleDown: "/",
}

func (c *Compiler) condition(unit *ast.BindingUnit, cond syntax.Formula) (*ast.BindingUnit, ast.Node, error) {
	if cond == nil {
		return unit, ast.Tautology{}, nil
	}
	n, out, err := c.lower.Formula(cond, unit)
	if err != nil {
		return nil, nil, err
	}
	return out, n, nil
}

func conjoin(outer, inner syntax.Formula) syntax.Formula {
	if outer == nil {
		return inner
	}
	return syntax.And{Parts: []syntax.Formula{outer, inner}}
}

// Axiom compiles a derived-predicate definition.
func (c *Compiler) Axiom(ax syntax.AxiomDecl) (*Axiom, error) {
	params, err := c.lower.Bindings(ax.Params)
	if err != nil {
		return nil, err
	}
	unit, err := ast.NewBindingUnit(params)
	if err != nil {
		return nil, err
	}
	body, _, err := c.lower.Formula(ax.Formula, unit)
	if err != nil {
		return nil, err
	}
	return &Axiom{Name: ax.Name, Params: params, Unit: unit, Body: body}, nil
}

// Goal compiles the goal formula under the empty unit.
func (c *Compiler) Goal(f syntax.Formula) (ast.Node, error) {
	if f == nil {
		return ast.Tautology{}, nil
	}
	n, _, err := c.lower.Formula(f, nil)
	return n, err
}

// Constraints compiles the state constraints under the empty unit.
func (c *Compiler) Constraints(f syntax.Formula) (ast.Node, error) {
	return c.Goal(f)
}

// Metric compiles the optimization criterion. A nil metric compiles to nil.
func (c *Compiler) Metric(m *syntax.Metric) (*Metric, error) {
	if m == nil {
		return nil, nil
	}
	expr, err := c.lower.Term(m.Expression, nil)
	if err != nil {
		return nil, err
	}
	return &Metric{Optimization: m.Optimization, Expression: expr}, nil
}
