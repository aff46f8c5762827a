package asp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-set/v3"

	"groundc/internal/ast"
	"groundc/internal/index"
	"groundc/internal/schema"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
	"groundc/internal/typing"
)

// maxVariables is the size of the variable alphabet A..Z.
const maxVariables = 26

// Show directives that close every program.
var showDirectives = []string{
	"#show reachable/1.",
	"#show reachable_a/1.",
	"#show reachable_f/1.",
	"#show reachable_goal/0.",
}

// Input is everything the reachability encoding is built from.
type Input struct {
	Problem *syntax.Problem
	Actions []*schema.ActionSchema
	Axioms  []*schema.Axiom
	Goal    ast.Node
}

// Program is an encoded logic program.
type Program struct {
	Rules      []string
	Conditions int
}

// String renders the program, one rule per line.
func (p *Program) String() string {
	return strings.Join(p.Rules, "\n") + "\n"
}

type encoder struct {
	ctx     *index.Context
	aliases *Aliases
	rules   []string
	next    int
	negated *set.Set[string]
}

// Encode builds the relaxed-reachability program of a task. The program
// derives reachable_f/1 for every reachable fact, reachable_a/1 for every
// reachable action instance, reachable/1 for every satisfiable condition
// code, and reachable_goal when the goal is satisfiable.
func Encode(ctx *index.Context, in Input, aliases *Aliases) (*Program, error) {
	e := &encoder{ctx: ctx, aliases: aliases, negated: set.New[string](0)}
	if err := e.scan(in); err != nil {
		return nil, err
	}

	e.comment("types")
	if err := e.typeFacts(); err != nil {
		return nil, err
	}

	e.comment("initial state")
	if err := e.initFacts(in.Problem); err != nil {
		return nil, err
	}
	e.rule("reachable_f(X)", "init(X)")

	e.comment("base relations")
	top, _ := aliases.Type(typing.Object)
	e.rule("equal(X,X)", top+"(X)")
	e.rule("distinct(X,Y)", top+"(X)", top+"(Y)", "X != Y")

	if e.negated.Size() > 0 {
		e.comment("closed-world negation")
		if err := e.negationRules(); err != nil {
			return nil, err
		}
	}

	e.comment("actions")
	for i, s := range in.Actions {
		if err := e.action(i, s); err != nil {
			return nil, fmt.Errorf("encoding action %s: %w", s.Name, err)
		}
	}

	if len(in.Axioms) > 0 {
		e.comment("axioms")
		for _, ax := range in.Axioms {
			if err := e.axiom(ax); err != nil {
				return nil, fmt.Errorf("encoding axiom %s: %w", ax.Name, err)
			}
		}
	}

	e.comment("goal")
	goal := in.Goal
	if goal == nil {
		goal = ast.Tautology{}
	}
	code, err := e.condition(goal, nil)
	if err != nil {
		return nil, fmt.Errorf("encoding goal: %w", err)
	}
	e.rule("reachable_goal", "reachable("+code+")")

	e.rules = append(e.rules, showDirectives...)
	return &Program{Rules: e.rules, Conditions: e.next}, nil
}

// scan records every predicate that occurs negated and rejects function
// symbols other than the cost function.
func (e *encoder) scan(in Input) error {
	var err error
	visit := func(n ast.Node) {
		switch v := n.(type) {
		case ast.AtomicRelation:
			if v.Negated {
				e.negated.Insert(v.Symbol)
			}
		case ast.Functional:
			if v.Class != ast.KindCost && err == nil {
				err = taskerr.UnsupportedFeature(taskerr.StageGrounding, v.Symbol, "function symbols are not supported by the reachability encoding")
			}
		}
	}

	for _, s := range in.Actions {
		ast.Walk(s.Precondition, visit)
		for _, eff := range s.Effects {
			ast.Walk(eff.Condition, visit)
			ast.Walk(eff.LHS, visit)
			ast.Walk(eff.RHS, visit)
		}
	}
	for _, ax := range in.Axioms {
		ast.Walk(ax.Body, visit)
	}
	if in.Goal != nil {
		ast.Walk(in.Goal, visit)
	}
	return err
}

func (e *encoder) comment(s string) {
	e.rules = append(e.rules, "% "+s)
}

func (e *encoder) rule(head string, body ...string) {
	if len(body) == 0 {
		e.rules = append(e.rules, head+".")
		return
	}
	e.rules = append(e.rules, head+" :- "+strings.Join(body, ", ")+".")
}

func (e *encoder) typeFacts() error {
	for _, t := range e.ctx.Types.Types() {
		alias, _ := e.aliases.Type(t)
		_, bounded := e.ctx.Types.Bound(t)
		if e.ctx.Types.IsNumeric(t) && !bounded {
			continue
		}
		for _, value := range e.ctx.Types.Extension(t) {
			v, err := e.value(t, value)
			if err != nil {
				return err
			}
			e.rule(alias + "(" + v + ")")
		}
	}
	return nil
}

func (e *encoder) value(t, value string) (string, error) {
	if e.ctx.Types.IsNumeric(t) {
		if _, err := strconv.Atoi(value); err != nil {
			return "", taskerr.UnsupportedFeature(taskerr.StageGrounding, value, "non-integer value of type %s", t)
		}
		return value, nil
	}
	alias, ok := e.aliases.Object(value)
	if !ok {
		return "", taskerr.UndeclaredSymbol(taskerr.StageGrounding, value, "object not declared")
	}
	return alias, nil
}

func (e *encoder) initFacts(p *syntax.Problem) error {
	if p == nil {
		return nil
	}
	for _, atom := range p.Atoms {
		if index.IsExternal(atom.Symbol) {
			continue
		}
		alias, ok := e.aliases.Predicate(atom.Symbol, false)
		if !ok {
			return taskerr.UndeclaredSymbol(taskerr.StageGrounding, atom.Symbol, "initial atom over an undeclared predicate")
		}
		args := make([]string, len(atom.Args))
		for i, a := range atom.Args {
			tok, ok := a.(syntax.Token)
			if !ok {
				return taskerr.UnsupportedFeature(taskerr.StageGrounding, atom.Symbol, "functional term in an initial atom")
			}
			if _, err := strconv.Atoi(tok.Text); err == nil {
				args[i] = tok.Text
				continue
			}
			v, ok := e.aliases.Object(tok.Text)
			if !ok {
				return taskerr.UndeclaredSymbol(taskerr.StageGrounding, tok.Text, "object not declared")
			}
			args[i] = v
		}
		e.rule("init(" + apply(alias, args) + ")")
	}
	return nil
}

func (e *encoder) negationRules() error {
	for _, sym := range e.ctx.Symbols.Symbols() {
		if !e.negated.Contains(sym.Name) || sym.External {
			continue
		}
		if sym.Arity() > maxVariables {
			return taskerr.UnsupportedFeature(taskerr.StageGrounding, sym.Name, "more than %d arguments", maxVariables)
		}
		vars := make([]string, sym.Arity())
		body := make([]string, 0, sym.Arity()+1)
		for i, t := range sym.Params {
			vars[i] = variable(i)
			guard, err := e.guard(t, vars[i])
			if err != nil {
				return err
			}
			body = append(body, guard)
		}
		body = append(body, "not init("+apply(PredicateAlias(sym.ID), vars)+")")
		e.rule("reachable_f("+apply(NegatedAlias(sym.ID), vars)+")", body...)
	}
	return nil
}

func (e *encoder) action(i int, s *schema.ActionSchema) error {
	vars, guards, err := e.scope(s.Unit)
	if err != nil {
		return err
	}
	pre, err := e.condition(s.Precondition, s.Unit)
	if err != nil {
		return err
	}
	instance := apply(ActionAlias(i), vars)
	e.rule("reachable_a("+instance+")", append([]string{"reachable(" + pre + ")"}, guards...)...)

	for _, eff := range s.Effects {
		if eff.Kind == schema.EffectFunctional {
			return taskerr.UnsupportedFeature(taskerr.StageGrounding, s.Name, "functional effects are not supported by the reachability encoding")
		}
		atom, ok := eff.LHS.(ast.AtomicRelation)
		if !ok {
			return taskerr.Internal(taskerr.StageGrounding, s.Name, "predicative effect on %T", eff.LHS)
		}
		del := eff.Kind == schema.EffectDel
		if del && !e.negated.Contains(atom.Symbol) {
			continue
		}

		body := []string{"reachable_a(" + instance + ")"}
		if _, always := eff.Condition.(ast.Tautology); !always {
			code, err := e.condition(eff.Condition, s.Unit)
			if err != nil {
				return err
			}
			body = append(body, "reachable("+code+")")
		}

		alias, ok := e.aliases.Predicate(atom.Symbol, del)
		if !ok {
			return taskerr.UndeclaredSymbol(taskerr.StageGrounding, atom.Symbol, "effect on an undeclared predicate")
		}
		args, err := e.terms(atom.Args, s.Unit)
		if err != nil {
			return err
		}
		e.rule("reachable_f("+apply(alias, args)+")", body...)
	}
	return nil
}

func (e *encoder) axiom(ax *schema.Axiom) error {
	vars, guards, err := e.scope(ax.Unit)
	if err != nil {
		return err
	}
	code, err := e.condition(ax.Body, ax.Unit)
	if err != nil {
		return err
	}
	alias, ok := e.aliases.Predicate(ax.Name, false)
	if !ok {
		return taskerr.UndeclaredSymbol(taskerr.StageGrounding, ax.Name, "axiom head not declared")
	}
	e.rule("reachable_f("+apply(alias, vars)+")", append([]string{"reachable(" + code + ")"}, guards...)...)
	return nil
}

// condition emits the rules of one condition code and returns the code
// applied to the variables of unit.
func (e *encoder) condition(n ast.Node, unit *ast.BindingUnit) (string, error) {
	vars, guards, err := e.scope(unit)
	if err != nil {
		return "", err
	}
	code := apply(ConditionAlias(e.next), vars)
	e.next++
	head := "reachable(" + code + ")"

	switch v := n.(type) {
	case ast.Tautology:
		e.rule(head, guards...)

	case ast.AtomicRelation:
		if v.External {
			e.rule(head, guards...)
			break
		}
		alias, ok := e.aliases.Predicate(v.Symbol, v.Negated)
		if !ok {
			return "", taskerr.UndeclaredSymbol(taskerr.StageGrounding, v.Symbol, "predicate not declared")
		}
		args, err := e.terms(v.Args, unit)
		if err != nil {
			return "", err
		}
		e.rule(head, append([]string{"reachable_f(" + apply(alias, args) + ")"}, guards...)...)

	case ast.Relation:
		lit, err := e.relation(v, unit)
		if err != nil {
			return "", err
		}
		body := guards
		if lit != "" {
			body = append(body, lit)
		}
		e.rule(head, body...)

	case ast.Open:
		if v.Connective == ast.KindNot {
			// Complex negation is relaxed to true.
			e.rule(head, guards...)
			break
		}
		children := make([]string, 0, len(v.Children))
		for _, c := range v.Children {
			sub, err := e.condition(c, unit)
			if err != nil {
				return "", err
			}
			children = append(children, "reachable("+sub+")")
		}
		switch v.Connective {
		case ast.KindAnd:
			e.rule(head, append(children, guards...)...)
		case ast.KindOr:
			for _, c := range children {
				e.rule(head, append([]string{c}, guards...)...)
			}
		default:
			return "", taskerr.Internal(taskerr.StageGrounding, string(v.Connective), "unknown connective")
		}

	case ast.Quantified:
		// v.Unit can also hold variables of earlier sibling quantifiers,
		// which must not become locals of this rule.
		inner, err := unit.Extend(v.Variables)
		if err != nil {
			return "", err
		}
		sub, err := e.condition(v.Body, inner)
		if err != nil {
			return "", err
		}
		switch v.Quantifier {
		case ast.KindExists:
			e.rule(head, append([]string{"reachable(" + sub + ")"}, guards...)...)
		case ast.KindForall:
			conds := make([]string, 0, len(v.Variables))
			for _, b := range v.Variables {
				pos, _ := inner.ID(b.Name)
				guard, err := e.guard(b.Type, variable(pos))
				if err != nil {
					return "", err
				}
				conds = append(conds, guard)
			}
			// The conditional literal goes last: its condition list runs to
			// the end of the rule.
			e.rule(head, append(guards, "reachable("+sub+") : "+strings.Join(conds, ", "))...)
		default:
			return "", taskerr.Internal(taskerr.StageGrounding, string(v.Quantifier), "unknown quantifier")
		}

	default:
		return "", taskerr.Internal(taskerr.StageGrounding, fmt.Sprintf("%T", n), "unexpected condition node")
	}
	return code, nil
}

// relation returns the body literal of a relation, or "" when the relation
// is relaxed to true because it compares numeric expressions.
func (e *encoder) relation(r ast.Relation, unit *ast.BindingUnit) (string, error) {
	for _, side := range []ast.Node{r.LHS, r.RHS} {
		switch side.(type) {
		case ast.Functional, ast.Arithmetic:
			return "", nil
		}
	}
	args, err := e.terms([]ast.Node{r.LHS, r.RHS}, unit)
	if err != nil {
		return "", err
	}
	numeric := e.numeric(r.LHS, unit) || e.numeric(r.RHS, unit)
	switch {
	case r.Op == "=" && !numeric:
		return "equal(" + args[0] + "," + args[1] + ")", nil
	case r.Op == "!=" && !numeric:
		return "distinct(" + args[0] + "," + args[1] + ")", nil
	}
	return args[0] + " " + r.Op + " " + args[1], nil
}

func (e *encoder) numeric(n ast.Node, unit *ast.BindingUnit) bool {
	switch v := n.(type) {
	case ast.Numeric:
		return true
	case ast.Parameter:
		t, _ := unit.TypeName(v.Name)
		return e.ctx.Types.IsNumeric(t)
	}
	return false
}

func (e *encoder) terms(nodes []ast.Node, unit *ast.BindingUnit) ([]string, error) {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		switch v := n.(type) {
		case ast.Parameter:
			pos, ok := unit.ID(v.Name)
			if !ok {
				return nil, taskerr.UnsupportedFeature(taskerr.StageGrounding, v.Name, "variable is not bound where the reachability encoding needs it")
			}
			out[i] = variable(pos)
		case ast.Object:
			alias, ok := e.aliases.Object(v.Name)
			if !ok {
				return nil, taskerr.UndeclaredSymbol(taskerr.StageGrounding, v.Name, "object not declared")
			}
			out[i] = alias
		case ast.Numeric:
			if !v.Integer {
				return nil, taskerr.UnsupportedFeature(taskerr.StageGrounding, ast.Format(v), "non-integer constant")
			}
			out[i] = strconv.FormatInt(int64(v.Value), 10)
		default:
			return nil, taskerr.UnsupportedFeature(taskerr.StageGrounding, ast.Format(n), "term cannot be encoded")
		}
	}
	return out, nil
}

// scope returns the variables of unit and one type guard per variable.
func (e *encoder) scope(unit *ast.BindingUnit) ([]string, []string, error) {
	bindings := unit.Bindings()
	if len(bindings) > maxVariables {
		return nil, nil, taskerr.UnsupportedFeature(taskerr.StageGrounding, bindings[maxVariables].Name, "more than %d variables in scope", maxVariables)
	}
	vars := make([]string, len(bindings))
	guards := make([]string, len(bindings))
	for i, b := range bindings {
		vars[i] = variable(i)
		guard, err := e.guard(b.Type, vars[i])
		if err != nil {
			return nil, nil, err
		}
		guards[i] = guard
	}
	return vars, guards, nil
}

func (e *encoder) guard(t, v string) (string, error) {
	if _, bounded := e.ctx.Types.Bound(t); e.ctx.Types.IsNumeric(t) && !bounded {
		return "", taskerr.UnsupportedFeature(taskerr.StageGrounding, t, "variables of unbounded numeric type cannot be grounded")
	}
	alias, ok := e.aliases.Type(t)
	if !ok {
		return "", taskerr.Type(taskerr.StageGrounding, t, "unknown type")
	}
	return alias + "(" + v + ")", nil
}

func variable(pos int) string {
	return string(rune('A' + pos))
}

func apply(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + "(" + strings.Join(args, ",") + ")"
}
