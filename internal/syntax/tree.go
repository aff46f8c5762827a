// Package syntax holds the already-parsed domain/problem tree consumed by the
// compiler, and decodes it from YAML or JSON documents.
//
// Formulas, terms and effects are closed sets of node types: every type in
// this package implements exactly one of Term, Formula or Effect through an
// unexported marker method.
package syntax

import "strings"

// ParamSigil prefixes bound-variable names.
const ParamSigil = "?"

// TypedName is a typed parameter or declared object.
type TypedName struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// TypeDecl declares a type and its immediate parent.
type TypeDecl struct {
	Name   string `yaml:"name"`
	Parent string `yaml:"parent"`
}

// BoundDecl declares a bounded integer type int[Lower..Upper].
type BoundDecl struct {
	Type  string `yaml:"type"`
	Lower int    `yaml:"lower"`
	Upper int    `yaml:"upper"`
}

// SymbolDecl declares a predicate or function.
// Codomain is empty for predicates.
type SymbolDecl struct {
	Name     string
	Params   []TypedName
	Codomain string
	Variadic bool
}

// ActionDecl is a lifted action.
type ActionDecl struct {
	Name         string
	Params       []TypedName
	Precondition Formula
	Effect       Effect
}

// AxiomDecl defines a derived predicate.
type AxiomDecl struct {
	Name    string
	Params  []TypedName
	Formula Formula
}

// Domain is the parsed domain theory.
type Domain struct {
	Name       string
	Types      []TypeDecl
	Constants  []TypedName
	Predicates []SymbolDecl
	Functions  []SymbolDecl
	Bounds     []BoundDecl
	Actions    []ActionDecl
	Axioms     []AxiomDecl
}

// Assignment is an initial function value, (= (f args) value).
type Assignment struct {
	LHS   Application
	Value Term
}

// Metric is the optimization criterion of a problem.
type Metric struct {
	Optimization string
	Expression   Term
}

// Problem is the parsed problem instance.
type Problem struct {
	Name        string
	Domain      string
	Objects     []TypedName
	Atoms       []Atom
	Assignments []Assignment
	Goal        Formula
	Constraints Formula
	Metric      *Metric
}

// ----- Terms -----

// Term is a leaf token or a functional application.
type Term interface {
	term()
}

// Token is a leaf term. Its meaning (parameter, number or object) is decided
// during lowering.
type Token struct {
	Text string
}

// Application applies a function symbol (declared, external or arithmetic).
type Application struct {
	Symbol string
	Args   []Term
}

func (Token) term()       {}
func (Application) term() {}

// IsParameter reports whether the token names a bound variable.
func (t Token) IsParameter() bool {
	return strings.HasPrefix(t.Text, ParamSigil)
}

// ----- Formulas -----

// Formula is a condition tree.
type Formula interface {
	formula()
}

// Atom applies a predicate or relational operator.
type Atom struct {
	Symbol string
	Args   []Term
}

// Not negates its body.
type Not struct {
	Body Formula
}

// And is a conjunction.
type And struct {
	Parts []Formula
}

// Or is a disjunction.
type Or struct {
	Parts []Formula
}

// Exists is an existential condition. Body is a list because the parse tree
// allows it; lowering accepts exactly one element.
type Exists struct {
	Params []TypedName
	Body   []Formula
}

// Forall is a universal condition.
type Forall struct {
	Params []TypedName
	Body   []Formula
}

// Truth is the empty condition.
type Truth struct{}

func (Atom) formula()   {}
func (Not) formula()    {}
func (And) formula()    {}
func (Or) formula()     {}
func (Exists) formula() {}
func (Forall) formula() {}
func (Truth) formula()  {}

// ----- Effects -----

// Effect is an action effect tree.
type Effect interface {
	effect()
}

// Literal adds (or deletes, when Negated) a predicate atom.
type Literal struct {
	Atom    Atom
	Negated bool
}

// Assign updates a function value. Op is one of the Assign* constants.
type Assign struct {
	Op  string
	LHS Application
	RHS Term
}

// When is a conditional effect.
type When struct {
	Condition Formula
	Effect    Effect
}

// ForallEffect is a quantified effect.
type ForallEffect struct {
	Params []TypedName
	Effect Effect
}

// AndEffect groups effects.
type AndEffect struct {
	Parts []Effect
}

func (Literal) effect()      {}
func (Assign) effect()       {}
func (When) effect()         {}
func (ForallEffect) effect() {}
func (AndEffect) effect()    {}

// Assignment operators.
const (
	AssignSet       = "assign"
	AssignIncrease  = "increase"
	AssignDecrease  = "decrease"
	AssignScaleUp   = "scale-up"
	AssignScaleDown = "scale-down"
)

// EffectHeads returns the symbols affected by e, in encounter order and
// possibly repeated.
func EffectHeads(e Effect) []string {
	var heads []string
	var walk func(Effect)
	walk = func(e Effect) {
		switch v := e.(type) {
		case Literal:
			heads = append(heads, v.Atom.Symbol)
		case Assign:
			heads = append(heads, v.LHS.Symbol)
		case When:
			walk(v.Effect)
		case ForallEffect:
			walk(v.Effect)
		case AndEffect:
			for _, p := range v.Parts {
				walk(p)
			}
		}
	}
	if e != nil {
		walk(e)
	}
	return heads
}

// FormatTerm renders a term in prefix notation, for messages.
func FormatTerm(t Term) string {
	switch v := t.(type) {
	case Token:
		return v.Text
	case Application:
		parts := make([]string, 0, len(v.Args)+1)
		parts = append(parts, v.Symbol)
		for _, a := range v.Args {
			parts = append(parts, FormatTerm(a))
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return "?"
}
