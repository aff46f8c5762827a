// Package ast defines the typed expression tree produced by lowering.
//
// The node set is closed: every node type implements Node through an
// unexported marker method, and every consumer (Dump, Format, the ASP
// encoder) switches over the full set and reports an internal error on
// anything else.
package ast

// NodeKind identifies the kind of a node. It is also the "type" field of the
// node's dump record.
type NodeKind string

const (
	KindAtom           NodeKind = "atom"
	KindRelation       NodeKind = "relation"
	KindAnd            NodeKind = "and"
	KindOr             NodeKind = "or"
	KindNot            NodeKind = "not"
	KindExists         NodeKind = "exists"
	KindForall         NodeKind = "forall"
	KindStatic         NodeKind = "static"
	KindFluent         NodeKind = "fluent"
	KindExternal       NodeKind = "external"
	KindCost           NodeKind = "cost"
	KindArithmetic     NodeKind = "arithmetic"
	KindParameter      NodeKind = "parameter"
	KindConstant       NodeKind = "constant"
	KindIntConstant    NodeKind = "int_constant"
	KindNumberConstant NodeKind = "number_constant"
	KindTautology      NodeKind = "tautology"
)

// Node is a lowered formula or term.
type Node interface {
	Kind() NodeKind
	// Static reports whether the node's value is fixed without the state.
	Static() bool
	node()
}

// AtomicRelation applies a declared (or external) predicate.
type AtomicRelation struct {
	Symbol   string
	Args     []Node
	Negated  bool
	External bool
	// StaticSymbol is the static/fluent classification of Symbol.
	StaticSymbol bool
}

// Relation applies a builtin relational operator. Negation is folded into
// the operator during lowering.
type Relation struct {
	Op  string
	LHS Node
	RHS Node
}

// Open is a connective: and, or, not.
type Open struct {
	Connective NodeKind
	Children   []Node
}

// Quantified is an exists/forall formula. Unit is the binding unit extended
// with Variables; Body is resolved against it.
type Quantified struct {
	Quantifier NodeKind
	Variables  []Binding
	Unit       *BindingUnit
	Body       Node
}

// Functional applies a declared function symbol. Class is one of KindStatic,
// KindFluent, KindExternal or KindCost.
type Functional struct {
	Symbol string
	Class  NodeKind
	Args   []Node
}

// Arithmetic applies a builtin arithmetic operator.
type Arithmetic struct {
	Op   string
	Args []Node
}

// Parameter references a bound variable, resolved at dump time.
type Parameter struct {
	Name string
}

// Object is an object constant, resolved at dump time.
type Object struct {
	Name string
	Type string
}

// Numeric is a numeric constant.
type Numeric struct {
	Value   float64
	Integer bool
}

// Tautology is the empty condition.
type Tautology struct{}

func (AtomicRelation) Kind() NodeKind { return KindAtom }
func (Relation) Kind() NodeKind       { return KindRelation }
func (o Open) Kind() NodeKind         { return o.Connective }
func (q Quantified) Kind() NodeKind   { return q.Quantifier }
func (f Functional) Kind() NodeKind   { return f.Class }
func (Arithmetic) Kind() NodeKind     { return KindArithmetic }
func (Parameter) Kind() NodeKind      { return KindParameter }
func (Object) Kind() NodeKind         { return KindConstant }
func (Tautology) Kind() NodeKind      { return KindTautology }

func (n Numeric) Kind() NodeKind {
	if n.Integer {
		return KindIntConstant
	}
	return KindNumberConstant
}

func (a AtomicRelation) Static() bool { return a.StaticSymbol && allStatic(a.Args) }
func (r Relation) Static() bool       { return r.LHS.Static() && r.RHS.Static() }
func (o Open) Static() bool           { return allStatic(o.Children) }
func (q Quantified) Static() bool     { return q.Body.Static() }
func (Arithmetic) Static() bool       { return true }
func (Parameter) Static() bool        { return true }
func (Object) Static() bool           { return true }
func (Numeric) Static() bool          { return true }
func (Tautology) Static() bool        { return true }

func (f Functional) Static() bool {
	return (f.Class == KindStatic || f.Class == KindExternal) && allStatic(f.Args)
}

func (AtomicRelation) node() {}
func (Relation) node()       {}
func (Open) node()           {}
func (Quantified) node()     {}
func (Functional) node()     {}
func (Arithmetic) node()     {}
func (Parameter) node()      {}
func (Object) node()         {}
func (Numeric) node()        {}
func (Tautology) node()      {}

func allStatic(nodes []Node) bool {
	for _, n := range nodes {
		if !n.Static() {
			return false
		}
	}
	return true
}

// Negate returns the complement of a relational operator.
func Negate(op string) (string, bool) {
	switch op {
	case "=":
		return "!=", true
	case "!=":
		return "=", true
	case "<":
		return ">=", true
	case "<=":
		return ">", true
	case ">":
		return "<=", true
	case ">=":
		return "<", true
	}
	return "", false
}
