package ast

import (
	"fmt"
	"strconv"
	"strings"

	"groundc/internal/taskerr"
)

// Resolver maps names to the integer ids used in dump records.
type Resolver interface {
	ObjectID(name string) (int, bool)
	SymbolID(name string) (int, bool)
}

// Dump renders n as a plain record. Parameters are resolved against unit,
// except below a Quantified node, whose body is resolved against the unit
// the node carries.
func Dump(n Node, r Resolver, unit *BindingUnit) (map[string]interface{}, error) {
	switch v := n.(type) {
	case AtomicRelation:
		subterms, err := dumpAll(v.Args, r, unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":      string(KindAtom),
			"symbol":    v.Symbol,
			"symbol_id": symbolID(r, v.Symbol),
			"subterms":  subterms,
			"negated":   v.Negated,
			"static":    v.Static(),
		}, nil

	case Relation:
		subterms, err := dumpAll([]Node{v.LHS, v.RHS}, r, unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":     string(KindRelation),
			"symbol":   v.Op,
			"subterms": subterms,
		}, nil

	case Open:
		children, err := dumpAll(v.Children, r, unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":     string(v.Connective),
			"children": children,
		}, nil

	case Quantified:
		vars := make([]map[string]interface{}, 0, len(v.Variables))
		for _, b := range v.Variables {
			pos, ok := v.Unit.ID(b.Name)
			if !ok {
				return nil, taskerr.Internal(taskerr.StageSerializing, b.Name, "quantified variable missing from its unit")
			}
			vars = append(vars, map[string]interface{}{
				"position": pos,
				"name":     b.Name,
				"typename": b.Type,
			})
		}
		body, err := Dump(v.Body, r, v.Unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":       string(v.Quantifier),
			"variables":  vars,
			"subformula": body,
		}, nil

	case Functional:
		subterms, err := dumpAll(v.Args, r, unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":      string(v.Class),
			"symbol":    v.Symbol,
			"symbol_id": symbolID(r, v.Symbol),
			"subterms":  subterms,
		}, nil

	case Arithmetic:
		subterms, err := dumpAll(v.Args, r, unit)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"type":     string(KindArithmetic),
			"symbol":   v.Op,
			"subterms": subterms,
		}, nil

	case Parameter:
		pos, ok := unit.ID(v.Name)
		if !ok {
			return nil, taskerr.UndeclaredSymbol(taskerr.StageSerializing, v.Name, "parameter not bound in scope")
		}
		typename, _ := unit.TypeName(v.Name)
		return map[string]interface{}{
			"type":     string(KindParameter),
			"position": pos,
			"name":     v.Name,
			"typename": typename,
		}, nil

	case Object:
		id, ok := r.ObjectID(v.Name)
		if !ok {
			return nil, taskerr.UndeclaredSymbol(taskerr.StageSerializing, v.Name, "object not declared")
		}
		return map[string]interface{}{
			"type":     string(KindConstant),
			"value":    id,
			"typename": v.Type,
		}, nil

	case Numeric:
		var value interface{} = v.Value
		if v.Integer {
			value = int64(v.Value)
		}
		return map[string]interface{}{
			"type":  string(v.Kind()),
			"value": value,
		}, nil

	case Tautology:
		return map[string]interface{}{"type": string(KindTautology)}, nil
	}
	return nil, taskerr.Internal(taskerr.StageSerializing, fmt.Sprintf("%T", n), "unknown node type")
}

func dumpAll(nodes []Node, r Resolver, unit *BindingUnit) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		rec, err := Dump(n, r, unit)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// symbolID is -1 for undeclared external symbols.
func symbolID(r Resolver, name string) int {
	if id, ok := r.SymbolID(name); ok {
		return id
	}
	return -1
}

// Format renders n in prefix notation, for logs and error messages.
func Format(n Node) string {
	switch v := n.(type) {
	case AtomicRelation:
		s := formatApp(v.Symbol, v.Args)
		if v.Negated {
			return "(not " + s + ")"
		}
		return s
	case Relation:
		return formatApp(v.Op, []Node{v.LHS, v.RHS})
	case Open:
		return formatApp(string(v.Connective), v.Children)
	case Quantified:
		params := make([]string, len(v.Variables))
		for i, b := range v.Variables {
			params[i] = b.Name + " - " + b.Type
		}
		return fmt.Sprintf("(%s (%s) %s)", v.Quantifier, strings.Join(params, " "), Format(v.Body))
	case Functional:
		return formatApp(v.Symbol, v.Args)
	case Arithmetic:
		return formatApp(v.Op, v.Args)
	case Parameter:
		return v.Name
	case Object:
		return v.Name
	case Numeric:
		if v.Integer {
			return strconv.FormatInt(int64(v.Value), 10)
		}
		return strconv.FormatFloat(v.Value, 'g', -1, 64)
	case Tautology:
		return "(and)"
	}
	return fmt.Sprintf("<%T>", n)
}

func formatApp(head string, args []Node) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(head)
	for _, a := range args {
		b.WriteString(" ")
		b.WriteString(Format(a))
	}
	b.WriteString(")")
	return b.String()
}

// Walk calls fn for n and every node below it, depth first.
func Walk(n Node, fn func(Node)) {
	fn(n)
	switch v := n.(type) {
	case AtomicRelation:
		walkAll(v.Args, fn)
	case Relation:
		Walk(v.LHS, fn)
		Walk(v.RHS, fn)
	case Open:
		walkAll(v.Children, fn)
	case Quantified:
		Walk(v.Body, fn)
	case Functional:
		walkAll(v.Args, fn)
	case Arithmetic:
		walkAll(v.Args, fn)
	}
}

func walkAll(nodes []Node, fn func(Node)) {
	for _, n := range nodes {
		Walk(n, fn)
	}
}
