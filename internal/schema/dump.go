package schema

import (
	"groundc/internal/ast"
	"groundc/internal/index"
	"groundc/internal/taskerr"
)

// DumpBindings renders a unit as [{position, name, typename}].
func DumpBindings(unit *ast.BindingUnit) []map[string]interface{} {
	bindings := unit.Bindings()
	out := make([]map[string]interface{}, len(bindings))
	for i, b := range bindings {
		out[i] = map[string]interface{}{
			"position": i,
			"name":     b.Name,
			"typename": b.Type,
		}
	}
	return out
}

// Dump renders the schema as a plain record.
func (s *ActionSchema) Dump(ctx *index.Context) (map[string]interface{}, error) {
	signature := make([]int, len(s.Params))
	for i, p := range s.Params {
		id, ok := ctx.TypeID(p.Type)
		if !ok {
			return nil, taskerr.Type(taskerr.StageSerializing, p.Name, "unknown type %q", p.Type)
		}
		signature[i] = id
	}

	conditions, err := ast.Dump(s.Precondition, ctx, s.Unit)
	if err != nil {
		return nil, err
	}

	effects := make([]map[string]interface{}, 0, len(s.Effects))
	for _, e := range s.Effects {
		rec, err := e.dump(ctx)
		if err != nil {
			return nil, err
		}
		effects = append(effects, rec)
	}

	out := map[string]interface{}{
		"name":       s.Name,
		"signature":  signature,
		"parameters": DumpBindings(s.Unit),
		"conditions": conditions,
		"effects":    effects,
	}
	if s.Groundings != nil {
		out["groundings"] = s.Groundings
	}
	return out, nil
}

func (e Effect) dump(ctx *index.Context) (map[string]interface{}, error) {
	condition, err := ast.Dump(e.Condition, ctx, e.Unit)
	if err != nil {
		return nil, err
	}
	lhs, err := ast.Dump(e.LHS, ctx, e.Unit)
	if err != nil {
		return nil, err
	}
	rhs, err := ast.Dump(e.RHS, ctx, e.Unit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"type":      string(e.Kind),
		"variables": DumpBindings(e.Unit),
		"condition": condition,
		"lhs":       lhs,
		"rhs":       rhs,
	}, nil
}

// Dump renders the axiom as a plain record.
func (a *Axiom) Dump(ctx *index.Context) (map[string]interface{}, error) {
	body, err := ast.Dump(a.Body, ctx, a.Unit)
	if err != nil {
		return nil, err
	}
	id, _ := ctx.SymbolID(a.Name)
	return map[string]interface{}{
		"name":       a.Name,
		"symbol_id":  id,
		"parameters": DumpBindings(a.Unit),
		"formula":    body,
	}, nil
}

// Dump renders the metric as a plain record.
func (m *Metric) Dump(ctx *index.Context) (map[string]interface{}, error) {
	expr, err := ast.Dump(m.Expression, ctx, nil)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"optimization": m.Optimization,
		"expression":   expr,
	}, nil
}
