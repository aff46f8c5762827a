package asp

import (
	"strconv"
	"strings"

	"groundc/internal/index"
	"groundc/internal/schema"
)

// Aliases maps compiler names to identifiers that are valid ASP constants.
// Objects, types and symbols are aliased by id; actions by their position in
// the schema list.
type Aliases struct {
	ctx     *index.Context
	actions []string
	byAlias map[string]string
}

// NewAliases builds the alias table for a context and its compiled actions.
func NewAliases(ctx *index.Context, actions []*schema.ActionSchema) *Aliases {
	a := &Aliases{ctx: ctx, byAlias: make(map[string]string)}
	for _, s := range actions {
		a.byAlias[ActionAlias(len(a.actions))] = s.Name
		a.actions = append(a.actions, s.Name)
	}
	for _, sym := range ctx.Symbols.Symbols() {
		switch sym.Kind {
		case index.KindPredicate:
			a.byAlias[PredicateAlias(sym.ID)] = sym.Name
			a.byAlias[NegatedAlias(sym.ID)] = sym.Name
		case index.KindFunction:
			a.byAlias[FunctionAlias(sym.ID)] = sym.Name
		}
	}
	return a
}

func ObjectAlias(id int) string    { return "o" + strconv.Itoa(id) }
func TypeAlias(id int) string      { return "t" + strconv.Itoa(id) }
func PredicateAlias(id int) string { return "p" + strconv.Itoa(id) }
func NegatedAlias(id int) string   { return "np" + strconv.Itoa(id) }
func FunctionAlias(id int) string  { return "f" + strconv.Itoa(id) }
func ActionAlias(n int) string     { return "a" + strconv.Itoa(n) }
func ConditionAlias(n int) string  { return "c" + strconv.Itoa(n) }

// Object returns the alias of a named object.
func (a *Aliases) Object(name string) (string, bool) {
	id, ok := a.ctx.Objects.ID(name)
	if !ok {
		return "", false
	}
	return ObjectAlias(id), true
}

// Type returns the alias of a type.
func (a *Aliases) Type(name string) (string, bool) {
	id, ok := a.ctx.Types.ID(name)
	if !ok {
		return "", false
	}
	return TypeAlias(id), true
}

// Predicate returns the alias of a predicate, or of its negation.
func (a *Aliases) Predicate(name string, negated bool) (string, bool) {
	sym, ok := a.ctx.Symbols.Lookup(name)
	if !ok || sym.Kind != index.KindPredicate {
		return "", false
	}
	if negated {
		return NegatedAlias(sym.ID), true
	}
	return PredicateAlias(sym.ID), true
}

// Action returns the alias of the n-th action.
func (a *Aliases) Action(n int) string {
	return ActionAlias(n)
}

// Symbol resolves a predicate, negated-predicate, function or action alias
// back to its name.
func (a *Aliases) Symbol(alias string) (string, bool) {
	name, ok := a.byAlias[alias]
	return name, ok
}

// ObjectID parses an object alias.
func ObjectID(alias string) (int, bool) {
	if !strings.HasPrefix(alias, "o") {
		return 0, false
	}
	id, err := strconv.Atoi(alias[1:])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
