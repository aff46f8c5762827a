// Package variables enumerates the ground state variables of a task.
package variables

import (
	"slices"
	"strconv"
	"strings"

	"groundc/internal/index"
	"groundc/internal/taskerr"
)

// Variable is a fluent symbol applied to concrete arguments. Point holds
// the argument ids: object ids, or the integer value for numeric arguments.
type Variable struct {
	Symbol string
	Args   []string
	Point  []int
}

// String renders the variable as symbol(arg, ...).
func (v Variable) String() string {
	return v.Symbol + "(" + strings.Join(v.Args, ", ") + ")"
}

// Index is an append-only table of state variables with dense ids.
type Index struct {
	vars     []Variable
	ids      map[string]int
	bySymbol map[string][]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{ids: make(map[string]int), bySymbol: make(map[string][]int)}
}

// Add appends v and returns its id. Adding a variable twice is a bug in the
// caller.
func (idx *Index) Add(v Variable) (int, error) {
	key := v.String()
	if _, dup := idx.ids[key]; dup {
		return 0, taskerr.Internal(taskerr.StageVariables, key, "state variable added twice")
	}
	id := len(idx.vars)
	idx.vars = append(idx.vars, v)
	idx.ids[key] = id
	idx.bySymbol[v.Symbol] = append(idx.bySymbol[v.Symbol], id)
	return id, nil
}

// ID returns the id of a variable.
func (idx *Index) ID(v Variable) (int, bool) {
	id, ok := idx.ids[v.String()]
	return id, ok
}

// Lookup returns the id of symbol applied to args.
func (idx *Index) Lookup(symbol string, args []string) (int, bool) {
	return idx.ID(Variable{Symbol: symbol, Args: args})
}

// Variables returns all variables in id order.
func (idx *Index) Variables() []Variable {
	return idx.vars
}

// Len returns the number of variables.
func (idx *Index) Len() int {
	return len(idx.vars)
}

// BySymbol returns the ids of the variables of one symbol, in id order.
func (idx *Index) BySymbol(name string) []int {
	return idx.bySymbol[name]
}

// Exhaustive instantiates every grounded fluent symbol over the Cartesian
// product of its argument type extensions, in symbol-table order.
func Exhaustive(ctx *index.Context) (*Index, error) {
	idx := NewIndex()
	for _, sym := range ctx.Symbols.Symbols() {
		if !sym.Grounded() || !ctx.Symbols.IsFluent(sym.Name) {
			continue
		}

		domains := make([][]string, len(sym.Params))
		for i, t := range sym.Params {
			domains[i] = ctx.Types.Extension(t)
		}

		var err error
		product(domains, func(args []string) bool {
			var v Variable
			if v, err = newVariable(ctx, sym, args); err != nil {
				return false
			}
			_, err = idx.Add(v)
			return err == nil
		})
		if err != nil {
			return nil, err
		}
	}
	return idx, nil
}

// Directed instantiates only the predicate tuples found reachable by the
// grounder. groundings maps predicate names to argument tuples of ids.
// Fluent functions cannot be instantiated this way.
func Directed(ctx *index.Context, groundings map[string][][]int) (*Index, error) {
	idx := NewIndex()
	for _, sym := range ctx.Symbols.Symbols() {
		if !sym.Grounded() || !ctx.Symbols.IsFluent(sym.Name) {
			continue
		}
		if sym.Kind == index.KindFunction {
			return nil, taskerr.UnsupportedFeature(taskerr.StageVariables, sym.Name, "fluent functions cannot be instantiated from reachability groundings")
		}

		tuples := slices.Clone(groundings[sym.Name])
		slices.SortFunc(tuples, slices.Compare[[]int])
		tuples = slices.CompactFunc(tuples, slices.Equal[[]int])

		for _, tuple := range tuples {
			if len(tuple) != sym.Arity() {
				return nil, taskerr.Internal(taskerr.StageVariables, sym.Name, "grounding has %d arguments, want %d", len(tuple), sym.Arity())
			}
			args := make([]string, len(tuple))
			for i, id := range tuple {
				name, err := valueName(ctx, sym.Params[i], id)
				if err != nil {
					return nil, err
				}
				args[i] = name
			}
			if _, err := idx.Add(Variable{Symbol: sym.Name, Args: args, Point: slices.Clone(tuple)}); err != nil {
				return nil, err
			}
		}
	}
	return idx, nil
}

func newVariable(ctx *index.Context, sym *index.Symbol, args []string) (Variable, error) {
	v := Variable{Symbol: sym.Name, Args: slices.Clone(args), Point: make([]int, len(args))}
	for i, a := range args {
		id, err := ValueID(ctx, sym.Params[i], a)
		if err != nil {
			return Variable{}, err
		}
		v.Point[i] = id
	}
	return v, nil
}

// ValueID maps an argument of type t to its integer id: the object id, or
// the value itself for numeric types.
func ValueID(ctx *index.Context, t, value string) (int, error) {
	if ctx.Types.IsNumeric(t) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, taskerr.Type(taskerr.StageVariables, value, "not an integer value of type %s", t)
		}
		return n, nil
	}
	id, ok := ctx.Objects.ID(value)
	if !ok {
		return 0, taskerr.UndeclaredSymbol(taskerr.StageVariables, value, "object not declared")
	}
	return id, nil
}

func valueName(ctx *index.Context, t string, id int) (string, error) {
	if ctx.Types.IsNumeric(t) {
		return strconv.Itoa(id), nil
	}
	name, ok := ctx.Objects.Name(id)
	if !ok {
		return "", taskerr.Internal(taskerr.StageVariables, strconv.Itoa(id), "object id out of range")
	}
	return name, nil
}

// product calls fn for every tuple of the Cartesian product of domains, with
// the last position varying fastest. fn returns false to stop.
func product(domains [][]string, fn func([]string) bool) {
	for _, d := range domains {
		if len(d) == 0 {
			return
		}
	}
	tuple := make([]string, len(domains))
	var rec func(int) bool
	rec = func(pos int) bool {
		if pos == len(domains) {
			return fn(tuple)
		}
		for _, v := range domains[pos] {
			tuple[pos] = v
			if !rec(pos + 1) {
				return false
			}
		}
		return true
	}
	rec(0)
}
