// Package static materializes the extensions of static symbols as
// arity-indexed tables and writes them as side files.
package static

import (
	"fmt"
	"slices"
	"strconv"

	"groundc/internal/index"
	"groundc/internal/lower"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
	"groundc/internal/typing"
	"groundc/internal/variables"
)

// Table is the extension of one static symbol. The variant set is closed.
type Table interface {
	Symbol() string
	// Rows renders the table one tuple per row: argument ids, followed by
	// the value for functions.
	Rows() [][]string
	table()
}

// Nullary holds a 0-ary symbol: "1"/"0" for predicates, the value for
// functions. Empty when a function has no initial value.
type Nullary struct {
	Name  string
	Value string
}

// UnarySet is the extension of a unary predicate.
type UnarySet struct {
	Name    string
	Members []int
}

// BinarySet is the extension of a binary predicate.
type BinarySet struct {
	Name  string
	Pairs [][2]int
}

// NarySet is the extension of a predicate of arity three or more.
type NarySet struct {
	Name   string
	Tuples [][]int
}

// Entry is one point of a function table.
type Entry struct {
	Key   []int
	Value string
}

// UnaryMap holds a unary function.
type UnaryMap struct {
	Name    string
	Entries []Entry
}

// BinaryMap holds a binary function.
type BinaryMap struct {
	Name    string
	Entries []Entry
}

// NaryMap holds a function of arity three or more.
type NaryMap struct {
	Name    string
	Entries []Entry
}

func (t Nullary) Symbol() string   { return t.Name }
func (t UnarySet) Symbol() string  { return t.Name }
func (t BinarySet) Symbol() string { return t.Name }
func (t NarySet) Symbol() string   { return t.Name }
func (t UnaryMap) Symbol() string  { return t.Name }
func (t BinaryMap) Symbol() string { return t.Name }
func (t NaryMap) Symbol() string   { return t.Name }

func (Nullary) table()   {}
func (UnarySet) table()  {}
func (BinarySet) table() {}
func (NarySet) table()   {}
func (UnaryMap) table()  {}
func (BinaryMap) table() {}
func (NaryMap) table()   {}

func (t Nullary) Rows() [][]string {
	if t.Value == "" {
		return nil
	}
	return [][]string{{t.Value}}
}

func (t UnarySet) Rows() [][]string {
	rows := make([][]string, len(t.Members))
	for i, m := range t.Members {
		rows[i] = []string{strconv.Itoa(m)}
	}
	return rows
}

func (t BinarySet) Rows() [][]string {
	rows := make([][]string, len(t.Pairs))
	for i, p := range t.Pairs {
		rows[i] = []string{strconv.Itoa(p[0]), strconv.Itoa(p[1])}
	}
	return rows
}

func (t NarySet) Rows() [][]string {
	rows := make([][]string, len(t.Tuples))
	for i, tuple := range t.Tuples {
		rows[i] = itoas(tuple)
	}
	return rows
}

func (t UnaryMap) Rows() [][]string  { return entryRows(t.Entries) }
func (t BinaryMap) Rows() [][]string { return entryRows(t.Entries) }
func (t NaryMap) Rows() [][]string   { return entryRows(t.Entries) }

func entryRows(entries []Entry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = append(itoas(e.Key), e.Value)
	}
	return rows
}

func itoas(xs []int) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strconv.Itoa(x)
	}
	return out
}

// Build creates one table per static symbol that is neither builtin,
// external nor the cost function, in symbol-table order.
func Build(ctx *index.Context, problem *syntax.Problem) ([]Table, error) {
	tuples := make(map[string][][]int)
	for _, atom := range problem.Atoms {
		sym, ok := ctx.Symbols.Lookup(atom.Symbol)
		if !ok || !tabled(ctx, sym) {
			continue
		}
		key, err := argIDs(ctx, sym, atom.Args)
		if err != nil {
			return nil, err
		}
		tuples[sym.Name] = append(tuples[sym.Name], key)
	}

	values := make(map[string][]Entry)
	for _, as := range problem.Assignments {
		sym, ok := ctx.Symbols.Lookup(as.LHS.Symbol)
		if !ok || !tabled(ctx, sym) {
			continue
		}
		key, err := argIDs(ctx, sym, as.LHS.Args)
		if err != nil {
			return nil, err
		}
		value, err := FunctionValue(ctx, sym, as.Value)
		if err != nil {
			return nil, err
		}
		values[sym.Name] = append(values[sym.Name], Entry{Key: key, Value: value})
	}

	var tables []Table
	for _, sym := range ctx.Symbols.Symbols() {
		if !tabled(ctx, sym) {
			continue
		}
		var t Table
		var err error
		if sym.Kind == index.KindPredicate {
			t = predicateTable(sym, tuples[sym.Name])
		} else {
			t, err = functionTable(sym, values[sym.Name])
		}
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, nil
}

func tabled(ctx *index.Context, sym *index.Symbol) bool {
	return ctx.Symbols.IsStatic(sym.Name) && !sym.External && !sym.Cost
}

func argIDs(ctx *index.Context, sym *index.Symbol, args []syntax.Term) ([]int, error) {
	if len(args) != sym.Arity() {
		return nil, taskerr.ParseStructure(taskerr.StageSerializing, sym.Name, "expected %d arguments, got %d", sym.Arity(), len(args))
	}
	key := make([]int, len(args))
	for i, a := range args {
		tok, ok := a.(syntax.Token)
		if !ok {
			return nil, taskerr.ParseStructure(taskerr.StageSerializing, sym.Name, "initial atom argument %s is not a constant", syntax.FormatTerm(a))
		}
		id, err := variables.ValueID(ctx, sym.Params[i], tok.Text)
		if err != nil {
			return nil, err
		}
		key[i] = id
	}
	return key, nil
}

// FunctionValue renders an initial function value: the literal for numeric
// codomains, the object id otherwise.
func FunctionValue(ctx *index.Context, sym *index.Symbol, v syntax.Term) (string, error) {
	tok, ok := v.(syntax.Token)
	if !ok {
		return "", taskerr.ParseStructure(taskerr.StageSerializing, sym.Name, "initial value %s is not a constant", syntax.FormatTerm(v))
	}
	if sym.Codomain == typing.Number || ctx.Types.IsNumeric(sym.Codomain) {
		n, ok := lower.ParseNumber(tok.Text)
		if !ok {
			return "", taskerr.Type(taskerr.StageSerializing, sym.Name, "initial value %q is not a number", tok.Text)
		}
		if n.Integer {
			return strconv.FormatInt(int64(n.Value), 10), nil
		}
		return strconv.FormatFloat(n.Value, 'g', -1, 64), nil
	}
	id, err := variables.ValueID(ctx, sym.Codomain, tok.Text)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(id), nil
}

func predicateTable(sym *index.Symbol, tuples [][]int) Table {
	slices.SortFunc(tuples, slices.Compare[[]int])
	tuples = slices.CompactFunc(tuples, slices.Equal[[]int])

	switch sym.Arity() {
	case 0:
		value := "0"
		if len(tuples) > 0 {
			value = "1"
		}
		return Nullary{Name: sym.Name, Value: value}
	case 1:
		members := make([]int, len(tuples))
		for i, t := range tuples {
			members[i] = t[0]
		}
		return UnarySet{Name: sym.Name, Members: members}
	case 2:
		pairs := make([][2]int, len(tuples))
		for i, t := range tuples {
			pairs[i] = [2]int{t[0], t[1]}
		}
		return BinarySet{Name: sym.Name, Pairs: pairs}
	}
	return NarySet{Name: sym.Name, Tuples: tuples}
}

func functionTable(sym *index.Symbol, entries []Entry) (Table, error) {
	slices.SortStableFunc(entries, func(a, b Entry) int { return slices.Compare(a.Key, b.Key) })
	for i := 1; i < len(entries); i++ {
		if slices.Equal(entries[i-1].Key, entries[i].Key) {
			return nil, taskerr.ParseStructure(taskerr.StageSerializing, sym.Name, "initial value assigned twice at %v", entries[i].Key)
		}
	}

	switch sym.Arity() {
	case 0:
		if len(entries) == 0 {
			return Nullary{Name: sym.Name}, nil
		}
		return Nullary{Name: sym.Name, Value: entries[0].Value}, nil
	case 1:
		return UnaryMap{Name: sym.Name, Entries: entries}, nil
	case 2:
		return BinaryMap{Name: sym.Name, Entries: entries}, nil
	}
	return NaryMap{Name: sym.Name, Entries: entries}, nil
}

// Describe returns the variant name of a table, for logs.
func Describe(t Table) string {
	switch t.(type) {
	case Nullary:
		return "nullary"
	case UnarySet:
		return "unary-set"
	case BinarySet:
		return "binary-set"
	case NarySet:
		return "nary-set"
	case UnaryMap:
		return "unary-map"
	case BinaryMap:
		return "binary-map"
	case NaryMap:
		return "nary-map"
	}
	return fmt.Sprintf("%T", t)
}
