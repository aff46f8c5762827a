package task

import (
	"strconv"

	"groundc/internal/cas"
	"groundc/internal/index"
	"groundc/internal/lower"
	"groundc/internal/schema"
	"groundc/internal/static"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
	"groundc/internal/typing"
	"groundc/internal/variables"
)

// Type representations.
const (
	ReprSet       = "set"
	ReprInterval  = "interval"
	ReprUnbounded = "unbounded"
)

// Document is the serialized task handed to the planner.
type Document struct {
	Types            []TypeRecord             `json:"types"`
	Objects          []ObjectRecord           `json:"objects"`
	Symbols          []SymbolRecord           `json:"symbols"`
	Variables        []VariableRecord         `json:"variables"`
	Init             InitRecord               `json:"init"`
	Goal             map[string]interface{}   `json:"goal"`
	StateConstraints map[string]interface{}   `json:"state_constraints"`
	Axioms           []map[string]interface{} `json:"axioms"`
	ActionSchemata   []map[string]interface{} `json:"action_schemata"`
	Metric           map[string]interface{}   `json:"metric,omitempty"`

	// Digest is the BLAKE3 digest of the canonical JSON of every other
	// field. It is left out of its own input.
	Digest string `json:"digest,omitempty"`
}

type TypeRecord struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	Parent         string   `json:"parent,omitempty"`
	Supertypes     []string `json:"supertypes"`
	Representation string   `json:"representation"`
	Lower          *int     `json:"lower,omitempty"`
	Upper          *int     `json:"upper,omitempty"`
	Objects        []int    `json:"objects,omitempty"`
}

type ObjectRecord struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SymbolRecord struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Signature []int  `json:"signature"`
	Codomain  string `json:"codomain"`
	Fluent    bool   `json:"fluent"`
	External  bool   `json:"external,omitempty"`
	Variadic  bool   `json:"variadic,omitempty"`
	Cost      bool   `json:"cost,omitempty"`
	Derived   bool   `json:"derived,omitempty"`
	DataFile  string `json:"data_file,omitempty"`
	// Variables lists the ids of the state variables the symbol owns.
	Variables []int  `json:"variables"`
}

type VariableRecord struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"fstype"`
	Symbol    int    `json:"symbol_id"`
	Signature []int  `json:"signature"`
	Point     []int  `json:"point"`
}

// InitRecord is the initial state: the variable count and one [id, value]
// pair per variable, sorted by id.
type InitRecord struct {
	Variables int             `json:"variables"`
	Atoms     [][]interface{} `json:"atoms"`
}

type documentInput struct {
	ctx        *index.Context
	problem    *syntax.Problem
	vars       *variables.Index
	actions    []*schema.ActionSchema
	axioms     []*schema.Axiom
	goal       goalNodes
	metric     *schema.Metric
	tables     []static.Table
	compressed bool
}

func buildDocument(in documentInput) (*Document, error) {
	doc := &Document{
		Types:     typeRecords(in.ctx),
		Objects:   objectRecords(in.ctx),
		Symbols:   symbolRecords(in.ctx, in.vars, in.tables, in.compressed),
		Variables: variableRecords(in.ctx, in.vars),
	}

	init, err := initRecord(in.ctx, in.problem, in.vars)
	if err != nil {
		return nil, err
	}
	doc.Init = init

	if doc.Goal, err = dumpNode(in.ctx, in.goal.goal); err != nil {
		return nil, err
	}
	if doc.StateConstraints, err = dumpNode(in.ctx, in.goal.constraints); err != nil {
		return nil, err
	}

	doc.Axioms = make([]map[string]interface{}, 0, len(in.axioms))
	for _, ax := range in.axioms {
		rec, err := ax.Dump(in.ctx)
		if err != nil {
			return nil, err
		}
		doc.Axioms = append(doc.Axioms, rec)
	}

	doc.ActionSchemata = make([]map[string]interface{}, 0, len(in.actions))
	for _, s := range in.actions {
		rec, err := s.Dump(in.ctx)
		if err != nil {
			return nil, err
		}
		doc.ActionSchemata = append(doc.ActionSchemata, rec)
	}

	if in.metric != nil {
		if doc.Metric, err = in.metric.Dump(in.ctx); err != nil {
			return nil, err
		}
	}

	digest, err := cas.Digest(doc)
	if err != nil {
		return nil, taskerr.Internal(taskerr.StageSerializing, "digest", "hashing document: %v", err)
	}
	doc.Digest = digest
	return doc, nil
}

func typeRecords(ctx *index.Context) []TypeRecord {
	types := ctx.Types.Types()
	out := make([]TypeRecord, len(types))
	for i, name := range types {
		rec := TypeRecord{
			ID:         i,
			Name:       name,
			Parent:     ctx.Types.Parent(name),
			Supertypes: append([]string{}, ctx.Types.Supertypes(name)...),
		}
		switch iv, bounded := ctx.Types.Bound(name); {
		case bounded:
			lo, hi := iv.Lower, iv.Upper
			rec.Representation, rec.Lower, rec.Upper = ReprInterval, &lo, &hi
		case ctx.Types.IsNumeric(name):
			rec.Representation = ReprUnbounded
		default:
			rec.Representation = ReprSet
			rec.Objects = []int{}
			for _, obj := range ctx.Types.Extension(name) {
				id, _ := ctx.Objects.ID(obj)
				rec.Objects = append(rec.Objects, id)
			}
		}
		out[i] = rec
	}
	return out
}

func objectRecords(ctx *index.Context) []ObjectRecord {
	names := ctx.Objects.Names()
	out := make([]ObjectRecord, len(names))
	for i, name := range names {
		out[i] = ObjectRecord{ID: i, Name: name, Type: ctx.Objects.TypeOf(name)}
	}
	return out
}

func symbolRecords(ctx *index.Context, vars *variables.Index, tables []static.Table, compressed bool) []SymbolRecord {
	files := make(map[string]string, len(tables))
	for _, t := range tables {
		files[t.Symbol()] = static.FileName(t, compressed)
	}

	syms := ctx.Symbols.Symbols()
	out := make([]SymbolRecord, len(syms))
	for i, sym := range syms {
		out[i] = SymbolRecord{
			ID:        sym.ID,
			Name:      sym.Name,
			Kind:      string(sym.Kind),
			Signature: signature(ctx, sym),
			Codomain:  sym.Codomain,
			Fluent:    ctx.Symbols.IsFluent(sym.Name),
			External:  sym.External,
			Variadic:  sym.Variadic,
			Cost:      sym.Cost,
			Derived:   sym.Derived,
			DataFile:  files[sym.Name],
			Variables: append([]int{}, vars.BySymbol(sym.Name)...),
		}
	}
	return out
}

func signature(ctx *index.Context, sym *index.Symbol) []int {
	out := make([]int, len(sym.Params))
	for i, p := range sym.Params {
		out[i], _ = ctx.Types.ID(p)
	}
	return out
}

func variableRecords(ctx *index.Context, vars *variables.Index) []VariableRecord {
	out := make([]VariableRecord, 0, vars.Len())
	for i, v := range vars.Variables() {
		sym, _ := ctx.Symbols.Lookup(v.Symbol)
		out = append(out, VariableRecord{
			ID:        i,
			Name:      v.String(),
			Type:      sym.Codomain,
			Symbol:    sym.ID,
			Signature: signature(ctx, sym),
			Point:     v.Point,
		})
	}
	return out
}

// initRecord assigns every state variable its initial value. Predicative
// variables not listed in the problem are false. A fluent function variable
// must be given a value.
func initRecord(ctx *index.Context, problem *syntax.Problem, vars *variables.Index) (InitRecord, error) {
	values := make(map[int]interface{}, vars.Len())

	for _, atom := range problem.Atoms {
		if !ctx.Symbols.IsFluent(atom.Symbol) {
			continue
		}
		args, err := constantArgs(atom.Symbol, atom.Args)
		if err != nil {
			return InitRecord{}, err
		}
		id, ok := vars.Lookup(atom.Symbol, args)
		if !ok {
			return InitRecord{}, taskerr.Type(taskerr.StageSerializing, atom.Symbol, "initial atom (%s %v) is not a state variable", atom.Symbol, args)
		}
		values[id] = index.TrueID
	}

	for _, as := range problem.Assignments {
		sym, ok := ctx.Symbols.Lookup(as.LHS.Symbol)
		if !ok {
			return InitRecord{}, taskerr.UndeclaredSymbol(taskerr.StageSerializing, as.LHS.Symbol, "initial value of an undeclared function")
		}
		if !sym.Grounded() || !ctx.Symbols.IsFluent(sym.Name) {
			continue
		}
		args, err := constantArgs(sym.Name, as.LHS.Args)
		if err != nil {
			return InitRecord{}, err
		}
		id, ok := vars.Lookup(sym.Name, args)
		if !ok {
			return InitRecord{}, taskerr.Type(taskerr.StageSerializing, sym.Name, "initial value of (%s %v) is not a state variable", sym.Name, args)
		}
		text, err := static.FunctionValue(ctx, sym, as.Value)
		if err != nil {
			return InitRecord{}, err
		}
		values[id] = jsonValue(ctx, sym, text)
	}

	atoms := make([][]interface{}, 0, vars.Len())
	for id, v := range vars.Variables() {
		value, ok := values[id]
		if !ok {
			sym, _ := ctx.Symbols.Lookup(v.Symbol)
			if sym.Kind == index.KindFunction {
				return InitRecord{}, taskerr.ParseStructure(taskerr.StageSerializing, v.String(), "fluent function has no initial value")
			}
			value = index.FalseID
		}
		atoms = append(atoms, []interface{}{id, value})
	}
	return InitRecord{Variables: vars.Len(), Atoms: atoms}, nil
}

func constantArgs(symbol string, args []syntax.Term) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		tok, ok := a.(syntax.Token)
		if !ok {
			return nil, taskerr.ParseStructure(taskerr.StageSerializing, symbol, "initial argument %s is not a constant", syntax.FormatTerm(a))
		}
		out[i] = tok.Text
	}
	return out, nil
}

func jsonValue(ctx *index.Context, sym *index.Symbol, text string) interface{} {
	if sym.Codomain == typing.Number || ctx.Types.IsNumeric(sym.Codomain) {
		n, _ := lower.ParseNumber(text)
		if n.Integer {
			return int64(n.Value)
		}
		return n.Value
	}
	id, _ := strconv.Atoi(text)
	return id
}
