package syntax

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"groundc/internal/taskerr"
)

// Document forms. Formulas, terms and effects are s-expressions written as
// YAML (or JSON) sequences: [and, [clear, "?x"], [not, [handempty]]].

type rawSymbol struct {
	Name     string      `yaml:"name"`
	Params   []yaml.Node `yaml:"params"`
	Type     string      `yaml:"type"`
	Variadic bool        `yaml:"variadic"`
}

type rawAction struct {
	Name         string      `yaml:"name"`
	Params       []yaml.Node `yaml:"params"`
	Precondition yaml.Node   `yaml:"precondition"`
	Effect       yaml.Node   `yaml:"effect"`
}

type rawAxiom struct {
	Name    string      `yaml:"name"`
	Params  []yaml.Node `yaml:"params"`
	Formula yaml.Node   `yaml:"formula"`
}

type rawDomain struct {
	Domain     string      `yaml:"domain"`
	Types      []TypeDecl  `yaml:"types"`
	Constants  []TypedName `yaml:"constants"`
	Predicates []rawSymbol `yaml:"predicates"`
	Functions  []rawSymbol `yaml:"functions"`
	Bounds     []BoundDecl `yaml:"bounds"`
	Actions    []rawAction `yaml:"actions"`
	Axioms     []rawAxiom  `yaml:"axioms"`
}

type rawMetric struct {
	Optimization string    `yaml:"optimization"`
	Expression   yaml.Node `yaml:"expression"`
}

type rawProblem struct {
	Problem     string      `yaml:"problem"`
	Domain      string      `yaml:"domain"`
	Objects     []TypedName `yaml:"objects"`
	Init        []yaml.Node `yaml:"init"`
	Goal        yaml.Node   `yaml:"goal"`
	Constraints yaml.Node   `yaml:"constraints"`
	Metric      *rawMetric  `yaml:"metric"`
}

// LoadDomain reads and decodes a domain document.
func LoadDomain(path string) (*Domain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain file: %w", err)
	}
	return DecodeDomain(data)
}

// LoadProblem reads and decodes a problem document.
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading problem file: %w", err)
	}
	return DecodeProblem(data)
}

// DecodeDomain decodes a domain document.
func DecodeDomain(data []byte) (*Domain, error) {
	var raw rawDomain
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, taskerr.ParseStructure(taskerr.StageDecode, "domain", "invalid document").WithCause(err)
	}

	d := &Domain{
		Name:      raw.Domain,
		Types:     raw.Types,
		Constants: defaultTypes(raw.Constants),
		Bounds:    raw.Bounds,
	}
	for i := range d.Types {
		if d.Types[i].Parent == "" {
			d.Types[i].Parent = "object"
		}
	}

	var err error
	if d.Predicates, err = decodeSymbols(raw.Predicates, false); err != nil {
		return nil, err
	}
	if d.Functions, err = decodeSymbols(raw.Functions, true); err != nil {
		return nil, err
	}

	for _, ra := range raw.Actions {
		a := ActionDecl{Name: ra.Name}
		if a.Params, err = decodeParams(ra.Params); err != nil {
			return nil, err
		}
		if a.Precondition, err = decodeFormula(&ra.Precondition); err != nil {
			return nil, fmt.Errorf("action %s precondition: %w", ra.Name, err)
		}
		if a.Effect, err = decodeEffect(&ra.Effect); err != nil {
			return nil, fmt.Errorf("action %s effect: %w", ra.Name, err)
		}
		d.Actions = append(d.Actions, a)
	}

	for _, rx := range raw.Axioms {
		ax := AxiomDecl{Name: rx.Name}
		if ax.Params, err = decodeParams(rx.Params); err != nil {
			return nil, err
		}
		if ax.Formula, err = decodeFormula(&rx.Formula); err != nil {
			return nil, fmt.Errorf("axiom %s: %w", rx.Name, err)
		}
		d.Axioms = append(d.Axioms, ax)
	}

	return d, nil
}

// DecodeProblem decodes a problem document.
func DecodeProblem(data []byte) (*Problem, error) {
	var raw rawProblem
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, taskerr.ParseStructure(taskerr.StageDecode, "problem", "invalid document").WithCause(err)
	}

	p := &Problem{
		Name:    raw.Problem,
		Domain:  raw.Domain,
		Objects: defaultTypes(raw.Objects),
	}

	for i := range raw.Init {
		if err := p.decodeInit(&raw.Init[i]); err != nil {
			return nil, fmt.Errorf("init: %w", err)
		}
	}

	var err error
	if p.Goal, err = decodeFormula(&raw.Goal); err != nil {
		return nil, fmt.Errorf("goal: %w", err)
	}
	if p.Constraints, err = decodeFormula(&raw.Constraints); err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}

	if raw.Metric != nil {
		expr, err := decodeTerm(&raw.Metric.Expression)
		if err != nil {
			return nil, fmt.Errorf("metric: %w", err)
		}
		opt := raw.Metric.Optimization
		if opt == "" {
			opt = "minimize"
		}
		p.Metric = &Metric{Optimization: opt, Expression: expr}
	}

	return p, nil
}

func (p *Problem) decodeInit(n *yaml.Node) error {
	head, args, err := splitSeq(n)
	if err != nil {
		return err
	}
	if head == "=" {
		if len(args) != 2 || args[0].Kind != yaml.SequenceNode {
			return structureErr(n, "initial assignment must be [=, [f, args...], value]")
		}
		lhs, err := decodeApplication(args[0])
		if err != nil {
			return err
		}
		value, err := decodeTerm(args[1])
		if err != nil {
			return err
		}
		p.Assignments = append(p.Assignments, Assignment{LHS: lhs, Value: value})
		return nil
	}
	atom, err := decodeAtom(head, args)
	if err != nil {
		return err
	}
	p.Atoms = append(p.Atoms, atom)
	return nil
}

func defaultTypes(names []TypedName) []TypedName {
	for i := range names {
		if names[i].Type == "" {
			names[i].Type = "object"
		}
	}
	return names
}

func decodeSymbols(raw []rawSymbol, functions bool) ([]SymbolDecl, error) {
	out := make([]SymbolDecl, 0, len(raw))
	for _, rs := range raw {
		params, err := decodeParams(rs.Params)
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", rs.Name, err)
		}
		sym := SymbolDecl{Name: rs.Name, Params: params, Variadic: rs.Variadic}
		if functions {
			sym.Codomain = rs.Type
			if sym.Codomain == "" {
				sym.Codomain = "number"
			}
		}
		out = append(out, sym)
	}
	return out, nil
}

// decodeParams accepts both {name: "?x", type: block} mappings and the
// compact "?x - block" scalar form.
func decodeParams(nodes []yaml.Node) ([]TypedName, error) {
	params := make([]TypedName, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		switch n.Kind {
		case yaml.MappingNode:
			var tn TypedName
			if err := n.Decode(&tn); err != nil {
				return nil, structureErr(n, "invalid parameter: %v", err)
			}
			if tn.Type == "" {
				tn.Type = "object"
			}
			params = append(params, tn)
		case yaml.ScalarNode:
			name, typ, found := strings.Cut(n.Value, " - ")
			tn := TypedName{Name: strings.TrimSpace(name), Type: "object"}
			if found {
				tn.Type = strings.TrimSpace(typ)
			}
			params = append(params, tn)
		default:
			return nil, structureErr(n, "parameter must be a mapping or \"?x - type\"")
		}
	}
	return params, nil
}

func decodeParamList(n *yaml.Node) ([]TypedName, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, structureErr(n, "quantifier requires a parameter list")
	}
	items := make([]yaml.Node, len(n.Content))
	for i, c := range n.Content {
		items[i] = *c
	}
	return decodeParams(items)
}

// splitSeq returns the head symbol and argument nodes of an s-expression.
func splitSeq(n *yaml.Node) (string, []*yaml.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return "", nil, structureErr(n, "expected a list, got %s", kindName(n))
	}
	if len(n.Content) == 0 {
		return "", nil, nil
	}
	head := n.Content[0]
	if head.Kind != yaml.ScalarNode {
		return "", nil, structureErr(head, "list head must be a symbol")
	}
	return head.Value, n.Content[1:], nil
}

func decodeFormula(n *yaml.Node) (Formula, error) {
	if n.Kind == 0 {
		return Truth{}, nil
	}
	head, args, err := splitSeq(n)
	if err != nil {
		return nil, err
	}

	switch head {
	case "":
		return Truth{}, nil
	case "and", "or":
		parts := make([]Formula, 0, len(args))
		for _, a := range args {
			f, err := decodeFormula(a)
			if err != nil {
				return nil, err
			}
			parts = append(parts, f)
		}
		if head == "and" {
			return And{Parts: parts}, nil
		}
		return Or{Parts: parts}, nil
	case "not":
		if len(args) != 1 {
			return nil, structureErr(n, "not takes exactly one argument")
		}
		body, err := decodeFormula(args[0])
		if err != nil {
			return nil, err
		}
		return Not{Body: body}, nil
	case "imply":
		if len(args) != 2 {
			return nil, structureErr(n, "imply takes exactly two arguments")
		}
		a, err := decodeFormula(args[0])
		if err != nil {
			return nil, err
		}
		b, err := decodeFormula(args[1])
		if err != nil {
			return nil, err
		}
		return Or{Parts: []Formula{Not{Body: a}, b}}, nil
	case "exists", "forall":
		if len(args) == 0 {
			return nil, structureErr(n, "%s requires a parameter list", head)
		}
		params, err := decodeParamList(args[0])
		if err != nil {
			return nil, err
		}
		body := make([]Formula, 0, len(args)-1)
		for _, a := range args[1:] {
			f, err := decodeFormula(a)
			if err != nil {
				return nil, err
			}
			body = append(body, f)
		}
		if head == "exists" {
			return Exists{Params: params, Body: body}, nil
		}
		return Forall{Params: params, Body: body}, nil
	}

	return decodeAtom(head, args)
}

func decodeAtom(head string, args []*yaml.Node) (Atom, error) {
	atom := Atom{Symbol: head, Args: make([]Term, 0, len(args))}
	for _, a := range args {
		t, err := decodeTerm(a)
		if err != nil {
			return Atom{}, err
		}
		atom.Args = append(atom.Args, t)
	}
	return atom, nil
}

func decodeTerm(n *yaml.Node) (Term, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return Token{Text: n.Value}, nil
	case yaml.SequenceNode:
		return decodeApplication(n)
	}
	return nil, structureErr(n, "expected a term, got %s", kindName(n))
}

func decodeApplication(n *yaml.Node) (Application, error) {
	head, args, err := splitSeq(n)
	if err != nil {
		return Application{}, err
	}
	if head == "" {
		return Application{}, structureErr(n, "empty functional term")
	}
	app := Application{Symbol: head, Args: make([]Term, 0, len(args))}
	for _, a := range args {
		t, err := decodeTerm(a)
		if err != nil {
			return Application{}, err
		}
		app.Args = append(app.Args, t)
	}
	return app, nil
}

func decodeEffect(n *yaml.Node) (Effect, error) {
	if n.Kind == 0 {
		return AndEffect{}, nil
	}
	head, args, err := splitSeq(n)
	if err != nil {
		return nil, err
	}

	switch head {
	case "":
		return AndEffect{}, nil
	case "and":
		parts := make([]Effect, 0, len(args))
		for _, a := range args {
			e, err := decodeEffect(a)
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		return AndEffect{Parts: parts}, nil
	case "not":
		if len(args) != 1 {
			return nil, structureErr(n, "negative effect takes exactly one atom")
		}
		h, a, err := splitSeq(args[0])
		if err != nil {
			return nil, err
		}
		if h == "" || isKeyword(h) {
			return nil, structureErr(args[0], "negative effect must wrap an atom")
		}
		atom, err := decodeAtom(h, a)
		if err != nil {
			return nil, err
		}
		return Literal{Atom: atom, Negated: true}, nil
	case AssignSet, AssignIncrease, AssignDecrease, AssignScaleUp, AssignScaleDown:
		if len(args) != 2 {
			return nil, structureErr(n, "%s takes a functional term and a value", head)
		}
		lhs, err := decodeApplication(args[0])
		if err != nil {
			return nil, err
		}
		rhs, err := decodeTerm(args[1])
		if err != nil {
			return nil, err
		}
		return Assign{Op: head, LHS: lhs, RHS: rhs}, nil
	case "when":
		if len(args) != 2 {
			return nil, structureErr(n, "when takes a condition and an effect")
		}
		cond, err := decodeFormula(args[0])
		if err != nil {
			return nil, err
		}
		eff, err := decodeEffect(args[1])
		if err != nil {
			return nil, err
		}
		return When{Condition: cond, Effect: eff}, nil
	case "forall":
		if len(args) < 2 {
			return nil, structureErr(n, "quantified effect takes a parameter list and an effect")
		}
		params, err := decodeParamList(args[0])
		if err != nil {
			return nil, err
		}
		parts := make([]Effect, 0, len(args)-1)
		for _, a := range args[1:] {
			e, err := decodeEffect(a)
			if err != nil {
				return nil, err
			}
			parts = append(parts, e)
		}
		var body Effect = AndEffect{Parts: parts}
		if len(parts) == 1 {
			body = parts[0]
		}
		return ForallEffect{Params: params, Effect: body}, nil
	}

	if isKeyword(head) {
		return nil, structureErr(n, "unsupported effect kind %q", head)
	}
	atom, err := decodeAtom(head, args)
	if err != nil {
		return nil, err
	}
	return Literal{Atom: atom}, nil
}

func isKeyword(s string) bool {
	switch s {
	case "and", "or", "not", "imply", "exists", "forall", "when", "oneof", "probabilistic":
		return true
	}
	return false
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.ScalarNode:
		return "scalar " + fmt.Sprintf("%q", n.Value)
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "list"
	case yaml.AliasNode:
		return "alias"
	}
	return "nothing"
}

func structureErr(n *yaml.Node, format string, args ...interface{}) error {
	return taskerr.ParseStructure(taskerr.StageDecode, fmt.Sprintf("line %d", n.Line), format, args...)
}
