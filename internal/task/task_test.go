package task

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"groundc/internal/asp"
	"groundc/internal/static"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

const blocksDomain = `
domain: blocks
types:
  - {name: block}
predicates:
  - {name: clear, params: ["?x - block"]}
  - {name: ontable, params: ["?x - block"]}
  - {name: holding, params: ["?x - block"]}
  - {name: handempty}
  - {name: heavy, params: ["?x - block"]}
actions:
  - name: pickup
    params: ["?x - block"]
    precondition: [and, [clear, "?x"], [ontable, "?x"], [handempty]]
    effect: [and, [not, [ontable, "?x"]], [not, [clear, "?x"]], [not, [handempty]], [holding, "?x"]]
`

const blocksProblem = `
problem: two
domain: blocks
objects:
  - {name: b1, type: block}
  - {name: b2, type: block}
init:
  - [clear, b1]
  - [clear, b2]
  - [ontable, b1]
  - [ontable, b2]
  - [handempty]
  - [heavy, b2]
goal: [holding, b1]
`

const blocksSolution = `reachable_f(p0(o2)).
reachable_f(p0(o3)).
reachable_f(p1(o2)).
reachable_f(p1(o3)).
reachable_f(p3).
reachable_a(a0(o3)).
reachable_a(a0(o2)).
reachable_f(p2(o3)).
reachable_f(p2(o2)).
reachable_goal.
`

func decode(t *testing.T, domainDoc, problemDoc string) (*syntax.Domain, *syntax.Problem) {
	t.Helper()
	d, err := syntax.DecodeDomain([]byte(domainDoc))
	if err != nil {
		t.Fatalf("DecodeDomain failed: %v", err)
	}
	p, err := syntax.DecodeProblem([]byte(problemDoc))
	if err != nil {
		t.Fatalf("DecodeProblem failed: %v", err)
	}
	return d, p
}

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func cannedGrounder(solution string) asp.Grounder {
	return asp.GrounderFunc(func(ctx context.Context, program string) (string, error) {
		return solution, nil
	})
}

func variableNames(doc *Document) []string {
	names := make([]string, len(doc.Variables))
	for i, v := range doc.Variables {
		names[i] = v.Name
	}
	return names
}

func TestCompileExhaustive(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	res, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	doc := res.Document

	wantVars := []string{
		"clear(b1)", "clear(b2)",
		"ontable(b1)", "ontable(b2)",
		"holding(b1)", "holding(b2)",
		"handempty()",
	}
	if got := variableNames(doc); !reflect.DeepEqual(got, wantVars) {
		t.Errorf("variables = %v, want %v", got, wantVars)
	}

	wantInit := [][]interface{}{{0, 1}, {1, 1}, {2, 1}, {3, 1}, {4, 0}, {5, 0}, {6, 1}}
	if doc.Init.Variables != 7 || !reflect.DeepEqual(doc.Init.Atoms, wantInit) {
		t.Errorf("init = %+v, want 7 variables with %v", doc.Init, wantInit)
	}

	if v := doc.Variables[1]; v.Type != "bool" || v.Symbol != 0 || !reflect.DeepEqual(v.Point, []int{3}) {
		t.Errorf("variable 1 = %+v", v)
	}

	if res.Groundings != nil {
		t.Error("exhaustive compile should not carry groundings")
	}
	if len(doc.ActionSchemata) != 1 {
		t.Fatalf("expected 1 action schema, got %d", len(doc.ActionSchemata))
	}
	if _, ok := doc.ActionSchemata[0]["groundings"]; ok {
		t.Error("exhaustive compile should not emit action groundings")
	}

	if doc.Goal["type"] != "atom" {
		t.Errorf("goal type = %v, want atom", doc.Goal["type"])
	}
	if doc.StateConstraints["type"] != "tautology" {
		t.Errorf("state constraints type = %v, want tautology", doc.StateConstraints["type"])
	}
	if doc.Metric != nil {
		t.Errorf("metric = %v, want none", doc.Metric)
	}
}

func TestCompileStaticTables(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	res, err := Compile(context.Background(), d, p, quiet(), WithCompression(true))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	want := []static.Table{static.UnarySet{Name: "heavy", Members: []int{3}}}
	if !reflect.DeepEqual(res.Tables, want) {
		t.Errorf("tables = %#v, want %#v", res.Tables, want)
	}

	for _, sym := range res.Document.Symbols {
		switch sym.Name {
		case "heavy":
			if sym.Fluent || sym.DataFile != "heavy.data.zst" {
				t.Errorf("heavy = %+v, want static with data file heavy.data.zst", sym)
			}
		case "clear":
			if !sym.Fluent || sym.DataFile != "" {
				t.Errorf("clear = %+v, want fluent without data file", sym)
			}
			if !reflect.DeepEqual(sym.Variables, []int{0, 1}) {
				t.Errorf("clear owns %v, want [0 1]", sym.Variables)
			}
		}
	}
}

func TestCompileDirected(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	var program string
	g := asp.GrounderFunc(func(ctx context.Context, prog string) (string, error) {
		program = prog
		return blocksSolution, nil
	})

	res, err := Compile(context.Background(), d, p, quiet(), WithGrounder(g))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.Contains(program, "reachable_goal :-") {
		t.Errorf("grounder received no goal rule:\n%s", program)
	}

	wantVars := []string{
		"clear(b1)", "clear(b2)",
		"ontable(b1)", "ontable(b2)",
		"holding(b1)", "holding(b2)",
		"handempty()",
	}
	if got := variableNames(res.Document); !reflect.DeepEqual(got, wantVars) {
		t.Errorf("variables = %v, want %v", got, wantVars)
	}

	got := res.Document.ActionSchemata[0]["groundings"]
	if want := [][]int{{2}, {3}}; !reflect.DeepEqual(got, want) {
		t.Errorf("pickup groundings = %v, want %v", got, want)
	}
}

func TestCompileDirectedPrunes(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	solution := `reachable_f(p0(o2)).
reachable_f(p1(o2)).
reachable_f(p3).
reachable_a(a0(o2)).
reachable_f(p2(o2)).
reachable_goal.
`
	res, err := Compile(context.Background(), d, p, quiet(), WithGrounder(cannedGrounder(solution)))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := []string{"clear(b1)", "ontable(b1)", "holding(b1)", "handempty()"}
	if got := variableNames(res.Document); !reflect.DeepEqual(got, want) {
		t.Errorf("variables = %v, want %v", got, want)
	}
}

func TestCompileDirectedNoActionGroundings(t *testing.T) {
	d, p := decode(t, blocksDomain, strings.Replace(blocksProblem, "goal: [holding, b1]", "goal: [handempty]", 1))
	solution := "reachable_f(p3).\nreachable_goal.\n"
	res, err := Compile(context.Background(), d, p, quiet(), WithGrounder(cannedGrounder(solution)))
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	got, ok := res.Document.ActionSchemata[0]["groundings"]
	if !ok {
		t.Fatal("directed compile should emit groundings for every action")
	}
	if g, _ := got.([][]int); g == nil || len(g) != 0 {
		t.Errorf("pickup groundings = %#v, want empty", got)
	}
}

func TestCompileUnreachableGoal(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	res, err := Compile(context.Background(), d, p, quiet(), WithGrounder(cannedGrounder("reachable_f(p3).\n")))
	if !errors.Is(err, taskerr.ErrUnreachableGoal) {
		t.Fatalf("expected UnreachableGoalError, got %v", err)
	}
	if res != nil {
		t.Error("no result should be produced for an unreachable goal")
	}
}

func TestCompileUnassignedFunction(t *testing.T) {
	domain := blocksDomain + `functions:
  - {name: weight, params: ["?x - block"], type: number}
`
	domain = strings.Replace(domain, "[holding, \"?x\"]]", "[holding, \"?x\"], [increase, [weight, \"?x\"], 1]]", 1)
	// weight(b2) is never assigned.
	problem := strings.Replace(blocksProblem, "  - [heavy, b2]\n", "  - [heavy, b2]\n  - [=, [weight, b1], 3]\n", 1)

	d, p := decode(t, domain, problem)
	_, err := Compile(context.Background(), d, p, quiet())
	if !errors.Is(err, taskerr.ErrParseStructure) {
		t.Errorf("expected ParseStructureError, got %v", err)
	}
}

func TestCompileFunctionInit(t *testing.T) {
	domain := blocksDomain + `functions:
  - {name: weight, params: ["?x - block"], type: number}
`
	domain = strings.Replace(domain, "[holding, \"?x\"]]", "[holding, \"?x\"], [increase, [weight, \"?x\"], 1]]", 1)
	problem := strings.Replace(blocksProblem, "  - [heavy, b2]\n", "  - [heavy, b2]\n  - [=, [weight, b1], 3]\n  - [=, [weight, b2], 1.5]\n", 1)

	d, p := decode(t, domain, problem)
	res, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	atoms := res.Document.Init.Atoms
	if got := atoms[len(atoms)-2:]; !reflect.DeepEqual(got, [][]interface{}{{7, int64(3)}, {8, 1.5}}) {
		t.Errorf("weight init = %v", got)
	}

	_, err = Compile(context.Background(), d, p, quiet(), WithGrounder(cannedGrounder(blocksSolution)))
	if !errors.Is(err, taskerr.ErrUnsupportedFeature) {
		t.Errorf("expected UnsupportedFeatureError for directed fluent functions, got %v", err)
	}
}

func TestDigestStable(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	a, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	b, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if a.Document.Digest == "" || a.Document.Digest != b.Document.Digest {
		t.Errorf("digests differ: %q vs %q", a.Document.Digest, b.Document.Digest)
	}

	d2, p2 := decode(t, blocksDomain, strings.Replace(blocksProblem, "  - [handempty]\n", "", 1))
	c, err := Compile(context.Background(), d2, p2, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if c.Document.Digest == a.Document.Digest {
		t.Error("different initial states should not share a digest")
	}
}

func TestWrite(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	res, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := Write(dir, res, WriteOptions{Indent: "  "}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	doc, err := ReadDocument(filepath.Join(dir, DocumentFile))
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if doc.Digest != res.Document.Digest {
		t.Errorf("digest = %q, want %q", doc.Digest, res.Document.Digest)
	}
	if len(doc.Variables) != 7 {
		t.Errorf("expected 7 variables, got %d", len(doc.Variables))
	}

	rows, err := static.ReadFile(filepath.Join(dir, DataDir, "heavy.data"))
	if err != nil {
		t.Fatalf("reading heavy table: %v", err)
	}
	if want := [][]string{{"3"}}; !reflect.DeepEqual(rows, want) {
		t.Errorf("heavy rows = %v, want %v", rows, want)
	}

	if _, err := os.Stat(filepath.Join(dir, DataDir, "clear.data")); !os.IsNotExist(err) {
		t.Errorf("fluent symbol should have no data file, stat err = %v", err)
	}
}

func TestVariableRecordKeys(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	res, err := Compile(context.Background(), d, p, quiet())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	data, err := Marshal(res.Document, WriteOptions{})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw struct {
		Variables []map[string]json.RawMessage `json:"variables"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(raw.Variables) == 0 {
		t.Fatal("no variables in document")
	}
	for _, key := range []string{"id", "name", "fstype", "symbol_id", "signature", "point"} {
		if _, ok := raw.Variables[0][key]; !ok {
			t.Errorf("variable record missing %q: %v", key, raw.Variables[0])
		}
	}
	if _, ok := raw.Variables[0]["symbol"]; ok {
		t.Errorf("variable record should not carry a bare symbol key")
	}
}

func TestEncode(t *testing.T) {
	d, p := decode(t, blocksDomain, blocksProblem)
	prog, err := Encode(d, p)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	text := prog.String()
	for _, want := range []string{"init(p4(o3)).", "reachable_a(a0(A)) :-", "reachable_goal :-"} {
		if !strings.Contains(text, want) {
			t.Errorf("program missing %q:\n%s", want, text)
		}
	}
}
