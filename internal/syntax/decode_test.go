package syntax

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"groundc/internal/taskerr"
)

const blocksDomain = `
domain: blocksworld
types:
  - {name: block, parent: object}
predicates:
  - {name: clear, params: [{name: "?x", type: block}]}
  - {name: ontable, params: ["?x - block"]}
  - {name: on, params: ["?x - block", "?y - block"]}
  - {name: holding, params: ["?x - block"]}
  - {name: handempty}
functions:
  - {name: total-cost, type: number}
actions:
  - name: pickup
    params: ["?x - block"]
    precondition: [and, [clear, "?x"], [ontable, "?x"], [handempty]]
    effect:
      - and
      - [not, [ontable, "?x"]]
      - [not, [clear, "?x"]]
      - [not, [handempty]]
      - [holding, "?x"]
      - [increase, [total-cost], 1]
  - name: sweep
    params: []
    precondition: []
    effect: [forall, ["?z - block"], [when, [holding, "?z"], [not, [holding, "?z"]]]]
axioms:
  - name: above
    params: ["?x - block", "?y - block"]
    formula: [exists, ["?z - block"], [and, [on, "?x", "?z"], [on, "?z", "?y"]]]
`

const blocksProblem = `
problem: bw-2
domain: blocksworld
objects:
  - {name: b1, type: block}
  - {name: b2, type: block}
init:
  - [clear, b1]
  - [on, b1, b2]
  - [ontable, b2]
  - [handempty]
  - [=, [total-cost], 0]
goal: [and, [on, b2, b1], [imply, [clear, b1], [handempty]]]
metric: {optimization: minimize, expression: [total-cost]}
`

func TestDecodeDomain(t *testing.T) {
	d, err := DecodeDomain([]byte(blocksDomain))
	if err != nil {
		t.Fatalf("DecodeDomain failed: %v", err)
	}

	if d.Name != "blocksworld" {
		t.Errorf("name = %q", d.Name)
	}
	if len(d.Predicates) != 5 || len(d.Functions) != 1 {
		t.Fatalf("expected 5 predicates and 1 function, got %d and %d", len(d.Predicates), len(d.Functions))
	}
	if got := d.Predicates[2].Params; !reflect.DeepEqual(got, []TypedName{{"?x", "block"}, {"?y", "block"}}) {
		t.Errorf("on params = %v", got)
	}
	if d.Functions[0].Codomain != "number" {
		t.Errorf("total-cost codomain = %q", d.Functions[0].Codomain)
	}

	pickup := d.Actions[0]
	pre, ok := pickup.Precondition.(And)
	if !ok || len(pre.Parts) != 3 {
		t.Fatalf("unexpected precondition %#v", pickup.Precondition)
	}
	if !reflect.DeepEqual(pre.Parts[2], Atom{Symbol: "handempty", Args: []Term{}}) {
		t.Errorf("nullary atom decoded as %#v", pre.Parts[2])
	}

	eff := pickup.Effect.(AndEffect)
	if len(eff.Parts) != 5 {
		t.Fatalf("expected 5 effects, got %d", len(eff.Parts))
	}
	if lit := eff.Parts[0].(Literal); !lit.Negated || lit.Atom.Symbol != "ontable" {
		t.Errorf("unexpected first effect %#v", lit)
	}
	if asg := eff.Parts[4].(Assign); asg.Op != AssignIncrease || asg.LHS.Symbol != "total-cost" {
		t.Errorf("unexpected cost effect %#v", asg)
	}

	if _, ok := d.Actions[1].Precondition.(Truth); !ok {
		t.Errorf("empty precondition should decode to Truth, got %#v", d.Actions[1].Precondition)
	}
	fe, ok := d.Actions[1].Effect.(ForallEffect)
	if !ok || len(fe.Params) != 1 {
		t.Fatalf("expected quantified effect, got %#v", d.Actions[1].Effect)
	}
	if _, ok := fe.Effect.(When); !ok {
		t.Errorf("expected conditional effect inside forall, got %#v", fe.Effect)
	}

	ex, ok := d.Axioms[0].Formula.(Exists)
	if !ok || len(ex.Body) != 1 || ex.Params[0] != (TypedName{"?z", "block"}) {
		t.Errorf("unexpected axiom formula %#v", d.Axioms[0].Formula)
	}
}

func TestDecodeProblem(t *testing.T) {
	p, err := DecodeProblem([]byte(blocksProblem))
	if err != nil {
		t.Fatalf("DecodeProblem failed: %v", err)
	}

	if len(p.Objects) != 2 || len(p.Atoms) != 4 || len(p.Assignments) != 1 {
		t.Fatalf("unexpected sizes: objects=%d atoms=%d assignments=%d", len(p.Objects), len(p.Atoms), len(p.Assignments))
	}
	if p.Assignments[0].Value != (Token{Text: "0"}) {
		t.Errorf("assignment value = %#v", p.Assignments[0].Value)
	}

	goal := p.Goal.(And)
	imply, ok := goal.Parts[1].(Or)
	if !ok {
		t.Fatalf("imply should decode into a disjunction, got %#v", goal.Parts[1])
	}
	if _, ok := imply.Parts[0].(Not); !ok {
		t.Errorf("first disjunct should be a negation")
	}

	if _, ok := p.Constraints.(Truth); !ok {
		t.Errorf("absent constraints should decode to Truth")
	}
	if p.Metric == nil || p.Metric.Optimization != "minimize" {
		t.Errorf("unexpected metric %#v", p.Metric)
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	domainPath := filepath.Join(dir, "domain.yaml")
	problemPath := filepath.Join(dir, "bw-2.yaml")
	if err := os.WriteFile(domainPath, []byte(blocksDomain), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(problemPath, []byte(blocksProblem), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := LoadDomain(domainPath)
	if err != nil {
		t.Fatalf("LoadDomain failed: %v", err)
	}
	if d.Name != "blocksworld" {
		t.Errorf("domain name = %q", d.Name)
	}
	p, err := LoadProblem(problemPath)
	if err != nil {
		t.Fatalf("LoadProblem failed: %v", err)
	}
	if p.Name != "bw-2" {
		t.Errorf("problem name = %q", p.Name)
	}

	if _, err := LoadDomain(filepath.Join(dir, "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist for a missing domain, got %v", err)
	}
	if _, err := LoadProblem(filepath.Join(dir, "missing.yaml")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist for a missing problem, got %v", err)
	}
}

func TestDecodeRejectsMalformedTrees(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unsupported effect kind", `
actions:
  - name: a
    effect: [oneof, [p], [q]]
`},
		{"quantifier without params", `
actions:
  - name: a
    precondition: [exists]
`},
		{"scalar formula", `
actions:
  - name: a
    precondition: clear
`},
		{"negated non-atom effect", `
actions:
  - name: a
    effect: [not, [and, [p]]]
`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDomain([]byte(tc.doc))
			if !errors.Is(err, taskerr.ErrParseStructure) {
				t.Errorf("expected ParseStructureError, got %v", err)
			}
		})
	}
}

func TestSubstituteEffectRespectsShadowing(t *testing.T) {
	eff := AndEffect{Parts: []Effect{
		Literal{Atom: Atom{Symbol: "on", Args: []Term{Token{"?z"}, Application{Symbol: "top", Args: []Term{Token{"?z"}}}}}},
		ForallEffect{
			Params: []TypedName{{"?z", "block"}},
			Effect: Literal{Atom: Atom{Symbol: "clear", Args: []Term{Token{"?z"}}}},
		},
	}}

	got := SubstituteEffect(eff, "?z", "b1").(AndEffect)

	want0 := Literal{Atom: Atom{Symbol: "on", Args: []Term{Token{"b1"}, Application{Symbol: "top", Args: []Term{Token{"b1"}}}}}}
	if !reflect.DeepEqual(got.Parts[0], want0) {
		t.Errorf("substitution through nested term failed: %#v", got.Parts[0])
	}
	if !reflect.DeepEqual(got.Parts[1], eff.Parts[1]) {
		t.Errorf("shadowed variable should not be substituted: %#v", got.Parts[1])
	}
}

func TestEffectHeads(t *testing.T) {
	d, err := DecodeDomain([]byte(blocksDomain))
	if err != nil {
		t.Fatalf("DecodeDomain failed: %v", err)
	}
	got := EffectHeads(d.Actions[0].Effect)
	want := []string{"ontable", "clear", "handempty", "holding", "total-cost"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EffectHeads = %v, want %v", got, want)
	}
}
