package index

import (
	"errors"
	"reflect"
	"testing"

	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

const logisticsDomain = `
domain: logistics
types:
  - {name: truck}
  - {name: place}
constants:
  - {name: depot, type: place}
predicates:
  - {name: road, params: ["?a - place", "?b - place"]}
  - {name: "@reachable", params: ["?a - place", "?b - place"]}
functions:
  - {name: at, params: ["?t - truck"], type: place}
  - {name: total-cost, type: number}
actions:
  - name: drive
    params: ["?t - truck", "?to - place"]
    precondition: [and, [road, [at, "?t"], "?to"], ["@reachable", [at, "?t"], "?to"]]
    effect: [and, [assign, [at, "?t"], "?to"], [increase, [total-cost], 1]]
axioms:
  - name: parked
    params: ["?t - truck"]
    formula: [=, [at, "?t"], depot]
`

const logisticsProblem = `
problem: log-1
objects:
  - {name: t1, type: truck}
  - {name: p1, type: place}
init:
  - [road, depot, p1]
  - [=, [at, t1], depot]
goal: [=, [at, t1], p1]
`

func buildContext(t *testing.T, domainDoc, problemDoc string) (*Context, error) {
	t.Helper()
	d, err := syntax.DecodeDomain([]byte(domainDoc))
	if err != nil {
		t.Fatalf("DecodeDomain failed: %v", err)
	}
	p, err := syntax.DecodeProblem([]byte(problemDoc))
	if err != nil {
		t.Fatalf("DecodeProblem failed: %v", err)
	}
	return Build(d, p)
}

func TestObjectIndexReservesBooleans(t *testing.T) {
	ctx, err := buildContext(t, logisticsDomain, logisticsProblem)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"false", "true", "depot", "t1", "p1"}
	if !reflect.DeepEqual(ctx.Objects.Names(), want) {
		t.Errorf("Names() = %v, want %v", ctx.Objects.Names(), want)
	}
	for i, name := range want {
		if id, ok := ctx.ObjectID(name); !ok || id != i {
			t.Errorf("ObjectID(%s) = %d, %v; want %d", name, id, ok, i)
		}
	}
	if name, ok := ctx.Objects.Name(1); !ok || name != True {
		t.Errorf("Name(1) = %q", name)
	}
}

func TestObjectIndexRejectsBooleanNames(t *testing.T) {
	_, err := NewObjectIndex([]syntax.TypedName{{Name: "true", Type: "object"}})
	if !errors.Is(err, taskerr.ErrType) {
		t.Errorf("expected TypeError, got %v", err)
	}
}

func TestPartitionIsTotalAndDisjoint(t *testing.T) {
	ctx, err := buildContext(t, logisticsDomain, logisticsProblem)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	st := ctx.Symbols

	for _, sym := range st.Symbols() {
		if st.IsFluent(sym.Name) == st.IsStatic(sym.Name) {
			t.Errorf("symbol %s: fluent=%v static=%v", sym.Name, st.IsFluent(sym.Name), st.IsStatic(sym.Name))
		}
	}
	if !st.IsStatic(Equality) {
		t.Errorf("= must always be static")
	}

	if got := st.FluentSymbols(); !reflect.DeepEqual(got, []string{"at", "parked"}) {
		t.Errorf("FluentSymbols() = %v", got)
	}
	if got := st.StaticSymbols(); !reflect.DeepEqual(got, []string{"road", "@reachable", "total-cost", "="}) {
		t.Errorf("StaticSymbols() = %v", got)
	}

	ext, _ := st.Lookup("@reachable")
	if !ext.External || ext.Grounded() {
		t.Errorf("@reachable should be external and never grounded")
	}
	cost, _ := st.Lookup(CostSymbol)
	if !cost.Cost {
		t.Errorf("total-cost should be recognized as the cost symbol")
	}
	parked, _ := st.Lookup("parked")
	if !parked.Derived || parked.Kind != KindPredicate || parked.Arity() != 1 {
		t.Errorf("parked should be a derived unary predicate, got %+v", parked)
	}
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   error
	}{
		{
			name: "undeclared effect head",
			domain: `
actions:
  - name: a
    effect: [ghost]
`,
			want: taskerr.ErrUndeclaredSymbol,
		},
		{
			name: "external effect head",
			domain: `
predicates:
  - {name: "@ext"}
actions:
  - name: a
    effect: ["@ext"]
`,
			want: taskerr.ErrExternalSymbolConstraint,
		},
		{
			name: "unknown argument type",
			domain: `
predicates:
  - {name: p, params: ["?x - ghost"]}
`,
			want: taskerr.ErrType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildContext(t, tc.domain, "problem: p")
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
