package static

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"groundc/internal/index"
	"groundc/internal/syntax"
	"groundc/internal/taskerr"
)

const domainDoc = `
domain: transport
types:
  - {name: place}
  - {name: truck}
predicates:
  - {name: road, params: ["?a - place", "?b - place"]}
  - {name: depot, params: ["?a - place"]}
  - {name: open}
  - {name: route, params: ["?a - place", "?b - place", "?c - place"]}
  - {name: at, params: ["?t - truck", "?p - place"]}
  - {name: "@near", params: ["?a - place", "?b - place"]}
functions:
  - {name: capacity, params: ["?t - truck"], type: number}
  - {name: home, params: ["?t - truck"], type: place}
  - {name: total-cost, type: number}
actions:
  - name: drive
    params: ["?t - truck", "?a - place", "?b - place"]
    precondition: [and, [at, "?t", "?a"], [road, "?a", "?b"]]
    effect: [and, [not, [at, "?t", "?a"]], [at, "?t", "?b"], [increase, [total-cost], 1]]
`

const problemDoc = `
problem: small
objects:
  - {name: p1, type: place}
  - {name: p2, type: place}
  - {name: t1, type: truck}
init:
  - [road, p2, p1]
  - [road, p1, p2]
  - [road, p1, p2]
  - [depot, p1]
  - [open]
  - [route, p1, p2, p1]
  - [at, t1, p1]
  - [=, [capacity, t1], 2.5]
  - [=, [home, t1], p2]
  - [=, [total-cost], 0]
`

func buildTables(t *testing.T, problem string) ([]Table, error) {
	t.Helper()
	d, err := syntax.DecodeDomain([]byte(domainDoc))
	if err != nil {
		t.Fatalf("DecodeDomain failed: %v", err)
	}
	p, err := syntax.DecodeProblem([]byte(problem))
	if err != nil {
		t.Fatalf("DecodeProblem failed: %v", err)
	}
	ctx, err := index.Build(d, p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return Build(ctx, p)
}

func TestBuildVariants(t *testing.T) {
	tables, err := buildTables(t, problemDoc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	// Objects: false=0, true=1, p1=2, p2=3, t1=4.
	want := []Table{
		BinarySet{Name: "road", Pairs: [][2]int{{2, 3}, {3, 2}}},
		UnarySet{Name: "depot", Members: []int{2}},
		Nullary{Name: "open", Value: "1"},
		NarySet{Name: "route", Tuples: [][]int{{2, 3, 2}}},
		UnaryMap{Name: "capacity", Entries: []Entry{{Key: []int{4}, Value: "2.5"}}},
		UnaryMap{Name: "home", Entries: []Entry{{Key: []int{4}, Value: "3"}}},
	}
	if !reflect.DeepEqual(tables, want) {
		t.Errorf("Build() =\n%#v\nwant\n%#v", tables, want)
	}
}

func TestBuildRejectsDoubleAssignment(t *testing.T) {
	_, err := buildTables(t, problemDoc+"  - [=, [capacity, t1], 3]\n")
	if !errors.Is(err, taskerr.ErrParseStructure) {
		t.Errorf("expected ParseStructureError, got %v", err)
	}
}

func TestWriteFiles(t *testing.T) {
	tables, err := buildTables(t, problemDoc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		if err := WriteFiles(dir, tables, compress); err != nil {
			t.Fatalf("WriteFiles(compress=%v) failed: %v", compress, err)
		}

		name := "road.data"
		if compress {
			name += ".zst"
		}
		rows, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if want := [][]string{{"2", "3"}, {"3", "2"}}; !reflect.DeepEqual(rows, want) {
			t.Errorf("road rows = %v, want %v", rows, want)
		}

		rows, err = ReadFile(filepath.Join(dir, FileName(UnaryMap{Name: "home"}, compress)))
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if want := [][]string{{"4", "3"}}; !reflect.DeepEqual(rows, want) {
			t.Errorf("home rows = %v, want %v", rows, want)
		}
	}
}

func TestPlainFileLayout(t *testing.T) {
	dir := t.TempDir()
	tables := []Table{BinarySet{Name: "road", Pairs: [][2]int{{2, 3}, {3, 2}}}}
	if err := WriteFiles(dir, tables, false); err != nil {
		t.Fatalf("WriteFiles failed: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "road.data"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "2,3\n3,2\n" {
		t.Errorf("road.data = %q", data)
	}
}
