package cas

import (
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	v := map[string]interface{}{
		"variables": 5,
		"atoms":     [][]int{{3, 1}, {0, 1}},
		"nested":    map[string]interface{}{"b": 1.5, "a": "x"},
	}
	got, err := CanonicalJSON(v)
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	want := `{"atoms":[[3,1],[0,1]],"nested":{"a":"x","b":1.5},"variables":5}`
	if string(got) != want {
		t.Errorf("CanonicalJSON() = %s, want %s", got, want)
	}
}

func TestCanonicalJSONKeepsLargeIntegers(t *testing.T) {
	got, err := CanonicalJSON(map[string]interface{}{"n": int64(9007199254740993)})
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	if string(got) != `{"n":9007199254740993}` {
		t.Errorf("CanonicalJSON() = %s", got)
	}
}

func TestDigestIgnoresKeyOrder(t *testing.T) {
	a, err := Digest(map[string]interface{}{"x": 1, "y": []string{"p"}})
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	b, err := Digest(map[string]interface{}{"y": []string{"p"}, "x": 1})
	if err != nil {
		t.Fatalf("Digest failed: %v", err)
	}
	if a != b {
		t.Errorf("digests differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64", len(a))
	}
}

func TestFingerprintSeparatesKinds(t *testing.T) {
	if Fingerprint("program", "a.") == Fingerprint("solution", "a.") {
		t.Errorf("fingerprints of different kinds collide")
	}
	if Fingerprint("program", "a.") != Fingerprint("program", "a.") {
		t.Errorf("fingerprint is not deterministic")
	}
}
