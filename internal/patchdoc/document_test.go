package patchdoc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sercanarga/svdpatch/internal/svderrs"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPreservesKeyOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "doc.yaml", `
_svd: foo.svd
TIM1:
  _modify:
    name: TIM2
PeriphB:
  _delete: true
`)
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"_svd", "TIM1", "PeriphB"}
	if len(doc.Keys) != len(want) {
		t.Fatalf("keys = %v, want %v", doc.Keys, want)
	}
	for i, k := range want {
		if doc.Keys[i] != k {
			t.Fatalf("keys = %v, want %v", doc.Keys, want)
		}
	}

	svd, ok := doc.GetString("_svd")
	if !ok || svd != "foo.svd" {
		t.Fatalf("_svd = %q, %v", svd, ok)
	}
}

func TestLoadRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeYAML(t, dir, "dup.yaml", `
TIM1:
  _modify:
    name: A
TIM1:
  _delete: true
`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected duplicate-key error")
	}
	var loadErr *svderrs.LoadError
	if !asLoadError(err, &loadErr) {
		t.Fatalf("expected *svderrs.LoadError, got %T: %v", err, err)
	}
}

func asLoadError(err error, target **svderrs.LoadError) bool {
	le, ok := err.(*svderrs.LoadError)
	if ok {
		*target = le
	}
	return ok
}

func TestSetPreservesInsertionOrderOnOverwrite(t *testing.T) {
	v := newMapping()
	v.Set("a", &Value{Kind: Scalar, Scalar: "1"})
	v.Set("b", &Value{Kind: Scalar, Scalar: "2"})
	v.Set("a", &Value{Kind: Scalar, Scalar: "3"})

	if len(v.Keys) != 2 || v.Keys[0] != "a" || v.Keys[1] != "b" {
		t.Fatalf("keys = %v, want [a b]", v.Keys)
	}
	s, _ := v.GetString("a")
	if s != "3" {
		t.Fatalf("a = %q, want 3", s)
	}
}

func TestDeleteRemovesFromKeys(t *testing.T) {
	v := newMapping()
	v.Set("a", &Value{Kind: Scalar, Scalar: "1"})
	v.Set("b", &Value{Kind: Scalar, Scalar: "2"})
	v.Delete("a")
	if v.Has("a") {
		t.Fatalf("a should be gone")
	}
	if len(v.Keys) != 1 || v.Keys[0] != "b" {
		t.Fatalf("keys = %v, want [b]", v.Keys)
	}
}

func TestCloneIsDeepAndDetached(t *testing.T) {
	v := newMapping()
	seq := &Value{Kind: Sequence, Sequence: []*Value{{Kind: Scalar, Scalar: "x"}}}
	v.Set("list", seq)

	clone := v.Clone()
	clone.GetSequence("list")[0].Scalar = "y"

	if v.GetSequence("list")[0].Scalar != "x" {
		t.Fatalf("clone mutation leaked into original")
	}
}
