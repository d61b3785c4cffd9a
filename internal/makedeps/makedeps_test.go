package makedeps

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeYAML(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunListsTransitiveIncludes(t *testing.T) {
	dir := t.TempDir()
	writeYAML(t, dir, "common.yaml", "X:\n  _delete: true\n")
	mainPath := writeYAML(t, dir, "main.yaml", `
_include:
  - common.yaml
_svd: dev.svd
`)
	depsPath := filepath.Join(dir, "main.d")

	if err := Run(mainPath, depsPath); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(depsPath)
	if err != nil {
		t.Fatalf("reading deps file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if !strings.HasPrefix(line, depsPath+":") {
		t.Fatalf("deps line = %q, want prefix %q", line, depsPath+":")
	}
	if !strings.Contains(line, "common.yaml") {
		t.Fatalf("deps line missing common.yaml: %q", line)
	}
}
