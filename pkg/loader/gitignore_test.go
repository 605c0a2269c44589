package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCovers(t *testing.T) {
	tests := []struct {
		line    string
		pattern string
		want    bool
	}{
		{".planview/layout.db", ".planview/layout.db", true},
		{"/.planview/layout.db", ".planview/layout.db", true},
		{".planview/", ".planview/layout.db", true},
		{".planview", ".planview/layout.db", true},
		{".planview/*", ".planview/layout.db", true},
		{".planview/**", ".planview/layout.db", true},
		{".planview/plans/", ".planview/layout.db", false},
		{"layout.db", ".planview/layout.db", false},
		{".plan", ".planview/layout.db", false},
		{"*.log", ".planview/layout.db", false},
	}
	for _, tt := range tests {
		if got := covers(tt.line, tt.pattern); got != tt.want {
			t.Errorf("covers(%q, %q) = %v, want %v", tt.line, tt.pattern, got, tt.want)
		}
	}
}

func TestEnsureIgnored_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	if err := EnsureIgnored(dir, ".planview/layout.json"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		t.Fatal(err)
	}
	want := gitignoreComment + "\n.planview/layout.json\n"
	if string(data) != want {
		t.Errorf("unexpected content %q", data)
	}
}

func TestEnsureIgnored_AppendsAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	if err := os.WriteFile(path, []byte("node_modules/"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := EnsureIgnored(dir, "./.planview/layout.db"); err != nil {
			t.Fatal(err)
		}
	}
	data, _ := os.ReadFile(path)
	content := string(data)
	if !strings.HasPrefix(content, "node_modules/\n\n"+gitignoreComment) {
		t.Errorf("existing content not separated: %q", content)
	}
	if strings.Count(content, ".planview/layout.db") != 1 {
		t.Errorf("pattern added more than once: %q", content)
	}
}

func TestEnsureIgnored_ParentAlreadyIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".gitignore")
	original := "# local\n.planview/\n"
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureIgnored(dir, ".planview/layout.json"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("file changed although the directory is ignored: %q", data)
	}
}
