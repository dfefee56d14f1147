package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTextPlainValue(t *testing.T) {
	for _, v := range []string{"", "Buy milk", "@", "email@example.com"} {
		got, err := Text(v, strings.NewReader("ignored"))
		if err != nil {
			t.Fatalf("Text(%q): %v", v, err)
		}
		if got != v {
			t.Errorf("Text(%q) = %q, want unchanged", v, got)
		}
	}
}

func TestTextStdin(t *testing.T) {
	got, err := Text("-", strings.NewReader("line one\nline two\n\n"))
	if err != nil {
		t.Fatalf("Text(-): %v", err)
	}
	if got != "line one\nline two" {
		t.Fatalf("Text(-) = %q", got)
	}
}

func TestTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\n- milk\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Text("@"+path, nil)
	if err != nil {
		t.Fatalf("Text(@file): %v", err)
	}
	if got != "# Notes\n\n- milk" {
		t.Fatalf("Text(@file) = %q", got)
	}

	if _, err := Text("@"+filepath.Join(t.TempDir(), "missing.md"), nil); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestTextTooLarge(t *testing.T) {
	big := strings.Repeat("x", maxInputBytes+1)
	if _, err := Text("-", strings.NewReader(big)); err == nil {
		t.Fatal("expected size error")
	}
}
