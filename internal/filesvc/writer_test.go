package filesvc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unkn0wn-root/respane/internal/errdef"
)

func TestOSWriterTruncatesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "body.txt")
	w := OSWriter{}
	if err := w.WriteFile(path, []byte("a much longer first payload")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.WriteFile(path, []byte("Hello")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "Hello" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestOSWriterReportsFilesystemErrors(t *testing.T) {
	dir := t.TempDir()
	err := OSWriter{}.WriteFile(dir, []byte("x"))
	if err == nil {
		t.Fatalf("expected error writing to a directory path")
	}
	if errdef.CodeOf(err) != errdef.CodeFilesystem {
		t.Fatalf("expected filesystem code, got %q", errdef.CodeOf(err))
	}
}

func TestResolvePathRelativeToBase(t *testing.T) {
	base := t.TempDir()
	got, err := ResolvePath("exports/body.json", base)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != filepath.Join(base, "exports", "body.json") {
		t.Fatalf("unexpected path %q", got)
	}
	if got, _ := ResolvePath("   ", base); got != "" {
		t.Fatalf("expected empty path for blank input, got %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandHome("~/x.bin"); got != filepath.Join(home, "x.bin") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got := ExpandHome("/abs"); got != "/abs" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
