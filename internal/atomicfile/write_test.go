// write_test.go tests [Write] and [WriteWith] for correctness, parent
// directory creation, and cleanup of temp files when encoding fails.

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteBasic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.toml")
	data := []byte("show_file_name = true\n")

	if err := Write(path, data, 0o644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestWrite_OverwriteExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overwrite.toml")

	if err := Write(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("first Write failed: %v", err)
	}
	if err := Write(path, []byte("updated"), 0o644); err != nil {
		t.Fatalf("second Write failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "updated" {
		t.Errorf("content = %q, want %q", got, "updated")
	}
}

func TestWrite_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scopes", "demo.toml")

	if err := Write(path, []byte("use_project_settings = true\n"), 0o644); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestWrite_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perms.toml")

	if err := Write(path, []byte("secret"), 0o600); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	// Windows only maps the owner bits.
	if info.Mode().Perm()&0o600 == 0 {
		t.Errorf("permissions = %o, expected at least owner rw", info.Mode().Perm())
	}
}

func TestWriteWith_EncodeFailureLeavesTargetIntact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keep.toml")
	if err := Write(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("seed Write failed: %v", err)
	}

	boom := errors.New("boom")
	err := WriteWith(path, 0o644, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped encode error, got %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "original" {
		t.Errorf("target changed to %q after failed write", got)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if matched, _ := filepath.Match("*.tmp.*", e.Name()); matched {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
