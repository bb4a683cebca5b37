package emit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadTemplate_MissingFileIsEmissionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.tpl")
	_, err := ReadTemplate(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	var emitErr *EmissionError
	if !errors.As(err, &emitErr) {
		t.Fatalf("expected *EmissionError, got %T: %v", err, err)
	}
}

func TestWriteTrampolineFile_WritesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foo.tramp.S")
	opts := Options{LibSuffix: "foo", PointerSize: 8, Functions: []string{"a"}}
	if err := WriteTrampolineFile(path, "TABLE($table_size)\n", "TRAMP($sym)\n", opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "TABLE(16)\nTRAMP(a)\n"
	if string(got) != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
