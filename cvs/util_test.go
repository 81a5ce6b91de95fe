package cvs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExt(t *testing.T) {
	check := func(fname string, expected string) {
		res := Ext(fname)
		if res != expected {
			t.Errorf("Ext(%q) = %q; want %q", fname, res, expected)
		}
	}
	check("a.mp4", "mp4")
	check("a.MP4", "mp4")
	check("dir.x/a", "")
	check("a.tar.gz", "gz")
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.mp4")
	dst := filepath.Join(dir, "sub", "a.mp4")
	if err := os.WriteFile(src, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Dir(dst), 0755); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if FileExists(src) {
		t.Errorf("source still exists after move")
	}
	bytes, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes) != "video" {
		t.Errorf("moved content = %q", bytes)
	}
}

func TestMoveFileMissingSource(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "a.mp4")
	if err := os.WriteFile(dst, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := MoveFile(filepath.Join(dir, "missing.mp4"), dst); err == nil {
		t.Fatalf("move of missing source succeeded")
	}
	bytes, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("existing destination was removed: %v", err)
	}
	if string(bytes) != "existing" {
		t.Errorf("destination content = %q", bytes)
	}
}
