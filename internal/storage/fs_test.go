package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func tempRoot(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return s
}

func TestWriteAndRead(t *testing.T) {
	s := tempRoot(t)
	content := []byte("# Technical Requirements Document\n")
	if err := s.Write("documents/p1.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("documents/p1.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestReadMissingWrapsNotExist(t *testing.T) {
	s := tempRoot(t)
	_, err := s.Read("documents/nope.md")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestExists(t *testing.T) {
	s := tempRoot(t)
	ok, err := s.Exists("a/b.json")
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	_ = s.Write("a/b.json", []byte("{}"))
	ok, err = s.Exists("a/b.json")
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
	ok, _ = s.Exists("a")
	if ok {
		t.Error("directory should not count as an existing file")
	}
}

func TestDelete(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("versions/p1/old.md", []byte("bye"))
	if err := s.Delete("versions/p1/old.md"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Read("versions/p1/old.md"); err == nil {
		t.Error("expected error reading deleted file")
	}
}

func TestListFiltersByExtension(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("fragments/p1/2.json", []byte("{}"))
	_ = s.Write("fragments/p1/1.json", []byte("{}"))
	_ = s.Write("fragments/p1/notes.txt", []byte("x"))

	items, err := s.List("fragments", ".json")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	if items[0].Path != "fragments/p1/1.json" || items[1].Path != "fragments/p1/2.json" {
		t.Errorf("paths = %q, %q", items[0].Path, items[1].Path)
	}
	if items[0].Checksum != Checksum([]byte("{}")) {
		t.Errorf("checksum = %q", items[0].Checksum)
	}
}

func TestListMissingDirIsEmpty(t *testing.T) {
	s := tempRoot(t)
	items, err := s.List("versions/none", ".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("len = %d, want 0", len(items))
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempRoot(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempRoot(t)
	_ = s.Write("documents/p.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("documents/p.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("documents/p.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, "documents", tempPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/scribe-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "scribe-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
