package fs

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWalkFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"a.jpg",
		"b.png",
		"c.JPEG",
		"notes.txt",
		"archive.tar.gz",
		"noext",
	)

	w := NewWalker(nil, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("expected 3 image files, got %d", len(files))
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("expected absolute path, got %q", f.Path)
		}
	}
}

func TestWalkSortsLexicographically(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"z/last.jpg",
		"a/first.jpg",
		"m/middle.png",
	)

	w := NewWalker(nil, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	if !sort.StringsAreSorted(paths) {
		t.Errorf("expected lexicographic order, got %v", paths)
	}
}

func TestWalkRecursesSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"top.jpg",
		"deep/deeper/deepest/pic.png",
	)

	w := NewWalker(nil, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected 2 files, got %d", len(files))
	}
}

func TestWalkExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"keep.jpg",
		"thumbs/small.jpg",
		"cache/tmp.png",
	)

	w := NewWalker(nil, []string{"thumbs/**", "cache/**"})
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if filepath.Base(files[0].Path) != "keep.jpg" {
		t.Errorf("expected keep.jpg, got %q", files[0].Path)
	}
}

func TestWalkCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.webp", "b.jpg")

	// Accept both with and without a leading dot.
	w := NewWalker([]string{"webp", ".BMP"}, nil)
	files, err := w.Walk(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if filepath.Ext(files[0].Path) != ".webp" {
		t.Errorf("expected webp file, got %q", files[0].Path)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	w := NewWalker(nil, nil)
	if _, err := w.Walk(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestWalkRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "single.jpg")

	w := NewWalker(nil, nil)
	if _, err := w.Walk(filepath.Join(root, "single.jpg")); err == nil {
		t.Error("expected error when root is a regular file")
	}
}

func TestWalkEmptyDirectory(t *testing.T) {
	w := NewWalker(nil, nil)
	files, err := w.Walk(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected no files, got %d", len(files))
	}
}
