package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func testKey() Key {
	return Key{
		Path:      "/photos/a.jpg",
		Size:      1234,
		ModTime:   time.Unix(1700000000, 0),
		Model:     "ViT-B/32",
		Dimension: 4,
	}
}

func TestCachePutGet(t *testing.T) {
	c := openTestCache(t)
	k := testKey()

	if _, ok := c.Get(k); ok {
		t.Fatal("expected miss on empty cache")
	}

	vec := []float32{0.1, 0.2, 0.3, 0.4}
	if err := c.Put(k, vec); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	got, ok := c.Get(k)
	if !ok {
		t.Fatal("expected hit after put")
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d: got %f, want %f", i, got[i], vec[i])
		}
	}
}

func TestCacheMissOnChangedFile(t *testing.T) {
	c := openTestCache(t)
	k := testKey()
	if err := c.Put(k, []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}

	modified := k
	modified.ModTime = k.ModTime.Add(time.Second)
	if _, ok := c.Get(modified); ok {
		t.Error("a changed mtime must miss")
	}

	resized := k
	resized.Size = k.Size + 1
	if _, ok := c.Get(resized); ok {
		t.Error("a changed size must miss")
	}
}

func TestCacheMissOnDifferentModel(t *testing.T) {
	c := openTestCache(t)
	k := testKey()
	if err := c.Put(k, []float32{1, 0, 0, 0}); err != nil {
		t.Fatal(err)
	}

	other := k
	other.Model = "ViT-L/14"
	if _, ok := c.Get(other); ok {
		t.Error("a different model must miss")
	}

	wider := k
	wider.Dimension = 8
	if _, ok := c.Get(wider); ok {
		t.Error("a different dimension must miss")
	}
}

func TestCachePutRejectsMismatchedVector(t *testing.T) {
	c := openTestCache(t)
	k := testKey() // Dimension: 4

	if err := c.Put(k, []float32{1, 0}); err == nil {
		t.Error("expected error for vector/key dimension mismatch")
	}
}

func TestCacheSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "embeddings.db")
	k := testKey()

	c, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(k, []float32{0.5, 0.5, 0.5, 0.5}); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if _, ok := c.Get(k); !ok {
		t.Error("expected hit after reopen")
	}

	n, err := c.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry, got %d", n)
	}
}
