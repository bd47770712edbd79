package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Storage.Dir != "storage" {
		t.Errorf("expected storage dir 'storage', got %q", cfg.Storage.Dir)
	}
	if len(cfg.Index.Extensions) != 3 {
		t.Errorf("expected 3 default extensions, got %v", cfg.Index.Extensions)
	}
	if cfg.Embedding.Provider != "clip-server" {
		t.Errorf("expected provider clip-server, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension != 512 {
		t.Errorf("expected dimension 512, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Search.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Search.TopK)
	}
	if cfg.Watch.Debounce() != 2*time.Second {
		t.Errorf("expected 2s debounce, got %v", cfg.Watch.Debounce())
	}
}

func TestWatchDebounceDefault(t *testing.T) {
	w := WatchConfig{}
	if w.Debounce() != 2*time.Second {
		t.Errorf("expected 2s fallback, got %v", w.Debounce())
	}

	w = WatchConfig{DebounceMS: 250}
	if w.Debounce() != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v", w.Debounce())
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "imseek.yaml")

	content := `
embedding:
  provider: mock
  dimension: 64
search:
  top_k: 5
index:
  extensions: [".jpg", ".webp"]
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "mock" {
		t.Errorf("expected provider mock, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension != 64 {
		t.Errorf("expected dimension 64, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("expected TopK=5, got %d", cfg.Search.TopK)
	}
	if len(cfg.Index.Extensions) != 2 {
		t.Errorf("expected 2 extensions, got %v", cfg.Index.Extensions)
	}
}

func TestLoad_ExpandsStorageDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "imseek.yaml")

	content := `
storage:
  dir: my-index
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := filepath.Join(tmpDir, "my-index")
	if cfg.Storage.Dir != expected {
		t.Errorf("expected %s, got %s", expected, cfg.Storage.Dir)
	}
}

func TestLoad_KeepsAbsolutePaths(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "imseek.yaml")

	content := `
storage:
  dir: /var/lib/imseek
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Dir != "/var/lib/imseek" {
		t.Errorf("absolute path must not be rewritten, got %s", cfg.Storage.Dir)
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "imseek.yaml")

	content := `
search:
  top_k: 25
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Search.TopK != 25 {
		t.Errorf("expected TopK=25, got %d", cfg.Search.TopK)
	}
}

func TestLoadFromDir_HiddenFallback(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".imseek"), 0755); err != nil {
		t.Fatal(err)
	}

	content := `
embedding:
  provider: onnx
`
	configPath := filepath.Join(tmpDir, ".imseek", "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "onnx" {
		t.Errorf("expected provider onnx, got %q", cfg.Embedding.Provider)
	}
}

func TestLoadFromDir_Defaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := filepath.Join(tmpDir, "storage")
	if cfg.Storage.Dir != expected {
		t.Errorf("expected storage dir %s, got %s", expected, cfg.Storage.Dir)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "imseek.yaml")

	cfg := DefaultConfig()
	cfg.Search.TopK = 42
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Search.TopK != 42 {
		t.Errorf("expected TopK=42 after round trip, got %d", loaded.Search.TopK)
	}
}
