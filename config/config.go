package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the image search tool.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates the durable index (vectors, metadata, manifests).
type StorageConfig struct {
	Dir string `yaml:"dir"`
}

// IndexConfig controls which files the directory walker picks up.
type IndexConfig struct {
	Extensions []string `yaml:"extensions"`
	Excludes   []string `yaml:"excludes"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "clip-server", "onnx", "mock"
	Model    string `yaml:"model"`

	// clip-server provider.
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// onnx provider.
	ImageModelPath string `yaml:"image_model_path"`
	TextModelPath  string `yaml:"text_model_path"`

	// mock and onnx need the dimension up front; clip-server reports its own.
	Dimension int `yaml:"dimension"`

	// On-disk cache of computed image embeddings. Empty path disables it.
	CachePath string `yaml:"cache_path"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// WatchConfig holds watch-mode settings.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms"`
}

// Debounce returns the watch debounce interval; defaults to 2s when unset.
func (w *WatchConfig) Debounce() time.Duration {
	if w.DebounceMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir: "storage",
		},
		Index: IndexConfig{
			Extensions: []string{".jpg", ".jpeg", ".png"},
			Excludes:   []string{},
		},
		Embedding: EmbeddingConfig{
			Provider:       "clip-server",
			Model:          "ViT-B/32",
			BaseURL:        "http://localhost:8750",
			TimeoutSeconds: 120,
			Dimension:      512,
			CachePath:      "",
		},
		Search: SearchConfig{
			TopK: 10,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8675,
		},
		Watch: WatchConfig{
			DebounceMS: 2000,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Development: false,
		},
	}
}

// Load loads configuration from a YAML file. A missing file is not an
// error; defaults are returned so the tool works with zero setup.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.expandPaths(filepath.Dir(path))
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for imseek.yaml,
// then .imseek/config.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "imseek.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".imseek", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	cfg := DefaultConfig()
	cfg.expandPaths(dir)
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// expandPaths resolves relative file paths against the directory the
// configuration was loaded from, so running the tool from elsewhere still
// finds the same index.
func (c *Config) expandPaths(base string) {
	c.Storage.Dir = expandPath(c.Storage.Dir, base)
	c.Embedding.ImageModelPath = expandPath(c.Embedding.ImageModelPath, base)
	c.Embedding.TextModelPath = expandPath(c.Embedding.TextModelPath, base)
	c.Embedding.CachePath = expandPath(c.Embedding.CachePath, base)
}

func expandPath(path, base string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return filepath.Join(base, path)
}
