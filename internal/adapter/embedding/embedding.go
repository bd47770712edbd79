// Package embedding provides the CLIP embedding providers that map images
// and text into one shared vector space.
package embedding

import (
	"fmt"
	"time"

	"imseek/config"
	"imseek/internal/port"
)

// NewEmbedder constructs the provider selected by the configuration.
func NewEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "clip-server":
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		return NewClipServerEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimension, timeout)
	case "onnx":
		return NewONNXEmbedder(cfg.ImageModelPath, cfg.TextModelPath, cfg.Model, cfg.Dimension)
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("embedding: unsupported provider: %s", cfg.Provider)
	}
}
