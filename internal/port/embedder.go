package port

import (
	"context"
	"image"
)

// Embedder maps images and text into one shared vector space.
// Implementations must return unit-norm vectors of a fixed dimension that is
// decided when the model is loaded; text and image vectors are comparable by
// inner product.
type Embedder interface {
	// EmbedImage embeds a decoded image.
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)

	// EmbedText embeds a free-text query.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName identifies the underlying model. Indexes record it so that a
	// store built with one model is not searched with another.
	ModelName() string

	// Close releases model resources.
	Close() error
}
