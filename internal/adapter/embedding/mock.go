package embedding

import (
	"context"
	"hash/fnv"
	"image"
	"math"

	"imseek/internal/adapter/imaging"
)

// MockEmbedder is a deterministic embedder for tests and offline runs. The
// same text or identical image pixels always produce the same unit vector,
// so indexes built with it are reproducible.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder returns a mock embedder of the given dimension.
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 512
	}
	return &MockEmbedder{dimension: dimension}
}

// EmbedText derives a unit vector from a hash of the text.
func (e *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	return e.fromSeed(h.Sum64()), nil
}

// EmbedImage derives a unit vector from a hash of the normalized pixels.
func (e *MockEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	rgba := imaging.ToRGBA(img)

	h := fnv.New64a()
	bounds := rgba.Bounds()
	h.Write([]byte{
		byte(bounds.Dx() >> 8), byte(bounds.Dx()),
		byte(bounds.Dy() >> 8), byte(bounds.Dy()),
	})
	h.Write(rgba.Pix)
	return e.fromSeed(h.Sum64()), nil
}

// fromSeed spreads a hash over the vector components and normalizes.
func (e *MockEmbedder) fromSeed(seed uint64) []float32 {
	vec := make([]float32, e.dimension)
	var sum float64
	for i := range vec {
		v := math.Sin(float64(seed%100003)*float64(i+1)*0.0137 + float64(i))
		vec[i] = float32(v)
		sum += v * v
	}
	if sum == 0 {
		vec[0] = 1
		return vec
	}
	inv := 1 / math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
	return vec
}

// Dimension returns the embedding dimension.
func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

// ModelName identifies the mock.
func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
