//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
	"image"
)

// ONNXEmbedder stub type when built without CGO (see onnx.go for the real
// implementation).
type ONNXEmbedder struct{}

// NewONNXEmbedder returns an error when built without CGO.
func NewONNXEmbedder(_, _, _ string, _ int) (*ONNXEmbedder, error) {
	return nil, errors.New("embedding: onnx provider requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

func (e *ONNXEmbedder) EmbedImage(context.Context, image.Image) ([]float32, error) {
	return nil, errors.New("embedding: onnx provider not built")
}

func (e *ONNXEmbedder) EmbedText(context.Context, string) ([]float32, error) {
	return nil, errors.New("embedding: onnx provider not built")
}

func (e *ONNXEmbedder) Dimension() int { return 0 }

func (e *ONNXEmbedder) ModelName() string { return "onnx" }

func (e *ONNXEmbedder) Close() error { return nil }
