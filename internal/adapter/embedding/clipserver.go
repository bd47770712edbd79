package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"imseek/internal/adapter/imaging"
)

// ClipServerEmbedder talks to a local CLIP inference sidecar over HTTP.
// The sidecar exposes POST /embed/text and POST /embed/image and returns
// unit-norm vectors; model inference stays out of this process.
type ClipServerEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type textRequest struct {
	Text  string `json:"text"`
	Model string `json:"model,omitempty"`
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
	Model       string `json:"model,omitempty"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
	Error     string    `json:"error,omitempty"`
}

// NewClipServerEmbedder creates a client for the sidecar at baseURL.
// dimension is the expected vector size; responses of any other size are
// rejected so a misconfigured sidecar cannot poison an index.
func NewClipServerEmbedder(baseURL, model string, dimension int, timeout time.Duration) (*ClipServerEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding: clip-server base URL is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", dimension)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &ClipServerEmbedder{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// EmbedText embeds a text query.
func (e *ClipServerEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.post(ctx, "/embed/text", textRequest{Text: text, Model: e.model})
}

// EmbedImage embeds a decoded image. The image is sent to the sidecar as a
// base64 PNG of the normalized pixels.
func (e *ClipServerEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	data, err := imaging.EncodePNG(imaging.ToRGBA(img))
	if err != nil {
		return nil, err
	}
	req := imageRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		Model:       e.model,
	}
	return e.post(ctx, "/embed/image", req)
}

func (e *ClipServerEmbedder) post(ctx context.Context, path string, payload any) ([]float32, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("embedding: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("embedding: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("embedding: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("embedding: server returned status %d: %s", resp.StatusCode, preview)
	}

	var embResp embedResponse
	if err := json.Unmarshal(body, &embResp); err != nil {
		return nil, fmt.Errorf("embedding: parse response: %w", err)
	}
	if embResp.Error != "" {
		return nil, fmt.Errorf("embedding: server error: %s", embResp.Error)
	}
	if len(embResp.Embedding) != e.dimension {
		return nil, fmt.Errorf("embedding: server returned dimension %d, expected %d",
			len(embResp.Embedding), e.dimension)
	}

	return embResp.Embedding, nil
}

// Dimension returns the configured embedding dimension.
func (e *ClipServerEmbedder) Dimension() int {
	return e.dimension
}

// ModelName identifies the sidecar model.
func (e *ClipServerEmbedder) ModelName() string {
	return e.model
}

// Close is a no-op; the sidecar owns the model lifetime.
func (e *ClipServerEmbedder) Close() error {
	return nil
}
