//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	"imseek/internal/adapter/imaging"
)

const (
	// CLIP's visual input size and text context length.
	clipImageSize  = 224
	clipContextLen = 77

	// CLIP BPE vocabulary markers.
	clipStartToken = 49406
	clipEndToken   = 49407
	clipVocabSize  = 49152
)

// CLIP's published normalization constants for the visual encoder.
var (
	clipMean = [3]float32{0.48145466, 0.4578275, 0.40821073}
	clipStd  = [3]float32{0.26862954, 0.26130258, 0.27577711}
)

// ONNXEmbedder runs CLIP locally through onnxruntime. It loads two exported
// graphs, the visual encoder and the text encoder, and requires CGO plus
// the onnxruntime shared library.
type ONNXEmbedder struct {
	model     string
	dimension int

	imageSession *ort.AdvancedSession
	textSession  *ort.AdvancedSession

	// Pre-allocated tensors for Run(); we update input data and read output.
	pixelTensor    *ort.Tensor[float32]
	imageOutTensor *ort.Tensor[float32]
	inputIDsTensor *ort.Tensor[int64]
	textOutTensor  *ort.Tensor[float32]

	mu sync.Mutex
}

// NewONNXEmbedder loads the exported CLIP encoders. The graphs must use the
// standard export names: pixel_values -> image_embeds for the visual side
// and input_ids -> text_embeds for the text side.
func NewONNXEmbedder(imageModelPath, textModelPath, model string, dimension int) (*ONNXEmbedder, error) {
	if imageModelPath == "" || textModelPath == "" {
		return nil, fmt.Errorf("embedding: onnx provider needs image_model_path and text_model_path")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("embedding: dimension must be positive, got %d", dimension)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("embedding: initialize ONNX runtime: %w", err)
	}

	pixelTensor, err := ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize),
		make([]float32, 3*clipImageSize*clipImageSize))
	if err != nil {
		return nil, fmt.Errorf("embedding: create pixel_values tensor: %w", err)
	}
	imageOutTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimension)), make([]float32, dimension))
	if err != nil {
		pixelTensor.Destroy()
		return nil, fmt.Errorf("embedding: create image output tensor: %w", err)
	}

	imageSession, err := ort.NewAdvancedSession(
		imageModelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{pixelTensor},
		[]ort.ArbitraryTensor{imageOutTensor},
		nil,
	)
	if err != nil {
		pixelTensor.Destroy()
		imageOutTensor.Destroy()
		return nil, fmt.Errorf("embedding: create image session: %w", err)
	}

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, clipContextLen), make([]int64, clipContextLen))
	if err != nil {
		imageSession.Destroy()
		pixelTensor.Destroy()
		imageOutTensor.Destroy()
		return nil, fmt.Errorf("embedding: create input_ids tensor: %w", err)
	}
	textOutTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimension)), make([]float32, dimension))
	if err != nil {
		imageSession.Destroy()
		pixelTensor.Destroy()
		imageOutTensor.Destroy()
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("embedding: create text output tensor: %w", err)
	}

	textSession, err := ort.NewAdvancedSession(
		textModelPath,
		[]string{"input_ids"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{inputIDsTensor},
		[]ort.ArbitraryTensor{textOutTensor},
		nil,
	)
	if err != nil {
		imageSession.Destroy()
		pixelTensor.Destroy()
		imageOutTensor.Destroy()
		inputIDsTensor.Destroy()
		textOutTensor.Destroy()
		return nil, fmt.Errorf("embedding: create text session: %w", err)
	}

	return &ONNXEmbedder{
		model:          model,
		dimension:      dimension,
		imageSession:   imageSession,
		textSession:    textSession,
		pixelTensor:    pixelTensor,
		imageOutTensor: imageOutTensor,
		inputIDsTensor: inputIDsTensor,
		textOutTensor:  textOutTensor,
	}, nil
}

// EmbedImage preprocesses the image to CLIP's 224x224 CHW layout and runs
// the visual encoder.
func (e *ONNXEmbedder) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	pixels := preprocessImage(img)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.pixelTensor.GetData(), pixels)
	if err := e.imageSession.Run(); err != nil {
		return nil, fmt.Errorf("embedding: image inference failed: %w", err)
	}

	return e.readOutput(e.imageOutTensor), nil
}

// EmbedText tokenizes the text and runs the text encoder.
func (e *ONNXEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	ids := tokenizeCLIP(text)

	e.mu.Lock()
	defer e.mu.Unlock()

	copy(e.inputIDsTensor.GetData(), ids)
	if err := e.textSession.Run(); err != nil {
		return nil, fmt.Errorf("embedding: text inference failed: %w", err)
	}

	return e.readOutput(e.textOutTensor), nil
}

// readOutput copies the session output and normalizes it to unit length,
// matching what the hosted CLIP providers return.
func (e *ONNXEmbedder) readOutput(t *ort.Tensor[float32]) []float32 {
	out := t.GetData()
	vec := make([]float32, e.dimension)
	copy(vec, out[:e.dimension])
	normalizeL2(vec)
	return vec
}

// Dimension returns the embedding dimension.
func (e *ONNXEmbedder) Dimension() int {
	return e.dimension
}

// ModelName identifies the loaded model.
func (e *ONNXEmbedder) ModelName() string {
	return e.model
}

// Close destroys the sessions and tensors.
func (e *ONNXEmbedder) Close() error {
	var err error
	if e.imageSession != nil {
		err = e.imageSession.Destroy()
		e.imageSession = nil
	}
	if e.textSession != nil {
		if derr := e.textSession.Destroy(); err == nil {
			err = derr
		}
		e.textSession = nil
	}
	for _, t := range []interface{ Destroy() error }{
		e.pixelTensor, e.imageOutTensor, e.inputIDsTensor, e.textOutTensor,
	} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	e.pixelTensor, e.imageOutTensor, e.inputIDsTensor, e.textOutTensor = nil, nil, nil, nil
	return err
}

// preprocessImage scales to 224x224 and converts to normalized CHW floats.
func preprocessImage(img image.Image) []float32 {
	scaled := image.NewRGBA(image.Rect(0, 0, clipImageSize, clipImageSize))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), imaging.ToRGBA(img), img.Bounds(), draw.Src, nil)

	pixels := make([]float32, 3*clipImageSize*clipImageSize)
	plane := clipImageSize * clipImageSize
	for y := 0; y < clipImageSize; y++ {
		for x := 0; x < clipImageSize; x++ {
			off := scaled.PixOffset(x, y)
			idx := y*clipImageSize + x
			pixels[idx] = (float32(scaled.Pix[off])/255 - clipMean[0]) / clipStd[0]
			pixels[plane+idx] = (float32(scaled.Pix[off+1])/255 - clipMean[1]) / clipStd[1]
			pixels[2*plane+idx] = (float32(scaled.Pix[off+2])/255 - clipMean[2]) / clipStd[2]
		}
	}
	return pixels
}

// tokenizeCLIP is a word-split tokenizer with hash-based token IDs inside
// CLIP's vocabulary range, padded to the context length. It stands in for
// the full BPE tokenizer; exported models bundled with their own tokenizer
// should use the clip-server provider instead.
func tokenizeCLIP(text string) []int64 {
	ids := make([]int64, clipContextLen)
	ids[0] = clipStartToken

	pos := 1
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if pos >= clipContextLen-1 {
			break
		}
		ids[pos] = int64(hashWord(word)%(clipVocabSize-2)) + 1
		pos++
	}
	ids[pos] = clipEndToken
	return ids
}

func hashWord(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}

func normalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
}
