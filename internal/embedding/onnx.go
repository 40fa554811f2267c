//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hyperjump/wraith/pkg/utils"
)

// ONNXEmbedder runs a sentence-transformer model such as all-MiniLM-L6-v2
// through ONNX Runtime. It requires CGO and the onnxruntime shared library.
// It is not safe for concurrent inference on its own; wrap it in a
// CachedEmbedder sharing the scorer's model lock.
type ONNXEmbedder struct {
	opts      ONNXOptions
	tokenizer Tokenizer

	mu      sync.Mutex
	session *ort.AdvancedSession
	ids     *ort.Tensor[int64]
	mask    *ort.Tensor[int64]
	types   *ort.Tensor[int64]
	output  *ort.Tensor[float32]
}

// NewONNXEmbedder loads the model and allocates fixed-shape tensors that every
// Embed call reuses.
func NewONNXEmbedder(opts ONNXOptions) (*ONNXEmbedder, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("onnx model path is empty")
	}
	if opts.Dimensions <= 0 || opts.MaxTokens <= 0 {
		return nil, fmt.Errorf("onnx embedder needs positive dimensions and max_tokens, got %d and %d", opts.Dimensions, opts.MaxTokens)
	}
	if opts.OutputName == "" {
		opts.OutputName = OutputTokens
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	e := &ONNXEmbedder{opts: opts, tokenizer: &SimpleTokenizer{}}
	seq := int64(opts.MaxTokens)
	var err error
	if e.ids, err = ort.NewEmptyTensor[int64](ort.NewShape(1, seq)); err != nil {
		return nil, e.fail("input_ids tensor", err)
	}
	if e.mask, err = ort.NewEmptyTensor[int64](ort.NewShape(1, seq)); err != nil {
		return nil, e.fail("attention_mask tensor", err)
	}
	if e.types, err = ort.NewEmptyTensor[int64](ort.NewShape(1, seq)); err != nil {
		return nil, e.fail("token_type_ids tensor", err)
	}
	outShape := ort.NewShape(1, seq, int64(opts.Dimensions))
	if opts.pooled() {
		outShape = ort.NewShape(1, int64(opts.Dimensions))
	}
	if e.output, err = ort.NewEmptyTensor[float32](outShape); err != nil {
		return nil, e.fail("output tensor", err)
	}

	e.session, err = ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{opts.OutputName},
		[]ort.ArbitraryTensor{e.ids, e.mask, e.types},
		[]ort.ArbitraryTensor{e.output},
		nil,
	)
	if err != nil {
		return nil, e.fail("ONNX session", err)
	}
	return e, nil
}

func (e *ONNXEmbedder) fail(what string, err error) error {
	_ = e.Close()
	return fmt.Errorf("failed to create %s: %w", what, err)
}

// Embed returns the unit-length embedding for text.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder is closed")
	}

	ids, mask, types := e.tokenizer.Tokenize(text, e.opts.MaxTokens)
	copy(e.ids.GetData(), ids)
	copy(e.mask.GetData(), mask)
	copy(e.types.GetData(), types)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := e.output.GetData()
	if !e.opts.pooled() {
		return maskedMeanPool(out, mask, e.opts.Dimensions), nil
	}
	vec := make([]float32, e.opts.Dimensions)
	copy(vec, out)
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds texts one at a time; the tensors have batch size 1.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int { return e.opts.Dimensions }

// Close destroys the session and tensors. It is safe to call more than once.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.ids, e.mask, e.types} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.output != nil {
		_ = e.output.Destroy()
	}
	e.ids, e.mask, e.types, e.output = nil, nil, nil, nil
	return err
}
