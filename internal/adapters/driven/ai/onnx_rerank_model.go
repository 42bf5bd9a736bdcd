//go:build cgo
// +build cgo

package ai

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/archivio-labs/archivio-search/internal/core/ports/driven"
)

// Ensure ONNXRerankModel implements RerankModel
var _ driven.RerankModel = (*ONNXRerankModel)(nil)

// ONNXRerankModel runs a local BERT-style sentence-embedding model via
// ONNX Runtime. Requires CGO and the onnxruntime shared library.
// The session and its tensors are shared state; inference is serialized
// behind a mutex since the pre-allocated tensors are reused per call.
type ONNXRerankModel struct {
	session    *ort.AdvancedSession
	dimensions int
	maxTokens  int
	tokenizer  bertTokenizer

	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
	mu                  sync.Mutex
}

// NewONNXRerankModel loads the model at modelPath. InitializeEnvironment
// is called if not already done.
func NewONNXRerankModel(modelPath string, dimensions, maxTokens int) (driven.RerankModel, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	tokenizer := bertTokenizer{}
	inputIDs, attentionMask, tokenTypeIDs := tokenizer.tokenize("", maxTokens)

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), attentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, int64(maxTokens)), tokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{outputTensor},
		nil,
	)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		tokenTypeIDsTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXRerankModel{
		session:             session,
		dimensions:          dimensions,
		maxTokens:           maxTokens,
		tokenizer:           tokenizer,
		inputIDsTensor:      inputIDsTensor,
		attentionMaskTensor: attentionMaskTensor,
		tokenTypeIDsTensor:  tokenTypeIDsTensor,
		outputTensor:        outputTensor,
	}, nil
}

// Encode embeds the given texts into unit-normalized vectors.
func (m *ONNXRerankModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embedding, err := m.encodeOne(text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = embedding
	}
	return embeddings, nil
}

func (m *ONNXRerankModel) encodeOne(text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inputIDs, attentionMask, tokenTypeIDs := m.tokenizer.tokenize(text, m.maxTokens)

	copy(m.inputIDsTensor.GetData(), inputIDs)
	copy(m.attentionMaskTensor.GetData(), attentionMask)
	copy(m.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	embedding := make([]float32, m.dimensions)
	copy(embedding, m.outputTensor.GetData()[:m.dimensions])
	normalizeL2(embedding)
	return embedding, nil
}

// Dimensions returns the embedding dimension
func (m *ONNXRerankModel) Dimensions() int {
	return m.dimensions
}

// Close destroys the session and tensors
func (m *ONNXRerankModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.inputIDsTensor != nil {
		_ = m.inputIDsTensor.Destroy()
		m.inputIDsTensor = nil
	}
	if m.attentionMaskTensor != nil {
		_ = m.attentionMaskTensor.Destroy()
		m.attentionMaskTensor = nil
	}
	if m.tokenTypeIDsTensor != nil {
		_ = m.tokenTypeIDsTensor.Destroy()
		m.tokenTypeIDsTensor = nil
	}
	if m.outputTensor != nil {
		_ = m.outputTensor.Destroy()
		m.outputTensor = nil
	}
	return err
}

// normalizeL2 normalizes the slice in place to unit L2 norm.
func normalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
