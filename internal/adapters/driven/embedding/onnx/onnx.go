//go:build cgo

package onnx

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/custodia-labs/fintweet/internal/core/domain"
	"github.com/custodia-labs/fintweet/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

var (
	inputNames  = []string{"input_ids", "attention_mask", "token_type_ids"}
	outputNames = []string{"last_hidden_state"}
)

// EmbeddingService embeds text with an ONNX sentence-transformer.
type EmbeddingService struct {
	mu        sync.Mutex
	cfg       Config
	tokenizer *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
}

// NewEmbeddingService loads the runtime, the tokenizer and the model.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	cfg.applyDefaults()
	if cfg.ModelPath == "" || cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("%w: onnx model_path and tokenizer_path are required", domain.ErrInvalidInput)
	}

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("onnx init environment: %w", err)
		}
	}

	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, inputNames, outputNames, nil)
	if err != nil {
		return nil, fmt.Errorf("onnx new session: %w", err)
	}

	return &EmbeddingService{
		cfg:       cfg,
		tokenizer: tk,
		session:   session,
	}, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch tokenises the texts, pads them to the longest sequence and runs
// one inference for the whole batch.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoded := make([]*tokenizer.Encoding, len(texts))
	seqLen := 1
	for i, text := range texts {
		enc, err := s.tokenizer.EncodeSingle(text, true)
		if err != nil {
			return nil, fmt.Errorf("tokenize text %d: %w", i, err)
		}
		encoded[i] = enc
		seqLen = max(seqLen, min(len(enc.Ids), s.cfg.MaxSeqLen))
	}

	batch := len(texts)
	ids := make([]int64, batch*seqLen)
	mask := make([]int64, batch*seqLen)
	types := make([]int64, batch*seqLen)
	for b, enc := range encoded {
		n := min(len(enc.Ids), seqLen)
		for t := range n {
			ids[b*seqLen+t] = int64(enc.Ids[t])
			mask[b*seqLen+t] = 1
			if t < len(enc.TypeIds) {
				types[b*seqLen+t] = int64(enc.TypeIds[t])
			}
		}
		// Keep the trailing special token when truncating.
		if len(enc.Ids) > seqLen {
			ids[b*seqLen+seqLen-1] = int64(enc.Ids[len(enc.Ids)-1])
		}
	}

	shape := ort.NewShape(int64(batch), int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, ids)
	if err != nil {
		return nil, fmt.Errorf("onnx input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, mask)
	if err != nil {
		return nil, fmt.Errorf("onnx attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typesTensor, err := ort.NewTensor(shape, types)
	if err != nil {
		return nil, fmt.Errorf("onnx token_type_ids tensor: %w", err)
	}
	defer typesTensor.Destroy()

	hidden := s.cfg.Dimensions
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(batch), int64(seqLen), int64(hidden)))
	if err != nil {
		return nil, fmt.Errorf("onnx output tensor: %w", err)
	}
	defer output.Destroy()

	s.mu.Lock()
	err = s.session.Run(
		[]ort.Value{idsTensor, maskTensor, typesTensor},
		[]ort.Value{output},
	)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	return meanPool(output.GetData(), mask, batch, seqLen, hidden), nil
}

// meanPool averages token states under the attention mask and L2 normalises
// each sentence vector.
func meanPool(states []float32, mask []int64, batch, seqLen, hidden int) [][]float32 {
	out := make([][]float32, batch)
	for b := range batch {
		vec := make([]float32, hidden)
		var count float32
		for t := range seqLen {
			if mask[b*seqLen+t] == 0 {
				continue
			}
			count++
			row := states[(b*seqLen+t)*hidden : (b*seqLen+t+1)*hidden]
			for h, v := range row {
				vec[h] += v
			}
		}
		var norm float64
		for h := range vec {
			if count > 0 {
				vec[h] /= count
			}
			norm += float64(vec[h]) * float64(vec[h])
		}
		if norm > 0 {
			inv := float32(1 / math.Sqrt(norm))
			for h := range vec {
				vec[h] *= inv
			}
		}
		out[b] = vec
	}
	return out
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.cfg.Dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.cfg.ModelName
}

// Ping runs a one-token inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases the session. The runtime environment stays initialised for
// the life of the process.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
