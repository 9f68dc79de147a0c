// Package onnx runs a sentence-transformer model in-process with ONNX Runtime.
//
// The model must be exported with input_ids, attention_mask and
// token_type_ids inputs and a last_hidden_state output; sentence vectors are
// the attention-masked mean of the token states, L2 normalised. Tokenisation
// uses a HuggingFace tokenizer.json file.
//
// The runtime binding needs cgo. Builds without cgo get a stub whose
// constructor fails with domain.ErrNotImplemented.
package onnx

// Default configuration values.
const (
	DefaultMaxSeqLen  = 128
	DefaultDimensions = 384
	DefaultModelName  = "all-MiniLM-L6-v2"
)

// Config locates the model files.
type Config struct {
	// ModelPath is the .onnx model file (required).
	ModelPath string

	// TokenizerPath is the tokenizer.json file (required).
	TokenizerPath string

	// LibraryPath overrides the onnxruntime shared library location.
	LibraryPath string

	// ModelName is reported by ModelName and used in cache keys.
	ModelName string

	// Dimensions is the hidden size of the model.
	Dimensions int

	// MaxSeqLen truncates token sequences.
	MaxSeqLen int
}

func (c *Config) applyDefaults() {
	if c.MaxSeqLen <= 0 {
		c.MaxSeqLen = DefaultMaxSeqLen
	}
	if c.Dimensions <= 0 {
		c.Dimensions = DefaultDimensions
	}
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
}
