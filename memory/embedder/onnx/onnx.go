//go:build onnx

// Package onnx provides a local embedder backed by ONNX Runtime, intended
// for all-MiniLM-L6-v2 style sentence transformers. Offline and free, at
// the cost of a native runtime dependency; the package builds only under
// the onnx tag.
package onnx

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Config configures the ONNX embedder.
type Config struct {
	// ModelPath is the path to the ONNX model file. Required.
	ModelPath string

	// TokenizerPath is the path to the HuggingFace tokenizer.json. Required.
	TokenizerPath string

	// LibraryPath locates the onnxruntime shared library. Falls back to
	// the AMICA_ONNXRUNTIME_LIB environment variable.
	LibraryPath string

	// Dimensions is the embedding size. Defaults to 384 (all-MiniLM-L6-v2).
	Dimensions int

	// MaxSequenceLength caps tokenized input. Defaults to 128.
	MaxSequenceLength int
}

// Embedder runs sentence-transformer inference through ONNX Runtime.
type Embedder struct {
	session    *ort.DynamicAdvancedSession
	tokenizer  *wordPieceTokenizer
	dimensions int
	maxSeqLen  int
}

// New creates an ONNX embedder, initializing the runtime environment.
func New(cfg Config) (*Embedder, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx embedder: ModelPath is required")
	}
	if cfg.TokenizerPath == "" {
		return nil, fmt.Errorf("onnx embedder: TokenizerPath is required")
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 384
	}
	if cfg.MaxSequenceLength == 0 {
		cfg.MaxSequenceLength = 128
	}
	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = os.Getenv("AMICA_ONNXRUNTIME_LIB")
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnx runtime: %w", err)
	}

	tokenizer, err := loadTokenizer(cfg.TokenizerPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &Embedder{
		session:    session,
		tokenizer:  tokenizer,
		dimensions: cfg.Dimensions,
		maxSeqLen:  cfg.MaxSequenceLength,
	}, nil
}

// Embed tokenizes text, runs inference, mean-pools over attended tokens,
// and returns the unit-normalized vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	inputIDs, attentionMask, tokenTypeIDs := e.encode(text)

	shape := ort.NewShape(1, int64(e.maxSeqLen))
	inputTensor, err := ort.NewTensor(shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer inputTensor.Destroy()

	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	typeTensor, err := ort.NewTensor(shape, tokenTypeIDs)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{inputTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnx inference: %w", err)
	}
	defer func() {
		for _, out := range outputs {
			if out != nil {
				out.Destroy()
			}
		}
	}()
	if outputs[0] == nil {
		return nil, fmt.Errorf("onnx inference returned no output")
	}
	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output tensor type %T", outputs[0])
	}

	embedding, err := e.pool(tensor, attentionMask)
	if err != nil {
		return nil, err
	}
	normalize(embedding)
	return embedding, nil
}

// encode builds the fixed-length input arrays with [CLS] and [SEP] markers.
func (e *Embedder) encode(text string) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	tokens := e.tokenizer.tokenize(text)
	if len(tokens) > e.maxSeqLen-2 {
		tokens = tokens[:e.maxSeqLen-2]
	}

	inputIDs = make([]int64, e.maxSeqLen)
	attentionMask = make([]int64, e.maxSeqLen)
	tokenTypeIDs = make([]int64, e.maxSeqLen)

	inputIDs[0] = clsTokenID
	attentionMask[0] = 1
	for i, tok := range tokens {
		inputIDs[i+1] = tok
		attentionMask[i+1] = 1
	}
	inputIDs[len(tokens)+1] = sepTokenID
	attentionMask[len(tokens)+1] = 1
	return inputIDs, attentionMask, tokenTypeIDs
}

// pool reduces the model output to one vector. A 2D output is already
// pooled; a 3D output is mean-pooled over attended positions.
func (e *Embedder) pool(tensor *ort.Tensor[float32], attentionMask []int64) ([]float32, error) {
	data := tensor.GetData()
	shape := tensor.GetShape()

	switch len(shape) {
	case 2:
		if len(data) < e.dimensions {
			return nil, fmt.Errorf("output dimension mismatch: got %d, want %d", len(data), e.dimensions)
		}
		embedding := make([]float32, e.dimensions)
		copy(embedding, data[:e.dimensions])
		return embedding, nil

	case 3:
		seqLen, hidden := int(shape[1]), int(shape[2])
		if shape[0] != 1 {
			return nil, fmt.Errorf("expected batch size 1, got %d", shape[0])
		}
		if hidden != e.dimensions {
			return nil, fmt.Errorf("hidden size mismatch: got %d, want %d", hidden, e.dimensions)
		}
		embedding := make([]float32, hidden)
		var attended float32
		for i := 0; i < seqLen; i++ {
			if i >= len(attentionMask) || attentionMask[i] == 0 {
				continue
			}
			attended++
			offset := i * hidden
			for j := 0; j < hidden; j++ {
				embedding[j] += data[offset+j]
			}
		}
		if attended == 0 {
			return embedding, nil
		}
		for j := range embedding {
			embedding[j] /= attended
		}
		return embedding, nil

	default:
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
}

// Dimensions returns the embedding vector size.
func (e *Embedder) Dimensions() int {
	return e.dimensions
}

// Close releases the ONNX session.
func (e *Embedder) Close() error {
	if e.session != nil {
		return e.session.Destroy()
	}
	return nil
}

func normalize(vec []float32) {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return
	}
	norm = float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= norm
	}
}

// BERT special token IDs shared by the MiniLM family.
const (
	unkTokenID = 100
	clsTokenID = 101
	sepTokenID = 102
)

// wordPieceTokenizer is a minimal WordPiece implementation over the vocab
// in a HuggingFace tokenizer.json. Good enough for MiniLM-style models;
// it skips the normalizer pipeline beyond lowercasing.
type wordPieceTokenizer struct {
	vocab map[string]int
}

func loadTokenizer(path string) (*wordPieceTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Model struct {
			Vocab map[string]int `json:"vocab"`
		} `json:"model"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Model.Vocab) == 0 {
		return nil, fmt.Errorf("tokenizer vocab is empty")
	}
	return &wordPieceTokenizer{vocab: parsed.Model.Vocab}, nil
}

func (t *wordPieceTokenizer) tokenize(text string) []int64 {
	var tokens []int64
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := t.vocab[word]; ok {
			tokens = append(tokens, int64(id))
			continue
		}
		tokens = append(tokens, t.wordPiece(word)...)
	}
	return tokens
}

// wordPiece greedily matches the longest vocab prefix, marking
// continuations with the ## prefix.
func (t *wordPieceTokenizer) wordPiece(word string) []int64 {
	var tokens []int64
	start := 0
	for start < len(word) {
		matched := false
		for end := len(word); end > start; end-- {
			piece := word[start:end]
			if start > 0 {
				piece = "##" + piece
			}
			if id, ok := t.vocab[piece]; ok {
				tokens = append(tokens, int64(id))
				start = end
				matched = true
				break
			}
		}
		if !matched {
			tokens = append(tokens, unkTokenID)
			start++
		}
	}
	return tokens
}
