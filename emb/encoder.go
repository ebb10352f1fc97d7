// Package emb runs a transformer encoder through ONNX Runtime and exposes
// per-token embedding vectors (the model's last hidden state). It knows
// nothing about scoring; compare wraps it behind the TokenEmbedder interface.
package emb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config locates the runtime library, model and tokenizer files.
type Config struct {
	OrtDLL        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
}

// Token is one tokenizer output together with its hidden-state vector.
type Token struct {
	Text   string
	Vector []float32
}

// Encoder wraps a tokenizer and an ONNX inference session. Init must succeed
// before EncodeTokens is usable; initialization failures are returned to the
// caller so it can fall back to lexical-only scoring.
type Encoder struct {
	tk        *tokenizer.Tokenizer
	session   *ort.DynamicAdvancedSession
	maxSeqLen int
	mu        sync.Mutex
}

// Init loads the tokenizer and creates the inference session.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("emb: model path is required")
	}
	if cfg.TokenizerPath == "" {
		return errors.New("emb: tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}
	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	if cfg.OrtDLL != "" {
		ort.SetSharedLibraryPath(cfg.OrtDLL)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("init onnxruntime: %w", err)
		}
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"last_hidden_state"},
		nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	e.tk = tk
	e.session = session
	e.maxSeqLen = cfg.MaxSeqLen
	return nil
}

// Close releases the inference session.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.tk = nil
}

// EncodeTokens tokenizes text and returns one hidden-state vector per
// non-special token. Special tokens (CLS, SEP, padding) are dropped so the
// result reads as "the tokens of the text, each with an embedding".
func (e *Encoder) EncodeTokens(text string) ([]Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil || e.tk == nil {
		return nil, errors.New("emb: encoder is not initialized")
	}
	encoding, err := e.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	ids := encoding.Ids
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > e.maxSeqLen {
		ids = ids[:e.maxSeqLen]
	}
	seqLen := len(ids)

	inputIds := make([]int64, seqLen)
	attentionMask := make([]int64, seqLen)
	typeIds := make([]int64, seqLen)
	for i, id := range ids {
		inputIds[i] = int64(id)
		attentionMask[i] = 1
		if i < len(encoding.TypeIds) {
			typeIds[i] = int64(encoding.TypeIds[i])
		}
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor(shape, inputIds)
	if err != nil {
		return nil, fmt.Errorf("create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor(shape, attentionMask)
	if err != nil {
		return nil, fmt.Errorf("create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()
	typeTensor, err := ort.NewTensor(shape, typeIds)
	if err != nil {
		return nil, fmt.Errorf("create token_type_ids tensor: %w", err)
	}
	defer typeTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := e.session.Run([]ort.Value{idsTensor, maskTensor, typeTensor}, outputs); err != nil {
		return nil, fmt.Errorf("run inference: %w", err)
	}
	hidden, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("emb: unexpected output tensor type")
	}
	defer hidden.Destroy()

	outShape := hidden.GetShape()
	if len(outShape) != 3 {
		return nil, fmt.Errorf("unexpected hidden state shape %v", outShape)
	}
	dim := int(outShape[2])
	data := hidden.GetData()
	if len(data) < seqLen*dim {
		return nil, fmt.Errorf("hidden state too small: %d values for %d tokens", len(data), seqLen)
	}

	tokens := make([]Token, 0, seqLen)
	for i := 0; i < seqLen; i++ {
		if i < len(encoding.SpecialTokenMask) && encoding.SpecialTokenMask[i] == 1 {
			continue
		}
		vec := make([]float32, dim)
		copy(vec, data[i*dim:(i+1)*dim])
		tok := Token{Vector: vec}
		if i < len(encoding.Tokens) {
			tok.Text = encoding.Tokens[i]
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
