package compare

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"yashubustudio/textcompare/emb"
)

// EmbedderConfig wraps the configuration for the ORT token embedder and its
// cache directory.
type EmbedderConfig struct {
	OrtDLL        string `json:"ortDll"`
	ModelPath     string `json:"modelPath"`
	TokenizerPath string `json:"tokenizerPath"`
	MaxSeqLen     int    `json:"maxSeqLen"`
	CacheDir      string `json:"cacheDir"`
	ModelID       string `json:"modelId"`
}

// OrtEmbedder implements TokenEmbedder on top of emb.Encoder, caching token
// matrices in memory and optionally on disk.
type OrtEmbedder struct {
	enc      *emb.Encoder
	cfg      EmbedderConfig
	memCache map[string][]TokenVector
	mu       sync.RWMutex
}

// NewOrtEmbedder initializes the encoder and prepares cache directories. The
// error is returned to the caller rather than aborting the process, so
// lexical-only operation remains available when the model is absent.
func NewOrtEmbedder(cfg EmbedderConfig) (*OrtEmbedder, error) {
	if cfg.ModelID == "" && cfg.ModelPath != "" {
		cfg.ModelID = filepath.Base(cfg.ModelPath)
	}
	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	encoder := &emb.Encoder{}
	if err := encoder.Init(emb.Config{
		OrtDLL:        cfg.OrtDLL,
		ModelPath:     cfg.ModelPath,
		TokenizerPath: cfg.TokenizerPath,
		MaxSeqLen:     cfg.MaxSeqLen,
	}); err != nil {
		return nil, err
	}
	return &OrtEmbedder{
		enc:      encoder,
		cfg:      cfg,
		memCache: make(map[string][]TokenVector),
	}, nil
}

// Close releases ORT resources.
func (o *OrtEmbedder) Close() error {
	if o == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.enc != nil {
		o.enc.Close()
		o.enc = nil
	}
	o.memCache = nil
	return nil
}

// ModelID returns the identifier used for cache keys.
func (o *OrtEmbedder) ModelID() string {
	return o.cfg.ModelID
}

// EmbedTokens returns one vector per embeddable token of text, with caching.
func (o *OrtEmbedder) EmbedTokens(_ context.Context, text string) ([]TokenVector, error) {
	if o == nil || o.enc == nil {
		return nil, errors.New("embedder is not initialized")
	}
	normalized := NormalizeText(text)
	key := o.cacheKey(normalized)
	if tokens := o.getFromCache(key); tokens != nil {
		return tokens, nil
	}
	if tokens, err := o.loadFromDisk(key); err == nil {
		o.storeInMemory(key, tokens)
		return cloneTokens(tokens), nil
	}
	encoded, err := o.enc.EncodeTokens(normalized)
	if err != nil {
		return nil, err
	}
	tokens := make([]TokenVector, len(encoded))
	for i, tok := range encoded {
		tokens[i] = TokenVector{Token: tok.Text, Vector: tok.Vector}
	}
	o.storeInMemory(key, tokens)
	_ = o.saveToDisk(key, tokens)
	return cloneTokens(tokens), nil
}

func (o *OrtEmbedder) cacheKey(text string) string {
	h := sha1.New()
	_, _ = io.WriteString(h, o.cfg.ModelID)
	_, _ = io.WriteString(h, "|")
	_, _ = io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

func (o *OrtEmbedder) getFromCache(key string) []TokenVector {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if tokens, ok := o.memCache[key]; ok {
		return cloneTokens(tokens)
	}
	return nil
}

func (o *OrtEmbedder) storeInMemory(key string, tokens []TokenVector) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.memCache != nil {
		o.memCache[key] = cloneTokens(tokens)
	}
}

// Disk cache layout, little endian: row count, vector dimension, then the
// flat float32 matrix, then each token as a length-prefixed UTF-8 string.
func (o *OrtEmbedder) loadFromDisk(key string) ([]TokenVector, error) {
	if o.cfg.CacheDir == "" {
		return nil, os.ErrNotExist
	}
	path := filepath.Join(o.cfg.CacheDir, key+".bin")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("cache file too small: %s", path)
	}
	rows := int(binary.LittleEndian.Uint32(data[:4]))
	dim := int(binary.LittleEndian.Uint32(data[4:8]))
	data = data[8:]
	if len(data) < rows*dim*4 {
		return nil, fmt.Errorf("cache matrix truncated: %s", path)
	}
	tokens := make([]TokenVector, rows)
	for r := 0; r < rows; r++ {
		vec := make([]float32, dim)
		for i := 0; i < dim; i++ {
			off := (r*dim + i) * 4
			vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[off : off+4]))
		}
		tokens[r].Vector = vec
	}
	data = data[rows*dim*4:]
	for r := 0; r < rows; r++ {
		if len(data) < 4 {
			return nil, fmt.Errorf("cache tokens truncated: %s", path)
		}
		l := int(binary.LittleEndian.Uint32(data[:4]))
		data = data[4:]
		if len(data) < l {
			return nil, fmt.Errorf("cache token length mismatch: %s", path)
		}
		tokens[r].Token = string(data[:l])
		data = data[l:]
	}
	return tokens, nil
}

func (o *OrtEmbedder) saveToDisk(key string, tokens []TokenVector) error {
	if o.cfg.CacheDir == "" {
		return nil
	}
	dim := 0
	if len(tokens) > 0 {
		dim = len(tokens[0].Vector)
	}
	for _, tok := range tokens {
		// The flat layout requires a uniform dimension; skip caching otherwise.
		if len(tok.Vector) != dim {
			return nil
		}
	}
	buf := make([]byte, 8, 8+len(tokens)*(dim*4+16))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(tokens)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(dim))
	var scratch [4]byte
	for _, tok := range tokens {
		for _, v := range tok.Vector {
			binary.LittleEndian.PutUint32(scratch[:], math.Float32bits(v))
			buf = append(buf, scratch[:]...)
		}
	}
	for _, tok := range tokens {
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(tok.Token)))
		buf = append(buf, scratch[:]...)
		buf = append(buf, tok.Token...)
	}
	path := filepath.Join(o.cfg.CacheDir, key+".bin")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cloneTokens(tokens []TokenVector) []TokenVector {
	out := make([]TokenVector, len(tokens))
	for i, tok := range tokens {
		vec := make([]float32, len(tok.Vector))
		copy(vec, tok.Vector)
		out[i] = TokenVector{Token: tok.Token, Vector: vec}
	}
	return out
}
