// Package tokens estimates the token cost of text for a given model.
//
// The primary path uses tiktoken-go's model-specific BPE encodings. Models with
// no registered encoding (most open-weight models served through Groq, for
// instance) fall back to a word-based estimate of 1.3 tokens per word.
package tokens

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the number of tokens in a piece of text.
// Implementations must be pure: the same text always yields the same count.
type Counter interface {
	Count(text string) int
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

// Count calls f(text).
func (f CounterFunc) Count(text string) int {
	return f(text)
}

// Encoder is the subset of *tiktoken.Tiktoken used for counting.
type Encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// EncoderLookup resolves the encoder for a canonical model name.
type EncoderLookup func(model string) (Encoder, error)

// UnknownModelError reports that no tokenizer is registered for a model.
type UnknownModelError struct {
	Model string
	Err   error
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("no tokenizer registered for model %q: %v", e.Model, e.Err)
}

func (e *UnknownModelError) Unwrap() error {
	return e.Err
}

// WordFallbackRatio is the tokens-per-word ratio used when no tokenizer exists.
const WordFallbackRatio = 1.3

// EstimateWords returns round(wordCount(text) * 1.3).
func EstimateWords(text string) int {
	words := len(strings.Fields(text))
	return int(math.Round(float64(words) * WordFallbackRatio))
}

func tiktokenLookup(model string) (Encoder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// ModelCounter counts tokens with the encoding registered for one model.
// Encoders are resolved once and reused; ModelCounter is safe for concurrent use.
type ModelCounter struct {
	model  string
	lookup EncoderLookup

	once    sync.Once
	encoder Encoder
	err     error
}

var _ Counter = (*ModelCounter)(nil)

// New returns a Counter for model backed by tiktoken-go.
func New(model string) *ModelCounter {
	return NewWithLookup(model, tiktokenLookup)
}

// NewWithLookup returns a Counter that resolves its encoder through lookup.
func NewWithLookup(model string, lookup EncoderLookup) *ModelCounter {
	return &ModelCounter{model: model, lookup: lookup}
}

// Model returns the canonical model name this counter was built for.
func (c *ModelCounter) Model() string {
	return c.model
}

func (c *ModelCounter) resolve() (Encoder, error) {
	c.once.Do(func() {
		enc, err := c.lookup(c.model)
		if err != nil {
			c.err = &UnknownModelError{Model: c.model, Err: err}
			return
		}
		c.encoder = enc
	})
	return c.encoder, c.err
}

// CountForModel returns the exact token count, or an *UnknownModelError
// when the model has no registered tokenizer.
func (c *ModelCounter) CountForModel(text string) (int, error) {
	enc, err := c.resolve()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Count returns the tokenizer count, falling back to EstimateWords.
func (c *ModelCounter) Count(text string) int {
	n, err := c.CountForModel(text)
	if err != nil {
		return EstimateWords(text)
	}
	return n
}

// CountForModel is the stateless form of ModelCounter.CountForModel.
func CountForModel(model, text string) (int, error) {
	return New(model).CountForModel(text)
}
