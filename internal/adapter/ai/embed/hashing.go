// Package embed provides domain.Encoder implementations: an in-process
// feature-hashing encoder, an OpenAI-compatible remote encoder, and a
// caching decorator backed by memory or Redis.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Hashing embeds text by signed feature hashing of word unigrams and
// bigrams into a fixed number of buckets, then L2-normalizing. It needs no
// model download and is deterministic across processes.
//
// Similarity is lexical: texts score close only when they share words, so
// synonyms and paraphrases ("physician" and "doctor") look unrelated. Use the
// openai provider for a trained sentence-embedding model.
type Hashing struct {
	dim int
}

// NewHashing returns a hashing encoder producing vectors of length dim.
func NewHashing(dim int) *Hashing { return &Hashing{dim: dim} }

// Dimension implements domain.Encoder.
func (h *Hashing) Dimension() int { return h.dim }

// Model implements domain.Encoder.
func (h *Hashing) Model() string { return fmt.Sprintf("hashing-v1-%d", h.dim) }

// Encode implements domain.Encoder. Blank text maps to the zero vector.
func (h *Hashing) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	acc := make([]float64, h.dim)
	words := tokenize(text)
	for i, w := range words {
		h.add(acc, w, 1)
		if i > 0 {
			h.add(acc, words[i-1]+" "+w, 0.5)
		}
	}
	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, h.dim)
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (h *Hashing) add(acc []float64, feature string, weight float64) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dim))
	// top bit picks the sign so collisions cancel rather than pile up
	if sum>>63 == 1 {
		weight = -weight
	}
	acc[bucket] += weight
}

// tokenize lower-cases text and splits it into words, keeping the symbol
// characters that appear in skill names (c++, c#, node.js).
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#' && r != '.'
	})
	out := fields[:0]
	for _, f := range fields {
		// sentence dots are not part of the word
		if f = strings.Trim(f, "."); f != "" {
			out = append(out, f)
		}
	}
	return out
}
