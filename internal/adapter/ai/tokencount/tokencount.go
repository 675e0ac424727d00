// Package tokencount counts and trims text by model tokens.
//
// It uses tiktoken-go, a Go port of OpenAI's tiktoken, so remote embedding
// inputs can be cut to the provider's token window before they are sent, and
// chat prompts can be measured for logging.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for models tiktoken does not know.
const fallbackEncoding = "cl100k_base"

// Counter provides thread-safe token counting. Encodings are loaded lazily
// and cached per normalized model name.
type Counter struct {
	mu        sync.RWMutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter {
	return &Counter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is shared by adapters that do not need their own cache.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	name := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodings[name]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodings[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding",
			slog.String("model", model),
			slog.String("normalized", name),
			slog.Any("error", err))
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, err
		}
	}
	c.encodings[name] = enc
	return enc, nil
}

// normalizeModelName maps provider model ids onto names tiktoken knows.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	switch {
	case strings.HasPrefix(model, "text-embedding-3"), strings.HasPrefix(model, "text-embedding-ada-002"):
		return "text-embedding-ada-002"
	case strings.Contains(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		// gpt-4, llama, gemini and friends: cl100k is a close enough approximation
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text for model.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// Truncate keeps the leading maxTokens tokens of text. It reports whether
// the text was cut. Texts with no more runes than maxTokens are returned
// as-is without loading an encoding, since every token spans at least one rune.
func (c *Counter) Truncate(text, model string, maxTokens int) (string, bool, error) {
	if maxTokens <= 0 || utf8.RuneCountInString(text) <= maxTokens {
		return text, false, nil
	}
	enc, err := c.encodingFor(model)
	if err != nil {
		return "", false, err
	}
	toks := enc.Encode(text, nil, nil)
	if len(toks) <= maxTokens {
		return text, false, nil
	}
	return enc.Decode(toks[:maxTokens]), true, nil
}

// CountChatTokens estimates the prompt tokens of a system+user chat request,
// including the per-message framing used by OpenAI-compatible APIs.
func (c *Counter) CountChatTokens(systemPrompt, userPrompt, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	const perMessage, perRole, replyPrimer = 3, 1, 3
	n := replyPrimer
	for _, m := range [][2]string{{"system", systemPrompt}, {"user", userPrompt}} {
		n += perMessage + perRole
		n += len(enc.Encode(m[0], nil, nil)) + len(enc.Encode(m[1], nil, nil))
	}
	return n, nil
}
