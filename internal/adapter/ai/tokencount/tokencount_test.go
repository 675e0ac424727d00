package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeModelName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"text-embedding-3-small":                "text-embedding-ada-002",
		"openai/text-embedding-3-large":         "text-embedding-ada-002",
		"gpt-3.5-turbo-0125":                    "gpt-3.5-turbo",
		"llama-3.1-70b-versatile":               "gpt-4",
		"meta-llama/llama-3.1-8b-instruct:free": "gpt-4",
		" GEMINI-1.5-PRO ":                      "gpt-4",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeModelName(in), in)
	}
}

func TestTruncate_ShortTextSkipsEncoding(t *testing.T) {
	t.Parallel()
	c := NewCounter()
	out, cut, err := c.Truncate("short text", "text-embedding-3-small", 100)
	require.NoError(t, err)
	assert.False(t, cut)
	assert.Equal(t, "short text", out)
	assert.Empty(t, c.encodings, "no encoding should be loaded for short input")

	out, cut, err = c.Truncate(strings.Repeat("word ", 50), "x", 0)
	require.NoError(t, err)
	assert.False(t, cut)
	assert.Len(t, out, 250)
}

// The cases below load a BPE table through tiktoken and need network access
// the first time they run.
func TestCountAndTruncate_Live(t *testing.T) {
	if testing.Short() {
		t.Skip("loads tiktoken encodings")
	}
	c := NewCounter()
	n, err := c.CountTokens("Hello, world!", "gpt-4")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
	assert.LessOrEqual(t, n, 5)

	long := strings.Repeat("python developer with sql ", 40)
	out, cut, err := c.Truncate(long, "text-embedding-3-small", 10)
	require.NoError(t, err)
	assert.True(t, cut)
	assert.True(t, strings.HasPrefix(long, out))
	m, err := c.CountTokens(out, "text-embedding-3-small")
	require.NoError(t, err)
	assert.LessOrEqual(t, m, 10)

	chat, err := c.CountChatTokens("You are helpful.", "Hi", "llama-3.1-70b-versatile")
	require.NoError(t, err)
	assert.Greater(t, chat, 10)
}
