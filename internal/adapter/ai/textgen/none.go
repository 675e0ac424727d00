package textgen

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/talent-matcher/internal/domain"
)

// Disabled is used when no provider is configured. Every call fails with
// domain.ErrGeneration so callers fall back to static text.
type Disabled struct{}

// Generate implements domain.TextGenerator.
func (Disabled) Generate(context.Context, string) (string, error) {
	return "", fmt.Errorf("op=textgen.disabled: %w: no provider configured", domain.ErrGeneration)
}
