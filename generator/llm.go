package generator

import (
	"context"
	"unicode/utf8"
)

// LLMClient abstracts the hosted model so it can be swapped or mocked.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings carries the base configuration for concrete clients.
type LLMSettings struct {
	Provider      string
	Model         string
	APIKey        string
	BaseURL       string
	Temperature   float64
	MaxInputBytes int
}

const truncationMarker = "\n\n[...conteúdo truncado...]"

// truncateInput caps s at max bytes without splitting a UTF-8 sequence.
func truncateInput(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	marker := truncationMarker
	cut := max - len(marker)
	if cut <= 0 {
		cut, marker = max, ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + marker
}
