package generator

import (
	"context"
	"strings"
)

// MockLLM is an offline stand-in that never calls a hosted model.
// It echoes the first line of the instruction and a digest of the context it
// received, so each reply stays short however long the run gets.
type MockLLM struct{}

const mockEchoLimit = 160

func (m MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	role, _, _ := strings.Cut(strings.TrimSpace(prompt.System), "\n")
	var sb strings.Builder
	sb.WriteString("_Resposta simulada (modo offline)._\n\n")
	sb.WriteString("**Papel:** ")
	sb.WriteString(role)
	sb.WriteString("\n\n**Entrada:** ")
	sb.WriteString(Digest(prompt.User, mockEchoLimit))
	sb.WriteString("\n")
	return sb.String(), nil
}
