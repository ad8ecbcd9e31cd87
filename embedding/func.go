package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/philippgille/chromem-go"
)

// FuncProvider adapts a single-text chromem embedding function to Provider.
// The HTTP-backed chromem functions are safe for concurrent use.
func FuncProvider(model string, fn chromem.EmbeddingFunc) Provider {
	return &funcProvider{
		model: model,
		fn:    fn,
	}
}

type funcProvider struct {
	model string
	fn    chromem.EmbeddingFunc
}

func (p *funcProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, ErrEmptyText
		}

		vec, err := p.fn(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}

		vectors[i] = vec
	}

	return vectors, nil
}

func (p *funcProvider) Model() string {
	return p.model
}
