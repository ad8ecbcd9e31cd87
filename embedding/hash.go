package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// NewHashProvider returns a deterministic, model-free provider. Each text is
// split into lower-cased words and every character trigram of a word padded
// with spaces is hashed into one of dim buckets. Vectors are L2-normalised and
// non-negative, so texts sharing trigrams score between 0 and 1 under cosine.
func NewHashProvider(dim int) Provider {
	return &hashProvider{dim}
}

type hashProvider struct {
	dim int
}

func (p *hashProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec, err := p.embed(text)
		if err != nil {
			return nil, err
		}

		vectors[i] = vec
	}

	return vectors, nil
}

func (p *hashProvider) embed(text string) ([]float32, error) {
	if p.dim <= 0 {
		return nil, fmt.Errorf("%w: hash dimension must be positive, got %d", ErrInvalidModel, p.dim)
	}

	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return nil, ErrEmptyText
	}

	vec := make([]float32, p.dim)

	for _, word := range words {
		runes := []rune(" " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			h := fnv.New32a()
			h.Write([]byte(string(runes[i : i+3])))

			vec[h.Sum32()%uint32(p.dim)] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}

	return vec, nil
}

func (p *hashProvider) Model() string {
	return ProviderHash + ":" + strconv.Itoa(p.dim)
}
