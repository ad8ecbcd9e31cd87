package embedding

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limit caps the number of in-flight Embed calls on p at n. With n = 1 the
// provider behaves as a single-worker queue.
func Limit(p Provider, n int) Provider {
	if n <= 0 {
		n = 1
	}

	return &limitedProvider{
		next: p,
		sem:  semaphore.NewWeighted(int64(n)),
	}
}

type limitedProvider struct {
	next Provider
	sem  *semaphore.Weighted
}

func (p *limitedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer p.sem.Release(1)

	return p.next.Embed(ctx, texts)
}

func (p *limitedProvider) Model() string {
	return p.next.Model()
}
