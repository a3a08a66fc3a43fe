package embedding

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"studysync/internal/domain"
)

// RateLimited throttles calls to an embedding backend with a token bucket.
type RateLimited struct {
	next    domain.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimited wraps next. A non-positive rps disables throttling.
func NewRateLimited(next domain.EmbeddingService, rps float64, burst int) domain.EmbeddingService {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimited) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.next.Embed(ctx, model, texts)
}

// ToFloat32 narrows a float64 vector as returned by most HTTP APIs.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// CheckBatch verifies that a backend returned one non-empty vector per input.
func CheckBatch(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("empty embedding at index %d", i)
		}
	}
	return nil
}
