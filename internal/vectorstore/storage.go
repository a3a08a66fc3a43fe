package vectorstore

import (
	"fmt"
	"math"

	"studysync/internal/domain"
)

// Unavailable tags a backend failure so that callers can tell an unreachable
// index apart from bad input.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexUnavailable, err)
}

// Missing reports a collection that does not exist and was not created.
func Missing(name string) error {
	return fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
}

// CheckVectors rejects empty ids and vectors whose length differs from dim.
// A non-positive dim only requires all vectors to share one length.
func CheckVectors(vectors []domain.Vector, dim int) error {
	for i, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector %d: empty id", i)
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %q: no values", v.ID)
		}
		if dim <= 0 {
			dim = len(v.Values)
		}
		if len(v.Values) != dim {
			return fmt.Errorf("vector %q: dimension %d, want %d", v.ID, len(v.Values), dim)
		}
	}
	return nil
}

// Score compares two vectors with the given metric. Higher is more similar.
func Score(metric domain.Distance, a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if metric == domain.DistanceDot {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// CopyMetadata returns a shallow copy so stored metadata cannot be mutated by callers.
func CopyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
