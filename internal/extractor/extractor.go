package extractor

import (
	"context"
	"fmt"
	"strings"

	"studysync/internal/domain"
)

// Strategy turns raw document bytes of one kind into plain text.
type Strategy interface {
	Extract(ctx context.Context, data []byte, mimeType string) (string, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(ctx context.Context, data []byte, mimeType string) (string, error)

func (f StrategyFunc) Extract(ctx context.Context, data []byte, mimeType string) (string, error) {
	return f(ctx, data, mimeType)
}

// Extraction is the result of reading one document.
type Extraction struct {
	Kind     Kind
	MimeType string
	Text     string
	Outcome  domain.Outcome
}

// Registry maps document kinds to extraction strategies.
type Registry struct {
	strategies map[Kind]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[Kind]Strategy)}
}

// Register binds a strategy to a kind, replacing any previous binding.
func (r *Registry) Register(kind Kind, s Strategy) *Registry {
	r.strategies[kind] = s
	return r
}

// Extract classifies the document and runs the matching strategy. It never
// returns an error: failures and unsupported kinds come back as a degraded
// outcome with empty text.
func (r *Registry) Extract(ctx context.Context, data []byte, mimeType, filename string) (ext Extraction) {
	ext.MimeType = ResolveMimeType(mimeType, filename)
	ext.Kind = DetectKind(ext.MimeType, filename)

	s, ok := r.strategies[ext.Kind]
	if ext.Kind == KindUnsupported || !ok {
		ext.Outcome = domain.Degraded("unsupported content type "+ext.MimeType, nil)
		return ext
	}

	defer func() {
		if rec := recover(); rec != nil {
			ext.Text = ""
			ext.Outcome = domain.Degraded(ext.Kind.String()+" extraction panicked",
				fmt.Errorf("%w: %v", domain.ErrExtractionFailed, rec))
		}
	}()

	text, err := s.Extract(ctx, data, ext.MimeType)
	if err != nil {
		ext.Outcome = domain.Degraded(ext.Kind.String()+" extraction failed", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
		return ext
	}
	if strings.TrimSpace(text) == "" {
		ext.Outcome = domain.Degraded("no text extracted", nil)
		return ext
	}
	ext.Text = text
	ext.Outcome = domain.OK()
	return ext
}
