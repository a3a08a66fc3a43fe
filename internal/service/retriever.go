package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"studysync/internal/domain"
	"studysync/internal/logger"
	"studysync/internal/observability"
)

const (
	DefaultTopK = 5

	RetrievalUnavailableContext = "No relevant information found from uploaded documents."
	NoMatchesContext            = "No relevant information found."

	contextSeparator = "\n\n---\n\n"
)

// Retrieval is the context assembled for one question.
type Retrieval struct {
	Context string
	Matches []domain.Match
	Outcome domain.Outcome
}

type RetrieverOptions struct {
	Collection string
	Model      string
	Dimension  int
	TopK       int
	// RawVectorFallback renders the vector values of matches that carry no text.
	RawVectorFallback bool
	EmbedTimeout      time.Duration
	QueryTimeout      time.Duration
}

type Retriever struct {
	embedder domain.EmbeddingService
	index    domain.VectorIndex
	opts     RetrieverOptions
	log      *logger.Logger
}

func NewRetriever(embedder domain.EmbeddingService, index domain.VectorIndex, opts RetrieverOptions, log *logger.Logger) *Retriever {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Retriever{embedder: embedder, index: index, opts: opts, log: log.With("service", "Retriever")}
}

// Retrieve never fails: any problem reaching the embedder or the index
// yields a sentinel context and a degraded outcome.
func (r *Retriever) Retrieve(ctx context.Context, question string) Retrieval {
	ctx, span := observability.Tracer().Start(ctx, "assistant.retrieve")
	defer span.End()

	matches, err := r.query(ctx, question)
	if err != nil {
		r.log.Warn("retrieval failed", "error", err)
		span.RecordError(err)
		return Retrieval{Context: RetrievalUnavailableContext, Outcome: domain.Degraded("retrieval unavailable", err)}
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	if len(matches) == 0 {
		return Retrieval{Context: NoMatchesContext, Outcome: domain.Degraded("no matches", nil)}
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if text, ok := m.Text(); ok {
			parts = append(parts, text)
			continue
		}
		if r.opts.RawVectorFallback && len(m.Values) > 0 {
			parts = append(parts, formatValues(m.Values))
		}
	}
	if len(parts) == 0 {
		return Retrieval{Context: NoMatchesContext, Matches: matches, Outcome: domain.Degraded("matches carry no text", nil)}
	}
	return Retrieval{Context: strings.Join(parts, contextSeparator), Matches: matches, Outcome: domain.OK()}
}

func (r *Retriever) query(ctx context.Context, question string) ([]domain.Match, error) {
	ectx, cancel := withTimeout(ctx, r.opts.EmbedTimeout)
	vecs, err := r.embedder.Embed(ectx, r.opts.Model, []string{question})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: no vector for question", domain.ErrEmbeddingFailed)
	}

	qctx, cancel := withTimeout(ctx, r.opts.QueryTimeout)
	defer cancel()
	dim := r.opts.Dimension
	if dim <= 0 {
		dim = len(vecs[0])
	}
	// Answering never creates the collection; before the first ingestion there is nothing to match.
	col, err := r.index.GetOrCreateCollection(qctx, r.opts.Collection, domain.CollectionOptions{
		Metric:     domain.DistanceCosine,
		Dimension:  dim,
		LookupOnly: true,
	})
	if errors.Is(err, domain.ErrNotFound) {
		r.log.Debug("collection not created yet", "collection", r.opts.Collection)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", r.opts.Collection, err)
	}
	return col.Query(qctx, domain.QueryRequest{
		Vector:          vecs[0],
		TopK:            r.opts.TopK,
		IncludeMetadata: true,
		IncludeValues:   true,
	})
}

func formatValues(v []float32) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return strings.Join(s, ",")
}
