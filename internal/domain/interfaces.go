package domain

import (
	"context"
	"io"
)

// EmbeddingService converts text into fixed-dimension vectors.
// The model id is passed on every call so that ingestion and querying can be
// checked to use the same model.
type EmbeddingService interface {
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// GenerationService returns a completion for a prompt, optionally with an image attached.
type GenerationService interface {
	Generate(ctx context.Context, model string, prompt Prompt) (string, error)
}

// Prompt is the input to a generation call.
type Prompt struct {
	Text  string
	Image *Image
}

// Image is raw image bytes plus their MIME type.
type Image struct {
	Data     []byte
	MimeType string
}

// VectorIndex hands out collections, creating them on first use.
type VectorIndex interface {
	GetOrCreateCollection(ctx context.Context, name string, opts CollectionOptions) (Collection, error)
}

// Collection persists vectors and supports nearest-neighbour search.
type Collection interface {
	Upsert(ctx context.Context, vectors []Vector) error
	Query(ctx context.Context, req QueryRequest) ([]Match, error)
}

// MetadataStore is the durable catalog of ingested documents.
type MetadataStore interface {
	Insert(ctx context.Context, doc *Document) error
	// FindOne returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter DocumentFilter, sort Sort) (*Document, error)
	Find(ctx context.Context, filter DocumentFilter, sort Sort) ([]Document, error)
}

// NoticeStore persists notices shown to students.
type NoticeStore interface {
	ListNotices(ctx context.Context) ([]Notice, error)
	CreateNotice(ctx context.Context, n *Notice) error
	UpdateNotice(ctx context.Context, id string, patch NoticePatch) (*Notice, error)
}

// ObjectStorage keeps the original uploaded bytes and returns a URL for them.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, contentType string, r io.Reader) (string, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
