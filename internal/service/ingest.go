package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"studysync/internal/chunker"
	"studysync/internal/domain"
	"studysync/internal/extractor"
	"studysync/internal/logger"
	"studysync/internal/objectstore"
	"studysync/internal/observability"
)

// Extractor turns uploaded bytes into text. *extractor.Registry implements it.
type Extractor interface {
	Extract(ctx context.Context, data []byte, mimeType, filename string) extractor.Extraction
}

type IngestRequest struct {
	Bytes    []byte
	Filename string
	MimeType string
	Category string
}

type IngestResult struct {
	Document   *domain.Document
	ChunkCount int
	Extraction domain.Outcome
}

// PipelineOptions are the knobs shared by both ingestion paths. Model must be
// the same id the Retriever embeds questions with.
type PipelineOptions struct {
	Collection       string
	Model            string
	Dimension        int
	SummarySentences int
	EmbedTimeout     time.Duration
	ExtractTimeout   time.Duration
	UpsertTimeout    time.Duration
}

type Pipeline struct {
	extractor  Extractor
	embedder   domain.EmbeddingService
	index      domain.VectorIndex
	store      domain.MetadataStore
	objects    domain.ObjectStorage
	summarizer domain.Summarizer
	opts       PipelineOptions
	log        *logger.Logger
	now        func() time.Time
}

type PipelineDeps struct {
	Extractor  Extractor
	Embedder   domain.EmbeddingService
	Index      domain.VectorIndex
	Store      domain.MetadataStore
	Objects    domain.ObjectStorage
	Summarizer domain.Summarizer
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions, log *logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		embedder:   deps.Embedder,
		index:      deps.Index,
		store:      deps.Store,
		objects:    deps.Objects,
		summarizer: deps.Summarizer,
		opts:       opts,
		log:        log.With("service", "IngestionPipeline"),
		now:        time.Now,
	}
}

// Ingest extracts, records and indexes a document, embedding and upserting
// one chunk at a time.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	ctx, span := observability.Tracer().Start(ctx, "ingest.sequential")
	res, err := p.ingest(ctx, req, "")
	span.SetAttributes(attribute.String("file.name", req.Filename), attribute.Int("chunks.indexed", res.ChunkCount))
	observability.EndSpan(span, err)
	return res, err
}

// UploadAndIngest stores the original bytes first so the document and every
// chunk carry a download URL, then embeds all chunks in one batch.
func (p *Pipeline) UploadAndIngest(ctx context.Context, req IngestRequest) (res IngestResult, err error) {
	ctx, span := observability.Tracer().Start(ctx, "ingest.upload")
	defer func() {
		span.SetAttributes(attribute.String("file.name", req.Filename), attribute.Int("chunks.indexed", res.ChunkCount))
		observability.EndSpan(span, err)
	}()
	if err := validate(req); err != nil {
		return IngestResult{}, err
	}
	if p.objects == nil {
		return IngestResult{}, fmt.Errorf("%w: object storage not configured", domain.ErrIngestionFailed)
	}
	mime := extractor.ResolveMimeType(req.MimeType, req.Filename)
	url, err := p.objects.Upload(ctx, objectstore.Key(req.Filename, p.now()), mime, bytes.NewReader(req.Bytes))
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: upload %s: %w", domain.ErrIngestionFailed, req.Filename, err)
	}
	return p.ingest(ctx, req, url)
}

func validate(req IngestRequest) error {
	if strings.TrimSpace(req.Filename) == "" {
		return fmt.Errorf("%w: filename required", domain.ErrInvalidInput)
	}
	if len(req.Bytes) == 0 {
		return fmt.Errorf("%w: empty file %s", domain.ErrInvalidInput, req.Filename)
	}
	return nil
}

// ingest runs the shared steps. A non-empty url selects the batched path.
func (p *Pipeline) ingest(ctx context.Context, req IngestRequest, url string) (IngestResult, error) {
	if err := validate(req); err != nil {
		return IngestResult{}, err
	}
	log := p.log.With("file", req.Filename)

	ext := p.extract(ctx, req)
	if !ext.Outcome.IsOK() {
		log.Warn("extraction degraded", "kind", ext.Kind.String(), "reason", ext.Outcome.Reason, "error", ext.Outcome.Err)
	}

	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = domain.DefaultCategory
	}
	doc := &domain.Document{
		Name:          req.Filename,
		SourceURL:     url,
		ContentType:   ext.MimeType,
		SizeBytes:     int64(len(req.Bytes)),
		UploadedAt:    p.now().UTC(),
		Category:      category,
		ExtractedText: ext.Text,
		Summary:       p.summarize(ext.Text),
	}
	if err := p.store.Insert(ctx, doc); err != nil {
		if !errors.Is(err, domain.ErrMetadataStore) {
			err = fmt.Errorf("%w: %w", domain.ErrMetadataStore, err)
		}
		return IngestResult{Extraction: ext.Outcome}, fmt.Errorf("%w: %w", domain.ErrIngestionFailed, err)
	}
	res := IngestResult{Document: doc, Extraction: ext.Outcome}
	if ext.Text == "" {
		log.Info("document recorded without text", "id", doc.ID)
		return res, nil
	}

	base := map[string]any{domain.MetaCategory: category}
	if url != "" {
		base[domain.MetaFileURL] = url
	}
	chunks := chunker.NewDelimiterChunker(ext.Kind.Delimiter()).Chunk(req.Filename, ext.Text, base)
	if len(chunks) == 0 {
		return res, nil
	}

	var err error
	if url == "" {
		res.ChunkCount, err = p.indexSequential(ctx, chunks)
	} else {
		res.ChunkCount, err = p.indexBatch(ctx, chunks)
	}
	if err != nil {
		log.Error("indexing aborted", "indexed", res.ChunkCount, "total", len(chunks), "error", err)
		return res, fmt.Errorf("%w: %s: %d of %d chunks indexed: %w", domain.ErrIngestionFailed, req.Filename, res.ChunkCount, len(chunks), err)
	}
	log.Info("document ingested", "id", doc.ID, "chunks", res.ChunkCount, "kind", ext.Kind.String())
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context, req IngestRequest) extractor.Extraction {
	ctx, cancel := withTimeout(ctx, p.opts.ExtractTimeout)
	defer cancel()
	ctx, span := observability.Tracer().Start(ctx, "ingest.extract")
	defer span.End()
	ext := p.extractor.Extract(ctx, req.Bytes, req.MimeType, req.Filename)
	span.SetAttributes(attribute.String("kind", ext.Kind.String()), attribute.String("outcome", ext.Outcome.Status.String()))
	return ext
}

func (p *Pipeline) summarize(text string) string {
	if p.summarizer == nil || text == "" {
		return ""
	}
	s, err := p.summarizer.Summarize(text, p.opts.SummarySentences)
	if err != nil {
		p.log.Warn("summary failed", "error", err)
		return ""
	}
	return s
}

func (p *Pipeline) indexSequential(ctx context.Context, chunks []domain.Chunk) (int, error) {
	var col domain.Collection
	for i, ch := range chunks {
		vecs, err := p.embed(ctx, []string{ch.Text})
		if err != nil {
			return i, err
		}
		if col == nil {
			if col, err = p.collection(ctx, len(vecs[0])); err != nil {
				return i, err
			}
		}
		if err := p.upsert(ctx, col, []domain.Vector{toVector(ch, vecs[0])}); err != nil {
			return i, err
		}
	}
	return len(chunks), nil
}

func (p *Pipeline) indexBatch(ctx context.Context, chunks []domain.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vecs, err := p.embed(ctx, texts)
	if err != nil {
		return 0, err
	}
	col, err := p.collection(ctx, len(vecs[0]))
	if err != nil {
		return 0, err
	}
	vectors := make([]domain.Vector, len(chunks))
	for i, ch := range chunks {
		vectors[i] = toVector(ch, vecs[i])
	}
	if err := p.upsert(ctx, col, vectors); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

func (p *Pipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := withTimeout(ctx, p.opts.EmbedTimeout)
	defer cancel()
	vecs, err := p.embedder.Embed(ctx, p.opts.Model, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, err)
	}
	if len(vecs) != len(texts) || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingFailed, len(vecs), len(texts))
	}
	return vecs, nil
}

func (p *Pipeline) collection(ctx context.Context, dim int) (domain.Collection, error) {
	if p.opts.Dimension > 0 {
		dim = p.opts.Dimension
	}
	return getCollection(ctx, p.index, p.opts.Collection, dim)
}

func (p *Pipeline) upsert(ctx context.Context, col domain.Collection, vectors []domain.Vector) error {
	ctx, cancel := withTimeout(ctx, p.opts.UpsertTimeout)
	defer cancel()
	if err := col.Upsert(ctx, vectors); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

func toVector(ch domain.Chunk, values []float32) domain.Vector {
	return domain.Vector{ID: ch.ID, Values: values, Metadata: ch.Metadata}
}

func getCollection(ctx context.Context, index domain.VectorIndex, name string, dim int) (domain.Collection, error) {
	col, err := index.GetOrCreateCollection(ctx, name, domain.CollectionOptions{Metric: domain.DistanceCosine, Dimension: dim})
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	return col, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
