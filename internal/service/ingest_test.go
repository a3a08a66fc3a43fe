package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
	"studysync/internal/extractor"
	"studysync/internal/logger"
)

const testModel = "test-embed-v1"

func textRegistry(pdfText, ocrText string) *extractor.Registry {
	return extractor.NewRegistry().
		Register(extractor.KindPDF, extractor.StrategyFunc(func(context.Context, []byte, string) (string, error) {
			return pdfText, nil
		})).
		Register(extractor.KindImage, extractor.StrategyFunc(func(context.Context, []byte, string) (string, error) {
			return ocrText, nil
		}))
}

type pipelineFixture struct {
	emb     *fakeEmbedder
	index   *fakeIndex
	store   *fakeStore
	objects *fakeObjects
	p       *Pipeline
}

func newPipelineFixture(ext Extractor) *pipelineFixture {
	f := &pipelineFixture{
		emb:     &fakeEmbedder{},
		index:   newFakeIndex(),
		store:   &fakeStore{},
		objects: &fakeObjects{},
	}
	f.p = NewPipeline(PipelineDeps{
		Extractor: ext,
		Embedder:  f.emb,
		Index:     f.index,
		Store:     f.store,
		Objects:   f.objects,
	}, PipelineOptions{Collection: "materials", Model: testModel, EmbedTimeout: time.Second}, logger.Nop())
	f.p.now = func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) }
	return f
}

func TestIngest_PDFParagraphsIndexedOneByOne(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB\n\nC", ""))

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf", MimeType: "application/pdf"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.ChunkCount)
	assert.True(t, res.Extraction.IsOK())
	assert.Equal(t, [][]string{{"A"}, {"B"}, {"C"}}, f.emb.calls)
	require.Equal(t, 3, f.index.upsertCount())
	for i, batch := range f.index.col.upserts {
		require.Len(t, batch, 1)
		assert.Equal(t, i, batch[0].Metadata[domain.MetaChunkIndex])
		assert.Equal(t, "notes.pdf", batch[0].Metadata[domain.MetaSource])
		assert.Equal(t, domain.DefaultCategory, batch[0].Metadata[domain.MetaCategory])
		assert.NotContains(t, batch[0].Metadata, domain.MetaFileURL)
	}
	assert.Equal(t, "A", f.index.col.upserts[0][0].Metadata[domain.MetaText])
	assert.Equal(t, domain.DistanceCosine, f.index.created[0].Metric)
	assert.Equal(t, 3, f.index.created[0].Dimension)

	require.Len(t, f.store.docs, 1)
	doc := f.store.docs[0]
	assert.Equal(t, "A\n\nB\n\nC", doc.ExtractedText)
	assert.Equal(t, int64(4), doc.SizeBytes)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.Empty(t, f.objects.keys)
}

func TestIngest_ExtractionFailureRecordsDocumentOnly(t *testing.T) {
	reg := extractor.NewRegistry().Register(extractor.KindPDF, extractor.StrategyFunc(func(context.Context, []byte, string) (string, error) {
		return "", errors.New("corrupt xref table")
	}))
	f := newPipelineFixture(reg)

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("junk"), Filename: "broken.pdf", Category: "exam"})
	require.NoError(t, err)

	assert.Equal(t, 0, res.ChunkCount)
	assert.Equal(t, domain.StatusDegraded, res.Extraction.Status)
	assert.ErrorIs(t, res.Extraction.Err, domain.ErrExtractionFailed)
	require.Len(t, f.store.docs, 1)
	assert.Empty(t, f.store.docs[0].ExtractedText)
	assert.Equal(t, "exam", f.store.docs[0].Category)
	assert.Zero(t, f.index.upsertCount())
	assert.Empty(t, f.emb.calls)
}

func TestIngest_UnsupportedTypeSkipsExtraction(t *testing.T) {
	f := newPipelineFixture(textRegistry("unused", "unused"))

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("PK"), Filename: "slides.pptx"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDegraded, res.Extraction.Status)
	assert.NoError(t, res.Extraction.Err)
	require.Len(t, f.store.docs, 1)
	assert.Equal(t, extractor.MimeOctetStream, f.store.docs[0].ContentType)
	assert.Zero(t, f.index.upsertCount())
}

func TestIngest_EmbeddingFailureReportsPartialCount(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB\n\nC", ""))
	f.emb.failOn = 2

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, 1, f.index.upsertCount())
	assert.Len(t, f.emb.calls, 2)
	assert.Len(t, f.store.docs, 1)
}

func TestIngest_UpsertFailureReportsPartialCount(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB\n\nC", ""))
	f.index.col.failOnUpsert = 2

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Contains(t, err.Error(), "1 of 3 chunks indexed")
	assert.Equal(t, 1, res.ChunkCount)
	assert.Len(t, f.emb.calls, 2)
	assert.Equal(t, 2, f.index.col.upsertCalls)
	assert.Equal(t, 1, f.index.upsertCount())
	require.NotNil(t, res.Document)
	require.Len(t, f.store.docs, 1)
	assert.Equal(t, res.Document.ID, f.store.docs[0].ID)
}

func TestUploadAndIngest_UpsertFailureIndexesNothing(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB\n\nC", ""))
	f.index.col.failOnUpsert = 1

	res, err := f.p.UploadAndIngest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Contains(t, err.Error(), "0 of 3 chunks indexed")
	assert.Zero(t, res.ChunkCount)
	assert.Len(t, f.emb.calls, 1)
	assert.Zero(t, f.index.upsertCount())
	require.Len(t, f.objects.keys, 1)
	require.Len(t, f.store.docs, 1)
	assert.NotEmpty(t, f.store.docs[0].SourceURL)
}

func TestIngest_CreatesMissingCollection(t *testing.T) {
	f := newPipelineFixture(textRegistry("A", ""))
	f.index.missing = true

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunkCount)
	assert.False(t, f.index.missing)
	assert.False(t, f.index.created[0].LookupOnly)
}

func TestIngest_IndexUnavailable(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB", ""))
	f.index.err = domain.ErrIndexUnavailable

	res, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.Zero(t, res.ChunkCount)
	assert.Len(t, f.store.docs, 1)
}

func TestIngest_MetadataStoreFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(textRegistry("A", ""))
	f.store.err = errors.New("connection refused")

	_, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.ErrorIs(t, err, domain.ErrMetadataStore)
	assert.Empty(t, f.emb.calls)
}

func TestIngest_InvalidInput(t *testing.T) {
	f := newPipelineFixture(textRegistry("A", ""))
	_, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.p.UploadAndIngest(context.Background(), IngestRequest{Filename: "a.pdf"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Empty(t, f.store.docs)
	assert.Empty(t, f.objects.keys)
}

func TestUploadAndIngest_BatchedWithFileURL(t *testing.T) {
	f := newPipelineFixture(textRegistry("", "Mon 9:00 DBMS\n\nTue 10:00 OS\nWed 11:00 CN\n"))

	res, err := f.p.UploadAndIngest(context.Background(), IngestRequest{
		Bytes:    []byte{0x89, 'P', 'N', 'G'},
		Filename: "timetable.png",
		Category: "timetable",
	})
	require.NoError(t, err)

	require.Len(t, f.objects.keys, 1)
	url := "https://files.example/" + f.objects.keys[0]
	assert.Equal(t, url, res.Document.SourceURL)
	assert.Equal(t, "image/png", res.Document.ContentType)
	assert.Equal(t, "timetable", res.Document.Category)

	assert.Equal(t, 3, res.ChunkCount)
	require.Len(t, f.emb.calls, 1)
	assert.Equal(t, []string{"Mon 9:00 DBMS", "Tue 10:00 OS", "Wed 11:00 CN"}, f.emb.calls[0])
	require.Equal(t, 1, f.index.upsertCount())
	batch := f.index.col.upserts[0]
	require.Len(t, batch, 3)
	for _, v := range batch {
		assert.Equal(t, url, v.Metadata[domain.MetaFileURL])
		assert.Equal(t, "timetable", v.Metadata[domain.MetaCategory])
	}
}

func TestUploadAndIngest_UploadFailure(t *testing.T) {
	f := newPipelineFixture(textRegistry("A", ""))
	f.objects.err = errors.New("bucket missing")

	_, err := f.p.UploadAndIngest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "a.pdf"})
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Empty(t, f.store.docs)
}

func TestIngest_ReingestOverwritesSameIDs(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB", ""))
	req := IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"}
	_, err := f.p.Ingest(context.Background(), req)
	require.NoError(t, err)
	_, err = f.p.Ingest(context.Background(), req)
	require.NoError(t, err)

	ups := f.index.col.upserts
	require.Len(t, ups, 4)
	assert.Equal(t, ups[0][0].ID, ups[2][0].ID)
	assert.Equal(t, ups[1][0].ID, ups[3][0].ID)
	assert.NotEqual(t, ups[0][0].ID, ups[1][0].ID)
}

func TestIngest_UsesConfiguredModel(t *testing.T) {
	f := newPipelineFixture(textRegistry("A\n\nB", ""))
	_, err := f.p.Ingest(context.Background(), IngestRequest{Bytes: []byte("%PDF"), Filename: "notes.pdf"})
	require.NoError(t, err)
	for _, m := range f.emb.models {
		assert.Equal(t, testModel, m)
	}
}
