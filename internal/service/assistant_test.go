package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
	"studysync/internal/embedding/local"
	"studysync/internal/logger"
	"studysync/internal/vectorstore/memory"
)

type assistantFixture struct {
	emb   *fakeEmbedder
	index *fakeIndex
	store *fakeStore
	gen   *fakeGen
	a     *Assistant
}

func newAssistantFixture() *assistantFixture {
	f := &assistantFixture{
		emb:   &fakeEmbedder{},
		index: newFakeIndex(),
		store: &fakeStore{},
		gen:   &fakeGen{reply: "RCPIT was founded by the Shirpur Education Society."},
	}
	f.a = NewAssistant(
		NewRouter(nil),
		newTestRetriever(f.emb, f.index, false),
		newTestGenerator(f.gen),
		logger.Nop(),
	).Handle(IntentTimetable, NewTimetableHandler(f.store))
	return f
}

func TestAsk_EmptyMessage(t *testing.T) {
	f := newAssistantFixture()
	for _, msg := range []string{"", "   \n\t"} {
		_, err := f.a.Ask(context.Background(), msg)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Empty(t, f.emb.calls)
	assert.Empty(t, f.gen.prompts)
	assert.Zero(t, f.store.finds)
}

func TestAsk_FastPathNoTimetable(t *testing.T) {
	f := newAssistantFixture()
	ans, err := f.a.Ask(context.Background(), "Where is the TIMETABLE?")
	require.NoError(t, err)
	assert.Equal(t, timetableMissingReply, ans.Reply)
	assert.True(t, ans.Status.IsOK())
	assert.Equal(t, FastPath, ans.Route.Kind)
	assert.Empty(t, f.emb.calls)
	assert.Empty(t, f.gen.prompts)
}

func TestAsk_RagPath(t *testing.T) {
	f := newAssistantFixture()
	f.index.col.matches = []domain.Match{textMatch("a", "Founded in 2001 by SES.")}

	ans, err := f.a.Ask(context.Background(), "Who is the founder?")
	require.NoError(t, err)
	assert.Equal(t, f.gen.reply, ans.Reply)
	assert.True(t, ans.Status.IsOK())
	require.Len(t, f.gen.prompts, 1)
	assert.Contains(t, f.gen.prompts[0].Text, "CONTEXT:\n---\nFounded in 2001 by SES.\n---")
	assert.True(t, strings.HasSuffix(f.gen.prompts[0].Text, "USER QUESTION:\nWho is the founder?"))
}

func TestAsk_IndexErrorStillAnswers(t *testing.T) {
	f := newAssistantFixture()
	f.index.col.queryErr = errors.New("index missing")

	ans, err := f.a.Ask(context.Background(), "Who is the founder?")
	require.NoError(t, err)
	assert.Equal(t, f.gen.reply, ans.Reply)
	assert.Equal(t, domain.StatusDegraded, ans.Status.Status)
	assert.Contains(t, f.gen.prompts[0].Text, RetrievalUnavailableContext)
}

func TestAsk_GenerationErrorDegrades(t *testing.T) {
	f := newAssistantFixture()
	f.gen.err = errors.New("503")

	ans, err := f.a.Ask(context.Background(), "Who is the founder?")
	require.NoError(t, err)
	assert.Equal(t, DegradedReply, ans.Reply)
	assert.Equal(t, domain.StatusDegraded, ans.Status.Status)
}

func TestAsk_FastPathStoreErrorApologizes(t *testing.T) {
	f := newAssistantFixture()
	f.store.findErr = errors.New("db down")

	ans, err := f.a.Ask(context.Background(), "schedule please")
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, ans.Reply)
	assert.Equal(t, domain.StatusFailed, ans.Status.Status)
}

func TestAsk_PanicApologizes(t *testing.T) {
	f := newAssistantFixture()
	f.gen.panics = true

	ans, err := f.a.Ask(context.Background(), "Who is the founder?")
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, ans.Reply)
	assert.Equal(t, domain.StatusFailed, ans.Status.Status)
	assert.Equal(t, RagPath, ans.Route.Kind)
}

func TestAsk_UnregisteredIntentApologizes(t *testing.T) {
	f := newAssistantFixture()
	a := NewAssistant(NewRouter([]Rule{{Intent: "fees", Keywords: []string{"fee"}}}), f.a.retriever, f.a.generator, nil)
	ans, err := a.Ask(context.Background(), "fee deadline?")
	require.NoError(t, err)
	assert.Equal(t, ApologyReply, ans.Reply)
}

type recordingEmbedder struct {
	inner  domain.EmbeddingService
	models []string
}

func (r *recordingEmbedder) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	r.models = append(r.models, model)
	return r.inner.Embed(ctx, model, texts)
}

func TestIngestThenAsk_SameModelEndToEnd(t *testing.T) {
	const model = "hashing-v1"
	ctx := context.Background()
	emb := &recordingEmbedder{inner: local.NewEmbedder(model, 256)}
	index := memory.NewIndex()
	store := &fakeStore{}

	p := NewPipeline(PipelineDeps{
		Extractor: textRegistry("The library opens at 9 am on weekdays.\n\nSemester exams begin on the 12th of May.\n\nThe canteen serves lunch from noon.", ""),
		Embedder:  emb,
		Index:     index,
		Store:     store,
	}, PipelineOptions{Collection: "materials", Model: model, Dimension: 256}, logger.Nop())
	res, err := p.Ingest(ctx, IngestRequest{Bytes: []byte("%PDF"), Filename: "info.pdf"})
	require.NoError(t, err)
	require.Equal(t, 3, res.ChunkCount)

	gen := &fakeGen{reply: "May 12th."}
	retriever := NewRetriever(emb, index, RetrieverOptions{Collection: "materials", Model: model, Dimension: 256, TopK: 1}, nil)
	a := NewAssistant(NewRouter(nil), retriever, newTestGenerator(gen), nil)

	ans, err := a.Ask(ctx, "When do semester exams begin?")
	require.NoError(t, err)
	assert.Equal(t, "May 12th.", ans.Reply)
	assert.Contains(t, gen.prompts[0].Text, "Semester exams begin on the 12th of May.")
	assert.NotContains(t, gen.prompts[0].Text, "canteen")

	require.Len(t, emb.models, 4)
	for _, m := range emb.models {
		assert.Equal(t, model, m)
	}
}
