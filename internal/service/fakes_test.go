package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"studysync/internal/domain"
)

type fakeEmbedder struct {
	mu     sync.Mutex
	calls  [][]string
	models []string
	failOn int // 1-based call number that fails; 0 never
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, model string, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, texts)
	f.models = append(f.models, model)
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return nil, errors.New("embedding backend down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

type fakeCollection struct {
	upserts      [][]domain.Vector
	upsertCalls  int
	failOnUpsert int // 1-based call number that fails; 0 never
	matches      []domain.Match
	queryErr     error
	queries      []domain.QueryRequest
}

func (c *fakeCollection) Upsert(_ context.Context, vectors []domain.Vector) error {
	c.upsertCalls++
	if c.failOnUpsert > 0 && c.upsertCalls == c.failOnUpsert {
		return errors.New("index rejected write")
	}
	c.upserts = append(c.upserts, vectors)
	return nil
}

func (c *fakeCollection) Query(_ context.Context, req domain.QueryRequest) ([]domain.Match, error) {
	c.queries = append(c.queries, req)
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.matches, nil
}

type fakeIndex struct {
	col     *fakeCollection
	err     error
	missing bool // collection does not exist until opened without LookupOnly
	created []domain.CollectionOptions
}

func newFakeIndex() *fakeIndex { return &fakeIndex{col: &fakeCollection{}} }

func (ix *fakeIndex) GetOrCreateCollection(_ context.Context, name string, opts domain.CollectionOptions) (domain.Collection, error) {
	ix.created = append(ix.created, opts)
	if ix.err != nil {
		return nil, ix.err
	}
	if ix.missing {
		if opts.LookupOnly {
			return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
		}
		ix.missing = false
	}
	return ix.col, nil
}

func (ix *fakeIndex) upsertCount() int { return len(ix.col.upserts) }

type fakeStore struct {
	docs    []domain.Document
	err     error
	findErr error
	finds   int
}

func (s *fakeStore) Insert(_ context.Context, doc *domain.Document) error {
	if s.err != nil {
		return s.err
	}
	doc.ID = fmt.Sprintf("doc-%d", len(s.docs)+1)
	s.docs = append(s.docs, *doc)
	return nil
}

func (s *fakeStore) FindOne(_ context.Context, filter domain.DocumentFilter, _ domain.Sort) (*domain.Document, error) {
	s.finds++
	if s.findErr != nil {
		return nil, s.findErr
	}
	for i := len(s.docs) - 1; i >= 0; i-- {
		if filter.Category == "" || s.docs[i].Category == filter.Category {
			d := s.docs[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *fakeStore) Find(_ context.Context, _ domain.DocumentFilter, _ domain.Sort) ([]domain.Document, error) {
	return s.docs, s.err
}

type fakeObjects struct {
	keys []string
	data []string
	err  error
}

func (o *fakeObjects) Upload(_ context.Context, key, _ string, r io.Reader) (string, error) {
	if o.err != nil {
		return "", o.err
	}
	b, _ := io.ReadAll(r)
	o.keys = append(o.keys, key)
	o.data = append(o.data, string(b))
	return "https://files.example/" + key, nil
}

type fakeGen struct {
	reply   string
	err     error
	prompts []domain.Prompt
	models  []string
	panics  bool
}

func (g *fakeGen) Generate(_ context.Context, model string, p domain.Prompt) (string, error) {
	if g.panics {
		panic("generator exploded")
	}
	g.prompts = append(g.prompts, p)
	g.models = append(g.models, model)
	return g.reply, g.err
}
