package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"studysync/internal/domain"
	"studysync/internal/vectorstore"
)

// Index is an in-memory vector index using brute-force similarity search.
type Index struct {
	mu          sync.Mutex
	collections map[string]*Collection
}

func NewIndex() *Index {
	return &Index{collections: make(map[string]*Collection)}
}

func (ix *Index) GetOrCreateCollection(_ context.Context, name string, opts domain.CollectionOptions) (domain.Collection, error) {
	if name == "" {
		return nil, errors.New("collection name required")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if c, ok := ix.collections[name]; ok {
		return c, nil
	}
	if opts.LookupOnly {
		return nil, vectorstore.Missing(name)
	}
	if opts.Metric == "" {
		opts.Metric = domain.DistanceCosine
	}
	c := &Collection{name: name, opts: opts, pos: make(map[string]int)}
	ix.collections[name] = c
	return c, nil
}

// Collection holds vectors in insertion order; upserting an existing id replaces it.
type Collection struct {
	mu      sync.RWMutex
	name    string
	opts    domain.CollectionOptions
	pos     map[string]int
	vectors []domain.Vector
}

func (c *Collection) Name() string { return c.name }

// Len reports how many vectors the collection holds.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

func (c *Collection) Upsert(_ context.Context, vectors []domain.Vector) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	dim := c.opts.Dimension
	if dim <= 0 && len(c.vectors) > 0 {
		dim = len(c.vectors[0].Values)
	}
	if err := vectorstore.CheckVectors(vectors, dim); err != nil {
		return err
	}
	for _, v := range vectors {
		stored := domain.Vector{
			ID:       v.ID,
			Values:   append([]float32(nil), v.Values...),
			Metadata: vectorstore.CopyMetadata(v.Metadata),
		}
		if i, ok := c.pos[v.ID]; ok {
			c.vectors[i] = stored
			continue
		}
		c.pos[v.ID] = len(c.vectors)
		c.vectors = append(c.vectors, stored)
	}
	return nil
}

func (c *Collection) Query(_ context.Context, req domain.QueryRequest) ([]domain.Match, error) {
	if len(req.Vector) == 0 {
		return nil, errors.New("query vector required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	all := make([]scored, len(c.vectors))
	for i, v := range c.vectors {
		all[i] = scored{idx: i, score: vectorstore.Score(c.opts.Metric, v.Values, req.Vector)}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if topK > len(all) {
		topK = len(all)
	}
	out := make([]domain.Match, 0, topK)
	for _, s := range all[:topK] {
		v := c.vectors[s.idx]
		m := domain.Match{ID: v.ID, Score: s.score}
		if req.IncludeMetadata {
			m.Metadata = vectorstore.CopyMetadata(v.Metadata)
		}
		if req.IncludeValues {
			m.Values = append([]float32(nil), v.Values...)
		}
		out = append(out, m)
	}
	return out, nil
}
