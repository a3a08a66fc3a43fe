package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"studysync/internal/domain"
	"studysync/internal/vectorstore"
)

// Index talks to Pinecone over its REST API. A collection maps to a Pinecone
// index; the data-plane host is either configured or looked up by name.
type Index struct {
	cfg  Config
	http *http.Client
}

type Config struct {
	APIKey     string
	APIVersion string
	// ControlURL is the control-plane base URL.
	ControlURL string
	// Host is the data-plane host of the index. Looked up via DescribeIndex when empty.
	Host      string
	Namespace string
	Cloud     string
	Region    string
	Timeout   time.Duration
}

func NewIndex(cfg Config) (*Index, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing Pinecone API key")
	}
	if strings.TrimSpace(cfg.APIVersion) == "" {
		cfg.APIVersion = "2025-10"
	}
	if strings.TrimSpace(cfg.ControlURL) == "" {
		cfg.ControlURL = "https://api.pinecone.io"
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Index{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

type indexDescription struct {
	Name      string `json:"name"`
	Host      string `json:"host"`
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

func (ix *Index) GetOrCreateCollection(ctx context.Context, name string, opts domain.CollectionOptions) (domain.Collection, error) {
	if host := strings.TrimSpace(ix.cfg.Host); host != "" {
		return &Collection{ix: ix, host: host}, nil
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("index name required")
	}
	u := strings.TrimRight(ix.cfg.ControlURL, "/") + "/indexes/" + name
	desc, status, err := doJSON[indexDescription](ctx, ix, http.MethodGet, u, nil)
	if status == http.StatusNotFound {
		if opts.LookupOnly {
			return nil, vectorstore.Missing(name)
		}
		desc, err = ix.createIndex(ctx, name, opts)
	}
	if err != nil {
		return nil, vectorstore.Unavailable("pinecone describe index", err)
	}
	if strings.TrimSpace(desc.Host) == "" {
		return nil, vectorstore.Unavailable("pinecone describe index", errors.New("empty host"))
	}
	return &Collection{ix: ix, host: desc.Host}, nil
}

func (ix *Index) createIndex(ctx context.Context, name string, opts domain.CollectionOptions) (*indexDescription, error) {
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("index %q missing and no dimension given", name)
	}
	metric := "cosine"
	if opts.Metric == domain.DistanceDot {
		metric = "dotproduct"
	}
	body := map[string]any{
		"name":      name,
		"dimension": opts.Dimension,
		"metric":    metric,
		"spec": map[string]any{
			"serverless": map[string]any{"cloud": ix.cfg.Cloud, "region": ix.cfg.Region},
		},
	}
	u := strings.TrimRight(ix.cfg.ControlURL, "/") + "/indexes"
	desc, _, err := doJSON[indexDescription](ctx, ix, http.MethodPost, u, body)
	return desc, err
}

type Collection struct {
	ix   *Index
	host string
}

type vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type upsertRequest struct {
	Vectors   []vector `json:"vectors"`
	Namespace string   `json:"namespace,omitempty"`
}

type upsertResponse struct {
	UpsertedCount int64 `json:"upsertedCount"`
}

type queryRequest struct {
	Namespace       string    `json:"namespace,omitempty"`
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeValues   bool      `json:"includeValues"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string         `json:"id"`
		Score    float64        `json:"score"`
		Values   []float32      `json:"values,omitempty"`
		Metadata map[string]any `json:"metadata,omitempty"`
	} `json:"matches"`
}

func (c *Collection) Upsert(ctx context.Context, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := vectorstore.CheckVectors(vectors, 0); err != nil {
		return err
	}
	req := upsertRequest{Namespace: c.ix.cfg.Namespace, Vectors: make([]vector, len(vectors))}
	for i, v := range vectors {
		req.Vectors[i] = vector{ID: v.ID, Values: v.Values, Metadata: v.Metadata}
	}
	if _, _, err := doJSON[upsertResponse](ctx, c.ix, http.MethodPost, c.url("/vectors/upsert"), req); err != nil {
		return vectorstore.Unavailable("pinecone upsert", err)
	}
	return nil
}

func (c *Collection) Query(ctx context.Context, req domain.QueryRequest) ([]domain.Match, error) {
	if len(req.Vector) == 0 {
		return nil, errors.New("query vector required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = 5
	}
	resp, _, err := doJSON[queryResponse](ctx, c.ix, http.MethodPost, c.url("/query"), queryRequest{
		Namespace:       c.ix.cfg.Namespace,
		Vector:          req.Vector,
		TopK:            topK,
		IncludeValues:   req.IncludeValues,
		IncludeMetadata: req.IncludeMetadata,
	})
	if err != nil {
		return nil, vectorstore.Unavailable("pinecone query", err)
	}
	out := make([]domain.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, domain.Match{ID: m.ID, Score: m.Score, Values: m.Values, Metadata: m.Metadata})
	}
	return out, nil
}

func (c *Collection) url(path string) string {
	host := strings.TrimRight(c.host, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + path
}

func doJSON[T any](ctx context.Context, ix *Index, method, url string, body any) (*T, int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Api-Key", ix.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Pinecone-Api-Version", ix.cfg.APIVersion)

	resp, err := ix.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("pinecone http %d: %s", resp.StatusCode, string(raw))
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("pinecone decode error: %w", err)
	}
	return &out, resp.StatusCode, nil
}
