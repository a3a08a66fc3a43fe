package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"studysync/internal/domain"
	"studysync/internal/vectorstore"
)

// idKey carries the caller's vector id in the point payload. Qdrant only
// accepts unsigned integers or UUIDs as point ids, so points are stored under
// a name-based UUID derived from the original id.
const idKey = "_vector_id"

// Index is a minimal REST client to Qdrant.
type Index struct {
	url    string
	apiKey string
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

func NewIndex(cfg Config) *Index {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

// GetOrCreateCollection checks for the collection and creates it when missing.
func (ix *Index) GetOrCreateCollection(ctx context.Context, name string, opts domain.CollectionOptions) (domain.Collection, error) {
	if name == "" {
		return nil, errors.New("collection name required")
	}
	base := fmt.Sprintf("%s/collections/%s", ix.url, url.PathEscape(name))
	status, err := ix.do(ctx, http.MethodGet, base, nil, nil)
	if err != nil && status != http.StatusNotFound {
		return nil, vectorstore.Unavailable("qdrant get collection", err)
	}
	if status == http.StatusNotFound {
		if opts.LookupOnly {
			return nil, vectorstore.Missing(name)
		}
		if opts.Dimension <= 0 {
			return nil, fmt.Errorf("qdrant: collection %q missing and no dimension given", name)
		}
		body := map[string]any{
			"vectors": map[string]any{
				"size":     opts.Dimension,
				"distance": distance(opts.Metric),
			},
		}
		if _, err := ix.do(ctx, http.MethodPut, base, body, nil); err != nil {
			return nil, vectorstore.Unavailable("qdrant create collection", err)
		}
	}
	return &Collection{ix: ix, base: base}, nil
}

func distance(m domain.Distance) string {
	if m == domain.DistanceDot {
		return "Dot"
	}
	return "Cosine"
}

// PointID maps an arbitrary vector id onto the UUID used as the Qdrant point id.
func PointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

type Collection struct {
	ix   *Index
	base string
}

func (c *Collection) Upsert(ctx context.Context, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := vectorstore.CheckVectors(vectors, 0); err != nil {
		return err
	}
	points := make([]map[string]any, len(vectors))
	for i, v := range vectors {
		payload := vectorstore.CopyMetadata(v.Metadata)
		if payload == nil {
			payload = make(map[string]any, 1)
		}
		payload[idKey] = v.ID
		points[i] = map[string]any{
			"id":      PointID(v.ID),
			"vector":  v.Values,
			"payload": payload,
		}
	}
	body := map[string]any{"points": points}
	if _, err := c.ix.do(ctx, http.MethodPut, c.base+"/points?wait=true", body, nil); err != nil {
		return vectorstore.Unavailable("qdrant upsert", err)
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
	body := map[string]any{
		"vector":       req.Vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  req.IncludeValues,
	}
	var resp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
			Vector  []float32      `json:"vector"`
		} `json:"result"`
	}
	if _, err := c.ix.do(ctx, http.MethodPost, c.base+"/points/search", body, &resp); err != nil {
		return nil, vectorstore.Unavailable("qdrant search", err)
	}
	out := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := domain.Match{Score: r.Score}
		if id, ok := r.Payload[idKey].(string); ok {
			m.ID = id
		} else {
			m.ID = fmt.Sprint(r.ID)
		}
		if req.IncludeMetadata {
			meta := vectorstore.CopyMetadata(r.Payload)
			delete(meta, idKey)
			m.Metadata = meta
		}
		if req.IncludeValues {
			m.Values = r.Vector
		}
		out = append(out, m)
	}
	return out, nil
}

// do sends a JSON request and decodes the response into out when given.
// It returns the HTTP status even when the request failed with a non-2xx code.
func (ix *Index) do(ctx context.Context, method, u string, body any, out any) (int, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if ix.apiKey != "" {
		req.Header.Set("api-key", ix.apiKey)
	}
	resp, err := ix.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s: %s", method, u, resp.Status, strings.TrimSpace(string(raw)))
	}
	if out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}
