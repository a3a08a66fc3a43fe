package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"studysync/internal/domain"
	"studysync/internal/vectorstore"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	fieldVector   = "vector"
	fieldText     = "text"
	fieldSource   = "source"
	fieldMetadata = "metadata"
	fieldScore    = "score"
)

// Index stores vectors in Redis hashes and searches them with a RediSearch
// HNSW index. Every collection gets its own search index and key prefix.
type Index struct {
	client *redis.Client
	mu     sync.Mutex
	known  map[string]bool
}

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

func NewIndex(ctx context.Context, cfg Config) (*Index, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		// FT.SEARCH replies are parsed in their RESP2 array shape.
		Protocol: 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Index{client: client, known: make(map[string]bool)}, nil
}

func (ix *Index) Close() error { return ix.client.Close() }

func (ix *Index) GetOrCreateCollection(ctx context.Context, name string, opts domain.CollectionOptions) (domain.Collection, error) {
	if name == "" {
		return nil, errors.New("collection name required")
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	col := &Collection{client: ix.client, name: name, prefix: name + ":"}
	if ix.known[name] {
		return col, nil
	}

	_, err := ix.client.Do(ctx, "FT.INFO", name).Result()
	if err == nil {
		ix.known[name] = true
		return col, nil
	}
	if !isUnknownIndex(err) {
		return nil, vectorstore.Unavailable("redis ft.info", err)
	}
	if opts.LookupOnly {
		return nil, vectorstore.Missing(name)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("redis: index %q missing and no dimension given", name)
	}
	if _, err := ix.client.Do(ctx, createArgs(name, col.prefix, opts)...).Result(); err != nil {
		return nil, vectorstore.Unavailable("redis ft.create", err)
	}
	ix.known[name] = true
	return col, nil
}

func isUnknownIndex(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index") || strings.Contains(msg, "not found")
}

func createArgs(name, prefix string, opts domain.CollectionOptions) []any {
	metric := "COSINE"
	if opts.Metric == domain.DistanceDot {
		metric = "IP"
	}
	return []any{
		"FT.CREATE", name,
		"ON", "HASH",
		"PREFIX", "1", prefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(opts.Dimension),
		"DISTANCE_METRIC", metric,
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldText, "TEXT",
		fieldSource, "TAG",
	}
}

type Collection struct {
	client *redis.Client
	name   string
	prefix string
}

func (c *Collection) Upsert(ctx context.Context, vectors []domain.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if err := vectorstore.CheckVectors(vectors, 0); err != nil {
		return err
	}
	pipe := c.client.Pipeline()
	for _, v := range vectors {
		meta, err := json.Marshal(v.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %q: %w", v.ID, err)
		}
		text, _ := v.Metadata[domain.MetaText].(string)
		source, _ := v.Metadata[domain.MetaSource].(string)
		pipe.HSet(ctx, c.prefix+v.ID,
			fieldVector, EncodeVector(v.Values),
			fieldText, text,
			fieldSource, source,
			fieldMetadata, string(meta),
		)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return vectorstore.Unavailable("redis upsert", err)
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
	res, err := c.client.Do(ctx, searchArgs(c.name, req, topK)...).Result()
	if err != nil {
		return nil, vectorstore.Unavailable("redis ft.search", err)
	}
	return parseSearch(res, c.prefix, req)
}

func searchArgs(name string, req domain.QueryRequest, topK int) []any {
	returned := []any{fieldScore}
	if req.IncludeMetadata {
		returned = append(returned, fieldMetadata)
	}
	if req.IncludeValues {
		returned = append(returned, fieldVector)
	}
	args := []any{
		"FT.SEARCH", name,
		fmt.Sprintf("*=>[KNN %d @%s $vec AS %s]", topK, fieldVector, fieldScore),
		"PARAMS", "2", "vec", EncodeVector(req.Vector),
		"SORTBY", fieldScore,
		"RETURN", strconv.Itoa(len(returned)),
	}
	args = append(args, returned...)
	return append(args, "LIMIT", "0", strconv.Itoa(topK), "DIALECT", "2")
}

// parseSearch reads a RESP2 FT.SEARCH reply: [total, key, [field, value, ...], ...].
// The KNN score is a distance: 1 - cosine for COSINE and 1 - u·v for IP, so
// 1 - d is the similarity for both metrics and higher is better.
func parseSearch(res any, prefix string, req domain.QueryRequest) ([]domain.Match, error) {
	values, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply %T", res)
	}
	out := make([]domain.Match, 0, len(values)/2)
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]any)
		if !ok {
			continue
		}
		m := domain.Match{ID: strings.TrimPrefix(key, prefix)}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			val, _ := fields[j+1].(string)
			switch name {
			case fieldScore:
				if d, err := strconv.ParseFloat(val, 64); err == nil {
					m.Score = 1 - d
				}
			case fieldMetadata:
				if req.IncludeMetadata && val != "" {
					var meta map[string]any
					if err := json.Unmarshal([]byte(val), &meta); err != nil {
						return nil, fmt.Errorf("decode metadata for %q: %w", m.ID, err)
					}
					m.Metadata = meta
				}
			case fieldVector:
				if req.IncludeValues {
					m.Values = DecodeVector([]byte(val))
				}
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// EncodeVector packs a vector as little-endian FLOAT32 bytes, the layout RediSearch expects.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func DecodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
