package app

import (
	"context"
	"errors"
	"fmt"

	"studysync/internal/config"
	"studysync/internal/domain"
	"studysync/internal/embedding"
	einoEmbed "studysync/internal/embedding/eino"
	geminiEmbed "studysync/internal/embedding/gemini"
	"studysync/internal/embedding/local"
	openaiEmbed "studysync/internal/embedding/openai"
	"studysync/internal/extractor"
	geminiGen "studysync/internal/generation/gemini"
	openaiGen "studysync/internal/generation/openai"
	"studysync/internal/logger"
	"studysync/internal/objectstore/gcs"
	localStore "studysync/internal/objectstore/local"
	"studysync/internal/vectorstore/memory"
	"studysync/internal/vectorstore/pinecone"
	"studysync/internal/vectorstore/qdrant"
	"studysync/internal/vectorstore/redis"
)

func wireEmbedder(ctx context.Context, cfg config.EmbeddingConfig, log *logger.Logger) domain.EmbeddingService {
	var (
		svc domain.EmbeddingService
		err error
	)
	switch cfg.Type {
	case "local":
		svc = local.NewEmbedder(cfg.Model, cfg.Dimension)
	case "openai":
		var key string
		if key, err = cfg.OpenAI.APIKey(); err == nil {
			svc, err = openaiEmbed.NewClient(openaiEmbed.Config{BaseURL: cfg.OpenAI.BaseURL, APIKey: key})
		}
	case "gemini":
		var key string
		if key, err = cfg.Gemini.APIKey(); err == nil {
			svc, err = geminiEmbed.NewClient(ctx, geminiEmbed.Config{APIKey: key, BaseURL: cfg.Gemini.BaseURL})
		}
	case "eino":
		var key string
		if key, err = cfg.Eino.APIKey(); err == nil {
			svc, err = einoEmbed.NewEmbedder(ctx, einoEmbed.Config{APIKey: key, BaseURL: cfg.Eino.BaseURL, Model: cfg.Model})
		}
	default:
		err = fmt.Errorf("unknown embedding type %q", cfg.Type)
	}
	if err != nil {
		log.Warn("embedding backend unavailable; retrieval will degrade", "type", cfg.Type, "error", err)
		return unavailableEmbedder{err: err}
	}
	log.Info("embedding backend ready", "type", cfg.Type, "model", cfg.Model)
	return embedding.NewRateLimited(svc, cfg.RateLimit, cfg.Burst)
}

func wireGenerator(ctx context.Context, cfg config.GenerationConfig, log *logger.Logger) domain.GenerationService {
	var (
		svc domain.GenerationService
		err error
	)
	switch cfg.Type {
	case "openai":
		var key string
		if key, err = cfg.OpenAI.APIKey(); err == nil {
			svc, err = openaiGen.NewClient(openaiGen.Config{BaseURL: cfg.OpenAI.BaseURL, APIKey: key})
		}
	case "gemini":
		var key string
		if key, err = cfg.Gemini.APIKey(); err == nil {
			svc, err = geminiGen.NewClient(ctx, geminiGen.Config{APIKey: key, BaseURL: cfg.Gemini.BaseURL, DefaultModel: cfg.Model})
		}
	default:
		err = fmt.Errorf("unknown generation type %q", cfg.Type)
	}
	if err != nil {
		log.Warn("generation backend unavailable; replies will degrade", "type", cfg.Type, "error", err)
		return unavailableGenerator{err: err}
	}
	log.Info("generation backend ready", "type", cfg.Type, "model", cfg.Model)
	return svc
}

func wireIndex(ctx context.Context, cfg config.VectorStoreConfig, log *logger.Logger) (domain.VectorIndex, func() error) {
	noClose := func() error { return nil }
	var (
		ix  domain.VectorIndex
		err error
	)
	closeFn := noClose
	switch {
	case cfg.Type == "qdrant" && cfg.Qdrant == nil,
		cfg.Type == "pinecone" && cfg.Pinecone == nil,
		cfg.Type == "redis" && cfg.Redis == nil:
		log.Warn("vector index unavailable; retrieval will degrade", "type", cfg.Type, "error", "section missing")
		return unavailableIndex{err: fmt.Errorf("vector_store.%s section missing", cfg.Type)}, noClose
	}
	switch cfg.Type {
	case "memory":
		ix = memory.NewIndex()
	case "qdrant":
		q := cfg.Qdrant
		ix = qdrant.NewIndex(qdrant.Config{URL: q.URL, APIKey: envOrEmpty(q.APIKeyEnv), Timeout: secs(q.TimeoutSecs)})
	case "pinecone":
		p := cfg.Pinecone
		ix, err = pinecone.NewIndex(pinecone.Config{
			APIKey:     envOrEmpty(p.APIKeyEnv),
			APIVersion: p.APIVersion,
			Host:       p.Host,
			Namespace:  p.Namespace,
			Timeout:    secs(p.TimeoutSecs),
		})
	case "redis":
		r := cfg.Redis
		var rix *redis.Index
		rix, err = redis.NewIndex(ctx, redis.Config{Addr: r.Addr, Password: envOrEmpty(r.PasswordEnv), DB: r.DB, PoolSize: r.PoolSize})
		if err == nil {
			ix, closeFn = rix, rix.Close
		}
	default:
		err = fmt.Errorf("unknown vector store type %q", cfg.Type)
	}
	if err != nil {
		log.Warn("vector index unavailable; retrieval will degrade", "type", cfg.Type, "error", err)
		return unavailableIndex{err: err}, noClose
	}
	log.Info("vector index ready", "type", cfg.Type, "collection", cfg.Collection)
	return ix, closeFn
}

// wireObjects returns the object storage and, for local storage, the directory to serve.
func wireObjects(ctx context.Context, cfg config.ObjectStorageConfig) (domain.ObjectStorage, string, func() error, error) {
	switch cfg.Type {
	case "local":
		if cfg.Local == nil {
			return nil, "", nil, errors.New("object_storage.local section missing")
		}
		s, err := localStore.New(cfg.Local.Dir, cfg.Local.PublicBaseURL)
		if err != nil {
			return nil, "", nil, err
		}
		return s, s.Dir(), func() error { return nil }, nil
	case "gcs":
		if cfg.GCS == nil {
			return nil, "", nil, errors.New("object_storage.gcs section missing")
		}
		s, err := gcs.New(ctx, gcs.Config{Bucket: cfg.GCS.Bucket, CredentialsFile: cfg.GCS.CredentialsFile, PublicBaseURL: cfg.GCS.PublicBaseURL})
		if err != nil {
			return nil, "", nil, err
		}
		return s, "", s.Close, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown object storage type %q", cfg.Type)
	}
}

func wireExtractor(ctx context.Context, cfg config.ExtractionConfig, gen domain.GenerationService, visionModel string, log *logger.Logger) (*extractor.Registry, func() error) {
	reg := extractor.NewRegistry().Register(extractor.KindPDF, extractor.NewPDFStrategy())
	if cfg.OCR == "cloud_vision" {
		creds := ""
		if cfg.CloudVision != nil {
			creds = cfg.CloudVision.CredentialsFile
		}
		cv, err := extractor.NewCloudVisionStrategy(ctx, creds)
		if err == nil {
			reg.Register(extractor.KindImage, cv)
			return reg, cv.Close
		}
		log.Warn("cloud vision unavailable; falling back to vision model OCR", "error", err)
	}
	reg.Register(extractor.KindImage, extractor.NewVisionStrategy(gen, visionModel, cfg.OCRPrompt))
	return reg, func() error { return nil }
}

type unavailableEmbedder struct{ err error }

func (u unavailableEmbedder) Embed(context.Context, string, []string) ([][]float32, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingFailed, u.err)
}

type unavailableGenerator struct{ err error }

func (u unavailableGenerator) Generate(context.Context, string, domain.Prompt) (string, error) {
	return "", fmt.Errorf("%w: %w", domain.ErrGenerationFailed, u.err)
}

type unavailableIndex struct{ err error }

func (u unavailableIndex) GetOrCreateCollection(context.Context, string, domain.CollectionOptions) (domain.Collection, error) {
	return nil, fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, u.err)
}
