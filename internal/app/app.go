package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"studysync/internal/config"
	"studysync/internal/httpapi"
	"studysync/internal/logger"
	"studysync/internal/metadata"
	"studysync/internal/service"
	"studysync/internal/summarizer"
)

// App holds the fully wired assistant and its collaborators.
type App struct {
	Cfg       *config.AppConfig
	Log       *logger.Logger
	Store     *metadata.Store
	Pipeline  *service.Pipeline
	Assistant *service.Assistant
	FilesDir  string

	closers []func() error
}

func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: log}

	store, err := metadata.Open(metadata.Config{Driver: cfg.Metadata.Driver, DSN: cfg.Metadata.DSN}, log)
	if err != nil {
		return nil, fmt.Errorf("init metadata store: %w", err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	objects, filesDir, closeObjects, err := wireObjects(ctx, cfg.ObjectStorage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	a.FilesDir = filesDir
	a.closers = append(a.closers, closeObjects)

	embedder := wireEmbedder(ctx, cfg.Embedding, log)
	generator := wireGenerator(ctx, cfg.Generation, log)
	index, closeIndex := wireIndex(ctx, cfg.VectorStore, log)
	a.closers = append(a.closers, closeIndex)
	registry, closeExtractor := wireExtractor(ctx, cfg.Extraction, generator, cfg.Generation.VisionModel, log)
	a.closers = append(a.closers, closeExtractor)

	a.Pipeline = service.NewPipeline(service.PipelineDeps{
		Extractor:  registry,
		Embedder:   embedder,
		Index:      index,
		Store:      store,
		Objects:    objects,
		Summarizer: summarizer.New(),
	}, service.PipelineOptions{
		Collection:       cfg.VectorStore.Collection,
		Model:            cfg.Embedding.Model,
		Dimension:        cfg.Embedding.Dimension,
		SummarySentences: cfg.Ingestion.SummarySentences,
		EmbedTimeout:     cfg.Timeouts.Embedding(),
		ExtractTimeout:   cfg.Timeouts.Extraction(),
		UpsertTimeout:    cfg.Timeouts.VectorQuery(),
	}, log)

	retriever := service.NewRetriever(embedder, index, service.RetrieverOptions{
		Collection:        cfg.VectorStore.Collection,
		Model:             cfg.Embedding.Model,
		Dimension:         cfg.Embedding.Dimension,
		TopK:              cfg.Retrieval.TopK,
		RawVectorFallback: cfg.Retrieval.RawVectorFallback,
		EmbedTimeout:      cfg.Timeouts.Embedding(),
		QueryTimeout:      cfg.Timeouts.VectorQuery(),
	}, log)
	gen := service.NewGenerator(generator, service.GeneratorOptions{
		Model:   cfg.Generation.Model,
		Persona: cfg.Assistant.Persona,
		Facts:   cfg.Assistant.Facts,
		Timeout: cfg.Timeouts.Generation(),
	}, log)

	rules := make([]service.Rule, 0, len(cfg.Assistant.Routes))
	for _, r := range cfg.Assistant.Routes {
		rules = append(rules, service.Rule{Intent: r.Intent, Keywords: r.Keywords})
	}
	a.Assistant = service.NewAssistant(service.NewRouter(rules), retriever, gen, log).
		Handle(service.IntentTimetable, service.NewTimetableHandler(store))

	return a, nil
}

// Handler builds the HTTP router.
func (a *App) Handler() *gin.Engine {
	serviceName := ""
	if a.Cfg.Tracing.Enabled {
		serviceName = a.Cfg.Tracing.ServiceName
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		ServiceName:     serviceName,
		AllowedOrigins:  a.Cfg.Server.AllowedOrigins,
		FilesDir:        a.FilesDir,
		ChatHandler:     httpapi.NewChatHandler(a.Assistant),
		UploadHandler:   httpapi.NewUploadHandler(a.Pipeline, a.Cfg.Server.MaxUploadMB, a.Log),
		MaterialHandler: httpapi.NewMaterialHandler(a.Store),
		NoticeHandler:   httpapi.NewNoticeHandler(a.Store),
		HealthHandler: &httpapi.HealthHandler{
			VectorBackend: a.Cfg.VectorStore.Type,
			Collection:    a.Cfg.VectorStore.Collection,
			Embedding:     a.Cfg.Embedding.Model,
		},
	}, a.Log)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func envOrEmpty(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
