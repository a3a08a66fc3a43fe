package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"studysync/internal/logger"
)

type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	// FilesDir, when set, is served under /files.
	FilesDir string

	ChatHandler     *ChatHandler
	UploadHandler   *UploadHandler
	MaterialHandler *MaterialHandler
	NoticeHandler   *NoticeHandler
	HealthHandler   *HealthHandler
}

func NewRouter(cfg RouterConfig, log *logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(corsMiddleware(cfg.AllowedOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Health)
	}
	if cfg.ChatHandler != nil {
		r.POST("/chatbot", cfg.ChatHandler.Chat)
	}
	if cfg.UploadHandler != nil {
		r.POST("/upload-file", cfg.UploadHandler.UploadFile)
		r.POST("/ingest", cfg.UploadHandler.Ingest)
	}
	if cfg.MaterialHandler != nil {
		r.GET("/materials", cfg.MaterialHandler.List)
	}
	if cfg.NoticeHandler != nil {
		r.GET("/notices", cfg.NoticeHandler.List)
		r.POST("/notices", cfg.NoticeHandler.Create)
		r.PUT("/notices/:id", cfg.NoticeHandler.Update)
	}
	if cfg.FilesDir != "" {
		r.Static("/files", cfg.FilesDir)
	}
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
			log.Warn("request", kv...)
			return
		}
		log.Debug("request", kv...)
	}
}
