package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"studysync/internal/apierr"
	"studysync/internal/domain"
	"studysync/internal/logger"
	"studysync/internal/service"
)

type Asker interface {
	Ask(ctx context.Context, message string) (service.Answer, error)
}

type Ingester interface {
	Ingest(ctx context.Context, req service.IngestRequest) (service.IngestResult, error)
	UploadAndIngest(ctx context.Context, req service.IngestRequest) (service.IngestResult, error)
}

type ChatHandler struct {
	assistant Asker
}

func NewChatHandler(a Asker) *ChatHandler { return &ChatHandler{assistant: a} }

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// POST /chatbot
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, "Invalid request body", fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	ans, err := h.assistant.Ask(c.Request.Context(), req.Message)
	if err != nil {
		RespondError(c, "No message provided", err)
		return
	}
	if ans.Status.Status == domain.StatusFailed {
		c.JSON(http.StatusInternalServerError, chatResponse{Reply: ans.Reply})
		return
	}
	c.JSON(http.StatusOK, chatResponse{Reply: ans.Reply})
}

type UploadHandler struct {
	pipeline Ingester
	maxBytes int64
	log      *logger.Logger
}

func NewUploadHandler(p Ingester, maxUploadMB int, log *logger.Logger) *UploadHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 32
	}
	if log == nil {
		log = logger.Nop()
	}
	return &UploadHandler{pipeline: p, maxBytes: int64(maxUploadMB) << 20, log: log.With("handler", "UploadHandler")}
}

type uploadResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	ChunkCount int              `json:"chunkCount"`
	Document   *domain.Document `json:"document,omitempty"`
	Extraction string           `json:"extraction"`
}

// ingestFailureResponse reports what was already indexed so the upload can be retried.
type ingestFailureResponse struct {
	ErrorEnvelope
	Success    bool             `json:"success"`
	ChunkCount int              `json:"chunkCount"`
	Document   *domain.Document `json:"document,omitempty"`
}

// POST /upload-file stores the file and indexes it in one batch.
func (h *UploadHandler) UploadFile(c *gin.Context) {
	h.handle(c, h.pipeline.UploadAndIngest, "Successfully ingested and saved %s")
}

// POST /ingest indexes the file chunk by chunk without storing it.
func (h *UploadHandler) Ingest(c *gin.Context) {
	h.handle(c, h.pipeline.Ingest, "Successfully ingested %s")
}

func (h *UploadHandler) handle(c *gin.Context, run func(context.Context, service.IngestRequest) (service.IngestResult, error), okMsg string) {
	req, err := h.readUpload(c)
	if err != nil {
		RespondError(c, "No file provided", err)
		return
	}
	res, err := run(c.Request.Context(), req)
	if err != nil {
		h.log.Error("ingestion failed", "file", req.Filename, "indexed", res.ChunkCount, "error", err)
		if !errors.Is(err, domain.ErrIngestionFailed) {
			RespondError(c, "Failed to ingest document", err)
			return
		}
		ae := apierr.FromError(err)
		_ = c.Error(err)
		c.JSON(ae.Status, ingestFailureResponse{
			ErrorEnvelope: ErrorEnvelope{Error: "Failed to ingest document", Code: ae.Code},
			ChunkCount:    res.ChunkCount,
			Document:      res.Document,
		})
		return
	}
	c.JSON(http.StatusOK, uploadResponse{
		Success:    true,
		Message:    fmt.Sprintf(okMsg, req.Filename),
		ChunkCount: res.ChunkCount,
		Document:   res.Document,
		Extraction: res.Extraction.String(),
	})
}

func (h *UploadHandler) readUpload(c *gin.Context) (service.IngestRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		return service.IngestRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	f, err := fh.Open()
	if err != nil {
		return service.IngestRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return service.IngestRequest{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return service.IngestRequest{
		Bytes:    data,
		Filename: fh.Filename,
		MimeType: fh.Header.Get("Content-Type"),
		Category: c.PostForm("category"),
	}, nil
}

type MaterialHandler struct {
	store domain.MetadataStore
}

func NewMaterialHandler(s domain.MetadataStore) *MaterialHandler { return &MaterialHandler{store: s} }

// GET /materials
func (h *MaterialHandler) List(c *gin.Context) {
	docs, err := h.store.Find(c.Request.Context(), domain.DocumentFilter{Category: c.Query("category")}, domain.NewestFirst)
	if err != nil {
		RespondError(c, "Failed to fetch materials", err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

type NoticeHandler struct {
	store domain.NoticeStore
}

func NewNoticeHandler(s domain.NoticeStore) *NoticeHandler { return &NoticeHandler{store: s} }

// GET /notices
func (h *NoticeHandler) List(c *gin.Context) {
	notices, err := h.store.ListNotices(c.Request.Context())
	if err != nil {
		RespondError(c, "Failed to fetch notices", err)
		return
	}
	c.JSON(http.StatusOK, notices)
}

type createNoticeRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// POST /notices
func (h *NoticeHandler) Create(c *gin.Context) {
	var req createNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, "Invalid request body", apierr.New(http.StatusBadRequest, "invalid_input", err))
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		RespondError(c, "Title and content are required", domain.ErrInvalidInput)
		return
	}
	n := &domain.Notice{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
		Status:   req.Status,
		Priority: req.Priority,
	}
	if err := h.store.CreateNotice(c.Request.Context(), n); err != nil {
		RespondError(c, "Failed to create notice", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "newNotice": n})
}

// PUT /notices/:id
func (h *NoticeHandler) Update(c *gin.Context) {
	var patch domain.NoticePatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, "Invalid request body", apierr.New(http.StatusBadRequest, "invalid_input", err))
		return
	}
	n, err := h.store.UpdateNotice(c.Request.Context(), c.Param("id"), patch)
	if errors.Is(err, domain.ErrNotFound) {
		RespondError(c, "Notice not found", err)
		return
	}
	if err != nil {
		RespondError(c, "Failed to update notice", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notice": n})
}

type HealthHandler struct {
	VectorBackend string
	Collection    string
	Embedding     string
}

// GET /healthz
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"vectorStore": h.VectorBackend,
		"collection":  h.Collection,
		"embedding":   h.Embedding,
	})
}
