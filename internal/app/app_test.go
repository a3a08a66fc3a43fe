package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/config"
	"studysync/internal/domain"
	"studysync/internal/logger"
	"studysync/internal/service"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	dir := t.TempDir()
	cfg.Metadata.DSN = filepath.Join(dir, "meta.db")
	cfg.ObjectStorage.Local.Dir = filepath.Join(dir, "uploads")
	return cfg
}

func TestNew_ZeroConfigDegradesWithoutKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Pipeline.UploadAndIngest(ctx, service.IngestRequest{
		Bytes:    []byte("not really a pdf"),
		Filename: "timetable.pdf",
		Category: "timetable",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDegraded, res.Extraction.Status)
	assert.True(t, strings.HasPrefix(res.Document.SourceURL, "http://localhost:5000/files/"))

	ans, err := a.Assistant.Ask(ctx, "show me the timetable")
	require.NoError(t, err)
	assert.Contains(t, ans.Reply, "**timetable.pdf**")

	ans, err = a.Assistant.Ask(ctx, "who founded RCPIT?")
	require.NoError(t, err)
	assert.Equal(t, service.DegradedReply, ans.Reply)

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vectorStore":"memory"`)

	assert.NoError(t, a.Close())
}

func TestWireIndex_UnknownTypeIsUnavailable(t *testing.T) {
	ix, closeFn := wireIndex(context.Background(), config.VectorStoreConfig{Type: "chroma"}, logger.Nop())
	_, err := ix.GetOrCreateCollection(context.Background(), "c", domain.CollectionOptions{})
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	assert.NoError(t, closeFn())
}

func TestWireEmbedder_MissingKey(t *testing.T) {
	t.Setenv("STUDYSYNC_MISSING_KEY", "")
	emb := wireEmbedder(context.Background(), config.EmbeddingConfig{
		Type:   "openai",
		Model:  "text-embedding-3-small",
		OpenAI: &config.ProviderConfig{APIKeyEnv: "STUDYSYNC_MISSING_KEY"},
	}, logger.Nop())
	_, err := emb.Embed(context.Background(), "text-embedding-3-small", []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)
}
