package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/domain"
)

func geminiServer(t *testing.T, reply string, seen *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*seen = append(*seen, r.URL.Path+" "+string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"` + reply + `"}]},"finishReason":"STOP"}]}`))
	}))
}

func TestClient_GenerateWithImage(t *testing.T) {
	var seen []string
	srv := geminiServer(t, "Line one\\nLine two", &seen)
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{APIKey: "k", BaseURL: srv.URL + "/", DefaultModel: "gemini-2.5-flash"})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "gemini-2.5-flash", domain.Prompt{
		Text:  "OCR this",
		Image: &domain.Image{Data: []byte("abc"), MimeType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Line one\nLine two", out)
	require.Len(t, seen, 1)
	assert.True(t, strings.Contains(seen[0], "gemini-2.5-flash:generateContent"), seen[0])
	assert.Contains(t, seen[0], "YWJj")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{})
	assert.Error(t, err)
}
