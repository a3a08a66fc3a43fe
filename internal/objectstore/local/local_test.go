package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Upload(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "http://localhost:5000/files/")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "2024/06/01/ab12cd34-time table.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/files/2024/06/01/ab12cd34-time%20table.pdf", url)

	data, err := os.ReadFile(filepath.Join(dir, "2024", "06", "01", "ab12cd34-time table.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestStore_RejectsEscapingKeys(t *testing.T) {
	s, err := New(t.TempDir(), "http://x")
	require.NoError(t, err)
	for _, key := range []string{"", "../etc/passwd", "a/../../b", "/abs"} {
		_, err := s.Upload(context.Background(), key, "", strings.NewReader("x"))
		assert.Error(t, err, key)
	}
}

func TestStore_CanceledContext(t *testing.T) {
	s, err := New(t.TempDir(), "http://x")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Upload(ctx, "a.pdf", "", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
