package extractor

import (
	"context"
	"errors"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/chunker"
	"studysync/internal/domain"
)

func TestDetectKind(t *testing.T) {
	tests := []struct {
		mime, file string
		want       Kind
		resolved   string
	}{
		{"application/pdf", "a.bin", KindPDF, "application/pdf"},
		{"", "Notes.PDF", KindPDF, "application/pdf"},
		{"application/octet-stream", "scan.jpg", KindImage, "image/jpeg"},
		{"image/png", "", KindImage, "image/png"},
		{"", "photo.webp", KindImage, "image/webp"},
		{"text/plain; charset=utf-8", "a.txt", KindUnsupported, "text/plain"},
		{"", "archive.zip", KindUnsupported, "application/octet-stream"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectKind(tt.mime, tt.file), tt.file)
		assert.Equal(t, tt.resolved, ResolveMimeType(tt.mime, tt.file), tt.file)
	}
}

func TestKindDelimiter(t *testing.T) {
	assert.Equal(t, chunker.ParagraphDelimiter, KindPDF.Delimiter())
	assert.Equal(t, chunker.LineDelimiter, KindImage.Delimiter())
	assert.Equal(t, "", KindUnsupported.Delimiter())
}

func TestRegistry_Extract(t *testing.T) {
	ok := StrategyFunc(func(ctx context.Context, data []byte, mime string) (string, error) {
		return "page one\n\npage two", nil
	})
	failing := StrategyFunc(func(ctx context.Context, data []byte, mime string) (string, error) {
		return "", errors.New("corrupt")
	})
	panicking := StrategyFunc(func(ctx context.Context, data []byte, mime string) (string, error) {
		panic("bad xref")
	})

	t.Run("success", func(t *testing.T) {
		r := NewRegistry().Register(KindPDF, ok)
		ext := r.Extract(context.Background(), []byte("%PDF"), "", "a.pdf")
		assert.Equal(t, KindPDF, ext.Kind)
		assert.Equal(t, "page one\n\npage two", ext.Text)
		assert.True(t, ext.Outcome.IsOK())
	})

	t.Run("strategy error degrades", func(t *testing.T) {
		r := NewRegistry().Register(KindPDF, failing)
		ext := r.Extract(context.Background(), []byte("x"), "application/pdf", "a.pdf")
		assert.Empty(t, ext.Text)
		assert.Equal(t, domain.StatusDegraded, ext.Outcome.Status)
		assert.ErrorIs(t, ext.Outcome.Err, domain.ErrExtractionFailed)
	})

	t.Run("panic degrades", func(t *testing.T) {
		r := NewRegistry().Register(KindImage, panicking)
		ext := r.Extract(context.Background(), []byte("x"), "image/png", "a.png")
		assert.Empty(t, ext.Text)
		assert.Equal(t, domain.StatusDegraded, ext.Outcome.Status)
		assert.ErrorIs(t, ext.Outcome.Err, domain.ErrExtractionFailed)
	})

	t.Run("unsupported kind skipped", func(t *testing.T) {
		called := false
		r := NewRegistry().Register(KindPDF, StrategyFunc(func(context.Context, []byte, string) (string, error) {
			called = true
			return "x", nil
		}))
		ext := r.Extract(context.Background(), []byte("x"), "", "notes.docx")
		assert.False(t, called)
		assert.Equal(t, KindUnsupported, ext.Kind)
		assert.Empty(t, ext.Text)
		assert.Nil(t, ext.Outcome.Err)
		assert.Equal(t, domain.StatusDegraded, ext.Outcome.Status)
	})

	t.Run("blank text degrades", func(t *testing.T) {
		r := NewRegistry().Register(KindImage, StrategyFunc(func(context.Context, []byte, string) (string, error) {
			return "  \n ", nil
		}))
		ext := r.Extract(context.Background(), []byte("x"), "image/png", "a.png")
		assert.Empty(t, ext.Text)
		assert.Equal(t, domain.StatusDegraded, ext.Outcome.Status)
	})
}

func TestPDFStrategy_InvalidInput(t *testing.T) {
	s := NewPDFStrategy()
	_, err := s.Extract(context.Background(), nil, MimePDF)
	assert.Error(t, err)

	ext := NewRegistry().Register(KindPDF, s).Extract(context.Background(), []byte("not a pdf"), MimePDF, "x.pdf")
	assert.Empty(t, ext.Text)
	assert.Equal(t, domain.StatusDegraded, ext.Outcome.Status)
}

type fakeGen struct {
	model  string
	prompt domain.Prompt
	out    string
	err    error
}

func (f *fakeGen) Generate(_ context.Context, model string, p domain.Prompt) (string, error) {
	f.model = model
	f.prompt = p
	return f.out, f.err
}

func TestVisionStrategy(t *testing.T) {
	gen := &fakeGen{out: "line 1\nline 2"}
	s := NewVisionStrategy(gen, "llava", "extract text")

	text, err := s.Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2", text)
	assert.Equal(t, "llava", gen.model)
	assert.Equal(t, "extract text", gen.prompt.Text)
	require.NotNil(t, gen.prompt.Image)
	assert.Equal(t, "image/png", gen.prompt.Image.MimeType)

	gen.err = errors.New("quota")
	_, err = s.Extract(context.Background(), []byte{1}, "image/png")
	assert.Error(t, err)

	_, err = s.Extract(context.Background(), nil, "image/png")
	assert.Error(t, err)
}

func TestCloudVisionFullText(t *testing.T) {
	text, err := fullText(&visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "Exam Hall\nRoom 4"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Exam Hall\nRoom 4", text)

	text, err = fullText(nil)
	require.NoError(t, err)
	assert.Empty(t, text)

	req := documentTextRequest([]byte("img"))
	require.Len(t, req.Requests, 1)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, req.Requests[0].Features[0].Type)
}
