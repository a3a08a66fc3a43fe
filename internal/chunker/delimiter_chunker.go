package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"studysync/internal/domain"
)

// Delimiters used by the ingestion pipeline.
const (
	ParagraphDelimiter = "\n\n"
	LineDelimiter      = "\n"
)

// Split cuts text on delimiter and drops segments that are empty once trimmed.
// Segments are returned untrimmed and in document order; nothing is merged or capped.
func Split(text, delimiter string) []string {
	if text == "" {
		return nil
	}
	if delimiter == "" {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	parts := strings.Split(text, delimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DelimiterChunker turns a document's text into chunks with stable ids.
type DelimiterChunker struct {
	delimiter string
}

func NewDelimiterChunker(delimiter string) *DelimiterChunker {
	return &DelimiterChunker{delimiter: delimiter}
}

func (c *DelimiterChunker) Delimiter() string { return c.delimiter }

// Chunk splits text and attaches the base metadata to every chunk. The base map is copied.
func (c *DelimiterChunker) Chunk(source, text string, base map[string]any) []domain.Chunk {
	segments := Split(text, c.delimiter)
	if len(segments) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, seg := range segments {
		meta := make(map[string]any, len(base)+3)
		for k, v := range base {
			meta[k] = v
		}
		meta[domain.MetaSource] = source
		meta[domain.MetaText] = seg
		meta[domain.MetaChunkIndex] = i
		chunks = append(chunks, domain.Chunk{
			ID:       ChunkID(source, seg, i),
			Index:    i,
			Text:     seg,
			Metadata: meta,
		})
	}
	return chunks
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ChunkID derives a vector id from the source name, the chunk text and its position.
// Identical content under an identical name maps to the same id.
func ChunkID(source, text string, index int) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(text))
	sum := hex.EncodeToString(h.Sum(nil))[:12]
	slug := strings.Trim(slugRe.ReplaceAllString(source, "_"), "_")
	if len(slug) > 48 {
		slug = slug[:48]
	}
	if slug == "" {
		slug = "doc"
	}
	return slug + "-" + sum + "-" + strconv.Itoa(index)
}
