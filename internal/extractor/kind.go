package extractor

import (
	"path/filepath"
	"strings"

	"studysync/internal/chunker"
)

// Kind is the closed set of document kinds the pipeline knows how to read.
type Kind int

const (
	KindUnsupported Kind = iota
	KindPDF
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindPDF:
		return "pdf"
	case KindImage:
		return "image"
	default:
		return "unsupported"
	}
}

// Delimiter is the chunk boundary used for text extracted from this kind.
// PDF text keeps paragraph breaks; OCR output is split per line.
func (k Kind) Delimiter() string {
	switch k {
	case KindPDF:
		return chunker.ParagraphDelimiter
	case KindImage:
		return chunker.LineDelimiter
	default:
		return ""
	}
}

const (
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// InferMimeType guesses a MIME type from the file extension.
func InferMimeType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return MimePDF
	}
	if m, ok := imageExtensions[ext]; ok {
		return m
	}
	return MimeOctetStream
}

// ResolveMimeType returns mimeType unless it is empty or generic, in which case
// the type is inferred from the filename.
func ResolveMimeType(mimeType, filename string) string {
	m := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "" || m == MimeOctetStream {
		return InferMimeType(filename)
	}
	return m
}

// DetectKind classifies a document by MIME type, falling back to the extension.
func DetectKind(mimeType, filename string) Kind {
	m := ResolveMimeType(mimeType, filename)
	switch {
	case m == MimePDF:
		return KindPDF
	case strings.HasPrefix(m, "image/"):
		return KindImage
	default:
		return KindUnsupported
	}
}
