package domain

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrIndexUnavailable = errors.New("vector index unavailable")
	ErrGenerationFailed = errors.New("generation failed")
	ErrMetadataStore    = errors.New("metadata store failed")
	ErrIngestionFailed  = errors.New("ingestion failed")
	ErrNotFound         = errors.New("not found")
)
