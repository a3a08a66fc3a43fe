package domain

import "time"

// DefaultCategory is assigned to documents uploaded without a category.
const DefaultCategory = "general"

// Document is one ingested file as recorded in the metadata store.
type Document struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	Name          string    `json:"fileName" gorm:"index"`
	SourceURL     string    `json:"fileURL"`
	ContentType   string    `json:"contentType"`
	SizeBytes     int64     `json:"size"`
	UploadedAt    time.Time `json:"uploadDate" gorm:"index"`
	Category      string    `json:"category" gorm:"index"`
	ExtractedText string    `json:"aiDescription"`
	Summary       string    `json:"summary,omitempty"`
}

// Chunk is a retrieval-sized slice of a document's extracted text.
type Chunk struct {
	ID       string
	Index    int
	Text     string
	Metadata map[string]any
}

// Metadata keys written alongside every vector.
const (
	MetaSource     = "source"
	MetaText       = "text"
	MetaCategory   = "category"
	MetaFileURL    = "fileURL"
	MetaChunkIndex = "chunkIndex"
)

// Vector is what gets written to a collection.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Distance is the similarity metric a collection is created with.
type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
)

// CollectionOptions configure a collection at creation time.
type CollectionOptions struct {
	Metric    Distance
	Dimension int
	// LookupOnly opens an existing collection and reports ErrNotFound
	// instead of creating a missing one.
	LookupOnly bool
}

// QueryRequest is a nearest-neighbour query against a collection.
type QueryRequest struct {
	Vector          []float32
	TopK            int
	IncludeMetadata bool
	IncludeValues   bool
}

// Match is a single query hit. Higher Score is more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]any
	Values   []float32
}

// Text returns the chunk text carried in the match metadata, if any.
func (m Match) Text() (string, bool) {
	if m.Metadata == nil {
		return "", false
	}
	s, ok := m.Metadata[MetaText].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// DocumentFilter narrows metadata store queries. Zero values match everything.
type DocumentFilter struct {
	Category string
	Name     string
}

// SortField names a sortable document attribute.
type SortField string

const SortByUploadedAt SortField = "uploaded_at"

// Sort orders metadata store results.
type Sort struct {
	By   SortField
	Desc bool
}

// NewestFirst sorts by upload time, most recent first.
var NewestFirst = Sort{By: SortByUploadedAt, Desc: true}

// Notice is an announcement published by staff.
type Notice struct {
	ID          string     `json:"_id" gorm:"primaryKey;size:36"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt" gorm:"index"`
	PublishDate *time.Time `json:"publishDate"`
	Views       int        `json:"views"`
}

// Notice status values with special handling.
const (
	NoticeStatusDraft     = "draft"
	NoticeStatusPublished = "published"
)

// NoticePatch is a partial update; empty fields are left untouched.
// PublishDate is read only to decide whether publishing stamps the current time.
type NoticePatch struct {
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	PublishDate *time.Time `json:"publishDate"`
}
