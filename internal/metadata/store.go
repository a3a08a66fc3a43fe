package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"studysync/internal/domain"
	"studysync/internal/logger"
)

const defaultNoticePriority = "medium"

// Store keeps document records and notices in a relational database.
type Store struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

type Config struct {
	Driver string
	DSN    string
}

func Open(cfg Config, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "studysync.db"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported metadata driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(gormWriter{log: log}, gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s metadata store: %w", cfg.Driver, err)
	}
	return New(db, log)
}

// New migrates the schema on an existing connection.
func New(db *gorm.DB, log *logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	if err := db.AutoMigrate(&domain.Document{}, &domain.Notice{}); err != nil {
		return nil, fmt.Errorf("migrate metadata schema: %w", err)
	}
	return &Store{db: db, log: log.With("service", "MetadataStore"), now: time.Now}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Insert(ctx context.Context, doc *domain.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = s.now().UTC()
	}
	if doc.Category == "" {
		doc.Category = domain.DefaultCategory
	}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("%w: insert document %q: %v", domain.ErrMetadataStore, doc.Name, err)
	}
	return nil
}

func (s *Store) FindOne(ctx context.Context, filter domain.DocumentFilter, sort domain.Sort) (*domain.Document, error) {
	var doc domain.Document
	err := s.documents(ctx, filter, sort).Limit(1).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find document: %v", domain.ErrMetadataStore, err)
	}
	return &doc, nil
}

func (s *Store) Find(ctx context.Context, filter domain.DocumentFilter, sort domain.Sort) ([]domain.Document, error) {
	docs := []domain.Document{}
	if err := s.documents(ctx, filter, sort).Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", domain.ErrMetadataStore, err)
	}
	return docs, nil
}

func (s *Store) documents(ctx context.Context, filter domain.DocumentFilter, sort domain.Sort) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&domain.Document{})
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.Name != "" {
		q = q.Where("name = ?", filter.Name)
	}
	if col, ok := sortColumns[sort.By]; ok {
		dir := "ASC"
		if sort.Desc {
			dir = "DESC"
		}
		q = q.Order(col + " " + dir)
	}
	return q
}

var sortColumns = map[domain.SortField]string{
	domain.SortByUploadedAt: "uploaded_at",
}

func (s *Store) ListNotices(ctx context.Context) ([]domain.Notice, error) {
	notices := []domain.Notice{}
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&notices).Error; err != nil {
		return nil, fmt.Errorf("%w: list notices: %v", domain.ErrMetadataStore, err)
	}
	return notices, nil
}

func (s *Store) CreateNotice(ctx context.Context, n *domain.Notice) error {
	if n == nil || strings.TrimSpace(n.Title) == "" || strings.TrimSpace(n.Content) == "" {
		return fmt.Errorf("%w: title and content are required", domain.ErrInvalidInput)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Category == "" {
		n.Category = domain.DefaultCategory
	}
	if n.Priority == "" {
		n.Priority = defaultNoticePriority
	}
	if n.Status == "" {
		n.Status = domain.NoticeStatusDraft
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("%w: create notice: %v", domain.ErrMetadataStore, err)
	}
	return nil
}

// UpdateNotice applies the non-empty fields of patch. Publishing a notice
// without an explicit publish date stamps it with the current time.
func (s *Store) UpdateNotice(ctx context.Context, id string, patch domain.NoticePatch) (*domain.Notice, error) {
	var out domain.Notice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).Take(&out).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		if patch.Title != "" {
			updates["title"] = patch.Title
		}
		if patch.Content != "" {
			updates["content"] = patch.Content
		}
		if patch.Category != "" {
			updates["category"] = patch.Category
		}
		if patch.Priority != "" {
			updates["priority"] = patch.Priority
		}
		if patch.Status != "" {
			updates["status"] = patch.Status
		}
		// A client-supplied publish date only suppresses the stamp; it is never stored.
		if patch.Status == domain.NoticeStatusPublished && patch.PublishDate == nil {
			updates["publish_date"] = s.now().UTC()
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Take(&out).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("notice %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: update notice %s: %v", domain.ErrMetadataStore, id, err)
	}
	return &out, nil
}

type gormWriter struct {
	log *logger.Logger
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}
