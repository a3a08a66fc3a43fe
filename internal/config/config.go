package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds connection details for a hosted model provider.
type ProviderConfig struct {
	BaseURL   string `yaml:"base_url,omitempty"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey resolves the key from the configured environment variable.
func (p *ProviderConfig) APIKey() (string, error) {
	if p == nil {
		return "", errors.New("provider config missing")
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("missing API key in env %s", p.APIKeyEnv)
	}
	return key, nil
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

type LogConfig struct {
	Mode string `yaml:"mode"`
}

// EmbeddingConfig selects the embedding backend. Model is the single id used
// for both ingestion and querying.
type EmbeddingConfig struct {
	Type      string          `yaml:"type"`
	Model     string          `yaml:"model"`
	Dimension int             `yaml:"dimension"`
	RateLimit float64         `yaml:"rate_limit_per_sec"`
	Burst     int             `yaml:"burst"`
	OpenAI    *ProviderConfig `yaml:"openai,omitempty"`
	Gemini    *ProviderConfig `yaml:"gemini,omitempty"`
	Eino      *ProviderConfig `yaml:"eino,omitempty"`
}

type GenerationConfig struct {
	Type        string          `yaml:"type"`
	Model       string          `yaml:"model"`
	VisionModel string          `yaml:"vision_model"`
	OpenAI      *ProviderConfig `yaml:"openai,omitempty"`
	Gemini      *ProviderConfig `yaml:"gemini,omitempty"`
}

// ExtractionConfig picks how images are turned into text: "vision" sends them
// to the generation backend, "cloud_vision" to Google Cloud Vision.
type ExtractionConfig struct {
	OCR         string             `yaml:"ocr"`
	OCRPrompt   string             `yaml:"ocr_prompt"`
	CloudVision *CloudVisionConfig `yaml:"cloud_vision,omitempty"`
}

type CloudVisionConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type       string          `yaml:"type"`
	Collection string          `yaml:"collection"`
	Qdrant     *QdrantConfig   `yaml:"qdrant,omitempty"`
	Pinecone   *PineconeConfig `yaml:"pinecone,omitempty"`
	Redis      *RedisConfig    `yaml:"redis,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type PineconeConfig struct {
	Host        string `yaml:"host"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Namespace   string `yaml:"namespace"`
	APIVersion  string `yaml:"api_version"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

type RedisConfig struct {
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
	PoolSize    int    `yaml:"pool_size"`
}

type MetadataConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ObjectStorageConfig struct {
	Type  string              `yaml:"type"`
	Local *LocalStorageConfig `yaml:"local,omitempty"`
	GCS   *GCSConfig          `yaml:"gcs,omitempty"`
}

type LocalStorageConfig struct {
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`
}

// RouteConfig maps a keyword set to a fast-path intent.
type RouteConfig struct {
	Intent   string   `yaml:"intent"`
	Keywords []string `yaml:"keywords"`
}

// AssistantConfig carries the static text injected into prompts and the routing table.
type AssistantConfig struct {
	Persona   string        `yaml:"persona"`
	Facts     string        `yaml:"facts"`
	FactsFile string        `yaml:"facts_file"`
	Routes    []RouteConfig `yaml:"routes"`
}

type RetrievalConfig struct {
	TopK              int  `yaml:"top_k"`
	RawVectorFallback bool `yaml:"raw_vector_fallback"`
}

type IngestionConfig struct {
	SummarySentences int `yaml:"summary_sentences"`
}

// TimeoutsConfig bounds each external call, in seconds.
type TimeoutsConfig struct {
	EmbeddingSecs   int `yaml:"embedding_secs"`
	VectorQuerySecs int `yaml:"vector_query_secs"`
	GenerationSecs  int `yaml:"generation_secs"`
	ExtractionSecs  int `yaml:"extraction_secs"`
}

func (t TimeoutsConfig) Embedding() time.Duration   { return secs(t.EmbeddingSecs) }
func (t TimeoutsConfig) VectorQuery() time.Duration { return secs(t.VectorQuerySecs) }
func (t TimeoutsConfig) Generation() time.Duration  { return secs(t.GenerationSecs) }
func (t TimeoutsConfig) Extraction() time.Duration  { return secs(t.ExtractionSecs) }

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Exporter    string `yaml:"exporter"`
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"service_name"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Log           LogConfig           `yaml:"log"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Generation    GenerationConfig    `yaml:"generation"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store"`
	Metadata      MetadataConfig      `yaml:"metadata"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	Assistant     AssistantConfig     `yaml:"assistant"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Ingestion     IngestionConfig     `yaml:"ingestion"`
	Timeouts      TimeoutsConfig      `yaml:"timeouts"`
	Tracing       TracingConfig       `yaml:"tracing"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := loadFactsFile(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/studysync/config.yaml.
// If neither exists, it writes defaults to ~/.config/studysync/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "studysync", "config.yaml"), nil
}

const (
	DefaultCollection = "studysync_materials"
	DefaultPersona    = "You are StudySync AI, a helpful college assistant for RCPIT. Use your PERMANENT TRAINING for general college info. Use the retrieved CONTEXT to answer questions about specific uploaded documents. Be helpful and concise."
	DefaultOCRPrompt  = "This is an image of a document. Perform OCR and extract all text from this image. Be as precise as possible."
)

// DefaultFacts is the institutional knowledge used when no facts are configured.
const DefaultFacts = `R. C. Patel Institute of Technology (RCPIT) is an autonomous engineering college in Shirpur, Maharashtra, run by the Shirpur Education Society.
The institute was established in 2001 and is affiliated to Dr. Babasaheb Ambedkar Technological University (DBATU), Lonere.
Undergraduate programmes: Computer Engineering, Information Technology, Electronics and Telecommunication, Electrical, Mechanical, Civil, AI and Data Science.
Examinations follow the semester pattern with mid-semester tests and end-semester examinations; results and exam schedules are published on the notice board and in StudySync.
Notices, timetables and study materials uploaded by faculty are available in StudySync under their categories.`

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "5000"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}

	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "local"
	}
	switch cfg.Embedding.Type {
	case "local":
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "hashing-v1"
		}
		if cfg.Embedding.Dimension == 0 {
			cfg.Embedding.Dimension = 512
		}
	case "openai":
		if cfg.Embedding.OpenAI == nil {
			cfg.Embedding.OpenAI = &ProviderConfig{}
		}
		providerDefaults(cfg.Embedding.OpenAI, "https://api.openai.com/v1", "OPENAI_API_KEY")
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	case "gemini":
		if cfg.Embedding.Gemini == nil {
			cfg.Embedding.Gemini = &ProviderConfig{}
		}
		providerDefaults(cfg.Embedding.Gemini, "", "GEMINI_API_KEY")
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-004"
		}
	case "eino":
		if cfg.Embedding.Eino == nil {
			cfg.Embedding.Eino = &ProviderConfig{}
		}
		providerDefaults(cfg.Embedding.Eino, "https://api.openai.com/v1", "OPENAI_API_KEY")
		if cfg.Embedding.Model == "" {
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}

	if cfg.Generation.Type == "" {
		cfg.Generation.Type = "openai"
	}
	switch cfg.Generation.Type {
	case "openai":
		if cfg.Generation.OpenAI == nil {
			cfg.Generation.OpenAI = &ProviderConfig{}
		}
		providerDefaults(cfg.Generation.OpenAI, "https://api.openai.com/v1", "OPENAI_API_KEY")
		if cfg.Generation.Model == "" {
			cfg.Generation.Model = "gpt-4o-mini"
		}
	case "gemini":
		if cfg.Generation.Gemini == nil {
			cfg.Generation.Gemini = &ProviderConfig{}
		}
		providerDefaults(cfg.Generation.Gemini, "", "GEMINI_API_KEY")
		if cfg.Generation.Model == "" {
			cfg.Generation.Model = "gemini-2.5-flash"
		}
	}
	if cfg.Generation.VisionModel == "" {
		cfg.Generation.VisionModel = cfg.Generation.Model
	}

	if cfg.Extraction.OCR == "" {
		cfg.Extraction.OCR = "vision"
	}
	if cfg.Extraction.OCRPrompt == "" {
		cfg.Extraction.OCRPrompt = DefaultOCRPrompt
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Collection == "" {
		cfg.VectorStore.Collection = DefaultCollection
	}
	switch cfg.VectorStore.Type {
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 10
		}
	case "pinecone":
		if cfg.VectorStore.Pinecone == nil {
			cfg.VectorStore.Pinecone = &PineconeConfig{}
		}
		if cfg.VectorStore.Pinecone.APIKeyEnv == "" {
			cfg.VectorStore.Pinecone.APIKeyEnv = "PINECONE_API_KEY"
		}
		if cfg.VectorStore.Pinecone.APIVersion == "" {
			cfg.VectorStore.Pinecone.APIVersion = "2025-10"
		}
		if cfg.VectorStore.Pinecone.TimeoutSecs == 0 {
			cfg.VectorStore.Pinecone.TimeoutSecs = 15
		}
	case "redis":
		if cfg.VectorStore.Redis == nil {
			cfg.VectorStore.Redis = &RedisConfig{}
		}
		if cfg.VectorStore.Redis.Addr == "" {
			cfg.VectorStore.Redis.Addr = "localhost:6379"
		}
		if cfg.VectorStore.Redis.PoolSize == 0 {
			cfg.VectorStore.Redis.PoolSize = 10
		}
	}

	if cfg.Metadata.Driver == "" {
		cfg.Metadata.Driver = "sqlite"
	}
	if cfg.Metadata.DSN == "" && cfg.Metadata.Driver == "sqlite" {
		cfg.Metadata.DSN = "studysync.db"
	}

	if cfg.ObjectStorage.Type == "" {
		cfg.ObjectStorage.Type = "local"
	}
	if cfg.ObjectStorage.Type == "local" {
		if cfg.ObjectStorage.Local == nil {
			cfg.ObjectStorage.Local = &LocalStorageConfig{}
		}
		if cfg.ObjectStorage.Local.Dir == "" {
			cfg.ObjectStorage.Local.Dir = "uploads"
		}
		if cfg.ObjectStorage.Local.PublicBaseURL == "" {
			cfg.ObjectStorage.Local.PublicBaseURL = "http://localhost:" + cfg.Server.Port + "/files"
		}
	}

	if cfg.Assistant.Persona == "" {
		cfg.Assistant.Persona = DefaultPersona
	}
	if cfg.Assistant.Facts == "" && cfg.Assistant.FactsFile == "" {
		cfg.Assistant.Facts = DefaultFacts
	}
	if len(cfg.Assistant.Routes) == 0 {
		cfg.Assistant.Routes = []RouteConfig{{Intent: "timetable", Keywords: []string{"timetable", "schedule"}}}
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Ingestion.SummarySentences == 0 {
		cfg.Ingestion.SummarySentences = 3
	}

	if cfg.Timeouts.EmbeddingSecs == 0 {
		cfg.Timeouts.EmbeddingSecs = 30
	}
	if cfg.Timeouts.VectorQuerySecs == 0 {
		cfg.Timeouts.VectorQuerySecs = 10
	}
	if cfg.Timeouts.GenerationSecs == 0 {
		cfg.Timeouts.GenerationSecs = 60
	}
	if cfg.Timeouts.ExtractionSecs == 0 {
		cfg.Timeouts.ExtractionSecs = 120
	}

	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "stdout"
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "studysync"
	}
}

func providerDefaults(p *ProviderConfig, baseURL, keyEnv string) {
	if p.BaseURL == "" {
		p.BaseURL = baseURL
	}
	if p.APIKeyEnv == "" {
		p.APIKeyEnv = keyEnv
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Metadata.Driver = "postgres"
		cfg.Metadata.DSN = v
	}
	if v := os.Getenv("PINECONE_INDEX_NAME"); v != "" {
		cfg.VectorStore.Collection = v
	}
	if v := os.Getenv("PINECONE_HOST"); v != "" && cfg.VectorStore.Pinecone != nil {
		cfg.VectorStore.Pinecone.Host = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" && cfg.ObjectStorage.GCS != nil {
		cfg.ObjectStorage.GCS.Bucket = v
	}
	if v := os.Getenv("RAW_VECTOR_FALLBACK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Retrieval.RawVectorFallback = b
		}
	}
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Tracing.Exporter = "otlp"
		cfg.Tracing.Endpoint = v
	}
}

// loadFactsFile reads assistant.facts_file (relative to the config file) into Facts.
func loadFactsFile(cfg *AppConfig, baseDir string) error {
	path := strings.TrimSpace(cfg.Assistant.FactsFile)
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read facts file: %w", err)
	}
	cfg.Assistant.Facts = strings.TrimSpace(string(data))
	return nil
}
