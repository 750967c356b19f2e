package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrInvalidConfig is returned when a configuration value is malformed or out of range
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	DefaultSearchURL  = "http://www.law.go.kr/DRF/lawSearch.do"
	DefaultDetailURL  = "http://www.law.go.kr/DRF/lawService.do"
	DefaultCollection = "law_documents"
	DefaultSQLitePath = "./database/law_index.db"
)

// IndexDriver selects the vector index backend
type IndexDriver string

const (
	IndexDriverSQLite   IndexDriver = "sqlite"
	IndexDriverPostgres IndexDriver = "postgres"
	IndexDriverQdrant   IndexDriver = "qdrant"
)

// EmbeddingProvider selects the embedding backend
type EmbeddingProvider string

const (
	EmbeddingProviderOllama EmbeddingProvider = "ollama"
	EmbeddingProviderGemini EmbeddingProvider = "gemini"
)

// LawConfig holds the retrieval engine options
type LawConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	ChunkOverlap    int `yaml:"chunk_overlap"`
	MaxArticles     int `yaml:"max_articles"`
	SearchThreshold int `yaml:"search_threshold"`
	// MaxDistanceScore is in the index backend's native distance units and
	// has to be recalibrated whenever the embedder or backend changes.
	MaxDistanceScore float64       `yaml:"max_distance_score"`
	Timeout          time.Duration `yaml:"timeout"`
	FetchRetries     int           `yaml:"fetch_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	SearchK          int           `yaml:"search_k"`
	ResultLimit      int           `yaml:"result_limit"`
	StaleLimit       int           `yaml:"stale_limit"`
	ContentPreview   int           `yaml:"content_preview"`
	DetailCacheSize  int           `yaml:"detail_cache_size"`
	ShowScores       bool          `yaml:"show_scores"`
}

const (
	// DefaultMaxDistanceScore is calibrated for raw nomic-embed-text vectors under squared L2
	DefaultMaxDistanceScore = 350.0
	// NormalizedMaxDistanceScore is the cutoff for unit-length embeddings, whose squared L2
	// distance lies in [0, 4]
	NormalizedMaxDistanceScore = 1.0

	unsetDistance = -1
)

// DefaultMaxDistanceScoreFor returns the distance cutoff matching the vectors a provider returns
func DefaultMaxDistanceScoreFor(provider EmbeddingProvider) float64 {
	if provider == EmbeddingProviderGemini {
		return NormalizedMaxDistanceScore
	}
	return DefaultMaxDistanceScore
}

// DefaultLawConfig returns the engine defaults
func DefaultLawConfig() LawConfig {
	return LawConfig{
		ChunkSize:        1024,
		ChunkOverlap:     100,
		MaxArticles:      50,
		SearchThreshold:  2,
		MaxDistanceScore: DefaultMaxDistanceScore,
		Timeout:          10 * time.Second,
		FetchRetries:     1,
		RetryBackoff:     500 * time.Millisecond,
		SearchK:          5,
		ResultLimit:      5,
		StaleLimit:       3,
		ContentPreview:   500,
		DetailCacheSize:  128,
	}
}

// Validate checks the options for values the engine cannot run with
func (c LawConfig) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize:
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d", ErrInvalidConfig, c.ChunkOverlap)
	case c.MaxArticles <= 0:
		return fmt.Errorf("%w: max_articles must be positive, got %d", ErrInvalidConfig, c.MaxArticles)
	case c.SearchThreshold <= 0:
		return fmt.Errorf("%w: search_threshold must be positive, got %d", ErrInvalidConfig, c.SearchThreshold)
	case c.MaxDistanceScore < 0:
		return fmt.Errorf("%w: max_distance_score must be non-negative, got %v", ErrInvalidConfig, c.MaxDistanceScore)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	case c.FetchRetries < 0:
		return fmt.Errorf("%w: fetch_retries must be non-negative, got %d", ErrInvalidConfig, c.FetchRetries)
	case c.SearchK <= 0 || c.ResultLimit <= 0 || c.StaleLimit <= 0:
		return fmt.Errorf("%w: search_k, result_limit and stale_limit must be positive", ErrInvalidConfig)
	}
	return nil
}

// LawAPIConfig holds the law.go.kr DRF endpoints and the OC authorization id
type LawAPIConfig struct {
	OC        string `yaml:"oc"`
	SearchURL string `yaml:"search_url"`
	DetailURL string `yaml:"detail_url"`
}

// IndexConfig selects and locates the persisted vector collection
type IndexConfig struct {
	Driver      IndexDriver `yaml:"driver"`
	Collection  string      `yaml:"collection"`
	SQLitePath  string      `yaml:"sqlite_path"`
	DatabaseURL string      `yaml:"database_url"`
	QdrantHost  string      `yaml:"qdrant_host"`
	QdrantPort  int         `yaml:"qdrant_port"`
}

// EmbeddingConfig selects the text→vector service
type EmbeddingConfig struct {
	Provider   EmbeddingProvider `yaml:"provider"`
	Model      string            `yaml:"model"`
	BaseURL    string            `yaml:"base_url"`
	APIKey     string            `yaml:"api_key"`
	Dimensions int               `yaml:"dimensions"`
}

// Config is the process configuration
type Config struct {
	Port      string          `yaml:"port"`
	LawAPI    LawAPIConfig    `yaml:"law_api"`
	Law       LawConfig       `yaml:"law"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

// Default returns a configuration that runs against a local Ollama and an on-disk SQLite index
func Default() *Config {
	return &Config{
		Port: "8080",
		LawAPI: LawAPIConfig{
			SearchURL: DefaultSearchURL,
			DetailURL: DefaultDetailURL,
		},
		Law: DefaultLawConfig(),
		Index: IndexConfig{
			Driver:     IndexDriverSQLite,
			Collection: DefaultCollection,
			SQLitePath: DefaultSQLitePath,
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Embedding: EmbeddingConfig{
			Provider:   EmbeddingProviderOllama,
			Model:      "nomic-embed-text",
			BaseURL:    "http://localhost:11434",
			Dimensions: 768,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// LAW_CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Default()
	cfg.Law.MaxDistanceScore = unsetDistance

	if path := os.Getenv("LAW_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.Law.MaxDistanceScore == unsetDistance {
		cfg.Law.MaxDistanceScore = DefaultMaxDistanceScoreFor(cfg.Embedding.Provider)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.Port, "PORT")

	setString(&c.LawAPI.OC, "OPEN_LAW_GO_ID")
	setString(&c.LawAPI.SearchURL, "LAW_SEARCH_URL")
	setString(&c.LawAPI.DetailURL, "LAW_DETAIL_URL")

	var driver string
	setString(&driver, "INDEX_DRIVER")
	if driver != "" {
		c.Index.Driver = IndexDriver(strings.ToLower(driver))
	}
	setString(&c.Index.Collection, "INDEX_COLLECTION")
	setString(&c.Index.SQLitePath, "INDEX_SQLITE_PATH")
	setString(&c.Index.DatabaseURL, "DATABASE_URL")
	setString(&c.Index.QdrantHost, "QDRANT_HOST")

	var provider string
	setString(&provider, "EMBEDDING_PROVIDER")
	if provider != "" {
		c.Embedding.Provider = EmbeddingProvider(strings.ToLower(provider))
	}
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setString(&c.Embedding.BaseURL, "OLLAMA_SERVER_URL")
	setString(&c.Embedding.APIKey, "GEMINI_API_KEY")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Index.QdrantPort, "QDRANT_PORT"},
		{&c.Embedding.Dimensions, "EMBEDDING_DIM"},
		{&c.Law.ChunkSize, "LAW_CHUNK_SIZE"},
		{&c.Law.ChunkOverlap, "LAW_CHUNK_OVERLAP"},
		{&c.Law.MaxArticles, "LAW_MAX_ARTICLES"},
		{&c.Law.SearchThreshold, "LAW_SEARCH_THRESHOLD"},
		{&c.Law.FetchRetries, "LAW_FETCH_RETRIES"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("LAW_MAX_DISTANCE_SCORE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: LAW_MAX_DISTANCE_SCORE=%q", ErrInvalidConfig, v)
		}
		c.Law.MaxDistanceScore = f
	}

	if v := os.Getenv("LAW_TIMEOUT"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: LAW_TIMEOUT=%q", ErrInvalidConfig, v)
		}
		c.Law.Timeout = d
	}

	if v := os.Getenv("LAW_SHOW_SCORES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LAW_SHOW_SCORES=%q", ErrInvalidConfig, v)
		}
		c.Law.ShowScores = b
	}

	return nil
}

// Validate checks cross-field consistency
func (c *Config) Validate() error {
	if err := c.Law.Validate(); err != nil {
		return err
	}

	switch c.Index.Driver {
	case IndexDriverSQLite:
		if c.Index.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite index requires INDEX_SQLITE_PATH", ErrInvalidConfig)
		}
	case IndexDriverPostgres:
		if c.Index.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres index requires DATABASE_URL", ErrInvalidConfig)
		}
	case IndexDriverQdrant:
		if c.Index.QdrantHost == "" {
			return fmt.Errorf("%w: qdrant index requires QDRANT_HOST", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown index driver %q", ErrInvalidConfig, c.Index.Driver)
	}

	switch c.Embedding.Provider {
	case EmbeddingProviderOllama, EmbeddingProviderGemini:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.Embedding.Provider)
	}

	if c.Index.Collection == "" {
		return fmt.Errorf("%w: index collection name is empty", ErrInvalidConfig)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
	}
	*dst = n
	return nil
}

// parseDuration accepts Go durations ("10s") or a bare number of seconds ("10")
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}
