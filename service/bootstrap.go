package service

import (
	"context"
	"fmt"
	"log"

	"lawcite-backend/config"
	"lawcite-backend/lawapi"
	"lawcite-backend/repository"
	"lawcite-backend/storage"

	"github.com/google/generative-ai-go/genai"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/api/option"
)

const (
	ollamaDefaultModel = "nomic-embed-text"
	geminiDefaultModel = "gemini-embedding-001"
)

// NewLawServiceFromConfig wires the configured index backend, embedder and law API client
// into a LawService. archive may be nil.
func NewLawServiceFromConfig(ctx context.Context, cfg *config.Config, archive storage.Storage) (*LawService, error) {
	embedder, err := NewEmbedder(ctx, cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := OpenLawChunkStore(ctx, cfg.Index, cfg.Embedding.Dimensions)
	if err != nil {
		return nil, err
	}

	opts := []LawServiceOption{
		LawWithIndex(NewLawIndex(store, embedder)),
		LawWithFetcher(lawapi.NewClientFromConfig(cfg.LawAPI, cfg.Law)),
		LawWithConfig(cfg.Law),
	}

	if archive != nil {
		opts = append(opts, LawWithArchive(archive))
	}

	svc, err := NewLawService(opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return svc, nil
}

// NewEmbedder creates the configured embedding backend
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case config.EmbeddingProviderGemini:
		if cfg.APIKey == "" {
			log.Println("Warning: GEMINI_API_KEY not set")
		}
		client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Gemini: %w", err)
		}
		model := cfg.Model
		if model == "" || model == ollamaDefaultModel {
			model = geminiDefaultModel
		}
		log.Printf("Gemini embedder initialized (%s)", model)
		return NewGeminiEmbedder(client, model, cfg.Dimensions), nil

	case config.EmbeddingProviderOllama:
		model := cfg.Model
		if model == "" {
			model = ollamaDefaultModel
		}
		embedder, err := NewOllamaEmbedder(cfg.BaseURL, model, nil)
		if err != nil {
			return nil, err
		}
		log.Printf("Ollama embedder initialized (%s at %s)", model, cfg.BaseURL)
		return embedder, nil

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalidConfig, cfg.Provider)
	}
}

// OpenLawChunkStore opens the configured index backend
func OpenLawChunkStore(ctx context.Context, cfg config.IndexConfig, dimensions int) (LawChunkStore, error) {
	switch cfg.Driver {
	case config.IndexDriverSQLite:
		store, err := repository.NewSQLiteLawChunkRepository(cfg.SQLitePath, cfg.Collection)
		if err != nil {
			return nil, err
		}
		log.Printf("Law index opened at %s (collection %s)", cfg.SQLitePath, cfg.Collection)
		return store, nil

	case config.IndexDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Println("Postgres connection established with pgvector support")
		return &pooledLawChunkStore{
			LawChunkRepository: repository.NewLawChunkRepository(pool, cfg.Collection),
			pool:               pool,
		}, nil

	case config.IndexDriverQdrant:
		return repository.NewQdrantLawChunkRepository(ctx, cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, dimensions)

	default:
		return nil, fmt.Errorf("%w: unknown index driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// pooledLawChunkStore owns the pool behind a pgvector repository
type pooledLawChunkStore struct {
	*repository.LawChunkRepository
	pool *pgxpool.Pool
}

func (s *pooledLawChunkStore) Close() error {
	s.pool.Close()
	return nil
}
