package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"lawcite-backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrIndexNotInitialized is returned when a write is attempted without a backing store
var ErrIndexNotInitialized = errors.New("law index not initialized")

// ErrMissingLawID is returned for chunks that carry no law ID and so cannot be deduplicated
var ErrMissingLawID = errors.New("law chunk has no law id")

const (
	embedBatchSize   = 32
	embedConcurrency = 4
)

// LawChunkStore persists embedded chunks of one collection and answers nearest-neighbour
// queries by squared L2 distance (smaller is closer)
type LawChunkStore interface {
	InsertChunks(ctx context.Context, chunks []models.LawChunk) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error)
	CountByLawID(ctx context.Context, lawID string) (int, error)
	Close() error
}

// LawIndex embeds and persists chunks of one collection. Writes are serialized; reads run
// concurrently.
type LawIndex struct {
	store    LawChunkStore
	embedder Embedder
	writeMu  sync.Mutex
}

// NewLawIndex creates an index over store. A nil store yields an index that searches empty
// and refuses writes.
func NewLawIndex(store LawChunkStore, embedder Embedder) *LawIndex {
	return &LawIndex{store: store, embedder: embedder}
}

// Insert embeds and stores chunks, skipping laws whose ID already has rows in the
// collection. Chunks without a law ID are rejected. It returns the number of rows written.
func (idx *LawIndex) Insert(ctx context.Context, chunks []models.LawChunk) (int, error) {
	if idx == nil || idx.store == nil || idx.embedder == nil {
		return 0, ErrIndexNotInitialized
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	pending, err := idx.dropKnownLaws(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := idx.embed(ctx, pending); err != nil {
		return 0, err
	}

	now := time.Now()
	for i := range pending {
		pending[i].ID = uuid.New()
		pending[i].CreatedAt = now
	}

	if err := idx.store.InsertChunks(ctx, pending); err != nil {
		return 0, fmt.Errorf("failed to insert law chunks: %w", err)
	}
	return len(pending), nil
}

// dropKnownLaws returns a copy of chunks without the laws already present
func (idx *LawIndex) dropKnownLaws(ctx context.Context, chunks []models.LawChunk) ([]models.LawChunk, error) {
	known := make(map[string]bool)
	pending := make([]models.LawChunk, 0, len(chunks))

	for _, chunk := range chunks {
		lawID := chunk.Metadata.LawID
		if lawID == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingLawID, chunk.Metadata.LawName)
		}
		skip, seen := known[lawID]
		if !seen {
			n, err := idx.store.CountByLawID(ctx, lawID)
			if err != nil {
				return nil, fmt.Errorf("failed to check law %s: %w", lawID, err)
			}
			skip = n > 0
			if skip {
				log.Printf("Law %s already indexed (%d chunks), skipping", lawID, n)
			}
			known[lawID] = skip
		}
		if !skip {
			pending = append(pending, chunk)
		}
	}
	return pending, nil
}

// embed fills chunk embeddings in fixed-size batches with bounded concurrency
func (idx *LawIndex) embed(ctx context.Context, chunks []models.LawChunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := min(start+embedBatchSize, len(chunks))
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}

			vectors, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailed, len(batch), len(vectors))
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to embed law chunks: %w", err)
	}
	return nil
}

// Search returns up to k nearest chunks, ascending by distance. A missing store searches empty.
func (idx *LawIndex) Search(ctx context.Context, query string, k int) ([]models.ScoredLawChunk, error) {
	if idx == nil || idx.store == nil || idx.embedder == nil || k <= 0 {
		return nil, nil
	}

	embedding, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := idx.store.Search(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search law chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Close releases the backing store
func (idx *LawIndex) Close() error {
	if idx == nil || idx.store == nil {
		return nil
	}
	return idx.store.Close()
}
