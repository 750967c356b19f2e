package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"lawcite-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// undefinedTable is the PostgreSQL error code for a missing relation
const undefinedTable = "42P01"

// LawChunkRepository handles pgvector operations for law chunks of one collection
type LawChunkRepository struct {
	db         *pgxpool.Pool
	collection string
}

// NewLawChunkRepository creates a new law chunk repository
func NewLawChunkRepository(db *pgxpool.Pool, collection string) *LawChunkRepository {
	return &LawChunkRepository{db: db, collection: collection}
}

// InsertChunks writes chunks in one batch
func (r *LawChunkRepository) InsertChunks(ctx context.Context, chunks []models.LawChunk) error {
	query := `
		INSERT INTO law_chunks (
			id, collection, law_id, chunk_index, chunk_text, metadata, embedding, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		batch.Queue(query,
			c.ID,
			r.collection,
			c.Metadata.LawID,
			c.ChunkIndex,
			c.Text,
			metadata,
			pgvector.NewVector(c.Embedding),
			c.CreatedAt,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert law chunks: %w", err)
	}
	return nil
}

// Search returns the k nearest chunks by squared Euclidean distance (pgvector <-> squared).
// A missing table searches empty.
func (r *LawChunkRepository) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error) {
	query := `
		SELECT
			id,
			chunk_index,
			chunk_text,
			metadata,
			created_at,
			(embedding <-> $2) ^ 2 AS distance
		FROM law_chunks
		WHERE collection = $1
		ORDER BY embedding <-> $2
		LIMIT $3`

	rows, err := r.db.Query(ctx, query, r.collection, pgvector.NewVector(embedding), k)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query law chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredLawChunk
	for rows.Next() {
		var (
			result   models.ScoredLawChunk
			metadata []byte
		)
		err := rows.Scan(
			&result.Chunk.ID,
			&result.Chunk.ChunkIndex,
			&result.Chunk.Text,
			&metadata,
			&result.Chunk.CreatedAt,
			&result.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan law chunk: %w", err)
		}
		if err := json.Unmarshal(metadata, &result.Chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error iterating law chunks: %w", err)
	}

	return results, nil
}

// CountByLawID returns the number of rows stored for a law. A missing table counts zero.
func (r *LawChunkRepository) CountByLawID(ctx context.Context, lawID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM law_chunks WHERE collection = $1 AND law_id = $2`,
		r.collection, lawID,
	).Scan(&n)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count law chunks: %w", err)
	}
	return n, nil
}

// Close is a no-op; the pool is owned by the caller
func (r *LawChunkRepository) Close() error {
	return nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
