package repository

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lawcite-backend/models"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteLawChunkRepository stores law chunks of one collection in an on-disk SQLite file.
// Search is an exact scan by squared Euclidean distance.
type SQLiteLawChunkRepository struct {
	db         *sql.DB
	collection string
}

// NewSQLiteLawChunkRepository opens (creating if needed) the index file at path
func NewSQLiteLawChunkRepository(path, collection string) (*SQLiteLawChunkRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}
	// one connection serializes writers and keeps pragmas in effect
	db.SetMaxOpenConns(1)

	r := &SQLiteLawChunkRepository{db: db, collection: collection}
	if err := r.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteLawChunkRepository) initialize() error {
	queries := []string{
		`PRAGMA journal_mode=WAL`,
		`PRAGMA busy_timeout=5000`,
		`CREATE TABLE IF NOT EXISTS law_chunks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			law_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL,
			embedding BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_law_chunks_collection_law ON law_chunks(collection, law_id)`,
	}

	for _, q := range queries {
		if _, err := r.db.Exec(q); err != nil {
			return fmt.Errorf("failed to initialize index schema: %w", err)
		}
	}
	return nil
}

// InsertChunks writes chunks in one transaction
func (r *SQLiteLawChunkRepository) InsertChunks(ctx context.Context, chunks []models.LawChunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO law_chunks (id, collection, law_id, chunk_index, text, metadata, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		if _, err := stmt.ExecContext(ctx,
			c.ID.String(),
			r.collection,
			c.Metadata.LawID,
			c.ChunkIndex,
			c.Text,
			string(metadata),
			encodeEmbedding(c.Embedding),
			createdAt.UnixNano(),
		); err != nil {
			return fmt.Errorf("failed to insert law chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit law chunks: %w", err)
	}
	return nil
}

// Search returns the k rows nearest to embedding by squared Euclidean distance
func (r *SQLiteLawChunkRepository) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chunk_index, text, metadata, embedding, created_at
		FROM law_chunks
		WHERE collection = ?`, r.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query law chunks: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredLawChunk
	mismatched := 0
	for rows.Next() {
		var (
			id        string
			chunk     models.LawChunk
			metadata  string
			blob      []byte
			createdAt int64
		)
		if err := rows.Scan(&id, &chunk.ChunkIndex, &chunk.Text, &metadata, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan law chunk: %w", err)
		}

		stored := decodeEmbedding(blob)
		if len(stored) != len(embedding) {
			mismatched++
			continue
		}

		if chunk.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("failed to parse chunk id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(metadata), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
		chunk.CreatedAt = time.Unix(0, createdAt)

		results = append(results, models.ScoredLawChunk{
			Chunk:    chunk,
			Distance: squaredL2(embedding, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating law chunks: %w", err)
	}

	if mismatched > 0 {
		log.Printf("Warning: Skipped %d chunks in %s with a different embedding dimension than %d",
			mismatched, r.collection, len(embedding))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// CountByLawID returns the number of rows stored for a law
func (r *SQLiteLawChunkRepository) CountByLawID(ctx context.Context, lawID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM law_chunks WHERE collection = ? AND law_id = ?`,
		r.collection, lawID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count law chunks: %w", err)
	}
	return n, nil
}

// Close closes the database
func (r *SQLiteLawChunkRepository) Close() error {
	return r.db.Close()
}

func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
