package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"lawcite-backend/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	drop := flag.Bool("drop", false, "drop the existing law_chunks table first")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Index.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required to create the pgvector schema")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Index.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Enable pgvector extension
	_, err = pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		log.Printf("Warning: Failed to create pgvector extension: %v", err)
	} else {
		log.Println("✓ pgvector extension enabled")
	}

	if *drop {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS law_chunks CASCADE"); err != nil {
			log.Fatalf("Failed to drop table: %v", err)
		}
		log.Println("✓ Dropped existing law_chunks table (if any)")
	}

	schemaSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS law_chunks (
    id UUID PRIMARY KEY,

    -- collection name, one logical index per value
    collection VARCHAR(255) NOT NULL,

    -- statute identification
    law_id VARCHAR(64) NOT NULL,
    chunk_index INTEGER NOT NULL,

    -- content
    chunk_text TEXT NOT NULL,

    -- type, law_name, article_title, article_number, jo, hang, ho
    metadata JSONB NOT NULL DEFAULT '{}'::jsonb,

    embedding vector(%d) NOT NULL,

    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, cfg.Embedding.Dimensions)

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		log.Fatalf("Failed to create law_chunks table: %v", err)
	}
	log.Println("✓ Created law_chunks table")

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Vector distance search (HNSW, L2)",
			sql: `CREATE INDEX IF NOT EXISTS idx_law_chunks_embedding_hnsw ON law_chunks
USING hnsw (embedding vector_l2_ops)
WITH (m = 16, ef_construction = 64);`,
		},
		{
			name: "Collection and law filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_law_chunks_collection_law ON law_chunks(collection, law_id);",
		},
		{
			name: "Metadata JSONB filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_law_chunks_metadata_gin ON law_chunks USING gin (metadata);",
		},
	}

	for _, idx := range indexes {
		if _, err := pool.Exec(ctx, idx.sql); err != nil {
			log.Printf("Warning: Failed to create index %s: %v", idx.name, err)
		} else {
			log.Printf("✓ Created index: %s", idx.name)
		}
	}

	fmt.Println("\n✅ Database schema created successfully!")
	fmt.Println("   Table: law_chunks")
	fmt.Printf("   Embedding dimensions: %d\n", cfg.Embedding.Dimensions)
}
