package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"lawcite-backend/models"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantLawChunkRepository stores law chunks as points of a Qdrant collection using
// Euclidean distance
type QdrantLawChunkRepository struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantLawChunkRepository connects to Qdrant over gRPC and creates the collection
// when it does not exist
func NewQdrantLawChunkRepository(ctx context.Context, host string, port int, collection string, dimensions int) (*QdrantLawChunkRepository, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	r := &QdrantLawChunkRepository{client: client, collection: collection}
	if err := r.ensureCollection(ctx, dimensions); err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

func (r *QdrantLawChunkRepository) ensureCollection(ctx context.Context, dimensions int) error {
	exists, err := r.client.CollectionExists(ctx, r.collection)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}
	if exists {
		return nil
	}

	err = r.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: r.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = r.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: r.collection,
		FieldName:      "law_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		log.Printf("Warning: Failed to create law_id index on %s: %v", r.collection, err)
	}

	log.Printf("Qdrant collection '%s' created successfully", r.collection)
	return nil
}

// InsertChunks upserts chunks as points keyed by chunk ID
func (r *QdrantLawChunkRepository) InsertChunks(ctx context.Context, chunks []models.LawChunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID.String()),
			Vectors: qdrant.NewVectors(c.Embedding...),
			Payload: qdrant.NewValueMap(chunkPayload(c)),
		})
	}

	_, err := r.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: r.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert law chunks: %w", err)
	}
	return nil
}

// Search returns the k nearest points. Qdrant scores Euclid collections by plain distance,
// which is squared to match the other backends.
func (r *QdrantLawChunkRepository) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error) {
	points, err := r.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: r.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search law chunks: %w", err)
	}

	results := make([]models.ScoredLawChunk, 0, len(points))
	for _, p := range points {
		chunk, err := chunkFromPayload(p.GetId().GetUuid(), p.GetPayload())
		if err != nil {
			log.Printf("Warning: Skipping point with unreadable id in %s: %v", r.collection, err)
			continue
		}
		results = append(results, models.ScoredLawChunk{Chunk: chunk, Distance: squaredDistance(p.GetScore())})
	}
	return results, nil
}

// CountByLawID counts points whose payload law_id matches
func (r *QdrantLawChunkRepository) CountByLawID(ctx context.Context, lawID string) (int, error) {
	n, err := r.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: r.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("law_id", lawID)},
		},
		Exact: qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count law chunks: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection
func (r *QdrantLawChunkRepository) Close() error {
	return r.client.Close()
}

func chunkPayload(c models.LawChunk) map[string]any {
	m := c.Metadata
	return map[string]any{
		"text":           c.Text,
		"chunk_index":    int64(c.ChunkIndex),
		"created_at":     c.CreatedAt.UnixNano(),
		"type":           string(m.Type),
		"law_id":         m.LawID,
		"law_name":       m.LawName,
		"article_title":  m.ArticleTitle,
		"article_number": m.ArticleNumber,
		"jo":             m.Jo,
		"hang":           m.Hang,
		"ho":             m.Ho,
	}
}

func chunkFromPayload(id string, payload map[string]*qdrant.Value) (models.LawChunk, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return models.LawChunk{}, err
	}

	str := func(key string) string { return payload[key].GetStringValue() }
	return models.LawChunk{
		ID:         parsed,
		Text:       str("text"),
		ChunkIndex: int(payload["chunk_index"].GetIntegerValue()),
		CreatedAt:  time.Unix(0, payload["created_at"].GetIntegerValue()),
		Metadata: models.ChunkMetadata{
			Type:          models.DocumentType(str("type")),
			LawID:         str("law_id"),
			LawName:       str("law_name"),
			ArticleTitle:  str("article_title"),
			ArticleNumber: str("article_number"),
			Jo:            str("jo"),
			Hang:          str("hang"),
			Ho:            str("ho"),
		},
	}, nil
}

func squaredDistance(score float32) float64 {
	d := float64(score)
	return d * d
}
