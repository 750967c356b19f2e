package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"lawcite-backend/models"
)

// runeEmbedder embeds text as a normalized bag of runes, so squared L2 distances lie in [0, 4]
type runeEmbedder struct {
	dim   int
	calls atomic.Int32
	err   error
}

func newRuneEmbedder() *runeEmbedder {
	return &runeEmbedder{dim: 64}
}

func (e *runeEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dim)
	for _, r := range text {
		v[int(r)%e.dim]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (e *runeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return e.vector(text), nil
}

func (e *runeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

// keywordEmbedder maps texts containing keyword to one unit axis and everything else to
// another, so the two groups are at squared L2 distance 2
type keywordEmbedder struct {
	keyword string
}

func (e keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(text, e.keyword) {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

// memoryStore is an in-memory LawChunkStore using squared L2
type memoryStore struct {
	mu        sync.Mutex
	rows      []models.LawChunk
	insertErr error
	searchErr error
	inserts   int
}

func (s *memoryStore) InsertChunks(ctx context.Context, chunks []models.LawChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserts++
	s.rows = append(s.rows, chunks...)
	return nil
}

func (s *memoryStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.searchErr != nil {
		return nil, s.searchErr
	}

	results := make([]models.ScoredLawChunk, 0, len(s.rows))
	for _, row := range s.rows {
		var d float64
		for i := range embedding {
			diff := float64(embedding[i] - row.Embedding[i])
			d += diff * diff
		}
		results = append(results, models.ScoredLawChunk{Chunk: row, Distance: d})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (s *memoryStore) CountByLawID(ctx context.Context, lawID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.Metadata.LawID == lawID {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Close() error { return nil }

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// fixedStore returns the same results for every search
type fixedStore struct {
	memoryStore
	results []models.ScoredLawChunk
}

func (s *fixedStore) Search(ctx context.Context, embedding []float32, k int) ([]models.ScoredLawChunk, error) {
	return s.results, nil
}

// fakeFetcher serves statutes from memory
type fakeFetcher struct {
	mu          sync.Mutex
	details     map[string]*models.LawDetail
	byMST       map[string]*models.LawDetail
	queries     []string
	detailCalls int
}

func newFakeFetcher(details ...*models.LawDetail) *fakeFetcher {
	f := &fakeFetcher{
		details: make(map[string]*models.LawDetail),
		byMST:   make(map[string]*models.LawDetail),
	}
	for _, d := range details {
		f.details[d.Statute.ID] = d
	}
	return f
}

func (f *fakeFetcher) SearchLaws(ctx context.Context, query string) []models.LawSummary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)

	var ids []string
	for id := range f.details {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.LawSummary
	for _, id := range ids {
		out = append(out, models.LawSummary{ID: id, Name: f.details[id].Statute.Name})
	}
	return out
}

func (f *fakeFetcher) GetLawByID(ctx context.Context, lawID string) (*models.LawDetail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	d, ok := f.details[lawID]
	return d, ok
}

func (f *fakeFetcher) GetLawByMST(ctx context.Context, mst string) (*models.LawDetail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	d, ok := f.byMST[mst]
	return d, ok
}

var errStoreDown = errors.New("store down")

func collateralLaw() *models.LawDetail {
	st := &models.Statute{
		ID:               "009999",
		Name:             "담보법",
		PromulgationDate: "20240101",
		EffectiveDate:    "20240701",
		Department:       "금융위원회",
		Articles: []models.Article{
			{Number: "제1조", Title: "목적", Content: "이 법은 담보권의 설정에 관한 사항을 정한다."},
			{Number: "제2조", Title: "정의", Content: "담보란 채무의 이행을 확보하기 위한 것을 말한다."},
			{Number: "제3조 제1항", Title: "담보권의 설정", Content: "담보권은 등기로 설정한다."},
		},
	}
	for i := range st.Articles {
		st.Articles[i].LawID = st.ID
	}
	return &models.LawDetail{Statute: st, Raw: []byte(`{"법령": {"법령ID": "009999"}}`)}
}
