package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"

	"lawcite-backend/config"
	"lawcite-backend/models"
	"lawcite-backend/storage"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// LabelLocal marks results answered from the local index
	LabelLocal = "근거법령"
	// LabelBackfilled marks results found after fetching a new statute
	LabelBackfilled = "새로 추가된 근거법령"
	// LabelStale marks the original local results returned after a failed fetch
	LabelStale = "기존 근거법령"

	MsgSearchNotFound = "관련 법령 정보를 찾을 수 없습니다."
	MsgLoadNotFound   = "법령 정보를 찾을 수 없습니다."

	msgStored        = "법령 정보가 벡터스토어에 저장되었습니다."
	msgAlreadyStored = "법령 정보가 이미 벡터스토어에 저장되어 있습니다."
	msgStoreFailed   = "법령 정보를 벡터스토어에 저장하지 못했습니다."

	cacheKeyRunes = 50
)

// SearchState is the terminal state of a search run
type SearchState string

const (
	SearchStateSufficient SearchState = "sufficient"
	SearchStateBackfilled SearchState = "backfilled"
	SearchStateStale      SearchState = "stale"
	SearchStateEmpty      SearchState = "empty"
)

// SearchOutcome is the result of one search run
type SearchOutcome struct {
	State   SearchState
	Label   string
	Results []models.ScoredLawChunk
}

// LawFetcher retrieves statutes from the remote source. Implementations fail closed.
type LawFetcher interface {
	SearchLaws(ctx context.Context, query string) []models.LawSummary
	GetLawByID(ctx context.Context, lawID string) (*models.LawDetail, bool)
	GetLawByMST(ctx context.Context, mst string) (*models.LawDetail, bool)
}

// LawService answers statute queries from the local index, fetching and indexing statutes
// on demand when local results are not good enough
type LawService struct {
	index    *LawIndex
	fetcher  LawFetcher
	archive  storage.Storage
	cache    *lru.Cache[string, *models.LawDetail]
	splitter *TextSplitter
	cfg      config.LawConfig
}

// LawServiceOption is a functional option for LawService
type LawServiceOption func(*LawService)

// LawWithIndex sets the vector index
func LawWithIndex(index *LawIndex) LawServiceOption {
	return func(s *LawService) {
		s.index = index
	}
}

// LawWithFetcher sets the remote statute fetcher
func LawWithFetcher(fetcher LawFetcher) LawServiceOption {
	return func(s *LawService) {
		s.fetcher = fetcher
	}
}

// LawWithArchive sets the raw payload archive
func LawWithArchive(archive storage.Storage) LawServiceOption {
	return func(s *LawService) {
		s.archive = archive
	}
}

// LawWithConfig sets the engine options
func LawWithConfig(cfg config.LawConfig) LawServiceOption {
	return func(s *LawService) {
		s.cfg = cfg
	}
}

// LawWithDetailCache sets the query → fetched statute cache
func LawWithDetailCache(cache *lru.Cache[string, *models.LawDetail]) LawServiceOption {
	return func(s *LawService) {
		s.cache = cache
	}
}

// NewLawService creates a new law service
func NewLawService(opts ...LawServiceOption) (*LawService, error) {
	s := &LawService{cfg: config.DefaultLawConfig()}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	splitter, err := NewTextSplitter(s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	s.splitter = splitter

	if s.cache == nil && s.cfg.DetailCacheSize > 0 {
		cache, err := lru.New[string, *models.LawDetail](s.cfg.DetailCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create detail cache: %w", err)
		}
		s.cache = cache
	}

	return s, nil
}

// Search runs local search, evaluation and, when needed, a remote fetch with backfill.
// It never fails; degraded paths end in the stale or empty state.
func (s *LawService) Search(ctx context.Context, query string) *SearchOutcome {
	log.Printf("Law search: %q", query)

	stale, err := s.index.Search(ctx, query, s.cfg.SearchK)
	if err != nil {
		log.Printf("Warning: Local law search failed: %v. Continuing with empty results.", err)
		stale = nil
	}

	best, worst, relevant := scoreSummary(stale, s.cfg.MaxDistanceScore)
	log.Printf("Local results: %d (%d within distance %.3f, best %.3f, worst %.3f)",
		len(stale), relevant, s.cfg.MaxDistanceScore, best, worst)

	if IsSufficient(stale, s.cfg.SearchThreshold, s.cfg.MaxDistanceScore) {
		return &SearchOutcome{State: SearchStateSufficient, Label: LabelLocal, Results: limit(stale, s.cfg.ResultLimit)}
	}

	log.Printf("Local results insufficient, fetching from law API")
	if s.backfillFromQuery(ctx, query) {
		fresh, err := s.index.Search(ctx, query, s.cfg.SearchK)
		if err != nil {
			log.Printf("Warning: Law search after backfill failed: %v", err)
		} else if len(fresh) > 0 {
			return &SearchOutcome{State: SearchStateBackfilled, Label: LabelBackfilled, Results: limit(fresh, s.cfg.ResultLimit)}
		}
	}

	if len(stale) > 0 {
		log.Printf("Warning: No new statute added, returning %d existing results", min(len(stale), s.cfg.StaleLimit))
		return &SearchOutcome{State: SearchStateStale, Label: LabelStale, Results: limit(stale, s.cfg.StaleLimit)}
	}

	return &SearchOutcome{State: SearchStateEmpty}
}

// SearchLaws runs Search and formats the outcome for the agent
func (s *LawService) SearchLaws(ctx context.Context, query string) string {
	outcome := s.Search(ctx, query)
	if outcome.State == SearchStateEmpty || len(outcome.Results) == 0 {
		return MsgSearchNotFound
	}
	return formatResults(outcome.Results, outcome.Label, s.cfg.ContentPreview, s.cfg.ShowScores)
}

// SearchLawByQuery is the agent tool entry point; only the first keyword of the query is used
func (s *LawService) SearchLawByQuery(ctx context.Context, query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return MsgSearchNotFound
	}
	return s.SearchLaws(ctx, fields[0])
}

// backfillFromQuery fetches the first statute matching query and indexes it.
// It reports whether any new rows were written.
func (s *LawService) backfillFromQuery(ctx context.Context, query string) bool {
	detail, ok := s.fetchByQuery(ctx, query)
	if !ok {
		log.Printf("Warning: No statute found for %q", query)
		return false
	}

	inserted, err := s.backfill(ctx, detail)
	if err != nil {
		log.Printf("Warning: Failed to index statute %s: %v", detail.Statute.ID, err)
		return false
	}
	if inserted == 0 {
		log.Printf("Statute %s is already indexed, nothing new to search", detail.Statute.ID)
		return false
	}
	return true
}

func (s *LawService) fetchByQuery(ctx context.Context, query string) (*models.LawDetail, bool) {
	key := cacheKey(query)
	if s.cache != nil {
		if detail, ok := s.cache.Get(key); ok {
			log.Printf("Detail cache hit for %q", key)
			return detail, true
		}
	}

	if s.fetcher == nil {
		return nil, false
	}

	candidates := s.fetcher.SearchLaws(ctx, query)
	if len(candidates) == 0 || candidates[0].ID == "" {
		return nil, false
	}

	detail, ok := s.fetcher.GetLawByID(ctx, candidates[0].ID)
	if !ok {
		return nil, false
	}

	s.archivePayload(ctx, detail)
	if s.cache != nil {
		s.cache.Add(key, detail)
	}
	return detail, true
}

// LoadLawByID fetches a statute by law ID, or by MST when no ID is given, indexes it and
// returns a summary. Every path ends in a message for the agent.
func (s *LawService) LoadLawByID(ctx context.Context, lawID, mst string) string {
	if s.fetcher == nil {
		return MsgLoadNotFound
	}

	var detail *models.LawDetail
	var ok bool
	switch {
	case lawID != "":
		detail, ok = s.fetcher.GetLawByID(ctx, lawID)
	case mst != "":
		detail, ok = s.fetcher.GetLawByMST(ctx, mst)
	}
	if !ok || detail == nil || detail.Statute == nil {
		return MsgLoadNotFound
	}

	s.archivePayload(ctx, detail)

	storeLine := msgStored
	inserted, err := s.backfill(ctx, detail)
	switch {
	case err != nil:
		log.Printf("Warning: Failed to index statute %s: %v", detail.Statute.ID, err)
		storeLine = msgStoreFailed
	case inserted == 0:
		storeLine = msgAlreadyStored
	}

	st := detail.Statute
	return formatBasicInfo(st) +
		fmt.Sprintf("\n조문 수: %d개", len(st.Articles)) +
		"\n" + storeLine
}

// backfill builds, splits and indexes a fetched statute, returning rows written
func (s *LawService) backfill(ctx context.Context, detail *models.LawDetail) (int, error) {
	docs := BuildLawDocuments(detail.Statute, s.cfg.MaxArticles)
	chunks := s.splitter.SplitDocuments(docs)
	if len(chunks) == 0 {
		return 0, nil
	}

	inserted, err := s.index.Insert(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		log.Printf("Indexed %d chunks for %s (%s)", inserted, detail.Statute.Name, detail.Statute.ID)
	}
	return inserted, nil
}

// archivePayload stores the raw payload, best effort
func (s *LawService) archivePayload(ctx context.Context, detail *models.LawDetail) {
	if s.archive == nil || len(detail.Raw) == 0 {
		return
	}
	key := storage.PayloadKey(detail.Statute.ID, detail.Raw)
	if err := s.archive.Put(ctx, key, bytes.NewReader(detail.Raw)); err != nil {
		log.Printf("Warning: Failed to archive law payload %s: %v", key, err)
	}
}

// Close releases the index
func (s *LawService) Close() error {
	return s.index.Close()
}

func cacheKey(query string) string {
	runes := []rune(query)
	if len(runes) > cacheKeyRunes {
		runes = runes[:cacheKeyRunes]
	}
	return string(runes)
}

func limit(results []models.ScoredLawChunk, n int) []models.ScoredLawChunk {
	if len(results) > n {
		return results[:n]
	}
	return results
}
