package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lawcite-backend/models"
	"lawcite-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLawTools struct {
	query string
	lawID string
	mst   string
}

func (s *stubLawTools) Search(ctx context.Context, query string) *service.SearchOutcome {
	s.query = query
	return &service.SearchOutcome{
		State: service.SearchStateSufficient,
		Label: service.LabelLocal,
		Results: []models.ScoredLawChunk{{
			Chunk: models.LawChunk{
				Text:     "담보권은 등기로 설정한다.",
				Metadata: models.ChunkMetadata{Type: models.DocumentTypeLawArticle, LawID: "009999", LawName: "담보법", Jo: "3"},
			},
			Distance: 12.5,
		}},
	}
}

func (s *stubLawTools) SearchLawByQuery(ctx context.Context, query string) string {
	s.query = query
	return "[근거법령 1] 담보법 제3조\n담보권은 등기로 설정한다."
}

func (s *stubLawTools) LoadLawByID(ctx context.Context, lawID, mst string) string {
	s.lawID, s.mst = lawID, mst
	return service.MsgLoadNotFound
}

func newTestRouter(tools LawTools) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewLawHandler(tools).RegisterRoutes(r)
	return r
}

func doJSON(r http.Handler, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestSearchLawByQueryHandler(t *testing.T) {
	tools := &stubLawTools{}
	r := newTestRouter(tools)

	w, resp := doJSON(r, "/api/tools/search_law_by_query", `{"query": "담보 설정"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "[근거법령 1] 담보법 제3조\n담보권은 등기로 설정한다.", resp["data"].(map[string]any)["result"])
	assert.Equal(t, "담보 설정", tools.query)

	w, resp = doJSON(r, "/api/tools/search_law_by_query", `{"query": "  "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "INVALID_REQUEST", resp["error"].(map[string]any)["code"])
}

func TestLoadLawByIDHandler(t *testing.T) {
	tools := &stubLawTools{}
	r := newTestRouter(tools)

	w, resp := doJSON(r, "/api/tools/load_law_by_id", `{"mst": "248613"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.MsgLoadNotFound, resp["data"].(map[string]any)["result"])
	assert.Equal(t, "", tools.lawID)
	assert.Equal(t, "248613", tools.mst)

	w, _ = doJSON(r, "/api/tools/load_law_by_id", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(r, "/api/tools/load_law_by_id", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchHandler(t *testing.T) {
	tools := &stubLawTools{}
	r := newTestRouter(tools)

	w, resp := doJSON(r, "/api/laws/search", `{"query": " 담보 "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "담보", tools.query)

	data := resp["data"].(map[string]any)
	assert.Equal(t, "sufficient", data["state"])
	assert.Equal(t, "근거법령", data["label"])

	results := data["results"].([]any)
	require.Len(t, results, 1)
	hit := results[0].(map[string]any)
	assert.Equal(t, "담보법 제3조", hit["citation"])
	assert.Equal(t, "009999", hit["law_id"])
	assert.Equal(t, 12.5, hit["distance"])
}
