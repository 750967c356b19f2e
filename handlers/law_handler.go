package handlers

import (
	"context"
	"net/http"
	"strings"

	"lawcite-backend/service"

	"github.com/gin-gonic/gin"
)

// LawTools is the retrieval surface exposed over HTTP
type LawTools interface {
	Search(ctx context.Context, query string) *service.SearchOutcome
	SearchLawByQuery(ctx context.Context, query string) string
	LoadLawByID(ctx context.Context, lawID, mst string) string
}

// LawHandler handles HTTP requests for the statute retrieval tools
type LawHandler struct {
	laws LawTools
}

// NewLawHandler creates a new law handler
func NewLawHandler(laws LawTools) *LawHandler {
	return &LawHandler{laws: laws}
}

// RegisterRoutes mounts the law routes on r
func (h *LawHandler) RegisterRoutes(r gin.IRouter) {
	tools := r.Group("/api/tools")
	tools.POST("/search_law_by_query", h.SearchLawByQuery)
	tools.POST("/load_law_by_id", h.LoadLawByID)

	r.POST("/api/laws/search", h.Search)
}

// SearchLawByQueryRequest represents the request body for the search tool
type SearchLawByQueryRequest struct {
	Query string `json:"query" binding:"required"`
}

// LoadLawByIDRequest represents the request body for the load tool; one of the fields is required
type LoadLawByIDRequest struct {
	LawID string `json:"law_id"`
	MST   string `json:"mst"`
}

// SearchResult is one hit in the structured search response
type SearchResult struct {
	Citation string  `json:"citation"`
	LawID    string  `json:"law_id"`
	LawName  string  `json:"law_name"`
	Type     string  `json:"type"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// SearchLawByQuery handles POST /api/tools/search_law_by_query
func (h *LawHandler) SearchLawByQuery(c *gin.Context) {
	var req SearchLawByQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		invalidRequest(c, "query is required")
		return
	}

	result := h.laws.SearchLawByQuery(c.Request.Context(), req.Query)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"result": result,
		},
	})
}

// LoadLawByID handles POST /api/tools/load_law_by_id
func (h *LawHandler) LoadLawByID(c *gin.Context) {
	var req LoadLawByIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c, err.Error())
		return
	}
	if req.LawID == "" && req.MST == "" {
		invalidRequest(c, "law_id or mst is required")
		return
	}

	result := h.laws.LoadLawByID(c.Request.Context(), req.LawID, req.MST)
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"result": result,
		},
	})
}

// Search handles POST /api/laws/search and returns the outcome with scores
func (h *LawHandler) Search(c *gin.Context) {
	var req SearchLawByQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		invalidRequest(c, "query is required")
		return
	}

	outcome := h.laws.Search(c.Request.Context(), strings.TrimSpace(req.Query))

	results := make([]SearchResult, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		meta := r.Chunk.Metadata
		name := meta.LawName
		if name == "" {
			name = "Unknown"
		}
		results = append(results, SearchResult{
			Citation: meta.Reference().Format(name),
			LawID:    meta.LawID,
			LawName:  meta.LawName,
			Type:     string(meta.Type),
			Text:     r.Chunk.Text,
			Distance: r.Distance,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"state":   outcome.State,
			"label":   outcome.Label,
			"results": results,
		},
	})
}

func invalidRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INVALID_REQUEST",
			"message": message,
		},
	})
}
