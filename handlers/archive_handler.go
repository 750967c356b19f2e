package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"lawcite-backend/storage"

	"github.com/gin-gonic/gin"
)

// ArchiveHandler serves archived raw law payloads
type ArchiveHandler struct {
	storage storage.Storage
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(storage storage.Storage) *ArchiveHandler {
	return &ArchiveHandler{storage: storage}
}

// RegisterRoutes mounts the archive routes on r
func (h *ArchiveHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/archive/*key", h.GetPayload)
}

// GetPayload handles GET /api/archive/laws/{law_id}/{digest}.json
func (h *ArchiveHandler) GetPayload(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !strings.HasPrefix(key, "laws/") || strings.Contains(key, "..") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_KEY",
				"message": "Invalid archive key",
			},
		})
		return
	}

	rc, err := h.storage.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Archived payload not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "ARCHIVE_READ_FAILED",
				"message": err.Error(),
			},
		})
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		log.Printf("Warning: Failed to stream archived payload %s: %v", key, err)
	}
}
