package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdesk/internal/app"
)

// Version is reported by the health endpoint
var Version = "dev"

// HealthHandler handles health check requests
type HealthHandler struct {
	downloadMgr *app.DownloadManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(downloadMgr *app.DownloadManager) *HealthHandler {
	return &HealthHandler{downloadMgr: downloadMgr}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status         string `json:"status"`
	Version        string `json:"version"`
	ActiveDownload string `json:"active_download,omitempty"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	if active := h.downloadMgr.GetActive(); active != nil {
		response.ActiveDownload = active.ID()
	}

	c.JSON(http.StatusOK, response)
}
