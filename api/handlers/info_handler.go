package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdesk/internal/app"
)

// InfoHandler serves video metadata lookups
type InfoHandler struct {
	downloadMgr *app.DownloadManager
}

// NewInfoHandler creates a new info handler
func NewInfoHandler(downloadMgr *app.DownloadManager) *InfoHandler {
	return &InfoHandler{downloadMgr: downloadMgr}
}

// InfoRequest represents a metadata lookup
type InfoRequest struct {
	URL         string `json:"url" binding:"required"`
	CookiesPath string `json:"cookies_path,omitempty"`
}

// GetVideoInfo handles POST /api/v1/info
func (h *InfoHandler) GetVideoInfo(c *gin.Context) {
	var req InfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	meta, err := h.downloadMgr.GetVideoInfo(c.Request.Context(), req.URL, req.CookiesPath)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, meta)
}
