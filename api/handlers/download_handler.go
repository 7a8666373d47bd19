package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/app"
	"github.com/yourusername/ytdesk/internal/domain"
)

// DownloadHandler handles download-related HTTP requests
type DownloadHandler struct {
	downloadMgr *app.DownloadManager
	logger      *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(downloadMgr *app.DownloadManager, logger *zap.Logger) *DownloadHandler {
	return &DownloadHandler{
		downloadMgr: downloadMgr,
		logger:      logger,
	}
}

// StartDownloadRequest represents a request to start a download
type StartDownloadRequest struct {
	URL         string               `json:"url" binding:"required"`
	Title       string               `json:"title,omitempty"`
	Video       domain.StreamFormat  `json:"video"`
	Audio       *domain.StreamFormat `json:"audio,omitempty"`
	OutputDir   string               `json:"output_dir,omitempty"`
	CookiesPath string               `json:"cookies_path,omitempty"`
}

// StartDownloadResponse acknowledges a started download
type StartDownloadResponse struct {
	Started bool   `json:"started"`
	ID      string `json:"id"`
}

// StartDownload handles POST /api/v1/downloads
func (h *DownloadHandler) StartDownload(c *gin.Context) {
	var req StartDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Kind: "invalid_request"})
		return
	}

	active, err := h.downloadMgr.StartDownload(c.Request.Context(), domain.DownloadRequest{
		URL:         req.URL,
		Title:       req.Title,
		Video:       req.Video,
		Audio:       req.Audio,
		OutputDir:   req.OutputDir,
		CookiesPath: req.CookiesPath,
	})
	if err != nil {
		h.logger.Warn("Failed to start download", zap.String("url", req.URL), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, StartDownloadResponse{Started: true, ID: active.ID()})
}

// GetDownload handles GET /api/v1/downloads/:id
func (h *DownloadHandler) GetDownload(c *gin.Context) {
	record, err := h.downloadMgr.GetRecord(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, record)
}

// CancelDownload handles POST /api/v1/downloads/:id/cancel
func (h *DownloadHandler) CancelDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.CancelDownload(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download cancelled", "id": id})
}

// ListDownloads handles GET /api/v1/downloads
func (h *DownloadHandler) ListDownloads(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Kind: "invalid_request"})
			return
		}
		limit = n
	}

	records, err := h.downloadMgr.ListHistory(limit)
	if err != nil {
		h.logger.Error("Failed to list downloads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"downloads": records,
		"count":     len(records),
	})
}

// GetStats handles GET /api/v1/downloads/stats
func (h *DownloadHandler) GetStats(c *gin.Context) {
	stats, err := h.downloadMgr.GetStats()
	if err != nil {
		h.logger.Error("Failed to get stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: "history"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// DeleteDownload handles DELETE /api/v1/downloads/:id
func (h *DownloadHandler) DeleteDownload(c *gin.Context) {
	id := c.Param("id")

	if err := h.downloadMgr.DeleteRecord(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "download deleted", "id": id})
}
