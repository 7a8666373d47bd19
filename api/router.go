package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/api/handlers"
	"github.com/yourusername/ytdesk/api/middleware"
	"github.com/yourusername/ytdesk/internal/app"
)

// SetupRouter sets up the HTTP router of the local API.
// allowedOrigins extends the same-host origin for browser callers.
func SetupRouter(downloadMgr *app.DownloadManager, allowedOrigins []string, log *zap.Logger) *gin.Engine {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	origins := middleware.NewOriginPolicy(allowedOrigins)

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(origins))

	healthHandler := handlers.NewHealthHandler(downloadMgr)
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	{
		infoHandler := handlers.NewInfoHandler(downloadMgr)
		v1.POST("/info", infoHandler.GetVideoInfo)

		downloadHandler := handlers.NewDownloadHandler(downloadMgr, log)
		eventsHandler := handlers.NewEventsHandler(downloadMgr, origins.Allowed, log)
		downloads := v1.Group("/downloads")
		{
			downloads.POST("", downloadHandler.StartDownload)
			downloads.GET("", downloadHandler.ListDownloads)
			downloads.GET("/stats", downloadHandler.GetStats)
			downloads.GET("/:id", downloadHandler.GetDownload)
			downloads.GET("/:id/events", eventsHandler.StreamEvents)
			downloads.POST("/:id/cancel", downloadHandler.CancelDownload)
			downloads.DELETE("/:id", downloadHandler.DeleteDownload)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, handlers.ErrorResponse{Error: "not found", Kind: "not_found"})
	})

	return router
}
