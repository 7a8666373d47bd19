package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/app"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventsHandler streams download events over WebSocket
type EventsHandler struct {
	downloadMgr *app.DownloadManager
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

// NewEventsHandler creates a new events handler; checkOrigin gates the upgrade
func NewEventsHandler(downloadMgr *app.DownloadManager, checkOrigin func(r *http.Request) bool, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		downloadMgr: downloadMgr,
		upgrader:    websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:      logger,
	}
}

// StreamEvents handles GET /api/v1/downloads/:id/events.
// Each message is one JSON event; the server closes after the terminal event.
func (h *EventsHandler) StreamEvents(c *gin.Context) {
	id := c.Param("id")

	active, err := h.downloadMgr.Lookup(id)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	events, unsubscribe := active.Subscribe()
	defer unsubscribe()

	h.logger.Info("WebSocket client connected",
		zap.String("id", id),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Read messages from client so close frames and pongs are processed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Warn("Failed to send event", zap.String("id", id), zap.Error(err))
				return
			}
			if ev.IsTerminal() {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(ev.Kind)),
					time.Now().Add(writeWait))
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}
