package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	router := gin.New()
	router.Use(Logger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))

	entries := logs.FilterMessage("HTTP request").All()
	assert.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/ok", fields["path"])
	assert.Equal(t, "x=1", fields["query"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS(NewOriginPolicy([]string{"http://localhost:5173/"})))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(method, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/x", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("no origin", func(t *testing.T) {
		w := request(http.MethodGet, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed origin is echoed", func(t *testing.T) {
		w := request(http.MethodOptions, "http://localhost:5173")
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("same host origin", func(t *testing.T) {
		// httptest requests target example.com
		w := request(http.MethodGet, "http://example.com")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign preflight is rejected", func(t *testing.T) {
		w := request(http.MethodOptions, "https://evil.test")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign simple request is rejected", func(t *testing.T) {
		w := request(http.MethodPost, "https://evil.test")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotEqual(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestOriginPolicy_DefaultAllowsNoForeignOrigin(t *testing.T) {
	policy := NewOriginPolicy(nil)

	req := httptest.NewRequest(http.MethodGet, "http://localhost:8787/health", nil)
	assert.True(t, policy.Allowed(req))

	req.Header.Set("Origin", "http://localhost:8787")
	assert.True(t, policy.Allowed(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.False(t, policy.Allowed(req))

	req.Header.Set("Origin", "null")
	assert.False(t, policy.Allowed(req))
}
