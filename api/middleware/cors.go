package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginPolicy decides which browser origins may call the local API.
// Requests without an Origin header and same-host origins are always allowed.
type OriginPolicy struct {
	allowed map[string]struct{}
}

// NewOriginPolicy builds a policy from the configured origins, e.g. "http://localhost:5173"
func NewOriginPolicy(origins []string) *OriginPolicy {
	p := &OriginPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" {
			p.allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether the request's Origin may use the API
func (p *OriginPolicy) Allowed(r *http.Request) bool {
	origin := strings.ToLower(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	host := strings.ToLower(r.Host)
	if origin == "http://"+host || origin == "https://"+host {
		return true
	}
	_, ok := p.allowed[origin]
	return ok
}

// CORS admits the desktop shell's web view and rejects other browser origins
func CORS(policy *OriginPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if !policy.Allowed(c.Request) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "origin not allowed", "kind": "forbidden"})
			return
		}

		if origin != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
