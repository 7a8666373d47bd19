package domain

import "context"

// MetadataFetcher fetches the format catalog of a URL
type MetadataFetcher interface {
	// GetVideoInfo runs the tool in dump mode; cookiesPath may be empty
	GetVideoInfo(ctx context.Context, url, cookiesPath string) (*VideoMetadata, error)
}

// Session is a running download as seen by its caller
type Session interface {
	ID() string
	Events() <-chan DownloadEvent
	State() SessionState
	Progress() float64
	Cancel()
	Wait() error
}

// CookieReport summarizes a Netscape cookie file
type CookieReport struct {
	Path         string   `json:"path"`
	Total        int      `json:"total"`
	Expired      int      `json:"expired"`
	SessionOnly  int      `json:"session_only"`
	Domains      []string `json:"domains"`
	EarliestUnix int64    `json:"earliest_expiry,omitempty"`
}

// AllExpired reports whether the file holds cookies and every one of them has expired.
// Session cookies never expire on disk, so any of them makes this false.
func (r *CookieReport) AllExpired() bool {
	return r.Total > 0 && r.SessionOnly == 0 && r.Expired == r.Total
}
