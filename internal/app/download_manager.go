package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/domain"
	"github.com/yourusername/ytdesk/internal/infrastructure"
	"github.com/yourusername/ytdesk/pkg/logger"
)

// Notifier receives download lifecycle notifications
type Notifier interface {
	NotifyDownloadStarted(title string)
	NotifyDownloadCompleted(title string)
	NotifyDownloadFailed(title string, err error)
}

type nopNotifier struct{}

func (nopNotifier) NotifyDownloadStarted(string) {}
func (nopNotifier) NotifyDownloadCompleted(string) {}
func (nopNotifier) NotifyDownloadFailed(string, error) {}

// DownloadManager is the entry point outer surfaces use to fetch metadata and
// run downloads. At most one download is active at a time.
type DownloadManager struct {
	fetcher     domain.MetadataFetcher
	sessions    *infrastructure.SessionManager
	repo        domain.DownloadRepository
	notifier    Notifier
	config      *domain.DownloadConfig
	eventBuffer int
	eventLogger *logger.MultiLogger
	logger      *zap.Logger
	now         func() time.Time

	mu     sync.Mutex
	active *ActiveDownload
	last   *ActiveDownload
}

// DownloadManagerOptions groups the manager's collaborators.
// Repo, Notifier and EventLogger are optional.
type DownloadManagerOptions struct {
	Fetcher     domain.MetadataFetcher
	Sessions    *infrastructure.SessionManager
	Repo        domain.DownloadRepository
	Notifier    Notifier
	Config      *domain.DownloadConfig
	EventBuffer int
	EventLogger *logger.MultiLogger
	Logger      *zap.Logger
}

// NewDownloadManager creates a new download manager
func NewDownloadManager(opts DownloadManagerOptions) *DownloadManager {
	dm := &DownloadManager{
		fetcher:     opts.Fetcher,
		sessions:    opts.Sessions,
		repo:        opts.Repo,
		notifier:    opts.Notifier,
		config:      opts.Config,
		eventBuffer: opts.EventBuffer,
		eventLogger: opts.EventLogger,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if dm.repo == nil {
		dm.repo = infrastructure.NopDownloadRepository{}
	}
	if dm.notifier == nil {
		dm.notifier = nopNotifier{}
	}
	if dm.config == nil {
		dm.config = &domain.DownloadConfig{}
	}
	if dm.eventBuffer <= 0 {
		dm.eventBuffer = 64
	}
	if dm.logger == nil {
		dm.logger = zap.NewNop()
	}
	return dm
}

// GetVideoInfo fetches the format catalog for url.
// An empty cookiesPath falls back to the configured cookie file when it exists.
func (dm *DownloadManager) GetVideoInfo(ctx context.Context, url, cookiesPath string) (*domain.VideoMetadata, error) {
	if err := domain.ValidateURL(url); err != nil {
		return nil, err
	}
	cookiesPath = dm.resolveCookies(cookiesPath)
	dm.warnExpiredCookies(cookiesPath)

	dm.logger.Info("Fetching video info", zap.String("url", url))

	meta, err := dm.fetcher.GetVideoInfo(ctx, url, cookiesPath)
	if err != nil {
		dm.logger.Warn("Failed to fetch video info", zap.String("url", url), zap.Error(err))
		if dm.eventLogger != nil {
			dm.eventLogger.LogAppError("Failed to fetch video info",
				zap.String("url", url),
				zap.Error(err))
		}
		return nil, err
	}

	dm.logger.Info("Fetched video info",
		zap.String("url", url),
		zap.String("title", meta.Title),
		zap.Int("video_formats", len(meta.VideoFormats)),
		zap.Int("audio_formats", len(meta.AudioFormats)))

	return meta, nil
}

// StartDownload launches a download and returns at once.
// It fails with domain.ErrSessionActive while another download runs.
// The download outlives ctx's cancellation; use CancelDownload to stop it.
func (dm *DownloadManager) StartDownload(ctx context.Context, req domain.DownloadRequest) (*ActiveDownload, error) {
	if req.OutputDir == "" {
		req.OutputDir = dm.config.OutputDir
	}
	req.CookiesPath = dm.resolveCookies(req.CookiesPath)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.active != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionActive, dm.active.ID())
	}

	dm.warnExpiredCookies(req.CookiesPath)

	session, err := dm.sessions.StartDownload(context.WithoutCancel(ctx), &req)
	if err != nil {
		dm.logger.Error("Failed to start download", zap.String("url", req.URL), zap.Error(err))
		if dm.eventLogger != nil {
			dm.eventLogger.LogAppError("Failed to start download",
				zap.String("url", req.URL),
				zap.Error(err))
		}
		return nil, err
	}

	record := domain.NewDownloadRecord(&req, req.Title)
	record.ID = session.ID()
	if err := dm.repo.Create(record); err != nil {
		dm.logger.Error("Failed to save download record", zap.String("id", record.ID), zap.Error(err))
	}

	active := newActiveDownload(session, req, record, dm.eventBuffer)
	dm.active = active

	if dm.eventLogger != nil {
		dm.eventLogger.LogSessionEvent("download_started",
			zap.String("id", active.ID()),
			zap.String("url", req.URL),
			zap.String("format", req.FormatSelector()),
			zap.String("output_dir", req.OutputDir))
	}
	dm.notifier.NotifyDownloadStarted(displayTitle(&req))

	go dm.relay(active)

	return active, nil
}

// relay drains the session, keeping the record and observers up to date
func (dm *DownloadManager) relay(a *ActiveDownload) {
	persisted := -1

	for ev := range a.session.Events() {
		switch ev.Kind {
		case domain.EventProgress:
			record := a.updateRecord(func(r *domain.DownloadRecord) { r.UpdateProgress(ev.Percent) })
			// Persist on whole-percent steps only
			if step := int(ev.Percent); step != persisted {
				persisted = step
				dm.saveRecord(&record)
			}

		case domain.EventStderr:
			dm.logger.Debug("yt-dlp stderr", zap.String("id", a.ID()), zap.String("line", ev.Message))

		case domain.EventComplete, domain.EventError:
			dm.finish(a, ev)
		}

		a.broadcast(ev)
	}
}

// finish records the outcome and frees the active slot before observers see the terminal event
func (dm *DownloadManager) finish(a *ActiveDownload, ev domain.DownloadEvent) {
	title := displayTitle(&a.request)

	record := a.updateRecord(func(r *domain.DownloadRecord) {
		switch {
		case ev.Kind == domain.EventComplete:
			r.MarkCompleted()
		case errors.Is(ev.Err, domain.ErrDownloadCancelled):
			r.MarkCancelled()
		default:
			r.MarkFailed(ev.Err)
		}
	})
	dm.saveRecord(&record)

	dm.mu.Lock()
	if dm.active == a {
		dm.active = nil
	}
	dm.last = a
	dm.mu.Unlock()

	fields := []zap.Field{
		zap.String("id", a.ID()),
		zap.String("url", a.request.URL),
		zap.String("status", string(record.Status)),
	}

	if ev.Kind == domain.EventComplete {
		dm.logger.Info("Download completed", fields...)
		if dm.eventLogger != nil {
			dm.eventLogger.LogSessionEvent("download_completed", fields...)
		}
		dm.notifier.NotifyDownloadCompleted(title)
		return
	}

	fields = append(fields, zap.Error(ev.Err))
	dm.logger.Warn("Download ended without success", fields...)
	if dm.eventLogger != nil {
		dm.eventLogger.LogSessionEvent("download_ended", fields...)
		if !errors.Is(ev.Err, domain.ErrDownloadCancelled) {
			dm.eventLogger.LogAppError("Download failed", fields...)
		}
	}
	dm.notifier.NotifyDownloadFailed(title, ev.Err)
}

func (dm *DownloadManager) saveRecord(record *domain.DownloadRecord) {
	if err := dm.repo.Update(record); err != nil {
		dm.logger.Error("Failed to update download record", zap.String("id", record.ID), zap.Error(err))
	}
}

// CancelDownload stops the active download with the given id
func (dm *DownloadManager) CancelDownload(id string) error {
	dm.mu.Lock()
	active := dm.active
	dm.mu.Unlock()

	if active == nil || active.ID() != id {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}

	dm.logger.Info("Cancelling download", zap.String("id", id))
	active.session.Cancel()
	return nil
}

// GetActive returns the running download, or nil
func (dm *DownloadManager) GetActive() *ActiveDownload {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.active
}

// Lookup finds the running download or the one that finished most recently
func (dm *DownloadManager) Lookup(id string) (*ActiveDownload, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	for _, a := range []*ActiveDownload{dm.active, dm.last} {
		if a != nil && a.ID() == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

// GetRecord returns the live record of the active download or the stored one
func (dm *DownloadManager) GetRecord(id string) (*domain.DownloadRecord, error) {
	if a, err := dm.Lookup(id); err == nil {
		record := a.Record()
		return &record, nil
	}
	return dm.repo.FindByID(id)
}

// ListHistory returns the newest history records first; 0 means all
func (dm *DownloadManager) ListHistory(limit int) ([]*domain.DownloadRecord, error) {
	return dm.repo.FindRecent(limit)
}

// GetStats returns download statistics
func (dm *DownloadManager) GetStats() (*domain.DownloadStats, error) {
	return dm.repo.GetStats()
}

// DeleteRecord removes a finished download from history
func (dm *DownloadManager) DeleteRecord(id string) error {
	if active := dm.GetActive(); active != nil && active.ID() == id {
		return fmt.Errorf("%w: %s", domain.ErrSessionActive, id)
	}
	return dm.repo.Delete(id)
}

// Shutdown cancels the active download and waits for it to end
func (dm *DownloadManager) Shutdown(ctx context.Context) error {
	active := dm.GetActive()
	if active == nil {
		return nil
	}

	active.session.Cancel()
	select {
	case <-active.session.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InspectCookies reports on a cookie file; an empty path means the configured one
func (dm *DownloadManager) InspectCookies(path string) (*domain.CookieReport, error) {
	if path == "" {
		path = dm.config.CookieFile
	}
	return infrastructure.InspectCookieFile(path, dm.now())
}

// resolveCookies falls back to the configured cookie file when it exists
func (dm *DownloadManager) resolveCookies(path string) string {
	if path != "" {
		return path
	}
	if dm.config.CookieFile == "" {
		return ""
	}
	if info, err := os.Stat(dm.config.CookieFile); err == nil && !info.IsDir() {
		return dm.config.CookieFile
	}
	return ""
}

func (dm *DownloadManager) warnExpiredCookies(path string) {
	if path == "" {
		return
	}
	report, err := infrastructure.InspectCookieFile(path, dm.now())
	if err != nil {
		dm.logger.Warn("Cannot read cookie file", zap.String("path", path), zap.Error(err))
		return
	}
	if report.AllExpired() {
		dm.logger.Warn("Every cookie in the cookie file has expired",
			zap.String("path", path),
			zap.Int("cookies", report.Total))
	}
}

func displayTitle(req *domain.DownloadRequest) string {
	if req.Title != "" {
		return req.Title
	}
	return req.URL
}
