package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ytdesk/internal/domain"
	"github.com/yourusername/ytdesk/internal/infrastructure"
	"github.com/yourusername/ytdesk/pkg/logger"
)

// mockDownloadManagerRepo implements domain.DownloadRepository for testing
type mockDownloadManagerRepo struct {
	mu      sync.Mutex
	records map[string]domain.DownloadRecord
}

func newMockDownloadManagerRepo() *mockDownloadManagerRepo {
	return &mockDownloadManagerRepo{records: make(map[string]domain.DownloadRecord)}
}

func (m *mockDownloadManagerRepo) Create(record *domain.DownloadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.ID] = *record
	return nil
}

func (m *mockDownloadManagerRepo) Update(record *domain.DownloadRecord) error {
	return m.Create(record)
}

func (m *mockDownloadManagerRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockDownloadManagerRepo) FindByID(id string) (*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		return &r, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockDownloadManagerRepo) FindByStatus(status domain.SessionState) ([]*domain.DownloadRecord, error) {
	return nil, nil
}

func (m *mockDownloadManagerRepo) FindRecent(limit int) ([]*domain.DownloadRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DownloadRecord
	for _, r := range m.records {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func (m *mockDownloadManagerRepo) GetStats() (*domain.DownloadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.DownloadStats{Total: int64(len(m.records))}, nil
}

// recordingNotifier captures notifications
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	errs   []error
}

func (n *recordingNotifier) NotifyDownloadStarted(title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "started:"+title)
}

func (n *recordingNotifier) NotifyDownloadCompleted(title string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "completed:"+title)
}

func (n *recordingNotifier) NotifyDownloadFailed(title string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "failed:"+title)
	n.errs = append(n.errs, err)
}

func (n *recordingNotifier) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

// stubFetcher implements domain.MetadataFetcher
type stubFetcher struct {
	meta        *domain.VideoMetadata
	err         error
	cookiesPath string
}

func (f *stubFetcher) GetVideoInfo(ctx context.Context, url, cookiesPath string) (*domain.VideoMetadata, error) {
	f.cookiesPath = cookiesPath
	return f.meta, f.err
}

func writeFakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

type testManager struct {
	*DownloadManager
	repo     *mockDownloadManagerRepo
	notifier *recordingNotifier
	fetcher  *stubFetcher
	config   *domain.DownloadConfig
}

func newTestManager(t *testing.T, script string) *testManager {
	t.Helper()
	tool := writeFakeTool(t, script)

	tm := &testManager{
		repo:     newMockDownloadManagerRepo(),
		notifier: &recordingNotifier{},
		fetcher:  &stubFetcher{meta: &domain.VideoMetadata{Title: "T"}},
		config:   &domain.DownloadConfig{OutputDir: t.TempDir()},
	}
	tm.DownloadManager = NewDownloadManager(DownloadManagerOptions{
		Fetcher:  tm.fetcher,
		Sessions: infrastructure.NewSessionManager(infrastructure.SessionManagerConfig{Binary: tool}, nil),
		Repo:     tm.repo,
		Notifier: tm.notifier,
		Config:   tm.config,
	})
	return tm
}

func testRequest() domain.DownloadRequest {
	return domain.DownloadRequest{
		URL:   "https://www.youtube.com/watch?v=abc",
		Title: "Video",
		Video: domain.StreamFormat{FormatID: "137"},
		Audio: &domain.StreamFormat{FormatID: "140"},
	}
}

// waitTerminal drains a subscription and returns its last event
func waitTerminal(t *testing.T, events <-chan domain.DownloadEvent) domain.DownloadEvent {
	t.Helper()
	var last domain.DownloadEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				require.True(t, last.IsTerminal(), "stream closed without a terminal event")
				return last
			}
			last = ev
		case <-timeout:
			t.Fatal("download did not finish")
		}
	}
}

func TestDownloadManager_StartDownload_Completes(t *testing.T) {
	tm := newTestManager(t, `
sleep 0.2
printf '%s\n' '[download]  50.0% of 1MiB'
printf '%s\n' '[download] 100% of 1MiB'
exit 0`)

	active, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, tm.config.OutputDir, active.Request().OutputDir)
	assert.Same(t, active, tm.GetActive())

	events, unsubscribe := active.Subscribe()
	defer unsubscribe()

	terminal := waitTerminal(t, events)
	assert.Equal(t, domain.EventComplete, terminal.Kind)

	assert.Nil(t, tm.GetActive())
	record, err := tm.repo.FindByID(active.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCompleted, record.Status)
	assert.Equal(t, float64(100), record.Progress)
	assert.Equal(t, "137+140", record.FormatSelector)
	assert.Equal(t, "Video", record.Title)

	assert.Equal(t, []string{"started:Video", "completed:Video"}, tm.notifier.snapshot())
}

func TestDownloadManager_OneActiveSession(t *testing.T) {
	tm := newTestManager(t, `exec sleep 10`)

	first, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)

	_, err = tm.StartDownload(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrSessionActive))
	assert.True(t, errors.Is(tm.DeleteRecord(first.ID()), domain.ErrSessionActive))

	events, unsubscribe := first.Subscribe()
	defer unsubscribe()

	require.NoError(t, tm.CancelDownload(first.ID()))
	terminal := waitTerminal(t, events)
	assert.True(t, errors.Is(terminal.Err, domain.ErrDownloadCancelled))

	record, err := tm.repo.FindByID(first.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCancelled, record.Status)

	second, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)
	require.NoError(t, tm.CancelDownload(second.ID()))
	assert.ErrorIs(t, second.Wait(), domain.ErrDownloadCancelled)
}

func TestDownloadManager_RequestContextDoesNotCancel(t *testing.T) {
	tm := newTestManager(t, `sleep 0.3; exit 0`)

	ctx, cancel := context.WithCancel(context.Background())
	active, err := tm.StartDownload(ctx, testRequest())
	require.NoError(t, err)
	cancel()

	assert.NoError(t, active.Wait())
	assert.Equal(t, domain.SessionCompleted, active.State())
}

func TestDownloadManager_CredentialsFailure(t *testing.T) {
	tm := newTestManager(t, `printf '%s\n' "ERROR: Sign in to confirm you're not a bot" >&2; exit 1`)

	active, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)

	events, unsubscribe := active.Subscribe()
	defer unsubscribe()
	terminal := waitTerminal(t, events)
	assert.True(t, errors.Is(terminal.Err, domain.ErrCredentialsExpired))

	record := active.Record()
	assert.Equal(t, domain.SessionFailed, record.Status)
	assert.Equal(t, domain.CredentialsExpiredMessage, record.ErrorMessage)

	assert.Equal(t, []string{"started:Video", "failed:Video"}, tm.notifier.snapshot())
}

func TestDownloadManager_SubscribeAfterFinish(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	active, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)
	events, unsubscribe := active.Subscribe()
	waitTerminal(t, events)
	unsubscribe()

	found, err := tm.Lookup(active.ID())
	require.NoError(t, err)
	assert.Same(t, active, found)

	late, _ := found.Subscribe()
	ev, ok := <-late
	require.True(t, ok)
	assert.Equal(t, domain.EventComplete, ev.Kind)
	_, ok = <-late
	assert.False(t, ok)
}

func TestDownloadManager_CancelUnknown(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	assert.True(t, errors.Is(tm.CancelDownload("nope"), domain.ErrSessionNotFound))
	_, err := tm.Lookup("nope")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestDownloadManager_InvalidRequest(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	req := testRequest()
	req.Video = domain.StreamFormat{}
	_, err := tm.StartDownload(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	assert.Nil(t, tm.GetActive())
}

func TestDownloadManager_LaunchFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}
	manager := NewDownloadManager(DownloadManagerOptions{
		Sessions: infrastructure.NewSessionManager(infrastructure.SessionManagerConfig{
			Binary: filepath.Join(t.TempDir(), "missing"),
		}, nil),
		Config: &domain.DownloadConfig{OutputDir: t.TempDir()},
	})

	_, err := manager.StartDownload(context.Background(), testRequest())
	assert.True(t, errors.Is(err, domain.ErrLaunchFailure))
	assert.Nil(t, manager.GetActive())
}

func TestDownloadManager_GetVideoInfo_CookieFallback(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	tm.config.CookieFile = cookieFile

	_, err := tm.GetVideoInfo(context.Background(), "https://youtu.be/abc", "")
	require.NoError(t, err)
	assert.Empty(t, tm.fetcher.cookiesPath, "missing default cookie file is not passed")

	require.NoError(t, os.WriteFile(cookieFile, []byte("# Netscape HTTP Cookie File\n"), 0600))

	meta, err := tm.GetVideoInfo(context.Background(), "https://youtu.be/abc", "")
	require.NoError(t, err)
	assert.Equal(t, "T", meta.Title)
	assert.Equal(t, cookieFile, tm.fetcher.cookiesPath)

	_, err = tm.GetVideoInfo(context.Background(), "https://youtu.be/abc", "/explicit/cookies.txt")
	require.NoError(t, err)
	assert.Equal(t, "/explicit/cookies.txt", tm.fetcher.cookiesPath)
}

func TestDownloadManager_GetVideoInfo_Error(t *testing.T) {
	tm := newTestManager(t, `exit 0`)
	tm.fetcher.err = domain.ErrCredentialsExpired

	ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{Level: "info", LogsDir: t.TempDir()})
	require.NoError(t, err)
	defer ml.Close()
	tm.eventLogger = ml

	_, err = tm.GetVideoInfo(context.Background(), "https://youtu.be/abc", "")
	assert.Equal(t, domain.ErrCredentialsExpired, err)

	require.NoError(t, ml.Sync())
	data, err := os.ReadFile(ml.CategoryLogPath(logger.CategoryError, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Failed to fetch video info")
}

func TestDownloadManager_HistoryPassThrough(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	active, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)
	require.NoError(t, active.Wait())

	stats, err := tm.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)

	records, err := tm.ListHistory(10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The record may still be settling; wait for the active slot to clear
	require.Eventually(t, func() bool { return tm.GetActive() == nil }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, tm.DeleteRecord(active.ID()))
	assert.True(t, errors.Is(tm.DeleteRecord(active.ID()), domain.ErrSessionNotFound))
}

func TestDownloadManager_InspectCookies(t *testing.T) {
	tm := newTestManager(t, `exit 0`)

	cookieFile := filepath.Join(t.TempDir(), "cookies.txt")
	require.NoError(t, os.WriteFile(cookieFile, []byte(".youtube.com\tTRUE\t/\tTRUE\t1\tA\t1\n"), 0600))
	tm.config.CookieFile = cookieFile

	report, err := tm.InspectCookies("")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.True(t, report.AllExpired())
}

func TestDownloadManager_Shutdown(t *testing.T) {
	tm := newTestManager(t, `exec sleep 10`)

	active, err := tm.StartDownload(context.Background(), testRequest())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tm.Shutdown(ctx))
	assert.Equal(t, domain.SessionCancelled, active.State())

	assert.NoError(t, tm.Shutdown(ctx))
}
