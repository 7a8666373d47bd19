package infrastructure

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/ytdesk/internal/domain"
)

// DefaultOutputTemplate names the downloaded file after the video title
const DefaultOutputTemplate = "%(title)s.%(ext)s"

const defaultEventBuffer = 64

// SessionManagerConfig configures how downloads are launched
type SessionManagerConfig struct {
	Binary         string
	OutputTemplate string
	EventBuffer    int
	LogsDir        string // raw output log directory; empty disables it
}

// SessionManager starts yt-dlp download sessions.
// Sessions are independent; the manager does not limit how many run at once.
type SessionManager struct {
	config SessionManagerConfig
	logger *zap.Logger
}

// NewSessionManager creates a new session manager
func NewSessionManager(config SessionManagerConfig, logger *zap.Logger) *SessionManager {
	if config.OutputTemplate == "" {
		config.OutputTemplate = DefaultOutputTemplate
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = defaultEventBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{config: config, logger: logger}
}

// downloadArgs builds the yt-dlp argument list for a download
func downloadArgs(req *domain.DownloadRequest, outputTemplate string) []string {
	args := []string{
		"--no-warnings",
		"--no-playlist",
		"-f", req.FormatSelector(),
		"-o", filepath.Join(req.OutputDir, outputTemplate),
	}
	if req.CookiesPath != "" {
		args = append(args, "--cookies", req.CookiesPath)
	}
	return append(args, "--", req.URL)
}

// StartDownload launches yt-dlp and returns immediately with the running session.
// ctx bounds the child's lifetime; cancelling it ends the session as cancelled.
// A process that cannot be started yields *domain.LaunchError and no session.
func (m *SessionManager) StartDownload(ctx context.Context, req *domain.DownloadRequest) (*DownloadSession, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	args := downloadArgs(req, m.config.OutputTemplate)
	cmdLine := QuoteCommand(m.config.Binary, args...)

	sessionCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(sessionCtx, m.config.Binary, args...)
	cmd.WaitDelay = waitDelay
	killProcessTree(cmd)

	// io.Pipe writers make exec copy the output itself, so Wait returns
	// (after WaitDelay at most) even while a descendant holds the OS pipe
	stdoutR, stdoutW := io.Pipe()
	stderrR, stderrW := io.Pipe()
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	if err := cmd.Start(); err != nil {
		cancel()
		stdoutW.Close()
		stderrW.Close()
		return nil, &domain.LaunchError{Binary: m.config.Binary, Err: err}
	}

	s := &DownloadSession{
		id:     uuid.New().String(),
		binary: m.config.Binary,
		ctx:    sessionCtx,
		cancel: cancel,
		events: make(chan domain.DownloadEvent, m.config.EventBuffer),
		done:   make(chan struct{}),
		state:  domain.SessionRunning,
		logger: m.logger,
	}

	if m.config.LogsDir != "" {
		plog, err := openProcessLog(m.config.LogsDir, s.id, cmdLine)
		if err != nil {
			m.logger.Warn("Raw output log unavailable", zap.Error(err))
		} else {
			s.plog = plog
		}
	}

	m.logger.Info("Download started",
		zap.String("session_id", s.id),
		zap.String("url", req.URL),
		zap.String("format", req.FormatSelector()),
		zap.String("cmd", cmdLine))

	go s.run(cmd, stdoutR, stdoutW, stderrR, stderrW)

	return s, nil
}

var _ domain.Session = (*DownloadSession)(nil)

// DownloadSession is one running yt-dlp download.
// Events is closed right after the single complete or error event.
type DownloadSession struct {
	id     string
	binary string
	ctx    context.Context
	cancel context.CancelFunc
	events chan domain.DownloadEvent
	done   chan struct{}
	plog   *processLog
	logger *zap.Logger

	// emitMu serializes non-terminal sends against Cancel
	emitMu sync.Mutex

	mu          sync.RWMutex
	state       domain.SessionState
	progress    float64
	credentials bool
	stderrText  strings.Builder
	err         error
}

// ID returns the session id
func (s *DownloadSession) ID() string {
	return s.id
}

// Events returns the session's event stream. The caller must drain it.
func (s *DownloadSession) Events() <-chan domain.DownloadEvent {
	return s.events
}

// State returns the current session state
func (s *DownloadSession) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Progress returns the last reported percentage
func (s *DownloadSession) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress
}

// Cancel kills the child. No progress or stderr event is delivered after
// Cancel returns; the stream ends with an error event carrying
// domain.ErrDownloadCancelled unless the process had already exited.
func (s *DownloadSession) Cancel() {
	s.cancel()
	s.emitMu.Lock()
	s.emitMu.Unlock()
}

// Done is closed once the session reached a terminal state
func (s *DownloadSession) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the session ends and returns its terminal error, nil on success
func (s *DownloadSession) Wait() error {
	<-s.done
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *DownloadSession) run(cmd *exec.Cmd, stdoutR io.Reader, stdoutW io.Closer, stderrR io.Reader, stderrW io.Closer) {
	var g errgroup.Group
	g.Go(func() error { return s.readStdout(stdoutR) })
	g.Go(func() error { return s.readStderr(stderrR) })

	waitErr := cmd.Wait()

	// Readers see EOF once everything copied before Wait returned is consumed
	stdoutW.Close()
	stderrW.Close()
	readErr := g.Wait()

	terminal := s.finish(waitErr, readErr)

	close(s.done)
	s.events <- terminal
	close(s.events)
}

func (s *DownloadSession) readStdout(r io.Reader) error {
	var tracker ProgressTracker

	scanner := newOutputScanner(r)
	for scanner.Scan() {
		chunk := scanner.Text()
		if chunk == "" {
			continue
		}
		s.plog.WriteLine(chunk)

		if percent, ok := tracker.Observe(chunk); ok {
			s.mu.Lock()
			s.progress = percent
			s.mu.Unlock()
			s.emit(domain.ProgressEvent(percent))
		}
	}
	return drainAfter(scanner.Err(), r)
}

func (s *DownloadSession) readStderr(r io.Reader) error {
	scanner := newOutputScanner(r)
	for scanner.Scan() {
		chunk := scanner.Text()
		if chunk == "" {
			continue
		}
		s.plog.WriteLine(chunk)

		message := chunk
		s.mu.Lock()
		if s.stderrText.Len() > 0 {
			s.stderrText.WriteByte('\n')
		}
		s.stderrText.WriteString(chunk)
		if domain.IsCredentialsFailure(chunk) {
			s.credentials = true
			message = domain.CredentialsExpiredMessage
		}
		s.mu.Unlock()

		s.emit(domain.StderrEvent(message))
	}
	return drainAfter(scanner.Err(), r)
}

// maxChunkSize bounds one line of tool output
const maxChunkSize = 1024 * 1024

func newOutputScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxChunkSize)
	scanner.Split(scanOutputChunks)
	return scanner
}

// drainAfter keeps consuming r after a scan error so the child never blocks on
// a full pipe
func drainAfter(scanErr error, r io.Reader) error {
	if scanErr != nil {
		io.Copy(io.Discard, r)
	}
	return scanErr
}

// emit delivers a non-terminal event unless the session was cancelled
func (s *DownloadSession) emit(ev domain.DownloadEvent) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	if s.ctx.Err() != nil {
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// finish records the terminal state and builds the terminal event
func (s *DownloadSession) finish(waitErr, readErr error) domain.DownloadEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		s.state = domain.SessionCompleted
		s.progress = 100
	case s.ctx.Err() != nil:
		s.state = domain.SessionCancelled
		s.err = domain.ErrDownloadCancelled
	case s.credentials:
		s.state = domain.SessionFailed
		s.err = domain.ErrCredentialsExpired
	case errors.As(waitErr, &exitErr):
		s.state = domain.SessionFailed
		s.err = fmt.Errorf("%w: %w", domain.ErrDownloadFailed, &domain.ToolError{
			Binary:   s.binary,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(s.stderrText.String()),
		})
	default:
		s.state = domain.SessionFailed
		s.err = fmt.Errorf("%w: %w", domain.ErrDownloadFailed, waitErr)
	}
	s.cancel()

	if readErr != nil {
		s.logger.Warn("Reading yt-dlp output failed", zap.String("session_id", s.id), zap.Error(readErr))
	}

	if s.err == nil {
		s.plog.Close(true, "download finished")
		s.logger.Info("Download completed", zap.String("session_id", s.id))
		return domain.CompleteEvent()
	}

	s.plog.Close(false, s.err.Error())
	s.logger.Info("Download ended",
		zap.String("session_id", s.id),
		zap.String("state", string(s.state)),
		zap.Error(s.err))
	return domain.ErrorEvent(s.err)
}
