package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/domain"
	"github.com/yourusername/ytdesk/internal/infrastructure"
	"github.com/yourusername/ytdesk/pkg/logger"
)

// Runtime is the fully wired application shared by the CLI and the server
type Runtime struct {
	Config  *domain.Config
	Logger  *zap.Logger
	Binary  string
	Manager *DownloadManager

	closers []func() error
}

// NewRuntime wires the download manager and its collaborators from config.
// Records left running by a previous process are marked failed.
func NewRuntime(config *domain.Config, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rt := &Runtime{Config: config, Logger: log}

	rt.Binary = infrastructure.ResolveYTDLPBinary(infrastructure.NewToolEnv(config.YTDLP))
	log.Debug("Resolved yt-dlp", zap.String("binary", rt.Binary))

	var eventLogger *logger.MultiLogger
	if config.Download.LogsDir != "" {
		ml, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
			Level:   config.Logging.Level,
			LogsDir: config.Download.LogsDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event logs: %w", err)
		}
		eventLogger = ml
		rt.closers = append(rt.closers, ml.Close)
	}

	var repo domain.DownloadRepository = infrastructure.NopDownloadRepository{}
	if config.History.Enabled {
		sqliteRepo, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		rt.closers = append(rt.closers, sqliteRepo.Close)

		if n, err := sqliteRepo.MarkInterrupted(); err != nil {
			log.Warn("Failed to mark interrupted downloads", zap.Error(err))
		} else if n > 0 {
			log.Info("Marked interrupted downloads as failed", zap.Int64("count", n))
		}
		repo = sqliteRepo
	}

	runner := infrastructure.NewProcessRunner(log)
	fetcher := infrastructure.NewYTDLPMetadataFetcher(infrastructure.MetadataFetcherConfig{
		Binary:  rt.Binary,
		Timeout: config.YTDLP.MetadataTimeout,
	}, runner, log)

	sessions := infrastructure.NewSessionManager(infrastructure.SessionManagerConfig{
		Binary:         rt.Binary,
		OutputTemplate: config.YTDLP.OutputTemplate,
		EventBuffer:    config.YTDLP.EventBuffer,
		LogsDir:        config.Download.LogsDir,
	}, log)

	rt.Manager = NewDownloadManager(DownloadManagerOptions{
		Fetcher:     fetcher,
		Sessions:    sessions,
		Repo:        repo,
		Notifier:    infrastructure.NewNotificationService(&config.Notification, log),
		Config:      &config.Download,
		EventBuffer: config.YTDLP.EventBuffer,
		EventLogger: eventLogger,
		Logger:      log,
	})

	return rt, nil
}

// Close releases the history database and log files, newest first
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
