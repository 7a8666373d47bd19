package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/domain"
)

// MetadataFetcherConfig configures metadata lookups
type MetadataFetcherConfig struct {
	Binary  string
	Timeout time.Duration // 0 waits for yt-dlp indefinitely
}

// YTDLPMetadataFetcher reads a video's format catalog with yt-dlp --dump-json
type YTDLPMetadataFetcher struct {
	config MetadataFetcherConfig
	runner *ProcessRunner
	logger *zap.Logger
}

var _ domain.MetadataFetcher = (*YTDLPMetadataFetcher)(nil)

// NewYTDLPMetadataFetcher creates a new metadata fetcher
func NewYTDLPMetadataFetcher(config MetadataFetcherConfig, runner *ProcessRunner, logger *zap.Logger) *YTDLPMetadataFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = NewProcessRunner(logger)
	}
	return &YTDLPMetadataFetcher{config: config, runner: runner, logger: logger}
}

// metadataArgs builds the yt-dlp argument list for a metadata lookup
func metadataArgs(url, cookiesPath string) []string {
	args := []string{"--no-warnings", "--dump-json", "--no-playlist"}
	if cookiesPath != "" {
		args = append(args, "--cookies", cookiesPath)
	}
	// "--" keeps a URL from ever being read as an option
	return append(args, "--", url)
}

// GetVideoInfo fetches and classifies the formats available for url
func (f *YTDLPMetadataFetcher) GetVideoInfo(ctx context.Context, url, cookiesPath string) (*domain.VideoMetadata, error) {
	if f.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.Timeout)
		defer cancel()
	}

	out, err := f.runner.Run(ctx, f.config.Binary, metadataArgs(url, cookiesPath)...)
	if err != nil {
		return nil, classifyMetadataError(err)
	}

	meta, err := parseMetadata([]byte(out))
	if err != nil {
		return nil, err
	}

	f.logger.Debug("Fetched video info",
		zap.String("url", url),
		zap.String("title", meta.Title),
		zap.Int("video_formats", len(meta.VideoFormats)),
		zap.Int("audio_formats", len(meta.AudioFormats)))

	return meta, nil
}

// classifyMetadataError maps an invocation failure to the error callers act on
func classifyMetadataError(err error) error {
	if domain.IsCredentialsFailure(err.Error()) {
		return domain.ErrCredentialsExpired
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrMetadataFetchFailed, err)
}
