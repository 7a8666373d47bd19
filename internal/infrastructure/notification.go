package infrastructure

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/yourusername/ytdesk/internal/domain"
)

// NotificationService handles sending desktop notifications
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case "osascript":
		err = n.run("osascript", "-e", appleScript(title, message, n.config.Sound))
	case "notify-send":
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// appleScript builds a display notification statement
func appleScript(title, message string, sound bool) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	if sound {
		script += ` sound name "Glass"`
	}
	return script
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// NotifyDownloadStarted sends notification when a download starts
func (n *NotificationService) NotifyDownloadStarted(title string) {
	n.Send("Download Started", "Downloading: "+truncateString(title, 40))
}

// NotifyDownloadCompleted sends notification when a download completes
func (n *NotificationService) NotifyDownloadCompleted(title string) {
	n.Send("Download Completed", "Saved: "+truncateString(title, 40))
}

// NotifyDownloadFailed sends notification when a download fails or is cancelled
func (n *NotificationService) NotifyDownloadFailed(title string, err error) {
	message := "Failed: " + truncateString(title, 40)
	switch {
	case errors.Is(err, domain.ErrCredentialsExpired):
		message = domain.CredentialsExpiredMessage
	case errors.Is(err, domain.ErrDownloadCancelled):
		message = "Cancelled: " + truncateString(title, 40)
	}
	n.Send("Download Failed", message)
}

// truncateString truncates a string to the specified number of runes
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
