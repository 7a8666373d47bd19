package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DownloadRequest is what a caller supplies to start a download
type DownloadRequest struct {
	URL         string        `json:"url"`
	Title       string        `json:"title,omitempty"` // display only
	Video       StreamFormat  `json:"video"`
	Audio       *StreamFormat `json:"audio,omitempty"`
	OutputDir   string        `json:"output_dir"`
	CookiesPath string        `json:"cookies_path,omitempty"`
}

// ValidateURL rejects empty URLs and ones yt-dlp would parse as an option
func ValidateURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}
	if strings.HasPrefix(url, "-") {
		return fmt.Errorf("%w: url must not start with '-'", ErrInvalidRequest)
	}
	return nil
}

// Validate checks the fields every download needs
func (r *DownloadRequest) Validate() error {
	if err := ValidateURL(r.URL); err != nil {
		return err
	}
	if r.Video.FormatID == "" {
		return fmt.Errorf("%w: video format id is required", ErrInvalidRequest)
	}
	if r.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalidRequest)
	}
	return nil
}

// FormatSelector builds the yt-dlp -f value: "video+audio" when an audio
// format with an id is chosen, otherwise the video id alone
func (r *DownloadRequest) FormatSelector() string {
	return BuildFormatSelector(r.Video, r.Audio)
}

// BuildFormatSelector joins the chosen format ids for yt-dlp
func BuildFormatSelector(video StreamFormat, audio *StreamFormat) string {
	if audio != nil && audio.FormatID != "" {
		return video.FormatID + "+" + audio.FormatID
	}
	return video.FormatID
}

// SessionState represents the lifecycle of a download session
type SessionState string

const (
	SessionRunning   SessionState = "running"
	SessionCompleted SessionState = "completed"
	SessionFailed    SessionState = "failed"
	SessionCancelled SessionState = "cancelled"
)

// IsTerminal checks if the state is final
func (s SessionState) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed || s == SessionCancelled
}

// EventKind tags a DownloadEvent
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventStderr   EventKind = "stderr"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// DownloadEvent is one notification of a download session.
// Progress and stderr events are informational; complete and error end the stream.
type DownloadEvent struct {
	Kind    EventKind `json:"type"`
	Percent float64   `json:"percent,omitempty"`
	Message string    `json:"message,omitempty"`
	Err     error     `json:"-"`
}

// IsTerminal reports whether no further events follow this one
func (e DownloadEvent) IsTerminal() bool {
	return e.Kind == EventComplete || e.Kind == EventError
}

// ProgressEvent builds a progress notification
func ProgressEvent(percent float64) DownloadEvent {
	return DownloadEvent{Kind: EventProgress, Percent: percent}
}

// StderrEvent builds a diagnostic notification for one chunk of stderr output
func StderrEvent(message string) DownloadEvent {
	return DownloadEvent{Kind: EventStderr, Message: message}
}

// CompleteEvent builds the success notification
func CompleteEvent() DownloadEvent {
	return DownloadEvent{Kind: EventComplete, Percent: 100}
}

// ErrorEvent builds the failure notification
func ErrorEvent(err error) DownloadEvent {
	return DownloadEvent{Kind: EventError, Message: err.Error(), Err: err}
}

// DownloadRecord is the persisted history entry of one download
type DownloadRecord struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	URL            string       `json:"url" gorm:"not null"`
	Title          string       `json:"title,omitempty"`
	FormatSelector string       `json:"format_selector" gorm:"not null"`
	OutputDir      string       `json:"output_dir"`
	Status         SessionState `json:"status" gorm:"not null;index"`
	Progress       float64      `json:"progress"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	CreatedAt      time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// TableName specifies the table name for GORM
func (DownloadRecord) TableName() string {
	return "downloads"
}

// NewDownloadRecord creates a running history entry for a request
func NewDownloadRecord(req *DownloadRequest, title string) *DownloadRecord {
	now := time.Now()
	return &DownloadRecord{
		ID:             uuid.New().String(),
		URL:            req.URL,
		Title:          title,
		FormatSelector: req.FormatSelector(),
		OutputDir:      req.OutputDir,
		Status:         SessionRunning,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// UpdateProgress records the last reported percentage
func (d *DownloadRecord) UpdateProgress(percent float64) {
	d.Progress = percent
	d.UpdatedAt = time.Now()
}

// MarkCompleted marks the download as completed
func (d *DownloadRecord) MarkCompleted() {
	d.finish(SessionCompleted)
	d.Progress = 100
}

// MarkFailed marks the download as failed
func (d *DownloadRecord) MarkFailed(err error) {
	d.finish(SessionFailed)
	d.ErrorMessage = err.Error()
}

// MarkCancelled marks the download as cancelled by the user
func (d *DownloadRecord) MarkCancelled() {
	d.finish(SessionCancelled)
}

func (d *DownloadRecord) finish(status SessionState) {
	d.Status = status
	now := time.Now()
	d.CompletedAt = &now
	d.UpdatedAt = now
}

// IsTerminal checks if the download is in a terminal state
func (d *DownloadRecord) IsTerminal() bool {
	return d.Status.IsTerminal()
}
