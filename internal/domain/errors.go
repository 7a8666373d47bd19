package domain

import (
	"errors"
	"fmt"
	"strings"
)

// CredentialsExpiredMessage is shown instead of raw yt-dlp output when the
// failure points at a sign-in or bot-detection wall
const CredentialsExpiredMessage = "cookies expired or invalid, please update the cookies file"

var (
	// ErrLaunchFailure indicates the external tool could not be started.
	ErrLaunchFailure = errors.New("failed to launch yt-dlp")
	// ErrExternalToolFailure indicates the external tool exited with a nonzero code.
	ErrExternalToolFailure = errors.New("yt-dlp exited with an error")
	// ErrMalformedResponse indicates metadata output was not valid JSON.
	ErrMalformedResponse = errors.New("malformed yt-dlp response")
	// ErrCredentialsExpired indicates the cookie file is missing, expired or rejected.
	ErrCredentialsExpired = errors.New(CredentialsExpiredMessage)
	// ErrMetadataFetchFailed wraps any other metadata failure.
	ErrMetadataFetchFailed = errors.New("failed to get video info")
	// ErrDownloadFailed indicates a download process exited with an error.
	ErrDownloadFailed = errors.New("download failed")
	// ErrDownloadCancelled indicates the caller cancelled a running download.
	ErrDownloadCancelled = errors.New("download cancelled")
	// ErrSessionActive indicates another download is still running.
	ErrSessionActive = errors.New("a download is already in progress")
	// ErrSessionNotFound indicates no session or record has the given id.
	ErrSessionNotFound = errors.New("download not found")
	// ErrInvalidRequest indicates the caller supplied an unusable request.
	ErrInvalidRequest = errors.New("invalid request")
)

// credentialMarkers are matched case-sensitively against tool output
var credentialMarkers = []string{
	"Sign in to confirm you",
	"cookies",
	"bot",
}

// IsCredentialsFailure reports whether tool output points at an expired or
// invalid cookie file
func IsCredentialsFailure(text string) bool {
	for _, marker := range credentialMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// ToolError is returned when the external tool exits with a nonzero code
type ToolError struct {
	Binary   string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return "command failed"
}

func (e *ToolError) Unwrap() error {
	return ErrExternalToolFailure
}

// LaunchError is returned when the external tool cannot be started at all
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() []error {
	return []error{ErrLaunchFailure, e.Err}
}
