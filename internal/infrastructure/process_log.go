package infrastructure

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// processLog appends raw yt-dlp output to logs/download-YYYYMMDD.log.
// A nil *processLog discards everything.
type processLog struct {
	mu   sync.Mutex
	file *os.File
}

// downloadLogPath returns the raw output log for a given day
func downloadLogPath(logsDir string, day time.Time) string {
	return filepath.Join(logsDir, "download-"+day.Format("20060102")+".log")
}

// openProcessLog opens today's log and writes the session start marker
func openProcessLog(logsDir, sessionID, cmdLine string) (*processLog, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	file, err := os.OpenFile(downloadLogPath(logsDir, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(file, "\n=== [%s] Download: %s ===\n", timestamp, sessionID)
	fmt.Fprintf(file, "$ %s\n", cmdLine)

	return &processLog{file: file}, nil
}

// WriteLine records one chunk of output; stdout and stderr readers share the file
func (l *processLog) WriteLine(line string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file.WriteString(line + "\n")
}

// Close writes the end marker and closes the file
func (l *processLog) Close(success bool, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}
	fmt.Fprintf(l.file, "[%s] %s: %s\n", timestamp, status, message)
	l.file.WriteString("=== END ===\n\n")
	l.file.Close()
}
