package infrastructure

import (
	"bytes"
	"regexp"
	"strconv"
)

var progressPattern = regexp.MustCompile(`(\d+\.?\d*)%`)

// ParseProgress extracts the first percentage found in a chunk of yt-dlp output
func ParseProgress(chunk string) (float64, bool) {
	m := progressPattern.FindStringSubmatch(chunk)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ProgressTracker remembers the last reported percentage so repeats are dropped.
// It starts at 0, so a leading "0.0%" is never reported.
type ProgressTracker struct {
	last float64
}

// Observe returns the chunk's percentage when it differs from the last one reported
func (t *ProgressTracker) Observe(chunk string) (float64, bool) {
	v, ok := ParseProgress(chunk)
	if !ok || v == t.last {
		return 0, false
	}
	t.last = v
	return v, true
}

// Last returns the last reported percentage
func (t *ProgressTracker) Last() float64 {
	return t.last
}

// scanOutputChunks is a bufio.SplitFunc that breaks on '\n' or '\r'.
// yt-dlp redraws its progress line with carriage returns.
func scanOutputChunks(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
