package app

import (
	"sync"

	"github.com/yourusername/ytdesk/internal/domain"
	"github.com/yourusername/ytdesk/internal/infrastructure"
)

// ActiveDownload is a download started through the DownloadManager.
// Any number of observers may subscribe to its events.
type ActiveDownload struct {
	session *infrastructure.DownloadSession
	request domain.DownloadRequest
	buffer  int

	mu          sync.Mutex
	record      *domain.DownloadRecord
	subscribers map[chan domain.DownloadEvent]struct{}
	terminal    *domain.DownloadEvent
	lastPercent float64 // last progress value broadcast
}

func newActiveDownload(session *infrastructure.DownloadSession, req domain.DownloadRequest, record *domain.DownloadRecord, buffer int) *ActiveDownload {
	if buffer < 2 {
		buffer = 2
	}
	return &ActiveDownload{
		session:     session,
		request:     req,
		buffer:      buffer,
		record:      record,
		subscribers: make(map[chan domain.DownloadEvent]struct{}),
	}
}

// ID returns the download id, shared by the session and its history record
func (a *ActiveDownload) ID() string {
	return a.session.ID()
}

// Request returns the request the download was started with
func (a *ActiveDownload) Request() domain.DownloadRequest {
	return a.request
}

// State returns the session state
func (a *ActiveDownload) State() domain.SessionState {
	return a.session.State()
}

// Progress returns the last reported percentage
func (a *ActiveDownload) Progress() float64 {
	return a.session.Progress()
}

// Record returns a snapshot of the history record
func (a *ActiveDownload) Record() domain.DownloadRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return *a.record
}

// Wait blocks until the download ends and returns its terminal error
func (a *ActiveDownload) Wait() error {
	return a.session.Wait()
}

// Subscribe returns a channel receiving the download's events from now on,
// led by the last progress value already broadcast.
// The channel is closed after the terminal event; a subscriber that falls
// behind misses progress and stderr events but always gets the terminal one.
// Subscribing after the end yields just the terminal event.
func (a *ActiveDownload) Subscribe() (<-chan domain.DownloadEvent, func()) {
	ch := make(chan domain.DownloadEvent, a.buffer)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.terminal != nil {
		ch <- *a.terminal
		close(ch)
		return ch, func() {}
	}

	if a.lastPercent > 0 {
		ch <- domain.ProgressEvent(a.lastPercent)
	}
	a.subscribers[ch] = struct{}{}

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if _, ok := a.subscribers[ch]; ok {
			delete(a.subscribers, ch)
			close(ch)
		}
	}
}

// updateRecord applies fn to the record under the lock
func (a *ActiveDownload) updateRecord(fn func(r *domain.DownloadRecord)) domain.DownloadRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.record)
	return *a.record
}

// broadcast fans an event out to subscribers; only the relay goroutine calls it
func (a *ActiveDownload) broadcast(ev domain.DownloadEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.IsTerminal() {
		for ch := range a.subscribers {
			ch <- ev
			close(ch)
			delete(a.subscribers, ch)
		}
		a.terminal = &ev
		return
	}

	if ev.Kind == domain.EventProgress {
		a.lastPercent = ev.Percent
	}

	// One slot stays free for the terminal event
	for ch := range a.subscribers {
		if len(ch) < cap(ch)-1 {
			ch <- ev
		}
	}
}
