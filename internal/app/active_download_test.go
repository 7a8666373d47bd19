package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ytdesk/internal/domain"
)

func drain(ch <-chan domain.DownloadEvent) []domain.DownloadEvent {
	var out []domain.DownloadEvent
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestActiveDownload_SubscribeReplaysLastBroadcastProgress(t *testing.T) {
	req := domain.DownloadRequest{URL: "https://youtu.be/abc", Video: domain.StreamFormat{FormatID: "137"}, OutputDir: t.TempDir()}
	a := newActiveDownload(nil, req, domain.NewDownloadRecord(&req, ""), 8)

	early, unsubscribeEarly := a.Subscribe()
	defer unsubscribeEarly()
	assert.Empty(t, drain(early))

	a.broadcast(domain.ProgressEvent(10))
	assert.Equal(t, []domain.DownloadEvent{domain.ProgressEvent(10)}, drain(early))

	late, unsubscribeLate := a.Subscribe()
	defer unsubscribeLate()
	assert.Equal(t, []domain.DownloadEvent{domain.ProgressEvent(10)}, drain(late))

	a.broadcast(domain.StderrEvent("WARNING: slow"))
	a.broadcast(domain.ProgressEvent(20))
	got := drain(late)
	require.Len(t, got, 2)
	assert.Equal(t, domain.EventStderr, got[0].Kind)
	assert.Equal(t, domain.ProgressEvent(20), got[1])

	a.broadcast(domain.CompleteEvent())
	final := drain(late)
	require.Len(t, final, 1)
	assert.Equal(t, domain.EventComplete, final[0].Kind)

	after, _ := a.Subscribe()
	events := drain(after)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventComplete, events[0].Kind)
}
