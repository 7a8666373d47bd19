package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8787, config.Server.Port)
	assert.Empty(t, config.YTDLP.Binary)
	assert.False(t, config.YTDLP.Packaged)
	assert.Equal(t, "%(title)s.%(ext)s", config.YTDLP.OutputTemplate)
	assert.Zero(t, config.YTDLP.MetadataTimeout, "metadata fetch has no timeout by default")
	assert.Equal(t, 64, config.YTDLP.EventBuffer)
	assert.True(t, config.History.Enabled)
	assert.False(t, config.Notification.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
