package infrastructure

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFakeTool writes an executable shell script standing in for yt-dlp
func writeFakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tool scripts need a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "yt-dlp")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755)
	require.NoError(t, err)
	return path
}

// argsRecorder returns a script line that stores each argument on its own line
func argsRecorder(t *testing.T) (line, path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), "args.txt")
	return `printf '%s\n' "$@" > '` + path + `'`, path
}
