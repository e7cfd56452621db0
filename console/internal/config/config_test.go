package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	c := Init("")
	assert.Equal(t, "ws://127.0.0.1:9400/ws", c.WSURL)
	assert.Equal(t, "web", c.ClientType)
	assert.Equal(t, "file", c.Selection.Backend)
	assert.Equal(t, 500*time.Millisecond, c.Selection.PollInterval)
	assert.Equal(t, 2*time.Minute, c.CommandTimeout)
	assert.Equal(t, c, Get())
}

func TestInitFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
console:
  api_url: http://fleet.example:8080
  selection:
    backend: redis
    poll_interval: 2s
  command:
    timeout: 0s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	c := Init(path)
	assert.Equal(t, "http://fleet.example:8080", c.APIURL)
	assert.Equal(t, "redis", c.Selection.Backend)
	assert.Equal(t, 2*time.Second, c.Selection.PollInterval)
	assert.Equal(t, time.Duration(0), c.CommandTimeout)
}
