package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDoc = `{
  "channels": [
    {"id": "chan-1", "name": "Channel One"},
    {"id": "chan-2", "name": "Channel Two", "feed_id": 7}
  ],
  "email": {"from": "digest@example.com"},
  "subscribers": ["a@example.com"]
}`

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, testDoc))
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.CheckHours)
	assert.Equal(t, 24*time.Hour, cfg.Lookback())
	assert.Equal(t, 7*24*time.Hour, cfg.MaxJobAge())
	assert.Equal(t, "digest@example.com", cfg.Email.From)
	assert.Equal(t, []string{"a@example.com"}, cfg.Subscribers)

	channels := cfg.ChannelList()
	require.Len(t, channels, 2)
	assert.Equal(t, "Channel One", channels[0].Name)
	assert.Equal(t, int64(7), channels[1].FeedID)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EMAIL_FROM", "other@example.com")
	t.Setenv("EMAIL_SUBSCRIBERS", " b@example.com, c@example.com ,")

	cfg, err := Load(writeConfig(t, testDoc))
	require.NoError(t, err)

	assert.Equal(t, "other@example.com", cfg.Email.From)
	assert.Equal(t, []string{"b@example.com", "c@example.com"}, cfg.Subscribers)
}

func TestLoadCheckHours(t *testing.T) {
	doc := `{
  "channels": [{"id": "chan-1", "name": "Channel One"}],
  "check_hours": 48,
  "max_job_age_hours": 12
}`
	cfg, err := Load(writeConfig(t, doc))
	require.NoError(t, err)

	assert.Equal(t, 48*time.Hour, cfg.Lookback())
	assert.Equal(t, 12*time.Hour, cfg.MaxJobAge())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "{not json"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, `{"channels": []}`))
	assert.Error(t, err)
}
