package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	c := &Config{}
	c.LoadDefaults()
	return c
}

func TestLoadDefaults(t *testing.T) {
	c := defaults()
	assert.Equal(t, BackendMemory, c.Backend)
	assert.Equal(t, 12*time.Hour, c.SessionValidity)
	assert.True(t, c.SeedFixtures)
	assert.True(t, c.AllowProgressNotes)
	assert.Empty(t, c.RedisAddr)
}

func TestParseFlags(t *testing.T) {
	c := defaults()
	parseFlags(c, []string{"-b", "postgres", "-d", "postgres://db/x", "-t", "30", "-f=false", "-v", "debug", "-unknown", "x"})

	want := defaults()
	want.Backend = BackendPostgres
	want.DatabaseDSN = "postgres://db/x"
	want.SessionValidity = 30 * time.Minute
	want.SeedFixtures = false
	want.LogLevel = "debug"

	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "cli.json")
	b, err := json.Marshal(map[string]any{
		"backend":          "postgres",
		"redis_addr":       "localhost:6379",
		"session_validity": "45m",
		"seed_fixtures":    false,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	os.Args = []string{"cli", "-c", path}
	c := defaults()
	parseJson(c)

	assert.Equal(t, BackendPostgres, c.Backend)
	assert.Equal(t, "localhost:6379", c.RedisAddr)
	assert.Equal(t, 45*time.Minute, c.SessionValidity)
	assert.False(t, c.SeedFixtures)
	assert.True(t, c.AllowProgressNotes, "absent fields keep their value")
}

func TestParseJson_BadFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"cli", "-config", filepath.Join(t.TempDir(), "missing.json")}
	assert.Panics(t, func() { parseJson(defaults()) })
}

func TestLoadConfig_FlagsWinOverJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"log_level":"info","backend":"postgres"}`), 0o600))

	os.Args = []string{"cli", "-c", path, "-v", "error"}
	c := LoadConfig()
	assert.Equal(t, "error", c.LogLevel)
	assert.Equal(t, BackendPostgres, c.Backend)
}
