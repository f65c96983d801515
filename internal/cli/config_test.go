package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoship.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_Valid(t *testing.T) {
	path := writeConfig(t, `
database: ./autoship.db
workers: 4
max_delay_seconds: 30
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "./autoship.db", cfg.Database)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30, cfg.MaxDelaySeconds)
}

func TestLoadConfig_DatabaseOnly(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "database: /tmp/a.db\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 0, cfg.MaxDelaySeconds)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "missing database", content: "workers: 2\n", want: "database is required"},
		{name: "negative workers", content: "database: a.db\nworkers: -1\n", want: "workers must not be negative"},
		{name: "negative delay cap", content: "database: a.db\nmax_delay_seconds: -5\n", want: "max_delay_seconds must not be negative"},
		{name: "malformed yaml", content: "database: [unclosed\n", want: "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}
