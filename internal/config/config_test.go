package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "rewind.yml"))
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "127.0.0.1:9090", cfg.DevServer.Addr)
	assert.Equal(t, 2*time.Second, cfg.DevTools.SendTimeout)

	require.NotNil(t, cfg.Redis)
	assert.Equal(t, "todos", cfg.Redis.Instance)
	opts := cfg.Redis.Options()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 0, opts.DB)

	require.NotNil(t, cfg.Journal)
	assert.Equal(t, "local-dev", cfg.Journal.Session)
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`version: "1"`))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultAddr, cfg.DevServer.Addr)
	assert.Equal(t, DefaultSendTimeout, cfg.DevTools.SendTimeout)
	assert.Nil(t, cfg.Redis)
	assert.Nil(t, cfg.Journal)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "empty document",
			yaml:    "",
			wantErr: "Version is required",
		},
		{
			name:    "wrong version",
			yaml:    `version: "2"`,
			wantErr: `Version must be "1"`,
		},
		{
			name:    "unknown field",
			yaml:    "version: \"1\"\nlogging:\n  level: debug\n",
			wantErr: "field logging not found",
		},
		{
			name:    "bad log level",
			yaml:    "version: \"1\"\nlog:\n  level: verbose\n",
			wantErr: "Log.Level must be one of",
		},
		{
			name:    "bad addr",
			yaml:    "version: \"1\"\ndevserver:\n  addr: nowhere\n",
			wantErr: "DevServer.Addr must be host:port",
		},
		{
			name:    "redis without instance",
			yaml:    "version: \"1\"\nredis:\n  addr: localhost:6379\n",
			wantErr: "Redis.Instance is required",
		},
		{
			name:    "redis instance with separator",
			yaml:    "version: \"1\"\nredis:\n  addr: localhost:6379\n  instance: a:b\n",
			wantErr: "Redis.Instance failed",
		},
		{
			name:    "journal without path",
			yaml:    "version: \"1\"\njournal:\n  session: x\n",
			wantErr: "Journal.Path is required",
		},
		{
			name:    "negative timeout",
			yaml:    "version: \"1\"\ndevtools:\n  send_timeout: -1s\n",
			wantErr: "DevTools.SendTimeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
