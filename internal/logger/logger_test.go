package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad level", mutate: func(c *Config) { c.Level = "verbose" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Format = "xml" }, wantErr: "invalid log format"},
		{name: "bad output", mutate: func(c *Config) { c.Output = "syslog" }, wantErr: "invalid log output"},
		{name: "file without name", mutate: func(c *Config) { c.Output = "file"; c.File.Filename = "" }, wantErr: "filename is required"},
		{name: "file without size", mutate: func(c *Config) { c.Output = "file"; c.File.MaxSize = 0 }, wantErr: "max_size"},
		{name: "none", mutate: func(c *Config) { c.Output = "none" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewWritesJSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Format = "json"
	log, err := NewWithConsole(cfg, &buf)
	require.NoError(t, err)

	log.Named("jobs").Info("generate succeeded", zap.Int("segment", 2))
	_ = log.Sync()

	out := buf.String()
	assert.Contains(t, out, `"msg":"generate succeeded"`)
	assert.Contains(t, out, `"logger":"jobs"`)
	assert.Contains(t, out, `"segment":2`)
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Level = "warn"
	log, err := NewWithConsole(cfg, &buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown")
	_ = log.Sync()

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewWritesRotatedFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.File.Filename = filepath.Join(t.TempDir(), "logs", "repost.log")
	log, err := New(cfg)
	require.NoError(t, err)

	log.Error("publish failed")
	_ = log.Sync()

	data, err := os.ReadFile(cfg.File.Filename)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "publish failed"))
}

func TestForTerminalMovesConsoleToFile(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "file", ForTerminal(cfg).Output)

	cfg.Output = "none"
	assert.Equal(t, "none", ForTerminal(cfg).Output)
}
