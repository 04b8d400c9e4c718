package logger

import (
	"errors"
	"strings"
)

// Config defines the logger configuration.
type Config struct {
	Level  string     `mapstructure:"level" toml:"level"`   // debug, info, warn, error
	Format string     `mapstructure:"format" toml:"format"` // json, console
	Output string     `mapstructure:"output" toml:"output"` // console, file, both, none
	File   FileConfig `mapstructure:"file" toml:"file"`
}

// FileConfig defines file output rotation.
type FileConfig struct {
	Filename   string `mapstructure:"filename" toml:"filename"`
	MaxSize    int    `mapstructure:"max_size" toml:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age" toml:"max_age"`   // days
	MaxBackups int    `mapstructure:"max_backups" toml:"max_backups"`
	Compress   bool   `mapstructure:"compress" toml:"compress"`
}

// DefaultConfig returns the console logger used by CLI commands.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "console",
		File: FileConfig{
			Filename:   "repost.log",
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   false,
		},
	}
}

// Validate validates the logger configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("invalid log level, must be one of: debug, info, warn, error")
	}

	if c.Format != "json" && c.Format != "console" {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}

	switch c.Output {
	case "console", "none":
	case "file", "both":
		if c.File.Filename == "" {
			return errors.New("log file filename is required when output is 'file' or 'both'")
		}
		if c.File.MaxSize <= 0 {
			return errors.New("log file max_size must be greater than 0")
		}
		if c.File.MaxAge <= 0 {
			return errors.New("log file max_age must be greater than 0")
		}
		if c.File.MaxBackups < 0 {
			return errors.New("log file max_backups must be greater than or equal to 0")
		}
	default:
		return errors.New("invalid log output, must be 'console', 'file', 'both' or 'none'")
	}
	return nil
}
