package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// ErrExists is returned by WriteDefault when the file is already present.
var ErrExists = errors.New("config file already exists")

var secretKeys = map[string]bool{"api_key": true}

// WriteDefault writes the built-in configuration as TOML.
func WriteDefault(path string, overwrite bool) error {
	if path == "" {
		path = DefaultPath()
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
	}
	v := viper.New()
	setDefaults(v)
	data, err := encodeSettings(v.AllSettings(), false)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Effective renders the merged configuration that Load would use, with
// secrets masked.
func Effective(path string) ([]byte, error) {
	v, err := newViper(path)
	if err != nil {
		return nil, err
	}
	return encodeSettings(v.AllSettings(), true)
}

func encodeSettings(settings map[string]any, redact bool) ([]byte, error) {
	data, err := toml.Marshal(plain(settings, redact))
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// plain turns durations into strings viper can parse back.
func plain(settings map[string]any, redact bool) map[string]any {
	out := make(map[string]any, len(settings))
	for key, value := range settings {
		switch typed := value.(type) {
		case map[string]any:
			out[key] = plain(typed, redact)
		case time.Duration:
			out[key] = typed.String()
		case string:
			if redact && secretKeys[strings.ToLower(key)] && typed != "" {
				out[key] = "****"
				continue
			}
			out[key] = typed
		default:
			out[key] = value
		}
	}
	return out
}
