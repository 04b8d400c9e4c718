package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/csheth/repost/internal/logger"
)

const (
	envPrefix  = "REPOST"
	appDir     = "repost"
	configName = "config"
	configType = "toml"
)

// Config is the effective runtime configuration.
type Config struct {
	SettingsPath string         `mapstructure:"settings_path"`
	Reader       ReaderConfig   `mapstructure:"reader"`
	LLM          LLMConfig      `mapstructure:"llm"`
	Image        ImageConfig    `mapstructure:"image"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
	Document     DocumentConfig `mapstructure:"document"`
	Server       ServerConfig   `mapstructure:"server"`
	Log          logger.Config  `mapstructure:"log"`
}

// ReaderConfig controls how article text is fetched.
type ReaderConfig struct {
	Mode      string        `mapstructure:"mode" validate:"oneof=jina direct auto"`
	Endpoint  string        `mapstructure:"endpoint" validate:"required,url"`
	APIKey    string        `mapstructure:"api_key"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	CacheDir  string        `mapstructure:"cache_dir"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
}

// LLMConfig selects the post generator.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider" validate:"oneof=openrouter ollama"`
	Model         string        `mapstructure:"model"`
	Endpoint      string        `mapstructure:"endpoint" validate:"omitempty,url"`
	Language      string        `mapstructure:"language" validate:"required"`
	Temperature   float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxInputChars int           `mapstructure:"max_input_chars" validate:"gt=0"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// ImageConfig shapes generated image addresses.
type ImageConfig struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	Width    int    `mapstructure:"width" validate:"gt=0"`
	Height   int    `mapstructure:"height" validate:"gt=0"`
	NoLogo   bool   `mapstructure:"nologo"`
	Model    string `mapstructure:"model"`
	Seed     int    `mapstructure:"seed" validate:"gte=0"`
}

// TelegramConfig configures the publisher.
type TelegramConfig struct {
	Endpoint      string        `mapstructure:"endpoint" validate:"required,url"`
	CaptionLimit  int           `mapstructure:"caption_limit" validate:"min=4,max=4096"`
	RatePerMinute float64       `mapstructure:"rate_per_minute" validate:"gte=0"`
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// DocumentConfig controls segmentation.
type DocumentConfig struct {
	SegmentLength int `mapstructure:"segment_length" validate:"gt=0"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr        string   `mapstructure:"addr" validate:"required"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Dir returns the directory holding config.toml.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), "repost-config")
	}
	return filepath.Join(base, appDir)
}

// DefaultPath returns the config file location used when none is given.
func DefaultPath() string {
	return filepath.Join(Dir(), configName+"."+configType)
}

func cacheDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		base = filepath.Join(os.TempDir(), "repost-cache")
	}
	return filepath.Join(base, appDir)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("settings_path", "")

	v.SetDefault("reader.mode", "jina")
	v.SetDefault("reader.endpoint", "https://r.jina.ai/")
	v.SetDefault("reader.api_key", "")
	v.SetDefault("reader.user_agent", "repost/1.0")
	v.SetDefault("reader.timeout", 35*time.Second)
	v.SetDefault("reader.cache_dir", filepath.Join(cacheDir(), "articles"))
	v.SetDefault("reader.cache_ttl", 24*time.Hour)

	v.SetDefault("llm.provider", "openrouter")
	// Empty model and endpoint select the provider's own defaults.
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.endpoint", "")
	v.SetDefault("llm.language", "English")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_input_chars", 20000)
	v.SetDefault("llm.timeout", 2*time.Minute)

	v.SetDefault("image.endpoint", "https://image.pollinations.ai/prompt/")
	v.SetDefault("image.width", 1024)
	v.SetDefault("image.height", 1024)
	v.SetDefault("image.nologo", true)
	v.SetDefault("image.model", "")
	v.SetDefault("image.seed", 0)

	v.SetDefault("telegram.endpoint", "https://api.telegram.org")
	v.SetDefault("telegram.caption_limit", 1024)
	v.SetDefault("telegram.rate_per_minute", 20.0)
	v.SetDefault("telegram.timeout", 30*time.Second)

	v.SetDefault("document.segment_length", 5000)

	v.SetDefault("server.addr", "127.0.0.1:8787")
	v.SetDefault("server.cors_origins", []string{"*"})

	logDefaults := logger.DefaultConfig()
	v.SetDefault("log.level", logDefaults.Level)
	v.SetDefault("log.format", logDefaults.Format)
	v.SetDefault("log.output", logDefaults.Output)
	v.SetDefault("log.file.filename", filepath.Join(cacheDir(), "repost.log"))
	v.SetDefault("log.file.max_size", logDefaults.File.MaxSize)
	v.SetDefault("log.file.max_age", logDefaults.File.MaxAge)
	v.SetDefault("log.file.max_backups", logDefaults.File.MaxBackups)
	v.SetDefault("log.file.compress", logDefaults.File.Compress)
}

func newViper(path string) (*viper.Viper, error) {
	loadDotEnv()

	v := viper.New()
	setDefaults(v)
	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return v, nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath(Dir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return v, nil
}

// loadDotEnv reads a .env file from the working directory when present.
// Variables already set in the environment win.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// Load reads defaults, the config file, .env and REPOST_* variables, in
// increasing order of precedence. An empty path looks for config.toml in Dir
// and tolerates its absence.
func Load(path string) (Config, error) {
	v, err := newViper(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	c.Reader.Mode = strings.ToLower(strings.TrimSpace(c.Reader.Mode))
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.LLM.Endpoint = strings.TrimRight(c.LLM.Endpoint, "/")
	c.Telegram.Endpoint = strings.TrimRight(c.Telegram.Endpoint, "/")
	c.Log.Level = strings.ToLower(c.Log.Level)
}

var validate = validator.New()

// Validate checks every section.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q (value %v)", first.Namespace(), first.Tag(), first.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("invalid config: log: %w", err)
	}
	return nil
}
