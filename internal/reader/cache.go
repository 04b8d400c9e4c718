package reader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	cacheEnvVar     = "REPOST_CACHE_DIR"
	cacheSubdir     = "repost/articles"
	defaultCacheTTL = 24 * time.Hour
	textSuffix      = ".md"
	metaSuffix      = ".meta"
	partialSuffix   = ".part"
)

// CacheConfig configures the on-disk article cache.
type CacheConfig struct {
	Dir       string
	TTL       time.Duration
	Namespace string
	Now       func() time.Time
	Logger    *zap.Logger
}

// Cache keeps fetched articles on disk. Fresh entries skip the network and
// stale entries are served when a refresh fails.
type Cache struct {
	next      Fetcher
	dir       string
	ttl       time.Duration
	namespace string
	now       func() time.Time
	log       *zap.Logger
}

type cacheMeta struct {
	URL       string    `json:"url"`
	Namespace string    `json:"namespace"`
	CachedAt  time.Time `json:"cachedAt"`
	Size      int64     `json:"size"`
}

// NewCache wraps next with a disk cache.
func NewCache(next Fetcher, cfg CacheConfig) (*Cache, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = os.Getenv(cacheEnvVar)
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = filepath.Join(os.TempDir(), "repost-cache")
		}
		dir = filepath.Join(base, cacheSubdir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{next: next, dir: dir, ttl: ttl, namespace: cfg.Namespace, now: now, log: log.Named("reader.cache")}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Fetch implements Fetcher.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", ErrEmptyURL
	}
	textPath, metaPath := c.pathsFor(c.key(rawURL))

	meta, metaErr := readMeta(metaPath)
	cached, textErr := os.ReadFile(textPath)
	haveCopy := metaErr == nil && textErr == nil
	if haveCopy && c.now().Sub(meta.CachedAt) < c.ttl {
		return string(cached), nil
	}

	text, err := c.next.Fetch(ctx, rawURL)
	if err != nil {
		if haveCopy && !errors.Is(err, ErrEmptyURL) {
			c.log.Warn("serving stale article", zap.String("url", rawURL), zap.Time("cached_at", meta.CachedAt), zap.Error(err))
			return string(cached), nil
		}
		return "", err
	}
	// Write failures are not fatal.
	if err := c.store(textPath, metaPath, rawURL, text); err != nil {
		c.log.Warn("cache write failed", zap.String("url", rawURL), zap.String("dir", c.dir), zap.Error(err))
	}
	return text, nil
}

func (c *Cache) store(textPath, metaPath, rawURL, text string) error {
	partial := textPath + partialSuffix
	if err := os.WriteFile(partial, []byte(text), 0o644); err != nil {
		return err
	}
	if err := os.Rename(partial, textPath); err != nil {
		return err
	}
	return writeMeta(metaPath, cacheMeta{
		URL:       rawURL,
		Namespace: c.namespace,
		CachedAt:  c.now().UTC(),
		Size:      int64(len(text)),
	})
}

func (c *Cache) key(rawURL string) string {
	sum := sha1.Sum([]byte(c.namespace + "\x00" + rawURL))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) pathsFor(key string) (string, string) {
	return filepath.Join(c.dir, key+textSuffix), filepath.Join(c.dir, key+metaSuffix)
}

func readMeta(path string) (cacheMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cacheMeta{}, err
	}
	var meta cacheMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

func writeMeta(path string, meta cacheMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
