package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/okvist/quarry/pkg/cache"
	"github.com/okvist/quarry/pkg/collector"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/manager"
	"github.com/okvist/quarry/pkg/repository"
)

// Config is the on-disk configuration, read from
// ~/.config/quarry/config.toml unless --config points elsewhere. Every field
// has a working default; an absent file is not an error.
type Config struct {
	Repositories []RepositoryConfig `toml:"repositories"`
	Cache        CacheConfig        `toml:"cache"`
	Collection   CollectionConfig   `toml:"collection"`
	Server       ServerConfig       `toml:"server"`
}

// RepositoryConfig declares one remote repository.
type RepositoryConfig struct {
	ID       string `toml:"id"`
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// CacheConfig selects and tunes the response cache backend.
type CacheConfig struct {
	// Backend is one of "file", "memory", "redis", "mongo", or "none".
	Backend string `toml:"backend"`

	Dir        string `toml:"dir"`         // file backend, default under the user cache dir
	TTL        string `toml:"ttl"`         // Go duration, default "24h"
	MaxEntries int    `toml:"max_entries"` // memory backend

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Mongo struct {
		URI        string `toml:"uri"`
		Database   string `toml:"database"`
		Collection string `toml:"collection"`
	} `toml:"mongo"`
}

// CollectionConfig tunes the collection session.
type CollectionConfig struct {
	// Manager is one of "classic", "transitive", or "none".
	Manager string `toml:"manager"`

	IgnoredScopes             []string `toml:"ignored_scopes"`
	VerboseManagement         bool     `toml:"verbose_management"`
	DescriptorErrorsFatal     *bool    `toml:"descriptor_errors_fatal"`
	MissingDescriptorsAsEmpty bool     `toml:"missing_descriptors_as_empty"`
}

// ServerConfig tunes the serve command.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfigPath returns the standard config file location.
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "quarry", "config.toml"), nil
}

// LoadConfig reads the config file at path, or the default location when
// path is empty. A missing file yields the built-in defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, err, "bad config file %s", path)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{
		Repositories: []RepositoryConfig{
			{ID: "central", URL: "https://repo1.maven.org/maven2"},
		},
	}
	cfg.Cache.Backend = "file"
	cfg.Cache.TTL = "24h"
	cfg.Collection.Manager = "classic"
	cfg.Collection.IgnoredScopes = []string{"test", "provided", "system"}
	cfg.Server.Addr = ":8675"
	return cfg
}

// Remotes converts the configured repositories.
func (c *Config) Remotes() ([]repository.Remote, error) {
	remotes := make([]repository.Remote, 0, len(c.Repositories))
	for _, rc := range c.Repositories {
		if err := errors.ValidateRepositoryID(rc.ID); err != nil {
			return nil, err
		}
		if err := errors.ValidateURL(rc.URL); err != nil {
			return nil, err
		}
		remote := repository.NewRemote(rc.ID, rc.URL)
		if rc.Username != "" {
			remote.Auth = &repository.Auth{Username: rc.Username, Password: rc.Password}
		}
		remotes = append(remotes, remote)
	}
	return remotes, nil
}

// Session builds the collection session from the configuration.
func (c *Config) Session() (*collector.Session, error) {
	session := collector.NewSession()
	switch c.Collection.Manager {
	case "", "classic":
		session.Manager = manager.NewClassic()
	case "transitive":
		session.Manager = manager.NewTransitive()
	case "none":
		session.Manager = manager.NewNoop()
	default:
		return nil, errors.New(errors.ErrCodeInvalidRequest,
			"unknown manager %q (expected classic, transitive, or none)", c.Collection.Manager)
	}

	session.IgnoredScopes = c.Collection.IgnoredScopes
	session.VerboseManagement = c.Collection.VerboseManagement
	session.MissingDescriptorsAsEmpty = c.Collection.MissingDescriptorsAsEmpty
	if c.Collection.DescriptorErrorsFatal != nil {
		session.DescriptorErrorsFatal = *c.Collection.DescriptorErrorsFatal
	}
	return session, nil
}

// CacheTTL parses the configured TTL.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 24 * time.Hour, nil
	}
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidRequest, err, "bad cache ttl %q", c.Cache.TTL)
	}
	return ttl, nil
}

// OpenCache opens the configured cache backend.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case "", "file":
		dir := c.Cache.Dir
		if dir == "" {
			base, err := os.UserCacheDir()
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(base, "quarry")
		}
		return cache.NewFileCache(dir)
	case "memory":
		return cache.NewMemoryCache(c.Cache.MaxEntries)
	case "redis":
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.Redis.Addr,
			Password: c.Cache.Redis.Password,
			DB:       c.Cache.Redis.DB,
		})
	case "mongo":
		return cache.NewMongoCache(ctx, cache.MongoConfig{
			URI:        c.Cache.Mongo.URI,
			Database:   c.Cache.Mongo.Database,
			Collection: c.Cache.Mongo.Collection,
		})
	case "none":
		return cache.NewNullCache(), nil
	}
	return nil, errors.New(errors.ErrCodeInvalidRequest,
		"unknown cache backend %q (expected file, memory, redis, mongo, or none)", c.Cache.Backend)
}

// cacheDir returns the file-cache directory for the cache subcommands.
func cacheDir(cfg *Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "quarry"), nil
}
