package cli

import (
	"context"

	"github.com/okvist/quarry/pkg/cache"
	"github.com/okvist/quarry/pkg/collector"
	"github.com/okvist/quarry/pkg/registry"
	"github.com/okvist/quarry/pkg/registry/maven"
	"github.com/okvist/quarry/pkg/repository"
)

// engine bundles the wired-up collection stack shared by the collect,
// export, and serve commands.
type engine struct {
	collector *collector.Collector
	session   *collector.Session
	remotes   []repository.Remote
	client    *registry.Client
	cache     cache.Cache
}

// newEngine wires reader, version resolver, and merger over the configured
// cache backend. Callers own the returned engine and must Close it.
func newEngine(ctx context.Context, cfg *Config) (*engine, error) {
	session, err := cfg.Session()
	if err != nil {
		return nil, err
	}
	remotes, err := cfg.Remotes()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	responseCache, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, err
	}

	client := registry.NewClient(responseCache, ttl)
	reader, err := maven.NewReader(client)
	if err != nil {
		client.Close()
		responseCache.Close()
		return nil, err
	}

	return &engine{
		collector: collector.New(reader, maven.NewVersionResolver(client), repository.NewMerger()),
		session:   session,
		remotes:   remotes,
		client:    client,
		cache:     responseCache,
	}, nil
}

// Close releases pooled transporters and the cache backend.
func (e *engine) Close() error {
	err := e.client.Close()
	if cerr := e.cache.Close(); err == nil {
		err = cerr
	}
	return err
}
