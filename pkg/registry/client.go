// Package registry provides the shared repository client the descriptor
// readers and version resolvers sit on: transporter pooling per remote,
// response caching, and retry with backoff.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/okvist/quarry/pkg/cache"
	"github.com/okvist/quarry/pkg/errors"
	"github.com/okvist/quarry/pkg/httputil"
	"github.com/okvist/quarry/pkg/repository"
	"github.com/okvist/quarry/pkg/transport"
)

// DefaultTTL is the cache duration for repository responses when the caller
// does not choose one.
const DefaultTTL = 24 * time.Hour

// Client fetches resources from remote repositories through pooled
// transporters, with caching and automatic retries.
//
// All methods are safe for concurrent use.
type Client struct {
	cache cache.Cache
	ttl   time.Duration

	// NewTransporter creates transporters for remotes; tests override it.
	NewTransporter func(repository.Remote) (transport.Transporter, error)

	mu           sync.Mutex
	transporters map[string]transport.Transporter
}

// NewClient creates a Client over the given cache. A nil cache disables
// caching; a non-positive ttl uses [DefaultTTL].
func NewClient(c cache.Cache, ttl time.Duration) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Client{
		cache:          c,
		ttl:            ttl,
		NewTransporter: transport.New,
		transporters:   make(map[string]transport.Transporter),
	}
}

// Close closes all pooled transporters.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for id, t := range c.transporters {
		if err := t.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.transporters, id)
	}
	return firstErr
}

func (c *Client) transporter(repo repository.Remote) (transport.Transporter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.transporters[repo.ID]; ok {
		return t, nil
	}
	t, err := c.NewTransporter(repo)
	if err != nil {
		return nil, err
	}
	c.transporters[repo.ID] = t
	return t, nil
}

// Fetch downloads one resource from one repository into memory, retrying
// transient failures.
func (c *Client) Fetch(ctx context.Context, repo repository.Remote, location string) ([]byte, error) {
	t, err := c.transporter(repo)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = httputil.Retry(ctx, func() error {
		task := &transport.GetTask{Location: location}
		if err := t.Get(ctx, task); err != nil {
			if errors.Is(err, errors.ErrCodeNetwork) {
				return httputil.Retryable(err)
			}
			return err
		}
		data = task.Bytes()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// FetchFirst tries each repository in order and returns the first hit along
// with the hosting remote. A NOT_FOUND from one repository moves on to the
// next; any other failure is remembered and reported if nothing answers.
// When every repository reports NOT_FOUND the result is a NOT_FOUND error.
func (c *Client) FetchFirst(ctx context.Context, repos []repository.Remote, location string) ([]byte, repository.Remote, error) {
	var firstErr error
	for _, repo := range repos {
		data, err := c.Fetch(ctx, repo, location)
		if err == nil {
			return data, repo, nil
		}
		if errors.Is(err, errors.ErrCodeNotFound) {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, repository.Remote{}, firstErr
	}
	return nil, repository.Remote{}, errors.New(errors.ErrCodeNotFound,
		"%s not found in any of %d repositories", location, len(repos))
}

// FetchFirstCached is [Client.FetchFirst] behind the response cache. The
// cache key covers the location only, not the repository list: a cached
// response stands in for whatever repository served it.
func (c *Client) FetchFirstCached(ctx context.Context, keyNamespace string, repos []repository.Remote, location string) ([]byte, repository.Remote, error) {
	key := cache.Key(keyNamespace, location)
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		return data, repository.Remote{}, nil
	}

	data, repo, err := c.FetchFirst(ctx, repos, location)
	if err != nil {
		return nil, repository.Remote{}, err
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
	return data, repo, nil
}
