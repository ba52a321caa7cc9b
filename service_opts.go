package assetbundle

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nonamekit/assetbundle/cache"
	"github.com/nonamekit/assetbundle/fetch"
)

// Option configures a Service.
type Option func(*Service) error

// WithCacheDir stores completed bundles under dir, creating it if needed.
func WithCacheDir(dir string) Option {
	return func(s *Service) error {
		if dir == "" {
			return errors.New("cache dir is empty")
		}
		s.cacheDir = dir
		return nil
	}
}

// WithStore sets a pre-built bundle cache store.
func WithStore(store *cache.Store) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithFetcher sets a pre-built fetch scheduler. Useful for sharing one
// permit ceiling across services; the scheduler's own concurrency setting
// then applies instead of WithConcurrency.
func WithFetcher(fetcher *fetch.Scheduler) Option {
	return func(s *Service) error {
		s.fetcher = fetcher
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for tag queries and downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		s.client = client
		return nil
	}
}

// WithRepoHost sets the host serving the tag-listing API.
// The default is [DefaultRepoHost].
func WithRepoHost(host string) Option {
	return func(s *Service) error {
		if host != "" {
			s.repoHost = host
		}
		return nil
	}
}

// WithRawHost sets the host serving raw file content.
// The default is [fetch.DefaultRawHost].
func WithRawHost(host string) Option {
	return func(s *Service) error {
		s.rawHost = host
		return nil
	}
}

// WithMirror sets a pass-through mirror prefix for raw downloads.
func WithMirror(prefix string) Option {
	return func(s *Service) error {
		s.mirror = prefix
		return nil
	}
}

// WithConcurrency sets the fetch permit ceiling.
// The default is [fetch.DefaultConcurrency].
func WithConcurrency(n int) Option {
	return func(s *Service) error {
		s.concurrency = n
		return nil
	}
}

// WithRetryAttempts sets the per-file fetch attempt ceiling.
// The default is [fetch.DefaultAttempts].
func WithRetryAttempts(n int) Option {
	return func(s *Service) error {
		s.attempts = n
		return nil
	}
}

// WithFallbackRepo sets the owner/repo pair used when a request names
// neither. The default is libccy/noname.
func WithFallbackRepo(owner, repo string) Option {
	return func(s *Service) error {
		if owner == "" || repo == "" {
			return errors.New("fallback owner and repo must be non-empty")
		}
		s.fallbackOwner = owner
		s.fallbackRepo = repo
		return nil
	}
}

// WithLogger sets a logger for the service. It is propagated to the cache
// store and fetch scheduler built by New. If nil, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		s.logger = logger
		return nil
	}
}
