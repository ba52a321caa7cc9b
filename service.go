package assetbundle

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/nonamekit/assetbundle/cache"
	"github.com/nonamekit/assetbundle/fetch"
)

// DefaultRepoHost serves the tag-listing API for GitHub repositories.
const DefaultRepoHost = "https://api.github.com"

// Default fallback repository used when a request names no owner/repo.
const (
	DefaultOwner = "libccy"
	DefaultRepo  = "noname"
)

// Service drives the bundling pipeline for one request at a time: resolve
// version, derive the cache key, then serve from cache or fetch, build,
// and persist. It holds no cross-request state beyond what the cache
// store persists, plus an in-flight build table used to coalesce
// concurrent builds of the same bundle.
type Service struct {
	store   *cache.Store
	fetcher *fetch.Scheduler
	client  *http.Client
	logger  *slog.Logger

	repoHost      string
	fallbackOwner string
	fallbackRepo  string

	// Scheduler configuration collected from options; the scheduler is
	// built once in New so its permit ceiling spans all requests.
	cacheDir    string
	rawHost     string
	mirror      string
	concurrency int
	attempts    int

	builds singleflight.Group
}

// New creates a Service with the given options.
//
// A cache location is required: configure one with WithCacheDir or supply
// a store with WithStore.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		client:        http.DefaultClient,
		repoHost:      DefaultRepoHost,
		fallbackOwner: DefaultOwner,
		fallbackRepo:  DefaultRepo,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.store == nil {
		if s.cacheDir == "" {
			return nil, errors.New("no cache configured: use WithCacheDir or WithStore")
		}
		store, err := cache.New(s.cacheDir, cache.WithLogger(s.logger))
		if err != nil {
			return nil, err
		}
		s.store = store
	}

	if s.fetcher == nil {
		fetchOpts := []fetch.Option{
			fetch.WithHTTPClient(s.client),
			fetch.WithConcurrency(s.concurrency),
			fetch.WithAttempts(s.attempts),
			fetch.WithRawHost(s.rawHost),
			fetch.WithMirror(s.mirror),
		}
		if s.logger != nil {
			fetchOpts = append(fetchOpts, fetch.WithLogger(s.logger))
		}
		s.fetcher = fetch.New(fetchOpts...)
	}

	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Service) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.logger
}

// Store returns the bundle cache store in use.
func (s *Service) Store() *cache.Store {
	return s.store
}
