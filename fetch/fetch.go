// Package fetch downloads raw asset content from a remote repository with
// bounded concurrency and per-file retries.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency is the fetch permit count used when none is configured.
	DefaultConcurrency = 8

	// DefaultAttempts is the per-file attempt ceiling used when none is configured.
	DefaultAttempts = 5

	// DefaultRawHost serves raw file content for GitHub repositories.
	DefaultRawHost = "https://raw.githubusercontent.com"
)

// ErrExhausted is returned when a single file fails every fetch attempt.
// It aborts the whole bundle; files are never silently skipped.
var ErrExhausted = errors.New("fetch attempts exhausted")

// Asset is one fetched file, fully downloaded.
//
// Content is buffered so that a retried attempt restarts the download from
// scratch instead of splicing a half-read body into the archive.
type Asset struct {
	Name string
	Data []byte
}

// Scheduler fetches files under a fixed concurrency ceiling.
//
// The ceiling is a property of the scheduler instance: every FetchAll call
// on the same Scheduler draws permits from the same semaphore.
type Scheduler struct {
	client   *http.Client
	rawHost  string
	mirror   string
	attempts int
	sem      *semaphore.Weighted
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConcurrency sets the fetch permit count. Values < 1 use the default.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.sem = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithAttempts sets the per-file attempt ceiling. Values < 1 use the default.
func WithAttempts(n int) Option {
	return func(s *Scheduler) {
		if n >= 1 {
			s.attempts = n
		}
	}
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scheduler) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRawHost sets the raw-content host. The default is [DefaultRawHost].
func WithRawHost(host string) Option {
	return func(s *Scheduler) {
		if host != "" {
			s.rawHost = host
		}
	}
}

// WithMirror sets a pass-through mirror prefix prepended to every asset URL.
// The mirror is a reliability detail; the request path is unchanged.
func WithMirror(prefix string) Option {
	return func(s *Scheduler) {
		s.mirror = prefix
	}
}

// WithLogger sets the logger for fetch operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a Scheduler with the given options.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		client:   http.DefaultClient,
		rawHost:  DefaultRawHost,
		attempts: DefaultAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sem == nil {
		s.sem = semaphore.NewWeighted(DefaultConcurrency)
	}
	return s
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Scheduler) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.logger
}

// FetchAll downloads every named file and hands each completed asset to
// deliver. Delivery calls are serialized but arrive in completion order,
// not request order.
//
// A file that exhausts its attempt ceiling fails the whole call with
// [ErrExhausted]; the shared context then cancels the remaining fetches.
// A non-nil error from deliver cancels the same way.
func (s *Scheduler) FetchAll(ctx context.Context, owner, repo, version string, files []string, deliver func(Asset) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for _, name := range files {
		name := name
		eg.Go(func() error {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			data, err := s.fetchOne(ctx, owner, repo, version, name)
			s.sem.Release(1)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			return deliver(Asset{Name: name, Data: data})
		})
	}
	return eg.Wait()
}

// fetchOne downloads a single file, retrying up to the attempt ceiling.
// Retries are immediate; the retry budget covers any failure, transport or
// non-success status alike.
func (s *Scheduler) fetchOne(ctx context.Context, owner, repo, version, name string) ([]byte, error) {
	url := s.assetURL(owner, repo, version, name)

	var data []byte
	attempt := 0
	op := func() error {
		attempt++
		b, err := s.download(ctx, url)
		if err != nil {
			s.log().Debug("fetch attempt failed", "file", name, "attempt", attempt, "error", err)
			return err
		}
		data = b
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(s.attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w after %d attempts: %v", name, ErrExhausted, attempt, err)
	}
	s.log().Debug("fetched", "file", name, "bytes", len(data), "attempts", attempt)
	return data, nil
}

// assetURL builds the raw-content URL for one file. The file name is kept
// verbatim, path separators included.
func (s *Scheduler) assetURL(owner, repo, version, name string) string {
	return s.mirror + s.rawHost + "/" + owner + "/" + repo + "/" + version + "/" + name
}

func (s *Scheduler) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
