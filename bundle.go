package assetbundle

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/nonamekit/assetbundle/archive"
	"github.com/nonamekit/assetbundle/cache"
	"github.com/nonamekit/assetbundle/fetch"
)

// Request names a subset of files in one version of a remote repository.
// It is immutable once handed to Bundle.
type Request struct {
	// Owner and Repo identify the repository. Empty values fall back to
	// the service's configured default pair.
	Owner string
	Repo  string

	// Version pins the repository version. Empty means resolve the
	// latest tag.
	Version string

	// Files are the requested file names, order preserved, duplicates
	// permitted. Each becomes one archive entry under its verbatim name.
	Files []string
}

// Result describes the bundle produced for one request.
type Result struct {
	Owner        string
	Repo         string
	Version      string
	Key          string
	ArtifactName string

	// FromCache is true when the archive was served from a previously
	// committed bundle rather than built by this request.
	FromCache bool
}

// SinkFunc returns the destination for archive bytes. It is called once
// per request, after the artifact identity is known and before the first
// byte is written, so transports can emit headers carrying the artifact
// name ahead of the body.
type SinkFunc func(res *Result) (io.Writer, error)

// Bundle processes one request to completion.
//
// Pipeline: resolve version, derive the cache key, then either stream a
// previously committed bundle from the cache or fetch the files, build
// the archive, and tee it to both the cache and the sink. Any failure
// during a build discards the partial cache entry before returning.
//
// Concurrent requests for the same artifact coalesce: one build runs and
// streams to its own sink, late arrivals wait for it to commit and then
// stream the cached bundle. A failed build fails its waiters too.
func (s *Service) Bundle(ctx context.Context, req Request, open SinkFunc) (*Result, error) {
	owner, repo := req.Owner, req.Repo
	if owner == "" {
		owner = s.fallbackOwner
	}
	if repo == "" {
		repo = s.fallbackRepo
	}

	version, err := s.ResolveVersion(ctx, owner, repo, req.Version)
	if err != nil {
		return nil, err
	}

	key := DeriveKey(req.Files)
	res := &Result{
		Owner:        owner,
		Repo:         repo,
		Version:      version,
		Key:          key,
		ArtifactName: cache.ArtifactName(owner, repo, version, key),
	}

	ok, err := s.store.Exists(owner, repo, version, key)
	if err != nil {
		return nil, err
	}
	if ok {
		res.FromCache = true
		sink, err := open(res)
		if err != nil {
			return nil, err
		}
		s.log().Info("serving cached bundle", "artifact", res.ArtifactName)
		return res, s.streamCached(res, sink)
	}

	led := false
	_, err, _ = s.builds.Do(res.ArtifactName, func() (any, error) {
		led = true
		sink, err := open(res)
		if err != nil {
			return nil, err
		}
		return nil, s.build(ctx, res, req.Files, sink)
	})
	if err != nil {
		return nil, err
	}
	if !led {
		// Another request built this bundle while we waited; serve the
		// committed entry.
		res.FromCache = true
		sink, err := open(res)
		if err != nil {
			return nil, err
		}
		return res, s.streamCached(res, sink)
	}
	return res, nil
}

// build fetches the requested files and streams them into a zip whose
// bytes go simultaneously to the cache write sink and the response sink.
// The cache sink is opened before any fetch is dispatched so that its
// lifetime spans the whole build, and it is discarded on any failure.
func (s *Service) build(ctx context.Context, res *Result, files []string, sink io.Writer) (err error) {
	w, err := s.store.Writer(res.Owner, res.Repo, res.Version, res.Key)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if derr := w.Discard(); derr != nil {
				s.log().Error("discarding partial bundle", "artifact", res.ArtifactName, "error", derr)
			}
		}
	}()

	s.log().Info("building bundle", "artifact", res.ArtifactName, "files", len(files))

	builder := archive.NewBuilder(io.MultiWriter(w, sink))
	err = s.fetcher.FetchAll(ctx, res.Owner, res.Repo, res.Version, files, func(a fetch.Asset) error {
		return builder.Append(a.Name, bytes.NewReader(a.Data))
	})
	if err != nil {
		return err
	}
	if err = builder.Close(); err != nil {
		return err
	}
	return w.Commit()
}

func (s *Service) streamCached(res *Result, sink io.Writer) error {
	rc, err := s.store.Open(res.Owner, res.Repo, res.Version, res.Key)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if _, err := io.Copy(sink, rc); err != nil {
		return fmt.Errorf("stream cached bundle %s: %w", res.ArtifactName, err)
	}
	return nil
}
