// Package cache persists completed bundle archives on the local filesystem.
//
// Each bundle is a single file named by its sanitized artifact name; there
// is no separate index. A file's existence means the bundle it holds was
// fully built and committed.
package cache

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultDirPerm = 0o700

	artifactPrefix = "noname-asset-"
	artifactExt    = ".zip"
)

// ErrStorage is returned when the underlying storage faults. A plain
// "not yet cached" condition is never an error; see Store.Exists.
var ErrStorage = errors.New("cache storage fault")

// artifactSanitizer replaces characters that are unsafe in file names or
// HTTP headers. Applied to the whole composed artifact name, not just the
// version segment.
var artifactSanitizer = strings.NewReplacer(
	"/", "-", `\`, "-", "?", "-", "%", "-", "*", "-",
	":", "-", "|", "-", `"`, "-", "<", "-", ">", "-",
)

// ArtifactName composes the externally visible name for a bundle.
func ArtifactName(owner, repo, version, key string) string {
	name := artifactPrefix + owner + "-" + repo + "-" + version + "-" + key + artifactExt
	return artifactSanitizer.Replace(name)
}

// Store implements the bundle cache on a local directory.
type Store struct {
	dir     string
	dirPerm os.FileMode
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDirPerm sets the permissions used when creating the cache directory.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithLogger sets the logger for store operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	s := &Store{
		dir:     dir,
		dirPerm: defaultDirPerm,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Store) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.logger
}

// Path returns the storage location for a bundle.
func (s *Store) Path(owner, repo, version, key string) string {
	return filepath.Join(s.dir, ArtifactName(owner, repo, version, key))
}

// Exists reports whether a completed bundle is present.
func (s *Store) Exists(owner, repo, version, key string) (bool, error) {
	_, err := os.Stat(s.Path(owner, repo, version, key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrStorage, err)
}

// Open returns a reader over a completed bundle.
//
// Callers are expected to have seen Exists return true; a bundle that
// vanished in between is reported as a storage fault.
func (s *Store) Open(owner, repo, version, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(owner, repo, version, key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return f, nil
}

// Writer opens a write sink for a new bundle.
//
// Bytes go to a temporary file in the cache directory. Commit renames it
// into place; Discard unlinks it. Exactly one of the two must be called,
// and Discard after a failed Commit is a no-op.
func (s *Store) Writer(owner, repo, version, key string) (Writer, error) {
	final := s.Path(owner, repo, version, key)
	if err := os.MkdirAll(filepath.Dir(final), s.dirPerm); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), "bundle-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	s.log().Debug("opened bundle write sink", "path", final, "tmp", tmp.Name())
	return &fileWriter{
		file:      tmp,
		tmpPath:   tmp.Name(),
		finalPath: final,
	}, nil
}

// Writer is a bundle write sink that must be explicitly finalized.
type Writer interface {
	io.Writer

	// Commit makes the bundle visible to readers.
	Commit() error

	// Discard removes the partially written bundle.
	Discard() error
}

type fileWriter struct {
	file      *os.File
	tmpPath   string
	finalPath string
	done      bool
}

func (w *fileWriter) Write(p []byte) (int, error) {
	n, err := w.file.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return n, nil
}

func (w *fileWriter) Commit() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.file.Close(); err != nil {
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := os.Rename(w.tmpPath, w.finalPath); err != nil {
		// Losing the rename race to a concurrent build of the same
		// bundle leaves a complete entry in place, which is success.
		if _, statErr := os.Stat(w.finalPath); statErr == nil {
			_ = os.Remove(w.tmpPath)
			return nil
		}
		_ = os.Remove(w.tmpPath)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (w *fileWriter) Discard() error {
	if w.done {
		return nil
	}
	w.done = true
	_ = w.file.Close()
	if err := os.Remove(w.tmpPath); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}
