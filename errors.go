package assetbundle

import (
	"errors"

	"github.com/nonamekit/assetbundle/archive"
	"github.com/nonamekit/assetbundle/cache"
	"github.com/nonamekit/assetbundle/fetch"
)

var (
	// ErrVersionResolution is returned when the remote tag query fails.
	// Version resolution is never retried.
	ErrVersionResolution = errors.New("version resolution failed")

	// ErrNoUsableTag is returned when every listed tag is the excluded
	// sentinel, or the tag list is empty.
	ErrNoUsableTag = errors.New("no usable tag")
)

// Errors re-exported from subpackages.
var (
	// ErrStorage is returned on bundle cache storage faults.
	ErrStorage = cache.ErrStorage

	// ErrExhausted is returned when a single file fails every fetch attempt.
	ErrExhausted = fetch.ErrExhausted

	// ErrArchive is returned when writing or finalizing the zip stream fails.
	ErrArchive = archive.ErrArchive
)
