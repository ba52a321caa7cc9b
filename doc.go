// Package assetbundle assembles compressed archives from named subsets of
// files in a remote source repository, reusing previously built archives
// whenever possible.
//
// The high-level entry point is [Service]. One call to [Service.Bundle]
// resolves the repository version, derives a cache key from the requested
// file list, and either streams a previously built archive from the cache
// or fetches the files (bounded concurrency, per-file retries), streams
// them into a deflate-compressed zip, and tees the archive bytes to both
// the cache and the caller's sink.
//
// # Quick Start
//
//	svc, err := assetbundle.New(
//	    assetbundle.WithCacheDir("/var/cache/assetbundle"),
//	)
//	if err != nil {
//	    return err
//	}
//	res, err := svc.Bundle(ctx, assetbundle.Request{
//	    Owner: "libccy",
//	    Repo:  "noname",
//	    Files: []string{"game/game.js", "game/config.js"},
//	}, func(res *assetbundle.Result) (io.Writer, error) {
//	    return out, nil
//	})
//
// The sink is opened through a callback so that transports can emit
// headers carrying the artifact name before the first archive byte.
//
// Subpackages hold the leaf components: [github.com/nonamekit/assetbundle/cache]
// persists completed bundles, [github.com/nonamekit/assetbundle/fetch]
// downloads raw content, [github.com/nonamekit/assetbundle/archive] writes
// the zip stream, and [github.com/nonamekit/assetbundle/httpapi] exposes
// the service over HTTP.
package assetbundle
