package assetbundle

import (
	"strings"

	"github.com/opencontainers/go-digest"
)

// DeriveKey computes the cache key for an ordered file-name list: the
// lowercase hex SHA-256 digest of the names concatenated with no
// separator.
//
// The key is order-sensitive on purpose: the same names in a different
// order identify a distinct bundle. Strict manifest identity, carried
// over from the original behavior.
func DeriveKey(files []string) string {
	return digest.SHA256.FromString(strings.Join(files, "")).Encoded()
}
