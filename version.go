package assetbundle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SentinelTag is always excluded from automatic latest-version selection.
const SentinelTag = "v1998"

// tagEntry is the subset of the tag-listing payload the resolver uses.
type tagEntry struct {
	Name string `json:"name"`
}

// ResolveVersion determines the concrete version to fetch.
//
// A non-empty pinned version is returned verbatim with no remote call;
// pinned versions are trusted, not validated. Otherwise the remote tag
// list is queried once and the first tag whose name differs from
// [SentinelTag] wins, relying on the server's newest-first ordering.
// The tag query is never retried.
func (s *Service) ResolveVersion(ctx context.Context, owner, repo, version string) (string, error) {
	if version != "" {
		return version, nil
	}

	url := fmt.Sprintf("%s/repos/%s/%s/tags", s.repoHost, owner, repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionResolution, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionResolution, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status: %s", ErrVersionResolution, resp.Status)
	}

	var tags []tagEntry
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVersionResolution, err)
	}

	for _, tag := range tags {
		if tag.Name != "" && tag.Name != SentinelTag {
			s.log().Debug("resolved latest tag", "owner", owner, "repo", repo, "version", tag.Name)
			return tag.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s/%s", ErrNoUsableTag, owner, repo)
}
