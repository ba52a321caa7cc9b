package assetbundle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc, err := New(append([]Option{WithCacheDir(t.TempDir())}, opts...)...)
	require.NoError(t, err)
	return svc
}

func TestResolveVersionPinned(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	t.Cleanup(server.Close)

	svc := newTestService(t, WithRepoHost(server.URL))
	version, err := svc.ResolveVersion(context.Background(), "o", "r", "v2.5")
	require.NoError(t, err)
	assert.Equal(t, "v2.5", version)
	assert.Zero(t, calls.Load(), "pinned versions must not hit the remote")
}

func TestResolveVersionSentinelExcluded(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/tags", r.URL.Path)
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`[{"name":"v1998"},{"name":"v2.0"},{"name":"v1.0"}]`))
	}))
	t.Cleanup(server.Close)

	svc := newTestService(t, WithRepoHost(server.URL))
	version, err := svc.ResolveVersion(context.Background(), "o", "r", "")
	require.NoError(t, err)
	assert.Equal(t, "v2.0", version)
}

func TestResolveVersionNoUsableTag(t *testing.T) {
	t.Parallel()

	for name, body := range map[string]string{
		"only sentinel": `[{"name":"v1998"}]`,
		"empty list":    `[]`,
	} {
		body := body
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			t.Cleanup(server.Close)

			svc := newTestService(t, WithRepoHost(server.URL))
			_, err := svc.ResolveVersion(context.Background(), "o", "r", "")
			assert.ErrorIs(t, err, ErrNoUsableTag)
		})
	}
}

func TestResolveVersionRemoteFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	svc := newTestService(t, WithRepoHost(server.URL))
	_, err := svc.ResolveVersion(context.Background(), "o", "r", "")
	assert.ErrorIs(t, err, ErrVersionResolution)
	assert.Equal(t, int32(1), calls.Load(), "tag queries are not retried")
}

func TestResolveVersionMalformedBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	t.Cleanup(server.Close)

	svc := newTestService(t, WithRepoHost(server.URL))
	_, err := svc.ResolveVersion(context.Background(), "o", "r", "")
	assert.ErrorIs(t, err, ErrVersionResolution)
}
