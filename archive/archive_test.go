package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := NewBuilder(&buf)
	require.NoError(t, b.Append("game/game.js", strings.NewReader("var game = {};")))
	require.NoError(t, b.Append("README.md", strings.NewReader("# readme")))
	require.NoError(t, b.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)

	// Names are preserved verbatim, path separators included.
	assert.Equal(t, "game/game.js", zr.File[0].Name)
	assert.Equal(t, zip.Deflate, zr.File[0].Method)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "var game = {};", string(content))
}

func TestBuilderDuplicateNames(t *testing.T) {
	t.Parallel()

	// The manifest permits duplicates; each becomes its own entry.
	var buf bytes.Buffer
	b := NewBuilder(&buf)
	require.NoError(t, b.Append("a.txt", strings.NewReader("one")))
	require.NoError(t, b.Append("a.txt", strings.NewReader("two")))
	require.NoError(t, b.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestBuilderEmptyArchive(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := NewBuilder(&buf)
	require.NoError(t, b.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Empty(t, zr.File)
}

func TestBuilderSinkFailure(t *testing.T) {
	t.Parallel()

	b := NewBuilder(&failingWriter{})
	err := b.Append("a.txt", strings.NewReader(strings.Repeat("x", 1<<16)))
	if err == nil {
		err = b.Close()
	}
	assert.ErrorIs(t, err, ErrArchive)
}

type failingWriter struct{}

func (*failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}
