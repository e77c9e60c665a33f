package archive

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bundlego/internal/testutil"
)

func readArchive(t *testing.T, raw []byte) map[string]*zip.File {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}
	return files
}

func TestWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"numpy/__init__.py": "import core\n",
		"numpy/core.py":     "def dot(): pass\n",
		"six.py":            "PY3 = True\n",
	})
	entries := []Entry{
		{Name: "six.py", Source: filepath.Join(root, "six.py")},
		{Name: "numpy/core.py", Source: filepath.Join(root, "numpy", "core.py")},
		{Name: "numpy/__init__.py", Source: filepath.Join(root, "numpy", "__init__.py")},
	}

	t.Run("entries are sorted and readable", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, Write(context.Background(), &buf, entries, true))

		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)
		var got []string
		for _, f := range zr.File {
			got = append(got, f.Name)
			assert.Equal(t, zip.Deflate, f.Method)
			assert.True(t, f.Modified.Equal(epoch), "timestamps are fixed")
		}
		assert.Equal(t, []string{"numpy/__init__.py", "numpy/core.py", "six.py"}, got)

		rc, err := readArchive(t, buf.Bytes())["six.py"].Open()
		require.NoError(t, err)
		defer rc.Close()
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "PY3 = True\n", string(content))
	})

	t.Run("identical inputs give identical bytes", func(t *testing.T) {
		t.Parallel()

		var first, second bytes.Buffer
		require.NoError(t, Write(context.Background(), &first, entries, true))
		reversed := []Entry{entries[2], entries[1], entries[0]}
		require.NoError(t, Write(context.Background(), &second, reversed, true))

		assert.Equal(t, first.Bytes(), second.Bytes())
	})

	t.Run("stored when compression is off", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		require.NoError(t, Write(context.Background(), &buf, entries, false))
		for _, f := range readArchive(t, buf.Bytes()) {
			assert.Equal(t, zip.Store, f.Method)
		}
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		t.Parallel()

		dup := append([]Entry{}, entries...)
		dup = append(dup, Entry{Name: "six.py", Source: filepath.Join(root, "numpy", "core.py")})

		err := Write(context.Background(), io.Discard, dup, true)
		assert.ErrorContains(t, err, `duplicate archive entry "six.py"`)
	})

	t.Run("cancelled context stops writing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := Write(ctx, io.Discard, entries, true)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTreeEntries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFiles(t, root, map[string]string{
		"heatcalc":              "#!/bin/sh",
		"_internal/library.zip": "PK",
	})

	entries, err := TreeEntries(root, "heatcalc")

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "heatcalc/_internal/library.zip", entries[0].Name)
	assert.Equal(t, "heatcalc/heatcalc", entries[1].Name)
	assert.Equal(t, filepath.Join(root, "heatcalc"), entries[1].Source)
}
