package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bundlego/internal/mapping"
	"github.com/vk/bundlego/internal/testutil"
)

func TestCopyPool(t *testing.T) {
	t.Parallel()

	src := t.TempDir()
	sources := map[string]string{}
	var files []mapping.File
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("table%02d.csv", i)
		sources[name] = fmt.Sprintf("k\n%d\n", i)
		files = append(files, mapping.File{Source: filepath.Join(src, name), Target: "data/" + name, Label: "tables"})
	}
	testutil.WriteFiles(t, src, sources)

	t.Run("copies every file", func(t *testing.T) {
		t.Parallel()

		dst := t.TempDir()
		ctx, _ := testutil.Context(t)

		require.NoError(t, newCopyPool(dst, len(files)).run(ctx, files))
		for name, content := range sources {
			assert.Equal(t, content, testutil.ReadFile(t, dst, "data/"+name))
		}
	})

	t.Run("first failure is reported", func(t *testing.T) {
		t.Parallel()

		dst := t.TempDir()
		ctx, _ := testutil.Context(t)
		broken := append([]mapping.File{{Source: filepath.Join(src, "gone.csv"), Target: "data/gone.csv", Label: "missing"}}, files...)

		err := newCopyPool(dst, len(broken)).run(ctx, broken)

		assert.ErrorContains(t, err, `copying data "missing"`)
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		base, _ := testutil.Context(t)
		ctx, cancel := context.WithCancel(base)
		cancel()

		err := newCopyPool(t.TempDir(), len(files)).run(ctx, files)

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("worker count is bounded", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, 1, newCopyPool("", 0).workers)
		assert.Equal(t, 1, newCopyPool("", 1).workers)
		assert.LessOrEqual(t, newCopyPool("", 100).workers, maxCopyWorkers)
	})
}
