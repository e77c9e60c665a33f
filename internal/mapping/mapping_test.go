package mapping

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/testutil"
)

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	t.Run("duplicates collapse in declaration order", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		mappings := []*config.DataMapping{
			{Label: "csv", Source: "data/*.csv", Destination: "data"},
			{Label: "figures", Source: "assets/*.png", Destination: "assets"},
			{Label: "csv_again", Source: "./data/*.csv", Destination: "data/"},
			{Label: "csv", Source: "data/*.csv", Destination: "data"},
		}

		// --- Act ---
		entries, warnings, err := Canonicalize(mappings)

		// --- Assert ---
		require.NoError(t, err)
		want := []*Entry{
			{Labels: []string{"csv", "csv_again"}, Pattern: "data/*.csv", Destination: "data"},
			{Labels: []string{"figures"}, Pattern: "assets/*.png", Destination: "assets"},
		}
		if diff := cmp.Diff(want, entries); diff != "" {
			t.Errorf("entries mismatch (-want +got):\n%s", diff)
		}

		require.Len(t, warnings, 1)
		var redundant *builderr.RedundantMappingWarning
		require.True(t, errors.As(warnings[0], &redundant))
		assert.Equal(t, []string{"csv", "csv_again", "csv"}, redundant.Labels)
	})

	t.Run("empty destination is the bundle root", func(t *testing.T) {
		t.Parallel()

		entries, warnings, err := Canonicalize([]*config.DataMapping{{Label: "pdf", Source: "coverpage.pdf"}})

		require.NoError(t, err)
		assert.Empty(t, warnings)
		require.Len(t, entries, 1)
		assert.Equal(t, ".", entries[0].Destination)
	})

	testCases := []struct {
		name    string
		mapping *config.DataMapping
		reason  string
	}{
		{
			name:    "malformed glob",
			mapping: &config.DataMapping{Label: "bad", Source: "data/[a-", Destination: "data"},
			reason:  "invalid glob pattern",
		},
		{
			name:    "empty source",
			mapping: &config.DataMapping{Label: "empty", Source: "  ", Destination: "data"},
			reason:  "invalid glob pattern",
		},
		{
			name:    "escaping destination",
			mapping: &config.DataMapping{Label: "escape", Source: "data/*.csv", Destination: "../outside"},
			reason:  "inside the bundle",
		},
		{
			name:    "absolute destination",
			mapping: &config.DataMapping{Label: "abs", Source: "data/*.csv", Destination: "/etc"},
			reason:  "inside the bundle",
		},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := Canonicalize([]*config.DataMapping{tc.mapping})

			var invalid *builderr.InvalidPatternError
			require.True(t, errors.As(err, &invalid), "expected InvalidPatternError, got %v", err)
			assert.Equal(t, tc.mapping.Label, invalid.Label)
			assert.Contains(t, invalid.Reason, tc.reason)
		})
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()

	newTree := func(t *testing.T) string {
		t.Helper()
		root := t.TempDir()
		testutil.WriteFiles(t, root, map[string]string{
			"data/steel.csv":        "k,rho\n",
			"data/copper.csv":       "k,rho\n",
			"data/readme.txt":       "notes",
			"assets/icon.png":       testutil.PNG,
			"assets/plots/heat.png": testutil.PNG,
			"fonts/DejaVuSans.ttf":  "font",
			"fonts/extra/Mono.ttf":  "font",
			"coverpage.pdf":         "%PDF-1.4",
			"other/data/steel.csv":  "different",
		})
		return root
	}

	t.Run("patterns land relative to their static base", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		root := newTree(t)
		ctx, _ := testutil.Context(t)
		entries, _, err := Canonicalize([]*config.DataMapping{
			{Label: "csv", Source: "data/*.csv", Destination: "data"},
			{Label: "png", Source: "assets/**/*.png", Destination: "img"},
			{Label: "fonts", Source: "fonts", Destination: "fonts"},
			{Label: "cover", Source: "coverpage.pdf", Destination: ""},
		})
		require.NoError(t, err)

		// --- Act ---
		res, err := Expand(ctx, root, entries)

		// --- Assert ---
		require.NoError(t, err)
		assert.Empty(t, res.Warnings)

		var targets []string
		for _, f := range res.Files {
			targets = append(targets, f.Target)
		}
		want := []string{
			"coverpage.pdf",
			"data/copper.csv",
			"data/steel.csv",
			"fonts/DejaVuSans.ttf",
			"fonts/extra/Mono.ttf",
			"img/icon.png",
			"img/plots/heat.png",
		}
		if diff := cmp.Diff(want, targets); diff != "" {
			t.Errorf("targets mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, filepath.Join(root, "data", "copper.csv"), res.Files[1].Source)
		assert.Equal(t, "csv", res.Files[1].Label)
	})

	t.Run("every empty pattern is reported", func(t *testing.T) {
		t.Parallel()

		// --- Arrange ---
		root := newTree(t)
		ctx, logs := testutil.Context(t)
		entries, _, err := Canonicalize([]*config.DataMapping{
			{Label: "xlsx", Source: "data/*.xlsx", Destination: "data"},
			{Label: "csv", Source: "data/*.csv", Destination: "data"},
			{Label: "missing_dir", Source: "nowhere/**", Destination: "x"},
		})
		require.NoError(t, err)

		// --- Act ---
		res, err := Expand(ctx, root, entries)

		// --- Assert ---
		require.NoError(t, err)
		assert.Len(t, res.Files, 2)
		require.Len(t, res.Warnings, 2)

		var first, second *builderr.NoMatchWarning
		require.True(t, errors.As(res.Warnings[0], &first))
		require.True(t, errors.As(res.Warnings[1], &second))
		assert.Equal(t, "xlsx", first.Label)
		assert.Equal(t, "missing_dir", second.Label)
		assert.Contains(t, logs.String(), "Data pattern matched no files.")
	})

	t.Run("same file matched twice is copied once", func(t *testing.T) {
		t.Parallel()

		root := newTree(t)
		ctx, _ := testutil.Context(t)
		entries, _, err := Canonicalize([]*config.DataMapping{
			{Label: "steel", Source: "data/steel.csv", Destination: "data"},
			{Label: "all", Source: "data/*.csv", Destination: "data"},
		})
		require.NoError(t, err)

		res, err := Expand(ctx, root, entries)

		require.NoError(t, err)
		require.Len(t, res.Files, 2)
		assert.Equal(t, "steel", res.Files[1].Label, "first claim wins")
	})

	t.Run("different files on one target conflict", func(t *testing.T) {
		t.Parallel()

		root := newTree(t)
		ctx, _ := testutil.Context(t)
		entries, _, err := Canonicalize([]*config.DataMapping{
			{Label: "ours", Source: "data/*.csv", Destination: "data"},
			{Label: "theirs", Source: "other/data/*.csv", Destination: "data"},
		})
		require.NoError(t, err)

		_, err = Expand(ctx, root, entries)

		var conflict *builderr.DestinationConflictError
		require.True(t, errors.As(err, &conflict), "expected DestinationConflictError, got %v", err)
		assert.Equal(t, "data/steel.csv", conflict.Destination)
	})
}
