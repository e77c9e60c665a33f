package mapping

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/ctxlog"
)

// File is one source file scheduled for copying into the bundle.
type File struct {
	// Source is the absolute path of the file in the source tree.
	Source string
	// Target is the slash-separated path of the copy inside the bundle.
	Target string
	// Label is the first declaration that produced this file.
	Label string
}

// Result is the outcome of expanding all canonical entries.
type Result struct {
	// Files is sorted by Target.
	Files    []File
	Warnings []builderr.Warning
}

// Expand resolves every entry against root. A pattern with no matches adds a
// NoMatchWarning and expansion continues, so the caller sees every missing
// asset set at once. Each match lands at Destination joined with its path
// relative to the pattern's static base; a literal directory contributes
// every file beneath it.
func Expand(ctx context.Context, root string, entries []*Entry) (*Result, error) {
	logger := ctxlog.Stage(ctx, "expand")
	res := &Result{}
	claimed := make(map[string]File)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base, rel, err := matchEntry(root, e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding data %q (%s): %w", e.Labels[0], e.Pattern, err)
		}
		if len(rel) == 0 {
			logger.Warn("Data pattern matched no files.", "label", e.Labels[0], "pattern", e.Pattern)
			res.Warnings = append(res.Warnings, &builderr.NoMatchWarning{
				Label:       e.Labels[0],
				Pattern:     e.Pattern,
				Destination: e.Destination,
			})
			continue
		}
		logger.Debug("Data pattern expanded.", "label", e.Labels[0], "pattern", e.Pattern, "matches", len(rel))

		for _, r := range rel {
			f := File{
				Source: filepath.Join(base, filepath.FromSlash(r)),
				Target: path.Join(e.Destination, r),
				Label:  e.Labels[0],
			}
			prev, ok := claimed[f.Target]
			if !ok {
				claimed[f.Target] = f
				continue
			}
			if prev.Source == f.Source {
				continue
			}
			return nil, &builderr.DestinationConflictError{
				Destination: f.Target,
				Sources:     []string{prev.Source, f.Source},
			}
		}
	}

	res.Files = make([]File, 0, len(claimed))
	for _, f := range claimed {
		res.Files = append(res.Files, f)
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Target < res.Files[j].Target })
	return res, nil
}

// matchEntry returns the absolute static base of pattern and the sorted,
// slash-separated paths of matched files relative to it.
func matchEntry(root, pattern string) (string, []string, error) {
	staticBase, rest := doublestar.SplitPattern(pattern)
	base := filepath.FromSlash(staticBase)
	if !filepath.IsAbs(base) {
		base = filepath.Join(root, base)
	}

	// A literal path naming a directory means "everything below it".
	if !hasMeta(pattern) {
		literal := filepath.Join(base, filepath.FromSlash(rest))
		info, err := os.Stat(literal)
		if err != nil {
			if os.IsNotExist(err) {
				return base, nil, nil
			}
			return "", nil, err
		}
		if info.IsDir() {
			base, rest = literal, "**"
		} else if !info.Mode().IsRegular() {
			return base, nil, nil
		}
	}

	if _, err := os.Stat(base); err != nil {
		if os.IsNotExist(err) {
			return base, nil, nil
		}
		return "", nil, err
	}

	matches, err := doublestar.Glob(os.DirFS(base), rest, doublestar.WithFilesOnly())
	if err != nil {
		return "", nil, err
	}
	sort.Strings(matches)
	return base, matches, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{\\")
}
