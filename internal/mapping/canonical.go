// Package mapping turns the declared data mappings of a descriptor into the
// concrete list of files to copy into the bundle.
//
// Declared mappings are first collapsed into one canonical entry per
// (pattern, destination) pair, then each entry is expanded against the
// source tree. Expansion is deterministic: matches are sorted and every
// bundle path is claimed by at most one source file.
package mapping

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"
	"github.com/vk/bundlego/internal/builderr"
	"github.com/vk/bundlego/internal/config"
	"github.com/vk/bundlego/internal/fsutil"
)

// Entry is one canonical data mapping.
type Entry struct {
	// Labels lists every declaration collapsed into this entry, in
	// declaration order.
	Labels      []string
	Pattern     string
	Destination string
}

// Key identifies an entry by content.
func (e *Entry) Key() string {
	return e.Pattern + "\x00" + e.Destination
}

// Canonicalize collapses duplicate mappings, keeping the position of the
// first declaration. Each collapsed duplicate produces a
// RedundantMappingWarning. Malformed patterns and destinations that leave
// the bundle root are fatal.
func Canonicalize(mappings []*config.DataMapping) ([]*Entry, []builderr.Warning, error) {
	var entries []*Entry
	byKey := make(map[string]*Entry)

	for _, m := range mappings {
		pattern := normalizePattern(m.Source)
		dest := normalizeDestination(m.Destination)

		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return nil, nil, &builderr.InvalidPatternError{
				Label: m.Label, Pattern: m.Source, Destination: m.Destination,
				Reason: "invalid glob pattern",
			}
		}
		if !fsutil.WithinRoot(dest) {
			return nil, nil, &builderr.InvalidPatternError{
				Label: m.Label, Pattern: m.Source, Destination: m.Destination,
				Reason: "destination must be a relative path inside the bundle",
			}
		}

		e := &Entry{Labels: []string{m.Label}, Pattern: pattern, Destination: dest}
		if existing, ok := byKey[e.Key()]; ok {
			existing.Labels = append(existing.Labels, m.Label)
			continue
		}
		byKey[e.Key()] = e
		entries = append(entries, e)
	}

	var warnings []builderr.Warning
	for _, e := range entries {
		if len(e.Labels) > 1 {
			warnings = append(warnings, &builderr.RedundantMappingWarning{
				Pattern:     e.Pattern,
				Destination: e.Destination,
				Labels:      e.Labels,
			})
			e.Labels = lo.Uniq(e.Labels)
		}
	}
	return entries, warnings, nil
}

// normalizePattern cleans a source pattern into slash form. Absolute
// patterns keep their leading slash.
func normalizePattern(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return path.Clean(filepath.ToSlash(p))
}

// normalizeDestination maps the empty destination to the bundle root.
func normalizeDestination(d string) string {
	d = strings.TrimSpace(d)
	if d == "" {
		return "."
	}
	return path.Clean(filepath.ToSlash(d))
}
