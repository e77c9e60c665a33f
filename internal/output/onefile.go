package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/bundlego/internal/archive"
	"github.com/vk/bundlego/internal/ctxlog"
)

// ArchivePath returns the single-file output path for final.
func ArchivePath(final string) string {
	return final + ".zip"
}

// CommitArchive packs the staging tree into ArchivePath(Final) and removes
// the staging directory. Entries are rooted at the bundle name, so the
// archive unpacks into the same layout as a directory build. The archive
// appears atomically or not at all; a bundle directory left by an earlier
// build is removed once it has.
func (s *Stage) CommitArchive(ctx context.Context, compress bool) (string, error) {
	logger := ctxlog.Stage(ctx, "output")
	if s.done {
		return "", fmt.Errorf("stage for %s already closed", s.Final)
	}

	entries, err := archive.TreeEntries(s.Dir, filepath.Base(s.Final))
	if err != nil {
		return "", fmt.Errorf("listing staged files: %w", err)
	}

	dst := ArchivePath(s.Final)
	if err := publishArchive(ctx, dst, entries, compress); err != nil {
		return "", err
	}
	if err := os.RemoveAll(s.Final); err != nil {
		return "", fmt.Errorf("removing previous output %s: %w", s.Final, err)
	}
	logger.Debug("Single-file archive published.", "path", dst, "entries", len(entries))

	return dst, s.release()
}
