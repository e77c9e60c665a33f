//go:build !windows

package output

import (
	"context"
	"fmt"

	"github.com/google/renameio/v2"
	"github.com/vk/bundlego/internal/archive"
)

func publishArchive(ctx context.Context, dst string, entries []archive.Entry, compress bool) error {
	pf, err := renameio.NewPendingFile(dst, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer pf.Cleanup()

	if err := archive.Write(ctx, pf, entries, compress); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("publishing %s: %w", dst, err)
	}
	return nil
}
