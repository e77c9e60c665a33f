//go:build windows

package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/bundlego/internal/archive"
)

func publishArchive(ctx context.Context, dst string, entries []archive.Entry, compress bool) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer os.Remove(tmp.Name())

	if err := archive.Write(ctx, tmp, entries, compress); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("publishing %s: %w", dst, err)
	}
	return nil
}
