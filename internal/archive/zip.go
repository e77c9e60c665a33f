// Package archive writes deterministic zip archives: entries are sorted,
// timestamps are fixed, and identical inputs yield identical bytes.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// epoch is the modification time stamped on every entry.
var epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// Entry is one file to store in an archive.
type Entry struct {
	// Name is the slash-separated path inside the archive.
	Name   string
	Source string
}

// Write stores entries into w. With compress set, entries are deflated at
// best compression; otherwise they are stored as-is.
func Write(ctx context.Context, w io.Writer, entries []Entry, compress bool) error {
	sorted := append([]Entry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	method := zip.Store
	if compress {
		method = zip.Deflate
	}

	for i, e := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return fmt.Errorf("duplicate archive entry %q", e.Name)
		}
		if err := addFile(zw, e, method); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

// WriteFile writes entries into a new archive file at dst.
func WriteFile(ctx context.Context, dst string, entries []Entry, compress bool) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", dst, err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating archive %s: %w", dst, err)
	}
	if err := Write(ctx, f, entries, compress); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TreeEntries lists every regular file under dir as archive entries named
// relative to dir, prefixed with prefix.
func TreeEntries(dir, prefix string) ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if prefix != "" {
			name = prefix + "/" + name
		}
		entries = append(entries, Entry{Name: name, Source: p})
		return nil
	})
	return entries, err
}

func addFile(zw *zip.Writer, e Entry, method uint16) error {
	src, err := os.Open(e.Source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", e.Source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", e.Source, err)
	}

	hdr := &zip.FileHeader{
		Name:     e.Name,
		Method:   method,
		Modified: epoch,
	}
	hdr.SetMode(info.Mode().Perm())

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("adding %s: %w", e.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("writing %s: %w", e.Name, err)
	}
	return nil
}
