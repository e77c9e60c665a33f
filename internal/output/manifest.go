package output

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ManifestFile is the name of the bundle manifest in the bundle root.
const ManifestFile = "bundle-manifest.json"

const hashCacheSize = 4096

// Manifest lists every file of a bundle. It carries no timestamps, so
// identical inputs produce identical manifests.
type Manifest struct {
	Name    string          `json:"name"`
	Version string          `json:"version,omitempty"`
	Files   []ManifestEntry `json:"files"`
}

// ManifestEntry describes one bundle file.
type ManifestEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type hashKey struct {
	path    string
	size    int64
	modTime time.Time
}

// Hasher computes file digests, remembering recent results for files whose
// size and modification time have not changed.
type Hasher struct {
	cache *lru.Cache[hashKey, string]
}

// NewHasher creates a Hasher with a bounded cache.
func NewHasher() (*Hasher, error) {
	cache, err := lru.New[hashKey, string](hashCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating hash cache: %w", err)
	}
	return &Hasher{cache: cache}, nil
}

// Sum returns the hex SHA-256 of the file at path and its size.
func (h *Hasher) Sum(path string) (string, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", 0, err
	}
	key := hashKey{path: path, size: info.Size(), modTime: info.ModTime()}
	if sum, ok := h.cache.Get(key); ok {
		return sum, info.Size(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	sum := hex.EncodeToString(digest.Sum(nil))
	h.cache.Add(key, sum)
	return sum, info.Size(), nil
}

// BuildManifest hashes every regular file under dir. origins maps a bundle
// path to the unchanged source file it was copied from; those files are
// hashed at their source so the cache carries over between builds.
func (h *Hasher) BuildManifest(dir, name, version string, origins map[string]string) (*Manifest, error) {
	m := &Manifest{Name: name, Version: version, Files: []ManifestEntry{}}
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
		rel = filepath.ToSlash(rel)
		if rel == ManifestFile {
			return nil
		}
		src := p
		if origin, ok := origins[rel]; ok {
			src = origin
		}
		sum, size, err := h.Sum(src)
		if err != nil {
			return err
		}
		m.Files = append(m.Files, ManifestEntry{Path: rel, Size: size, SHA256: sum})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("building manifest for %s: %w", dir, err)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return m, nil
}

// WriteManifest builds the manifest of dir and stores it as ManifestFile.
func (h *Hasher) WriteManifest(dir, name, version string, origins map[string]string) (*Manifest, error) {
	m, err := h.BuildManifest(dir, name, version, origins)
	if err != nil {
		return nil, err
	}
	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ManifestFile, err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(encoded, '\n'), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", ManifestFile, err)
	}
	return m, nil
}

// ReadManifest loads the manifest stored in dir.
func ReadManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ManifestFile, err)
	}
	return &m, nil
}
