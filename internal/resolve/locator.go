package resolve

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const locatorCacheSize = 512

// location is where a module path was found.
type location struct {
	// root is the search root the path was found under.
	root string
	// abs is the absolute path of the module file or directory.
	abs   string
	isDir bool
}

// Locator finds module paths under an ordered list of search roots. The
// first root containing the path wins, as with an interpreter search path.
type Locator struct {
	roots []string
	cache *lru.Cache[string, location]
}

// NewLocator creates a Locator over sourceRoot followed by searchPaths.
// Relative search paths are resolved against sourceRoot.
func NewLocator(sourceRoot string, searchPaths []string) (*Locator, error) {
	cache, err := lru.New[string, location](locatorCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating locator cache: %w", err)
	}
	roots := []string{sourceRoot}
	for _, p := range searchPaths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(sourceRoot, filepath.FromSlash(p))
		}
		roots = append(roots, filepath.Clean(p))
	}
	return &Locator{roots: roots, cache: cache}, nil
}

// Roots returns the search roots in lookup order.
func (l *Locator) Roots() []string {
	return append([]string(nil), l.roots...)
}

// Locate returns where rel (slash-separated) lives. ok is false when no
// root contains it.
func (l *Locator) Locate(rel string) (location, bool, error) {
	if loc, ok := l.cache.Get(rel); ok {
		return loc, true, nil
	}
	for _, root := range l.roots {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		info, err := os.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return location{}, false, fmt.Errorf("checking %s: %w", abs, err)
		}
		loc := location{root: root, abs: abs, isDir: info.IsDir()}
		l.cache.Add(rel, loc)
		return loc, true, nil
	}
	return location{}, false, nil
}
