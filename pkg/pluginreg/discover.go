package pluginreg

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DiscoverPattern matches plugin manifest files anywhere under a root
// directory.
const DiscoverPattern = "**/plugin.{yaml,yml,json}"

// Discover finds plugin manifest files under root, returning their paths
// sorted lexically. A root with no manifests yields an empty slice.
func Discover(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("plugin directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("plugin directory %s: not a directory", root)
	}

	matches, err := doublestar.Glob(os.DirFS(root), DiscoverPattern)
	if err != nil {
		return nil, fmt.Errorf("glob plugin manifests under %s: %w", root, err)
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(match)))
	}
	sort.Strings(paths)
	return paths, nil
}

// DiscoverAndLoad discovers and loads every manifest under root. Loading
// stops at the first invalid manifest so a bad file never half-registers.
func DiscoverAndLoad(root string) ([]*Manifest, error) {
	paths, err := Discover(root)
	if err != nil {
		return nil, err
	}

	manifests := make([]*Manifest, 0, len(paths))
	for _, path := range paths {
		m, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		manifests = append(manifests, m)
	}
	return manifests, nil
}
