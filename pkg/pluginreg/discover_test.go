package pluginreg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()

	deblur := writeManifest(t, root, "deblur/plugin.yaml", validManifestYAML())
	target := writeManifest(t, root, "target-gene/1.0.0/plugin.yml", fullManifestYAML())
	writeManifest(t, root, "deblur/README.md", "not a manifest")
	writeManifest(t, root, "deblur/config.yaml", "also not a manifest")

	paths, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{deblur, target}, paths)
}

func TestDiscoverEmptyRoot(t *testing.T) {
	paths, err := Discover(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestDiscoverAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "deblur/plugin.yaml", validManifestYAML())
	writeManifest(t, root, "target-gene/plugin.yaml", fullManifestYAML())

	manifests, err := DiscoverAndLoad(root)
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "deblur", manifests[0].Software.Name)
	assert.Equal(t, "target-gene", manifests[1].Software.Name)
}

func TestDiscoverAndLoadStopsOnInvalidManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "bad/plugin.yaml", "commands: []\n")
	writeManifest(t, root, "deblur/plugin.yaml", validManifestYAML())

	_, err := DiscoverAndLoad(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plugin.yaml")
}
