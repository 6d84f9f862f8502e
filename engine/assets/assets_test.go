package assets

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

const testLibrary = `
name = "default"

[[function]]
name = "vertex_main"
stage = "vertex"
file = "shaders/triangle.vert.spv"

[[function]]
name = "fragment_main"
stage = "fragment"
file = "shaders/triangle.frag.spv"
`

func spirv(words ...uint32) []byte {
	b := make([]byte, 4*(len(words)+1))
	binary.LittleEndian.PutUint32(b, 0x07230203)
	for i, w := range words {
		binary.LittleEndian.PutUint32(b[4*(i+1):], w)
	}
	return b
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "shaders", "library.toml"), []byte(testLibrary))
	writeFile(t, filepath.Join(dir, "shaders", "triangle.vert.spv"), spirv(0x00010000))
	writeFile(t, filepath.Join(dir, "shaders", "triangle.frag.spv"), spirv(0x00010000, 7))
	writeFile(t, filepath.Join(dir, "README"), []byte("ignored"))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(func() { assert.NoError(t, am.Shutdown()) })
	return am, dir
}

func TestInitializeIndexesKnownTypes(t *testing.T) {
	am, _ := newManager(t)

	assert.Equal(t, 3, am.Len())
	info, ok := am.Lookup("shaders/library.toml")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeShaderLibrary, info.Type)
	info, ok = am.Lookup("shaders/triangle.vert.spv")
	require.True(t, ok)
	assert.Equal(t, metadata.ResourceTypeBinary, info.Type)
	_, ok = am.Lookup("README")
	assert.False(t, ok)
}

func TestInitializeMissingDirectory(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	defer am.Shutdown()

	assert.Error(t, am.Initialize(filepath.Join(t.TempDir(), "nope")))
}

func TestLoadShaderLibrary(t *testing.T) {
	am, _ := newManager(t)

	res, err := am.LoadAsset("shaders/library.toml", metadata.ResourceTypeShaderLibrary, nil)
	require.NoError(t, err)
	assert.Equal(t, "default", res.Name)

	lib, ok := res.Data.(*metadata.ShaderLibraryConfig)
	require.True(t, ok)
	require.Len(t, lib.Functions, 2)
	fn, ok := lib.Function("fragment_main")
	require.True(t, ok)
	assert.Equal(t, metadata.ShaderStageFragment, fn.Stage)
	assert.Equal(t, "shaders/triangle.frag.spv", fn.File)

	info, _ := am.Lookup("shaders/library.toml")
	assert.False(t, info.LastLoaded.IsZero())
}

func TestLoadBinary(t *testing.T) {
	am, _ := newManager(t)

	res, err := am.LoadAsset("shaders/triangle.frag.spv", metadata.ResourceTypeBinary, map[string]string{"name": "frag"})
	require.NoError(t, err)
	assert.Equal(t, "frag", res.Name)
	assert.Equal(t, uint64(12), res.DataSize)
	assert.Equal(t, []uint32{0x07230203, 0x00010000, 7}, res.Data)

	require.NoError(t, am.UnloadAsset(res, metadata.ResourceTypeBinary))
	assert.Nil(t, res.Data)
}

func TestLoadAssetErrors(t *testing.T) {
	am, _ := newManager(t)

	_, err := am.LoadAsset("shaders/missing.spv", metadata.ResourceTypeBinary, nil)
	assert.ErrorContains(t, err, "asset not found")

	_, err = am.LoadAsset("shaders/library.toml", metadata.ResourceTypeBinary, nil)
	assert.ErrorContains(t, err, "not a binary")
}

func TestWatcherTracksChanges(t *testing.T) {
	am, dir := newManager(t)

	writeFile(t, filepath.Join(dir, "shaders", "extra.spv"), spirv())
	require.Eventually(t, func() bool {
		_, ok := am.Lookup("shaders/extra.spv")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "shaders", "extra.spv")))
	require.Eventually(t, func() bool {
		_, ok := am.Lookup("shaders/extra.spv")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestShutdownTwice(t *testing.T) {
	am, _ := newManager(t)
	require.NoError(t, am.Shutdown())
	assert.NoError(t, am.Shutdown())
}
