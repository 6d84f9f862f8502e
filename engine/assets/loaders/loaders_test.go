package loaders

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/hellotriangle/engine/renderer/metadata"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestBinaryLoaderRejectsBadInput(t *testing.T) {
	bl := &BinaryLoader{}

	_, err := bl.Load(write(t, "short.spv", []byte{0x03, 0x02, 0x23}), metadata.ResourceTypeBinary, nil)
	assert.ErrorContains(t, err, "multiple of 4")

	_, err = bl.Load(write(t, "magic.spv", []byte{1, 2, 3, 4}), metadata.ResourceTypeBinary, nil)
	assert.ErrorContains(t, err, "magic")

	_, err = bl.Load(filepath.Join(t.TempDir(), "missing.spv"), metadata.ResourceTypeBinary, nil)
	assert.Error(t, err)
}

func TestBinaryLoaderLittleEndian(t *testing.T) {
	bl := &BinaryLoader{}
	path := write(t, "ok.spv", []byte{0x03, 0x02, 0x23, 0x07, 0xff, 0, 0, 0})

	res, err := bl.Load(path, metadata.ResourceTypeBinary, nil)
	require.NoError(t, err)
	assert.Equal(t, path, res.Name)
	assert.Equal(t, []uint32{SPIRVMagic, 0xff}, res.Data)
}

func TestShaderLibraryLoader(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     string
	}{
		{
			name:    "no functions",
			content: `name = "x"`,
			err:     "no functions",
		},
		{
			name:    "missing file",
			content: "[[function]]\nname = \"vertex_main\"\nstage = \"vertex\"\n",
			err:     "needs both",
		},
		{
			name:    "duplicate",
			content: "[[function]]\nname = \"a\"\nstage = \"vertex\"\nfile = \"a.spv\"\n[[function]]\nname = \"a\"\nstage = \"fragment\"\nfile = \"b.spv\"\n",
			err:     "declared twice",
		},
		{
			name:    "unknown stage",
			content: "[[function]]\nname = \"a\"\nstage = \"compute\"\nfile = \"a.spv\"\n",
			err:     "compute",
		},
		{
			name:    "unknown key",
			content: "colour = \"red\"\n[[function]]\nname = \"a\"\nstage = \"vertex\"\nfile = \"a.spv\"\n",
			err:     "strict mode",
		},
	}

	sl := &ShaderLibraryLoader{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sl.Load(write(t, "library.toml", []byte(tt.content)), metadata.ResourceTypeShaderLibrary, nil)
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestShaderLibraryLoaderDefaultsName(t *testing.T) {
	sl := &ShaderLibraryLoader{}
	path := write(t, "library.toml", []byte("[[function]]\nname = \"a\"\nstage = \"vertex\"\nfile = \"a.spv\"\n"))

	res, err := sl.Load(path, metadata.ResourceTypeShaderLibrary, map[string]string{"name": "default"})
	require.NoError(t, err)
	assert.Equal(t, "default", res.Name)
	assert.Equal(t, "default", res.Data.(*metadata.ShaderLibraryConfig).Name)
}
