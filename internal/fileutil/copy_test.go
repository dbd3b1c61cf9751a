package fileutil

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicCopy(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/a.dat", []byte("blueprints"), 0o600))
	require.NoError(t, fs.MkdirAll("/dst", 0o755))

	n, err := AtomicCopy(fs, "/src/a.dat", "/dst/a.dat", 0o644)
	require.NoError(t, err)
	assert.Equal(t, int64(len("blueprints")), n)

	data, err := afero.ReadFile(fs, "/dst/a.dat")
	require.NoError(t, err)
	assert.Equal(t, "blueprints", string(data))

	infos, err := afero.ReadDir(fs, "/dst")
	require.NoError(t, err)
	require.Len(t, infos, 1, "temp file must be renamed away")
}

func TestAtomicCopy_MissingSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dst", 0o755))

	_, err := AtomicCopy(fs, "/src/missing.dat", "/dst/a.dat", 0o644)
	require.Error(t, err)

	exists, err := afero.Exists(fs, "/dst/a.dat")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAtomicCopy_ReadOnlyLeavesNothing(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, "/src/a.dat", []byte("blueprints"), 0o600))
	require.NoError(t, base.MkdirAll("/dst", 0o755))

	_, err := AtomicCopy(afero.NewReadOnlyFs(base), "/src/a.dat", "/dst/a.dat", 0o644)
	require.Error(t, err)

	infos, err := afero.ReadDir(base, "/dst")
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestIsTemp(t *testing.T) {
	assert.True(t, IsTemp(".blueprint-storage-123456.tmp"))
	assert.False(t, IsTemp("blueprint-storage_2024-01-01_00-00-00.dat"))
	assert.False(t, IsTemp(".blueprint-storage-123456.dat"))
}
