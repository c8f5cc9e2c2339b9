package fileutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSize(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/w/a", make([]byte, 10), 0644))
	require.NoError(t, afero.WriteFile(fs, "/w/sub/b", make([]byte, 32), 0644))
	require.NoError(t, fs.MkdirAll("/w/empty", 0755))

	size, err := DirSize(fs, "/w")
	require.NoError(t, err)
	assert.EqualValues(t, 42, size)
}

func TestDirSizeMissingRoot(t *testing.T) {
	size, err := DirSize(afero.NewMemMapFs(), "/nope")
	require.NoError(t, err)
	assert.EqualValues(t, 0, size)
}

func TestExistsParentExists(t *testing.T) {
	dir, err := ioutil.TempDir("", "fileutil")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "f")
	assert.False(t, Exists(path))
	require.NoError(t, ioutil.WriteFile(path, []byte("x"), 0644))
	assert.True(t, Exists(path))

	assert.True(t, ParentExists(filepath.Join(dir, "new")))
	assert.False(t, ParentExists(filepath.Join(dir, "missing", "new")))
}
