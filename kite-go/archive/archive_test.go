package archive

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarGzRoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "archive")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "checkout")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(src, "lib", "util.py"), []byte("x = 1\n"), 0644))

	a, err := TarGz(src, "abc", filepath.Join(dir, "abc.tar.gz"))
	require.NoError(t, err)
	assert.True(t, a.Size > 0)
	assert.Contains(t, a.String(), "abc.tar.gz")

	// no temporaries are left behind
	leftovers, err := filepath.Glob(filepath.Join(dir, ".archive-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)

	out := filepath.Join(dir, "out")
	require.NoError(t, Unpack(a.Path, out))
	data, err := ioutil.ReadFile(filepath.Join(out, "abc", "lib", "util.py"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1\n", string(data))

	// packing again replaces the archive
	_, err = TarGz(src, "abc", a.Path)
	assert.NoError(t, err)
}

func TestTarGzRejects(t *testing.T) {
	dir, err := ioutil.TempDir("", "archive")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	_, err = TarGz(dir, "abc", filepath.Join(dir, "abc.zip"))
	assert.Error(t, err)

	_, err = TarGz(filepath.Join(dir, "missing"), "abc", filepath.Join(dir, "abc.tar.gz"))
	assert.Error(t, err)

	file := filepath.Join(dir, "file")
	require.NoError(t, ioutil.WriteFile(file, nil, 0644))
	_, err = TarGz(file, "abc", filepath.Join(dir, "abc.tar.gz"))
	assert.Error(t, err)

	_, err = TarGz(dir, "a/b", filepath.Join(dir, "abc.tar.gz"))
	assert.Error(t, err)
}

func TestTarGzSameContentSameBytes(t *testing.T) {
	dir, err := ioutil.TempDir("", "archive")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	var archives [][]byte
	for i, name := range []string{"6ba7b810-9dad", "6ba7b811-9dad"} {
		src := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Join(src, "lib"), 0755))
		require.NoError(t, ioutil.WriteFile(filepath.Join(src, "lib", "util.py"), []byte("x = 1\n"), 0644))
		then := time.Now().Add(-time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(src, "lib", "util.py"), then, then))

		a, err := TarGz(src, "0123456789abcdef", filepath.Join(dir, name+".tar.gz"))
		require.NoError(t, err)
		data, err := ioutil.ReadFile(a.Path)
		require.NoError(t, err)
		archives = append(archives, data)
	}
	assert.Equal(t, archives[0], archives[1])
}
