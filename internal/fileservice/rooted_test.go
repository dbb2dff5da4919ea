package fileservice_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
)

func TestRootedPathMapping(t *testing.T) {
	t.Parallel()

	r := fileservice.NewRooted(fileservice.NewLocalService(), "/srv/data")

	tests := []struct {
		in   string
		host string
	}{
		{"/", "/srv/data"},
		{"/a/b.txt", "/srv/data/a/b.txt"},
		{"a/b.txt", "/srv/data/a/b.txt"},
		{"/../../etc/passwd", "/srv/data/etc/passwd"},
		{`\win\style`, "/srv/data/win/style"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.host, r.HostPath(tt.in), tt.in)
	}

	assert.Equal(t, "/a/b.txt", r.RootedPath("/srv/data/a/b.txt"))
	assert.Equal(t, "/", r.RootedPath("/srv/data"))
	assert.Equal(t, "/", r.RootedPath("/elsewhere"))
}

func TestRootedStatAndList(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "f.txt"), []byte("hi"), 0o644))

	r := fileservice.NewRooted(fileservice.NewLocalService(), root)

	top, err := r.Stat("/", true)
	require.NoError(t, err)
	assert.Equal(t, "/", top.Path)
	assert.True(t, top.IsDirectory)

	sub, err := r.Stat("/sub", true)
	require.NoError(t, err)
	entries, err := r.List(*sub)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/sub/f.txt", entries[0].Path)
	assert.Equal(t, "f.txt", entries[0].Name)
	assert.Equal(t, uint64(2), entries[0].Size)

	_, err = r.Stat("/missing", true)
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestRootedCreateAndRead(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	r := fileservice.NewRooted(fileservice.NewLocalService(), root)

	require.NoError(t, r.CreateFolder("/out", fileservice.DefaultFolderPerm))
	h, err := r.CreateFile("/out/x.bin", fileservice.DefaultFilePerm)
	require.NoError(t, err)
	n, err := r.Write(h, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, r.Close(h))

	got, err := os.ReadFile(filepath.Join(root, "out", "x.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))

	h, err = r.Open("/out/x.bin", fileservice.OpenRead, 0, false)
	require.NoError(t, err)
	data, err := r.Read(h, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, "load", string(data))
	require.NoError(t, r.Close(h))
}
