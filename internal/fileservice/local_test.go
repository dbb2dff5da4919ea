package fileservice_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
)

func TestLocalServiceStatAndList(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("0123456789"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.Symlink("missing", filepath.Join(root, "dangling")))
	require.NoError(t, syscall.Mkfifo(filepath.Join(root, "pipe"), 0o600))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(root, "alias")))
	require.NoError(t, os.Symlink(".", filepath.Join(root, "loop")))

	svc := fileservice.NewLocalService()

	d, err := svc.Stat(root, true)
	require.NoError(t, err)
	assert.True(t, d.IsDirectory)

	children, err := svc.List(*d)
	require.NoError(t, err)

	byName := make(map[string]fileservice.Descriptor)
	for _, c := range children {
		byName[c.Name] = c
	}
	require.Len(t, byName, 6)

	assert.Equal(t, fileservice.KindFile, byName["a.txt"].Kind())
	assert.Equal(t, uint64(10), byName["a.txt"].Size)
	assert.Equal(t, filepath.Join(root, "a.txt"), byName["a.txt"].Path)
	assert.Equal(t, fileservice.KindDirectory, byName["sub"].Kind())
	assert.Equal(t, fileservice.KindNoAccess, byName["dangling"].Kind())
	assert.Equal(t, fileservice.KindOther, byName["pipe"].Kind())

	assert.Equal(t, fileservice.KindFile, byName["alias"].Kind())
	assert.Equal(t, uint64(10), byName["alias"].Size)
	assert.Equal(t, filepath.Join(root, "alias"), byName["alias"].Path)
	assert.Equal(t, fileservice.KindNoAccess, byName["loop"].Kind())
}

func TestLocalServiceStatMissing(t *testing.T) {
	t.Parallel()

	_, err := fileservice.NewLocalService().Stat(filepath.Join(t.TempDir(), "nope"), true)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLocalServiceReadWrite(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	svc := fileservice.NewLocalService()
	p := filepath.Join(root, "out.bin")

	require.NoError(t, svc.CreateFolder(filepath.Join(root, "nested", "dir"), fileservice.DefaultFolderPerm))

	h, err := svc.CreateFile(p, fileservice.DefaultFilePerm)
	require.NoError(t, err)
	n, err := svc.Write(h, []byte("hello "))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	_, err = svc.Write(h, []byte("world"))
	require.NoError(t, err)
	require.NoError(t, svc.Close(h))

	h, err = svc.Open(p, fileservice.OpenRead, 0, false)
	require.NoError(t, err)

	chunk, err := svc.Read(h, 0, 6)
	require.NoError(t, err)
	assert.Equal(t, "hello ", string(chunk))

	chunk, err = svc.Read(h, 6, 100)
	require.NoError(t, err)
	assert.Equal(t, "world", string(chunk))

	chunk, err = svc.Read(h, 11, 100)
	require.NoError(t, err)
	assert.Empty(t, chunk)

	require.NoError(t, svc.Close(h))
	assert.Zero(t, svc.OpenHandles())

	info, err := os.Stat(filepath.Join(root, "nested", "dir"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalServiceClosedHandle(t *testing.T) {
	t.Parallel()

	svc := fileservice.NewLocalService()
	h, err := svc.CreateFile(filepath.Join(t.TempDir(), "f"), fileservice.DefaultFilePerm)
	require.NoError(t, err)
	require.NoError(t, svc.Close(h))

	require.ErrorIs(t, svc.Close(h), fileservice.ErrClosed)
	_, err = svc.Read(h, 0, 10)
	require.ErrorIs(t, err, fileservice.ErrClosed)
	_, err = svc.Write(h, []byte("x"))
	require.ErrorIs(t, err, fileservice.ErrClosed)
}

func TestLocalServiceCloseAll(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	svc := fileservice.NewLocalService()
	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateFile(filepath.Join(root, name), fileservice.DefaultFilePerm)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, svc.OpenHandles())
	svc.CloseAll()
	assert.Zero(t, svc.OpenHandles())
}
