package memfs_test

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/memfs"
)

func TestListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	m := memfs.New()
	m.AddFile("/root/b.txt", []byte("b"))
	m.AddDir("/root/sub")
	m.AddFile("/root/a.txt", []byte("a"))
	m.AddFile("/root/locked", nil)
	m.Deny("/root/locked")

	root, err := m.Stat("/root", true)
	require.NoError(t, err)
	children, err := m.List(*root)
	require.NoError(t, err)

	var names []string
	for _, c := range children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"b.txt", "sub", "a.txt", "locked"}, names)
	assert.Equal(t, fileservice.KindNoAccess, children[3].Kind())
	assert.Equal(t, fileservice.KindDirectory, children[1].Kind())
}

func TestDeniedNodeCannotBeOpened(t *testing.T) {
	t.Parallel()

	m := memfs.New()
	m.AddFile("/secret", []byte("x"))
	m.Deny("/secret")

	_, err := m.Open("/secret", fileservice.OpenRead, 0, false)
	require.ErrorIs(t, err, fs.ErrPermission)
}

func TestFailReadAfter(t *testing.T) {
	t.Parallel()

	m := memfs.New()
	m.AddFile("/b.txt", []byte("12345"))
	m.FailReadAfter("/b.txt", 3)

	h, err := m.Open("/b.txt", fileservice.OpenRead, 0, false)
	require.NoError(t, err)
	defer m.Close(h)

	chunk, err := m.Read(h, 0, 64)
	require.ErrorIs(t, err, memfs.ErrInjected)
	assert.Equal(t, "123", string(chunk))

	chunk, err = m.Read(h, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, "12", string(chunk))
}

func TestShortWrites(t *testing.T) {
	t.Parallel()

	m := memfs.New()
	h, err := m.CreateFile("/out", fileservice.DefaultFilePerm)
	require.NoError(t, err)
	m.ShortWrites("/out")

	n, err := m.Write(h, []byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.NoError(t, m.Close(h))
	require.ErrorIs(t, m.Close(h), fileservice.ErrClosed)
}

func TestCreateFileRequiresParent(t *testing.T) {
	t.Parallel()

	m := memfs.New()
	_, err := m.CreateFile("/missing/file", fileservice.DefaultFilePerm)
	require.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, m.CreateFolder("/missing", fileservice.DefaultFolderPerm))
	h, err := m.CreateFile("/missing/file", fileservice.DefaultFilePerm)
	require.NoError(t, err)
	_, err = m.Write(h, []byte("data"))
	require.NoError(t, err)
	require.NoError(t, m.Close(h))

	data, err := m.ReadFile("/missing/file")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
	assert.Zero(t, m.OpenHandles())
}
