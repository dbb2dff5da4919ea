package visitor_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/visitor"
)

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		require.NoError(t, err)
		assert.NotContains(t, d.Name(), ".ferry-tmp", p)
		return nil
	})
	require.NoError(t, err)
}

func TestLocalCopyKeepsTopFolder(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/data/photos")))
	require.NoError(t, v.DirectoryEntering(dirAt("/data/photos/2024")))
	visitFile(t, v, "/data/photos/2024/a.jpg", "jpeg")
	require.NoError(t, v.UnknownEntering(fileservice.Descriptor{Path: "/data/photos/locked", Name: "locked", NoAccess: true}))
	require.NoError(t, v.End())

	got, err := os.ReadFile(filepath.Join(out, "photos", "2024", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(got))

	info, err := os.Stat(filepath.Join(out, "photos", "locked"))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
	dest, err := v.Destination(fileAt("/data/photos/2024/a.jpg", 4))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "photos", "2024", "a.jpg"), dest)
	assertNoTemps(t, out)
}

func TestLocalCopyFilesystemRoot(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/")))
	visitFile(t, v, "/x.txt", "x")
	require.NoError(t, v.End())

	got, err := os.ReadFile(filepath.Join(out, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestLocalCopySingleFile(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "a", "b", "renamed.bin")
	v := visitor.NewLocalCopyVisitor(dest)
	root := fileAt("/dev/store/blob.bin", 3)
	require.NoError(t, v.Begin(root))
	visitFile(t, v, root.Path, "abc")
	require.NoError(t, v.End())

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestLocalCopySingleFileIntoDirectory(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	root := fileAt("/dev/store/blob.bin", 3)
	require.NoError(t, v.Begin(root))
	visitFile(t, v, root.Path, "xyz")
	require.NoError(t, v.End())

	got, err := os.ReadFile(filepath.Join(out, "blob.bin"))
	require.NoError(t, err)
	assert.Equal(t, "xyz", string(got))
}

func TestLocalCopyDiscardsFailedItem(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/src")))

	d := fileAt("/src/b.txt", 5)
	require.NoError(t, v.FileOpening(d))
	require.NoError(t, v.FileContent(d, []byte("hel"), 3))
	v.Failure(d, assert.AnError, "read /src/b.txt")
	require.NoError(t, v.FileClosing(d, 3))
	require.NoError(t, v.End())

	_, err := os.Stat(filepath.Join(out, "src", "b.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assertNoTemps(t, out)
}

func TestLocalCopyDiscardsCancelledItem(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/src")))

	d := fileAt("/src/big", 8)
	require.NoError(t, v.FileOpening(d))
	require.NoError(t, v.FileContent(d, []byte("1234"), 4))
	v.Cancel()
	require.NoError(t, v.FileClosing(d, 4))
	require.NoError(t, v.End())

	_, err := os.Stat(filepath.Join(out, "src", "big"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assertNoTemps(t, out)
}

func TestLocalCopyOpenFailureReported(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	// a regular file where the folder should go
	require.NoError(t, os.WriteFile(filepath.Join(out, "src"), []byte("x"), 0o644))

	v := visitor.NewLocalCopyVisitor(out)
	require.Error(t, v.Begin(dirAt("/src")))
	d := fileAt("/src/f", 1)
	require.Error(t, v.FileOpening(d))
	require.NoError(t, v.FileClosing(d, 0))
	require.NoError(t, v.End())
}

func TestLocalCopyRejectsEscapingPath(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	out := filepath.Join(base, "out")
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/root")))

	d := fileservice.Descriptor{Path: "/root/../../../escape.txt", Name: "escape.txt", IsFile: true, Size: 4}
	require.ErrorIs(t, v.FileOpening(d), fileservice.ErrUnsafePath)
	require.NoError(t, v.FileClosing(d, 0))
	require.ErrorIs(t, v.DirectoryEntering(dirAt("/root/../up")), fileservice.ErrUnsafePath)
	require.NoError(t, v.End())

	_, err := v.Destination(d)
	require.ErrorIs(t, err, fileservice.ErrUnsafePath)
	for _, p := range []string{filepath.Join(base, "escape.txt"), filepath.Join(filepath.Dir(base), "escape.txt"), filepath.Join(base, "up")} {
		_, err := os.Stat(p)
		assert.ErrorIs(t, err, os.ErrNotExist, p)
	}
	assertNoTemps(t, base)
}

func TestLocalCopyDiscardsShortItem(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	v := visitor.NewLocalCopyVisitor(out)
	require.NoError(t, v.Begin(dirAt("/src")))

	d := fileAt("/src/shrunk", 10)
	require.NoError(t, v.FileOpening(d))
	require.NoError(t, v.FileContent(d, []byte("1234"), 4))
	require.NoError(t, v.FileClosing(d, 4))
	require.NoError(t, v.End())

	_, err := os.Stat(filepath.Join(out, "src", "shrunk"))
	require.ErrorIs(t, err, os.ErrNotExist)
	assertNoTemps(t, out)
}
