package visitor_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/event"
	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/visitor"
)

// readZip returns entry names in archive order and their contents.
func readZip(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	var names []string
	contents := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		names = append(names, f.Name)
		contents[f.Name] = string(b)
	}
	return names, contents
}

func TestZipEntriesRelativeToRoot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v := visitor.NewZipPackageVisitor(&buf)
	var zipping int
	v.Subscribe(func(e event.Event) {
		if e.Type == event.ProgressChanged {
			assert.Equal(t, event.Zipping, e.Operation)
			zipping++
		}
	})

	require.NoError(t, v.Begin(dirAt("/root")))
	visitFile(t, v, "/root/a.txt", "0123456789")
	require.NoError(t, v.DirectoryEntering(dirAt("/root/sub")))
	visitFile(t, v, "/root/sub/b.txt", "hello")
	require.NoError(t, v.UnknownEntering(fileservice.Descriptor{Path: "/root/locked", Name: "locked", NoAccess: true}))

	pipe := fileservice.Descriptor{Path: "/root/fifo", Name: "fifo"}
	require.NoError(t, v.FileOpening(pipe))
	require.NoError(t, v.FileContent(pipe, []byte("stream"), 6))
	require.NoError(t, v.FileClosing(pipe, 6))
	require.NoError(t, v.End())

	names, contents := readZip(t, buf.Bytes())
	assert.Equal(t, []string{"a.txt", "sub/b.txt", "locked", "fifo"}, names)
	assert.Equal(t, names, v.Entries())
	assert.Equal(t, "0123456789", contents["a.txt"])
	assert.Equal(t, "hello", contents["sub/b.txt"])
	assert.Empty(t, contents["locked"])
	assert.Empty(t, contents["fifo"])
	assert.Positive(t, zipping)
}

func TestZipSingleFileRoot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v := visitor.NewZipPackageVisitor(&buf)
	root := fileAt("/var/log/boot.log", 3)
	require.NoError(t, v.Begin(root))
	visitFile(t, v, root.Path, "log")
	require.NoError(t, v.End())

	names, contents := readZip(t, buf.Bytes())
	assert.Equal(t, []string{"boot.log"}, names)
	assert.Equal(t, "log", contents["boot.log"])
}

func TestCreateZipPackageClosesFile(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "dist", "tree.zip")
	v := visitor.CreateZipPackage(out)
	require.NoError(t, v.Begin(dirAt("/t")))
	visitFile(t, v, "/t/x", "x")
	require.NoError(t, v.End())
	v.Wait()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	names, _ := readZip(t, data)
	assert.Equal(t, []string{"x"}, names)
}

func TestZipWithoutWriter(t *testing.T) {
	t.Parallel()

	v := visitor.NewZipPackageVisitor(nil)
	require.Error(t, v.Begin(dirAt("/t")))
	d := fileAt("/t/x", 1)
	require.Error(t, v.FileOpening(d))
	require.NoError(t, v.FileClosing(d, 0))
	require.NoError(t, v.End())
	assert.Empty(t, v.Entries())
}

func TestZipRejectsEscapingEntry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v := visitor.NewZipPackageVisitor(&buf)
	require.NoError(t, v.Begin(dirAt("/root")))

	d := fileservice.Descriptor{Path: "/root/../../../escape.txt", Name: "escape.txt", IsFile: true, Size: 4}
	require.ErrorIs(t, v.FileOpening(d), fileservice.ErrUnsafePath)
	require.NoError(t, v.FileClosing(d, 0))
	locked := fileservice.Descriptor{Path: "/root/../locked", Name: "locked", NoAccess: true}
	require.ErrorIs(t, v.UnknownEntering(locked), fileservice.ErrUnsafePath)
	visitFile(t, v, "/root/ok.txt", "fine")
	require.NoError(t, v.End())

	names, _ := readZip(t, buf.Bytes())
	assert.Equal(t, []string{"ok.txt"}, names)
}
