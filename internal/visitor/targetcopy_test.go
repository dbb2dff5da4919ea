package visitor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/memfs"
	"github.com/bamsammich/ferry/internal/visitor"
)

func TestTargetCopyTree(t *testing.T) {
	t.Parallel()

	dev := memfs.New()
	v := visitor.NewTargetCopyVisitor(dev, "/sdcard")
	require.NoError(t, v.Begin(dirAt("/home/me/app")))
	require.NoError(t, v.DirectoryEntering(dirAt("/home/me/app/res")))
	visitFile(t, v, "/home/me/app/res/icon.png", "png")
	visitFile(t, v, "/home/me/app/empty", "")
	require.NoError(t, v.UnknownEntering(fileservice.Descriptor{Path: "/home/me/app/sock", Name: "sock", NoAccess: true}))
	require.NoError(t, v.End())

	assert.True(t, dev.IsDir("/sdcard/app/res"))
	got, err := dev.ReadFile("/sdcard/app/res/icon.png")
	require.NoError(t, err)
	assert.Equal(t, "png", string(got))
	got, err = dev.ReadFile("/sdcard/app/sock")
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = dev.ReadFile("/sdcard/app/empty")
	require.NoError(t, err)
	assert.Zero(t, dev.OpenHandles())
	assert.Zero(t, v.Failures())
}

func TestTargetCopySingleFile(t *testing.T) {
	t.Parallel()

	dev := memfs.New()
	v := visitor.NewTargetCopyVisitor(dev, "/data/local/tmp/app.bin")
	root := fileAt("/build/out.bin", 2)
	require.NoError(t, v.Begin(root))
	visitFile(t, v, root.Path, "ok")
	require.NoError(t, v.End())

	got, err := dev.ReadFile("/data/local/tmp/app.bin")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(got))
}

func TestTargetCopyShortWrite(t *testing.T) {
	t.Parallel()

	dev := memfs.New()
	dev.AddFile("/out/src/a.txt", nil)
	dev.ShortWrites("/out/src/a.txt")

	v := visitor.NewTargetCopyVisitor(dev, "/out")
	require.NoError(t, v.Begin(dirAt("/src")))
	d := fileAt("/src/a.txt", 4)
	require.NoError(t, v.FileOpening(d))
	err := v.FileContent(d, []byte("abcd"), 4)
	require.ErrorIs(t, err, fileservice.ErrShortWrite)
	require.NoError(t, v.FileClosing(d, 4))
	require.NoError(t, v.End())
	assert.Zero(t, dev.OpenHandles())
}

func TestTargetCopyNilService(t *testing.T) {
	t.Parallel()

	v := visitor.NewTargetCopyVisitor(nil, "/out")
	require.ErrorIs(t, v.Begin(dirAt("/src")), fileservice.ErrNilService)
}

func TestTargetCopyRejectsEscapingPath(t *testing.T) {
	t.Parallel()

	dev := memfs.New()
	v := visitor.NewTargetCopyVisitor(dev, "/sdcard/in")
	require.NoError(t, v.Begin(dirAt("/home/me/app")))
	d := fileservice.Descriptor{Path: "/home/me/app/../../../etc/evil", Name: "evil", IsFile: true, Size: 1}
	require.ErrorIs(t, v.FileOpening(d), fileservice.ErrUnsafePath)
	require.NoError(t, v.FileClosing(d, 0))
	require.NoError(t, v.End())

	_, err := dev.ReadFile("/etc/evil")
	require.Error(t, err)
	_, err = dev.ReadFile("/sdcard/etc/evil")
	require.Error(t, err)
	assert.Zero(t, dev.OpenHandles())
}
