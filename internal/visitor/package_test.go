package visitor_test

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/memfs"
	"github.com/bamsammich/ferry/internal/visitor"
)

func digest(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func buildPackage(t *testing.T) *visitor.PackageVisitor {
	t.Helper()
	p := visitor.NewPackageVisitor(filepath.Join(t.TempDir(), "app.pkg"))
	require.NoError(t, p.Begin(dirAt("/app")))
	visitFile(t, p, "/app/bin/run", "#!/bin/sh")
	require.NoError(t, p.UnknownEntering(fileservice.Descriptor{Path: "/app/secret", Name: "secret", NoAccess: true}))

	bad := fileAt("/app/broken", 4)
	require.NoError(t, p.FileOpening(bad))
	require.NoError(t, p.FileContent(bad, []byte("br"), 2))
	p.Failure(bad, assert.AnError, "read /app/broken")
	require.NoError(t, p.FileClosing(bad, 2))

	require.NoError(t, p.End())
	return p
}

func TestPackageManifest(t *testing.T) {
	t.Parallel()

	p := buildPackage(t)
	assert.Equal(t, []visitor.ManifestEntry{
		{Name: "bin/run", Size: 9, Digest: digest("#!/bin/sh")},
		{Name: "secret", Size: 0, Digest: digest("")},
	}, p.Manifest())

	data, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	names, contents := readZip(t, data)
	assert.Equal(t, []string{"bin/run", "secret", "broken", visitor.ManifestName}, names)

	want := "Manifest-Version: 1.0\r\nCreated-By: ferry\r\n" +
		"\r\nName: bin/run\r\nSize: 9\r\nBLAKE3-Digest: " + digest("#!/bin/sh") + "\r\n" +
		"\r\nName: secret\r\nSize: 0\r\nBLAKE3-Digest: " + digest("") + "\r\n"
	assert.Equal(t, want, contents[visitor.ManifestName])
}

func TestPackageUpload(t *testing.T) {
	t.Parallel()

	p := buildPackage(t)
	dev := memfs.New()
	require.NoError(t, p.Upload(context.Background(), dev, "/data/app/app.pkg"))

	want, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	got, err := dev.ReadFile("/data/app/app.pkg")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, dev.OpenHandles())
}

func TestPackageUploadShortWrite(t *testing.T) {
	t.Parallel()

	p := buildPackage(t)
	dev := memfs.New()
	dev.AddFile("/x/app.pkg", nil)
	dev.ShortWrites("/x/app.pkg")

	err := p.Upload(context.Background(), dev, "/x/app.pkg")
	require.ErrorIs(t, err, fileservice.ErrShortWrite)
	assert.Zero(t, dev.OpenHandles())

	require.ErrorIs(t, p.Upload(context.Background(), nil, "/x"), fileservice.ErrNilService)
}
