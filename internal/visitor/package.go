package visitor

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// ManifestName is the archive entry holding the package manifest.
const ManifestName = "META-INF/MANIFEST.MF"

// ManifestEntry describes one packaged entry.
type ManifestEntry struct {
	Name   string
	Digest string // hex BLAKE3-256
	Size   uint64
}

// PackageVisitor is a ZipPackageVisitor that also records a BLAKE3 digest
// for every entry and appends them to the archive as a manifest when the
// walk ends. The finished package can then be pushed to a device with
// Upload.
type PackageVisitor struct {
	*ZipPackageVisitor

	path     string
	hash     *blake3.Hasher
	manifest []ManifestEntry
}

// NewPackageVisitor builds a package at path.
func NewPackageVisitor(path string) *PackageVisitor {
	p := &PackageVisitor{
		ZipPackageVisitor: CreateZipPackage(path),
		path:              path,
	}
	p.observer = p
	return p
}

// Path returns the local package file.
func (p *PackageVisitor) Path() string { return p.path }

// Manifest returns the entries recorded so far. Failed items are absent.
func (p *PackageVisitor) Manifest() []ManifestEntry {
	return p.manifest
}

func (p *PackageVisitor) Begin(root fileservice.Descriptor) error {
	p.manifest = nil
	p.hash = nil
	return p.ZipPackageVisitor.Begin(root)
}

func (p *PackageVisitor) entryStarted(string) {
	p.hash = blake3.New()
}

func (p *PackageVisitor) entryData(b []byte) {
	if p.hash != nil {
		//nolint:errcheck // hash writes never fail
		p.hash.Write(b)
	}
}

func (p *PackageVisitor) entryDone(name string, size uint64, ok bool) {
	h := p.hash
	p.hash = nil
	if !ok || h == nil {
		return
	}
	p.manifest = append(p.manifest, ManifestEntry{
		Name:   name,
		Size:   size,
		Digest: hex.EncodeToString(h.Sum(nil)),
	})
}

func (p *PackageVisitor) finish(zw *zip.Writer) error {
	w, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	return WriteManifest(w, p.manifest)
}

// WriteManifest renders entries in JAR manifest layout: a main section
// followed by one blank-line separated section per entry.
func WriteManifest(w io.Writer, entries []ManifestEntry) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Manifest-Version: 1.0\r\nCreated-By: ferry\r\n")
	for _, e := range entries {
		fmt.Fprintf(bw, "\r\nName: %s\r\nSize: %d\r\nBLAKE3-Digest: %s\r\n", e.Name, e.Size, e.Digest)
	}
	return bw.Flush()
}

// Upload copies the finished package to dest on svc. Call it after End.
func (p *PackageVisitor) Upload(ctx context.Context, svc fileservice.Service, dest string) error {
	if svc == nil {
		return fileservice.ErrNilService
	}
	f, err := os.Open(p.path)
	if err != nil {
		return fmt.Errorf("open package: %w", err)
	}
	defer f.Close()

	if dir := fileservice.ParentPath(dest); dir != "" {
		if err := svc.CreateFolder(dir, fileservice.DefaultFolderPerm); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	h, err := svc.CreateFile(dest, fileservice.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	buf := make([]byte, fileservice.ChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			svc.Close(h) //nolint:errcheck // already failing
			return err
		}
		n, rerr := f.Read(buf)
		if n > 0 {
			written, werr := svc.Write(h, buf[:n])
			if werr == nil && written < n {
				werr = fileservice.ErrShortWrite
			}
			if werr != nil {
				svc.Close(h) //nolint:errcheck // already failing
				return fmt.Errorf("upload %s: %w", dest, werr)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			svc.Close(h) //nolint:errcheck // already failing
			return fmt.Errorf("read package: %w", rerr)
		}
	}
	return svc.Close(h)
}
