package fileservice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

// Compile-time interface check.
var _ Service = (*LocalService)(nil)

// LocalService implements Service on top of the local operating system.
// It is used as the destination of pushes in tests, as the backing store of
// the device agent (ferry serve) and anywhere a Service is needed for local
// paths.
type LocalService struct {
	mu    sync.Mutex
	files map[Handle]*os.File
	next  Handle
}

// NewLocalService returns a LocalService with an empty handle table.
func NewLocalService() *LocalService {
	return &LocalService{files: make(map[Handle]*os.File)}
}

func (*LocalService) Stat(p string, followLinks bool) (*Descriptor, error) {
	d, err := StatLocal(p, followLinks)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (*LocalService) List(dir Descriptor) ([]Descriptor, error) {
	return ListLocal(dir.Path)
}

func (s *LocalService) Open(p string, mode OpenMode, perm os.FileMode, create bool) (Handle, error) {
	flags := 0
	switch {
	case mode&OpenRead != 0 && mode&OpenWrite != 0:
		flags = os.O_RDWR
	case mode&OpenWrite != 0:
		flags = os.O_WRONLY
	default:
		flags = os.O_RDONLY
	}
	if mode&OpenTruncate != 0 {
		flags |= os.O_TRUNC
	}
	if mode&OpenAppend != 0 {
		flags |= os.O_APPEND
	}
	if create {
		flags |= os.O_CREATE
	}

	// Pipes and device files must not block the walk waiting for a writer.
	if info, err := os.Stat(p); err == nil && !info.Mode().IsRegular() && !info.IsDir() {
		flags |= unix.O_NONBLOCK
	}

	f, err := os.OpenFile(p, flags, perm)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", p, err)
	}
	return s.register(f), nil
}

func (s *LocalService) Read(h Handle, offset int64, maxLength int) ([]byte, error) {
	f, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, maxLength)
	var n int
	if isSeekable(f) {
		n, err = f.ReadAt(buf, offset)
	} else {
		n, err = io.ReadFull(f, buf)
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) &&
		!errors.Is(err, unix.EAGAIN) {
		return buf[:n], fmt.Errorf("read %s: %w", f.Name(), err)
	}
	return buf[:n], nil
}

func (s *LocalService) Write(h Handle, data []byte) (int, error) {
	f, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", f.Name(), err)
	}
	return n, nil
}

func (*LocalService) CreateFolder(p string, perm os.FileMode) error {
	if err := os.MkdirAll(p, perm); err != nil {
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

func (s *LocalService) CreateFile(p string, perm os.FileMode) (Handle, error) {
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", p, err)
	}
	return s.register(f), nil
}

func (s *LocalService) Close(h Handle) error {
	s.mu.Lock()
	f, ok := s.files[h]
	delete(s.files, h)
	s.mu.Unlock()
	if !ok {
		return ErrClosed
	}
	return f.Close()
}

// OpenHandles reports how many handles are currently open.
func (s *LocalService) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// CloseAll closes every open handle. Used by the device agent when a client
// disconnects without closing its files.
func (s *LocalService) CloseAll() {
	s.mu.Lock()
	files := s.files
	s.files = make(map[Handle]*os.File)
	s.mu.Unlock()
	for _, f := range files {
		f.Close()
	}
}

func (s *LocalService) register(f *os.File) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.files[s.next] = f
	return s.next
}

func (s *LocalService) lookup(h Handle) (*os.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[h]
	if !ok {
		return nil, ErrClosed
	}
	return f, nil
}

func isSeekable(f *os.File) bool {
	info, err := f.Stat()
	return err == nil && info.Mode().IsRegular()
}

var errLinkedDir = errors.New("link to a directory")

// StatLocal resolves a local path to a Descriptor using native OS calls.
func StatLocal(p string, followLinks bool) (Descriptor, error) {
	var (
		info os.FileInfo
		err  error
	)
	if followLinks {
		info, err = os.Stat(p)
	} else {
		info, err = os.Lstat(p)
	}
	if err != nil {
		return Descriptor{}, fmt.Errorf("stat %s: %w", p, err)
	}
	return localDescriptor(p, info), nil
}

// ListLocal lists a local directory without following links into other
// directories, so a link back to an ancestor cannot make a walk loop. A
// link to a file or stream is described by its target; a link to a
// directory, a dangling link and an entry that denies stat are reported
// with NoAccess set rather than dropped.
func ListLocal(dir string) ([]Descriptor, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	result := make([]Descriptor, 0, len(entries))
	for _, de := range entries {
		childPath := filepath.Join(dir, de.Name())
		info, err := os.Lstat(childPath)
		if err == nil && info.Mode()&os.ModeSymlink != 0 {
			info, err = os.Stat(childPath)
			if err == nil && info.IsDir() {
				err = errLinkedDir
			}
		}
		if err != nil {
			result = append(result, Descriptor{
				Path:     childPath,
				Name:     de.Name(),
				NoAccess: true,
			})
			continue
		}
		result = append(result, localDescriptor(childPath, info))
	}
	return result, nil
}

func localDescriptor(p string, info os.FileInfo) Descriptor {
	d := Descriptor{
		Path:    p,
		Name:    info.Name(),
		ModTime: info.ModTime(),
	}
	classify(&d, info.Mode(), info.Size())

	switch d.Kind() {
	case KindDirectory:
		if unix.Access(p, unix.R_OK|unix.X_OK) != nil {
			d.IsDirectory = false
			d.NoAccess = true
		}
	case KindFile, KindOther:
		if info.Mode()&os.ModeSymlink == 0 && unix.Access(p, unix.R_OK) != nil {
			d.IsFile = false
			d.Size = 0
			d.NoAccess = true
		}
	}
	return d
}
