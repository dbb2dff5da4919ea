package fileservice

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Compile-time interface check.
var _ Service = (*SFTPService)(nil)

// SFTPService implements Service for a remote host reachable over SSH.
type SFTPService struct {
	client *sftp.Client
	ssh    *ssh.Client
	mu     sync.Mutex
	files  map[Handle]*sftp.File
	next   Handle
}

// NewSFTPService opens an SFTP session on an established SSH connection.
// The caller must call Shutdown when done; it closes both clients.
func NewSFTPService(sshClient *ssh.Client) (*SFTPService, error) {
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("sftp client: %w", err)
	}
	return &SFTPService{
		client: client,
		ssh:    sshClient,
		files:  make(map[Handle]*sftp.File),
	}, nil
}

func (s *SFTPService) Stat(p string, followLinks bool) (*Descriptor, error) {
	var (
		info os.FileInfo
		err  error
	)
	if followLinks {
		info, err = s.client.Stat(p)
	} else {
		info, err = s.client.Lstat(p)
	}
	if err != nil {
		return nil, fmt.Errorf("sftp stat %s: %w", p, err)
	}
	d := sftpDescriptor(p, info)
	return &d, nil
}

func (s *SFTPService) List(dir Descriptor) ([]Descriptor, error) {
	infos, err := s.client.ReadDir(dir.Path)
	if err != nil {
		return nil, fmt.Errorf("sftp list %s: %w", dir.Path, err)
	}
	result := make([]Descriptor, 0, len(infos))
	for _, info := range infos {
		childPath := path.Join(dir.Path, info.Name())
		if info.Mode()&os.ModeSymlink != 0 {
			// links into directories are not followed
			target, err := s.client.Stat(childPath)
			if err != nil || target.IsDir() {
				result = append(result, Descriptor{Path: childPath, Name: info.Name(), NoAccess: true})
				continue
			}
			info = target
		}
		d := sftpDescriptor(childPath, info)
		d.Name = path.Base(childPath)
		result = append(result, d)
	}
	return result, nil
}

func (s *SFTPService) Open(p string, mode OpenMode, _ os.FileMode, create bool) (Handle, error) {
	flags := os.O_RDONLY
	switch {
	case mode&OpenRead != 0 && mode&OpenWrite != 0:
		flags = os.O_RDWR
	case mode&OpenWrite != 0:
		flags = os.O_WRONLY
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
	f, err := s.client.OpenFile(p, flags)
	if err != nil {
		return 0, fmt.Errorf("sftp open %s: %w", p, err)
	}
	return s.register(f), nil
}

func (s *SFTPService) Read(h Handle, offset int64, maxLength int) ([]byte, error) {
	f, err := s.lookup(h)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, maxLength)
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf[:n], fmt.Errorf("sftp read %s: %w", f.Name(), err)
	}
	return buf[:n], nil
}

func (s *SFTPService) Write(h Handle, data []byte) (int, error) {
	f, err := s.lookup(h)
	if err != nil {
		return 0, err
	}
	n, err := f.Write(data)
	if err != nil {
		return n, fmt.Errorf("sftp write %s: %w", f.Name(), err)
	}
	return n, nil
}

func (s *SFTPService) CreateFolder(p string, perm os.FileMode) error {
	if err := s.client.MkdirAll(p); err != nil {
		return fmt.Errorf("sftp create folder %s: %w", p, err)
	}
	if err := s.client.Chmod(p, perm); err != nil {
		return fmt.Errorf("sftp chmod %s: %w", p, err)
	}
	return nil
}

func (s *SFTPService) CreateFile(p string, perm os.FileMode) (Handle, error) {
	f, err := s.client.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return 0, fmt.Errorf("sftp create %s: %w", p, err)
	}
	// OpenFile doesn't accept a mode.
	if err := s.client.Chmod(p, perm); err != nil {
		f.Close()
		return 0, fmt.Errorf("sftp chmod %s: %w", p, err)
	}
	return s.register(f), nil
}

func (s *SFTPService) Close(h Handle) error {
	s.mu.Lock()
	f, ok := s.files[h]
	delete(s.files, h)
	s.mu.Unlock()
	if !ok {
		return ErrClosed
	}
	return f.Close()
}

// Shutdown closes the SFTP session and the underlying SSH connection.
func (s *SFTPService) Shutdown() error {
	err := s.client.Close()
	if sshErr := s.ssh.Close(); sshErr != nil && err == nil {
		err = sshErr
	}
	return err
}

func (s *SFTPService) register(f *sftp.File) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.files[s.next] = f
	return s.next
}

func (s *SFTPService) lookup(h Handle) (*sftp.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[h]
	if !ok {
		return nil, ErrClosed
	}
	return f, nil
}

// sftpDescriptor converts os.FileInfo from SFTP to a Descriptor. SFTP offers
// no access check, so permission problems surface later as open errors.
func sftpDescriptor(p string, info os.FileInfo) Descriptor {
	d := Descriptor{
		Path:    p,
		Name:    info.Name(),
		ModTime: info.ModTime(),
	}
	classify(&d, info.Mode(), info.Size())
	return d
}
