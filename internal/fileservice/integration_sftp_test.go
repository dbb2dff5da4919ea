//go:build integration

package fileservice_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/ssh"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// startSFTPContainer starts an atmoz/sftp container with dir bind-mounted at
// /home/testuser/data and returns host and port for SSH.
func startSFTPContainer(t *testing.T, dir string) (host string, port int) {
	t.Helper()
	ctx := context.Background()

	userSpec := fmt.Sprintf("testuser:testpass:%d:%d:data", os.Getuid(), os.Getgid())

	req := testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "atmoz/sftp:latest",
			ExposedPorts: []string{"22/tcp"},
			Cmd:          []string{userSpec},
			Mounts: testcontainers.Mounts(
				testcontainers.BindMount(dir, "/home/testuser/data"),
			),
			WaitingFor: wait.ForListeningPort("22/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	}

	ctr, err := testcontainers.GenericContainer(ctx, req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	h, err := ctr.Host(ctx)
	require.NoError(t, err)
	mapped, err := ctr.MappedPort(ctx, "22/tcp")
	require.NoError(t, err)
	p, err := strconv.Atoi(mapped.Port())
	require.NoError(t, err)
	return h, p
}

func dialTestSSH(t *testing.T, host string, port int) *ssh.Client {
	t.Helper()

	loc := fileservice.Location{Scheme: "sftp", Host: host, User: "testuser"}
	opts := fileservice.SSHOpts{
		Password:   "testpass",
		Port:       port,
		Timeout:    5 * time.Second,
		KnownHosts: filepath.Join(t.TempDir(), "known_hosts"),
	}

	var err error
	for range 10 {
		var client *ssh.Client
		if client, err = fileservice.DialSSH(t.Context(), loc, opts); err == nil {
			return client
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, err, "connect to SFTP container at %s:%d", host, port)
	return nil
}

func TestIntegration_SFTPService(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o777))

	host, port := startSFTPContainer(t, dir)
	svc, err := fileservice.NewSFTPService(dialTestSSH(t, host, port))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Shutdown() })

	root, err := svc.Stat("/data", true)
	require.NoError(t, err)
	require.True(t, root.IsDirectory)

	entries, err := svc.List(*root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub"}, names)

	h, err := svc.Open("/data/a.txt", fileservice.OpenRead, 0, false)
	require.NoError(t, err)
	data, err := svc.Read(h, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, "ello", string(data))
	require.NoError(t, svc.Close(h))

	require.NoError(t, svc.CreateFolder("/data/sub/deep", fileservice.DefaultFolderPerm))
	h, err = svc.CreateFile("/data/sub/deep/out.bin", fileservice.DefaultFilePerm)
	require.NoError(t, err)
	n, err := svc.Write(h, []byte("written over sftp"))
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	require.NoError(t, svc.Close(h))

	got, err := os.ReadFile(filepath.Join(dir, "sub", "deep", "out.bin"))
	require.NoError(t, err)
	assert.Equal(t, "written over sftp", string(got))
}
