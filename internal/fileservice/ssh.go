package fileservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNoSSHAuth is returned by DialSSH when neither an agent, a key file nor
// a password is available.
var ErrNoSSHAuth = errors.New("no SSH credentials: start an agent, pass a key file or a password")

// SSHOpts configures DialSSH.
type SSHOpts struct {
	KeyFile  string // empty tries ~/.ssh/id_ed25519, id_ecdsa and id_rsa
	Password string
	Port     int // 0 means 22
	Timeout  time.Duration

	// KnownHosts overrides ~/.ssh/known_hosts. Hosts are always verified
	// unless the file cannot be read, in which case a warning is logged
	// and any key is accepted.
	KnownHosts string
}

// DialSSH connects to the SSH host of a remote location. The login name is
// taken from loc.User, or the current user when empty. ctx bounds the TCP
// connect and the handshake.
func DialSSH(ctx context.Context, loc Location, opts SSHOpts) (*ssh.Client, error) {
	login := loc.User
	if login == "" {
		u, err := user.Current()
		if err != nil {
			return nil, fmt.Errorf("current user: %w", err)
		}
		login = u.Username
	}

	auth := sshAuth(opts)
	if len(auth) == 0 {
		return nil, ErrNoSSHAuth
	}

	cfg := &ssh.ClientConfig{
		User:            login,
		Auth:            auth,
		HostKeyCallback: hostKeys(opts.KnownHosts),
		Timeout:         opts.Timeout,
	}

	port := opts.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(loc.Host, strconv.Itoa(port))

	d := net.Dialer{Timeout: opts.Timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline) //nolint:errcheck // cleared below
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	conn.SetDeadline(time.Time{}) //nolint:errcheck // best effort
	return ssh.NewClient(c, chans, reqs), nil
}

// sshAuth lists auth methods in the order they are tried: agent, key
// files, password.
func sshAuth(opts SSHOpts) []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	var keys []string
	if opts.KeyFile != "" {
		keys = []string{opts.KeyFile}
	} else if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
			keys = append(keys, filepath.Join(home, ".ssh", name))
		}
	}
	var signers []ssh.Signer
	for _, k := range keys {
		if s, err := loadSigner(k); err == nil {
			signers = append(signers, s)
		} else if opts.KeyFile != "" {
			slog.Warn("ssh key unusable", "file", k, "error", err)
		}
	}
	if len(signers) > 0 {
		methods = append(methods, ssh.PublicKeys(signers...))
	}

	if opts.Password != "" {
		methods = append(methods, ssh.Password(opts.Password))
	}
	return methods
}

func loadSigner(p string) (ssh.Signer, error) {
	data, err := os.ReadFile(p) //nolint:gosec // G304: user-selected key file
	if err != nil {
		return nil, err
	}
	return ssh.ParsePrivateKey(data)
}

func hostKeys(file string) ssh.HostKeyCallback {
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Warn("host key verification disabled", "error", err)
			return ssh.InsecureIgnoreHostKey() //nolint:gosec // no home directory
		}
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(file)
	if err != nil {
		slog.Warn("host key verification disabled", "known_hosts", file, "error", err)
		return ssh.InsecureIgnoreHostKey() //nolint:gosec // no known_hosts file
	}
	return cb
}
