package fileservice

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultDevicePort is the default port of a ferry device agent.
const DefaultDevicePort = 9877

// Location represents a parsed source or destination argument.
type Location struct {
	Scheme string
	Host   string
	User   string
	Path   string
	Port   int
}

// IsRemote returns true if the location refers to a remote host.
func (l Location) IsRemote() bool {
	return l.Host != ""
}

// IsDevice returns true if the location uses the dev:// device protocol.
func (l Location) IsDevice() bool {
	return l.Scheme == "dev"
}

// Addr returns host:port of a device location, applying the default port.
func (l Location) Addr() string {
	port := l.Port
	if port == 0 {
		port = DefaultDevicePort
	}
	return fmt.Sprintf("%s:%d", l.Host, port)
}

// String returns a human-readable representation.
func (l Location) String() string {
	if l.IsDevice() {
		return "dev://" + l.Addr() + l.Path
	}
	if !l.IsRemote() {
		return l.Path
	}
	if l.User != "" {
		return fmt.Sprintf("%s@%s:%s", l.User, l.Host, l.Path)
	}
	return fmt.Sprintf("%s:%s", l.Host, l.Path)
}

// ParseLocation parses a CLI argument into a Location.
//
// Supported formats:
//   - /absolute/path, relative/path   → local
//   - host:path, user@host:path       → SFTP over SSH
//   - dev://host[:port]/path          → device protocol
//
// A path containing ":" is only treated as remote if the part before the
// colon contains no path separators (so "/foo:bar" and "./host:path" are local).
func ParseLocation(arg string) Location {
	if strings.HasPrefix(arg, "dev://") {
		return parseDeviceURL(arg)
	}

	if filepath.IsAbs(arg) || strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../") {
		return Location{Path: arg}
	}

	colonIdx := strings.IndexByte(arg, ':')
	if colonIdx <= 0 {
		return Location{Path: arg}
	}

	hostPart := arg[:colonIdx]
	pathPart := arg[colonIdx+1:]
	if strings.ContainsAny(hostPart, `/\`) {
		return Location{Path: arg}
	}

	var userName, host string
	if atIdx := strings.LastIndexByte(hostPart, '@'); atIdx >= 0 {
		userName = hostPart[:atIdx]
		host = hostPart[atIdx+1:]
	} else {
		host = hostPart
	}
	if host == "" {
		return Location{Path: arg}
	}
	if pathPart == "" {
		pathPart = "."
	}

	return Location{
		Scheme: "sftp",
		Host:   host,
		User:   userName,
		Path:   pathPart,
	}
}

// parseDeviceURL parses a dev://host[:port]/path URL.
func parseDeviceURL(raw string) Location {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{Path: raw}
	}
	host := u.Hostname()
	if host == "" {
		return Location{Path: raw}
	}

	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return Location{Path: raw}
		}
	}

	p := u.Path
	if p == "" {
		p = "/"
	}
	return Location{
		Scheme: "dev",
		Host:   host,
		Port:   port,
		Path:   p,
	}
}
