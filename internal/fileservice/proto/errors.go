package proto

import (
	"errors"
	"io/fs"

	"github.com/bamsammich/ferry/internal/fileservice"
)

// RemoteError is an error reported by the peer. It unwraps to the matching
// local sentinel so callers can use errors.Is(err, fs.ErrNotExist) and
// friends regardless of transport.
type RemoteError struct {
	Message string
	Code    int
}

func (e *RemoteError) Error() string {
	return "remote: " + e.Message
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case CodeNotExist:
		return fs.ErrNotExist
	case CodePermission:
		return fs.ErrPermission
	case CodeClosed:
		return fileservice.ErrClosed
	case CodeExist:
		return fs.ErrExist
	default:
		return nil
	}
}

// errorCode classifies err for the wire.
func errorCode(err error) int {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return CodeNotExist
	case errors.Is(err, fs.ErrPermission):
		return CodePermission
	case errors.Is(err, fileservice.ErrClosed):
		return CodeClosed
	case errors.Is(err, fs.ErrExist):
		return CodeExist
	default:
		return CodeGeneric
	}
}

func remoteError(msg string, code int) error {
	if msg == "" {
		return nil
	}
	return &RemoteError{Message: msg, Code: code}
}
