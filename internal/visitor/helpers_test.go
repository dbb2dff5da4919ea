package visitor_test

import (
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/visitor"
)

func dirAt(p string) fileservice.Descriptor {
	return fileservice.Descriptor{Path: p, Name: path.Base(p), IsDirectory: true}
}

func fileAt(p string, size int) fileservice.Descriptor {
	return fileservice.Descriptor{Path: p, Name: path.Base(p), IsFile: true, Size: uint64(size)}
}

// visitFile drives one complete file through v.
func visitFile(t *testing.T, v visitor.Visitor, p, content string) fileservice.Descriptor {
	t.Helper()
	d := fileAt(p, len(content))
	require.NoError(t, v.FileOpening(d))
	if content != "" {
		require.NoError(t, v.FileContent(d, []byte(content), uint64(len(content))))
	}
	require.NoError(t, v.FileClosing(d, uint64(len(content))))
	return d
}
