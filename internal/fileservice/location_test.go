package fileservice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/ferry/internal/fileservice"
)

func TestParseLocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantScheme string
		wantHost   string
		wantUser   string
		wantPath   string
		wantPort   int
	}{
		{name: "absolute path", input: "/home/user/data", wantPath: "/home/user/data"},
		{name: "relative path", input: "data/files", wantPath: "data/files"},
		{name: "dot-relative path", input: "./data/files", wantPath: "./data/files"},
		{
			name:       "user@host:path",
			input:      "user@phone:/sdcard/DCIM",
			wantScheme: "sftp",
			wantHost:   "phone",
			wantUser:   "user",
			wantPath:   "/sdcard/DCIM",
		},
		{
			name:       "host:relative",
			input:      "phone:files",
			wantScheme: "sftp",
			wantHost:   "phone",
			wantPath:   "files",
		},
		{name: "colon after separator", input: "dir/host:path", wantPath: "dir/host:path"},
		{name: "absolute path with colon", input: "/a/file:with:colons", wantPath: "/a/file:with:colons"},
		{
			name:       "device url with port",
			input:      "dev://10.0.0.7:7000/accounts/1000",
			wantScheme: "dev",
			wantHost:   "10.0.0.7",
			wantPath:   "/accounts/1000",
			wantPort:   7000,
		},
		{
			name:       "device url without path",
			input:      "dev://board",
			wantScheme: "dev",
			wantHost:   "board",
			wantPath:   "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			loc := fileservice.ParseLocation(tt.input)
			assert.Equal(t, tt.wantScheme, loc.Scheme)
			assert.Equal(t, tt.wantHost, loc.Host)
			assert.Equal(t, tt.wantUser, loc.User)
			assert.Equal(t, tt.wantPath, loc.Path)
			assert.Equal(t, tt.wantPort, loc.Port)
		})
	}
}

func TestLocationAddrDefaultPort(t *testing.T) {
	t.Parallel()

	loc := fileservice.ParseLocation("dev://board/tmp")
	assert.True(t, loc.IsDevice())
	assert.True(t, loc.IsRemote())
	assert.Equal(t, "board:9877", loc.Addr())
	assert.Equal(t, "dev://board:9877/tmp", loc.String())
}
