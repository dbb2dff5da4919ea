package proto_test

import (
	"errors"
	"io/fs"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tinylib/msgp/msgp"

	"github.com/bamsammich/ferry/internal/fileservice"
	"github.com/bamsammich/ferry/internal/fileservice/proto"
)

func TestListRespRoundTrip(t *testing.T) {
	t.Parallel()

	orig := proto.ListResp{Entries: []proto.DescriptorMsg{
		{Path: "/a.txt", Name: "a.txt", Size: 5, Mode: 0o644, IsFile: true, ModTime: 1_700_000_000_000_000_000},
		{Path: "/sub", Name: "sub", Mode: uint32(os.ModeDir | 0o755), IsDirectory: true},
		{Path: "/locked", Name: "locked", NoAccess: true},
	}}

	data, err := orig.MarshalMsg(nil)
	require.NoError(t, err)

	var decoded proto.ListResp
	rest, err := decoded.UnmarshalMsg(data)
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Equal(t, orig, decoded)
}

func TestReadRespCarriesDataAndError(t *testing.T) {
	t.Parallel()

	orig := proto.ReadResp{Data: []byte("abc"), Error: "disk error", Code: proto.CodeGeneric}
	data, err := orig.MarshalMsg(nil)
	require.NoError(t, err)

	var decoded proto.ReadResp
	_, err = decoded.UnmarshalMsg(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), decoded.Data)
	assert.Equal(t, "disk error", decoded.Error)
}

func TestUnknownFieldsIgnored(t *testing.T) {
	t.Parallel()

	// A newer peer may send extra keys; they must be skipped.
	b := msgp.AppendMapHeader(nil, 3)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, "/x")
	b = msgp.AppendString(b, "future")
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendInt(b, 1)
	b = msgp.AppendString(b, "two")
	b = msgp.AppendString(b, "follow")
	b = msgp.AppendBool(b, true)

	var req proto.StatReq
	_, err := req.UnmarshalMsg(b)
	require.NoError(t, err)
	assert.Equal(t, proto.StatReq{Path: "/x", Follow: true}, req)
}

func TestTruncatedMessageRejected(t *testing.T) {
	t.Parallel()

	data, err := (&proto.OpenReq{Path: "/file", Mode: 1, Perm: 0o644}).MarshalMsg(nil)
	require.NoError(t, err)

	var req proto.OpenReq
	_, err = req.UnmarshalMsg(data[:len(data)-2])
	require.Error(t, err)
}

func TestDescriptorConversion(t *testing.T) {
	t.Parallel()

	d := fileservice.Descriptor{
		Path:    "/dir/file.bin",
		Name:    "file.bin",
		Size:    1 << 40,
		Mode:    0o600,
		IsFile:  true,
		ModTime: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	back := proto.ToDescriptor(proto.FromDescriptor(d))
	assert.True(t, d.ModTime.Equal(back.ModTime))
	back.ModTime = d.ModTime
	assert.Equal(t, d, back)

	zero := proto.ToDescriptor(proto.FromDescriptor(fileservice.Descriptor{Path: "/p"}))
	assert.True(t, zero.ModTime.IsZero())
}

func TestRemoteErrorUnwrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want error
	}{
		{proto.CodeNotExist, fs.ErrNotExist},
		{proto.CodePermission, fs.ErrPermission},
		{proto.CodeClosed, fileservice.ErrClosed},
		{proto.CodeExist, fs.ErrExist},
	}
	for _, tt := range tests {
		err := error(&proto.RemoteError{Message: "x", Code: tt.code})
		assert.ErrorIs(t, err, tt.want)
	}

	generic := error(&proto.RemoteError{Message: "boom"})
	assert.Nil(t, errors.Unwrap(generic))
	assert.Equal(t, "remote: boom", generic.Error())
}
