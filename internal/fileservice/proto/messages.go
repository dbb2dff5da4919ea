package proto

// Protocol version. Bump only on breaking wire changes.
const ProtocolVersion = 1

// Message type constants for the device file protocol. Every request gets
// exactly one response carrying the same request ID.
const (
	MsgHelloReq  byte = 0x01
	MsgHelloResp byte = 0x02

	MsgStatReq  byte = 0x10
	MsgStatResp byte = 0x11
	MsgListReq  byte = 0x12
	MsgListResp byte = 0x13

	MsgOpenReq         byte = 0x20
	MsgHandleResp      byte = 0x21
	MsgReadReq         byte = 0x22
	MsgReadResp        byte = 0x23
	MsgWriteReq        byte = 0x24
	MsgWriteResp       byte = 0x25
	MsgCloseReq        byte = 0x26
	MsgCreateFolderReq byte = 0x27
	MsgCreateFileReq   byte = 0x28

	MsgAckResp   byte = 0x40
	MsgErrorResp byte = 0xFF
)

// Error codes carried by ErrorResp and ReadResp so that errors.Is keeps
// working on the client side.
const (
	CodeGeneric    = 0
	CodeNotExist   = 1
	CodePermission = 2
	CodeClosed     = 3
	CodeExist      = 4
)

// HelloReq opens a session.
type HelloReq struct {
	Version  int  `msg:"version"`
	Compress bool `msg:"compress"`
}

// HelloResp accepts a session. Compress reports whether both sides switch
// to zstd after this message.
type HelloResp struct {
	Version   int  `msg:"version"`
	ChunkSize int  `msg:"chunk_size"`
	Compress  bool `msg:"compress"`
}

// DescriptorMsg is the wire representation of fileservice.Descriptor.
type DescriptorMsg struct {
	Path        string `msg:"path"`
	Name        string `msg:"name"`
	ModTime     int64  `msg:"mod_time"` // unix nanoseconds
	Size        uint64 `msg:"size"`
	Mode        uint32 `msg:"mode"`
	IsDirectory bool   `msg:"is_dir"`
	IsFile      bool   `msg:"is_file"`
	NoAccess    bool   `msg:"no_access"`
}

// StatReq resolves one path.
type StatReq struct {
	Path   string `msg:"path"`
	Follow bool   `msg:"follow"`
}

// StatResp returns the resolved descriptor.
type StatResp struct {
	Entry DescriptorMsg `msg:"entry"`
}

// ListReq requests the immediate children of a directory.
type ListReq struct {
	Path string `msg:"path"`
}

// ListResp returns the children of a directory in listing order.
type ListResp struct {
	Entries []DescriptorMsg `msg:"entries"`
}

// OpenReq opens a file.
type OpenReq struct {
	Path   string `msg:"path"`
	Mode   uint32 `msg:"mode"`
	Perm   uint32 `msg:"perm"`
	Create bool   `msg:"create"`
}

// HandleResp returns a server-assigned handle.
type HandleResp struct {
	Handle uint32 `msg:"handle"`
}

// ReadReq reads up to Max bytes at Offset.
type ReadReq struct {
	Offset int64  `msg:"offset"`
	Handle uint32 `msg:"handle"`
	Max    int    `msg:"max"`
}

// ReadResp carries read data. A read can return data together with an
// error, in which case Error is non-empty.
type ReadResp struct {
	Error string `msg:"error"`
	Data  []byte `msg:"data"`
	Code  int    `msg:"code"`
}

// WriteReq writes Data at the handle's current position.
type WriteReq struct {
	Data   []byte `msg:"data"`
	Handle uint32 `msg:"handle"`
}

// WriteResp reports how many bytes were stored.
type WriteResp struct {
	Written int `msg:"written"`
}

// CloseReq releases a handle.
type CloseReq struct {
	Handle uint32 `msg:"handle"`
}

// CreateFolderReq creates a directory.
type CreateFolderReq struct {
	Path string `msg:"path"`
	Perm uint32 `msg:"perm"`
}

// CreateFileReq creates or truncates a file and opens it for writing.
type CreateFileReq struct {
	Path string `msg:"path"`
	Perm uint32 `msg:"perm"`
}

// AckResp is a generic success acknowledgment.
type AckResp struct{}

// ErrorResp is a generic error response for any request.
type ErrorResp struct {
	Message string `msg:"message"`
	Code    int    `msg:"code"`
}
