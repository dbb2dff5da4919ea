package proto

import (
	"fmt"

	"github.com/tinylib/msgp/msgp"
)

// Messages use msgpack map encoding (string keys) so either side can add
// fields without breaking older peers: unknown keys are skipped.

// fieldFunc decodes the value of one map key and returns the remaining bytes.
type fieldFunc func(key string, b []byte) ([]byte, error)

func decodeMap(b []byte, field fieldFunc) ([]byte, error) {
	sz, b, err := msgp.ReadMapHeaderBytes(b)
	if err != nil {
		return b, err
	}
	for range sz {
		var key []byte
		key, b, err = msgp.ReadMapKeyZC(b)
		if err != nil {
			return b, err
		}
		b, err = field(string(key), b)
		if err != nil {
			return b, fmt.Errorf("field %q: %w", key, err)
		}
	}
	return b, nil
}

func (m *HelloReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendInt(b, m.Version)
	b = msgp.AppendString(b, "compress")
	b = msgp.AppendBool(b, m.Compress)
	return b, nil
}

func (m *HelloReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "version":
			m.Version, o, err = msgp.ReadIntBytes(b)
		case "compress":
			m.Compress, o, err = msgp.ReadBoolBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *HelloResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "version")
	b = msgp.AppendInt(b, m.Version)
	b = msgp.AppendString(b, "chunk_size")
	b = msgp.AppendInt(b, m.ChunkSize)
	b = msgp.AppendString(b, "compress")
	b = msgp.AppendBool(b, m.Compress)
	return b, nil
}

func (m *HelloResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "version":
			m.Version, o, err = msgp.ReadIntBytes(b)
		case "chunk_size":
			m.ChunkSize, o, err = msgp.ReadIntBytes(b)
		case "compress":
			m.Compress, o, err = msgp.ReadBoolBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *DescriptorMsg) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 8)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, m.Path)
	b = msgp.AppendString(b, "name")
	b = msgp.AppendString(b, m.Name)
	b = msgp.AppendString(b, "mod_time")
	b = msgp.AppendInt64(b, m.ModTime)
	b = msgp.AppendString(b, "size")
	b = msgp.AppendUint64(b, m.Size)
	b = msgp.AppendString(b, "mode")
	b = msgp.AppendUint32(b, m.Mode)
	b = msgp.AppendString(b, "is_dir")
	b = msgp.AppendBool(b, m.IsDirectory)
	b = msgp.AppendString(b, "is_file")
	b = msgp.AppendBool(b, m.IsFile)
	b = msgp.AppendString(b, "no_access")
	b = msgp.AppendBool(b, m.NoAccess)
	return b, nil
}

func (m *DescriptorMsg) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "path":
			m.Path, o, err = msgp.ReadStringBytes(b)
		case "name":
			m.Name, o, err = msgp.ReadStringBytes(b)
		case "mod_time":
			m.ModTime, o, err = msgp.ReadInt64Bytes(b)
		case "size":
			m.Size, o, err = msgp.ReadUint64Bytes(b)
		case "mode":
			m.Mode, o, err = msgp.ReadUint32Bytes(b)
		case "is_dir":
			m.IsDirectory, o, err = msgp.ReadBoolBytes(b)
		case "is_file":
			m.IsFile, o, err = msgp.ReadBoolBytes(b)
		case "no_access":
			m.NoAccess, o, err = msgp.ReadBoolBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *StatReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, m.Path)
	b = msgp.AppendString(b, "follow")
	b = msgp.AppendBool(b, m.Follow)
	return b, nil
}

func (m *StatReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "path":
			m.Path, o, err = msgp.ReadStringBytes(b)
		case "follow":
			m.Follow, o, err = msgp.ReadBoolBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *StatResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "entry")
	return m.Entry.MarshalMsg(b)
}

func (m *StatResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		if key == "entry" {
			return m.Entry.UnmarshalMsg(b)
		}
		return msgp.Skip(b)
	})
}

func (m *ListReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, m.Path)
	return b, nil
}

func (m *ListReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		if key == "path" {
			m.Path, o, err = msgp.ReadStringBytes(b)
			return o, err
		}
		return msgp.Skip(b)
	})
}

func (m *ListResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "entries")
	b = msgp.AppendArrayHeader(b, uint32(len(m.Entries))) //nolint:gosec // G115: bounded by frame size
	var err error
	for i := range m.Entries {
		if b, err = m.Entries[i].MarshalMsg(b); err != nil {
			return b, err
		}
	}
	return b, nil
}

func (m *ListResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) ([]byte, error) {
		if key != "entries" {
			return msgp.Skip(b)
		}
		n, o, err := msgp.ReadArrayHeaderBytes(b)
		if err != nil {
			return o, err
		}
		m.Entries = make([]DescriptorMsg, n)
		for i := range m.Entries {
			if o, err = m.Entries[i].UnmarshalMsg(o); err != nil {
				return o, err
			}
		}
		return o, nil
	})
}

func (m *OpenReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 4)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, m.Path)
	b = msgp.AppendString(b, "mode")
	b = msgp.AppendUint32(b, m.Mode)
	b = msgp.AppendString(b, "perm")
	b = msgp.AppendUint32(b, m.Perm)
	b = msgp.AppendString(b, "create")
	b = msgp.AppendBool(b, m.Create)
	return b, nil
}

func (m *OpenReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "path":
			m.Path, o, err = msgp.ReadStringBytes(b)
		case "mode":
			m.Mode, o, err = msgp.ReadUint32Bytes(b)
		case "perm":
			m.Perm, o, err = msgp.ReadUint32Bytes(b)
		case "create":
			m.Create, o, err = msgp.ReadBoolBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *HandleResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendUint32(b, m.Handle)
	return b, nil
}

func (m *HandleResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		if key == "handle" {
			m.Handle, o, err = msgp.ReadUint32Bytes(b)
			return o, err
		}
		return msgp.Skip(b)
	})
}

func (m *ReadReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendUint32(b, m.Handle)
	b = msgp.AppendString(b, "offset")
	b = msgp.AppendInt64(b, m.Offset)
	b = msgp.AppendString(b, "max")
	b = msgp.AppendInt(b, m.Max)
	return b, nil
}

func (m *ReadReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "handle":
			m.Handle, o, err = msgp.ReadUint32Bytes(b)
		case "offset":
			m.Offset, o, err = msgp.ReadInt64Bytes(b)
		case "max":
			m.Max, o, err = msgp.ReadIntBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *ReadResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 3)
	b = msgp.AppendString(b, "data")
	b = msgp.AppendBytes(b, m.Data)
	b = msgp.AppendString(b, "error")
	b = msgp.AppendString(b, m.Error)
	b = msgp.AppendString(b, "code")
	b = msgp.AppendInt(b, m.Code)
	return b, nil
}

func (m *ReadResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "data":
			m.Data, o, err = msgp.ReadBytesBytes(b, nil)
		case "error":
			m.Error, o, err = msgp.ReadStringBytes(b)
		case "code":
			m.Code, o, err = msgp.ReadIntBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *WriteReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendUint32(b, m.Handle)
	b = msgp.AppendString(b, "data")
	b = msgp.AppendBytes(b, m.Data)
	return b, nil
}

func (m *WriteReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "handle":
			m.Handle, o, err = msgp.ReadUint32Bytes(b)
		case "data":
			m.Data, o, err = msgp.ReadBytesBytes(b, nil)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func (m *WriteResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "written")
	b = msgp.AppendInt(b, m.Written)
	return b, nil
}

func (m *WriteResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		if key == "written" {
			m.Written, o, err = msgp.ReadIntBytes(b)
			return o, err
		}
		return msgp.Skip(b)
	})
}

func (m *CloseReq) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 1)
	b = msgp.AppendString(b, "handle")
	b = msgp.AppendUint32(b, m.Handle)
	return b, nil
}

func (m *CloseReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		if key == "handle" {
			m.Handle, o, err = msgp.ReadUint32Bytes(b)
			return o, err
		}
		return msgp.Skip(b)
	})
}

func (m *CreateFolderReq) MarshalMsg(b []byte) ([]byte, error) {
	return appendPathPerm(b, m.Path, m.Perm), nil
}

func (m *CreateFolderReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodePathPerm(b, &m.Path, &m.Perm)
}

func (m *CreateFileReq) MarshalMsg(b []byte) ([]byte, error) {
	return appendPathPerm(b, m.Path, m.Perm), nil
}

func (m *CreateFileReq) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodePathPerm(b, &m.Path, &m.Perm)
}

func (*AckResp) MarshalMsg(b []byte) ([]byte, error) {
	return msgp.AppendMapHeader(b, 0), nil
}

func (*AckResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(_ string, b []byte) ([]byte, error) {
		return msgp.Skip(b)
	})
}

func (m *ErrorResp) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "message")
	b = msgp.AppendString(b, m.Message)
	b = msgp.AppendString(b, "code")
	b = msgp.AppendInt(b, m.Code)
	return b, nil
}

func (m *ErrorResp) UnmarshalMsg(b []byte) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "message":
			m.Message, o, err = msgp.ReadStringBytes(b)
		case "code":
			m.Code, o, err = msgp.ReadIntBytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}

func appendPathPerm(b []byte, p string, perm uint32) []byte {
	b = msgp.AppendMapHeader(b, 2)
	b = msgp.AppendString(b, "path")
	b = msgp.AppendString(b, p)
	b = msgp.AppendString(b, "perm")
	b = msgp.AppendUint32(b, perm)
	return b
}

func decodePathPerm(b []byte, p *string, perm *uint32) ([]byte, error) {
	return decodeMap(b, func(key string, b []byte) (o []byte, err error) {
		switch key {
		case "path":
			*p, o, err = msgp.ReadStringBytes(b)
		case "perm":
			*perm, o, err = msgp.ReadUint32Bytes(b)
		default:
			o, err = msgp.Skip(b)
		}
		return o, err
	})
}
