package rdb

import (
	"encoding/hex"

	"github.com/hnimtadd/craft-redis/internal/redis/resp"
)

type File struct {
	Content []byte
}

// Data returns the snapshot framed as an inline payload, the form a master
// sends after +FULLRESYNC.
func (f File) Data() resp.InlineBytesData {
	return resp.InlineBytesData{Content: f.Content}
}

func (f File) String() string {
	return f.Data().String()
}

// EmptyFile is the snapshot of a dataset with no keys.
var EmptyFile = func() File {
	emptyHexHash := "524544495330303131fa0972656469732d76657205372e322e30fa0a72656469732d62697473c040fa056374696d65c26d08bc65fa08757365642d6d656dc2b0c41000fa08616f662d62617365c000fff06e3bfec0ff5aa2"
	value, err := hex.DecodeString(emptyHexHash)
	if err != nil {
		panic(err)
	}
	return File{Content: value}
}()
