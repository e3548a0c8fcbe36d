package lfsdbg

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

type encodingMethod int

const (
	MsgPack encodingMethod = iota
	JSON

	defaultValueEncoding = MsgPack
)

func (enc encodingMethod) Encode(v any) []byte {
	switch enc {
	case MsgPack:
		var buf bytes.Buffer
		enc := msgpack.GetEncoder()
		enc.ResetDict(&buf, nil)
		enc.SetSortMapKeys(true)
		err := enc.Encode(v)
		msgpack.PutEncoder(enc)
		if err != nil {
			panic(fmt.Errorf("failed to encode %T using MsgPack: %w", v, err))
		}
		return buf.Bytes()
	case JSON:
		raw, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			panic(fmt.Errorf("failed to encode %T to JSON: %w", v, err))
		}
		return raw
	default:
		panic("unsupported encoding")
	}
}

func (enc encodingMethod) Decode(buf []byte, ptr any) error {
	switch enc {
	case MsgPack:
		var r bytes.Reader
		r.Reset(buf)
		dec := msgpack.GetDecoder()
		dec.ResetDict(&r, nil)
		err := dec.Decode(ptr)
		msgpack.PutDecoder(dec)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode msgpack into %T", ptr)
		}
		return nil
	case JSON:
		err := json.Unmarshal(buf, ptr)
		if err != nil {
			return dataErrf(buf, 0, err, "failed to decode JSON into %T", ptr)
		}
		return nil
	default:
		panic("unsupported encoding")
	}
}
