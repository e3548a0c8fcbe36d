package lfsdbg

// FromLE32 decodes a little-endian uint32 from up to 4 bytes. Shorter inputs
// are treated as if padded with zeros.
func FromLE32(data []byte) uint32 {
	var v uint32
	for i := 0; i < 4 && i < len(data); i++ {
		v |= uint32(data[i]) << (8 * i)
	}
	return v
}

// FromLEB128 decodes a base-128 varint truncated to 32 bits. It stops at the
// first byte without the continuation bit or at the end of data, and returns
// the value along with the number of bytes consumed.
func FromLEB128(data []byte) (uint32, int) {
	var v uint64
	for i, b := range data {
		if i < 5 {
			v |= uint64(b&0x7f) << (7 * i)
		}
		if b&0x80 == 0 {
			return uint32(v), i + 1
		}
	}
	return uint32(v), len(data)
}

// window returns data[off:off+n] clamped to the bounds of data.
func window(data []byte, off, n int) []byte {
	if off < 0 || off >= len(data) {
		return nil
	}
	end := off + n
	if n < 0 || end > len(data) {
		end = len(data)
	}
	return data[off:end]
}

type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Empty() bool {
	return len(d.Buf) == 0
}

func (d *byteDecoder) LEB128() uint32 {
	v, n := FromLEB128(d.Buf)
	d.Buf = d.Buf[n:]
	return v
}

func (d *byteDecoder) LE32() uint32 {
	v := FromLE32(d.Buf)
	d.Buf = d.Buf[min(4, len(d.Buf)):]
	return v
}

func (d *byteDecoder) Rest() []byte {
	v := d.Buf
	d.Buf = nil
	return v
}
