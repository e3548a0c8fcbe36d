// Package imagetest builds device images for tests: blocks are written as
// checksummed logs with the same record layout the decoder reads.
package imagetest

import (
	"encoding/binary"
	"math/bits"

	"github.com/andreyvit/lfsdbg"
)

// Rec is one record to place into a tree. Weight is the number of rids the
// record consumes; extra tags on the same rid and rid -1 records use 0.
type Rec struct {
	Tag    lfsdbg.Tag
	Weight uint32
	Data   []byte
}

// Block accumulates the log of one block.
type Block struct {
	buf []byte
	crc uint32
}

func NewBlock(rev uint32) *Block {
	b := &Block{buf: binary.LittleEndian.AppendUint32(nil, rev)}
	b.crc = lfsdbg.CRC32C(0, b.buf)
	return b
}

// Len is the current size of the log.
func (b *Block) Len() int { return len(b.buf) }

func (b *Block) header(tag lfsdbg.Tag, weight, size uint32) {
	word := uint16(tag) & 0x7fff
	if bits.OnesCount32(b.crc)&1 != 0 {
		word |= 0x8000
	}
	start := len(b.buf)
	b.buf = binary.BigEndian.AppendUint16(b.buf, word)
	b.buf = binary.AppendUvarint(b.buf, uint64(weight))
	b.buf = binary.AppendUvarint(b.buf, uint64(size))
	b.crc = lfsdbg.CRC32C(b.crc, b.buf[start:])
}

// Tag appends a plain record and returns its offset.
func (b *Block) Tag(tag lfsdbg.Tag, weight uint32, data []byte) int {
	off := len(b.buf)
	b.header(tag, weight, uint32(len(data)))
	b.buf = append(b.buf, data...)
	b.crc = lfsdbg.CRC32C(b.crc, data)
	return off
}

// Alt appends an alt pointer jumping back to target and returns its offset.
// tag carries the key and the TagGT/TagR bits; TagAlt is added.
func (b *Block) Alt(tag lfsdbg.Tag, weight uint32, target int) int {
	off := len(b.buf)
	b.header(lfsdbg.TagAlt|tag, weight, uint32(off-target))
	return off
}

// Commit appends a checksum record covering everything written so far.
func (b *Block) Commit() {
	b.header(lfsdbg.TagCksum, 0, 4)
	b.buf = binary.LittleEndian.AppendUint32(b.buf, b.crc)
}

// Tree writes recs, which must be in (rid, tag) order, followed by a chain
// of black alts over them, and returns the offset of the tree's trunk.
// The tree isn't committed.
func (b *Block) Tree(recs ...Rec) int {
	if len(recs) == 0 {
		panic("imagetest: empty tree")
	}
	offs := make([]int, len(recs)-1)
	for i, r := range recs[:len(recs)-1] {
		offs[i] = b.Tag(r.Tag, r.Weight, r.Data)
	}
	trunk := len(b.buf)
	for i, r := range recs[:len(recs)-1] {
		b.Alt(r.Tag&0xfff, r.Weight, offs[i])
	}
	last := recs[len(recs)-1]
	b.Tag(last.Tag, last.Weight, last.Data)
	return trunk
}

// Bytes returns the log padded with zeros to size.
func (b *Block) Bytes(size int) []byte {
	if len(b.buf) > size {
		panic("imagetest: block overflow")
	}
	out := make([]byte, size)
	copy(out, b.buf)
	return out
}

// LEB128 encodes each value as leb128.
func LEB128(vs ...uint32) []byte {
	var out []byte
	for _, v := range vs {
		out = binary.AppendUvarint(out, uint64(v))
	}
	return out
}

// Name is a name payload: leb128(did) then the name bytes.
func Name(did uint32, name string) []byte {
	return append(LEB128(did), name...)
}

// Branch is a btree branch payload.
func Branch(block uint32, trunk int, weight, cksum uint32) []byte {
	return binary.LittleEndian.AppendUint32(LEB128(block, uint32(trunk), weight), cksum)
}

// Blocks is an mdir reference payload.
func Blocks(blocks ...uint32) []byte {
	return LEB128(blocks...)
}
