package lfsdbg

import "fmt"

// Tag is the 15-bit type code of a record, with the validity bit stripped.
type Tag uint16

const (
	TagNull       Tag = 0x0000
	TagConfig     Tag = 0x0000
	TagMagic      Tag = 0x0003
	TagVersion    Tag = 0x0004
	TagFlags      Tag = 0x0005
	TagCksumType  Tag = 0x0006
	TagRedundType Tag = 0x0007
	TagBlockLimit Tag = 0x0008
	TagDiskLimit  Tag = 0x0009
	TagMleafLimit Tag = 0x000a
	TagSizeLimit  Tag = 0x000b
	TagNameLimit  Tag = 0x000c
	TagUtagLimit  Tag = 0x000d
	TagUattrLimit Tag = 0x000e
	TagGState     Tag = 0x0100
	TagGRM        Tag = 0x0100
	TagName       Tag = 0x0200
	TagBranch     Tag = 0x0200
	TagBookmark   Tag = 0x0201
	TagReg        Tag = 0x0202
	TagDir        Tag = 0x0203
	TagStruct     Tag = 0x0300
	TagInlined    Tag = 0x0300
	TagTrunk      Tag = 0x0304
	TagBlock      Tag = 0x0308
	TagBTree      Tag = 0x030c
	TagMdir       Tag = 0x0311
	TagMtree      Tag = 0x0314
	TagMroot      Tag = 0x0318
	TagDid        Tag = 0x031c
	TagUAttr      Tag = 0x0400
	TagSAttr      Tag = 0x0600
	TagShrub      Tag = 0x1000
	TagCksum      Tag = 0x2000
	TagECksum     Tag = 0x2100
	TagAlt        Tag = 0x4000
	TagGT         Tag = 0x2000
	TagR          Tag = 0x1000
)

// tagKeyMask selects the part of a tag that alt pointers compare on.
const tagKeyMask Tag = 0x0fff

// Category is the record class encoded in the upper bits of a tag.
type Category uint8

const (
	CatUnknown Category = iota
	CatNull
	CatConfig
	CatGState
	CatName
	CatStruct
	CatUAttr
	CatSAttr
	CatCksum
	CatECksum
	CatAlt
)

var categoryNames = [...]string{
	CatUnknown: "unknown",
	CatNull:    "null",
	CatConfig:  "config",
	CatGState:  "gstate",
	CatName:    "name",
	CatStruct:  "struct",
	CatUAttr:   "uattr",
	CatSAttr:   "sattr",
	CatCksum:   "cksum",
	CatECksum:  "ecksum",
	CatAlt:     "alt",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

func (t Tag) Category() Category {
	switch {
	case t&TagAlt != 0:
		return CatAlt
	case t&0xefff == TagNull:
		return CatNull
	case t&0xef00 == TagConfig:
		return CatConfig
	case t&0xef00 == TagGState:
		return CatGState
	case t&0xef00 == TagName:
		return CatName
	case t&0xef00 == TagStruct:
		return CatStruct
	case t&0xee00 == TagUAttr:
		return CatUAttr
	case t&0xee00 == TagSAttr:
		return CatSAttr
	case t&0xff00 == TagCksum:
		return CatCksum
	case t&0xff00 == TagECksum:
		return CatECksum
	default:
		return CatUnknown
	}
}

func (t Tag) IsAlt() bool   { return t&TagAlt != 0 }
func (t Tag) IsShrub() bool { return t&TagShrub != 0 && !t.IsAlt() }

// isCksumFamily reports tags in the 0x2000-0x3fff range (checksums and their
// shrub variants) that never take part in trunk tracking.
func (t Tag) isCksumFamily() bool { return t&0xe000 == TagCksum }

// Key is the part of the tag alt pointers compare on.
func (t Tag) Key() Tag { return t & tagKeyMask }

var structNames = map[Tag]string{
	TagInlined: "inlined",
	TagTrunk:   "trunk",
	TagBlock:   "block",
	TagBTree:   "btree",
	TagMdir:    "mdir",
	TagMtree:   "mtree",
	TagMroot:   "mroot",
	TagDid:     "did",
}

var configNames = map[Tag]string{
	TagMagic:      "magic",
	TagVersion:    "version",
	TagFlags:      "flags",
	TagCksumType:  "cksumtype",
	TagRedundType: "redundtype",
	TagBlockLimit: "blocklimit",
	TagDiskLimit:  "disklimit",
	TagMleafLimit: "mleaflimit",
	TagSizeLimit:  "sizelimit",
	TagNameLimit:  "namelimit",
	TagUtagLimit:  "utaglimit",
	TagUattrLimit: "uattrlimit",
}

var nameNames = map[Tag]string{
	TagBranch:   "branch",
	TagBookmark: "bookmark",
	TagReg:      "reg",
	TagDir:      "dir",
}

// String returns a short human-readable name, e.g. "mdir" or "shrubreg".
func (t Tag) String() string {
	var prefix string
	if t.IsShrub() {
		prefix = "shrub"
	}
	base := t &^ TagShrub
	switch t.Category() {
	case CatNull:
		return prefix + "null"
	case CatConfig:
		if s, ok := configNames[base&0xfff]; ok {
			return prefix + s
		}
		return fmt.Sprintf("%sconfig 0x%02x", prefix, uint16(t&0xff))
	case CatGState:
		if base == TagGRM {
			return prefix + "grm"
		}
		return fmt.Sprintf("%sgstate 0x%02x", prefix, uint16(t&0xff))
	case CatName:
		if s, ok := nameNames[base]; ok {
			return prefix + s
		}
		return fmt.Sprintf("%sname 0x%02x", prefix, uint16(t&0xff))
	case CatStruct:
		if s, ok := structNames[base]; ok {
			return prefix + s
		}
		return fmt.Sprintf("%sstruct 0x%02x", prefix, uint16(t&0xff))
	case CatUAttr:
		return fmt.Sprintf("%suattr 0x%02x", prefix, uint16((t&0x100)>>1|t&0xff))
	case CatSAttr:
		return fmt.Sprintf("%ssattr 0x%02x", prefix, uint16((t&0x100)>>1|t&0xff))
	case CatCksum:
		return fmt.Sprintf("cksum 0x%02x", uint16(t&0xff))
	case CatECksum:
		return "ecksum"
	case CatAlt:
		color, dir := "b", "le"
		if t&TagR != 0 {
			color = "r"
		}
		if t&TagGT != 0 {
			dir = "gt"
		}
		return fmt.Sprintf("alt%s%s 0x%x", color, dir, uint16(t&tagKeyMask))
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// Header is a decoded record header.
type Header struct {
	Parity bool
	Tag    Tag
	Cat    Category
	Weight uint32
	// Size is the payload length, or the backward jump distance for alts.
	Size uint32
	Len  int
}

// DecodeHeader decodes the record header at the start of data. Windows shorter
// than 4 bytes are zero-padded, matching how a truncated block reads.
func DecodeHeader(data []byte) Header {
	var pad [4]byte
	if len(data) < 4 {
		copy(pad[:], data)
		data = pad[:]
	}
	word := uint16(data[0])<<8 | uint16(data[1])
	weight, d1 := FromLEB128(data[2:])
	size, d2 := FromLEB128(data[2+d1:])
	tag := Tag(word & 0x7fff)
	return Header{
		Parity: word&0x8000 != 0,
		Tag:    tag,
		Cat:    tag.Category(),
		Weight: weight,
		Size:   size,
		Len:    2 + d1 + d2,
	}
}

func (h Header) IsAlt() bool { return h.Cat == CatAlt }
