package lfsdbg_test

import (
	"testing"

	"github.com/andreyvit/lfsdbg"
)

func TestTag_Category(t *testing.T) {
	tests := []struct {
		tag lfsdbg.Tag
		e   lfsdbg.Category
	}{
		{lfsdbg.TagNull, lfsdbg.CatNull},
		{lfsdbg.TagMagic, lfsdbg.CatConfig},
		{lfsdbg.TagGRM, lfsdbg.CatGState},
		{lfsdbg.TagReg, lfsdbg.CatName},
		{lfsdbg.TagShrub | lfsdbg.TagReg, lfsdbg.CatName},
		{lfsdbg.TagMdir, lfsdbg.CatStruct},
		{lfsdbg.TagUAttr + 0x12, lfsdbg.CatUAttr},
		{lfsdbg.TagUAttr + 0x112, lfsdbg.CatUAttr},
		{lfsdbg.TagSAttr + 0x01, lfsdbg.CatSAttr},
		{lfsdbg.TagCksum, lfsdbg.CatCksum},
		{lfsdbg.TagCksum + 1, lfsdbg.CatCksum},
		{lfsdbg.TagECksum, lfsdbg.CatECksum},
		{lfsdbg.TagAlt | lfsdbg.TagR | 0x202, lfsdbg.CatAlt},
		{0x0800, lfsdbg.CatUnknown},
	}
	for _, tt := range tests {
		deepEq(t, tt.tag.Category(), tt.e)
	}
}

func TestTag_String(t *testing.T) {
	tests := []struct {
		tag lfsdbg.Tag
		e   string
	}{
		{lfsdbg.TagNull, "null"},
		{lfsdbg.TagMagic, "magic"},
		{lfsdbg.TagConfig + 0x20, "config 0x20"},
		{lfsdbg.TagGRM, "grm"},
		{lfsdbg.TagGState + 0x07, "gstate 0x07"},
		{lfsdbg.TagBookmark, "bookmark"},
		{lfsdbg.TagShrub | lfsdbg.TagReg, "shrubreg"},
		{lfsdbg.TagMdir, "mdir"},
		{lfsdbg.TagStruct + 0x02, "struct 0x02"},
		{lfsdbg.TagUAttr + 0x12, "uattr 0x12"},
		{lfsdbg.TagUAttr + 0x112, "uattr 0x92"},
		{lfsdbg.TagCksum, "cksum 0x00"},
		{lfsdbg.TagECksum, "ecksum"},
		{lfsdbg.TagAlt | 0x202, "altble 0x202"},
		{lfsdbg.TagAlt | lfsdbg.TagGT | lfsdbg.TagR | 0x31c, "altrgt 0x31c"},
		{0x0800, "0x0800"},
	}
	for _, tt := range tests {
		deepEq(t, tt.tag.String(), tt.e)
	}
	deepEq(t, lfsdbg.CatStruct.String(), "struct")
}

func TestDecodeHeader(t *testing.T) {
	deepEq(t, lfsdbg.DecodeHeader([]byte{0x82, 0x00, 0x01, 0x02, 0xff}), lfsdbg.Header{
		Parity: true,
		Tag:    lfsdbg.TagName,
		Cat:    lfsdbg.CatName,
		Weight: 1,
		Size:   2,
		Len:    4,
	})
	deepEq(t, lfsdbg.DecodeHeader([]byte{0x02, 0x02, 0x80, 0x01, 0x05}), lfsdbg.Header{
		Tag:    lfsdbg.TagReg,
		Cat:    lfsdbg.CatName,
		Weight: 128,
		Size:   5,
		Len:    5,
	})

	h := lfsdbg.DecodeHeader([]byte{0x40})
	deepEq(t, h.IsAlt(), true)
	deepEq(t, h.Len, 4)
	deepEq(t, h.Size, uint32(0))
}
