package lfsdbg_test

import (
	"errors"
	"testing"

	"github.com/andreyvit/lfsdbg"
)

func TestParseAddr(t *testing.T) {
	tests := []struct {
		input string
		e     lfsdbg.Addr
	}{
		{"0x4", lfsdbg.Addr{Blocks: []uint32{4}}},
		{"0xa.1c", lfsdbg.Addr{Blocks: []uint32{10}, Trunk: 0x1c}},
		{"0x{6,7}", lfsdbg.Addr{Blocks: []uint32{6, 7}}},
		{"0x{1,0}.4", lfsdbg.Addr{Blocks: []uint32{1, 0}, Trunk: 4}},
		{"12", lfsdbg.Addr{Blocks: []uint32{12}}},
		{"{2, 3}", lfsdbg.Addr{Blocks: []uint32{2, 3}}},
		{"0b101.11", lfsdbg.Addr{Blocks: []uint32{5}, Trunk: 3}},
		{"0o17", lfsdbg.Addr{Blocks: []uint32{15}}},
		{" 0x1 ", lfsdbg.Addr{Blocks: []uint32{1}}},
		{"0x{0,1}.0", lfsdbg.Addr{Blocks: []uint32{0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			a, err := lfsdbg.ParseAddr(tt.input)
			if err != nil {
				t.Fatalf("ParseAddr(%q) failed: %v", tt.input, err)
			}
			deepEq(t, a, tt.e)
		})
	}
}

func TestParseAddr_errors(t *testing.T) {
	for _, input := range []string{"", "0x", "0xzz", "0x{1,2", "0x1.", "0x1.z", "0x{}", "-1"} {
		t.Run(input, func(t *testing.T) {
			_, err := lfsdbg.ParseAddr(input)
			if !errors.Is(err, lfsdbg.ErrInvalidAddr) {
				t.Errorf("ParseAddr(%q) = %v, wanted ErrInvalidAddr", input, err)
			}
		})
	}
}

func TestAddr_String(t *testing.T) {
	deepEq(t, lfsdbg.Addr{Blocks: []uint32{10}}.String(), "0xa")
	deepEq(t, lfsdbg.Addr{Blocks: []uint32{1, 0}, Trunk: 4}.String(), "0x{1,0}.4")
	deepEq(t, lfsdbg.Addr{Blocks: []uint32{0x20}, Trunk: 0x1c}.String(), "0x20.1c")

	a := must(lfsdbg.ParseAddr("0x{1f,2}.ab"))
	deepEq(t, a.String(), "0x{1f,2}.ab")
}
