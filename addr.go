package lfsdbg

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a parsed rbyd address: one or more redundant blocks and an optional
// explicit trunk.
//
//	0xa     -> {a}
//	0xa.b   -> {a}, trunk b
//	0xa.0   -> {a}, trunk 0 meaning the latest one
//	0x{a,b} -> {a, b}
type Addr struct {
	Blocks []uint32
	Trunk  int
}

// ParseAddr parses the address notation used in the output of this package.
// The base prefix (0x, 0o, 0b) applies to every number in the address.
func ParseAddr(s string) (Addr, error) {
	orig := s
	s = strings.TrimSpace(s)
	base := 10
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			base, s = 16, s[2:]
		case 'o', 'O':
			base, s = 8, s[2:]
		case 'b', 'B':
			base, s = 2, s[2:]
		}
	}

	var a Addr
	if blocks, trunkStr, ok := strings.Cut(s, "."); ok {
		s = blocks
		v, err := strconv.ParseUint(trunkStr, base, 32)
		if err != nil {
			return Addr{}, fmt.Errorf("%w %q: bad trunk", ErrInvalidAddr, orig)
		}
		a.Trunk = int(v)
	}

	var parts []string
	if inner, ok := strings.CutPrefix(s, "{"); ok {
		inner, _, ok = strings.Cut(inner, "}")
		if !ok {
			return Addr{}, fmt.Errorf("%w %q: unterminated block list", ErrInvalidAddr, orig)
		}
		parts = strings.Split(inner, ",")
	} else {
		parts = []string{s}
	}

	for _, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), base, 32)
		if err != nil {
			return Addr{}, fmt.Errorf("%w %q: %v", ErrInvalidAddr, orig, err)
		}
		a.Blocks = append(a.Blocks, uint32(v))
	}
	return a, nil
}

func (a Addr) String() string {
	return formatAddr(a.Blocks, a.Trunk)
}

// formatAddr renders blocks in the 0x{a,b}.trunk notation, omitting the trunk
// when it is zero.
func formatAddr(blocks []uint32, trunk int) string {
	var buf strings.Builder
	buf.WriteString("0x")
	if len(blocks) == 1 {
		buf.WriteString(strconv.FormatUint(uint64(blocks[0]), 16))
	} else {
		buf.WriteByte('{')
		for i, b := range blocks {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(strconv.FormatUint(uint64(b), 16))
		}
		buf.WriteByte('}')
	}
	if trunk != 0 {
		buf.WriteByte('.')
		buf.WriteString(strconv.FormatInt(int64(trunk), 16))
	}
	return buf.String()
}

func formatHex(v int) string {
	return strconv.FormatInt(int64(v), 16)
}
