package lfsdbg

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpHeader = DumpFlags(1 << iota)
	DumpConfig
	DumpGState
	DumpGDeltas
	DumpProblems
	DumpMdirs
	DumpTree

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)

	indentStep = "  "
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the selected parts of an inspection as plain text.
func (insp *Inspection) Dump(img *Image, f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpHeader) {
		fmt.Fprintln(&buf, insp.Header(img.MleafWeight()))
	}
	if f.Contains(DumpConfig) {
		insp.dumpConfig(&buf)
	}
	if f.Contains(DumpGState) {
		insp.dumpGState(&buf, f, img.MleafWeight())
	}
	if f.Contains(DumpMdirs) {
		insp.dumpMdirs(&buf, img.MleafWeight())
	}
	if f.Contains(DumpTree) {
		insp.dumpTree(&buf, img)
	}
	if f.Contains(DumpProblems) && len(insp.Problems) > 0 {
		fmt.Fprintln(&buf, dumpSep1)
		for _, p := range insp.Problems {
			fmt.Fprintf(&buf, "problem: %v\n", p)
		}
	}
	return buf.String()
}

// Header is the one-line summary of the filesystem.
func (insp *Inspection) Header(mleafWeight int64) string {
	major, minor := "?", "?"
	if insp.Config.HasVersion {
		major, minor = fmt.Sprint(insp.Config.Version[0]), fmt.Sprint(insp.Config.Version[1])
	}
	return fmt.Sprintf("littlefs v%s.%s %s, rev %d, weight %d.%d", major, minor, insp.Mroot.Addr(), insp.Mroot.Rev, insp.BWeight/mleafWeight, mleafWeight)
}

func (insp *Inspection) dumpConfig(w *strings.Builder) {
	fmt.Fprintln(w, dumpSep1)
	for i, tag := range insp.Config.Tags() {
		e := insp.Config.Raw[tag]
		label := ""
		if i == 0 {
			label = "config:"
		}
		fmt.Fprintf(w, "%12s %-28s  %s\n", label, insp.Config.Repr(tag), hexPreview(e.Data, 8))
	}
}

// Repr describes one config record.
func (c *Config) Repr(tag Tag) string {
	e := c.Raw[tag]
	switch tag {
	case TagMagic:
		return fmt.Sprintf("magic %q", printable(c.Magic))
	case TagVersion:
		return fmt.Sprintf("version v%d.%d", c.Version[0], c.Version[1])
	case TagFlags:
		return fmt.Sprintf("flags 0x%x", c.Flags.V)
	case TagCksumType:
		return fmt.Sprintf("cksum_type %d", c.CksumType.V)
	case TagRedundType:
		return fmt.Sprintf("redund_type %d", c.RedundType.V)
	case TagBlockLimit:
		return fmt.Sprintf("block_limit %d", c.BlockLimit.V)
	case TagDiskLimit:
		return fmt.Sprintf("disk_limit %d", c.DiskLimit.V)
	case TagMleafLimit:
		return fmt.Sprintf("mleaf_limit %d", c.MleafLimit.V)
	case TagSizeLimit:
		return fmt.Sprintf("size_limit %d", c.SizeLimit.V)
	case TagNameLimit:
		return fmt.Sprintf("name_limit %d", c.NameLimit.V)
	case TagUtagLimit:
		return fmt.Sprintf("utag_limit %d", c.UtagLimit.V)
	case TagUattrLimit:
		return fmt.Sprintf("uattr_limit %d", c.UattrLimit.V)
	default:
		return fmt.Sprintf("config 0x%02x %d", uint16(tag), len(e.Data))
	}
}

func (insp *Inspection) dumpGState(w *strings.Builder, f DumpFlags, mleafWeight int64) {
	fmt.Fprintln(w, dumpSep1)
	g := insp.GState
	for i, tag := range g.Tags() {
		label := ""
		if i == 0 {
			label = "gstate:"
		}
		data := g.State(tag)
		fmt.Fprintf(w, "%12s %-28s  %s\n", label, g.Repr(tag), hexPreview(data, 8))

		if f.Contains(DumpGDeltas) {
			for _, d := range g.Deltas(tag) {
				fmt.Fprintf(w, "%s%s: %d %s %s\n", indentStep, d.Mdir.Addr(), d.Mbid/mleafWeight, tag, hexPreview(d.Data, 8))
			}
		}
	}
}

// Repr describes the accumulated value of a gstate tag.
func (g *GState) Repr(tag Tag) string {
	data := g.state[tag]
	if tag != TagGRM {
		return fmt.Sprintf("gstate 0x%02x %d", uint16(tag), len(data))
	}
	count, _ := FromLEB128(data)
	if count == 0 {
		return "grm none"
	}
	rms, ok := g.GRM()
	if !ok {
		return fmt.Sprintf("grm 0x%x %d", count, len(data))
	}
	parts := make([]string, len(rms))
	for i, rm := range rms {
		parts[i] = fmt.Sprintf("%d.%d", rm.Mbid/g.mleafWeight, rm.Rid)
	}
	return "grm " + strings.Join(parts, " ")
}

func (insp *Inspection) dumpMdirs(w *strings.Builder, mleafWeight int64) {
	fmt.Fprintln(w, dumpSep1)
	for _, r := range insp.Mroots {
		fmt.Fprintf(w, "mroot %s: rev %d, eoff %d, weight %d\n", r.Addr(), r.Rev, r.EOff, r.Weight)
	}
	if len(insp.Mdirs) > 0 {
		fmt.Fprintln(w, dumpSep2)
	}
	for _, m := range insp.Mdirs {
		fmt.Fprintf(w, "mdir %d %s: rev %d, eoff %d, weight %d\n", m.Mbid/mleafWeight, m.Mdir.Addr(), m.Mdir.Rev, m.Mdir.EOff, m.Mdir.Weight)
	}
}

// dumpTree lists the directory tree starting at the root directory.
func (insp *Inspection) dumpTree(w *strings.Builder, img *Image) {
	fmt.Fprintln(w, dumpSep1)
	seen := make(map[uint32]bool)
	var rec func(did uint32, prefix string)
	rec = func(did uint32, prefix string) {
		if seen[did] {
			return
		}
		seen[did] = true
		for de := range insp.Mroot.MtreeDir(img, did) {
			if de.Tag == TagBookmark {
				continue
			}
			grmed := insp.GState.Removed(max(de.Mbid-max(de.MdirRef.Weight-1, 0), 0), de.Rid)
			note := ""
			if grmed {
				note = " (grmed)"
			}
			fmt.Fprintf(w, "%s%s  %s%s\n", prefix, de.Name, entryRepr(de.Mdir, de.Rid, de.Tag), note)
			if de.Tag == TagDir && !grmed {
				if e, ok := de.Mdir.Get(de.Rid, TagDid); ok {
					child, _ := FromLEB128(e.Data)
					rec(child, prefix+indentStep)
				}
			}
		}
	}
	rec(0, "")
}

// entryRepr describes a file entry by its type and struct.
func entryRepr(mdir *Rbyd, rid int64, tag Tag) string {
	switch tag {
	case TagBookmark:
		if e, ok := mdir.Get(rid, tag); ok {
			did, _ := FromLEB128(e.Data)
			return fmt.Sprintf("bookmark 0x%x", did)
		}
		return "bookmark ?"
	case TagDir:
		if e, ok := mdir.Get(rid, TagDid); ok {
			did, _ := FromLEB128(e.Data)
			return fmt.Sprintf("dir 0x%x", did)
		}
		return "dir ?"
	case TagReg:
		var size uint32
		var structs []string
		if e, ok := mdir.Get(rid, TagInlined); ok {
			size = max(size, uint32(len(e.Data)))
			structs = append(structs, fmt.Sprintf("inlined 0x%x.%x %d", mdir.Block, e.Off+e.HdrLen, len(e.Data)))
		}
		if e, ok := mdir.Get(rid, TagTrunk); ok {
			d := makeByteDecoder(e.Data)
			trunk := d.LEB128()
			weight := d.LEB128()
			size = max(size, weight)
			structs = append(structs, fmt.Sprintf("trunk 0x%x.%x", mdir.Block, trunk))
		}
		return "reg " + strings.Join(append([]string{fmt.Sprint(size)}, structs...), ", ")
	default:
		return fmt.Sprintf("type 0x%02x", uint16(tag)&0xff)
	}
}

func hexPreview(data []byte, n int) string {
	if len(data) > n {
		return fmt.Sprintf("%x...", data[:n])
	}
	return fmt.Sprintf("%x", data)
}

func printable(b []byte) string {
	r := make([]byte, len(b))
	for i, c := range b {
		if c >= ' ' && c <= '~' {
			r[i] = c
		} else {
			r[i] = '.'
		}
	}
	return string(r)
}
