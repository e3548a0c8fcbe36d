package lfsdbg

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
)

// DidRef is a directory or bookmark record found during inspection.
type DidRef struct {
	Did     uint32
	Name    []byte
	Mbid    int64
	Mweight int64
	Mdir    *Rbyd
	Rid     int64
	Tag     Tag
	Weight  int64
}

// firstMbid is the mbid a remove marker uses to refer to the mdir holding d.
func (d DidRef) firstMbid() int64 {
	return max(d.Mbid-max(d.Mweight-1, 0), 0)
}

// Inspection is the result of walking every metadata structure reachable from
// the mroot.
type Inspection struct {
	// Mroot is the last mroot of the chain; Mroots lists the whole chain.
	Mroot      *Rbyd
	Mroots     []*Rbyd
	MrootDepth int
	// Mdir is the single mdir referenced directly by the mroot, if any.
	Mdir *Rbyd
	// Mtree is the root of the mtree, if any.
	Mtree *Rbyd
	// Mdirs lists every mdir visited, in mbid order.
	Mdirs []MdirRef

	BWeight int64
	RWeight int64

	Corrupted bool
	Problems  []*CorruptionError

	GState *GState
	Config *Config

	Dirs      []DidRef
	Bookmarks []DidRef
}

// Inspect walks the filesystem starting at the given mroot, defaulting to
// 0x{0,1}. An explicit trunk selects an older commit of the first mroot; the
// rest of the chain is always read at its latest commit. Corruption never
// stops the walk; it's recorded in Problems.
func Inspect(img *Image, mroot Addr) *Inspection {
	if len(mroot.Blocks) == 0 {
		mroot.Blocks = []uint32{0, 1}
	}
	insp := &Inspection{
		GState: NewGState(img.MleafWeight()),
		Config: ReadConfig(nil),
		Dirs:   []DidRef{{Did: 0, Mbid: -1, Rid: -1, Tag: TagDid}},
	}

	insp.walkMroots(img, mroot)

	if e, ok := insp.Mroot.Get(-1, TagMdir); ok {
		blocks := DecodeBlocks(e.Data)
		mdir := img.Fetch(blocks...)
		insp.Mdir = mdir
		if !mdir.Valid() {
			insp.problem(img, &CorruptionError{Kind: CorruptMdir, Blocks: blocks, Mbid: 0})
		} else {
			insp.visitMdir(MdirRef{Mbid: 0, Mdir: mdir})
		}
	}

	if e, ok := insp.Mroot.Get(-1, TagMtree); ok {
		br := DecodeBranch(e.Data)
		insp.BWeight = int64(br.Weight)
		insp.Mtree = img.FetchTrunk(br.Trunk, br.Block)
		if !insp.Mtree.Valid() {
			insp.problem(img, &CorruptionError{Kind: CorruptMtree, Blocks: []uint32{br.Block}, Trunk: br.Trunk, Mbid: -1})
		} else {
			insp.walkMtree(img)
		}
	}

	insp.checkDids(img)
	return insp
}

func (insp *Inspection) walkMroots(img *Image, addr Addr) {
	seen := make(map[uint32]bool)
	blocks, trunk := addr.Blocks, addr.Trunk
	mroot := img.FetchAddr(addr)
	insp.MrootDepth = 1
	for {
		insp.Mroot = mroot
		if !mroot.Valid() {
			insp.problem(img, &CorruptionError{Kind: CorruptMroot, Blocks: blocks, Trunk: trunk, Mbid: -1})
			return
		}
		insp.Mroots = append(insp.Mroots, mroot)
		for _, b := range mroot.Blocks() {
			seen[b] = true
		}

		insp.RWeight = max(insp.RWeight, mroot.Weight)
		insp.GState.Xor(-1, 0, mroot)
		insp.Config = ReadConfig(mroot)
		insp.collectDids(-1, 0, mroot)

		e, ok := mroot.Get(-1, TagMroot)
		if !ok {
			return
		}
		blocks = DecodeBlocks(e.Data)
		if slices.ContainsFunc(blocks, func(b uint32) bool { return seen[b] }) || insp.MrootDepth > img.BlockCount() {
			insp.problem(img, &CorruptionError{Kind: CorruptMrootChain, Blocks: blocks, Mbid: -1, Msg: "mroot chain loops"})
			return
		}
		mroot, trunk = img.Fetch(blocks...), 0
		insp.MrootDepth++
	}
}

func (insp *Inspection) walkMtree(img *Image) {
	mbid := int64(-1)
	for {
		res := insp.Mtree.BtreeLookup(img, mbid+1, 0)
		if res.Done {
			return
		}
		// no progress means the tree is lying about its weights
		if res.Bid <= mbid {
			insp.problem(img, &CorruptionError{Kind: CorruptBranch, Blocks: res.Rbyd.Blocks(), Trunk: res.Rbyd.Trunk, Mbid: res.Bid, Msg: "mtree walk doesn't advance"})
			return
		}
		mbid = res.Bid

		if res.Corrupted() {
			insp.problem(img, &CorruptionError{Kind: CorruptBranch, Blocks: []uint32{res.Rbyd.Block}, Trunk: res.Rbyd.Trunk, Mbid: res.Bid})
			continue
		}

		m, ok := res.Find(TagMdir)
		if !ok {
			continue
		}
		blocks := DecodeBlocks(m.Data)
		mdir := img.Fetch(blocks...)
		if !mdir.Valid() {
			insp.problem(img, &CorruptionError{Kind: CorruptMdir, Blocks: blocks, Mbid: res.Bid})
			continue
		}
		insp.visitMdir(MdirRef{Mbid: res.Bid, Weight: res.Weight, Mdir: mdir})
	}
}

func (insp *Inspection) visitMdir(ref MdirRef) {
	insp.Mdirs = append(insp.Mdirs, ref)
	insp.RWeight = max(insp.RWeight, ref.Mdir.Weight)
	insp.GState.Xor(ref.Mbid, ref.Weight, ref.Mdir)
	insp.collectDids(ref.Mbid, ref.Weight, ref.Mdir)
}

func (insp *Inspection) collectDids(mbid, mweight int64, mdir *Rbyd) {
	for e := range mdir.All() {
		if e.Tag != TagDid && e.Tag != TagBookmark {
			continue
		}
		did, name := DecodeName(e.Data)
		ref := DidRef{
			Did:     did,
			Name:    name,
			Mbid:    mbid,
			Mweight: mweight,
			Mdir:    mdir,
			Rid:     e.Rid,
			Tag:     e.Tag,
			Weight:  e.Weight,
		}
		if e.Tag == TagDid {
			insp.Dirs = append(insp.Dirs, ref)
		} else {
			insp.Bookmarks = append(insp.Bookmarks, ref)
		}
	}
}

// checkDids compares directories against bookmarks, ignoring anything a
// pending remove marker already deletes.
func (insp *Inspection) checkDids(img *Image) {
	dirs := insp.liveDids(insp.Dirs)
	bookmarks := insp.liveDids(insp.Bookmarks)
	if maps.Equal(dirs, bookmarks) {
		return
	}
	var missing, orphaned []uint32
	for did := range dirs {
		if !bookmarks[did] {
			missing = append(missing, did)
		}
	}
	for did := range bookmarks {
		if !dirs[did] {
			orphaned = append(orphaned, did)
		}
	}
	slices.Sort(missing)
	slices.Sort(orphaned)
	insp.problem(img, &CorruptionError{
		Kind: CorruptDids,
		Mbid: -1,
		Msg:  formatDidMismatch(missing, orphaned),
	})
}

func formatDidMismatch(missing, orphaned []uint32) string {
	var msg string
	if len(missing) > 0 {
		msg = fmt.Sprintf("missing bookmarks for dids %v", missing)
	}
	if len(orphaned) > 0 {
		if msg != "" {
			msg += ", "
		}
		msg += fmt.Sprintf("orphaned bookmarks for dids %v", orphaned)
	}
	return msg
}

func (insp *Inspection) liveDids(refs []DidRef) map[uint32]bool {
	m := make(map[uint32]bool, len(refs))
	for _, d := range refs {
		if !insp.GState.Removed(d.firstMbid(), d.Rid) {
			m[d.Did] = true
		}
	}
	return m
}

func (insp *Inspection) problem(img *Image, ce *CorruptionError) {
	insp.Corrupted = true
	insp.Problems = append(insp.Problems, ce)
	img.Logger().LogAttrs(context.Background(), slog.LevelWarn, "lfsdbg: corruption", slog.String("kind", ce.Kind.String()), slog.String("addr", formatAddr(ce.Blocks, ce.Trunk)), slog.Int64("mbid", ce.Mbid), slog.String("err", ce.Error()))
}

// Dir returns the directory record for did, if any.
func (insp *Inspection) Dir(did uint32) (DidRef, bool) {
	for _, d := range insp.Dirs {
		if d.Did == did {
			return d, true
		}
	}
	return DidRef{}, false
}
