package lfsdbg

import (
	"bytes"
	"iter"
)

// DecodeName splits a name payload into its directory id and name bytes.
func DecodeName(data []byte) (did uint32, name []byte) {
	did, n := FromLEB128(data)
	return did, data[n:]
}

func cmpName(did1 uint32, name1 []byte, did2 uint32, name2 []byte) int {
	switch {
	case did1 < did2:
		return -1
	case did1 > did2:
		return 1
	default:
		return bytes.Compare(name1, name2)
	}
}

// NameResult is the outcome of a name lookup. When Found is false, Rid, Tag
// and Weight describe the closest entry ordered before the name, or Rid is
// -1 if there is none.
type NameResult struct {
	Found  bool
	Rid    int64
	Tag    Tag
	Weight int64
}

// NameLookup binary-searches the names of r for (did, name).
func (r *Rbyd) NameLookup(did uint32, name []byte) NameResult {
	best := NameResult{Rid: -1}
	lower, upper := int64(0), r.Weight
	for lower < upper {
		mid := lower + (upper-1-lower)/2
		e, ok := r.Lookup(mid, TagName)
		if !ok {
			break
		}

		// vestigial names sort before everything
		var did1 uint32
		var name1 []byte
		if !(e.Tag == TagBranch && e.Rid-(e.Weight-1) == 0) && e.Tag&0xff00 == TagName {
			did1, name1 = DecodeName(e.Data)
		}

		switch c := cmpName(did1, name1, did, name); {
		case c > 0:
			// a name found past mid means mid itself has none
			upper = min(e.Rid-(e.Weight-1), mid)
		case c < 0:
			lower = max(e.Rid+1, mid+1)
			best = NameResult{Rid: e.Rid, Tag: e.Tag, Weight: e.Weight}
		default:
			return NameResult{Found: true, Rid: e.Rid, Tag: e.Tag, Weight: e.Weight}
		}
	}
	return best
}

// MdirRef is an mdir located through the mroot.
type MdirRef struct {
	Mbid   int64
	Weight int64
	Mdir   *Rbyd
}

// MtreeLookup finds the mdir containing mbid, treating r as the mroot. The
// mroot either points at an mtree, points at a single mdir, or is itself
// the only mdir (inlined, mbid -1). It returns false if there is no such mdir
// or the walk hit corruption.
func (r *Rbyd) MtreeLookup(img *Image, mbid int64) (MdirRef, bool) {
	if e, ok := r.Get(-1, TagMtree); ok {
		br := DecodeBranch(e.Data)
		mtree := img.FetchTrunk(br.Trunk, br.Block)
		if !mtree.Valid() {
			return MdirRef{Mbid: -1}, false
		}

		res := mtree.BtreeLookup(img, mbid, 0)
		if res.Done || res.Corrupted() {
			return MdirRef{Mbid: -1}, false
		}
		m, ok := res.Find(TagMdir)
		if !ok {
			return MdirRef{Mbid: -1}, false
		}
		return MdirRef{Mbid: res.Bid, Weight: res.Weight, Mdir: img.Fetch(DecodeBlocks(m.Data)...)}, true
	}

	if e, ok := r.Get(-1, TagMdir); ok {
		return MdirRef{Mbid: 0, Mdir: img.Fetch(DecodeBlocks(e.Data)...)}, true
	}

	if mbid == -1 {
		return MdirRef{Mbid: -1, Mdir: r}, true
	}
	return MdirRef{Mbid: -1}, false
}

// BtreeNameResult is the leaf found by BtreeNameLookup.
type BtreeNameResult struct {
	Bid    int64
	Tag    Tag
	Weight int64
	Data   []byte
}

// BtreeNameLookup descends a btree keyed by names, treating r as the root,
// and returns the struct of the leaf whose name range covers (did, name).
func (r *Rbyd) BtreeNameLookup(img *Image, did uint32, name []byte) BtreeNameResult {
	rbyd := r
	var bid int64
	for level := 0; ; level++ {
		nr := rbyd.NameLookup(did, name)
		e, _ := rbyd.Lookup(nr.Rid, TagStruct)
		if e.Tag != TagBTree || level > img.BlockCount() {
			return BtreeNameResult{Bid: bid + nr.Rid, Tag: e.Tag, Weight: nr.Weight, Data: e.Data}
		}
		bid += nr.Rid - (nr.Weight - 1)
		br := DecodeBranch(e.Data)
		rbyd = img.FetchTrunk(br.Trunk, br.Block)
	}
}

// NameRef is a name resolved through the mroot.
type NameRef struct {
	MdirRef
	NameResult
}

// MtreeNameLookup resolves (did, name) starting from r as the mroot. Found is
// false if the name doesn't exist; Mdir is nil if the mdir couldn't be found.
func (r *Rbyd) MtreeNameLookup(img *Image, did uint32, name []byte) NameRef {
	var ref MdirRef
	if e, ok := r.Get(-1, TagMtree); ok {
		br := DecodeBranch(e.Data)
		mtree := img.FetchTrunk(br.Trunk, br.Block)
		if !mtree.Valid() {
			return NameRef{MdirRef: MdirRef{Mbid: -1}, NameResult: NameResult{Rid: -1}}
		}
		res := mtree.BtreeNameLookup(img, did, name)
		if res.Tag != TagMdir {
			return NameRef{MdirRef: MdirRef{Mbid: -1}, NameResult: NameResult{Rid: -1}}
		}
		ref = MdirRef{Mbid: res.Bid, Weight: res.Weight, Mdir: img.Fetch(DecodeBlocks(res.Data)...)}
	} else if e, ok := r.Get(-1, TagMdir); ok {
		ref = MdirRef{Mbid: 0, Mdir: img.Fetch(DecodeBlocks(e.Data)...)}
	} else {
		ref = MdirRef{Mbid: -1, Mdir: r}
	}
	return NameRef{MdirRef: ref, NameResult: ref.Mdir.NameLookup(did, name)}
}

// DirEntry is one file in a directory listing.
type DirEntry struct {
	Name []byte
	MdirRef
	Rid    int64
	Tag    Tag
	Weight int64
}

// MtreeDir lists the directory did, starting after its bookmark and
// following names across mdirs until a name with another did shows up.
// The bookmark itself is included first.
func (r *Rbyd) MtreeDir(img *Image, did uint32) iter.Seq[DirEntry] {
	return func(yield func(DirEntry) bool) {
		ref := r.MtreeNameLookup(img, did, nil)
		if !ref.Found {
			return
		}
		mref, rid := ref.MdirRef, ref.Rid
		for {
			e, ok := mref.Mdir.Lookup(rid, TagName)
			if !ok {
				return
			}
			did1, name := DecodeName(e.Data)
			if did1 != did {
				return
			}
			if !yield(DirEntry{Name: name, MdirRef: mref, Rid: e.Rid, Tag: e.Tag, Weight: e.Weight}) {
				return
			}

			rid = e.Rid + e.Weight
			if rid >= mref.Mdir.Weight {
				rid -= mref.Mdir.Weight
				next, ok := r.MtreeLookup(img, mref.Mbid+1)
				if !ok || next.Mbid <= mref.Mbid {
					return
				}
				mref = next
			}
		}
	}
}
