package lfsdbg

// Branch is the payload of a btree branch record, pointing at a child rbyd.
type Branch struct {
	Block  uint32
	Trunk  int
	Weight uint32
	Cksum  uint32
}

// DecodeBranch decodes leb128(block) leb128(trunk) leb128(weight) le32(cksum).
func DecodeBranch(data []byte) Branch {
	d := makeByteDecoder(data)
	var b Branch
	b.Block = d.LEB128()
	b.Trunk = int(d.LEB128())
	b.Weight = d.LEB128()
	b.Cksum = d.LE32()
	return b
}

// DecodeBlocks decodes a sequence of leb128 block numbers, as used by mdir
// and mroot references.
func DecodeBlocks(data []byte) []uint32 {
	var blocks []uint32
	d := makeByteDecoder(data)
	for !d.Empty() {
		blocks = append(blocks, d.LEB128())
	}
	return blocks
}

// BtreeStep is one node visited by BtreeLookup.
type BtreeStep struct {
	Bid     int64
	Weight  int64
	Rbyd    *Rbyd
	Rid     int64
	Entries []Entry
}

// BtreeResult is the leaf found by BtreeLookup.
type BtreeResult struct {
	// Done means there is nothing at or after the requested bid.
	Done    bool
	Bid     int64
	Weight  int64
	Rbyd    *Rbyd
	Rid     int64
	Entries []Entry
	// Path lists every node visited from the root, including the leaf.
	Path []BtreeStep
}

// Corrupted reports that the walk hit an invalid rbyd. Bid and Weight still
// describe the branch that failed so callers can skip past it.
func (res *BtreeResult) Corrupted() bool {
	return !res.Rbyd.Valid()
}

// Find returns the first leaf entry with the given tag.
func (res *BtreeResult) Find(tag Tag) (Entry, bool) {
	for _, e := range res.Entries {
		if e.Tag == tag {
			return e, true
		}
	}
	return Entry{}, false
}

// BtreeLookup walks the btree rooted at r down to the leaf entry containing
// bid. depth limits how many levels are descended; zero means unlimited.
func (r *Rbyd) BtreeLookup(img *Image, bid int64, depth int) BtreeResult {
	if !r.Valid() {
		// reported once, when walking from the start
		return BtreeResult{Done: bid > 0, Bid: bid, Rbyd: r, Rid: -1}
	}

	rbyd := r
	rid := bid
	level := 1
	var path []BtreeStep

	for {
		var entries []Entry
		var branch *Entry
		rid1 := rid
		var w int64
		tag := Tag(0)
		for i := 0; ; i++ {
			e, ok := rbyd.Lookup(rid1, tag+1)
			if !ok || (i != 0 && e.Rid != rid1) {
				break
			}
			// the first tag carries the weight of the whole branch
			if i == 0 {
				rid1, w = e.Rid, e.Weight
			}
			if e.Tag == TagBTree {
				branch = &e
			}
			entries = append(entries, e)
			tag = e.Tag
		}

		abs := bid + (rid1 - rid)
		path = append(path, BtreeStep{
			Bid:     abs,
			Weight:  w,
			Rbyd:    rbyd,
			Rid:     rid1,
			Entries: entries,
		})

		if branch == nil || (depth != 0 && level >= depth) {
			return BtreeResult{
				Done:    len(entries) == 0,
				Bid:     abs,
				Weight:  w,
				Rbyd:    rbyd,
				Rid:     rid1,
				Entries: entries,
				Path:    path,
			}
		}

		br := DecodeBranch(branch.Data)
		var child *Rbyd
		if level <= img.BlockCount() {
			child = img.FetchTrunk(br.Trunk, br.Block)
		} else {
			// deeper than there are blocks, the branches must loop
			child = &Rbyd{Block: br.Block}
		}
		if !child.Valid() {
			return BtreeResult{
				Bid:    abs,
				Weight: w,
				Rbyd:   child,
				Rid:    -1,
				Path:   path,
			}
		}
		rbyd = child
		rid -= rid1 - (w - 1)
		level++
	}
}
