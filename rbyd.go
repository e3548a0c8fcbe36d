package lfsdbg

// Rbyd is the decoded head of a block log: the most recent committed tree
// root of a block, or of the newest of several redundant blocks.
//
// An Rbyd with a zero trunk is invalid: nothing in the block validated, which
// means the block is corrupted (or was never written). Rbyds are never
// modified after Fetch returns them.
type Rbyd struct {
	Block uint32
	Data  []byte
	Rev   uint32
	// EOff is the end of the last commit that validated.
	EOff   int
	Trunk  int
	Weight int64
	// Redund lists the other blocks of a redundant block group.
	Redund []uint32
}

// Valid reports whether anything in the block validated.
func (r *Rbyd) Valid() bool {
	return r != nil && r.Trunk != 0
}

// Equal reports whether both heads point at the same tree.
func (r *Rbyd) Equal(o *Rbyd) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.Block == o.Block && r.Trunk == o.Trunk
}

// Blocks returns the selected block followed by the redundant ones.
func (r *Rbyd) Blocks() []uint32 {
	return append([]uint32{r.Block}, r.Redund...)
}

// Addr formats the head as 0x{block,redund...}.trunk.
func (r *Rbyd) Addr() string {
	if r == nil {
		return "<nil>"
	}
	s := formatAddr(r.Blocks(), 0)
	return s + "." + formatHex(r.Trunk)
}

// Committed returns the bytes of the block up to the end of the last commit.
func (r *Rbyd) Committed() []byte {
	if r == nil {
		return nil
	}
	return r.Data[:min(r.EOff, len(r.Data))]
}

// ScanBlock replays the log in data, the contents of one block, and returns
// the head of the last commit whose checksum validates.
//
// If trunk is non-zero, the tree rooted at that offset is selected instead of
// the latest one. It may be a shrub or not yet committed; the scan still runs
// to the next commit so EOff covers the requested tree.
func ScanBlock(block uint32, data []byte, trunk int) *Rbyd {
	rev := FromLE32(data)
	crc := CRC32C(0, window(data, 0, 4))
	off := 4
	eoff := 0
	trunkEOff := 0

	// committed, tracked and candidate trunks
	var trunk0, trunk1, trunk2 int
	var weight0, weight1, weight2 int64
	var inTrunk bool

	for off < len(data) && (trunk == 0 || eoff <= trunk) {
		h := DecodeHeader(data[off:])
		if h.Parity != parity(crc) {
			break
		}
		crc = CRC32C(crc, window(data, off, h.Len))
		start := off
		off += h.Len
		size := int(h.Size)
		if !h.IsAlt() && (size < 0 || off+size > len(data)) {
			break
		}

		if !h.IsAlt() {
			if h.Cat != CatCksum {
				crc = CRC32C(crc, data[off:off+size])
			} else {
				if crc != FromLE32(data[off:off+size]) {
					break
				}
				if trunkEOff != 0 {
					eoff = trunkEOff
				} else {
					eoff = off + size
				}
				trunk0, weight0 = trunk1, weight1
			}
		}

		if !h.Tag.isCksumFamily() && (trunk == 0 || trunk >= start || inTrunk) {
			if !inTrunk {
				inTrunk = true
				trunk2 = start
				weight2 = 0
			}
			weight2 += int64(h.Weight)

			if !h.IsAlt() {
				inTrunk = false
				// shrubs only become the trunk when explicitly requested
				if !h.Tag.IsShrub() || trunk != 0 {
					trunk1, weight1 = trunk2, weight2
					if trunk != 0 && off+size > trunk {
						trunkEOff = off + size
					}
				}
			}
		}

		if !h.IsAlt() {
			off += size
		}
	}

	return &Rbyd{
		Block:  block,
		Data:   data,
		Rev:    rev,
		EOff:   eoff,
		Trunk:  trunk0,
		Weight: weight0,
	}
}

// newerThan reports whether r should win over o among redundant copies:
// valid beats invalid, then later revision in sequence arithmetic, then
// higher trunk.
func (r *Rbyd) newerThan(o *Rbyd) bool {
	if !r.Valid() {
		return false
	}
	if !o.Valid() {
		return true
	}
	if d := r.Rev - o.Rev; d != 0 {
		return d&0x80000000 == 0
	}
	return r.Trunk > o.Trunk
}

// pickRedund selects the newest of several copies of the same rbyd and
// records the others as redundant blocks.
func pickRedund(rbyds []*Rbyd) *Rbyd {
	best := 0
	for i, r := range rbyds {
		if r.newerThan(rbyds[best]) {
			best = i
		}
	}
	n := len(rbyds)
	r := rbyds[best]
	r.Redund = make([]uint32, 0, n-1)
	for i := 1; i < n; i++ {
		r.Redund = append(r.Redund, rbyds[(best+i)%n].Block)
	}
	return r
}
