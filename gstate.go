package lfsdbg

import (
	"maps"
	"slices"
)

// GDelta is one gstate delta found in an mdir.
type GDelta struct {
	Mbid   int64
	Weight int64
	Mdir   *Rbyd
	Off    int
	HdrLen int
	Data   []byte
}

// GState accumulates global state. Every mdir carries deltas which are XORed
// together; applying the same delta twice cancels it out.
type GState struct {
	mleafWeight int64
	state       map[Tag][]byte
	deltas      map[Tag][]GDelta
}

func NewGState(mleafWeight int64) *GState {
	if mleafWeight <= 0 {
		mleafWeight = 1
	}
	return &GState{
		mleafWeight: mleafWeight,
		state:       make(map[Tag][]byte),
		deltas:      make(map[Tag][]GDelta),
	}
}

// Xor folds the gstate deltas of mdir into the accumulated state.
func (g *GState) Xor(mbid, weight int64, mdir *Rbyd) {
	tag := TagGState - 1
	for {
		e, ok := mdir.Lookup(-1, tag+1)
		if !ok || e.Rid != -1 || e.Tag&0xff00 != TagGState {
			return
		}
		tag = e.Tag

		g.deltas[tag] = append(g.deltas[tag], GDelta{
			Mbid:   mbid,
			Weight: weight,
			Mdir:   mdir,
			Off:    e.Off,
			HdrLen: e.HdrLen,
			Data:   e.Data,
		})
		g.state[tag] = xorBytes(g.state[tag], e.Data)
	}
}

// xorBytes returns a XOR b, zero-extending the shorter operand.
func xorBytes(a, b []byte) []byte {
	r := make([]byte, max(len(a), len(b)))
	copy(r, a)
	for i, v := range b {
		r[i] ^= v
	}
	return r
}

// Tags returns the gstate tags seen so far in ascending order.
func (g *GState) Tags() []Tag {
	return slices.Sorted(maps.Keys(g.state))
}

// State returns the accumulated value of tag.
func (g *GState) State(tag Tag) []byte {
	return g.state[tag]
}

// Deltas returns the deltas of tag in the order they were folded in.
func (g *GState) Deltas(tag Tag) []GDelta {
	return g.deltas[tag]
}

// RemoveMarker is an entry pending removal, identified by the mbid of its
// mdir (a multiple of the mleaf weight) and its rid in that mdir.
type RemoveMarker struct {
	Mbid int64
	Rid  int64
}

// maxGRMCount is the number of pending removals the on-disk format can hold.
const maxGRMCount = 2

// GRM decodes the pending removals. It returns false if the count is larger
// than the format allows, in which case the state is opaque.
func (g *GState) GRM() ([]RemoveMarker, bool) {
	data, ok := g.state[TagGRM]
	if !ok {
		return nil, true
	}
	d := makeByteDecoder(data)
	count := d.LEB128()
	if count > maxGRMCount {
		return nil, false
	}
	var rms []RemoveMarker
	for range count {
		mid := int64(d.LEB128())
		rms = append(rms, RemoveMarker{
			Mbid: mid - mid%g.mleafWeight,
			Rid:  mid % g.mleafWeight,
		})
	}
	return rms, true
}

// Removed reports whether the entry at (mbid, rid) is pending removal.
func (g *GState) Removed(mbid, rid int64) bool {
	rms, _ := g.GRM()
	for _, rm := range rms {
		if rm.Mbid == mbid && rm.Rid == rid {
			return true
		}
	}
	return false
}
