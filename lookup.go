package lfsdbg

import "iter"

// Entry is one record of an rbyd, positioned in rid space.
type Entry struct {
	Rid    int64
	Tag    Tag
	Weight int64
	// Off is the offset of the record header in the block.
	Off    int
	HdrLen int
	Data   []byte
}

// Color of an alt pointer along a lookup path. Yellow marks a red alt
// followed by another red alt, i.e. a 4-node in 2-3-4 tree terms.
type Color uint8

const (
	Black Color = iota
	Red
	Yellow
)

func (c Color) String() string {
	switch c {
	case Red:
		return "r"
	case Yellow:
		return "y"
	default:
		return "b"
	}
}

// Step is one alt pointer visited during a lookup.
type Step struct {
	From     int
	To       int
	Followed bool
	Color    Color
}

// Lookup finds the first entry at or after (rid, tag). It returns false when
// there is no such entry; the returned Entry then describes whatever record
// the descent ended on, if any.
//
// Iterating with Lookup(rid, tag+1) from (-1, 0) visits every entry in order.
func (r *Rbyd) Lookup(rid int64, tag Tag) (Entry, bool) {
	e, _, ok := r.lookup(rid, tag, false)
	return e, ok
}

// LookupPath is like Lookup but also returns the alt pointers visited.
func (r *Rbyd) LookupPath(rid int64, tag Tag) (Entry, []Step, bool) {
	return r.lookup(rid, tag, true)
}

func (r *Rbyd) lookup(rid int64, tag Tag, trace bool) (Entry, []Step, bool) {
	if !r.Valid() {
		return Entry{Rid: -1}, nil, false
	}

	data := r.Data
	key := tag.Key()
	lower := int64(-1)
	upper := r.Weight
	var path []Step

	j := r.Trunk
	for steps := 0; ; steps++ {
		// a tree can't have more nodes than bytes, anything longer is a loop
		if j < 0 || j >= len(data) || steps > len(data) {
			return Entry{Rid: -1}, path, false
		}
		h := DecodeHeader(data[j:])

		if !h.IsAlt() {
			e := Entry{
				Rid:    upper - 1,
				Tag:    h.Tag,
				Weight: upper - 1 - lower,
				Off:    j,
				HdrLen: h.Len,
				Data:   window(data, j+h.Len, int(h.Size)),
			}
			done := e.Tag == TagNull || e.Rid < rid || (e.Rid == rid && e.Tag < tag)
			return e, path, !done
		}

		w := int64(h.Weight)
		altKey := h.Tag.Key()
		gt := h.Tag&TagGT != 0

		var follow bool
		if gt {
			follow = cmpKey(rid, key, upper-w-1, altKey) > 0
		} else {
			follow = cmpKey(rid, key, lower+w, altKey) <= 0
		}

		var next int
		if follow {
			jump := int(h.Size)
			if jump <= 0 || jump > j {
				return Entry{Rid: -1}, path, false
			}
			if gt {
				lower += upper - lower - 1 - w
			} else {
				upper -= upper - lower - 1 - w
			}
			next = j - jump
		} else {
			if gt {
				upper -= w
			} else {
				lower += w
			}
			next = j + h.Len
		}

		if trace {
			path = append(path, Step{
				From:     j,
				To:       next,
				Followed: follow,
				Color:    r.altColor(h.Tag, j+h.Len),
			})
		}
		j = next
	}
}

// altColor resolves the color of an alt whose successor on the forward path
// starts at succ.
func (r *Rbyd) altColor(alt Tag, succ int) Color {
	if alt&TagR == 0 {
		return Black
	}
	if succ < len(r.Data) {
		if n := DecodeHeader(r.Data[succ:]); n.IsAlt() && n.Tag&TagR != 0 {
			return Yellow
		}
	}
	return Red
}

func cmpKey(rid1 int64, tag1 Tag, rid2 int64, tag2 Tag) int {
	switch {
	case rid1 < rid2:
		return -1
	case rid1 > rid2:
		return 1
	case tag1 < tag2:
		return -1
	case tag1 > tag2:
		return 1
	default:
		return 0
	}
}

// All iterates over every entry in (rid, tag) order. Invalid rbyds yield
// nothing.
func (r *Rbyd) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		rid, tag := int64(-1), Tag(0)
		for {
			e, ok := r.Lookup(rid, tag+1)
			if !ok {
				return
			}
			if !yield(e) {
				return
			}
			rid, tag = e.Rid, e.Tag
		}
	}
}

// Entries collects all entries sharing rid.
func (r *Rbyd) Entries(rid int64) []Entry {
	var entries []Entry
	tag := Tag(0)
	for {
		e, ok := r.Lookup(rid, tag+1)
		if !ok || e.Rid != rid {
			return entries
		}
		entries = append(entries, e)
		tag = e.Tag
	}
}

// Get returns the entry at exactly (rid, tag).
func (r *Rbyd) Get(rid int64, tag Tag) (Entry, bool) {
	e, ok := r.Lookup(rid, tag)
	if !ok || e.Rid != rid || e.Tag != tag {
		return e, false
	}
	return e, true
}
