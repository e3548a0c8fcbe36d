package lfsdbg_test

import (
	"testing"

	"github.com/andreyvit/lfsdbg"
	"github.com/andreyvit/lfsdbg/imagetest"
)

func TestScanBlock_zeros(t *testing.T) {
	r := lfsdbg.ScanBlock(0, make([]byte, testBlockSize), 0)
	if r.Valid() {
		t.Fatalf("all-zero block is valid: %+v", r)
	}
	if _, ok := r.Lookup(-1, 0); ok {
		t.Errorf("lookup on invalid rbyd found something")
	}
}

func TestScanBlock_empty(t *testing.T) {
	r := lfsdbg.ScanBlock(3, nil, 0)
	deepEq(t, r.Valid(), false)
	deepEq(t, r.Addr(), "0x3.0")
}

func TestFetch_singleName(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 1)
	b := imagetest.NewBlock(1)
	off := b.Tag(lfsdbg.TagName, 1, imagetest.Name(0, "a"))
	b.Commit()
	im.Put(0, b)

	imagetest.BytesEq(t, im.Bytes()[:b.Len()], imagetest.Expand(
		"01../rev",
		"82_00 #1 #2 #0 'a/name",
		"20_00 #0 #4 5e_9f_5e_56/cksum",
	))

	r := im.Open(t).Fetch(0)
	if !r.Valid() {
		t.Fatalf("not valid")
	}
	deepEq(t, r.Rev, uint32(1))
	deepEq(t, r.Trunk, off)
	deepEq(t, r.Weight, int64(1))
	deepEq(t, r.EOff, b.Len())

	e, ok := r.Lookup(-1, lfsdbg.TagName)
	if !ok {
		t.Fatalf("Lookup(-1, name) found nothing")
	}
	deepEq(t, e.Rid, int64(0))
	deepEq(t, e.Tag, lfsdbg.TagName)
	deepEq(t, e.Weight, int64(1))
	did, name := lfsdbg.DecodeName(e.Data)
	deepEq(t, did, uint32(0))
	deepEq(t, string(name), "a")

	im.Corrupt(0, off+4)
	r = im.Open(t).Fetch(0)
	if r.Valid() {
		t.Fatalf("corrupted payload still valid: %+v", r)
	}
	deepEq(t, r.Trunk, 0)
}

func TestFetch_keepsLastGoodCommit(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 1)
	b := imagetest.NewBlock(7)
	off1 := b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, "a"))
	b.Commit()
	eoff1 := b.Len()
	off2 := b.Tag(lfsdbg.TagReg, 2, imagetest.Name(0, "b"))
	b.Commit()
	im.Put(0, b)

	r := im.Open(t).Fetch(0)
	deepEq(t, r.Trunk, off2)
	deepEq(t, r.Weight, int64(2))

	im.Corrupt(0, off2+4)
	r = im.Open(t).Fetch(0)
	deepEq(t, r.Trunk, off1)
	deepEq(t, r.Weight, int64(1))
	deepEq(t, r.EOff, eoff1)
}

func TestFetch_uncommittedTail(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 1)
	b := imagetest.NewBlock(1)
	off := b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, "a"))
	b.Commit()
	b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, "b"))
	im.Put(0, b)

	r := im.Open(t).Fetch(0)
	deepEq(t, r.Trunk, off)
}

func TestFetch_payloadPastEnd(t *testing.T) {
	b := imagetest.NewBlock(1)
	b.Tag(lfsdbg.TagReg, 1, make([]byte, 40))
	b.Commit()
	data := b.Bytes(b.Len())
	r := lfsdbg.ScanBlock(0, data[:20], 0)
	deepEq(t, r.Valid(), false)
}

func revBlock(im *imagetest.Image, n uint32, rev uint32, commits int) {
	b := imagetest.NewBlock(rev)
	for i := range commits {
		b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, string(rune('a'+i))))
		b.Commit()
	}
	im.Put(n, b)
}

func TestFetch_redundant(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 2)
	revBlock(im, 0, 3, 1)
	revBlock(im, 1, 5, 1)
	img := im.Open(t)

	r := img.Fetch(0, 1)
	deepEq(t, r.Block, uint32(1))
	deepEq(t, r.Rev, uint32(5))
	deepEq(t, r.Redund, []uint32{0})
	deepEq(t, r.Blocks(), []uint32{1, 0})

	r = img.Fetch(1, 0)
	deepEq(t, r.Block, uint32(1))
	deepEq(t, r.Redund, []uint32{0})
}

func TestFetch_redundantWraparound(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 2)
	revBlock(im, 0, 0xffffffff, 1)
	revBlock(im, 1, 1, 1)
	img := im.Open(t)

	deepEq(t, img.Fetch(0, 1).Block, uint32(1))
	deepEq(t, img.Fetch(1, 0).Block, uint32(1))
}

func TestFetch_redundantTieBreak(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 2)
	revBlock(im, 0, 4, 1)
	revBlock(im, 1, 4, 2)
	img := im.Open(t)

	deepEq(t, img.Fetch(0, 1).Block, uint32(1))
	deepEq(t, img.Fetch(1, 0).Block, uint32(1))
}

func TestFetch_redundantInvalid(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 2)
	revBlock(im, 1, 1, 1)
	img := im.Open(t)

	r := img.Fetch(0, 1)
	deepEq(t, r.Block, uint32(1))
	deepEq(t, r.Addr(), "0x{1,0}.4")

	if img.Fetch(5, 6).Valid() {
		t.Errorf("blocks past the end are valid")
	}
}

func TestFetchTrunk_historical(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 1)
	b := imagetest.NewBlock(1)
	off1 := b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, "a"))
	b.Commit()
	trunk2 := b.Tree(
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "a")},
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "b")},
	)
	b.Commit()
	im.Put(0, b)
	img := im.Open(t)

	r := img.Fetch(0)
	deepEq(t, r.Trunk, trunk2)
	deepEq(t, r.Weight, int64(2))

	old := img.FetchTrunk(off1, 0)
	deepEq(t, old.Trunk, off1)
	deepEq(t, old.Weight, int64(1))
	if old.Equal(r) {
		t.Errorf("historical trunk equals the latest one")
	}
	if !old.Equal(img.FetchAddr(lfsdbg.Addr{Blocks: []uint32{0}, Trunk: off1})) {
		t.Errorf("FetchAddr differs from FetchTrunk")
	}
}

func TestFetch_shrub(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 1)
	b := imagetest.NewBlock(1)
	trunk := b.Tag(lfsdbg.TagReg, 1, imagetest.Name(0, "a"))
	shrub := b.Tag(lfsdbg.TagShrub|lfsdbg.TagReg, 1, imagetest.Name(0, "s"))
	shrubEnd := b.Len()
	b.Commit()
	im.Put(0, b)
	img := im.Open(t)

	// shrubs are never picked as the trunk on their own
	r := img.Fetch(0)
	deepEq(t, r.Trunk, trunk)
	deepEq(t, r.Weight, int64(1))
	deepEq(t, r.EOff, b.Len())

	s := img.FetchTrunk(shrub, 0)
	deepEq(t, s.Trunk, shrub)
	deepEq(t, s.Weight, int64(1))
	deepEq(t, s.EOff, shrubEnd)
}

func TestImage_counters(t *testing.T) {
	im := imagetest.NewImage(testBlockSize, 2)
	revBlock(im, 0, 1, 1)
	img := im.Open(t)
	img.Fetch(0, 1)
	deepEq(t, img.FetchCount.Load(), uint64(2))
	deepEq(t, img.InvalidCount.Load(), uint64(1))
}
