package lfsdbg_test

import (
	"testing"

	"github.com/andreyvit/lfsdbg"
	"github.com/andreyvit/lfsdbg/imagetest"
)

// buildBtree makes a two-level btree rooted in block 0 with leaves
// a, b (block 1) and c, d (block 2); d has weight 2, so bids are
// a=0 b=1 c=2 d=3-4.
func buildBtree() *imagetest.Image {
	im := imagetest.NewImage(testBlockSize, 3)
	t1 := putTree(im, 1, 1,
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "a")},
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "b")},
	)
	t2 := putTree(im, 2, 1,
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "c")},
		rec{Tag: lfsdbg.TagReg, Weight: 2, Data: imagetest.Name(0, "d")},
	)
	putTree(im, 0, 1,
		rec{Tag: lfsdbg.TagBTree, Weight: 2, Data: imagetest.Branch(1, t1, 2, 0)},
		rec{Tag: lfsdbg.TagBTree, Weight: 3, Data: imagetest.Branch(2, t2, 3, 0)},
	)
	return im
}

func leafName(t *testing.T, res lfsdbg.BtreeResult) string {
	t.Helper()
	if len(res.Entries) == 0 {
		t.Fatalf("no entries at bid %d", res.Bid)
	}
	_, name := lfsdbg.DecodeName(res.Entries[0].Data)
	return string(name)
}

func TestBtreeLookup(t *testing.T) {
	img := buildBtree().Open(t)
	root := img.Fetch(0)
	deepEq(t, root.Weight, int64(5))

	tests := []struct {
		bid    int64
		name   string
		ebid   int64
		weight int64
	}{
		{0, "a", 0, 1},
		{1, "b", 1, 1},
		{2, "c", 2, 1},
		{3, "d", 4, 2},
		{4, "d", 4, 2},
	}
	for _, tt := range tests {
		res := root.BtreeLookup(img, tt.bid, 0)
		if res.Done || res.Corrupted() {
			t.Errorf("bid %d: done=%v corrupted=%v", tt.bid, res.Done, res.Corrupted())
			continue
		}
		deepEq(t, leafName(t, res), tt.name)
		deepEq(t, res.Bid, tt.ebid)
		deepEq(t, res.Weight, tt.weight)
		deepEq(t, len(res.Path), 2)
	}

	res := root.BtreeLookup(img, 5, 0)
	deepEq(t, res.Done, true)
}

func TestBtreeLookup_depth(t *testing.T) {
	img := buildBtree().Open(t)
	root := img.Fetch(0)

	res := root.BtreeLookup(img, 3, 1)
	deepEq(t, res.Bid, int64(4))
	deepEq(t, res.Weight, int64(3))
	e, ok := res.Find(lfsdbg.TagBTree)
	if !ok {
		t.Fatalf("branch entry not returned")
	}
	deepEq(t, lfsdbg.DecodeBranch(e.Data), lfsdbg.Branch{Block: 2, Trunk: img.Fetch(2).Trunk, Weight: 3})
}

func TestBtreeLookup_corruptChild(t *testing.T) {
	im := buildBtree()
	im.Corrupt(2, 4)
	img := im.Open(t)
	root := img.Fetch(0)

	res := root.BtreeLookup(img, 3, 0)
	deepEq(t, res.Corrupted(), true)
	deepEq(t, res.Bid, int64(4))
	deepEq(t, res.Weight, int64(3))
	deepEq(t, len(res.Path), 1)

	res = root.BtreeLookup(img, 1, 0)
	deepEq(t, res.Corrupted(), false)
	deepEq(t, leafName(t, res), "b")
}

func TestBtreeLookup_invalidRoot(t *testing.T) {
	img := imagetest.NewImage(testBlockSize, 1).Open(t)
	root := img.Fetch(0)
	res := root.BtreeLookup(img, 0, 0)
	deepEq(t, res.Done, false)
	deepEq(t, res.Corrupted(), true)
	deepEq(t, root.BtreeLookup(img, 1, 0).Done, true)
}

func TestDecodeBranch(t *testing.T) {
	deepEq(t, lfsdbg.DecodeBranch(imagetest.Branch(300, 17, 2, 0xdeadbeef)), lfsdbg.Branch{
		Block:  300,
		Trunk:  17,
		Weight: 2,
		Cksum:  0xdeadbeef,
	})
	deepEq(t, lfsdbg.DecodeBlocks(imagetest.Blocks(1, 200)), []uint32{1, 200})
	deepEq(t, lfsdbg.DecodeBlocks(nil), []uint32(nil))
}
