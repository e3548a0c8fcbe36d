package lfsdbg_test

import (
	"reflect"
	"testing"

	"github.com/andreyvit/lfsdbg"
	"github.com/andreyvit/lfsdbg/imagetest"
)

const testBlockSize = 256

type rec = imagetest.Rec

// putTree writes recs as a single committed tree into block n and returns
// the trunk.
func putTree(im *imagetest.Image, n uint32, rev uint32, recs ...rec) int {
	b := imagetest.NewBlock(rev)
	trunk := b.Tree(recs...)
	b.Commit()
	im.Put(n, b)
	return trunk
}

type fsOptions struct {
	// noBookmark leaves out the bookmark of directory 1.
	noBookmark bool
	// grm is the raw grm gstate stored in the mroot.
	grm []byte
}

// buildFS lays out a small filesystem:
//
//	mroot 0x{0,1}  config, grm, mtree -> 0x4
//	mtree 0x4      mdir 0 -> 0x{6,7}, mdir 1 -> 0x{8,9}
//	mdir 0         bookmark 0, reg "a" (inlined "hello"), dir "d" (did 1)
//	mdir 1         bookmark 1, reg "x"
func buildFS(o fsOptions) *imagetest.Image {
	im := imagetest.NewImage(testBlockSize, 10)

	putTree(im, 6, 1,
		rec{Tag: lfsdbg.TagBookmark, Weight: 1, Data: imagetest.Name(0, "")},
		rec{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(0, "a")},
		rec{Tag: lfsdbg.TagInlined, Weight: 0, Data: []byte("hello")},
		rec{Tag: lfsdbg.TagDir, Weight: 1, Data: imagetest.Name(0, "d")},
		rec{Tag: lfsdbg.TagDid, Weight: 0, Data: imagetest.LEB128(1)},
	)

	mdir1 := []rec{{Tag: lfsdbg.TagReg, Weight: 1, Data: imagetest.Name(1, "x")}}
	firstName := imagetest.Name(1, "x")
	if !o.noBookmark {
		mdir1 = append([]rec{{Tag: lfsdbg.TagBookmark, Weight: 1, Data: imagetest.Name(1, "")}}, mdir1...)
		firstName = imagetest.Name(1, "")
	}
	putTree(im, 8, 1, mdir1...)

	mtreeTrunk := putTree(im, 4, 1,
		rec{Tag: lfsdbg.TagBranch, Weight: 16, Data: imagetest.Name(0, "")},
		rec{Tag: lfsdbg.TagMdir, Weight: 0, Data: imagetest.Blocks(6, 7)},
		rec{Tag: lfsdbg.TagBranch, Weight: 16, Data: firstName},
		rec{Tag: lfsdbg.TagMdir, Weight: 0, Data: imagetest.Blocks(8, 9)},
	)

	grm := o.grm
	if grm == nil {
		grm = imagetest.LEB128(0)
	}
	putTree(im, 0, 1,
		rec{Tag: lfsdbg.TagMagic, Data: []byte("littlefs")},
		rec{Tag: lfsdbg.TagVersion, Data: imagetest.LEB128(2, 0)},
		rec{Tag: lfsdbg.TagGRM, Data: grm},
		rec{Tag: lfsdbg.TagMtree, Data: imagetest.Branch(4, mtreeTrunk, 32, 0)},
	)
	return im
}

func deepEq[T any](t testing.TB, a, e T) bool {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
		return false
	}
	return true
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
