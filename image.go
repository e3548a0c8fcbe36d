package lfsdbg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/bits"
	"os"
	"sync/atomic"

	"github.com/andreyvit/lfsdbg/mmap"
	"github.com/cespare/xxhash/v2"
)

type Options struct {
	// BlockSize of the device; zero means the whole image is one block.
	BlockSize int
	// MleafWeight is the weight of one mdir in the mtree; zero derives it
	// from the block size.
	MleafWeight int64

	Logger  *slog.Logger
	Verbose bool
}

func (o *Options) fill(size int) {
	if o.BlockSize <= 0 {
		o.BlockSize = size
	}
	if o.MleafWeight <= 0 {
		o.MleafWeight = defaultMleafWeight(o.BlockSize)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// defaultMleafWeight is the smallest power of two >= blockSize/16.
func defaultMleafWeight(blockSize int) int64 {
	n := uint64(blockSize / 16)
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}

// Image is a read-only view of a device image split into fixed-size blocks.
type Image struct {
	data        []byte
	blockSize   int
	mleafWeight int64
	logger      *slog.Logger
	verbose     bool
	unmap       func() error
	path        string

	FetchCount   atomic.Uint64
	InvalidCount atomic.Uint64
}

// NewImage wraps an image that is already in memory.
func NewImage(data []byte, o Options) *Image {
	o.fill(len(data))
	return &Image{
		data:        data,
		blockSize:   o.BlockSize,
		mleafWeight: o.MleafWeight,
		logger:      o.Logger,
		verbose:     o.Verbose,
	}
}

// Open maps the image at path into memory. Regular files and block devices
// are both supported; the size of the latter is found by seeking to the end.
func Open(path string, o Options) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if size > mmap.MaxSize || size > math.MaxInt {
		return nil, fmt.Errorf("%s: %w (%d bytes)", path, ErrImageTooLarge, size)
	}
	if size == 0 {
		img := NewImage(nil, o)
		img.path = path
		return img, nil
	}

	data, err := mmap.Mmap(f, 0, int(size), mmap.RandomAccess)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap: %w", path, err)
	}

	img := NewImage(data, o)
	img.unmap = func() error { return mmap.Munmap(data) }
	img.path = path
	if img.verbose {
		img.logger.LogAttrs(context.Background(), slog.LevelDebug, "lfsdbg: opened image", slog.String("path", path), slog.Int64("size", size), slog.Int("block_size", img.blockSize))
	}
	return img, nil
}

func (img *Image) Close() error {
	if img.unmap == nil {
		return nil
	}
	unmap := img.unmap
	img.unmap = nil
	img.data = nil
	return unmap()
}

func (img *Image) BlockSize() int       { return img.blockSize }
func (img *Image) MleafWeight() int64   { return img.mleafWeight }
func (img *Image) Size() int            { return len(img.data) }
func (img *Image) Logger() *slog.Logger { return img.logger }

// Path is the file the image was opened from, empty for in-memory images.
func (img *Image) Path() string { return img.path }

// Fingerprint hashes the whole image.
func (img *Image) Fingerprint() uint64 {
	return xxhash.Sum64(img.data)
}

// BlockCount returns the number of whole or partial blocks in the image.
func (img *Image) BlockCount() int {
	if img.blockSize <= 0 {
		return 0
	}
	return (len(img.data) + img.blockSize - 1) / img.blockSize
}

// ReadBlock returns the bytes of a block. Blocks past the end of the image
// are short or empty, which the scanner treats like any other corruption.
func (img *Image) ReadBlock(block uint32) []byte {
	off := int64(block) * int64(img.blockSize)
	if off >= int64(len(img.data)) {
		return nil
	}
	return window(img.data, int(off), img.blockSize)
}

// Fetch scans the given redundant blocks and returns the newest valid head.
func (img *Image) Fetch(blocks ...uint32) *Rbyd {
	return img.FetchTrunk(0, blocks...)
}

// FetchTrunk is like Fetch but selects the tree rooted at trunk in each block.
func (img *Image) FetchTrunk(trunk int, blocks ...uint32) *Rbyd {
	if len(blocks) == 0 {
		return &Rbyd{}
	}
	if len(blocks) == 1 {
		return img.fetchOne(blocks[0], trunk)
	}
	rbyds := make([]*Rbyd, len(blocks))
	for i, b := range blocks {
		rbyds[i] = img.fetchOne(b, trunk)
	}
	return pickRedund(rbyds)
}

// FetchAddr fetches a parsed address.
func (img *Image) FetchAddr(a Addr) *Rbyd {
	return img.FetchTrunk(a.Trunk, a.Blocks...)
}

func (img *Image) fetchOne(block uint32, trunk int) *Rbyd {
	r := ScanBlock(block, img.ReadBlock(block), trunk)
	img.FetchCount.Add(1)
	if !r.Valid() {
		img.InvalidCount.Add(1)
	}
	if img.verbose {
		img.logger.LogAttrs(context.Background(), slog.LevelDebug, "lfsdbg: fetched", slog.String("addr", r.Addr()), slog.Uint64("rev", uint64(r.Rev)), slog.Int("eoff", r.EOff), slog.Int64("weight", r.Weight), slog.Bool("valid", r.Valid()), hexAttr("head", window(r.Data, 0, 8)))
	}
	return r
}
