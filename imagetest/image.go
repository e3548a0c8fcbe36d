package imagetest

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andreyvit/lfsdbg"
)

// Image assembles blocks into a device image. Unset blocks are zeros.
type Image struct {
	BlockSize int
	data      []byte
}

func NewImage(blockSize, blockCount int) *Image {
	return &Image{BlockSize: blockSize, data: make([]byte, blockSize*blockCount)}
}

// Put stores the log of b in block n.
func (im *Image) Put(n uint32, b *Block) {
	copy(im.data[int(n)*im.BlockSize:], b.Bytes(im.BlockSize))
}

// Corrupt flips every bit of the byte at off within block n.
func (im *Image) Corrupt(n uint32, off int) {
	im.data[int(n)*im.BlockSize+off] ^= 0xff
}

func (im *Image) Bytes() []byte { return im.data }

// Open returns an in-memory lfsdbg.Image logging to t.
func (im *Image) Open(t testing.TB) *lfsdbg.Image {
	return lfsdbg.NewImage(im.data, lfsdbg.Options{
		BlockSize: im.BlockSize,
		Logger:    Logger(t),
		Verbose:   true,
	})
}

// WriteFile saves the image in a temporary directory and returns its path.
func (im *Image) WriteFile(t testing.TB) string {
	path := filepath.Join(t.TempDir(), "disk.img")
	ensure(os.WriteFile(path, im.data, 0o644))
	return path
}

// Logger returns a debug-level slog logger writing to t.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
	}))
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	msg := string(buf)
	origLen := len(msg)
	msg = strings.TrimSuffix(msg, "\n")
	c.t.Log(msg)
	return origLen, nil
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
