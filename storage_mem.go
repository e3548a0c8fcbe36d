package lfsdbg

import (
	"bytes"
	"errors"
	"maps"
	"slices"
)

var errStorageClosed = errors.New("storage closed")

// memStorage keeps reports for the lifetime of the process. It isn't safe for
// concurrent use. Writable transactions work on a copy of the touched buckets
// and swap it in on commit.
type memStorage struct {
	buckets map[string]*memBucket
}

func newMemStorage() storage {
	return &memStorage{buckets: make(map[string]*memBucket)}
}

func (s *memStorage) BeginTx(writable bool) (storageTx, error) {
	if s.buckets == nil {
		return nil, errStorageClosed
	}
	tx := &memTx{s: s, buckets: s.buckets, writable: writable}
	if writable {
		tx.buckets = maps.Clone(s.buckets)
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.buckets = nil
	return nil
}

type memTx struct {
	s        *memStorage
	buckets  map[string]*memBucket
	writable bool
	copied   map[string]bool
	done     bool
}

func (tx *memTx) Bucket(name string) storageBucket {
	b := tx.buckets[name]
	if b == nil {
		return nil
	}
	return memBucketHandle{tx: tx, name: name}
}

func (tx *memTx) CreateBucket(name string) (storageBucket, error) {
	if !tx.writable {
		return nil, errors.New("tx not writable")
	}
	if tx.buckets[name] == nil {
		tx.buckets[name] = &memBucket{}
		tx.markCopied(name)
	}
	return memBucketHandle{tx: tx, name: name}, nil
}

// forWrite returns the transaction's own copy of the bucket.
func (tx *memTx) forWrite(name string) *memBucket {
	if !tx.copied[name] {
		tx.buckets[name] = &memBucket{items: slices.Clone(tx.buckets[name].items)}
		tx.markCopied(name)
	}
	return tx.buckets[name]
}

func (tx *memTx) markCopied(name string) {
	if tx.copied == nil {
		tx.copied = make(map[string]bool)
	}
	tx.copied[name] = true
}

func (tx *memTx) Commit() error {
	if tx.done {
		return errors.New("tx closed")
	}
	if !tx.writable {
		return errors.New("tx not writable")
	}
	tx.done = true
	if tx.s.buckets == nil {
		return errStorageClosed
	}
	tx.s.buckets = tx.buckets
	return nil
}

func (tx *memTx) Rollback() error {
	tx.done = true
	return nil
}

type memKV struct {
	key   []byte
	value []byte
}

type memBucket struct {
	items []memKV // sorted by key
}

func (b *memBucket) search(key []byte) (int, bool) {
	return slices.BinarySearchFunc(b.items, key, func(kv memKV, key []byte) int {
		return bytes.Compare(kv.key, key)
	})
}

type memBucketHandle struct {
	tx   *memTx
	name string
}

func (h memBucketHandle) bucket() *memBucket { return h.tx.buckets[h.name] }

func (h memBucketHandle) Get(key []byte) []byte {
	b := h.bucket()
	if i, ok := b.search(key); ok {
		return b.items[i].value
	}
	return nil
}

func (h memBucketHandle) Put(key, value []byte) error {
	if !h.tx.writable || h.tx.done {
		return errors.New("tx not writable")
	}
	b := h.tx.forWrite(h.name)
	kv := memKV{key: bytes.Clone(key), value: bytes.Clone(value)}
	if i, ok := b.search(key); ok {
		b.items[i] = kv
	} else {
		b.items = slices.Insert(b.items, i, kv)
	}
	return nil
}

func (h memBucketHandle) Cursor() storageCursor {
	return &memCursor{items: h.bucket().items}
}

func (h memBucketHandle) KeyCount() int { return len(h.bucket().items) }

type memCursor struct {
	items []memKV
	pos   int
}

func (c *memCursor) at(i int) ([]byte, []byte) {
	c.pos = i
	if i < 0 || i >= len(c.items) {
		return nil, nil
	}
	return c.items[i].key, c.items[i].value
}

func (c *memCursor) Seek(seek []byte) ([]byte, []byte) {
	i, _ := (&memBucket{items: c.items}).search(seek)
	return c.at(i)
}

func (c *memCursor) Next() ([]byte, []byte) {
	return c.at(c.pos + 1)
}

func (c *memCursor) SeekLast(prefix []byte) ([]byte, []byte) {
	limit := bytes.Clone(prefix)
	if !inc(limit) {
		// empty or all-0xff prefix: nothing sorts after it
		return c.at(len(c.items) - 1)
	}
	i, _ := (&memBucket{items: c.items}).search(limit)
	return c.at(i - 1)
}
