package lfsdbg

// storage holds the report archive: Bolt on disk, or memory for one-off runs.
type storage interface {
	BeginTx(writable bool) (storageTx, error)
	Close() error
}

type storageTx interface {
	// Bucket returns nil if the bucket doesn't exist.
	Bucket(name string) storageBucket
	CreateBucket(name string) (storageBucket, error)
	Commit() error
	// Rollback is a no-op after Commit or a previous Rollback.
	Rollback() error
}

// storageBucket is a sorted key-value collection.
type storageBucket interface {
	// Get returns nil if not found.
	Get(key []byte) []byte
	Put(key, value []byte) error
	Cursor() storageCursor
	KeyCount() int
}

type storageCursor interface {
	// Seek moves to the first key >= seek.
	Seek(seek []byte) (key, value []byte)
	Next() (key, value []byte)

	// SeekLast moves to the last key having the given prefix, or to the key
	// right before where it would be.
	SeekLast(prefix []byte) (key, value []byte)
}
