package lfsdbg

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	reportsBucket      = "reports"
	fingerprintsBucket = "fingerprints"
	imagesBucket       = "images"
)

// Report is a persisted summary of one inspection.
type Report struct {
	ID          uuid.UUID `msgpack:"id" json:"id"`
	Time        time.Time `msgpack:"t" json:"time"`
	Image       string    `msgpack:"img" json:"image"`
	Fingerprint uint64    `msgpack:"fp" json:"fingerprint"`
	BlockSize   int       `msgpack:"bs" json:"block_size"`
	MleafWeight int64     `msgpack:"mw" json:"mleaf_weight"`

	Mroot    string `msgpack:"mr" json:"mroot"`
	MrootRev uint32 `msgpack:"mrev" json:"mroot_rev"`
	Version  string `msgpack:"v,omitempty" json:"version,omitempty"`
	BWeight  int64  `msgpack:"bw" json:"bweight"`
	RWeight  int64  `msgpack:"rw" json:"rweight"`

	GRM       []RemoveMarker `msgpack:"grm,omitempty" json:"grm,omitempty"`
	GRMOpaque bool           `msgpack:"grmx,omitempty" json:"grm_opaque,omitempty"`

	Corrupted bool     `msgpack:"c,omitempty" json:"corrupted,omitempty"`
	Problems  []string `msgpack:"p,omitempty" json:"problems,omitempty"`

	Mdirs []MdirPrint `msgpack:"m" json:"mdirs"`
}

// MdirPrint fingerprints the committed bytes of one metadata block. Mbid -1
// is the mroot.
type MdirPrint struct {
	Mbid int64  `msgpack:"b" json:"mbid"`
	Addr string `msgpack:"a" json:"addr"`
	Rev  uint32 `msgpack:"r" json:"rev"`
	Hash uint64 `msgpack:"h" json:"hash"`
}

func printMdir(mbid int64, r *Rbyd) MdirPrint {
	return MdirPrint{Mbid: mbid, Addr: r.Addr(), Rev: r.Rev, Hash: xxhash.Sum64(r.Committed())}
}

// NewReport summarizes an inspection of img.
func NewReport(img *Image, insp *Inspection) *Report {
	r := &Report{
		Time:        time.Now(),
		Image:       img.Path(),
		Fingerprint: img.Fingerprint(),
		BlockSize:   img.BlockSize(),
		MleafWeight: img.MleafWeight(),
		Mroot:       insp.Mroot.Addr(),
		MrootRev:    insp.Mroot.Rev,
		BWeight:     insp.BWeight,
		RWeight:     insp.RWeight,
		Corrupted:   insp.Corrupted,
	}
	if insp.Config.HasVersion {
		r.Version = fmt.Sprintf("%d.%d", insp.Config.Version[0], insp.Config.Version[1])
	}
	rms, ok := insp.GState.GRM()
	r.GRM, r.GRMOpaque = rms, !ok
	for _, p := range insp.Problems {
		r.Problems = append(r.Problems, p.Error())
	}
	if insp.Mroot.Valid() {
		r.Mdirs = append(r.Mdirs, printMdir(-1, insp.Mroot))
	}
	for _, m := range insp.Mdirs {
		r.Mdirs = append(r.Mdirs, printMdir(m.Mbid, m.Mdir))
	}
	return r
}

// MdirChange is an mdir that differs between two reports. Old is nil for
// new mdirs, New is nil for mdirs that went away.
type MdirChange struct {
	Mbid int64
	Old  *MdirPrint
	New  *MdirPrint
}

func (c MdirChange) String() string {
	switch {
	case c.Old == nil:
		return fmt.Sprintf("mdir %d: added %s rev %d", c.Mbid, c.New.Addr, c.New.Rev)
	case c.New == nil:
		return fmt.Sprintf("mdir %d: removed %s rev %d", c.Mbid, c.Old.Addr, c.Old.Rev)
	default:
		return fmt.Sprintf("mdir %d: %s rev %d => %s rev %d", c.Mbid, c.Old.Addr, c.Old.Rev, c.New.Addr, c.New.Rev)
	}
}

// Diff lists the mdirs of r whose contents differ from prev, in mbid order.
func (r *Report) Diff(prev *Report) []MdirChange {
	old := make(map[int64]*MdirPrint, len(prev.Mdirs))
	for i := range prev.Mdirs {
		old[prev.Mdirs[i].Mbid] = &prev.Mdirs[i]
	}
	var changes []MdirChange
	for i := range r.Mdirs {
		m := &r.Mdirs[i]
		o := old[m.Mbid]
		delete(old, m.Mbid)
		if o != nil && o.Hash == m.Hash && o.Addr == m.Addr {
			continue
		}
		changes = append(changes, MdirChange{Mbid: m.Mbid, Old: o, New: m})
	}
	for mbid, o := range old {
		changes = append(changes, MdirChange{Mbid: mbid, Old: o})
	}
	slices.SortFunc(changes, func(a, b MdirChange) int {
		return cmp.Compare(a.Mbid, b.Mbid)
	})
	return changes
}

// ReportDB archives reports, indexed by image fingerprint.
type ReportDB struct {
	st storage
}

// OpenReportDB opens the Bolt database at path, or an in-memory one if path
// is empty.
func OpenReportDB(path string) (*ReportDB, error) {
	var st storage
	if path == "" {
		st = newMemStorage()
	} else {
		bdb, err := bbolt.Open(path, 0666, &bbolt.Options{Timeout: 10 * time.Second})
		if err != nil {
			return nil, fmt.Errorf("reportdb: %w", err)
		}
		st = newBoltStorage(bdb)
	}
	db := &ReportDB{st: st}
	err := db.update(func(tx storageTx) error {
		for _, name := range []string{reportsBucket, fingerprintsBucket, imagesBucket} {
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("reportdb: %w", err)
	}
	return db, nil
}

func (db *ReportDB) Close() error {
	return db.st.Close()
}

func (db *ReportDB) view(f func(tx storageTx) error) error {
	tx, err := db.st.BeginTx(false)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	return f(tx)
}

func (db *ReportDB) update(f func(tx storageTx) error) error {
	tx, err := db.st.BeginTx(true)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func fingerprintKey(fp uint64, id uuid.UUID) []byte {
	k := binary.BigEndian.AppendUint64(make([]byte, 0, 8+len(id)), fp)
	return append(k, id[:]...)
}

func imagePrefix(path string) []byte {
	return append([]byte(path), 0)
}

func imageKey(path string, id uuid.UUID) []byte {
	return append(imagePrefix(path), id[:]...)
}

// Save stores r, assigning it a time-ordered ID if it doesn't have one.
func (db *ReportDB) Save(r *Report) error {
	if r.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id
	}
	data := defaultValueEncoding.Encode(r)
	return db.update(func(tx storageTx) error {
		if err := tx.Bucket(reportsBucket).Put(r.ID[:], data); err != nil {
			return err
		}
		if err := tx.Bucket(fingerprintsBucket).Put(fingerprintKey(r.Fingerprint, r.ID), []byte{}); err != nil {
			return err
		}
		if r.Image == "" {
			return nil
		}
		return tx.Bucket(imagesBucket).Put(imageKey(r.Image, r.ID), []byte{})
	})
}

// Load returns the report with the given ID, or ErrReportNotFound.
func (db *ReportDB) Load(id uuid.UUID) (*Report, error) {
	var r *Report
	err := db.view(func(tx storageTx) error {
		var err error
		r, err = loadReport(tx, id)
		return err
	})
	return r, err
}

func loadReport(tx storageTx, id uuid.UUID) (*Report, error) {
	data := tx.Bucket(reportsBucket).Get(id[:])
	if data == nil {
		return nil, fmt.Errorf("%w: %v", ErrReportNotFound, id)
	}
	r := new(Report)
	if err := defaultValueEncoding.Decode(data, r); err != nil {
		return nil, err
	}
	return r, nil
}

// History returns every report of the image with fingerprint fp, oldest
// first.
func (db *ReportDB) History(fp uint64) ([]*Report, error) {
	var reports []*Report
	prefix := binary.BigEndian.AppendUint64(nil, fp)
	err := db.view(func(tx storageTx) error {
		c := tx.Bucket(fingerprintsBucket).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id, err := uuid.FromBytes(k[len(prefix):])
			if err != nil {
				return dataErrf(k, len(prefix), err, "invalid report key")
			}
			r, err := loadReport(tx, id)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}

// Latest returns the most recent report of the image with fingerprint fp, or
// ErrReportNotFound.
func (db *ReportDB) Latest(fp uint64) (*Report, error) {
	r, err := db.latest(fingerprintsBucket, binary.BigEndian.AppendUint64(nil, fp))
	if errors.Is(err, ErrReportNotFound) {
		return nil, fmt.Errorf("%w: fingerprint %016x", ErrReportNotFound, fp)
	}
	return r, err
}

// LatestOf returns the most recent report of the image file at path,
// whatever its contents were at the time, or ErrReportNotFound.
func (db *ReportDB) LatestOf(path string) (*Report, error) {
	r, err := db.latest(imagesBucket, imagePrefix(path))
	if errors.Is(err, ErrReportNotFound) {
		return nil, fmt.Errorf("%w: image %s", ErrReportNotFound, path)
	}
	return r, err
}

func (db *ReportDB) latest(bucket string, prefix []byte) (*Report, error) {
	var r *Report
	err := db.view(func(tx storageTx) error {
		k, _ := tx.Bucket(bucket).Cursor().SeekLast(prefix)
		if k == nil || !bytes.HasPrefix(k, prefix) {
			return ErrReportNotFound
		}
		id, err := uuid.FromBytes(k[len(prefix):])
		if err != nil {
			return dataErrf(k, len(prefix), err, "invalid report key")
		}
		r, err = loadReport(tx, id)
		return err
	})
	return r, err
}

// Count returns the number of stored reports.
func (db *ReportDB) Count() (int, error) {
	var n int
	err := db.view(func(tx storageTx) error {
		n = tx.Bucket(reportsBucket).KeyCount()
		return nil
	})
	return n, err
}
