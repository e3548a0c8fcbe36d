package lfsdbg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrImageTooLarge  = errors.New("image too large to map")
	ErrInvalidAddr    = errors.New("invalid block address")
	ErrReportNotFound = errors.New("report not found")
)

type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

func (e *DataError) Error() string {
	const prefixLen = 64
	const suffixLen = 32
	n := len(e.Data)
	if n <= prefixLen+suffixLen {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x", e.Msg, e.Err, n, e.Data)
		} else {
			return fmt.Sprintf("%s: (%d) %x", e.Msg, n, e.Data)
		}
	} else {
		p, s := e.Data[:prefixLen], e.Data[n-suffixLen:]
		if e.Err != nil {
			return fmt.Sprintf("%s: %v: (%d) %x...%x", e.Msg, e.Err, n, p, s)
		} else {
			return fmt.Sprintf("%s: (%d) %x...%x", e.Msg, n, p, s)
		}
	}
}

// CorruptionKind classifies a problem found while walking an image.
type CorruptionKind uint8

const (
	// CorruptMroot means no valid mroot could be fetched.
	CorruptMroot CorruptionKind = iota + 1
	// CorruptMrootChain means the chain of mroots loops or is too long.
	CorruptMrootChain
	// CorruptMtree means the mtree root could not be fetched.
	CorruptMtree
	// CorruptBranch means a btree branch points at an invalid rbyd.
	CorruptBranch
	// CorruptMdir means an mdir reference points at invalid blocks.
	CorruptMdir
	// CorruptDids means directories and bookmarks disagree.
	CorruptDids
)

var corruptionKindNames = [...]string{
	CorruptMroot:      "mroot",
	CorruptMrootChain: "mroot chain",
	CorruptMtree:      "mtree",
	CorruptBranch:     "branch",
	CorruptMdir:       "mdir",
	CorruptDids:       "dids",
}

func (k CorruptionKind) String() string {
	if int(k) < len(corruptionKindNames) && corruptionKindNames[k] != "" {
		return corruptionKindNames[k]
	}
	return fmt.Sprintf("corruption(%d)", uint8(k))
}

// CorruptionError describes one corrupted structure. Corruption never aborts a
// walk; these are collected so the caller can report all of them.
type CorruptionError struct {
	Kind   CorruptionKind
	Blocks []uint32
	Trunk  int
	Mbid   int64
	Msg    string
}

func (e *CorruptionError) Error() string {
	var buf strings.Builder
	buf.WriteString("corrupted ")
	buf.WriteString(e.Kind.String())
	if len(e.Blocks) > 0 {
		buf.WriteByte(' ')
		buf.WriteString(formatAddr(e.Blocks, e.Trunk))
	}
	if e.Mbid >= 0 {
		fmt.Fprintf(&buf, " (mbid %d)", e.Mbid)
	}
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
	}
	return buf.String()
}
