package lfsdbg

import (
	"hash/crc32"
	"math/bits"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// CRC32C continues a Castagnoli checksum over data. Like hash/crc32, the seed
// and result are inverted, so CRC32C(CRC32C(0, a), b) == CRC32C(0, a+b).
func CRC32C(crc uint32, data []byte) uint32 {
	return crc32.Update(crc, castagnoli, data)
}

// parity returns the odd/even bit count of a running checksum, which every
// tag's validity bit must match.
func parity(crc uint32) bool {
	return bits.OnesCount32(crc)&1 != 0
}
