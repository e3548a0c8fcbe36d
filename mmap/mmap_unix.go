//go:build unix

package mmap

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	b, err := unix.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		return nil, err
	}

	if opt.Has(SequentialAccess) {
		err = unix.Madvise(b, syscall.MADV_SEQUENTIAL)
		if err != nil && err != syscall.ENOSYS {
			// Ignore not implemented error in kernel because it still works.
			unix.Munmap(b)
			return nil, fmt.Errorf("madvise(MADV_SEQUENTIAL): %w", err)
		}
	} else if opt.Has(RandomAccess) {
		err = unix.Madvise(b, syscall.MADV_RANDOM)
		if err != nil && err != syscall.ENOSYS {
			unix.Munmap(b)
			return nil, fmt.Errorf("madvise(MADV_RANDOM): %w", err)
		}
	}

	return b, nil
}

func munmap(b []byte) error {
	return unix.Munmap(b)
}
