//go:build unix

package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// newBacking maps anonymous memory outside of the Go heap. The kernel is handed pointers into these mappings when
// system calls are forwarded, so they must never move.
func newBacking(size uint64) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", size, err)
	}

	return b, nil
}

func freeBacking(b []byte) error {
	if len(b) == 0 {
		return nil
	}

	return unix.Munmap(b)
}
