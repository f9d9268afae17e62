package mem

import (
	"errors"
	"fmt"
)

var (
	// ErrUnmapped is returned when an access touches an address which is not part of any region
	ErrUnmapped = errors.New("address not mapped")
	// ErrOverflow is returned when a range wraps around the end of the address space
	ErrOverflow = errors.New("address range overflows")
)

// AccessError describes a typed access which did not fall entirely within one region.
type AccessError struct {
	Addr  uint64
	Width int
	Write bool
}

func (e *AccessError) Error() string {
	op := "read"
	if e.Write {
		op = "write"
	}

	return fmt.Sprintf("%s of %d bytes at 0x%016x: %s", op, e.Width, e.Addr, ErrUnmapped)
}

func (e *AccessError) Unwrap() error {
	return ErrUnmapped
}
