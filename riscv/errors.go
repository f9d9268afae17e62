package riscv

import (
	"errors"
	"fmt"
)

// ErrIllegalInstruction is wrapped by every decode failure
var ErrIllegalInstruction = errors.New("illegal instruction")

// IllegalInstructionError carries the instruction word which could not be decoded.
type IllegalInstructionError struct {
	Word uint32
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("%s: 0x%08x", ErrIllegalInstruction, e.Word)
}

func (e *IllegalInstructionError) Unwrap() error {
	return ErrIllegalInstruction
}

func illegal(w uint32) error {
	return &IllegalInstructionError{Word: w}
}
