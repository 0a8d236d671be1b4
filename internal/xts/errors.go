package xts

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKeyLength is returned when key material is not exactly twice
	// a supported AES key length.
	ErrInvalidKeyLength = errors.New("xts: invalid key length, must be 32, 48, or 64 bytes")

	// ErrKeySetup is returned when expanding either half of the key fails.
	ErrKeySetup = errors.New("xts: key setup failed")

	// ErrWeakKey is returned in forbid-weak-keys mode when the data key and
	// tweak key halves are identical.
	ErrWeakKey = errors.New("xts: data key and tweak key are identical")

	// ErrNoKey is returned when Crypt is called before SetKey.
	ErrNoKey = errors.New("xts: no key set")

	// ErrInvalidArgument is returned for malformed requests, including any
	// request shorter than one block.
	ErrInvalidArgument = errors.New("xts: invalid argument")

	// ErrPrimitiveFailure matches any error reported by the cipher backend.
	// The backend's own error is preserved and reachable with errors.As.
	ErrPrimitiveFailure = errors.New("xts: cipher primitive failed")

	// ErrShortInput is returned when the buffer walk yields no bytes while
	// the request still has data to process.
	ErrShortInput = errors.New("xts: buffer walk produced no data")
)

// PrimitiveError wraps an error raised by a cipher backend call.
type PrimitiveError struct {
	Op  string
	Err error
}

func (e *PrimitiveError) Error() string {
	return fmt.Sprintf("xts: %s: %v", e.Op, e.Err)
}

func (e *PrimitiveError) Unwrap() error {
	return e.Err
}

// Is reports ErrPrimitiveFailure as a match so callers need not know the
// backend's error values.
func (e *PrimitiveError) Is(target error) bool {
	return target == ErrPrimitiveFailure
}

func primitiveErr(op string, err error) error {
	return &PrimitiveError{Op: op, Err: err}
}
