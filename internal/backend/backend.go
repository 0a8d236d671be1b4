// Package backend provides the AES block cipher primitives the XTS walker
// runs on.
//
// Two implementations are available. "generic" processes one block at a
// time and works everywhere. "batched" precomputes the tweaks for up to
// eight blocks and applies the tweak XORs to the whole batch at once; the
// block cipher itself still runs one block at a time. It is only offered
// when the CPU has AES instructions. "auto" picks batched when it is usable
// and generic otherwise.
package backend

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sys/cpu"

	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

// Backend names accepted by Select.
const (
	NameAuto    = "auto"
	NameGeneric = "generic"
	NameBatched = "batched"
)

var (
	// ErrUnavailable is returned by a backend that cannot run on this CPU.
	ErrUnavailable = errors.New("backend: not available on this CPU")

	// ErrUnknown is returned by Select for an unrecognised name.
	ErrUnknown = errors.New("backend: unknown backend")

	// ErrBlockLength is returned when a buffer is not a whole number of blocks.
	ErrBlockLength = errors.New("backend: input is not a multiple of the block size")
)

// HardwareAES reports whether the CPU advertises AES instructions.
func HardwareAES() bool {
	return cpu.X86.HasAES || cpu.ARM64.HasAES || cpu.S390X.HasAES
}

// Select returns the backend registered under name.
func Select(name string) (xts.Primitive, error) {
	switch name {
	case "", NameAuto:
		if HardwareAES() {
			return Batched(), nil
		}
		return Generic(), nil
	case NameGeneric:
		return Generic(), nil
	case NameBatched:
		return Batched(), nil
	default:
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrUnknown, name, Names())
	}
}

// Names lists the selectable backend names.
func Names() []string {
	names := []string{NameAuto, NameGeneric, NameBatched}
	sort.Strings(names)
	return names
}

// Info describes a backend for reporting.
type Info struct {
	Name      string `json:"name" yaml:"name"`
	Available bool   `json:"available" yaml:"available"`
	Batch     int    `json:"batch" yaml:"batch"`
}

// Describe reports every concrete backend and whether it can run here.
func Describe() []Info {
	return []Info{
		{Name: NameGeneric, Available: true, Batch: 1},
		{Name: NameBatched, Available: HardwareAES(), Batch: batchBlocks},
	}
}

func newBlock(key []byte) (cipher.Block, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, aes.KeySizeError(len(key))
	}
	return aes.NewCipher(key)
}

// cryptOne applies the raw block cipher to one block.
func cryptOne(b cipher.Block, dir xts.Direction, out, in []byte) error {
	if len(in) != xts.BlockSize || len(out) < xts.BlockSize {
		return fmt.Errorf("%w: single block call with %d bytes", ErrBlockLength, len(in))
	}
	switch dir {
	case xts.Encrypt:
		b.Encrypt(out, in)
	case xts.Decrypt:
		b.Decrypt(out, in)
	default:
		return fmt.Errorf("backend: unknown direction %d", dir)
	}
	return nil
}

func checkBlocks(out, in []byte) error {
	if len(in)%xts.BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrBlockLength, len(in))
	}
	if len(out) < len(in) {
		return fmt.Errorf("backend: output of %d bytes is smaller than input of %d", len(out), len(in))
	}
	return nil
}
