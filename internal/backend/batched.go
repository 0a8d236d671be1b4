package backend

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

// batchBlocks is the number of blocks whose tweaks are computed and XORed
// together. The cipher is still applied block by block.
const batchBlocks = 8

type batched struct {
	available func() bool
}

// Batched returns the eight-block batching backend. Its ExpandKey fails
// with ErrUnavailable when the CPU lacks AES instructions.
func Batched() xts.Primitive {
	return batched{available: HardwareAES}
}

func (batched) Name() string { return NameBatched }

func (p batched) ExpandKey(key []byte) (xts.KeySchedule, error) {
	if !p.available() {
		return nil, ErrUnavailable
	}
	b, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return &batchedSchedule{block: b}, nil
}

type batchedSchedule struct {
	block cipher.Block
}

func (s *batchedSchedule) CryptOne(dir xts.Direction, out, in []byte) error {
	return cryptOne(s.block, dir, out, in)
}

func (s *batchedSchedule) CryptBlocks(dir xts.Direction, out, in []byte, iv *[xts.BlockSize]byte) error {
	if err := checkBlocks(out, in); err != nil {
		return err
	}

	var (
		tweaks [batchBlocks * xts.BlockSize]byte
		buf    [batchBlocks * xts.BlockSize]byte
	)
	defer clear(tweaks[:])
	defer clear(buf[:])

	for len(in) > 0 {
		n := min(len(in), len(buf))

		for off := 0; off < n; off += xts.BlockSize {
			copy(tweaks[off:], iv[:])
			tweak.MulAlpha(iv)
		}

		subtle.XORBytes(buf[:n], in[:n], tweaks[:n])
		for off := 0; off < n; off += xts.BlockSize {
			if err := cryptOne(s.block, dir, buf[off:off+xts.BlockSize], buf[off:off+xts.BlockSize]); err != nil {
				return err
			}
		}
		subtle.XORBytes(out[:n], buf[:n], tweaks[:n])

		in, out = in[n:], out[n:]
	}

	return nil
}
