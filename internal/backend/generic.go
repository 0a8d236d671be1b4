package backend

import (
	"crypto/cipher"
	"crypto/subtle"

	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

type generic struct{}

// Generic returns the portable one-block-at-a-time backend.
func Generic() xts.Primitive {
	return generic{}
}

func (generic) Name() string { return NameGeneric }

func (generic) ExpandKey(key []byte) (xts.KeySchedule, error) {
	b, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return &genericSchedule{block: b}, nil
}

type genericSchedule struct {
	block cipher.Block
}

func (s *genericSchedule) CryptOne(dir xts.Direction, out, in []byte) error {
	return cryptOne(s.block, dir, out, in)
}

func (s *genericSchedule) CryptBlocks(dir xts.Direction, out, in []byte, iv *[xts.BlockSize]byte) error {
	if err := checkBlocks(out, in); err != nil {
		return err
	}

	var b [xts.BlockSize]byte
	defer clear(b[:])

	for i := 0; i < len(in); i += xts.BlockSize {
		subtle.XORBytes(b[:], in[i:i+xts.BlockSize], iv[:])
		if err := cryptOne(s.block, dir, b[:], b[:]); err != nil {
			return err
		}
		subtle.XORBytes(out[i:i+xts.BlockSize], b[:], iv[:])

		tweak.MulAlpha(iv)
	}

	return nil
}
