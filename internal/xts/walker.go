// Package xts drives a block cipher backend across scatter/gather buffers in
// XTS mode (IEEE 1619-2007), including ciphertext stealing for a final
// partial block.
//
// The walker owns the XTS orchestration: key splitting, tweak
// initialisation, the aligned bulk loop over buffer chunks and the stealing
// tail. The per-block tweak progression inside a chunk belongs to the
// backend's CryptBlocks. Every backend call runs while holding the shared
// cipher unit.
package xts

import (
	"crypto/subtle"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/deploymenttheory/go-xtswalk/internal/metrics"
	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/unit"
)

// Request describes one XTS operation over a data unit.
type Request struct {
	// Src and Dst may be the same list, or share segments.
	Src Scatterlist
	Dst Scatterlist

	// Length is the number of bytes to process, at least BlockSize.
	Length int

	// IV is the unencrypted initial tweak, typically tweak.Plain64(sector).
	IV [BlockSize]byte

	Direction Direction
}

// Option configures a Walker.
type Option func(*Walker)

// WithUnit sets the cipher unit. The default is unit.Shared().
func WithUnit(u *unit.Unit) Option {
	return func(w *Walker) { w.unit = u }
}

// WithMetrics records request statistics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Walker) { w.metrics = m }
}

// WithForbidWeakKeys rejects keys whose two halves are identical.
func WithForbidWeakKeys() Option {
	return func(w *Walker) { w.forbidWeak = true }
}

// Walker is an XTS transform bound to one backend and, after SetKey, one key
// pair. Crypt may be called concurrently once the key is set; SetKey must not
// race with Crypt.
type Walker struct {
	prim       Primitive
	unit       *unit.Unit
	metrics    *metrics.Metrics
	forbidWeak bool

	data  KeySchedule
	tweak KeySchedule
}

// New creates a walker over the given backend.
func New(prim Primitive, opts ...Option) *Walker {
	w := &Walker{prim: prim}
	for _, opt := range opts {
		opt(w)
	}
	if w.unit == nil {
		w.unit = unit.Shared()
	}
	return w
}

// Backend returns the name of the walker's cipher backend.
func (w *Walker) Backend() string {
	return w.prim.Name()
}

// VerifyKey checks XTS key material: the length must be twice an AES key
// length and, if forbidWeak is set, the two halves must differ.
func VerifyKey(key []byte, forbidWeak bool) error {
	switch len(key) {
	case 32, 48, 64:
	default:
		return fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLength, len(key))
	}

	if forbidWeak {
		half := len(key) / 2
		if subtle.ConstantTimeCompare(key[:half], key[half:]) == 1 {
			return ErrWeakKey
		}
	}

	return nil
}

// SetKey splits key in half: the first half becomes the data key, the
// second the tweak key.
func (w *Walker) SetKey(key []byte) error {
	if err := VerifyKey(key, w.forbidWeak); err != nil {
		return err
	}

	half := len(key) / 2

	release := w.unit.Acquire()
	defer release()

	data, err := w.prim.ExpandKey(key[:half])
	if err != nil {
		return fmt.Errorf("%w: data key: %w", ErrKeySetup, err)
	}

	tw, err := w.prim.ExpandKey(key[half:])
	if err != nil {
		return fmt.Errorf("%w: tweak key: %w", ErrKeySetup, err)
	}

	w.data, w.tweak = data, tw

	return nil
}

// Crypt runs req to completion. On error the destination holds an
// unspecified mix of old and new bytes and must be discarded.
func (w *Walker) Crypt(req *Request) (err error) {
	dir := req.Direction.String()
	defer func() { w.metrics.RequestDone(dir, err) }()

	if w.data == nil || w.tweak == nil {
		return ErrNoKey
	}
	if req.Length < BlockSize {
		return fmt.Errorf("%w: length %d is shorter than one block", ErrInvalidArgument, req.Length)
	}
	if req.Direction != Encrypt && req.Direction != Decrypt {
		return fmt.Errorf("%w: unknown direction %d", ErrInvalidArgument, req.Direction)
	}
	if n := req.Src.Len(); n < req.Length {
		return fmt.Errorf("%w: source holds %d of %d bytes", ErrShortInput, n, req.Length)
	}
	if n := req.Dst.Len(); n < req.Length {
		return fmt.Errorf("%w: destination holds %d of %d bytes", ErrShortInput, n, req.Length)
	}

	// Hold back the last full block together with the partial one so the
	// stealing step sees both.
	tail := req.Length % BlockSize
	split := req.Length
	if tail > 0 {
		split = req.Length - BlockSize - tail
	}

	iv := req.IV
	if err := w.cryptOne(w.tweak, Encrypt, iv[:], iv[:]); err != nil {
		return err
	}

	if split > 0 {
		if err := w.cryptAligned(newWalk(req.Src, req.Dst, split), req.Direction, &iv); err != nil {
			return err
		}
	}

	if tail > 0 {
		if klog.V(4).Enabled() {
			klog.Infof("xts: %s stealing %d bytes at offset %d", dir, tail, split+BlockSize)
		}
		if err := w.cryptTail(req, split, tail, &iv); err != nil {
			return err
		}
		w.metrics.Steal(dir)
	}

	w.metrics.AddBytes(dir, req.Length)

	return nil
}

// cryptAligned processes a whole-block region chunk by chunk, checking the
// cipher unit out for each chunk only.
func (w *Walker) cryptAligned(walk ChunkSource, dir Direction, iv *[BlockSize]byte) error {
	first := true

	for walk.Remaining() > 0 {
		c, ok := walk.Next()
		n := min(len(c.Src), len(c.Dst)) &^ (BlockSize - 1)
		if !ok || n == 0 {
			if first {
				return fmt.Errorf("%w: first chunk is empty", ErrShortInput)
			}
			return fmt.Errorf("%w: walk stalled with %d bytes left", ErrShortInput, walk.Remaining())
		}

		if err := w.cryptBlocks(dir, c.Dst[:n], c.Src[:n], iv); err != nil {
			return err
		}

		if err := walk.Advance(n); err != nil {
			return err
		}
		first = false
	}

	return nil
}

// cryptTail handles the final full block plus the partial block with
// ciphertext stealing (IEEE 1619-2007 §5.3.2 and §5.4.2). iv holds the tweak
// of the last full block.
func (w *Walker) cryptTail(req *Request, split, tail int, iv *[BlockSize]byte) error {
	var buf [2 * BlockSize]byte
	defer clear(buf[:])

	n := BlockSize + tail
	region := buf[:n]
	if req.Src.Gather(region, split) != n {
		return fmt.Errorf("%w: tail region truncated", ErrShortInput)
	}

	last := *iv
	next := last
	tweak.MulAlpha(&next)

	var cc, pp [BlockSize]byte
	defer clear(cc[:])
	defer clear(pp[:])

	switch req.Direction {
	case Encrypt:
		if err := w.xex(Encrypt, cc[:], region[:BlockSize], &last); err != nil {
			return err
		}
		copy(pp[:tail], region[BlockSize:])
		copy(pp[tail:], cc[tail:])
		copy(region[BlockSize:], cc[:tail])
		if err := w.xex(Encrypt, region[:BlockSize], pp[:], &next); err != nil {
			return err
		}

	case Decrypt:
		if err := w.xex(Decrypt, pp[:], region[:BlockSize], &next); err != nil {
			return err
		}
		copy(cc[:tail], region[BlockSize:])
		copy(cc[tail:], pp[tail:])
		copy(region[BlockSize:], pp[:tail])
		if err := w.xex(Decrypt, region[:BlockSize], cc[:], &last); err != nil {
			return err
		}
	}

	if req.Dst.Scatter(region, split) != n {
		return fmt.Errorf("%w: destination tail truncated", ErrShortInput)
	}

	*iv = next
	tweak.MulAlpha(iv)

	return nil
}

// xex runs one block through XOR-cipher-XOR under tweak t with the data key.
func (w *Walker) xex(dir Direction, out, in []byte, t *[BlockSize]byte) error {
	var b [BlockSize]byte
	defer clear(b[:])

	subtle.XORBytes(b[:], in, t[:])
	if err := w.cryptOne(w.data, dir, b[:], b[:]); err != nil {
		return err
	}
	subtle.XORBytes(out, b[:], t[:])

	return nil
}

// cryptBlocks runs one chunk through the data key while holding the unit.
func (w *Walker) cryptBlocks(dir Direction, out, in []byte, iv *[BlockSize]byte) error {
	release := w.unit.Acquire()
	defer release()

	if err := w.data.CryptBlocks(dir, out, in, iv); err != nil {
		return primitiveErr("crypt blocks", err)
	}
	return nil
}

func (w *Walker) cryptOne(ks KeySchedule, dir Direction, out, in []byte) error {
	release := w.unit.Acquire()
	defer release()

	if err := ks.CryptOne(dir, out, in); err != nil {
		return primitiveErr("crypt one", err)
	}
	return nil
}

// CryptBytes runs a single contiguous request. dst and src may be the same
// slice.
func (w *Walker) CryptBytes(dir Direction, dst, src []byte, iv [BlockSize]byte) error {
	return w.Crypt(&Request{
		Src:       Contiguous(src),
		Dst:       Contiguous(dst),
		Length:    len(src),
		IV:        iv,
		Direction: dir,
	})
}

// EncryptSector encrypts one data unit whose tweak is the plain64 encoding
// of sector.
func (w *Walker) EncryptSector(dst, src []byte, sector uint64) error {
	return w.CryptBytes(Encrypt, dst, src, tweak.Plain64(sector))
}

// DecryptSector decrypts one data unit whose tweak is the plain64 encoding
// of sector.
func (w *Walker) DecryptSector(dst, src []byte, sector uint64) error {
	return w.CryptBytes(Decrypt, dst, src, tweak.Plain64(sector))
}
