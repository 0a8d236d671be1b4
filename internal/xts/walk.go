package xts

import "fmt"

// Chunk is one contiguous piece of a walk: the source bytes and the
// destination bytes they are transformed into. Src and Dst have equal length.
type Chunk struct {
	Src []byte
	Dst []byte
}

// ChunkSource iterates over a logical byte range backed by possibly
// discontiguous memory.
type ChunkSource interface {
	// Next returns the chunk at the current position. ok is false when the
	// source cannot produce any more bytes.
	Next() (c Chunk, ok bool)

	// Advance acknowledges that the first n bytes of the current chunk have
	// been processed. n may be smaller than the chunk.
	Advance(n int) error

	// Remaining returns the number of bytes not yet acknowledged.
	Remaining() int
}

// sgWalk walks a src and a dst scatterlist in lockstep. A chunk ends wherever
// either list has a segment boundary. When that would leave less than one
// block, the block is gathered into a bounce buffer and scattered back to dst
// on Advance.
type sgWalk struct {
	src, dst Scatterlist
	total    int
	done     int

	cur     int
	bounced bool
	bounce  [BlockSize]byte
}

func newWalk(src, dst Scatterlist, total int) *sgWalk {
	return &sgWalk{src: src, dst: dst, total: total}
}

func (w *sgWalk) Remaining() int {
	return w.total - w.done
}

// run returns the rest of the segment holding logical offset off.
func run(sl Scatterlist, off int) []byte {
	i, o := sl.locate(off)
	if i == len(sl) {
		return nil
	}
	return sl[i][o:]
}

func (w *sgWalk) Next() (Chunk, bool) {
	rem := w.Remaining()
	if rem == 0 {
		return Chunk{}, false
	}

	s := run(w.src, w.done)
	d := run(w.dst, w.done)
	n := min(len(s), len(d), rem)
	if n == 0 {
		return Chunk{}, false
	}

	if n < BlockSize && rem >= BlockSize {
		if w.src.Gather(w.bounce[:], w.done) < BlockSize {
			return Chunk{}, false
		}
		w.bounced = true
		w.cur = BlockSize
		return Chunk{Src: w.bounce[:], Dst: w.bounce[:]}, true
	}

	w.bounced = false
	w.cur = n
	return Chunk{Src: s[:n], Dst: d[:n]}, true
}

func (w *sgWalk) Advance(n int) error {
	if n < 0 || n > w.cur {
		return fmt.Errorf("%w: advance of %d bytes past a %d byte chunk", ErrInvalidArgument, n, w.cur)
	}

	if w.bounced {
		if w.dst.Scatter(w.bounce[:n], w.done) < n {
			return fmt.Errorf("%w: destination ended inside a block", ErrShortInput)
		}
		clear(w.bounce[:])
		w.bounced = false
	}

	w.done += n
	w.cur = 0

	return nil
}
