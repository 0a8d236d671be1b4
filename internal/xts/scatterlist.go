package xts

// Scatterlist is a logical byte buffer made of possibly discontiguous
// segments, in order.
type Scatterlist [][]byte

// Contiguous wraps a single slice.
func Contiguous(b []byte) Scatterlist {
	return Scatterlist{b}
}

// Len returns the total number of bytes across all segments.
func (sl Scatterlist) Len() int {
	n := 0
	for _, seg := range sl {
		n += len(seg)
	}
	return n
}

// locate returns the segment index and in-segment offset of logical offset
// off. Zero-length segments are skipped. If off is at or past the end, the
// index is len(sl).
func (sl Scatterlist) locate(off int) (int, int) {
	for i, seg := range sl {
		if off < len(seg) {
			return i, off
		}
		off -= len(seg)
	}
	return len(sl), 0
}

// Slice returns the sub-list covering [off, off+n), clamped to the end of the
// list. Segments are shared with sl, not copied.
func (sl Scatterlist) Slice(off, n int) Scatterlist {
	var out Scatterlist

	i, o := sl.locate(off)
	for ; i < len(sl) && n > 0; i++ {
		seg := sl[i][o:]
		o = 0
		if len(seg) == 0 {
			continue
		}
		if len(seg) > n {
			seg = seg[:n]
		}
		out = append(out, seg)
		n -= len(seg)
	}

	return out
}

// Bytes returns [off, off+n) as one slice when it lies within a single
// segment.
func (sl Scatterlist) Bytes(off, n int) ([]byte, bool) {
	i, o := sl.locate(off)
	if i == len(sl) || len(sl[i])-o < n {
		return nil, false
	}
	return sl[i][o : o+n], true
}

// Gather copies bytes starting at logical offset off into dst and returns
// the number copied.
func (sl Scatterlist) Gather(dst []byte, off int) int {
	copied := 0
	for _, seg := range sl.Slice(off, len(dst)) {
		copied += copy(dst[copied:], seg)
	}
	return copied
}

// Scatter copies src into the list starting at logical offset off and
// returns the number copied.
func (sl Scatterlist) Scatter(src []byte, off int) int {
	copied := 0
	for _, seg := range sl.Slice(off, len(src)) {
		copied += copy(seg, src[copied:])
	}
	return copied
}
