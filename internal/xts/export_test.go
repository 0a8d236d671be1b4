package xts

func NewSGWalk(src, dst Scatterlist, total int) ChunkSource {
	return newWalk(src, dst, total)
}

func (w *Walker) CryptAligned(walk ChunkSource, dir Direction, iv *[BlockSize]byte) error {
	return w.cryptAligned(walk, dir, iv)
}
