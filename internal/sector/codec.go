// Package sector runs an XTS walker over a stream split into fixed-size data
// units, one IV per unit.
package sector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

// extentBytes is the amount of data one worker reads, transforms and writes
// per task.
const extentBytes = 1 << 20

// ErrSectorSize is returned for an unsupported data unit size.
var ErrSectorSize = errors.New("sector: unsupported sector size")

// ProgressFunc receives the bytes completed so far and the total. It may be
// called from several goroutines.
type ProgressFunc func(done, total int64)

// Options configures a Codec.
type Options struct {
	SectorSize  int
	FirstSector uint64
	Workers     int
	Progress    ProgressFunc
}

// Stats summarises a completed run.
type Stats struct {
	Bytes       int64
	Sectors     uint64
	StolenBytes int
}

// Codec encrypts or decrypts streams sector by sector.
type Codec struct {
	walker *xts.Walker
	opts   Options
}

// ValidSectorSize reports whether n can be used as a data unit size.
func ValidSectorSize(n int) bool {
	switch n {
	case 512, 1024, 2048, 4096:
		return true
	}
	return false
}

// New returns a Codec. A zero SectorSize means tweak.DefaultSectorSize and a
// zero Workers means runtime.NumCPU.
func New(w *xts.Walker, opts Options) (*Codec, error) {
	if opts.SectorSize == 0 {
		opts.SectorSize = tweak.DefaultSectorSize
	}
	if !ValidSectorSize(opts.SectorSize) {
		return nil, fmt.Errorf("%w: %d", ErrSectorSize, opts.SectorSize)
	}
	if opts.Workers < 1 {
		opts.Workers = runtime.NumCPU()
	}
	return &Codec{walker: w, opts: opts}, nil
}

// Plan splits size bytes into whole sectors and a final short unit. A short
// unit under one block cannot be processed in XTS.
func (c *Codec) Plan(size int64) (sectors uint64, tail int, err error) {
	ss := int64(c.opts.SectorSize)
	sectors = uint64(size / ss)
	tail = int(size % ss)
	if tail > 0 && tail < xts.BlockSize {
		return 0, 0, fmt.Errorf("%w: final data unit of %d bytes is shorter than a block", xts.ErrInvalidArgument, tail)
	}
	return sectors, tail, nil
}

// Run transforms size bytes of src into dst.
func (c *Codec) Run(ctx context.Context, dir xts.Direction, dst io.WriterAt, src io.ReaderAt, size int64) (*Stats, error) {
	sectors, tail, err := c.Plan(size)
	if err != nil {
		return nil, err
	}

	ss := int64(c.opts.SectorSize)
	perExtent := max(extentBytes/ss, 1) * ss

	klog.V(2).InfoS("sector run", "direction", dir, "bytes", size, "sectorSize", ss,
		"sectors", sectors, "tail", tail, "workers", c.opts.Workers)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for off := int64(0); off < size; off += perExtent {
		if err := gctx.Err(); err != nil {
			break
		}
		off, n := off, min(perExtent, size-off)
		g.Go(func() error {
			if err := c.extent(gctx, dir, dst, src, off, n); err != nil {
				return err
			}
			total := done.Add(n)
			if c.opts.Progress != nil {
				c.opts.Progress(total, size)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	st := &Stats{Bytes: size, Sectors: sectors}
	if tail > 0 {
		st.Sectors++
		st.StolenBytes = tail % xts.BlockSize
	}
	return st, nil
}

// extent handles the n bytes at off. off is sector aligned; only the final
// extent may end in a short unit.
func (c *Codec) extent(ctx context.Context, dir xts.Direction, dst io.WriterAt, src io.ReaderAt, off, n int64) error {
	buf := make([]byte, n)
	if got, err := src.ReadAt(buf, off); int64(got) < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("sector: read at %d: %w", off, err)
	}

	ss := int64(c.opts.SectorSize)
	iv := tweak.Plain64(c.opts.FirstSector + tweak.SectorForOffset(uint64(off), uint32(ss)))

	for i := int64(0); i < n; i += ss {
		if err := ctx.Err(); err != nil {
			return err
		}
		unit := buf[i:min(i+ss, n)]
		if err := c.walker.CryptBytes(dir, unit, unit, iv); err != nil {
			return fmt.Errorf("sector %d: %w", tweak.Sector(iv), err)
		}
		iv = tweak.Next(iv)
	}

	if _, err := dst.WriteAt(buf, off); err != nil {
		return fmt.Errorf("sector: write at %d: %w", off, err)
	}
	clear(buf)
	return nil
}
