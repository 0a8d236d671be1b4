package sector_test

import (
	"bytes"
	"context"
	"crypto/aes"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xtsref "golang.org/x/crypto/xts"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/sector"
	"github.com/deploymenttheory/go-xtswalk/internal/unit"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
)

type memFile struct {
	mu  sync.Mutex
	buf []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func setup(t *testing.T) ([]byte, *xts.Walker) {
	t.Helper()
	key := make([]byte, 32)
	rand.New(rand.NewSource(7)).Read(key)

	w := xts.New(backend.Generic(), xts.WithUnit(unit.New(unit.Options{Lanes: 4})))
	require.NoError(t, w.SetKey(key))
	return key, w
}

func randomData(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(b)
	return b
}

func TestNewRejectsSectorSize(t *testing.T) {
	_, w := setup(t)
	for _, n := range []int{16, 513, 8192} {
		_, err := sector.New(w, sector.Options{SectorSize: n})
		assert.ErrorIs(t, err, sector.ErrSectorSize, "sector size %d", n)
	}
}

func TestRunMatchesReference(t *testing.T) {
	key, w := setup(t)
	ref, err := xtsref.NewCipher(aes.NewCipher, key)
	require.NoError(t, err)

	tests := []struct {
		name       string
		sectorSize int
		first      uint64
		sectors    int
	}{
		{"512", 512, 0, 9},
		{"4096 offset", 4096, 1000, 300},
		{"1024 single", 1024, 42, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pt := randomData(tc.sectorSize * tc.sectors)
			codec, err := sector.New(w, sector.Options{SectorSize: tc.sectorSize, FirstSector: tc.first, Workers: 3})
			require.NoError(t, err)

			out := &memFile{}
			st, err := codec.Run(context.Background(), xts.Encrypt, out, bytes.NewReader(pt), int64(len(pt)))
			require.NoError(t, err)
			assert.Equal(t, uint64(tc.sectors), st.Sectors)
			assert.Equal(t, int64(len(pt)), st.Bytes)
			assert.Zero(t, st.StolenBytes)

			want := make([]byte, len(pt))
			for i := 0; i < tc.sectors; i++ {
				lo, hi := i*tc.sectorSize, (i+1)*tc.sectorSize
				ref.Encrypt(want[lo:hi], pt[lo:hi], tc.first+uint64(i))
			}
			require.Equal(t, want, out.buf)

			back := &memFile{}
			_, err = codec.Run(context.Background(), xts.Decrypt, back, bytes.NewReader(out.buf), int64(len(pt)))
			require.NoError(t, err)
			assert.Equal(t, pt, back.buf)
		})
	}
}

func TestRunStealsInFinalUnit(t *testing.T) {
	_, w := setup(t)
	pt := randomData(2*512 + 37)

	codec, err := sector.New(w, sector.Options{FirstSector: 5})
	require.NoError(t, err)

	out := &memFile{}
	st, err := codec.Run(context.Background(), xts.Encrypt, out, bytes.NewReader(pt), int64(len(pt)))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), st.Sectors)
	assert.Equal(t, 5, st.StolenBytes)

	last := make([]byte, 37)
	require.NoError(t, w.EncryptSector(last, pt[1024:], 7))
	assert.Equal(t, last, out.buf[1024:])

	back := &memFile{}
	_, err = codec.Run(context.Background(), xts.Decrypt, back, bytes.NewReader(out.buf), int64(len(pt)))
	require.NoError(t, err)
	assert.Equal(t, pt, back.buf)
}

func TestRunRejectsSubBlockTail(t *testing.T) {
	_, w := setup(t)
	pt := randomData(512 + 15)

	codec, err := sector.New(w, sector.Options{})
	require.NoError(t, err)

	out := &memFile{}
	_, err = codec.Run(context.Background(), xts.Encrypt, out, bytes.NewReader(pt), int64(len(pt)))
	assert.ErrorIs(t, err, xts.ErrInvalidArgument)
	assert.Empty(t, out.buf, "nothing is written when the layout is invalid")
}

func TestRunShortSource(t *testing.T) {
	_, w := setup(t)
	codec, err := sector.New(w, sector.Options{})
	require.NoError(t, err)

	_, err = codec.Run(context.Background(), xts.Encrypt, &memFile{}, bytes.NewReader(make([]byte, 512)), 1024)
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	_, w := setup(t)
	codec, err := sector.New(w, sector.Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pt := randomData(4 << 20)
	_, err = codec.Run(ctx, xts.Encrypt, &memFile{}, bytes.NewReader(pt), int64(len(pt)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunReportsProgress(t *testing.T) {
	_, w := setup(t)

	var (
		mu   sync.Mutex
		last int64
		seen int64
	)
	codec, err := sector.New(w, sector.Options{
		SectorSize: 4096,
		Workers:    2,
		Progress: func(done, total int64) {
			mu.Lock()
			defer mu.Unlock()
			last = max(last, done)
			seen = total
		},
	})
	require.NoError(t, err)

	pt := randomData(3<<20 + 4096)
	_, err = codec.Run(context.Background(), xts.Encrypt, &memFile{}, bytes.NewReader(pt), int64(len(pt)))
	require.NoError(t, err)
	assert.Equal(t, int64(len(pt)), last)
	assert.Equal(t, int64(len(pt)), seen)
}

func TestPlan(t *testing.T) {
	_, w := setup(t)
	codec, err := sector.New(w, sector.Options{SectorSize: 1024})
	require.NoError(t, err)

	sectors, tail, err := codec.Plan(3*1024 + 16)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), sectors)
	assert.Equal(t, 16, tail)

	_, _, err = codec.Plan(8)
	assert.ErrorIs(t, err, xts.ErrInvalidArgument)
}
