package crypt

import (
	"context"
	"crypto/aes"
	"encoding/hex"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xtsref "golang.org/x/crypto/xts"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

type fixture struct {
	dir    string
	key    []byte
	input  string
	output string
}

func newFixture(t *testing.T, data []byte) *fixture {
	t.Helper()
	f := &fixture{dir: t.TempDir(), key: make([]byte, 32)}
	rand.New(rand.NewSource(3)).Read(f.key)

	f.input = filepath.Join(f.dir, "in.img")
	f.output = filepath.Join(f.dir, "out.img")
	require.NoError(t, os.WriteFile(f.input, data, 0o600))
	return f
}

func (f *fixture) request(direction string) *Request {
	return &Request{
		InputPath:  f.input,
		OutputPath: f.output,
		Direction:  direction,
		Key:        app.KeySource{Hex: hex.EncodeToString(f.key)},
		Backend:    backend.NameGeneric,
		Workers:    2,
	}
}

func testData(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(int64(n))).Read(b)
	return b
}

func TestHandleSectorMode(t *testing.T) {
	pt := testData(8 * 512)
	f := newFixture(t, pt)

	req := f.request("encrypt")
	req.FirstSector = 100

	resp, err := Handle(app.NewContext(), req)
	require.NoError(t, err)

	assert.NotEmpty(t, resp.JobID)
	assert.Equal(t, "encrypt", resp.Direction)
	assert.Equal(t, backend.NameGeneric, resp.Backend)
	assert.Equal(t, int64(len(pt)), resp.Bytes)
	assert.Equal(t, uint64(8), resp.Sectors)
	assert.Equal(t, 512, resp.SectorSize)
	assert.Zero(t, resp.StolenBytes)
	assert.Equal(t, float64(8), resp.Metrics[`xtswalk_requests_total{direction=encrypt,result=ok}`])

	ref, err := xtsref.NewCipher(aes.NewCipher, f.key)
	require.NoError(t, err)
	want := make([]byte, len(pt))
	for i := 0; i < 8; i++ {
		ref.Encrypt(want[i*512:(i+1)*512], pt[i*512:(i+1)*512], 100+uint64(i))
	}

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHandleRoundTripWithStealing(t *testing.T) {
	pt := testData(3*1024 + 100)
	f := newFixture(t, pt)

	enc := f.request("encrypt")
	enc.SectorSize = 1024
	resp, err := Handle(app.NewContext(), enc)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), resp.Sectors)
	assert.Equal(t, 4, resp.StolenBytes)

	// Decrypt the output back into a third file.
	f.input, f.output = f.output, filepath.Join(f.dir, "plain.img")
	dec := f.request("decrypt")
	dec.SectorSize = 1024
	_, err = Handle(app.NewContext(), dec)
	require.NoError(t, err)

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, pt, got)
}

func TestHandleSingleMode(t *testing.T) {
	pt := testData(40)
	f := newFixture(t, pt)

	req := f.request("encrypt")
	req.Mode = ModeSingle
	req.IV = "000000000000000000000000000000ff"

	var progress int
	ctx := app.NewContext()
	ctx.SetProgress(func(app.ProgressUpdate) { progress++ })

	resp, err := Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), resp.Sectors)
	assert.Equal(t, 8, resp.StolenBytes)
	assert.Zero(t, resp.SectorSize)
	assert.Zero(t, progress, "single mode reports no sector progress")

	iv, err := tweak.Parse(req.IV)
	require.NoError(t, err)
	w := xts.New(backend.Generic())
	require.NoError(t, w.SetKey(f.key))
	want := make([]byte, len(pt))
	require.NoError(t, w.CryptBytes(xts.Encrypt, want, pt, iv))

	got, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestHandleReportsProgress(t *testing.T) {
	f := newFixture(t, testData(2<<20))

	var last app.ProgressUpdate
	ctx := app.NewContext()
	ctx.SetProgress(func(u app.ProgressUpdate) {
		if u.Completed > last.Completed {
			last = u
		}
	})

	req := f.request("encrypt")
	req.Workers = 1
	_, err := Handle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 100, last.Percent())
}

func TestHandleErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		mutate func(*fixture, *Request)
		code   string
	}{
		{
			name:   "invalid request",
			data:   testData(512),
			mutate: func(f *fixture, r *Request) { r.Direction = "" },
			code:   app.ErrCodeInvalidInput,
		},
		{
			name:   "bad key length",
			data:   testData(512),
			mutate: func(f *fixture, r *Request) { r.Key.Hex = "0011" },
			code:   app.ErrCodeKeyMaterial,
		},
		{
			name: "weak key",
			data: testData(512),
			mutate: func(f *fixture, r *Request) {
				r.Key.Hex = hex.EncodeToString(make([]byte, 32))
				r.ForbidWeakKeys = true
			},
			code: app.ErrCodeKeyMaterial,
		},
		{
			name:   "malformed hex key",
			data:   testData(512),
			mutate: func(f *fixture, r *Request) { r.Key.Hex = "xyz" },
			code:   app.ErrCodeKeyMaterial,
		},
		{
			name:   "missing input",
			data:   testData(512),
			mutate: func(f *fixture, r *Request) { r.InputPath = filepath.Join(f.dir, "missing") },
			code:   app.ErrCodeIO,
		},
		{
			name:   "sub-block tail",
			data:   testData(512 + 8),
			mutate: func(f *fixture, r *Request) {},
			code:   app.ErrCodeInvalidInput,
		},
		{
			name: "single mode too short",
			data: testData(15),
			mutate: func(f *fixture, r *Request) {
				r.Mode = ModeSingle
			},
			code: app.ErrCodeInvalidInput,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, tc.data)
			req := f.request("encrypt")
			tc.mutate(f, req)

			resp, err := Handle(app.NewContext(), req)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tc.code, app.ErrorCode(err))

			_, statErr := os.Stat(f.output)
			assert.True(t, os.IsNotExist(statErr), "no partial output is left behind")
		})
	}
}

func TestHandleCancelled(t *testing.T) {
	f := newFixture(t, testData(4<<20))

	ctx := app.NewContext()
	ctx.Context = canceled()

	_, err := Handle(ctx, f.request("encrypt"))
	require.Error(t, err)
	assert.Equal(t, app.ErrCodeTimeout, app.ErrorCode(err))
}

func canceled() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
