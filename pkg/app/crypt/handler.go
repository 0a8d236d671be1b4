package crypt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/keys"
	"github.com/deploymenttheory/go-xtswalk/internal/metrics"
	"github.com/deploymenttheory/go-xtswalk/internal/sector"
	"github.com/deploymenttheory/go-xtswalk/internal/tweak"
	"github.com/deploymenttheory/go-xtswalk/internal/unit"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Handle processes an encrypt or decrypt request
func Handle(ctx *app.Context, req *Request) (resp *Response, err error) {
	startTime := time.Now()

	// 1. Validate request
	if err := req.Validate(); err != nil {
		return nil, err
	}
	dir, _ := req.direction()

	jobID := uuid.NewString()
	ctx.Log("starting job", "job", jobID, "direction", dir, "mode", req.Mode,
		"input", req.InputPath, "output", req.OutputPath, "key", req.Key.String())

	// 2. Build the walker
	walker, m, err := newWalker(req)
	if err != nil {
		return nil, err
	}

	// 3. Key it
	key, err := req.Key.Load(req.KeySize, req.KDF)
	if err != nil {
		return nil, app.NewError(app.ErrCodeKeyMaterial, "loading key", err)
	}
	defer keys.Wipe(key)
	if err := walker.SetKey(key); err != nil {
		return nil, classify("setting key", err)
	}

	// 4. Open files
	in, err := os.Open(req.InputPath)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, "opening input", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, "reading input size", err)
	}
	size := info.Size()

	out, err := os.OpenFile(req.OutputPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, app.NewError(app.ErrCodeIO, "creating output", err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = app.NewError(app.ErrCodeIO, "closing output", cerr)
		}
		if err != nil {
			resp = nil
			_ = os.Remove(req.OutputPath)
		}
	}()

	resp = &Response{
		JobID:       jobID,
		Direction:   dir.String(),
		Mode:        req.Mode,
		Backend:     walker.Backend(),
		Accelerated: backend.HardwareAES(),
		Input:       req.InputPath,
		Output:      req.OutputPath,
	}

	// 5. Run
	switch req.Mode {
	case ModeSingle:
		err = runSingle(ctx, req, walker, dir, out, in, size, resp)
	default:
		err = runSectors(ctx, req, walker, dir, out, in, size, startTime, resp)
	}
	if err != nil {
		ctx.Error(err, "job failed", "job", jobID)
		return nil, err
	}

	resp.Duration = time.Since(startTime)
	resp.Metrics = m.Snapshot()

	ctx.Log("job complete", "job", jobID, "bytes", resp.Bytes, "duration", resp.Duration)

	return resp, nil
}

func newWalker(req *Request) (*xts.Walker, *metrics.Metrics, error) {
	prim, err := backend.Select(req.Backend)
	if err != nil {
		return nil, nil, app.NewError(app.ErrCodeInvalidInput, "invalid backend", err)
	}

	m := metrics.New()
	opts := []xts.Option{
		xts.WithMetrics(m),
		xts.WithUnit(unit.New(unit.Options{Lanes: req.Lanes, PinThread: req.PinThread, Metrics: m})),
	}
	if req.ForbidWeakKeys {
		opts = append(opts, xts.WithForbidWeakKeys())
	}

	return xts.New(prim, opts...), m, nil
}

func runSectors(ctx *app.Context, req *Request, w *xts.Walker, dir xts.Direction,
	out io.WriterAt, in io.ReaderAt, size int64, startTime time.Time, resp *Response) error {
	codec, err := sector.New(w, sector.Options{
		SectorSize:  req.SectorSize,
		FirstSector: req.FirstSector,
		Workers:     req.Workers,
		Progress: func(done, total int64) {
			ctx.Progress(app.ProgressUpdate{
				Message:     dir.String(),
				Completed:   done,
				Total:       total,
				StartedAt:   startTime,
				ElapsedTime: time.Since(startTime),
			})
		},
	})
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "configuring sector codec", err)
	}

	st, err := codec.Run(ctx, dir, out, in, size)
	if err != nil {
		return classify("processing sectors", err)
	}

	resp.Bytes = st.Bytes
	resp.Sectors = st.Sectors
	resp.SectorSize = req.SectorSize
	resp.StolenBytes = st.StolenBytes
	return nil
}

func runSingle(ctx *app.Context, req *Request, w *xts.Walker, dir xts.Direction,
	out io.Writer, in io.Reader, size int64, resp *Response) error {
	if size > MaxSingleBytes {
		return app.NewError(app.ErrCodeInvalidInput,
			fmt.Sprintf("single mode is limited to %s; use sector mode", app.FormatBytes(MaxSingleBytes)), nil)
	}

	iv, err := tweak.Parse(req.IV)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid iv", err)
	}

	buf, err := io.ReadAll(io.LimitReader(in, size))
	if err != nil {
		return app.NewError(app.ErrCodeIO, "reading input", err)
	}
	defer clear(buf)

	if err := w.CryptBytes(dir, buf, buf, iv); err != nil {
		return classify("processing data unit", err)
	}
	if err := ctx.Err(); err != nil {
		return classify("processing data unit", err)
	}

	if _, err := out.Write(buf); err != nil {
		return app.NewError(app.ErrCodeIO, "writing output", err)
	}

	resp.Bytes = int64(len(buf))
	resp.Sectors = 1
	resp.StolenBytes = len(buf) % xts.BlockSize
	return nil
}

// classify maps library errors onto application error codes
func classify(message string, err error) error {
	var ce *app.CommonError
	switch {
	case errors.As(err, &ce):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return app.NewError(app.ErrCodeTimeout, message, err)
	case errors.Is(err, xts.ErrInvalidKeyLength), errors.Is(err, xts.ErrWeakKey),
		errors.Is(err, xts.ErrKeySetup), errors.Is(err, xts.ErrNoKey):
		return app.NewError(app.ErrCodeKeyMaterial, message, err)
	case errors.Is(err, xts.ErrInvalidArgument), errors.Is(err, xts.ErrShortInput),
		errors.Is(err, sector.ErrSectorSize):
		return app.NewError(app.ErrCodeInvalidInput, message, err)
	case errors.Is(err, xts.ErrPrimitiveFailure):
		return app.NewError(app.ErrCodeCipher, message, err)
	default:
		return app.NewError(app.ErrCodeIO, message, err)
	}
}
