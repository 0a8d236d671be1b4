package selftest

import (
	"time"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/internal/kat"
	"github.com/deploymenttheory/go-xtswalk/internal/unit"
	"github.com/deploymenttheory/go-xtswalk/internal/xts"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Handle runs the known-answer vectors
func Handle(ctx *app.Context, req *Request) (*Response, error) {
	startTime := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	vectors := kat.Vectors()
	resp := &Response{}

	for _, name := range req.targets() {
		prim, err := backend.Select(name)
		if err != nil {
			return nil, app.NewError(app.ErrCodeInvalidInput, "selecting backend", err)
		}
		w := xts.New(prim, xts.WithUnit(unit.New(unit.Options{})))

		for _, v := range vectors {
			if err := ctx.Err(); err != nil {
				return nil, app.NewError(app.ErrCodeTimeout, "self test interrupted", err)
			}

			res := Result{
				Backend:  name,
				Vector:   v.Name,
				Bytes:    len(v.Plaintext) / 2,
				Stealing: v.Stealing(),
				Passed:   true,
			}
			if err := v.Check(w); err != nil {
				res.Passed = false
				res.Error = err.Error()
				resp.Failed++
				ctx.Error(err, "known-answer check failed", "backend", name, "vector", v.Name)
			} else {
				resp.Passed++
			}
			resp.Results = append(resp.Results, res)
		}

		ctx.Log("backend checked", "backend", name, "vectors", len(vectors))
	}

	resp.Duration = time.Since(startTime)
	return resp, nil
}
