package selftest

import (
	"fmt"
	"time"

	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Request selects the backends to test. Empty means every available one.
type Request struct {
	Backends []string
}

// Response holds the result of every vector on every backend
type Response struct {
	Results  []Result      `json:"results" yaml:"results"`
	Passed   int           `json:"passed" yaml:"passed"`
	Failed   int           `json:"failed" yaml:"failed"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Result is one vector on one backend, checked in both directions
type Result struct {
	Backend  string `json:"backend" yaml:"backend"`
	Vector   string `json:"vector" yaml:"vector"`
	Bytes    int    `json:"bytes" yaml:"bytes"`
	Stealing bool   `json:"stealing" yaml:"stealing"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Err returns a SELFTEST error when any vector failed
func (r *Response) Err() error {
	if r.Failed == 0 {
		return nil
	}
	return app.NewError(app.ErrCodeSelfTest, fmt.Sprintf("%d of %d known-answer checks failed", r.Failed, r.Passed+r.Failed), nil)
}
