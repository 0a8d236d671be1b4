package selftest

import (
	"fmt"

	"github.com/deploymenttheory/go-xtswalk/internal/backend"
	"github.com/deploymenttheory/go-xtswalk/pkg/app"
)

// Validate checks that every requested backend exists and can run here
func (r *Request) Validate() error {
	available := make(map[string]bool)
	for _, info := range backend.Describe() {
		available[info.Name] = info.Available
	}

	for _, name := range r.Backends {
		ok, known := available[name]
		switch {
		case !known:
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("unknown backend %q", name), backend.ErrUnknown)
		case !ok:
			return app.NewError(app.ErrCodeInvalidInput, fmt.Sprintf("backend %q cannot run on this CPU", name), backend.ErrUnavailable)
		}
	}
	return nil
}

// targets returns the backends to test
func (r *Request) targets() []string {
	if len(r.Backends) > 0 {
		return r.Backends
	}
	var names []string
	for _, info := range backend.Describe() {
		if info.Available {
			names = append(names, info.Name)
		}
	}
	return names
}
