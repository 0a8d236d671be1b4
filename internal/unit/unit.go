// Package unit models the shared cipher unit: an exclusively owned resource
// (SIMD register file, crypto accelerator) that every primitive call must
// check out for its duration and check back in immediately afterwards.
package unit

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/deploymenttheory/go-xtswalk/internal/metrics"
)

// Options configures a Unit.
type Options struct {
	// Lanes is the number of holders allowed at once. 1 (the default) gives
	// strict mutual exclusion.
	Lanes int

	// PinThread locks the holding goroutine to its OS thread while the unit
	// is checked out.
	PinThread bool

	// Metrics receives acquisition counts and hold times. May be nil.
	Metrics *metrics.Metrics
}

// Unit is a shared cipher unit.
type Unit struct {
	sem     *semaphore.Weighted
	lanes   int
	pin     bool
	metrics *metrics.Metrics
}

// New creates a unit.
func New(opts Options) *Unit {
	if opts.Lanes < 1 {
		opts.Lanes = 1
	}
	return &Unit{
		sem:     semaphore.NewWeighted(int64(opts.Lanes)),
		lanes:   opts.Lanes,
		pin:     opts.PinThread,
		metrics: opts.Metrics,
	}
}

var (
	sharedOnce sync.Once
	shared     *Unit
)

// Shared returns the process-wide single-lane unit.
func Shared() *Unit {
	sharedOnce.Do(func() {
		shared = New(Options{Lanes: 1})
	})
	return shared
}

// Lanes returns the number of concurrent holders the unit admits.
func (u *Unit) Lanes() int {
	return u.lanes
}

// Acquire checks the unit out and returns the function that checks it back
// in. The release function is safe to call more than once; only the first
// call has an effect.
//
//	release := u.Acquire()
//	defer release()
func (u *Unit) Acquire() (release func()) {
	// A background context never cancels, so Acquire only returns once a
	// lane is free.
	_ = u.sem.Acquire(context.Background(), 1)
	return u.checkedOut()
}

// TryAcquire checks the unit out only if a lane is free right now.
func (u *Unit) TryAcquire() (release func(), ok bool) {
	if !u.sem.TryAcquire(1) {
		return nil, false
	}
	return u.checkedOut(), true
}

// checkedOut is called with a lane held and builds its release function.
func (u *Unit) checkedOut() func() {
	if u.pin {
		runtime.LockOSThread()
	}
	start := time.Now()

	var once sync.Once
	return func() {
		once.Do(func() {
			u.metrics.UnitHeld(time.Since(start))
			if u.pin {
				runtime.UnlockOSThread()
			}
			u.sem.Release(1)
		})
	}
}
