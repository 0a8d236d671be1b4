package unit

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deploymenttheory/go-xtswalk/internal/metrics"
)

func TestAcquireIsExclusive(t *testing.T) {
	u := New(Options{Lanes: 1})

	release := u.Acquire()

	_, ok := u.TryAcquire()
	assert.False(t, ok, "second holder admitted while unit is checked out")

	release()

	again, ok := u.TryAcquire()
	require.True(t, ok)
	again()
}

func TestReleaseIsIdempotent(t *testing.T) {
	u := New(Options{Lanes: 1})

	release := u.Acquire()
	release()
	release()

	// A double release would have let two holders in.
	first, ok := u.TryAcquire()
	require.True(t, ok)
	_, ok = u.TryAcquire()
	assert.False(t, ok)
	first()
}

func TestLanes(t *testing.T) {
	u := New(Options{Lanes: 2})
	assert.Equal(t, 2, u.Lanes())

	a, ok := u.TryAcquire()
	require.True(t, ok)
	b, ok := u.TryAcquire()
	require.True(t, ok)
	_, ok = u.TryAcquire()
	assert.False(t, ok)

	a()
	b()
}

func TestZeroLanesDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, New(Options{}).Lanes())
}

func TestMutualExclusionUnderContention(t *testing.T) {
	u := New(Options{Lanes: 1, PinThread: true})

	var holders, maxHolders int32
	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				release := u.Acquire()
				n := atomic.AddInt32(&holders, 1)
				for {
					m := atomic.LoadInt32(&maxHolders)
					if n <= m || atomic.CompareAndSwapInt32(&maxHolders, m, n) {
						break
					}
				}
				atomic.AddInt32(&holders, -1)
				release()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxHolders)
}

func TestMetricsRecorded(t *testing.T) {
	m := metrics.New()
	u := New(Options{Metrics: m})

	for i := 0; i < 3; i++ {
		u.Acquire()()
	}

	assert.Equal(t, float64(3), m.Snapshot()["xtswalk_unit_acquisitions_total"])
}

func TestShared(t *testing.T) {
	assert.Same(t, Shared(), Shared())
	assert.Equal(t, 1, Shared().Lanes())
}
