package admission

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAcquireTwiceWithoutRelease(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now))

	release, err := guard.Acquire()
	require.NoError(t, err)
	require.True(t, guard.Busy())

	clock.Advance(10 * time.Second)
	_, err = guard.Acquire()
	require.ErrorIs(t, err, ErrTooManyRequests)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, InFlight, rejected.Reason)
	require.Equal(t, "a call is already in progress", rejected.UserMessage())

	release()
	require.False(t, guard.Busy())
}

func TestAcquireWithinMinGap(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now))

	release, err := guard.Acquire()
	require.NoError(t, err)
	release()

	clock.Advance(500 * time.Millisecond)
	_, err = guard.Acquire()
	require.ErrorIs(t, err, ErrTooManyRequests)

	var rejected *RejectedError
	require.True(t, errors.As(err, &rejected))
	require.Equal(t, TooSoon, rejected.Reason)
	require.InDelta(t, 1.5, rejected.Wait.Seconds(), 0.01)
	require.Equal(t, "wait 2 seconds", rejected.UserMessage())
	require.Contains(t, err.Error(), "wait 2 seconds")

	clock.Advance(time.Second)
	_, err = guard.Acquire()
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "wait 1 second", rejected.UserMessage())

	clock.Advance(600 * time.Millisecond)
	release, err = guard.Acquire()
	require.NoError(t, err)
	release()
}

func TestGapIsMeasuredFromCallStart(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now))

	start := clock.Now()
	release, err := guard.Acquire()
	require.NoError(t, err)
	require.Equal(t, start, guard.LastStart())

	// A long call leaves no extra wait once it finishes.
	clock.Advance(5 * time.Second)
	release()

	release, err = guard.Acquire()
	require.NoError(t, err)
	release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now))

	first, err := guard.Acquire()
	require.NoError(t, err)
	first()

	clock.Advance(MinGap)
	second, err := guard.Acquire()
	require.NoError(t, err)

	// A stale release from the first call must not unlock the second one.
	first()
	require.True(t, guard.Busy())

	second()
	second()
	require.False(t, guard.Busy())
}

func TestReleaseOnPanic(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now))

	func() {
		defer func() { _ = recover() }()
		release, err := guard.Acquire()
		require.NoError(t, err)
		defer release()
		panic("boom")
	}()

	require.False(t, guard.Busy())
}

func TestConcurrentAcquireAdmitsOne(t *testing.T) {
	t.Parallel()

	guard := New(WithClock(newFakeClock().Now))

	var (
		admitted atomic.Int32
		wg       sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := guard.Acquire(); err == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, admitted.Load())
}

func TestCustomMinGap(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	guard := New(WithClock(clock.Now), WithMinGap(10*time.Second))

	release, err := guard.Acquire()
	require.NoError(t, err)
	release()

	clock.Advance(5 * time.Second)
	_, err = guard.Acquire()
	require.ErrorIs(t, err, ErrTooManyRequests)

	clock.Advance(5 * time.Second)
	_, err = guard.Acquire()
	require.NoError(t, err)
}
