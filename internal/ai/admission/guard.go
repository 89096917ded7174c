// Package admission implements process-wide admission control for model calls.
//
// A Guard admits at most one call at a time and spaces call starts by at
// least MinGap. It never queues: a call that loses the race is rejected and
// the rejection is meant to reach the user.
package admission

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MinGap is the minimal spacing between two admitted calls.
const MinGap = 2 * time.Second

// ErrTooManyRequests is matched by every rejection returned by Acquire.
var ErrTooManyRequests = errors.New("too many requests")

// Reason tells why a call was rejected.
type Reason int

const (
	InFlight Reason = iota + 1
	TooSoon
)

func (r Reason) String() string {
	switch r {
	case InFlight:
		return "in_flight"
	case TooSoon:
		return "too_soon"
	default:
		return "unknown"
	}
}

// RejectedError is returned by Acquire when a call is not admitted.
type RejectedError struct {
	Reason Reason
	// Wait is the remaining time until a call may start. Zero for InFlight.
	Wait time.Duration
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTooManyRequests, e.UserMessage())
}

func (e *RejectedError) Is(target error) bool { return target == ErrTooManyRequests }

// UserMessage describes the rejection in a form suitable for end users.
func (e *RejectedError) UserMessage() string {
	if e.Reason == InFlight {
		return "a call is already in progress"
	}
	seconds := int(math.Ceil(e.Wait.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	if seconds == 1 {
		return "wait 1 second"
	}
	return fmt.Sprintf("wait %d seconds", seconds)
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithMinGap overrides MinGap.
func WithMinGap(gap time.Duration) Option {
	return func(g *Guard) { g.gap = gap }
}

// Guard is safe for concurrent use.
type Guard struct {
	mu       sync.Mutex
	now      func() time.Time
	gap      time.Duration
	limiter  *rate.Limiter
	inFlight bool
	last     time.Time
}

func New(opts ...Option) *Guard {
	g := &Guard{now: time.Now, gap: MinGap}
	for _, opt := range opts {
		opt(g)
	}
	g.limiter = rate.NewLimiter(rate.Every(g.gap), 1)
	return g
}

// Acquire admits a call or rejects it without blocking. The returned release
// must be called once the call is finished, on every path; calling it more
// than once is harmless.
func (g *Guard) Acquire() (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight {
		return nil, &RejectedError{Reason: InFlight}
	}

	now := g.now()
	r := g.limiter.ReserveN(now, 1)
	if !r.OK() {
		return nil, &RejectedError{Reason: TooSoon, Wait: g.gap}
	}
	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		return nil, &RejectedError{Reason: TooSoon, Wait: wait}
	}

	g.inFlight = true
	g.last = now

	var once sync.Once
	return func() {
		once.Do(g.release)
	}, nil
}

func (g *Guard) release() {
	g.mu.Lock()
	g.inFlight = false
	g.mu.Unlock()
}

// Busy reports whether a call is currently admitted.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}

// LastStart returns the start time of the last admitted call.
func (g *Guard) LastStart() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}
