package timer

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Clock is the subset of clockwork.Clock the countdown needs.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// Dispatcher runs fn on the owner's serialized goroutine. It returns false when
// the owner is gone and fn will never run.
type Dispatcher func(fn func()) bool

const tickInterval = time.Second

// Countdown is a restartable per-second countdown. At most one instance is live;
// every Start or Stop bumps the generation so callbacks already queued by an older
// instance are dropped when they reach the dispatcher.
//
// Start and Stop are meant to be called from the dispatcher's goroutine.
type Countdown struct {
	clock    Clock
	dispatch Dispatcher

	generation atomic.Uint64

	mu      sync.Mutex
	current *instance
}

type instance struct {
	gen uint64

	mu      sync.Mutex
	stopped bool
	timer   clockwork.Timer
	done    chan struct{}
}

// NewCountdown creates a countdown that marshals callbacks through dispatch
func NewCountdown(clock Clock, dispatch Dispatcher) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{clock: clock, dispatch: dispatch}
}

// Start cancels any running instance and begins a new countdown from seconds.
// onTick(seconds) runs synchronously before Start returns; later ticks and the
// single onExpire call arrive through the dispatcher.
func (c *Countdown) Start(seconds int, onTick func(remaining int), onExpire func()) uint64 {
	if seconds < 0 {
		seconds = 0
	}

	c.mu.Lock()
	if c.current != nil {
		c.current.stop()
	}
	inst := &instance{
		gen:  c.generation.Add(1),
		done: make(chan struct{}),
	}
	c.current = inst
	c.mu.Unlock()

	if onTick != nil {
		onTick(seconds)
	}

	go c.run(inst, seconds, onTick, onExpire)

	log.Debug().
		Uint64("generation", inst.gen).
		Int("seconds", seconds).
		Msg("countdown started")

	return inst.gen
}

// Stop cancels the running instance, if any
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return
	}
	c.current.stop()
	c.current = nil
	c.generation.Add(1)
}

// Generation returns the id of the newest instance; stale callbacks compare against it
func (c *Countdown) Generation() uint64 {
	return c.generation.Load()
}

// Running reports whether an instance is live
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

func (c *Countdown) live(gen uint64) bool {
	return c.generation.Load() == gen
}

func (c *Countdown) run(inst *instance, seconds int, onTick func(int), onExpire func()) {
	startedAt := c.clock.Now()

	for step := 1; step <= seconds; step++ {
		deadline := startedAt.Add(time.Duration(step) * tickInterval)
		t, ok := inst.arm(c.clock, deadline.Sub(c.clock.Now()))
		if !ok {
			return
		}

		select {
		case <-t.Chan():
		case <-inst.done:
			return
		}

		remaining := seconds - step
		if onTick != nil && !c.post(inst, func() { onTick(remaining) }) {
			return
		}
	}

	if onExpire != nil {
		c.post(inst, onExpire)
	}
}

// post hands fn to the dispatcher wrapped in a generation check
func (c *Countdown) post(inst *instance, fn func()) bool {
	if inst.isStopped() {
		return false
	}
	gen := inst.gen
	return c.dispatch(func() {
		if !c.live(gen) {
			log.Debug().Uint64("generation", gen).Msg("dropping stale countdown callback")
			return
		}
		fn()
	})
}

// arm creates the next one-shot timer unless the instance was stopped meanwhile
func (i *instance) arm(clock Clock, d time.Duration) (clockwork.Timer, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return nil, false
	}
	i.timer = clock.NewTimer(d)
	return i.timer, true
}

func (i *instance) stop() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stopped {
		return
	}
	i.stopped = true
	if i.timer != nil {
		stopAndDrainTimer(i.timer)
	}
	close(i.done)
}

func (i *instance) isStopped() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.stopped
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
