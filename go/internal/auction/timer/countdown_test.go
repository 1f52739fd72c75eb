package timer_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loop stands in for the coordinator: callbacks queue up and the test goroutine runs them
type loop struct {
	fns chan func()
}

func newLoop() *loop {
	return &loop{fns: make(chan func(), 64)}
}

func (l *loop) dispatch(fn func()) bool {
	l.fns <- fn
	return true
}

func (l *loop) runNext(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.fns:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for countdown callback")
	}
}

func advance(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
}

func TestCountdown_TicksDownAndExpiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLoop()
	cd := timer.NewCountdown(clock, l.dispatch)

	var ticks []int
	expired := 0
	cd.Start(3, func(r int) { ticks = append(ticks, r) }, func() { expired++ })

	assert.Equal(t, []int{3}, ticks, "initial value must be reported synchronously")

	for i := 0; i < 3; i++ {
		advance(t, clock)
		l.runNext(t)
	}
	assert.Equal(t, []int{3, 2, 1, 0}, ticks)
	assert.Equal(t, 0, expired)

	l.runNext(t)
	assert.Equal(t, 1, expired)

	clock.Advance(10 * time.Second)
	assert.Never(t, func() bool { return len(l.fns) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
}

func TestCountdown_RestartMakesOldInstanceInert(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLoop()
	cd := timer.NewCountdown(clock, l.dispatch)

	var oldTicks, newTicks []int
	oldExpired, newExpired := 0, 0

	cd.Start(2, func(r int) { oldTicks = append(oldTicks, r) }, func() { oldExpired++ })

	// Let the first instance queue a tick, then supersede it before the tick is applied.
	advance(t, clock)
	require.Eventually(t, func() bool { return len(l.fns) == 1 }, time.Second, 5*time.Millisecond)

	cd.Start(2, func(r int) { newTicks = append(newTicks, r) }, func() { newExpired++ })
	l.runNext(t)

	assert.Equal(t, []int{2}, oldTicks, "queued tick from a superseded countdown must be dropped")

	advance(t, clock)
	l.runNext(t)
	advance(t, clock)
	l.runNext(t)
	l.runNext(t)

	assert.Equal(t, []int{2, 1, 0}, newTicks)
	assert.Equal(t, 0, oldExpired)
	assert.Equal(t, 1, newExpired)
}

func TestCountdown_StopPreventsExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLoop()
	cd := timer.NewCountdown(clock, l.dispatch)

	expired := 0
	cd.Start(1, nil, func() { expired++ })
	assert.True(t, cd.Running())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	cd.Stop()
	assert.False(t, cd.Running())
	require.NoError(t, clock.BlockUntilContext(ctx, 0), "stop must release the pending timer")

	clock.Advance(5 * time.Second)
	assert.Never(t, func() bool { return len(l.fns) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 0, expired)
}

func TestCountdown_StopAfterQueuedExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := newLoop()
	cd := timer.NewCountdown(clock, l.dispatch)

	expired := 0
	cd.Start(1, nil, func() { expired++ })

	advance(t, clock)
	require.Eventually(t, func() bool { return len(l.fns) == 1 }, time.Second, 5*time.Millisecond)

	cd.Stop()
	l.runNext(t)
	assert.Equal(t, 0, expired, "expiry queued before Stop must not fire")
}

func TestCountdown_GenerationAdvances(t *testing.T) {
	cd := timer.NewCountdown(clockwork.NewFakeClock(), func(func()) bool { return true })

	first := cd.Start(5, nil, nil)
	second := cd.Start(5, nil, nil)
	assert.Greater(t, second, first)

	cd.Stop()
	assert.Greater(t, cd.Generation(), second)
}
