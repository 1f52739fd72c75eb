package coordinator

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/auction/timer"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRoundSeconds = 20
	defaultInboxSize    = 256
)

// Config holds coordinator settings
type Config struct {
	RoundSeconds int
	InboxSize    int

	// Clock defaults to the real clock; tests pass a clockwork.FakeClock
	Clock timer.Clock
	// Codes generates room codes; defaults to 3-digit random codes
	Codes room.CodeGenerator
}

// DefaultConfig returns the settings used by the classroom
func DefaultConfig() Config {
	return Config{
		RoundSeconds: DefaultRoundSeconds,
		InboxSize:    defaultInboxSize,
	}
}

// request is one unit of work for the coordinator goroutine
type request struct {
	cmd Command
	fn  func()
}

// Coordinator is the authoritative auction state machine. All state lives on the
// goroutine running Run; everything else talks to it through the inbox.
type Coordinator struct {
	cfg        Config
	clock      timer.Clock
	registry   *room.Registry
	countdown  *timer.Countdown
	emitter    events.Emitter
	instanceID string

	inbox chan request
	done  chan struct{}

	session session
	seq     uint64
}

// New creates a coordinator that publishes through emitter
func New(cfg Config, emitter events.Emitter) *Coordinator {
	if cfg.RoundSeconds <= 0 {
		cfg.RoundSeconds = DefaultRoundSeconds
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = defaultInboxSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if emitter == nil {
		emitter = events.Fanout{}
	}

	c := &Coordinator{
		cfg:        cfg,
		clock:      cfg.Clock,
		registry:   room.NewRegistry(cfg.Codes),
		emitter:    emitter,
		instanceID: uuid.New().String()[:8],
		inbox:      make(chan request, cfg.InboxSize),
		done:       make(chan struct{}),
		session:    session{state: StateIdle},
	}
	c.countdown = timer.NewCountdown(cfg.Clock, c.dispatch)

	log.Info().
		Str("instance", c.instanceID).
		Str("room_code", c.registry.Code()).
		Int("round_seconds", cfg.RoundSeconds).
		Msg("auction room created")

	return c
}

// Run processes the inbox until ctx is cancelled
func (c *Coordinator) Run(ctx context.Context) error {
	log.Info().Str("instance", c.instanceID).Msg("auction coordinator started")

	defer func() {
		c.countdown.Stop()
		close(c.done)
		log.Info().Str("instance", c.instanceID).Msg("auction coordinator stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-c.inbox:
			c.process(req)
		}
	}
}

// Submit queues a command. It never waits on other participants, only on queue space.
func (c *Coordinator) Submit(ctx context.Context, cmd Command) error {
	if cmd == nil {
		return ErrUnknownCommand
	}
	if c.stopped() {
		return ErrStopped
	}
	select {
	case c.inbox <- request{cmd: cmd}:
		return nil
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns a copy of the room state after every previously submitted command
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	read := func() { reply <- c.snapshot() }

	if c.stopped() {
		return Snapshot{}, ErrStopped
	}
	select {
	case c.inbox <- request{fn: read}:
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-c.done:
		return Snapshot{}, ErrStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

// dispatch lets the countdown re-enter the state machine through the inbox
func (c *Coordinator) dispatch(fn func()) bool {
	select {
	case c.inbox <- request{fn: fn}:
		return true
	case <-c.done:
		return false
	}
}

func (c *Coordinator) stopped() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Coordinator) process(req request) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("instance", c.instanceID).
				Interface("panic", r).
				Msg("recovered from panic while handling command")
		}
	}()

	if req.fn != nil {
		req.fn()
		return
	}

	err := c.handle(req.cmd)
	if err == nil {
		return
	}

	evt := log.Debug()
	if Classify(err) == ClassAuth {
		evt = log.Info()
	}
	evt.Err(err).
		Str("command", req.cmd.Name()).
		Str("sender", req.cmd.Sender()).
		Str("class", string(Classify(err))).
		Msg("command rejected")
}

// handle routes a command to its transition
func (c *Coordinator) handle(cmd Command) error {
	switch cmd := cmd.(type) {
	case Join:
		return c.handleJoin(cmd)
	case Bid:
		return c.handleBid(cmd)
	case StartRound:
		return c.handleStart(cmd)
	case Sell:
		return c.handleSell(cmd)
	case EndRound:
		return c.handleEnd(cmd)
	case Kick:
		return c.handleKick(cmd)
	case ResetRoom:
		return c.handleReset(cmd)
	case Disconnect:
		return c.handleDisconnect(cmd)
	default:
		return fmt.Errorf("%T: %w", cmd, ErrUnknownCommand)
	}
}

func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		State:        c.session.state,
		RoundID:      c.session.roundID,
		Price:        c.session.price,
		Remaining:    c.session.remaining,
		Bids:         c.session.bids,
		Participants: c.registry.Participants(),
		RoomCode:     c.registry.Code(),
	}
	if leader, ok := c.leader(); ok {
		s.Leader = &leader
	}
	return s
}

// leader re-resolves the weak leader reference against the roster
func (c *Coordinator) leader() (room.Participant, bool) {
	return c.registry.Lookup(c.session.leaderID)
}

// emit stamps and forwards one event; to == "" addresses the whole room
func (c *Coordinator) emit(to string, eventType events.EventType, payload interface{}) {
	var (
		e   *events.Event
		err error
	)
	if to == "" {
		e, err = events.New(eventType, payload, c.clock.Now())
	} else {
		e, err = events.NewPrivate(to, eventType, payload, c.clock.Now())
	}
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	c.seq++
	e.Seq = c.seq
	c.emitter.Emit(e)
}

func (c *Coordinator) broadcast(eventType events.EventType, payload interface{}) {
	c.emit("", eventType, payload)
}

func (c *Coordinator) tell(to string, eventType events.EventType, payload interface{}) {
	c.emit(to, eventType, payload)
}
