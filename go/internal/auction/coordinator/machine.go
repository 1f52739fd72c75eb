package coordinator

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/rs/zerolog/log"
)

const (
	triggerTimer   = "timer"
	triggerTeacher = "teacher"
)

func (c *Coordinator) handleJoin(cmd Join) error {
	role, ok := room.ParseRole(cmd.Role)
	if !ok {
		c.tell(cmd.From, events.EventTypeLoginError, events.LoginErrorPayload{Reason: "unknown role"})
		return fmt.Errorf("join as %q: %w", cmd.Role, room.ErrInvalidRole)
	}

	p, err := c.registry.Join(room.JoinRequest{
		ID:     cmd.From,
		Role:   role,
		Name:   cmd.Nickname,
		Avatar: cmd.Avatar,
		Code:   cmd.Code,
		Budget: cmd.Budget,
	})
	if err != nil {
		reason := "unable to join"
		switch {
		case errors.Is(err, room.ErrRoomCodeMismatch):
			reason = "wrong room code"
		case errors.Is(err, room.ErrAlreadyJoined):
			reason = "already joined"
		}
		c.tell(cmd.From, events.EventTypeLoginError, events.LoginErrorPayload{Reason: reason})
		return err
	}

	c.tell(p.ID, events.EventTypeLoginSuccess, events.LoginSuccessPayload{
		ID:       p.ID,
		Role:     string(p.Role),
		RoomCode: c.registry.Code(),
		Budget:   p.Budget,
	})
	c.broadcastUsers()
	if p.Role == room.RoleStudent {
		c.broadcast(events.EventTypeLog, events.LogPayload{
			Kind: events.LogInfo,
			Text: fmt.Sprintf("%s joined the room.", p.Name),
		})
	}

	// Bring the newcomer up to date with the round in progress
	c.tell(p.ID, events.EventTypePrice, c.pricePayload())
	if c.session.state == StateActive {
		c.tell(p.ID, events.EventTypeRoundStart, events.RoundPayload{RoundID: c.session.roundID})
		c.tell(p.ID, events.EventTypeTimer, events.TimerPayload{Remaining: c.session.remaining})
	}
	return nil
}

func (c *Coordinator) handleBid(cmd Bid) error {
	if c.session.state != StateActive {
		return ErrNotActive
	}
	bidder, ok := c.registry.Lookup(cmd.From)
	if !ok {
		return ErrUnknownParticipant
	}
	if bidder.Role != room.RoleStudent {
		return ErrNotStudent
	}

	if err := validateBid(c.session.price, bidder, cmd.Amount); err != nil {
		text := fmt.Sprintf("Your bid must be higher than %d.", c.session.price)
		if errors.Is(err, ErrInsufficientBudget) {
			text = fmt.Sprintf("Not enough budget: you have %d.", bidder.Budget)
		}
		c.tell(bidder.ID, events.EventTypeLog, events.LogPayload{Kind: events.LogSystem, Text: text})
		return err
	}

	c.session.price = cmd.Amount
	c.session.leaderID = bidder.ID
	c.session.bids++

	log.Debug().
		Str("round_id", c.session.roundID).
		Str("participant_id", bidder.ID).
		Int("amount", cmd.Amount).
		Msg("bid accepted")

	c.broadcast(events.EventTypePrice, c.pricePayload())
	c.broadcast(events.EventTypeLog, events.LogPayload{
		Kind:     events.LogBid,
		Nickname: bidder.Name,
		Amount:   cmd.Amount,
	})
	c.broadcast(events.EventTypeSound, events.SoundPayload{Sound: "bid"})

	// Soft close: every accepted bid gives the room a full countdown again
	c.startCountdown()
	return nil
}

func (c *Coordinator) handleStart(cmd StartRound) error {
	if err := c.requireTeacher(cmd.From); err != nil {
		return err
	}
	if c.session.state == StateActive {
		return ErrAlreadyActive
	}

	c.session = session{
		state:   StateActive,
		roundID: uuid.New().String(),
	}

	log.Info().Str("round_id", c.session.roundID).Msg("round started")

	c.broadcast(events.EventTypeRoundStart, events.RoundPayload{RoundID: c.session.roundID})
	c.broadcast(events.EventTypePrice, c.pricePayload())
	c.broadcast(events.EventTypeLog, events.LogPayload{
		Kind: events.LogSystem,
		Text: fmt.Sprintf("Auction started! Place your bids within %d seconds.", c.cfg.RoundSeconds),
	})
	c.startCountdown()
	return nil
}

// handleSell finalizes on the teacher's word. Without a resolvable leader it is a
// no-op: nothing is broadcast and the round keeps running.
func (c *Coordinator) handleSell(cmd Sell) error {
	if err := c.requireTeacher(cmd.From); err != nil {
		return err
	}
	if c.session.state != StateActive {
		return ErrNotActive
	}
	if _, ok := c.leader(); !ok {
		return ErrNoLeader
	}
	return c.finalize(triggerTeacher)
}

func (c *Coordinator) handleEnd(cmd EndRound) error {
	if err := c.requireTeacher(cmd.From); err != nil {
		return err
	}
	if c.session.state != StateActive {
		return ErrNotActive
	}

	c.countdown.Stop()
	log.Info().
		Str("round_id", c.session.roundID).
		Int("discarded_price", c.session.price).
		Msg("round ended without sale")

	c.closeRound()
	c.broadcast(events.EventTypeLog, events.LogPayload{Kind: events.LogSystem, Text: "The auction was ended."})
	return nil
}

func (c *Coordinator) handleKick(cmd Kick) error {
	if err := c.requireTeacher(cmd.From); err != nil {
		return err
	}
	if cmd.Target == cmd.From {
		return ErrSelfKick
	}
	if _, ok := c.registry.Lookup(cmd.Target); !ok {
		return fmt.Errorf("kick %s: %w", cmd.Target, ErrUnknownParticipant)
	}

	c.tell(cmd.Target, events.EventTypeKicked, events.KickedPayload{Reason: "removed by the teacher"})
	removed, _ := c.registry.Remove(cmd.Target)

	// A kicked leader stays referenced by id; leader() will no longer resolve it
	log.Info().
		Str("participant_id", removed.ID).
		Bool("was_leader", removed.ID == c.session.leaderID).
		Int("roster_size", c.registry.Len()).
		Msg("participant kicked")

	c.broadcastUsers()
	c.broadcast(events.EventTypeLog, events.LogPayload{
		Kind: events.LogInfo,
		Text: fmt.Sprintf("%s was removed from the room.", removed.Name),
	})
	return nil
}

func (c *Coordinator) handleReset(cmd ResetRoom) error {
	if err := c.requireTeacher(cmd.From); err != nil {
		return err
	}

	c.broadcast(events.EventTypeReload, events.ReloadPayload{Reason: "room reset"})

	c.countdown.Stop()
	c.registry.Reset()
	c.session = session{state: StateIdle}

	log.Info().Str("room_code", c.registry.Code()).Msg("room reset")
	return nil
}

func (c *Coordinator) handleDisconnect(cmd Disconnect) error {
	removed, ok := c.registry.Remove(cmd.From)
	if !ok {
		return nil
	}
	log.Debug().
		Str("participant_id", removed.ID).
		Int("roster_size", c.registry.Len()).
		Msg("participant disconnected")
	c.broadcastUsers()
	return nil
}

// finalize converts the standing bid into a sale, or a no-sale when the leader is
// gone. Both the timer and the teacher end up here; the state check makes a second
// call in the same round a no-op.
func (c *Coordinator) finalize(trigger string) error {
	if c.session.state != StateActive {
		return ErrNotActive
	}
	c.countdown.Stop()

	leader, ok := c.leader()
	sold := false
	if ok {
		balance, err := c.registry.Debit(leader.ID, c.session.price)
		if err != nil {
			log.Error().Err(err).Str("participant_id", leader.ID).Msg("failed to debit winner")
		} else {
			sold = true
			c.tell(leader.ID, events.EventTypeBudget, events.BudgetPayload{Budget: balance})
			c.broadcast(events.EventTypeLog, events.LogPayload{
				Kind: events.LogWin,
				Text: fmt.Sprintf("%s won the item for %d!", leader.Name, c.session.price),
			})
			c.broadcast(events.EventTypeSound, events.SoundPayload{Sound: "win"})
			c.broadcast(events.EventTypeSold, events.SoldPayload{
				RoundID:       c.session.roundID,
				ParticipantID: leader.ID,
				Nickname:      leader.Name,
				Price:         c.session.price,
				BudgetAfter:   balance,
				BidCount:      c.session.bids,
				Trigger:       trigger,
			})
			c.broadcastUsers()
		}
	}
	if !sold {
		c.broadcast(events.EventTypeLog, events.LogPayload{Kind: events.LogSystem, Text: "Time is up. Nothing was sold."})
	}

	log.Info().
		Str("round_id", c.session.roundID).
		Str("trigger", trigger).
		Bool("sold", sold).
		Int("price", c.session.price).
		Msg("round finalized")

	c.closeRound()
	return nil
}

// closeRound returns to Idle and tells the room
func (c *Coordinator) closeRound() {
	roundID := c.session.roundID
	c.session = session{state: StateIdle}
	c.broadcast(events.EventTypeRoundEnd, events.RoundPayload{RoundID: roundID})
}

func (c *Coordinator) startCountdown() {
	restarted := c.countdown.Running()
	c.countdown.Start(c.cfg.RoundSeconds, c.onTick, c.onExpire)
	log.Debug().
		Str("round_id", c.session.roundID).
		Uint64("generation", c.countdown.Generation()).
		Bool("restarted", restarted).
		Msg("round countdown armed")
}

func (c *Coordinator) onTick(remaining int) {
	c.session.remaining = remaining
	c.broadcast(events.EventTypeTimer, events.TimerPayload{Remaining: remaining})
}

func (c *Coordinator) onExpire() {
	if err := c.finalize(triggerTimer); err != nil {
		log.Debug().
			Err(err).
			Uint64("generation", c.countdown.Generation()).
			Msg("ignoring countdown expiry")
	}
}

func (c *Coordinator) requireTeacher(id string) error {
	p, ok := c.registry.Lookup(id)
	if !ok {
		return ErrUnknownParticipant
	}
	if !p.IsTeacher() {
		return ErrNotTeacher
	}
	return nil
}

func (c *Coordinator) pricePayload() events.PricePayload {
	payload := events.PricePayload{Price: c.session.price}
	if leader, ok := c.leader(); ok {
		payload.Bidder = &events.Bidder{ID: leader.ID, Nickname: leader.Name, Avatar: leader.Avatar}
	}
	return payload
}

func (c *Coordinator) broadcastUsers() {
	c.broadcast(events.EventTypeUsers, events.UsersPayload{Users: c.registry.Participants()})
}
