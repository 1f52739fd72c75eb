package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// SaleStore persists sales
type SaleStore interface {
	RecordSale(ctx context.Context, sale Sale) (*Sale, error)
}

// Sink records every auction_sold event. It buffers sales and writes them on its
// own goroutine so the room never waits on the database.
type Sink struct {
	store   SaleStore
	queue   chan Sale
	timeout time.Duration
	done    chan struct{}
}

func NewSink(store SaleStore, bufferSize int) *Sink {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Sink{
		store:   store,
		queue:   make(chan Sale, bufferSize),
		timeout: 5 * time.Second,
		done:    make(chan struct{}),
	}
}

// SaleFromEvent extracts the sale carried by an auction_sold event
func SaleFromEvent(event *events.Event) (Sale, bool) {
	if event == nil || event.Type != events.EventTypeSold {
		return Sale{}, false
	}
	var payload events.SoldPayload
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		log.Error().Err(err).Str("event_id", event.ID).Msg("malformed sale event")
		return Sale{}, false
	}
	return Sale{
		RoundID:       payload.RoundID,
		ParticipantID: payload.ParticipantID,
		Nickname:      payload.Nickname,
		Price:         payload.Price,
		BudgetAfter:   payload.BudgetAfter,
		BidCount:      payload.BidCount,
		Trigger:       payload.Trigger,
		Detail:        event.Data,
		SoldAt:        event.Timestamp,
	}, true
}

// Emit implements events.Emitter
func (s *Sink) Emit(event *events.Event) {
	sale, ok := SaleFromEvent(event)
	if !ok {
		return
	}
	select {
	case s.queue <- sale:
	default:
		log.Warn().Str("round_id", sale.RoundID).Msg("ledger buffer full, sale not recorded")
	}
}

// Run writes queued sales until ctx is cancelled, then flushes what is left
func (s *Sink) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case sale := <-s.queue:
					s.record(context.Background(), sale)
				default:
					return
				}
			}
		case sale := <-s.queue:
			s.record(ctx, sale)
		}
	}
}

// Done is closed once Run has returned
func (s *Sink) Done() <-chan struct{} {
	return s.done
}

func (s *Sink) record(ctx context.Context, sale Sale) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	saved, err := s.store.RecordSale(ctx, sale)
	switch {
	case errors.Is(err, ErrDuplicateSale):
		log.Debug().Str("round_id", sale.RoundID).Msg("sale already in ledger")
	case err != nil:
		log.Error().Err(err).Str("round_id", sale.RoundID).Msg("failed to record sale")
	default:
		log.Info().
			Str("sale_id", saved.ID.String()).
			Str("round_id", saved.RoundID).
			Str("participant_id", saved.ParticipantID).
			Int("price", saved.Price).
			Msg("sale recorded")
	}
}
