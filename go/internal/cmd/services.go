package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/mcdev12/auctionroom/go/internal/auction/gateway"
	"github.com/mcdev12/auctionroom/go/internal/auction/ledger"
	ledgerdb "github.com/mcdev12/auctionroom/go/internal/auction/ledger/db"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
	"github.com/mcdev12/auctionroom/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Room    *coordinator.Coordinator
	Gateway *gateway.Service

	// Optional sinks; nil when disabled
	Outbox    *outbox.Worker
	Publisher *outbox.JetStreamPublisher
	Metrics   *outbox.CountingMetrics
	Ledger    *ledger.Sink
	Sales     *ledger.Repository
	Database  *sql.DB

	wg sync.WaitGroup
}

func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	// Wire up the room
	// Gateway + sinks → Fanout emitter → Coordinator → Gateway command sink
	s := &Services{}

	gwConfig := gateway.DefaultConfig()
	gwConfig.ConnectionConfig.CheckOrigin = gateway.AllowOrigins(cfg.Server.AllowedOrigins)
	s.Gateway = gateway.NewService(gwConfig)

	fanout := events.Fanout{s.Gateway}

	if cfg.NATS.Enabled {
		jsConfig := outbox.DefaultJetStreamConfig()
		jsConfig.URL = cfg.NATS.URL
		jsConfig.StreamName = cfg.NATS.Stream
		jsConfig.SubjectPrefix = cfg.NATS.SubjectPrefix

		publisher, err := outbox.NewJetStreamPublisher(ctx, jsConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
		}
		s.Publisher = publisher
		s.Metrics = &outbox.CountingMetrics{}
		s.Outbox = outbox.NewWorker(publisher, outbox.DefaultConfig(), s.Metrics)
		fanout = append(fanout, s.Outbox)
	}

	if cfg.Ledger.Enabled {
		database, err := ledger.Open(ctx, dbconfig.NewConfigFromEnv())
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		s.Database = database
		s.Sales = ledger.NewRepository(ledgerdb.New(database))
		s.Ledger = ledger.NewSink(s.Sales, cfg.Ledger.BufferSize)
		fanout = append(fanout, s.Ledger)
	}

	s.Room = coordinator.New(coordinator.Config{
		RoundSeconds: cfg.Auction.RoundSeconds,
		InboxSize:    cfg.Auction.InboxSize,
		Codes:        room.NewCodeGenerator(cfg.Auction.CodeDigits, nil),
	}, fanout)
	s.Gateway.Bind(s.Room)

	return s, nil
}

// Start launches every background loop; they all stop when ctx is cancelled
func (s *Services) Start(ctx context.Context) error {
	if s.Outbox != nil {
		if err := s.Outbox.Start(ctx); err != nil {
			return fmt.Errorf("failed to start outbox worker: %w", err)
		}
	}

	s.goRun(func() {
		if err := s.Room.Run(ctx); err != nil {
			log.Error().Err(err).Msg("auction coordinator failed")
		}
	})
	s.goRun(func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("room gateway failed")
		}
	})
	if s.Ledger != nil {
		s.goRun(func() { s.Ledger.Run(ctx) })
	}
	return nil
}

func (s *Services) goRun(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Wait blocks until every loop started by Start has returned
func (s *Services) Wait() {
	s.wg.Wait()
	if s.Outbox != nil {
		s.Outbox.Wait()
	}
}

// Close releases external connections; call after Wait
func (s *Services) Close() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close JetStream publisher")
		}
	}
	if s.Database != nil {
		if err := s.Database.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close ledger database")
		}
	}
}
