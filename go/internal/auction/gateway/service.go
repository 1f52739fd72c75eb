package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// Room is what the gateway needs from the coordinator
type Room interface {
	CommandSink
	StateProvider
}

// Service is the room gateway: WebSocket connections, event delivery and the state endpoint
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates a gateway without a room. Bind must be called before clients connect.
func NewService(config Config) *Service {
	cm := NewConnectionManager(config.ConnectionConfig, nil)
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm),
	}
}

// Bind attaches the room. The coordinator needs the gateway as its emitter, so the
// two are wired in two steps.
func (s *Service) Bind(room Room) {
	s.connectionManager.commands = room
	s.stateHandler = NewStateHandler(room)
}

// Emit implements events.Emitter
func (s *Service) Emit(event *events.Event) {
	s.connectionManager.Emit(event)
}

// Start delivers events until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting room gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("room gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	if s.stateHandler != nil {
		s.stateHandler.RegisterStateRoutes(mux)
	}
	log.Info().Msg("room gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

var (
	_ events.Emitter = (*Service)(nil)
	_ Room           = (*coordinator.Coordinator)(nil)
)
