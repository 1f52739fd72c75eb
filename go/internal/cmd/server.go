package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mcdev12/auctionroom/go/internal/auction/ledger"
	"github.com/mcdev12/auctionroom/go/internal/auction/outbox"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register the room gateway
	services.Gateway.RegisterRoutes(mux)

	// Sale history is only served when the ledger is enabled
	if services.Sales != nil {
		ledger.NewSalesHandler(services.Sales).RegisterRoutes(mux)
	}

	// Add health check endpoint
	setupHealthCheck(mux, services)

	// Wrap with CORS
	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

type healthResponse struct {
	Status      string                  `json:"status"`
	State       string                  `json:"state"`
	Connections int                     `json:"connections"`
	NATS        *bool                   `json:"nats_connected,omitempty"`
	Outbox      *outbox.MetricsSnapshot `json:"outbox,omitempty"`
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{
			Status:      "ok",
			Connections: services.Gateway.GetStats().TotalConnections,
		}
		status := http.StatusOK

		snap, err := services.Room.Snapshot(ctx)
		if err != nil {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.State = string(snap.State)
		}

		if services.Publisher != nil {
			connected := services.Publisher.Connected()
			resp.NATS = &connected
			if !connected {
				resp.Status = "degraded"
			}
		}
		if services.Metrics != nil {
			m := services.Metrics.Snapshot()
			resp.Outbox = &m
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
