package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SalesReader lists recorded sales, newest first
type SalesReader interface {
	RecentSales(ctx context.Context, limit int) ([]Sale, error)
}

// SalesHandler serves the read side of the ledger
type SalesHandler struct {
	reader  SalesReader
	timeout time.Duration
}

func NewSalesHandler(reader SalesReader) *SalesHandler {
	return &SalesHandler{
		reader:  reader,
		timeout: 5 * time.Second,
	}
}

type salesResponse struct {
	Sales []Sale `json:"sales"`
}

// HandleListSales handles GET /api/sales?limit=N
func (h *SalesHandler) HandleListSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxListLimit {
			http.Error(w, "limit must be between 1 and 100", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sales, err := h.reader.RecentSales(ctx, limit)
	if err != nil {
		log.Error().Err(err).Int("limit", limit).Msg("failed to list sales")
		http.Error(w, "Failed to list sales", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(salesResponse{Sales: sales}); err != nil {
		log.Error().Err(err).Msg("failed to encode sales response")
	}
}

// RegisterRoutes registers the ledger's HTTP routes
func (h *SalesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sales", h.HandleListSales)
}
