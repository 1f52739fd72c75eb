package ledger

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Sale is one completed auction round
type Sale struct {
	ID            uuid.UUID       `json:"id"`
	RoundID       string          `json:"round_id"`
	ParticipantID string          `json:"participant_id"`
	Nickname      string          `json:"nickname"`
	Price         int             `json:"price"`
	BudgetAfter   int             `json:"budget_after"`
	BidCount      int             `json:"bid_count"`
	Trigger       string          `json:"trigger"`
	Detail        json.RawMessage `json:"detail,omitempty"`
	SoldAt        time.Time       `json:"sold_at"`
}
