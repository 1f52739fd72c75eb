package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type Sale struct {
	ID            uuid.UUID             `json:"id"`
	RoundID       string                `json:"round_id"`
	ParticipantID string                `json:"participant_id"`
	Nickname      string                `json:"nickname"`
	Price         int32                 `json:"price"`
	BudgetAfter   int32                 `json:"budget_after"`
	BidCount      int32                 `json:"bid_count"`
	Trigger       string                `json:"trigger"`
	Detail        pqtype.NullRawMessage `json:"detail"`
	SoldAt        time.Time             `json:"sold_at"`
}
