package events

import "github.com/mcdev12/auctionroom/go/internal/auction/room"

// Payload types shared between the coordinator and the sinks that consume its events

// LoginSuccessPayload is sent privately after a successful join
type LoginSuccessPayload struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	RoomCode string `json:"room_code"`
	Budget   int    `json:"budget"`
}

// LoginErrorPayload is sent privately when a join is refused
type LoginErrorPayload struct {
	Reason string `json:"reason"`
}

// UsersPayload is the full roster snapshot
type UsersPayload struct {
	Users []room.Participant `json:"users"`
}

// Bidder identifies the current leader in price updates
type Bidder struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Avatar   int    `json:"avatar"`
}

// PricePayload carries the current price and the leader, if any
type PricePayload struct {
	Price  int     `json:"price"`
	Bidder *Bidder `json:"bidder"`
}

// BudgetPayload is sent privately when a participant's balance changes
type BudgetPayload struct {
	Budget int `json:"budget"`
}

// TimerPayload is one countdown tick
type TimerPayload struct {
	Remaining int `json:"remaining"`
}

// RoundPayload marks the start or end of a round
type RoundPayload struct {
	RoundID string `json:"round_id"`
}

// LogKind classifies log entries for display
type LogKind string

const (
	LogInfo   LogKind = "info"
	LogSystem LogKind = "system"
	LogBid    LogKind = "bid"
	LogWin    LogKind = "win"
)

// LogPayload is a feed entry; bid entries are structured, the rest are text
type LogPayload struct {
	Kind     LogKind `json:"type"`
	Text     string  `json:"text,omitempty"`
	Nickname string  `json:"nickname,omitempty"`
	Amount   int     `json:"amount,omitempty"`
}

// SoundPayload asks clients to play a cue
type SoundPayload struct {
	Sound string `json:"sound"`
}

// SoldPayload records a completed sale
type SoldPayload struct {
	RoundID       string `json:"round_id"`
	ParticipantID string `json:"participant_id"`
	Nickname      string `json:"nickname"`
	Price         int    `json:"price"`
	BudgetAfter   int    `json:"budget_after"`
	BidCount      int    `json:"bid_count"`
	Trigger       string `json:"trigger"`
}

// KickedPayload is sent privately to a removed participant
type KickedPayload struct {
	Reason string `json:"reason"`
}

// ReloadPayload tells every client to drop its session
type ReloadPayload struct {
	Reason string `json:"reason"`
}
