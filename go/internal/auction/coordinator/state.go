package coordinator

import "github.com/mcdev12/auctionroom/go/internal/auction/room"

// State is the auction phase
type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

// session is the mutable auction state owned by the coordinator goroutine
type session struct {
	state     State
	roundID   string
	price     int
	leaderID  string
	remaining int
	bids      int
}

// Snapshot is a read-only copy of the room taken on the coordinator goroutine
type Snapshot struct {
	State        State              `json:"state"`
	RoundID      string             `json:"round_id,omitempty"`
	Price        int                `json:"price"`
	Leader       *room.Participant  `json:"leader,omitempty"`
	Remaining    int                `json:"time_remaining_sec"`
	Bids         int                `json:"bid_count"`
	Participants []room.Participant `json:"participants"`

	// RoomCode is kept off the wire; only joined teachers learn it through login
	RoomCode string `json:"-"`
}
