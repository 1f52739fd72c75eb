package coordinator

// Command is an inbound participant action. Every command carries the session id
// of the connection it arrived on.
type Command interface {
	Sender() string
	Name() string
}

const (
	CommandJoin       = "join"
	CommandBid        = "bid"
	CommandStart      = "teacher_start"
	CommandSold       = "teacher_sold"
	CommandEnd        = "teacher_end"
	CommandKick       = "kick_user"
	CommandResetRoom  = "teacher_reset_room"
	CommandDisconnect = "disconnect"
)

// Join asks to enter the room
type Join struct {
	From     string
	Role     string
	Nickname string
	Avatar   int
	Code     string
	Budget   string
}

// Bid offers a new price for the item on sale
type Bid struct {
	From   string
	Amount int
}

// StartRound opens bidding
type StartRound struct {
	From string
}

// Sell closes the round in favour of the current leader
type Sell struct {
	From string
}

// EndRound closes the round without a sale
type EndRound struct {
	From string
}

// Kick removes another participant
type Kick struct {
	From   string
	Target string
}

// ResetRoom replaces the whole session
type ResetRoom struct {
	From string
}

// Disconnect is raised by the transport when a connection goes away
type Disconnect struct {
	From string
}

func (c Join) Sender() string       { return c.From }
func (c Bid) Sender() string        { return c.From }
func (c StartRound) Sender() string { return c.From }
func (c Sell) Sender() string       { return c.From }
func (c EndRound) Sender() string   { return c.From }
func (c Kick) Sender() string       { return c.From }
func (c ResetRoom) Sender() string  { return c.From }
func (c Disconnect) Sender() string { return c.From }

func (Join) Name() string       { return CommandJoin }
func (Bid) Name() string        { return CommandBid }
func (StartRound) Name() string { return CommandStart }
func (Sell) Name() string       { return CommandSold }
func (EndRound) Name() string   { return CommandEnd }
func (Kick) Name() string       { return CommandKick }
func (ResetRoom) Name() string  { return CommandResetRoom }
func (Disconnect) Name() string { return CommandDisconnect }
