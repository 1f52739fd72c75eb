package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mcdev12/auctionroom/go/internal/auction/coordinator"
	"github.com/mcdev12/auctionroom/go/internal/auction/room"
)

var (
	ErrMalformedMessage = errors.New("malformed client message")
	ErrUnsupportedType  = errors.New("unsupported message type")
)

// ClientMessage is the envelope every client frame uses
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type joinData struct {
	Role     string          `json:"role"`
	Nickname string          `json:"nickname"`
	Avatar   json.RawMessage `json:"avatar"`
	Code     json.RawMessage `json:"code"`
	Budget   json.RawMessage `json:"budget"`
}

type bidData struct {
	Amount json.RawMessage `json:"amount"`
}

type kickData struct {
	Target string `json:"target"`
}

// DecodeCommand turns a raw client frame into a coordinator command sent by connID
func DecodeCommand(connID string, raw []byte) (coordinator.Command, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.Type {
	case coordinator.CommandJoin:
		var data joinData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: join: %v", ErrMalformedMessage, err)
		}
		avatar, _ := flexInt(data.Avatar)
		return coordinator.Join{
			From:     connID,
			Role:     data.Role,
			Nickname: data.Nickname,
			Avatar:   avatar,
			Code:     flexString(data.Code),
			Budget:   flexString(data.Budget),
		}, nil

	case coordinator.CommandBid:
		amount, ok := flexInt(msg.Data)
		if !ok {
			var data bidData
			if err := json.Unmarshal(msg.Data, &data); err == nil {
				amount, ok = flexInt(data.Amount)
			}
		}
		if !ok {
			return nil, fmt.Errorf("%w: bid amount must be a whole number", ErrMalformedMessage)
		}
		return coordinator.Bid{From: connID, Amount: amount}, nil

	case coordinator.CommandStart:
		return coordinator.StartRound{From: connID}, nil
	case coordinator.CommandSold:
		return coordinator.Sell{From: connID}, nil
	case coordinator.CommandEnd:
		return coordinator.EndRound{From: connID}, nil
	case coordinator.CommandResetRoom:
		return coordinator.ResetRoom{From: connID}, nil

	case coordinator.CommandKick:
		target := flexString(msg.Data)
		if target == "" {
			var data kickData
			if err := json.Unmarshal(msg.Data, &data); err == nil {
				target = data.Target
			}
		}
		if target == "" {
			return nil, fmt.Errorf("%w: kick_user needs a target", ErrMalformedMessage)
		}
		return coordinator.Kick{From: connID, Target: target}, nil

	default:
		// disconnect is raised by the transport itself, never by the client
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, msg.Type)
	}
}

// flexString reads a JSON string or number as text
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// flexInt reads a JSON number or numeric string holding a whole number
func flexInt(raw json.RawMessage) (int, bool) {
	s := flexString(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n > room.MaxBudget || n < -room.MaxBudget {
			return 0, false
		}
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) > room.MaxBudget {
		return 0, false
	}
	return int(f), true
}
