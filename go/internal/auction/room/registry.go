package room

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// JoinRequest carries what a connection sends when it enters the room
type JoinRequest struct {
	ID     string
	Role   Role
	Name   string
	Avatar int
	Code   string
	Budget string
}

// Registry holds the current room code and the ordered roster.
// It is not safe for concurrent use; the coordinator owns it from a single goroutine.
type Registry struct {
	code     string
	roster   []*Participant
	byID     map[string]*Participant
	generate CodeGenerator
}

// NewRegistry creates a registry with a freshly generated room code
func NewRegistry(generate CodeGenerator) *Registry {
	if generate == nil {
		generate = NewCodeGenerator(DefaultCodeDigits, nil)
	}
	r := &Registry{generate: generate}
	r.Reset()
	return r
}

// Code returns the current room code
func (r *Registry) Code() string {
	return r.code
}

// Join validates the request and appends a new participant to the roster
func (r *Registry) Join(req JoinRequest) (Participant, error) {
	if req.ID == "" {
		return Participant{}, ErrMissingIdentity
	}
	if req.Role != RoleTeacher && req.Role != RoleStudent {
		return Participant{}, fmt.Errorf("join %q: %w", req.Role, ErrInvalidRole)
	}
	if req.Role == RoleStudent && req.Code != r.code {
		return Participant{}, ErrRoomCodeMismatch
	}
	if _, exists := r.byID[req.ID]; exists {
		return Participant{}, ErrAlreadyJoined
	}

	p := &Participant{
		ID:     req.ID,
		Name:   strings.TrimSpace(req.Name),
		Avatar: normalizeAvatar(req.Avatar),
		Role:   req.Role,
	}
	if req.Role == RoleStudent {
		p.Budget = ParseBudget(req.Budget)
	}

	r.roster = append(r.roster, p)
	r.byID[p.ID] = p

	log.Debug().
		Str("participant_id", p.ID).
		Str("role", string(p.Role)).
		Int("budget", p.Budget).
		Int("roster_size", len(r.roster)).
		Msg("participant joined")

	return *p, nil
}

// Remove drops a participant; removing an unknown id is a no-op
func (r *Registry) Remove(id string) (Participant, bool) {
	p, exists := r.byID[id]
	if !exists {
		return Participant{}, false
	}
	delete(r.byID, id)
	for i, candidate := range r.roster {
		if candidate.ID == id {
			r.roster = append(r.roster[:i], r.roster[i+1:]...)
			break
		}
	}
	return *p, true
}

// Lookup resolves an id against the current roster
func (r *Registry) Lookup(id string) (Participant, bool) {
	if id == "" {
		return Participant{}, false
	}
	p, exists := r.byID[id]
	if !exists {
		return Participant{}, false
	}
	return *p, true
}

// Debit subtracts amount from a student's budget and returns the new balance
func (r *Registry) Debit(id string, amount int) (int, error) {
	p, exists := r.byID[id]
	if !exists {
		return 0, fmt.Errorf("debit %s: %w", id, ErrNotFound)
	}
	if amount < 0 || amount > p.Budget {
		return p.Budget, fmt.Errorf("debit %d from %d: %w", amount, p.Budget, ErrInvalidDebit)
	}
	p.Budget -= amount
	return p.Budget, nil
}

// Participants returns a copy of the roster in join order
func (r *Registry) Participants() []Participant {
	out := make([]Participant, 0, len(r.roster))
	for _, p := range r.roster {
		out = append(out, *p)
	}
	return out
}

// Len returns the roster size
func (r *Registry) Len() int {
	return len(r.roster)
}

// Reset replaces the whole session: new code and an empty roster
func (r *Registry) Reset() {
	r.code = r.generate()
	r.roster = nil
	r.byID = make(map[string]*Participant)
}
