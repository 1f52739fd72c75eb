package room

import (
	"math"
	"strconv"
	"strings"
)

// Role identifies what a participant is allowed to do in the room
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// ParseRole converts wire input into a Role
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleTeacher:
		return RoleTeacher, true
	case RoleStudent:
		return RoleStudent, true
	default:
		return "", false
	}
}

// Participant is a connected member of the room
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"nickname"`
	Avatar int    `json:"avatar"`
	Role   Role   `json:"role"`
	Budget int    `json:"budget"`
}

// IsTeacher reports whether the participant runs the auction
func (p Participant) IsTeacher() bool {
	return p.Role == RoleTeacher
}

// MaxBudget is the largest budget or bid the room accepts. Sales are stored in
// 32-bit columns.
const MaxBudget = math.MaxInt32

// ParseBudget turns free-form budget input into a non-negative integer.
// Anything that is not a whole number in [0, MaxBudget] becomes 0.
func ParseBudget(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > MaxBudget {
		return 0
	}
	return n
}

// normalizeAvatar keeps avatar selectors positive
func normalizeAvatar(avatar int) int {
	if avatar < 1 {
		return 1
	}
	return avatar
}
