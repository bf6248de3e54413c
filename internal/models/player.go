package models

import (
	"strings"
)

// Player is one seat in a running game, as reported by the game service.
type Player struct {
	ID                     int    `json:"id,omitempty"` // game_player id
	UserID                 int    `json:"user_id"`
	Address                string `json:"address"`
	Username               string `json:"username"`
	Symbol                 string `json:"symbol,omitempty"`
	Balance                int    `json:"balance"`
	Position               int    `json:"position"`
	TurnOrder              *int   `json:"turn_order"`
	InJail                 bool   `json:"in_jail"`
	InJailRolls            int    `json:"in_jail_rolls"`
	ChanceJailCard         int    `json:"chance_jail_card"`
	CommunityChestJailCard int    `json:"community_chest_jail_card"`
	Rolls                  int    `json:"rolls"`
	Rolled                 *int   `json:"rolled,omitempty"`
	Circle                 int    `json:"circle"`
	TurnStart              *Epoch `json:"turn_start,omitempty"`
	ConsecutiveTimeouts    int    `json:"consecutive_timeouts"`
	TurnCount              int    `json:"turn_count"`
}

// JailCards is the number of get-out-of-jail-free cards of either type.
func (p Player) JailCards() int {
	return p.ChanceJailCard + p.CommunityChestJailCard
}

// IsAutonomous reports whether the seat is played by the computer.
func (p Player) IsAutonomous() bool {
	u := strings.ToLower(p.Username)
	return strings.Contains(u, "ai_") || strings.Contains(u, "bot") || strings.Contains(u, "computer")
}

// SameAddress compares wallet addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
