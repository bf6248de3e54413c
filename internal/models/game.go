package models

import "time"

// GameStatus is the lifecycle state of a game on the service.
type GameStatus string

const (
	StatusWaiting   GameStatus = "WAITING"
	StatusPending   GameStatus = "PENDING"
	StatusRunning   GameStatus = "RUNNING"
	StatusFinished  GameStatus = "FINISHED"
	StatusCancelled GameStatus = "CANCELLED"
)

// Game is the game record returned by the snapshot endpoint.
type Game struct {
	ID              int          `json:"id"`
	Code            string       `json:"code"`
	Mode            string       `json:"mode"`
	CreatorID       int          `json:"creator_id"`
	Status          GameStatus   `json:"status"`
	WinnerID        *int         `json:"winner_id"`
	NumberOfPlayers int          `json:"number_of_players"`
	NextPlayerID    *int         `json:"next_player_id"`
	Duration        *FlexInt     `json:"duration"` // minutes, 0 or absent = untimed
	CreatedAt       *time.Time   `json:"created_at,omitempty"`
	StartedAt       *time.Time   `json:"started_at,omitempty"`
	IsAI            bool         `json:"is_ai"`
	Placements      map[int]int  `json:"placements,omitempty"`
	Settings        GameSettings `json:"settings"`
	Players         []Player     `json:"players"`
	History         []History    `json:"history"`
}

// GameSettings are the table rules chosen at game creation.
type GameSettings struct {
	Auction            FlexInt `json:"auction"`
	Mortgage           FlexInt `json:"mortgage"`
	EvenBuild          FlexInt `json:"even_build"`
	RandomizePlayOrder FlexInt `json:"randomize_play_order"`
	StartingCash       FlexInt `json:"starting_cash"`
}

// History is one line of the service's game log.
type History struct {
	ID           int            `json:"id"`
	GameID       int            `json:"game_id"`
	GamePlayerID int            `json:"game_player_id"`
	Rolled       *int           `json:"rolled"`
	OldPosition  *int           `json:"old_position"`
	NewPosition  int            `json:"new_position"`
	Action       string         `json:"action"`
	Amount       int            `json:"amount"`
	Extra        map[string]any `json:"extra"`
	Comment      *string        `json:"comment"`
	PlayerName   string         `json:"player_name"`
	PlayerSymbol string         `json:"player_symbol"`
}

// Snapshot is everything a reconciliation pull returns. It replaces the local
// copy wholesale.
type Snapshot struct {
	Game       Game           `json:"game"`
	Properties []GameProperty `json:"properties"`
	FetchedAt  time.Time      `json:"fetched_at"`
}

// PlayerByUserID finds a seat by user id.
func (s *Snapshot) PlayerByUserID(id int) (Player, bool) {
	for _, p := range s.Game.Players {
		if p.UserID == id {
			return p, true
		}
	}
	return Player{}, false
}

// PlayerByAddress finds a seat by wallet address.
func (s *Snapshot) PlayerByAddress(addr string) (Player, bool) {
	for _, p := range s.Game.Players {
		if SameAddress(p.Address, addr) {
			return p, true
		}
	}
	return Player{}, false
}

// CurrentPlayer returns the seat whose turn it is.
func (s *Snapshot) CurrentPlayer() (Player, bool) {
	if s.Game.NextPlayerID == nil {
		return Player{}, false
	}
	return s.PlayerByUserID(*s.Game.NextPlayerID)
}
