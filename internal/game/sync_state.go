// internal/game/sync_state.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// BuyPrompt is the pending purchase decision.
type BuyPrompt struct {
	PropertyID int    `json:"property_id"`
	Name       string `json:"name"`
	Price      int    `json:"price"`
	Affordable bool   `json:"affordable"`
}

// PlayerView is one seat as the presentation layer shows it.
type PlayerView struct {
	UserID              int    `json:"user_id"`
	Username            string `json:"username"`
	Balance             int    `json:"balance"`
	Position            int    `json:"position"`
	InJail              bool   `json:"in_jail"`
	NetWorth            int    `json:"net_worth"`
	ConsecutiveTimeouts int    `json:"consecutive_timeouts"`
	IsCurrentTurn       bool   `json:"is_current_turn"`
	Autonomous          bool   `json:"autonomous"`
}

// TurnView is everything the presentation layer needs to draw the turn.
type TurnView struct {
	SessionID       uuid.UUID            `json:"session_id"`
	Code            string               `json:"code"`
	GameID          int                  `json:"game_id"`
	Status          models.GameStatus    `json:"status"`
	CurrentPlayerID int                  `json:"current_player_id"`
	Phase           Phase                `json:"phase"`
	ActionLock      string               `json:"action_lock"`
	Roll            *board.Dice          `json:"roll,omitempty"`          // this client's roll
	ObservedRoll    *board.Dice          `json:"observed_roll,omitempty"` // the mover's authoritative total
	Path            []int                `json:"path,omitempty"`
	PendingRoll     int                  `json:"pending_roll"`
	BuyPrompt       *BuyPrompt           `json:"buy_prompt,omitempty"`
	Jail            JailChoices          `json:"jail"`
	TurnRemaining   int                  `json:"turn_remaining_sec"`
	TimerFrozen     bool                 `json:"timer_frozen"`
	Voteable        []PlayerView         `json:"voteable,omitempty"`
	Players         []PlayerView         `json:"players"`
	Finish          *models.FinishResult `json:"finish,omitempty"`
	Finished        bool                 `json:"finished"`
	VotedOut        bool                 `json:"voted_out"`
	LastReconcile   time.Time            `json:"last_reconcile"`
}

// View builds the turn view from the local player's perspective.
func (o *Orchestrator) View() TurnView {
	o.mu.Lock()
	defer o.mu.Unlock()

	v := TurnView{
		SessionID:     o.ID,
		Code:          o.code,
		Phase:         o.turn.Phase,
		ActionLock:    o.lock.Held().String(),
		PendingRoll:   o.turn.PendingRoll,
		TimerFrozen:   o.turn.FrozenRemaining != nil,
		Finished:      o.finished,
		VotedOut:      o.votedOut,
		LastReconcile: o.lastReconcile,
		Finish:        o.finish,
	}
	v.TurnRemaining = int(o.turnRemainingLocked(o.now()).Seconds())
	if o.snap == nil {
		return v
	}
	v.GameID = o.snap.Game.ID
	v.Status = o.snap.Game.Status

	cur, hasCur := o.snap.CurrentPlayer()
	if hasCur {
		v.CurrentPlayerID = cur.UserID
		if cur.Rolled != nil {
			if d, ok := board.TotalToDice(*cur.Rolled); ok {
				v.ObservedRoll = &d
			}
		}
		v.Jail = o.jailChoicesLocked(cur)
	}
	if o.turn.Roll != nil {
		d := *o.turn.Roll
		v.Roll = &d
	}
	if o.turn.Movement != nil {
		v.Path = append([]int(nil), o.turn.Movement.Path...)
	}
	if o.turn.BuyPrompted() && o.turn.LandedOn != nil && hasCur {
		sq := board.SquareAt(*o.turn.LandedOn)
		v.BuyPrompt = &BuyPrompt{PropertyID: sq.ID, Name: sq.Name, Price: sq.Price, Affordable: cur.Balance >= sq.Price}
	}

	for _, p := range o.snap.Game.Players {
		v.Players = append(v.Players, o.playerViewLocked(p, hasCur && p.UserID == cur.UserID))
	}
	for _, p := range o.voteableLocked() {
		v.Voteable = append(v.Voteable, o.playerViewLocked(p, hasCur && p.UserID == cur.UserID))
	}
	return v
}

func (o *Orchestrator) playerViewLocked(p models.Player, current bool) PlayerView {
	return PlayerView{
		UserID:              p.UserID,
		Username:            p.Username,
		Balance:             p.Balance,
		Position:            p.Position,
		InJail:              p.InJail,
		NetWorth:            strategy.NetWorth(p, o.holdings),
		ConsecutiveTimeouts: p.ConsecutiveTimeouts,
		IsCurrentTurn:       current,
		Autonomous:          p.IsAutonomous(),
	}
}
