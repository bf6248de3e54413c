package game

import (
	"time"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
)

// Phase is where the acting player is within a turn.
type Phase int

const (
	PhaseAwaitingRoll Phase = iota
	PhaseRolling
	PhaseMoving
	PhaseLanded
	PhaseAwaitingBuyDecision
	PhaseTurnCompleting
	// PhaseJailChoiceRequired follows a failed doubles attempt from jail:
	// pay, use a card, or stay.
	PhaseJailChoiceRequired
)

var phaseNames = [...]string{
	"AWAITING_ROLL", "ROLLING", "MOVING", "LANDED",
	"AWAITING_BUY_DECISION", "TURN_COMPLETING", "JAIL_CHOICE_REQUIRED",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "UNKNOWN"
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// TurnState is the local view of the current turn. It is rebuilt from
// scratch whenever reconciliation shows a different turn.
type TurnState struct {
	PlayerID  int
	TurnStart models.Epoch
	Phase     Phase

	Roll        *board.Dice
	Movement    *board.Resolution
	PendingRoll int
	LandedOn    *int

	Rolled      bool // a move was acknowledged this turn
	StrategyRan bool
	Ended       bool // end turn acknowledged

	TimeoutHandled  bool
	FrozenRemaining *time.Duration
	LastActivity    time.Time
}

func newTurnState(playerID int, turnStart models.Epoch, now time.Time) TurnState {
	return TurnState{PlayerID: playerID, TurnStart: turnStart, Phase: PhaseAwaitingRoll, LastActivity: now}
}

// BuyPrompted is true while a purchase decision is pending.
func (t TurnState) BuyPrompted() bool { return t.Phase == PhaseAwaitingBuyDecision }

// JailChoiceRequired is true after a failed doubles attempt from jail.
func (t TurnState) JailChoiceRequired() bool { return t.Phase == PhaseJailChoiceRequired }

// TurnEndScheduled is true once nothing but ending the turn remains.
func (t TurnState) TurnEndScheduled() bool { return t.Phase == PhaseTurnCompleting }

// CanRoll is true when the phase allows a new roll.
func (t TurnState) CanRoll() bool { return t.Phase == PhaseAwaitingRoll && !t.Ended }

func sameTurn(t TurnState, playerID int, turnStart models.Epoch) bool {
	return t.PlayerID == playerID && t.TurnStart == turnStart
}
