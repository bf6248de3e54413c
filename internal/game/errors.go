package game

import "errors"

// Local rejections. None of these cause a service round-trip.
var (
	ErrActionLocked      = errors.New("another turn action is in progress")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrWrongPhase        = errors.New("action not allowed in the current phase")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoJailCard        = errors.New("no get out of jail free card")
	ErrNotInJail         = errors.New("player is not in jail")
	ErrNotOwner          = errors.New("property not owned by player")
	ErrNotBuildable      = errors.New("property cannot be developed")
	ErrGameOver          = errors.New("game is over")
	ErrNoSnapshot        = errors.New("game state not loaded yet")
	ErrUnknownPlayer     = errors.New("no such player in this game")
	ErrUnknownTrade      = errors.New("no such open trade")
)
