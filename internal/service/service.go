// Package service is the client side of the authoritative game service.
package service

import (
	"context"

	"github.com/jason-s-yu/tycoon/internal/models"
)

// GameService is every call the turn orchestrator makes against the
// authoritative service. actorID is the user id the call is made for; the
// implementation authenticates as that seat.
type GameService interface {
	Snapshot(ctx context.Context, code string) (*models.Snapshot, error)

	ChangePosition(ctx context.Context, req ChangePositionRequest) (*ChangePositionResult, error)
	EndTurn(ctx context.Context, req EndTurnRequest) error

	BuyProperty(ctx context.Context, req PropertyRequest) error
	Develop(ctx context.Context, req PropertyRequest) error
	Downgrade(ctx context.Context, req PropertyRequest) error
	Mortgage(ctx context.Context, req PropertyRequest) error
	Unmortgage(ctx context.Context, req PropertyRequest) error
	SellToBank(ctx context.Context, req PropertyRequest) error
	TransferProperty(ctx context.Context, actorID, gamePropertyID, gameID, toPlayerID int) error
	ReturnToBank(ctx context.Context, actorID, gamePropertyID, gameID int) error

	CreateTrade(ctx context.Context, actorID int, offer models.TradeOffer) (*models.TradeOffer, error)
	AcceptTrade(ctx context.Context, actorID, tradeID int) error
	DeclineTrade(ctx context.Context, actorID, tradeID int) error
	CounterTrade(ctx context.Context, actorID, tradeID int, offer models.TradeOffer) error
	Trades(ctx context.Context, gameID, userID int) (*TradeLists, error)

	PayToLeaveJail(ctx context.Context, req JailRequest) error
	UseJailCard(ctx context.Context, req JailRequest) error
	StayInJail(ctx context.Context, req JailRequest) error

	RecordTimeout(ctx context.Context, req VoteRequest) error
	VoteToRemove(ctx context.Context, req VoteRequest) (*models.VoteResult, error)
	VoteStatus(ctx context.Context, req VoteRequest) (*models.VoteStatus, error)
	VoteEndByNetWorth(ctx context.Context, req VoteRequest) (*models.NetWorthVote, error)
	EndByNetWorthStatus(ctx context.Context, req VoteRequest) (*models.NetWorthVote, error)

	Leave(ctx context.Context, actorID int, address, code, reason string) error
	FinishByTime(ctx context.Context, actorID, gameID int) (*models.FinishResult, error)
}

// ChangePositionRequest moves a player after a roll.
type ChangePositionRequest struct {
	UserID   int  `json:"user_id"`
	GameID   int  `json:"game_id"`
	Position int  `json:"position"`
	Rolled   int  `json:"rolled"`
	IsDouble bool `json:"is_double"`
}

// ChangePositionResult is the service's answer to a move.
type ChangePositionResult struct {
	StillInJail bool `json:"still_in_jail"`
}

// EndTurnRequest hands the turn to the next player.
type EndTurnRequest struct {
	UserID   int  `json:"user_id"`
	GameID   int  `json:"game_id"`
	TimedOut bool `json:"timed_out,omitempty"`
}

// PropertyRequest targets one board property on behalf of a player.
type PropertyRequest struct {
	GameID     int `json:"game_id"`
	UserID     int `json:"user_id"`
	PropertyID int `json:"property_id"`
}

// JailRequest is a jail action for a player.
type JailRequest struct {
	UserID   int    `json:"user_id"`
	GameID   int    `json:"game_id"`
	CardType string `json:"card_type,omitempty"`
}

// Jail card types accepted by UseJailCard.
const (
	ChanceJailCard         = "chance"
	CommunityChestJailCard = "community_chest"
)

// VoteRequest covers timeout and vote calls. TargetUserID is unused by the net-worth votes.
type VoteRequest struct {
	GameID       int `json:"game_id"`
	UserID       int `json:"user_id,omitempty"`
	TargetUserID int `json:"target_user_id,omitempty"`
}

// TradeLists are the open trades a player has made and received.
type TradeLists struct {
	Initiated []models.TradeOffer
	Incoming  []models.TradeOffer
}
