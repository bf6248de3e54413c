package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
)

// twoPlayerVoteStrikes is how many timeouts a player in a two-player game
// must accrue before becoming voteable.
const twoPlayerVoteStrikes = 3

// VoteablePlayers lists the opponents the local player may vote to remove.
func (o *Orchestrator) VoteablePlayers() []models.Player {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.voteableLocked()
}

func (o *Orchestrator) voteableLocked() []models.Player {
	if o.snap == nil {
		return nil
	}
	minStrikes := 1
	if len(o.snap.Game.Players) == 2 {
		minStrikes = twoPlayerVoteStrikes
	}
	var out []models.Player
	for _, p := range o.snap.Game.Players {
		if p.UserID != o.localID && p.ConsecutiveTimeouts >= minStrikes {
			out = append(out, p)
		}
	}
	return out
}

// VoteToRemove casts the local player's vote against targetUserID.
func (o *Orchestrator) VoteToRemove(ctx context.Context, targetUserID int) (*models.VoteResult, error) {
	o.touch()
	voteable := false
	for _, p := range o.VoteablePlayers() {
		voteable = voteable || p.UserID == targetUserID
	}
	if !voteable {
		return nil, ErrUnknownPlayer
	}
	res, err := o.svc.VoteToRemove(ctx, service.VoteRequest{GameID: o.gameID(), UserID: o.localID, TargetUserID: targetUserID})
	if err != nil {
		o.emitError(o.localID, "vote failed", err)
		return nil, fmt.Errorf("vote to remove %d: %w", targetUserID, err)
	}
	o.logAction(o.localID, models.ActionVote, map[string]interface{}{"target": targetUserID, "removed": res.Removed})
	o.emit(Event{Type: EventVoteCast, PlayerID: o.localID, Message: fmt.Sprintf("%d/%d votes", res.VoteCount, res.RequiredVotes),
		Payload: map[string]interface{}{"target": targetUserID, "removed": res.Removed}})
	if res.Removed {
		o.refresh(ctx)
	}
	return res, nil
}

// VoteStatus reports the votes cast against targetUserID.
func (o *Orchestrator) VoteStatus(ctx context.Context, targetUserID int) (*models.VoteStatus, error) {
	st, err := o.svc.VoteStatus(ctx, service.VoteRequest{GameID: o.gameID(), TargetUserID: targetUserID})
	if err != nil {
		return nil, fmt.Errorf("vote status %d: %w", targetUserID, err)
	}
	return st, nil
}

// VoteEndByNetWorth votes to end the game and rank players by net worth.
func (o *Orchestrator) VoteEndByNetWorth(ctx context.Context) (*models.NetWorthVote, error) {
	o.touch()
	res, err := o.svc.VoteEndByNetWorth(ctx, service.VoteRequest{GameID: o.gameID(), UserID: o.localID})
	if err != nil {
		o.emitError(o.localID, "vote failed", err)
		return nil, fmt.Errorf("vote end by net worth: %w", err)
	}
	o.logAction(o.localID, models.ActionVote, map[string]interface{}{"end_by_net_worth": true, "all_voted": res.AllVoted})
	if res.AllVoted {
		o.refresh(ctx)
	}
	return res, nil
}

// EndByNetWorthStatus reports the vote to end by net worth.
func (o *Orchestrator) EndByNetWorthStatus(ctx context.Context) (*models.NetWorthVote, error) {
	res, err := o.svc.EndByNetWorthStatus(ctx, service.VoteRequest{GameID: o.gameID()})
	if err != nil {
		return nil, fmt.Errorf("end by net worth status: %w", err)
	}
	return res, nil
}
