package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
)

// Tick runs the wall-clock checks: the turn budget, the post-roll inactivity
// timer and the time-boxed game end. It is polled, never scheduled.
func (o *Orchestrator) Tick(ctx context.Context, now time.Time) {
	o.checkFinishByTime(ctx, now)
	o.checkTurnBudget(ctx, now)
	o.checkInactivity(ctx, now)
}

// TurnRemaining is what is left of the turn budget, frozen once the roll was
// acknowledged.
func (o *Orchestrator) TurnRemaining(now time.Time) time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turnRemainingLocked(now)
}

func (o *Orchestrator) turnRemainingLocked(now time.Time) time.Duration {
	if o.turn.FrozenRemaining != nil {
		return *o.turn.FrozenRemaining
	}
	if o.turn.TurnStart == 0 {
		return o.rules.TurnBudget()
	}
	rem := o.rules.TurnBudget() - now.Sub(o.turn.TurnStart.Time())
	if rem < 0 {
		return 0
	}
	return rem
}

// checkTurnBudget fires once per turn_start. Two-player games end the turn;
// larger games record a strike and open the vote.
func (o *Orchestrator) checkTurnBudget(ctx context.Context, now time.Time) {
	o.mu.Lock()
	if o.snap == nil || o.finished || o.turn.Ended || o.turn.TimeoutHandled ||
		o.turn.FrozenRemaining != nil || o.turn.TurnStart == 0 ||
		o.turnRemainingLocked(now) > 0 {
		o.mu.Unlock()
		return
	}
	cur, ok := o.currentLocked()
	if !ok {
		o.mu.Unlock()
		return
	}
	reporter := o.reporterLocked(cur.UserID)
	twoPlayer := len(o.snap.Game.Players) == 2
	own := cur.UserID == o.localID || o.isControlled(cur)
	if reporter == 0 && !own {
		o.mu.Unlock()
		return
	}
	o.turn.TimeoutHandled = true
	gameID := o.gameIDLocked()
	o.mu.Unlock()

	log := o.log.WithField("player_id", cur.UserID)
	o.emit(Event{Type: EventTurnTimeout, PlayerID: cur.UserID, Message: cur.Username + " ran out of time"})
	o.logAction(cur.UserID, models.ActionTimeout, map[string]interface{}{"two_player": twoPlayer})

	if twoPlayer || reporter == 0 {
		if err := o.endTurn(ctx, cur.UserID, true); err != nil {
			log.WithError(err).Warn("timed out end turn")
		}
		return
	}
	err := o.svc.RecordTimeout(ctx, service.VoteRequest{GameID: gameID, UserID: reporter, TargetUserID: cur.UserID})
	if err != nil {
		log.WithError(err).Warn("record timeout")
		return
	}
	o.refresh(ctx)
	if o.isVoteable(cur.UserID) {
		o.emit(Event{Type: EventVoteAvailable, PlayerID: cur.UserID, Message: "you can vote to remove " + cur.Username})
	}
}

func (o *Orchestrator) isVoteable(userID int) bool {
	for _, p := range o.VoteablePlayers() {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// checkInactivity ends a turn this client plays when nothing happened for the
// inactivity window after rolling.
func (o *Orchestrator) checkInactivity(ctx context.Context, now time.Time) {
	o.mu.Lock()
	if o.snap == nil || o.finished || !o.turn.Rolled || o.turn.Ended ||
		now.Sub(o.turn.LastActivity) < o.rules.Inactivity() {
		o.mu.Unlock()
		return
	}
	cur, ok := o.currentLocked()
	if !ok || cur.UserID != o.turn.PlayerID || (cur.UserID != o.localID && !o.isControlled(cur)) {
		o.mu.Unlock()
		return
	}
	o.turn.LastActivity = now
	o.mu.Unlock()

	o.log.WithField("player_id", cur.UserID).Info("ending idle turn")
	if err := o.endTurn(ctx, cur.UserID, false); err != nil {
		o.log.WithError(err).WithField("player_id", cur.UserID).Warn("idle end turn")
	}
}

// checkFinishByTime closes a time-boxed game exactly once after it runs out.
func (o *Orchestrator) checkFinishByTime(ctx context.Context, now time.Time) {
	o.mu.Lock()
	if o.snap == nil || o.finished || o.finishAsked || o.snap.Game.StartedAt == nil {
		o.mu.Unlock()
		return
	}
	minutes := o.snap.Game.Duration.Int()
	if minutes <= 0 || now.Before(o.snap.Game.StartedAt.Add(time.Duration(minutes)*time.Minute)) {
		o.mu.Unlock()
		return
	}
	actor := o.reporterLocked(0)
	if actor == 0 {
		o.mu.Unlock()
		return
	}
	o.finishAsked = true
	gameID := o.gameIDLocked()
	o.mu.Unlock()

	res, err := o.svc.FinishByTime(ctx, actor, gameID)
	if err != nil {
		o.log.WithError(err).Warn("finish by time")
		return
	}
	valid := res.ValidWin
	if res.WinnerTurnCount > 0 {
		valid = res.WinnerTurnCount >= o.rules.MinWinTurns
	}
	o.mu.Lock()
	o.finish = res
	o.finished = true
	o.mu.Unlock()

	o.logAction(actor, models.ActionFinishByTime, map[string]interface{}{"winner_id": res.WinnerID, "valid_win": valid})
	msg := "time is up"
	if !valid {
		msg = "time is up; the leader played too few turns for the win to count"
	}
	o.emit(Event{Type: EventGameFinished, PlayerID: res.WinnerID, Message: msg,
		Payload: map[string]interface{}{"winner_id": res.WinnerID, "valid_win": valid, "winner_turn_count": res.WinnerTurnCount}})
	o.refresh(ctx)
}
