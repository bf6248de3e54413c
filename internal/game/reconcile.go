package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// Reconcile pulls the authoritative snapshot and replaces the local copy
// wholesale. When fetches overlap, the most recently issued one wins; a
// slower, older response is discarded.
func (o *Orchestrator) Reconcile(ctx context.Context) error {
	o.mu.Lock()
	o.fetchSeq++
	seq := o.fetchSeq
	o.lastTrigger = o.now()
	o.mu.Unlock()

	snap, err := o.svc.Snapshot(ctx, o.code)
	if err != nil {
		return fmt.Errorf("fetch game %s: %w", o.code, err)
	}

	o.mu.Lock()
	if seq < o.appliedSeq {
		o.mu.Unlock()
		return nil
	}
	o.appliedSeq = seq
	events := o.applyLocked(snap)
	o.mu.Unlock()

	o.emit(events...)
	return nil
}

// ReconcileThrottled reconciles unless another pull started within the
// minimum poll gap. Failures are logged and retried on the next trigger.
func (o *Orchestrator) ReconcileThrottled(ctx context.Context) {
	o.mu.Lock()
	recent := !o.lastTrigger.IsZero() && o.now().Sub(o.lastTrigger) < o.rules.MinPollGap()
	o.mu.Unlock()
	if recent {
		return
	}
	if err := o.Reconcile(ctx); err != nil {
		o.log.WithError(err).Warn("reconcile")
	}
}

// refresh is a reconcile after a confirmed mutation. A failure only delays
// the local view until the next poll.
func (o *Orchestrator) refresh(ctx context.Context) {
	if err := o.Reconcile(ctx); err != nil {
		o.log.WithError(err).Warn("refresh after action")
	}
}

// applyLocked installs snap and derives turn changes. Caller holds mu.
func (o *Orchestrator) applyLocked(snap *models.Snapshot) []Event {
	var events []Event
	prev := o.snap
	o.snap = snap
	o.holdings = strategy.NewHoldings(snap.Properties)
	o.lastReconcile = o.now()

	if o.localID != 0 && prev != nil && !o.votedOut {
		_, wasSeated := prev.PlayerByUserID(o.localID)
		_, seated := snap.PlayerByUserID(o.localID)
		if wasSeated && !seated && snap.Game.Status == models.StatusRunning {
			o.votedOut = true
			events = append(events, Event{Type: EventVotedOut, PlayerID: o.localID, Message: "you were removed from the game"})
		}
	}

	if !o.finished && (snap.Game.Status == models.StatusFinished || snap.Game.Status == models.StatusCancelled) {
		o.finished = true
		ev := Event{Type: EventGameFinished, Message: "game over", Payload: map[string]interface{}{"status": string(snap.Game.Status)}}
		if snap.Game.WinnerID != nil {
			ev.PlayerID = *snap.Game.WinnerID
		}
		events = append(events, ev)
	}

	cur, ok := snap.CurrentPlayer()
	if !ok {
		return events
	}
	var start models.Epoch
	if cur.TurnStart != nil {
		start = *cur.TurnStart
	}
	if !sameTurn(o.turn, cur.UserID, start) {
		o.turn = newTurnState(cur.UserID, start, o.now())
		// Offers are de-duplicated within a turn only.
		clear(o.proposed)
		events = append(events, Event{Type: EventTurnStarted, PlayerID: cur.UserID, Message: cur.Username + " to move"})
	}
	return events
}
