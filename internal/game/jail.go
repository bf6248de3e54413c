package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
)

// JailChoices are the affordances offered to a jailed player.
type JailChoices struct {
	InJail     bool `json:"in_jail"`
	MustChoose bool `json:"must_choose"` // a doubles attempt already failed this turn
	Fine       int  `json:"fine"`
	CanPay     bool `json:"can_pay"`
	CanUseCard bool `json:"can_use_card"`
	CanStay    bool `json:"can_stay"`
	CanRoll    bool `json:"can_roll"`
}

// jailChoicesLocked derives the jail affordances for p. Caller holds mu.
func (o *Orchestrator) jailChoicesLocked(p models.Player) JailChoices {
	c := JailChoices{InJail: p.InJail, Fine: o.rules.JailFine}
	if !p.InJail || o.turn.PlayerID != p.UserID || o.turn.Ended {
		return c
	}
	open := o.turn.Phase == PhaseAwaitingRoll || o.turn.JailChoiceRequired()
	c.MustChoose = o.turn.JailChoiceRequired()
	c.CanPay = open && p.Balance >= o.rules.JailFine
	c.CanUseCard = open && p.JailCards() > 0
	c.CanStay = c.MustChoose
	c.CanRoll = o.turn.Phase == PhaseAwaitingRoll
	return c
}

// jailed validates a jail action for actorID and reports whether it follows a
// failed doubles attempt.
func (o *Orchestrator) jailed(actorID int) (models.Player, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, err := o.actorLocked(actorID)
	if err != nil {
		return p, false, err
	}
	if !p.InJail {
		return p, false, ErrNotInJail
	}
	if o.turn.Ended || (o.turn.Phase != PhaseAwaitingRoll && !o.turn.JailChoiceRequired()) {
		return p, false, ErrWrongPhase
	}
	return p, o.turn.JailChoiceRequired(), nil
}

// PayJailFine pays the fine for the local player.
func (o *Orchestrator) PayJailFine(ctx context.Context) error {
	o.touch()
	return o.payJailFine(ctx, o.localID)
}

// UseJailCard spends a get-out-of-jail-free card, chance first.
func (o *Orchestrator) UseJailCard(ctx context.Context) error {
	o.touch()
	return o.useJailCard(ctx, o.localID)
}

// StayInJail gives up on leaving this turn and ends it.
func (o *Orchestrator) StayInJail(ctx context.Context) error {
	o.touch()
	return o.stayInJail(ctx, o.localID)
}

func (o *Orchestrator) payJailFine(ctx context.Context, actorID int) error {
	p, afterRoll, err := o.jailed(actorID)
	if err != nil {
		return err
	}
	if p.Balance < o.rules.JailFine {
		o.emit(Event{Type: EventInsufficientFunds, PlayerID: actorID, Message: fmt.Sprintf("need %d to pay the fine", o.rules.JailFine)})
		return ErrInsufficientFunds
	}
	if !o.lock.TryAcquire(LockRoll) {
		return ErrActionLocked
	}
	err = o.svc.PayToLeaveJail(ctx, service.JailRequest{UserID: actorID, GameID: o.gameID()})
	o.lock.Release()
	return o.leftJail(ctx, actorID, afterRoll, models.ActionPayJailFine, fmt.Sprintf("paid %d", o.rules.JailFine), err)
}

func (o *Orchestrator) useJailCard(ctx context.Context, actorID int) error {
	p, afterRoll, err := o.jailed(actorID)
	if err != nil {
		return err
	}
	var card string
	switch {
	case p.ChanceJailCard > 0:
		card = service.ChanceJailCard
	case p.CommunityChestJailCard > 0:
		card = service.CommunityChestJailCard
	default:
		o.emit(Event{Type: EventError, PlayerID: actorID, Message: "no get out of jail free card"})
		return ErrNoJailCard
	}
	if !o.lock.TryAcquire(LockRoll) {
		return ErrActionLocked
	}
	err = o.svc.UseJailCard(ctx, service.JailRequest{UserID: actorID, GameID: o.gameID(), CardType: card})
	o.lock.Release()
	return o.leftJail(ctx, actorID, afterRoll, models.ActionUseJailCard, "used a "+card+" card", err)
}

// leftJail finishes a pay or card exit. Either way the player still rolls;
// after a failed doubles attempt the turn goes back to awaiting that roll.
func (o *Orchestrator) leftJail(ctx context.Context, actorID int, afterRoll bool, action models.ActionType, msg string, err error) error {
	if err != nil {
		if service.IsStale(err) {
			o.refresh(ctx)
			return nil
		}
		o.emitError(actorID, "leaving jail failed", err)
		return fmt.Errorf("%s: %w", action, err)
	}
	o.logAction(actorID, action, map[string]interface{}{"after_roll": afterRoll})
	o.emit(Event{Type: EventJailFreed, PlayerID: actorID, Message: msg + ", you may now roll"})
	if afterRoll {
		o.mu.Lock()
		if o.turn.PlayerID == actorID && o.turn.JailChoiceRequired() {
			o.turn.Phase = PhaseAwaitingRoll
		}
		o.mu.Unlock()
	}
	o.refresh(ctx)
	return nil
}

func (o *Orchestrator) stayInJail(ctx context.Context, actorID int) error {
	if _, _, err := o.jailed(actorID); err != nil {
		return err
	}
	if !o.lock.TryAcquire(LockEnd) {
		return ErrActionLocked
	}
	err := o.svc.StayInJail(ctx, service.JailRequest{UserID: actorID, GameID: o.gameID()})
	o.lock.Release()
	if err != nil && !service.IsStale(err) {
		o.emitError(actorID, "stay in jail failed", err)
		return fmt.Errorf("stay in jail: %w", err)
	}
	if err == nil {
		o.logAction(actorID, models.ActionStayInJail, nil)
		o.emit(Event{Type: EventStayedInJail, PlayerID: actorID, Message: "staying in jail"})
	}
	o.mu.Lock()
	if o.turn.PlayerID == actorID {
		o.turn.Phase = PhaseTurnCompleting
	}
	o.mu.Unlock()
	return o.endTurn(ctx, actorID, false)
}
