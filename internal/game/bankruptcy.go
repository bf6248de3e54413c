package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// resolveDistress raises cash for a seat with a negative balance: sell
// houses, then mortgage, then declare bankruptcy. Re-entry for the same
// player while a cascade is running is a no-op; a seat that went bankrupt
// stays marked so later refreshes cannot re-trigger it.
func (o *Orchestrator) resolveDistress(ctx context.Context, userID int) error {
	o.mu.Lock()
	if o.bankrupting[userID] {
		o.mu.Unlock()
		return nil
	}
	o.bankrupting[userID] = true
	o.mu.Unlock()

	eliminated := false
	defer func() {
		if !eliminated {
			o.mu.Lock()
			delete(o.bankrupting, userID)
			o.mu.Unlock()
		}
	}()

	p, ok := o.player(userID)
	if !ok || p.Balance >= 0 {
		return nil
	}
	o.emit(Event{Type: EventLiquidating, PlayerID: userID, Message: fmt.Sprintf("%s is raising cash", p.Username),
		Payload: map[string]interface{}{"balance": p.Balance}})

	h, _ := o.holdingsSnapshot()
	if o.liquidate(ctx, p, strategy.SellHousePlan(h, p.Address), service.GameService.Downgrade) {
		return nil
	}
	p, _ = o.player(userID)
	h, _ = o.holdingsSnapshot()
	if o.liquidate(ctx, p, strategy.MortgagePlan(h, p.Address), service.GameService.Mortgage) {
		return nil
	}

	if err := o.declareBankruptcy(ctx, userID); err != nil {
		return err
	}
	eliminated = true
	return nil
}

// liquidate runs steps until the local estimate of the balance is
// non-negative, then reconciles and reports whether p is solvent.
func (o *Orchestrator) liquidate(ctx context.Context, p models.Player, steps []strategy.LiquidationStep,
	call func(service.GameService, context.Context, service.PropertyRequest) error) bool {
	balance := p.Balance
	gameID := o.gameID()
	for _, step := range steps {
		if balance >= 0 {
			break
		}
		err := call(o.svc, ctx, service.PropertyRequest{GameID: gameID, UserID: p.UserID, PropertyID: step.PropertyID})
		if err != nil {
			o.log.WithError(err).WithField("player_id", p.UserID).Warnf("%s %d", step.Kind, step.PropertyID)
			continue
		}
		balance += step.Raises
		action := models.ActionDowngrade
		if step.Kind == strategy.Mortgage {
			action = models.ActionMortgage
		}
		o.logAction(p.UserID, action, map[string]interface{}{"property_id": step.PropertyID, "liquidation": true})
	}
	o.refresh(ctx)
	after, ok := o.player(p.UserID)
	if ok && after.Balance >= 0 {
		o.emit(Event{Type: EventSurvived, PlayerID: p.UserID, Message: fmt.Sprintf("%s raised enough cash", p.Username)})
		return true
	}
	return false
}

// DeclareBankruptcy gives up the game for the local player.
func (o *Orchestrator) DeclareBankruptcy(ctx context.Context) error {
	o.mu.Lock()
	if o.bankrupting[o.localID] {
		o.mu.Unlock()
		return nil
	}
	o.bankrupting[o.localID] = true
	o.mu.Unlock()
	if err := o.endTurn(ctx, o.localID, false); err != nil {
		o.log.WithError(err).Warn("end turn before bankruptcy")
	}
	if err := o.declareBankruptcy(ctx, o.localID); err != nil {
		o.mu.Lock()
		delete(o.bankrupting, o.localID)
		o.mu.Unlock()
		return err
	}
	return nil
}

// declareBankruptcy hands every holding to the creditor (a human owner of
// the square the debtor stands on) or back to the bank, ends the debtor's
// turn and removes the debtor from the game.
func (o *Orchestrator) declareBankruptcy(ctx context.Context, userID int) error {
	o.mu.Lock()
	if o.snap == nil {
		o.mu.Unlock()
		return ErrNoSnapshot
	}
	debtor, ok := o.snap.PlayerByUserID(userID)
	if !ok {
		o.mu.Unlock()
		return ErrUnknownPlayer
	}
	gameID := o.gameIDLocked()
	owned := o.holdings.OwnedBy(debtor.Address)
	creditor, hasCreditor := o.creditorLocked(debtor)
	creditorPlayerID := 0
	if hasCreditor {
		creditorPlayerID = o.playerRecordIDLocked(creditor)
	}
	o.mu.Unlock()

	log := o.log.WithField("player_id", userID)
	toCreditor := hasCreditor && !creditor.IsAutonomous() && creditorPlayerID != 0

	for _, gp := range owned {
		var err error
		if toCreditor {
			err = o.svc.TransferProperty(ctx, userID, gp.ID, gameID, creditorPlayerID)
		} else {
			err = o.svc.ReturnToBank(ctx, userID, gp.ID, gameID)
		}
		if err != nil {
			log.WithError(err).Warnf("release property %d", gp.PropertyID)
		}
	}

	if err := o.endTurn(ctx, userID, false); err != nil {
		log.WithError(err).Warn("end turn on bankruptcy")
	}
	if err := o.svc.Leave(ctx, userID, debtor.Address, o.code, "bankruptcy"); err != nil && !service.IsStale(err) {
		o.emitError(userID, "leaving the game failed", err)
		return fmt.Errorf("leave after bankruptcy: %w", err)
	}

	payload := map[string]interface{}{"properties": len(owned)}
	msg := debtor.Username + " is bankrupt"
	if toCreditor {
		payload["creditor"] = creditor.UserID
		msg += "; holdings go to " + creditor.Username
	}
	o.logAction(userID, models.ActionBankruptcy, payload)
	o.emit(Event{Type: EventBankrupt, PlayerID: userID, Message: msg, Payload: payload})
	o.refresh(ctx)
	return nil
}

// creditorLocked is the owner of the square the debtor stands on, when that
// is another player. Caller holds mu.
func (o *Orchestrator) creditorLocked(debtor models.Player) (models.Player, bool) {
	owner := o.holdings.Owner(debtor.Position)
	if owner == "" || models.SameAddress(owner, debtor.Address) {
		return models.Player{}, false
	}
	return o.snap.PlayerByAddress(owner)
}

// playerRecordIDLocked finds the game_player id for p, falling back to any
// ownership record that carries it. Caller holds mu.
func (o *Orchestrator) playerRecordIDLocked(p models.Player) int {
	if p.ID != 0 {
		return p.ID
	}
	for _, gp := range o.snap.Properties {
		if gp.PlayerID != 0 && models.SameAddress(gp.Address, p.Address) {
			return gp.PlayerID
		}
	}
	return 0
}

// eliminated reports whether userID went through bankruptcy in this session.
func (o *Orchestrator) eliminated(userID int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap == nil {
		return o.bankrupting[userID]
	}
	_, seated := o.snap.PlayerByUserID(userID)
	return o.bankrupting[userID] || !seated
}
