package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// propertyOp is one of the owner-initiated property calls.
type propertyOp struct {
	action models.ActionType
	call   func(service.GameService, context.Context, service.PropertyRequest) error
	check  func(o *Orchestrator, p models.Player, gp models.GameProperty, sq board.Square) error
}

var (
	opDevelop = propertyOp{
		action: models.ActionDevelop,
		call:   service.GameService.Develop,
		check: func(o *Orchestrator, p models.Player, gp models.GameProperty, sq board.Square) error {
			if !sq.Group.IsStreet() || gp.Development >= 5 || !strategy.IsComplete(o.holdings, sq.Group, p.Address) {
				return ErrNotBuildable
			}
			if p.Balance < sq.CostOfHouse {
				return ErrInsufficientFunds
			}
			return nil
		},
	}
	opDowngrade = propertyOp{
		action: models.ActionDowngrade,
		call:   service.GameService.Downgrade,
		check: func(_ *Orchestrator, _ models.Player, gp models.GameProperty, _ board.Square) error {
			if gp.Development == 0 {
				return ErrNotBuildable
			}
			return nil
		},
	}
	opMortgage = propertyOp{
		action: models.ActionMortgage,
		call:   service.GameService.Mortgage,
		check: func(_ *Orchestrator, _ models.Player, gp models.GameProperty, _ board.Square) error {
			if gp.Mortgaged || gp.Development > 0 {
				return ErrWrongPhase
			}
			return nil
		},
	}
	opUnmortgage = propertyOp{
		action: models.ActionUnmortgage,
		call:   service.GameService.Unmortgage,
		check: func(_ *Orchestrator, p models.Player, gp models.GameProperty, sq board.Square) error {
			if !gp.Mortgaged {
				return ErrWrongPhase
			}
			if p.Balance < strategy.UnmortgageCost(sq.Price) {
				return ErrInsufficientFunds
			}
			return nil
		},
	}
	opSell = propertyOp{
		action: models.ActionSell,
		call:   service.GameService.SellToBank,
		check: func(_ *Orchestrator, _ models.Player, gp models.GameProperty, _ board.Square) error {
			if gp.Development > 0 {
				return ErrNotBuildable
			}
			return nil
		},
	}
)

// Develop adds a house to one of the local player's streets.
func (o *Orchestrator) Develop(ctx context.Context, propertyID int) error {
	return o.propertyAction(ctx, o.localID, propertyID, opDevelop)
}

// Downgrade sells one house back to the bank.
func (o *Orchestrator) Downgrade(ctx context.Context, propertyID int) error {
	return o.propertyAction(ctx, o.localID, propertyID, opDowngrade)
}

// Mortgage mortgages an undeveloped property.
func (o *Orchestrator) Mortgage(ctx context.Context, propertyID int) error {
	return o.propertyAction(ctx, o.localID, propertyID, opMortgage)
}

// Unmortgage redeems a mortgaged property.
func (o *Orchestrator) Unmortgage(ctx context.Context, propertyID int) error {
	return o.propertyAction(ctx, o.localID, propertyID, opUnmortgage)
}

// SellToBank sells an undeveloped property back to the bank.
func (o *Orchestrator) SellToBank(ctx context.Context, propertyID int) error {
	return o.propertyAction(ctx, o.localID, propertyID, opSell)
}

// propertyAction gates op locally, then performs it and refreshes. Local
// rejections never reach the service.
func (o *Orchestrator) propertyAction(ctx context.Context, actorID, propertyID int, op propertyOp) error {
	if actorID == o.localID {
		o.touch()
	}
	o.mu.Lock()
	if o.snap == nil {
		o.mu.Unlock()
		return ErrNoSnapshot
	}
	if o.finished {
		o.mu.Unlock()
		return ErrGameOver
	}
	p, ok := o.snap.PlayerByUserID(actorID)
	gp, owned := o.holdings.Record(propertyID)
	sq, valid := board.Lookup(propertyID)
	if !ok || !owned || !valid || !models.SameAddress(gp.Address, p.Address) {
		o.mu.Unlock()
		return ErrNotOwner
	}
	err := op.check(o, p, gp, sq)
	gameID := o.gameIDLocked()
	o.mu.Unlock()
	if err != nil {
		if err == ErrInsufficientFunds {
			o.emit(Event{Type: EventInsufficientFunds, PlayerID: actorID, Message: "not enough cash for " + sq.Name})
		}
		return err
	}

	if err := op.call(o.svc, ctx, service.PropertyRequest{GameID: gameID, UserID: actorID, PropertyID: propertyID}); err != nil {
		if service.IsStale(err) {
			o.refresh(ctx)
			return nil
		}
		o.emitError(actorID, string(op.action)+" failed", err)
		return fmt.Errorf("%s %d: %w", op.action, propertyID, err)
	}
	o.logAction(actorID, op.action, map[string]interface{}{"property_id": propertyID})
	o.emit(Event{Type: EventPropertyChanged, PlayerID: actorID, Message: fmt.Sprintf("%s %s", op.action, sq.Name),
		Payload: map[string]interface{}{"property_id": propertyID, "action": string(op.action)}})
	o.refresh(ctx)
	return nil
}
