package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// maxAutonomousSteps bounds one StepAutonomous call; doubles and rerolls
// each take a step.
const maxAutonomousSteps = 16

// StepAutonomous drives the seats this client plays: distressed seats
// liquidate, and the seat to move plays its turn through to end turn.
// Overlapping calls return immediately.
func (o *Orchestrator) StepAutonomous(ctx context.Context) error {
	if !o.aiBusy.CompareAndSwap(false, true) {
		return nil
	}
	defer o.aiBusy.Store(false)

	o.mu.Lock()
	if o.snap == nil || o.finished {
		o.mu.Unlock()
		return nil
	}
	var distressed []int
	for _, p := range o.snap.Game.Players {
		if o.isControlled(p) && p.Balance < 0 {
			distressed = append(distressed, p.UserID)
		}
	}
	o.mu.Unlock()
	for _, id := range distressed {
		if err := o.resolveDistress(ctx, id); err != nil {
			o.log.WithError(err).WithField("player_id", id).Warn("liquidation")
		}
	}

	triedJailExit := false
	for i := 0; i < maxAutonomousSteps; i++ {
		o.mu.Lock()
		if o.snap == nil || o.finished {
			o.mu.Unlock()
			return nil
		}
		cur, ok := o.currentLocked()
		if !ok || !o.isControlled(cur) || o.turn.PlayerID != cur.UserID || o.turn.Ended || o.bankrupting[cur.UserID] {
			o.mu.Unlock()
			return nil
		}
		phase, strategyRan := o.turn.Phase, o.turn.StrategyRan
		o.mu.Unlock()

		var err error
		switch phase {
		case PhaseAwaitingRoll:
			switch {
			case !strategyRan:
				o.runStrategy(ctx, cur.UserID)
			case board.InJail(cur.InJail, cur.Position) && !triedJailExit:
				triedJailExit = true
				o.leaveJailBeforeRoll(ctx, cur)
			default:
				_, err = o.rollAndLand(ctx, cur.UserID)
			}
		case PhaseJailChoiceRequired:
			triedJailExit = true
			err = o.jailChoice(ctx, cur)
		case PhaseAwaitingBuyDecision:
			err = o.decidePurchase(ctx, cur.UserID)
		case PhaseTurnCompleting, PhaseLanded:
			err = o.completeTurn(ctx, cur.UserID)
		default:
			// Rolling or moving: another call owns the turn.
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrActionLocked) || errors.Is(err, ErrNotYourTurn) {
				return nil
			}
			return fmt.Errorf("autonomous turn for %d: %w", cur.UserID, err)
		}
	}
	return nil
}

// runStrategy is the once-per-turn pre-roll pass: redeem mortgages, propose
// trades toward near-complete groups, then build.
func (o *Orchestrator) runStrategy(ctx context.Context, actorID int) {
	o.mu.Lock()
	if o.turn.PlayerID != actorID || o.turn.StrategyRan {
		o.mu.Unlock()
		return
	}
	o.turn.StrategyRan = true
	o.mu.Unlock()

	o.unmortgagePass(ctx, actorID)
	o.tradePass(ctx, actorID)
	o.buildPass(ctx, actorID)
}

func (o *Orchestrator) unmortgagePass(ctx context.Context, actorID int) {
	for i := 0; i < len(board.Squares()); i++ {
		p, ok := o.player(actorID)
		if !ok {
			return
		}
		h, _ := o.holdingsSnapshot()
		sq, ok := strategy.UnmortgageCandidate(p, h)
		if !ok {
			return
		}
		if err := o.propertyAction(ctx, actorID, sq.ID, opUnmortgage); err != nil {
			return
		}
	}
}

func (o *Orchestrator) tradePass(ctx context.Context, actorID int) {
	p, ok := o.player(actorID)
	if !ok {
		return
	}
	h, players := o.holdingsSnapshot()
	for _, offer := range strategy.ProposeTrades(o.gameID(), p, players, h) {
		o.mu.Lock()
		key := fmt.Sprintf("%d>%d:%v", offer.PlayerID, offer.TargetPlayerID, offer.RequestedProperties)
		dup := o.proposed[key]
		target, _ := o.snap.PlayerByUserID(offer.TargetPlayerID)
		o.mu.Unlock()
		if dup {
			continue
		}
		created, err := o.createTrade(ctx, actorID, offer)
		if err != nil {
			continue
		}
		o.mu.Lock()
		o.proposed[key] = true
		o.mu.Unlock()
		// Autonomous counterparties played here decide on the spot; everyone
		// else answers through their own client.
		if target.IsAutonomous() && o.isControlled(target) {
			accept := strategy.AcceptsTrade(*created, target.Address, h)
			if err := o.answerTrade(ctx, target.UserID, *created, accept); err != nil {
				o.log.WithError(err).Warn("autonomous trade answer")
			}
		}
	}
}

// buildPass builds on the first complete group where a house goes up.
func (o *Orchestrator) buildPass(ctx context.Context, actorID int) {
	p, ok := o.player(actorID)
	if !ok {
		return
	}
	h, _ := o.holdingsSnapshot()
	for _, pass := range strategy.BuildPasses(p, h) {
		built := false
		for _, step := range pass {
			if err := o.propertyAction(ctx, actorID, step.PropertyID, opDevelop); err != nil {
				break
			}
			built = true
		}
		if built {
			return
		}
	}
}

// leaveJailBeforeRoll spends a card, or pays when cash is comfortable.
// Otherwise the seat rolls for doubles.
func (o *Orchestrator) leaveJailBeforeRoll(ctx context.Context, p models.Player) {
	var err error
	switch {
	case p.JailCards() > 0:
		err = o.useJailCard(ctx, p.UserID)
	case p.Balance >= o.rules.JailFine+strategy.TradeReserve:
		err = o.payJailFine(ctx, p.UserID)
	}
	if err != nil {
		o.log.WithError(err).WithField("player_id", p.UserID).Debug("jail exit before roll")
	}
}

// jailChoice answers a failed doubles attempt. Paying or spending a card puts
// the seat back to rolling; staying ends the turn.
func (o *Orchestrator) jailChoice(ctx context.Context, p models.Player) error {
	switch {
	case p.JailCards() > 0:
		if err := o.useJailCard(ctx, p.UserID); err == nil {
			return nil
		}
	case p.Balance >= o.rules.JailFine:
		if err := o.payJailFine(ctx, p.UserID); err == nil {
			return nil
		}
	}
	return o.stayInJail(ctx, p.UserID)
}

func (o *Orchestrator) decidePurchase(ctx context.Context, actorID int) error {
	p, sq, err := o.pendingPurchase(actorID)
	if err != nil {
		return err
	}
	h, _ := o.holdingsSnapshot()
	score := strategy.BuyScore(sq, p, h)
	o.log.WithField("player_id", actorID).Debugf("buy score %d for %s", score, sq.Name)
	if strategy.ShouldBuy(score, p.Balance, sq.Price) {
		if err := o.buy(ctx, actorID); err == nil {
			return nil
		}
	}
	return o.skipBuy(actorID)
}

// completeTurn settles any debt before handing the turn on.
func (o *Orchestrator) completeTurn(ctx context.Context, actorID int) error {
	if p, ok := o.player(actorID); ok && p.Balance < 0 {
		if err := o.resolveDistress(ctx, actorID); err != nil {
			return err
		}
		if o.eliminated(actorID) {
			return nil
		}
	}
	o.mu.Lock()
	if o.turn.PlayerID == actorID && o.turn.Phase == PhaseLanded {
		o.turn.Phase = PhaseTurnCompleting
	}
	o.mu.Unlock()
	err := o.endTurn(ctx, actorID, false)
	if err != nil && service.IsTransient(err) {
		// Retried on the next step.
		return nil
	}
	return err
}
