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

// RollOutcome describes what a roll did.
type RollOutcome struct {
	Dice        board.Dice
	Reroll      bool // total of 12 with the reroll rule on; nothing moved
	Banked      bool // doubles outside jail; roll again
	StillInJail bool
	Stale       bool // the turn moved on before the service accepted the move
	Movement    board.Resolution
	Phase       Phase
}

var errMoveFailed = errors.New("change position failed")

// Roll rolls for the local player. Landing on anything that cannot be bought
// ends the turn.
func (o *Orchestrator) Roll(ctx context.Context) (RollOutcome, error) {
	out, err := o.rollAndLand(ctx, o.localID)
	if err != nil {
		return out, err
	}
	if out.Phase == PhaseTurnCompleting {
		if err := o.endTurn(ctx, o.localID, false); err != nil {
			return out, err
		}
	}
	return out, nil
}

// rollAndLand rolls for actorID, moves, reconciles and evaluates the landing
// square. It leaves the turn in AwaitingRoll (reroll or doubles),
// JailChoiceRequired, AwaitingBuyDecision or TurnCompleting.
func (o *Orchestrator) rollAndLand(ctx context.Context, actorID int) (RollOutcome, error) {
	out, err := o.roll(ctx, actorID)
	if errors.Is(err, errMoveFailed) {
		// Never leave the game stuck on a half-applied move.
		if endErr := o.endTurn(ctx, actorID, false); endErr != nil {
			o.log.WithError(endErr).WithField("player_id", actorID).Warn("forced end turn after failed move")
		}
		return out, err
	}
	if err != nil || out.Phase != PhaseLanded {
		return out, err
	}
	o.refresh(ctx)
	out.Phase = o.land(actorID)
	return out, nil
}

// roll holds the ROLL lock for the whole dice-to-acknowledged-move sequence.
func (o *Orchestrator) roll(ctx context.Context, actorID int) (RollOutcome, error) {
	o.mu.Lock()
	cur, err := o.actorLocked(actorID)
	if err != nil {
		o.mu.Unlock()
		return RollOutcome{}, err
	}
	if !o.turn.CanRoll() {
		o.mu.Unlock()
		return RollOutcome{Phase: o.turn.Phase}, ErrWrongPhase
	}
	if o.isControlled(cur) && !o.turn.StrategyRan {
		o.mu.Unlock()
		return RollOutcome{Phase: o.turn.Phase}, ErrWrongPhase
	}
	if !o.lock.TryAcquire(LockRoll) {
		o.mu.Unlock()
		return RollOutcome{Phase: o.turn.Phase}, ErrActionLocked
	}
	defer o.lock.Release()
	o.turn.Phase = PhaseRolling
	o.turn.LastActivity = o.now()
	turnStart := o.turn.TurnStart
	gameID := o.gameIDLocked()
	o.mu.Unlock()

	dice, ok := board.RollDice(o.roller, o.rules.RerollOnTwelve)
	if !ok {
		o.mu.Lock()
		o.turn.Phase = PhaseAwaitingRoll
		o.mu.Unlock()
		o.emit(Event{Type: EventReroll, PlayerID: actorID, Message: "rolled 12, roll again"})
		return RollOutcome{Reroll: true, Phase: PhaseAwaitingRoll}, nil
	}

	o.mu.Lock()
	res := board.Resolve(cur.Position, board.InJail(cur.InJail, cur.Position), o.turn.PendingRoll, dice)
	o.turn.Roll = &dice
	o.turn.Movement = &res
	if res.Banked {
		o.turn.PendingRoll = res.PendingRoll
		o.turn.Phase = PhaseAwaitingRoll
		o.mu.Unlock()
		o.logAction(actorID, models.ActionRoll, map[string]interface{}{"die1": dice.Die1, "die2": dice.Die2, "pending": res.PendingRoll})
		o.emit(Event{Type: EventDoubles, PlayerID: actorID, Message: fmt.Sprintf("doubles! %d banked, roll again", res.PendingRoll),
			Payload: map[string]interface{}{"die1": dice.Die1, "die2": dice.Die2, "pending_roll": res.PendingRoll}})
		return RollOutcome{Dice: dice, Banked: true, Movement: res, Phase: PhaseAwaitingRoll}, nil
	}
	o.turn.Phase = PhaseMoving
	o.mu.Unlock()

	o.logAction(actorID, models.ActionRoll, map[string]interface{}{"die1": dice.Die1, "die2": dice.Die2})
	o.emit(Event{Type: EventRolled, PlayerID: actorID, Message: fmt.Sprintf("rolled %d + %d", dice.Die1, dice.Die2),
		Payload: map[string]interface{}{"die1": dice.Die1, "die2": dice.Die2, "total": dice.Total}})

	pips := res.Steps
	if res.StillInJail {
		pips = dice.Total
	}
	ack, err := o.svc.ChangePosition(ctx, service.ChangePositionRequest{
		UserID: actorID, GameID: gameID, Position: res.Position, Rolled: pips, IsDouble: res.Double,
	})
	if err != nil {
		if service.IsStale(err) {
			o.log.WithField("player_id", actorID).Debug("move rejected as stale")
			o.mu.Lock()
			if sameTurn(o.turn, actorID, turnStart) {
				o.turn.Phase = PhaseAwaitingRoll
			}
			phase := o.turn.Phase
			o.mu.Unlock()
			return RollOutcome{Dice: dice, Stale: true, Movement: res, Phase: phase}, nil
		}
		o.emitError(actorID, "move failed", err)
		return RollOutcome{Dice: dice, Movement: res, Phase: PhaseMoving}, fmt.Errorf("%w: %w", errMoveFailed, err)
	}

	out := RollOutcome{Dice: dice, Movement: res}
	o.mu.Lock()
	if sameTurn(o.turn, actorID, turnStart) {
		o.turn.Rolled = true
		o.turn.LastActivity = o.now()
		o.freezeBudgetLocked()
		if ack.StillInJail || res.StillInJail {
			o.turn.Phase = PhaseJailChoiceRequired
			out.StillInJail = true
		} else {
			o.turn.PendingRoll = 0
			pos := res.Position
			o.turn.LandedOn = &pos
			o.turn.Phase = PhaseLanded
		}
		out.Phase = o.turn.Phase
	}
	o.mu.Unlock()

	o.logAction(actorID, models.ActionMove, map[string]interface{}{"from": res.From, "to": res.Position, "steps": pips})
	if out.StillInJail {
		o.emit(Event{Type: EventJailChoice, PlayerID: actorID, Message: "no doubles: pay, use a card or stay"})
	} else {
		if res.Double && res.From == board.JailPosition {
			o.emit(Event{Type: EventJailFreed, PlayerID: actorID, Message: "doubles! out of jail"})
		}
		o.emit(Event{Type: EventMoved, PlayerID: actorID, Message: fmt.Sprintf("moved to %s", board.SquareAt(res.Position).Name),
			Payload: map[string]interface{}{"from": res.From, "to": res.Position, "path": res.Path}})
	}
	return out, nil
}

// freezeBudgetLocked stops the turn budget at its current remaining value. Caller holds mu.
func (o *Orchestrator) freezeBudgetLocked() {
	if o.turn.FrozenRemaining != nil {
		return
	}
	rem := o.rules.TurnBudget()
	if o.turn.TurnStart != 0 {
		rem -= o.now().Sub(o.turn.TurnStart.Time())
	}
	if rem < 0 {
		rem = 0
	}
	o.turn.FrozenRemaining = &rem
}

// land evaluates the square the actor now stands on and returns the next phase.
func (o *Orchestrator) land(actorID int) Phase {
	o.mu.Lock()
	if o.turn.PlayerID != actorID || o.turn.Phase != PhaseLanded {
		phase := o.turn.Phase
		o.mu.Unlock()
		return phase
	}
	p, _ := o.snap.PlayerByUserID(actorID)
	pos := p.Position
	if o.turn.LandedOn != nil {
		pos = *o.turn.LandedOn
	}
	sq := board.SquareAt(pos)
	if !sq.Type.Purchasable() || !o.holdings.IsUnowned(sq.ID) {
		o.turn.Phase = PhaseTurnCompleting
		o.mu.Unlock()
		return PhaseTurnCompleting
	}
	o.turn.LandedOn = &pos
	o.turn.Phase = PhaseAwaitingBuyDecision
	o.mu.Unlock()

	affordable := p.Balance >= sq.Price
	o.emit(Event{Type: EventBuyPrompt, PlayerID: actorID, Message: fmt.Sprintf("buy %s for %d?", sq.Name, sq.Price),
		Payload: map[string]interface{}{"property_id": sq.ID, "price": sq.Price, "affordable": affordable}})
	if !affordable {
		o.emit(Event{Type: EventInsufficientFunds, PlayerID: actorID, Message: fmt.Sprintf("not enough cash for %s", sq.Name)})
	}
	return PhaseAwaitingBuyDecision
}

// Buy purchases the square the local player is deciding on and ends the turn.
func (o *Orchestrator) Buy(ctx context.Context) error {
	o.touch()
	if err := o.buy(ctx, o.localID); err != nil {
		return err
	}
	return o.endTurn(ctx, o.localID, false)
}

// SkipBuy declines the purchase and ends the turn.
func (o *Orchestrator) SkipBuy(ctx context.Context) error {
	o.touch()
	if err := o.skipBuy(o.localID); err != nil {
		return err
	}
	return o.endTurn(ctx, o.localID, false)
}

func (o *Orchestrator) pendingPurchase(actorID int) (models.Player, board.Square, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	p, err := o.actorLocked(actorID)
	if err != nil {
		return p, board.Square{}, err
	}
	if !o.turn.BuyPrompted() || o.turn.LandedOn == nil {
		return p, board.Square{}, ErrWrongPhase
	}
	return p, board.SquareAt(*o.turn.LandedOn), nil
}

func (o *Orchestrator) buy(ctx context.Context, actorID int) error {
	p, sq, err := o.pendingPurchase(actorID)
	if err != nil {
		return err
	}
	if p.Balance < sq.Price {
		o.emit(Event{Type: EventInsufficientFunds, PlayerID: actorID, Message: fmt.Sprintf("not enough cash for %s", sq.Name)})
		return ErrInsufficientFunds
	}
	err = o.svc.BuyProperty(ctx, service.PropertyRequest{GameID: o.gameID(), UserID: actorID, PropertyID: sq.ID})
	if err != nil {
		if service.IsStale(err) {
			// The decision is settled elsewhere; only ending the turn remains.
			o.mu.Lock()
			if o.turn.PlayerID == actorID && o.turn.BuyPrompted() {
				o.turn.Phase = PhaseTurnCompleting
			}
			o.mu.Unlock()
			o.refresh(ctx)
			return nil
		}
		o.emitError(actorID, "purchase failed", err)
		return fmt.Errorf("buy %d: %w", sq.ID, err)
	}
	o.mu.Lock()
	if o.turn.PlayerID == actorID && o.turn.BuyPrompted() {
		o.turn.Phase = PhaseTurnCompleting
	}
	o.mu.Unlock()
	o.logAction(actorID, models.ActionBuy, map[string]interface{}{"property_id": sq.ID, "price": sq.Price})
	o.emit(Event{Type: EventPurchased, PlayerID: actorID, Message: "bought " + sq.Name,
		Payload: map[string]interface{}{"property_id": sq.ID, "price": sq.Price}})
	o.refresh(ctx)
	return nil
}

func (o *Orchestrator) skipBuy(actorID int) error {
	_, sq, err := o.pendingPurchase(actorID)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.turn.Phase = PhaseTurnCompleting
	o.mu.Unlock()
	o.logAction(actorID, models.ActionSkipBuy, map[string]interface{}{"property_id": sq.ID})
	o.emit(Event{Type: EventPurchaseSkipped, PlayerID: actorID, Message: "passed on " + sq.Name})
	return nil
}

// EndTurn ends the local player's turn. Calling it again, or while an end is
// already in flight, does nothing.
func (o *Orchestrator) EndTurn(ctx context.Context) error {
	o.touch()
	return o.endTurn(ctx, o.localID, false)
}

// endTurn asks the service to advance past actorID's turn. It runs at most
// once per turn; a stale rejection means someone else already advanced it.
func (o *Orchestrator) endTurn(ctx context.Context, actorID int, timedOut bool) error {
	o.mu.Lock()
	if o.snap == nil {
		o.mu.Unlock()
		return ErrNoSnapshot
	}
	cur, ok := o.currentLocked()
	if !ok || cur.UserID != actorID || (o.turn.PlayerID == actorID && o.turn.Ended) {
		o.mu.Unlock()
		return nil
	}
	turnStart := o.turn.TurnStart
	gameID := o.gameIDLocked()
	o.mu.Unlock()

	if !o.lock.TryAcquire(LockEnd) {
		if o.lock.Held() == LockEnd {
			return nil
		}
		return ErrActionLocked
	}
	defer o.lock.Release()

	o.mu.Lock()
	if o.turn.PlayerID == actorID && o.turn.Ended {
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	err := o.svc.EndTurn(ctx, service.EndTurnRequest{UserID: actorID, GameID: gameID, TimedOut: timedOut})
	if err != nil && !service.IsStale(err) {
		o.emitError(actorID, "end turn failed", err)
		return fmt.Errorf("end turn: %w", err)
	}

	o.mu.Lock()
	if sameTurn(o.turn, actorID, turnStart) {
		o.turn.Ended = true
		o.freezeBudgetLocked()
	}
	o.mu.Unlock()
	if err == nil {
		o.logAction(actorID, models.ActionEndTurn, map[string]interface{}{"timed_out": timedOut})
		o.emit(Event{Type: EventTurnEnded, PlayerID: actorID, Payload: map[string]interface{}{"timed_out": timedOut}})
	}
	o.refresh(ctx)
	return nil
}

// holdingsSnapshot returns the holdings and player list under lock.
func (o *Orchestrator) holdingsSnapshot() (strategy.Holdings, []models.Player) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap == nil {
		return strategy.Holdings{}, nil
	}
	players := append([]models.Player(nil), o.snap.Game.Players...)
	return o.holdings, players
}
