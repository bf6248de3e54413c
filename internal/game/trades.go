package game

import (
	"context"
	"fmt"

	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/jason-s-yu/tycoon/internal/strategy"
)

// ProposeTrade sends an offer from the local player. An autonomous target
// answers immediately.
func (o *Orchestrator) ProposeTrade(ctx context.Context, offer models.TradeOffer) (*models.TradeOffer, error) {
	o.touch()
	o.mu.Lock()
	if o.snap == nil {
		o.mu.Unlock()
		return nil, ErrNoSnapshot
	}
	me, ok := o.snap.PlayerByUserID(o.localID)
	target, tok := o.snap.PlayerByUserID(offer.TargetPlayerID)
	if !ok || !tok || target.UserID == me.UserID {
		o.mu.Unlock()
		return nil, ErrUnknownPlayer
	}
	for _, id := range offer.OfferProperties {
		if !models.SameAddress(o.holdings.Owner(id), me.Address) {
			o.mu.Unlock()
			return nil, ErrNotOwner
		}
	}
	for _, id := range offer.RequestedProperties {
		if !models.SameAddress(o.holdings.Owner(id), target.Address) {
			o.mu.Unlock()
			return nil, ErrNotOwner
		}
	}
	offer.GameID = o.gameIDLocked()
	offer.PlayerID = me.UserID
	offer.Status = models.TradePending
	o.mu.Unlock()

	if offer.OfferAmount > me.Balance {
		o.emit(Event{Type: EventInsufficientFunds, PlayerID: me.UserID, Message: "not enough cash for this offer"})
		return nil, ErrInsufficientFunds
	}

	created, err := o.createTrade(ctx, me.UserID, offer)
	if err != nil {
		return nil, err
	}
	if target.IsAutonomous() {
		accept, ratio := o.respondToHuman(*created)
		o.log.WithField("player_id", target.UserID).Debugf("answering trade %d at ratio %d", created.ID, ratio)
		if err := o.answerTrade(ctx, target.UserID, *created, accept); err != nil {
			return created, err
		}
	}
	return created, nil
}

// AcceptTrade accepts an incoming offer for the local player.
func (o *Orchestrator) AcceptTrade(ctx context.Context, tradeID int) error {
	o.touch()
	offer, err := o.incoming(o.localID, tradeID)
	if err != nil {
		return err
	}
	return o.answerTrade(ctx, o.localID, offer, true)
}

// DeclineTrade declines an incoming offer for the local player.
func (o *Orchestrator) DeclineTrade(ctx context.Context, tradeID int) error {
	o.touch()
	offer, err := o.incoming(o.localID, tradeID)
	if err != nil {
		return err
	}
	return o.answerTrade(ctx, o.localID, offer, false)
}

// CounterTrade answers an incoming offer with counter. A nil counter mirrors
// the original offer.
func (o *Orchestrator) CounterTrade(ctx context.Context, tradeID int, counter *models.TradeOffer) error {
	o.touch()
	offer, err := o.incoming(o.localID, tradeID)
	if err != nil {
		return err
	}
	c := offer.Counter()
	if counter != nil {
		c = *counter
		c.ID, c.GameID, c.Status = offer.ID, offer.GameID, models.TradeCounter
		c.PlayerID, c.TargetPlayerID = offer.TargetPlayerID, offer.PlayerID
	}
	if err := o.svc.CounterTrade(ctx, o.localID, tradeID, c); err != nil {
		if service.IsStale(err) {
			return nil
		}
		o.emitError(o.localID, "counter offer failed", err)
		return fmt.Errorf("counter trade %d: %w", tradeID, err)
	}
	o.logAction(o.localID, models.ActionTradeCounter, map[string]interface{}{"trade_id": tradeID})
	o.emit(Event{Type: EventTradeCountered, PlayerID: o.localID, Payload: map[string]interface{}{"trade_id": tradeID}})
	return nil
}

// Trades returns the last refreshed open and incoming offers of the local player.
func (o *Orchestrator) Trades() service.TradeLists {
	o.mu.Lock()
	defer o.mu.Unlock()
	return service.TradeLists{
		Initiated: append([]models.TradeOffer(nil), o.trades.Initiated...),
		Incoming:  append([]models.TradeOffer(nil), o.trades.Incoming...),
	}
}

func (o *Orchestrator) incoming(userID, tradeID int) (models.TradeOffer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, t := range o.trades.Incoming {
		if t.ID == tradeID && t.TargetPlayerID == userID {
			return t, nil
		}
	}
	return models.TradeOffer{}, fmt.Errorf("trade %d: %w", tradeID, ErrUnknownTrade)
}

func (o *Orchestrator) createTrade(ctx context.Context, actorID int, offer models.TradeOffer) (*models.TradeOffer, error) {
	created, err := o.svc.CreateTrade(ctx, actorID, offer)
	if err != nil {
		o.emitError(actorID, "trade offer failed", err)
		return nil, fmt.Errorf("create trade: %w", err)
	}
	if created.ID == 0 {
		created = &offer
	}
	o.logAction(actorID, models.ActionTradeCreated, map[string]interface{}{
		"trade_id": created.ID, "target": offer.TargetPlayerID,
		"offer_properties": offer.OfferProperties, "offer_amount": offer.OfferAmount,
		"requested_properties": offer.RequestedProperties, "requested_amount": offer.RequestedAmount,
	})
	o.emit(Event{Type: EventTradeProposed, PlayerID: actorID, Message: "trade offered",
		Payload: map[string]interface{}{"trade_id": created.ID, "target": offer.TargetPlayerID}})
	return created, nil
}

// answerTrade accepts or declines offer as actorID.
func (o *Orchestrator) answerTrade(ctx context.Context, actorID int, offer models.TradeOffer, accept bool) error {
	call, action, ev := o.svc.DeclineTrade, models.ActionTradeDeclined, EventTradeDeclined
	if accept {
		call, action, ev = o.svc.AcceptTrade, models.ActionTradeAccepted, EventTradeAccepted
	}
	if err := call(ctx, actorID, offer.ID); err != nil {
		if service.IsStale(err) {
			return nil
		}
		o.emitError(actorID, string(action)+" failed", err)
		return fmt.Errorf("%s %d: %w", action, offer.ID, err)
	}
	o.mu.Lock()
	o.seenTrades[offer.ID] = true
	o.mu.Unlock()
	o.logAction(actorID, action, map[string]interface{}{"trade_id": offer.ID})
	o.emit(Event{Type: ev, PlayerID: actorID, Payload: map[string]interface{}{"trade_id": offer.ID, "from": offer.PlayerID}})
	if accept {
		o.refresh(ctx)
	}
	return nil
}

// RefreshTrades polls open trades. The local player is notified once per new
// incoming offer; seats played by this client answer theirs.
func (o *Orchestrator) RefreshTrades(ctx context.Context) {
	o.mu.Lock()
	if o.snap == nil || o.finished {
		o.mu.Unlock()
		return
	}
	gameID := o.gameIDLocked()
	var seats []models.Player
	for _, p := range o.snap.Game.Players {
		if p.UserID == o.localID || o.isControlled(p) {
			seats = append(seats, p)
		}
	}
	o.mu.Unlock()

	for _, seat := range seats {
		lists, err := o.svc.Trades(ctx, gameID, seat.UserID)
		if err != nil {
			o.log.WithError(err).WithField("player_id", seat.UserID).Warn("trade refresh")
			continue
		}
		if seat.UserID == o.localID {
			o.notifyIncoming(seat.UserID, lists)
			continue
		}
		o.respondIncoming(ctx, seat, lists.Incoming)
	}
}

func (o *Orchestrator) notifyIncoming(userID int, lists *service.TradeLists) {
	var fresh []models.TradeOffer
	o.mu.Lock()
	o.trades = *lists
	for _, t := range lists.Incoming {
		if t.Status.Terminal() || o.seenTrades[t.ID] {
			continue
		}
		o.seenTrades[t.ID] = true
		fresh = append(fresh, t)
	}
	o.mu.Unlock()
	for _, t := range fresh {
		o.emit(Event{Type: EventTradeIncoming, PlayerID: userID, Message: "new trade offer",
			Payload: map[string]interface{}{"trade_id": t.ID, "from": t.PlayerID}})
	}
}

// respondIncoming answers every unanswered offer made to an autonomous seat.
func (o *Orchestrator) respondIncoming(ctx context.Context, seat models.Player, incoming []models.TradeOffer) {
	for _, t := range incoming {
		if t.Status.Terminal() {
			continue
		}
		o.mu.Lock()
		seen := o.seenTrades[t.ID]
		proposer, _ := o.snap.PlayerByUserID(t.PlayerID)
		h := o.holdings
		o.mu.Unlock()
		if seen {
			continue
		}
		var accept bool
		if proposer.IsAutonomous() {
			accept = strategy.AcceptsTrade(t, seat.Address, h)
		} else {
			accept, _ = o.respondToHuman(t)
		}
		if err := o.answerTrade(ctx, seat.UserID, t, accept); err != nil {
			o.log.WithError(err).WithField("player_id", seat.UserID).Warn("answer trade")
		}
	}
}

// respondToHuman serialises use of the shared random source.
func (o *Orchestrator) respondToHuman(offer models.TradeOffer) (bool, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return strategy.RespondToHumanOffer(offer, o.rng)
}
