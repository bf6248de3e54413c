package game

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
)

// fakeService is an in-memory game service that applies the calls the
// orchestrator makes the way the real one would, closely enough for turn flow.
type fakeService struct {
	mu    sync.Mutex
	game  models.Game
	props []models.GameProperty
	now   func() time.Time

	calls  map[string]int
	params map[string][]any
	order  []string

	// holdTurn keeps end turn from advancing, like a lagging snapshot.
	holdTurn bool
	failWith map[string]error
	trades   map[int]*service.TradeLists
	nextID   int

	// snapshotGate, when set, is called with the state copy before it is returned.
	snapshotGate func(n int)
}

func newFakeService(now func() time.Time, players ...models.Player) *fakeService {
	g := models.Game{ID: 7, Code: "GAME1", Status: models.StatusRunning, Players: players}
	if len(players) > 0 {
		first := players[0].UserID
		g.NextPlayerID = &first
	}
	return &fakeService{
		game:     g,
		now:      now,
		calls:    make(map[string]int),
		params:   make(map[string][]any),
		failWith: make(map[string]error),
		trades:   make(map[int]*service.TradeLists),
		nextID:   100,
	}
}

func (f *fakeService) record(name string, p any) error {
	f.calls[name]++
	f.params[name] = append(f.params[name], p)
	f.order = append(f.order, name)
	return f.failWith[name]
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeService) last(name string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.params[name]
	if len(ps) == 0 {
		return nil
	}
	return ps[len(ps)-1]
}

func (f *fakeService) seat(userID int) *models.Player {
	for i := range f.game.Players {
		if f.game.Players[i].UserID == userID {
			return &f.game.Players[i]
		}
	}
	return nil
}

func (f *fakeService) prop(propertyID int) *models.GameProperty {
	for i := range f.props {
		if f.props[i].PropertyID == propertyID {
			return &f.props[i]
		}
	}
	return nil
}

// update mutates the fake state under its lock.
func (f *fakeService) update(fn func(f *fakeService)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeService) Snapshot(ctx context.Context, code string) (*models.Snapshot, error) {
	f.mu.Lock()
	f.calls["Snapshot"]++
	n := f.calls["Snapshot"]
	g := f.game
	g.Players = append([]models.Player(nil), f.game.Players...)
	snap := &models.Snapshot{Game: g, Properties: append([]models.GameProperty(nil), f.props...), FetchedAt: f.now()}
	gate := f.snapshotGate
	f.mu.Unlock()
	if gate != nil {
		gate(n)
	}
	return snap, nil
}

func (f *fakeService) ChangePosition(ctx context.Context, req service.ChangePositionRequest) (*service.ChangePositionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ChangePosition", req); err != nil {
		return nil, err
	}
	p := f.seat(req.UserID)
	rolled := req.Rolled
	p.Rolled = &rolled
	if p.InJail && !req.IsDouble {
		p.InJailRolls++
		return &service.ChangePositionResult{StillInJail: true}, nil
	}
	p.InJail = false
	p.Position = req.Position
	return &service.ChangePositionResult{}, nil
}

func (f *fakeService) EndTurn(ctx context.Context, req service.EndTurnRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("EndTurn", req); err != nil {
		return err
	}
	if f.game.NextPlayerID == nil || *f.game.NextPlayerID != req.UserID {
		return &service.APIError{Status: http.StatusBadRequest, Message: "Not your turn"}
	}
	if f.holdTurn {
		return nil
	}
	f.advance()
	return nil
}

func (f *fakeService) advance() {
	for i, p := range f.game.Players {
		if p.UserID != *f.game.NextPlayerID {
			continue
		}
		next := f.game.Players[(i+1)%len(f.game.Players)]
		id := next.UserID
		f.game.NextPlayerID = &id
		start := models.Epoch(f.now().Unix())
		f.seat(id).TurnStart = &start
		return
	}
}

func (f *fakeService) BuyProperty(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("BuyProperty", req); err != nil {
		return err
	}
	p := f.seat(req.UserID)
	p.Balance -= board.SquareAt(req.PropertyID).Price
	f.nextID++
	f.props = append(f.props, models.GameProperty{ID: f.nextID, GameID: f.game.ID, Address: p.Address, PlayerID: p.ID, PropertyID: req.PropertyID})
	return nil
}

func (f *fakeService) Develop(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Develop", req); err != nil {
		return err
	}
	f.prop(req.PropertyID).Development++
	f.seat(req.UserID).Balance -= board.SquareAt(req.PropertyID).CostOfHouse
	return nil
}

func (f *fakeService) Downgrade(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Downgrade", req); err != nil {
		return err
	}
	f.prop(req.PropertyID).Development--
	f.seat(req.UserID).Balance += board.SquareAt(req.PropertyID).CostOfHouse / 2
	return nil
}

func (f *fakeService) Mortgage(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Mortgage", req); err != nil {
		return err
	}
	f.prop(req.PropertyID).Mortgaged = true
	f.seat(req.UserID).Balance += board.SquareAt(req.PropertyID).Price / 2
	return nil
}

func (f *fakeService) Unmortgage(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Unmortgage", req); err != nil {
		return err
	}
	f.prop(req.PropertyID).Mortgaged = false
	return nil
}

func (f *fakeService) SellToBank(ctx context.Context, req service.PropertyRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("SellToBank", req)
}

func (f *fakeService) TransferProperty(ctx context.Context, actorID, gamePropertyID, gameID, toPlayerID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("TransferProperty", [2]int{gamePropertyID, toPlayerID}); err != nil {
		return err
	}
	for i := range f.props {
		if f.props[i].ID != gamePropertyID {
			continue
		}
		for _, p := range f.game.Players {
			if p.ID == toPlayerID {
				f.props[i].Address, f.props[i].PlayerID = p.Address, p.ID
			}
		}
	}
	return nil
}

func (f *fakeService) ReturnToBank(ctx context.Context, actorID, gamePropertyID, gameID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("ReturnToBank", gamePropertyID); err != nil {
		return err
	}
	kept := f.props[:0]
	for _, gp := range f.props {
		if gp.ID != gamePropertyID {
			kept = append(kept, gp)
		}
	}
	f.props = kept
	return nil
}

func (f *fakeService) CreateTrade(ctx context.Context, actorID int, offer models.TradeOffer) (*models.TradeOffer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateTrade", offer); err != nil {
		return nil, err
	}
	f.nextID++
	offer.ID = f.nextID
	return &offer, nil
}

func (f *fakeService) AcceptTrade(ctx context.Context, actorID, tradeID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("AcceptTrade", [2]int{actorID, tradeID})
}

func (f *fakeService) DeclineTrade(ctx context.Context, actorID, tradeID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("DeclineTrade", [2]int{actorID, tradeID})
}

func (f *fakeService) CounterTrade(ctx context.Context, actorID, tradeID int, offer models.TradeOffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("CounterTrade", offer)
}

func (f *fakeService) Trades(ctx context.Context, gameID, userID int) (*service.TradeLists, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Trades", userID); err != nil {
		return nil, err
	}
	if l, ok := f.trades[userID]; ok {
		cp := *l
		return &cp, nil
	}
	return &service.TradeLists{}, nil
}

func (f *fakeService) PayToLeaveJail(ctx context.Context, req service.JailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PayToLeaveJail", req); err != nil {
		return err
	}
	p := f.seat(req.UserID)
	p.Balance -= 50
	p.InJail = false
	return nil
}

func (f *fakeService) UseJailCard(ctx context.Context, req service.JailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UseJailCard", req); err != nil {
		return err
	}
	p := f.seat(req.UserID)
	if req.CardType == service.ChanceJailCard {
		p.ChanceJailCard--
	} else {
		p.CommunityChestJailCard--
	}
	p.InJail = false
	return nil
}

func (f *fakeService) StayInJail(ctx context.Context, req service.JailRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record("StayInJail", req)
}

func (f *fakeService) RecordTimeout(ctx context.Context, req service.VoteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("RecordTimeout", req); err != nil {
		return err
	}
	f.seat(req.TargetUserID).ConsecutiveTimeouts++
	return nil
}

func (f *fakeService) VoteToRemove(ctx context.Context, req service.VoteRequest) (*models.VoteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("VoteToRemove", req); err != nil {
		return nil, err
	}
	return &models.VoteResult{VoteCount: 1, RequiredVotes: 2}, nil
}

func (f *fakeService) VoteStatus(ctx context.Context, req service.VoteRequest) (*models.VoteStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.VoteStatus{TargetUserID: req.TargetUserID, VoteCount: 1, RequiredVotes: 2}, f.record("VoteStatus", req)
}

func (f *fakeService) VoteEndByNetWorth(ctx context.Context, req service.VoteRequest) (*models.NetWorthVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.NetWorthVote{VoteCount: 1, RequiredVotes: 2}, f.record("VoteEndByNetWorth", req)
}

func (f *fakeService) EndByNetWorthStatus(ctx context.Context, req service.VoteRequest) (*models.NetWorthVote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &models.NetWorthVote{VoteCount: 1, RequiredVotes: 2}, f.record("EndByNetWorthStatus", req)
}

func (f *fakeService) Leave(ctx context.Context, actorID int, address, code, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Leave", reason); err != nil {
		return err
	}
	kept := f.game.Players[:0]
	for _, p := range f.game.Players {
		if p.UserID != actorID {
			kept = append(kept, p)
		}
	}
	f.game.Players = kept
	return nil
}

func (f *fakeService) FinishByTime(ctx context.Context, actorID, gameID int) (*models.FinishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FinishByTime", actorID); err != nil {
		return nil, err
	}
	f.game.Status = models.StatusFinished
	winner := f.game.Players[0]
	f.game.WinnerID = &winner.UserID
	return &models.FinishResult{WinnerID: winner.UserID, ValidWin: true, WinnerTurnCount: winner.TurnCount}, nil
}

var _ service.GameService = (*fakeService)(nil)
