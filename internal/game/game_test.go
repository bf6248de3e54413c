package game

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/tycoon/internal/cache"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSink collects notifications.
type mockSink struct {
	mu     sync.Mutex
	events []Event
}

func (m *mockSink) notify(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockSink) count(t EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

type fixedRoller struct {
	mu    sync.Mutex
	faces []int
	i     int
}

func (r *fixedRoller) Die() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.faces[r.i%len(r.faces)]
	r.i++
	return v
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func human(id, position, balance int) models.Player {
	return models.Player{ID: id * 10, UserID: id, Address: fmt.Sprintf("0x%d", id), Username: fmt.Sprintf("player%d", id), Position: position, Balance: balance}
}

func bot(id, position, balance int) models.Player {
	p := human(id, position, balance)
	p.Username = fmt.Sprintf("AI_%d", id)
	return p
}

func owned(p models.Player, ids ...int) []models.GameProperty {
	out := make([]models.GameProperty, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.GameProperty{ID: 100 + id, GameID: 7, Address: p.Address, PlayerID: p.ID, PropertyID: id})
	}
	return out
}

type testGame struct {
	o    *Orchestrator
	svc  *fakeService
	sink *mockSink
	clk  *testClock
}

// setupTestGame seats players (the first one to move) and loads the first
// snapshot. The local player is user 1 unless cfg says otherwise.
func setupTestGame(t *testing.T, players []models.Player, faces []int, cfg func(c *Config, f *fakeService)) testGame {
	t.Helper()
	clk := &testClock{t: time.Unix(1_700_000_000, 0)}
	start := models.Epoch(clk.now().Unix())
	players[0].TurnStart = &start
	svc := newFakeService(clk.now, players...)
	sink := &mockSink{}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := Config{
		Code:        "GAME1",
		LocalUserID: 1,
		Service:     svc,
		Roller:      &fixedRoller{faces: faces},
		Notify:      sink.notify,
		Logger:      logrus.NewEntry(logger),
		Clock:       clk.now,
		Rand:        rand.New(rand.NewSource(1)),
	}
	if cfg != nil {
		cfg(&c, svc)
	}
	o := New(c)
	require.NoError(t, o.Reconcile(context.Background()))
	return testGame{o: o, svc: svc, sink: sink, clk: clk}
}

func autonomous(c *Config, _ *fakeService) {
	c.LocalUserID = 0
	c.Controls = func(p models.Player) bool { return p.IsAutonomous() }
}

func (tg testGame) seat(userID int) models.Player {
	p, _ := tg.o.Snapshot().PlayerByUserID(userID)
	return p
}

func TestPayJailFineThenRollFree(t *testing.T) {
	jailed := human(1, 10, 200)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	require.NoError(t, tg.o.PayJailFine(ctx))
	me := tg.seat(1)
	assert.Equal(t, 150, me.Balance)
	assert.False(t, me.InJail)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())
	assert.Zero(t, tg.svc.count("EndTurn"))

	out, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.False(t, out.StillInJail)
	req := tg.svc.last("ChangePosition").(service.ChangePositionRequest)
	assert.Equal(t, 13, req.Position)
	assert.Equal(t, 3, req.Rolled)
	assert.False(t, req.IsDouble)
	assert.Equal(t, PhaseAwaitingBuyDecision, tg.o.Phase())
	assert.Equal(t, 1, tg.sink.count(EventBuyPrompt))
}

func TestPayJailFineFromFlagOnly(t *testing.T) {
	jailed := human(1, 38, 200)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	require.NoError(t, tg.o.PayJailFine(ctx))
	me := tg.seat(1)
	assert.Equal(t, 150, me.Balance)
	assert.False(t, me.InJail)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())

	out, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.False(t, out.StillInJail)
	req := tg.svc.last("ChangePosition").(service.ChangePositionRequest)
	assert.Equal(t, 1, req.Position)
	assert.Equal(t, 3, req.Rolled)
	assert.Equal(t, 1, tg.seat(1).Position)
}

func TestAutonomousBuysOrangeCompletion(t *testing.T) {
	ai := bot(1, 12, 1000)
	tg := setupTestGame(t, []models.Player{ai, human(2, 0, 1500)}, []int{3, 4}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = owned(ai, 16, 18)
	})

	require.NoError(t, tg.o.StepAutonomous(context.Background()))

	require.Equal(t, 1, tg.svc.count("BuyProperty"))
	assert.Equal(t, 19, tg.svc.last("BuyProperty").(service.PropertyRequest).PropertyID)
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.Equal(t, 800, tg.seat(1).Balance)
	assert.Equal(t, 2, tg.o.Turn().PlayerID)
}

func TestAutonomousStrategyRunsBeforeRoll(t *testing.T) {
	ai := bot(1, 0, 2000)
	tg := setupTestGame(t, []models.Player{ai, human(2, 0, 1500)}, []int{1, 3}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = owned(ai, 16, 18, 19)
	})

	require.NoError(t, tg.o.StepAutonomous(context.Background()))
	assert.Equal(t, 3, tg.svc.count("Develop"))
	require.NotEmpty(t, tg.svc.order)
	assert.Equal(t, []string{"Develop", "Develop", "Develop", "ChangePosition"}, tg.svc.order[:4])
}

func TestAutonomousStaleBuyEndsTurn(t *testing.T) {
	ai := bot(1, 12, 1000)
	tg := setupTestGame(t, []models.Player{ai, human(2, 0, 1500)}, []int{3, 4}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = owned(ai, 16, 18)
		f.failWith["BuyProperty"] = &service.APIError{Status: http.StatusConflict, Message: "property already owned"}
	})

	require.NoError(t, tg.o.StepAutonomous(context.Background()))
	assert.Equal(t, 1, tg.svc.count("BuyProperty"))
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.Equal(t, 2, tg.o.Turn().PlayerID)
}

func TestAutonomousProposesAgainNextTurn(t *testing.T) {
	ai := bot(1, 0, 5000)
	other := human(2, 0, 1500)
	tg := setupTestGame(t, []models.Player{ai, other}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = append(owned(ai, 16, 18), owned(other, 19)...)
	})
	ctx := context.Background()

	tg.o.tradePass(ctx, 1)
	tg.o.tradePass(ctx, 1)
	require.Equal(t, 1, tg.svc.count("CreateTrade"))
	offer := tg.svc.last("CreateTrade").(models.TradeOffer)
	assert.Equal(t, 2, offer.TargetPlayerID)
	assert.Equal(t, []int{19}, offer.RequestedProperties)

	tg.clk.advance(3 * time.Minute)
	tg.svc.update(func(f *fakeService) {
		start := models.Epoch(tg.clk.now().Unix())
		f.seat(1).TurnStart = &start
	})
	require.NoError(t, tg.o.Reconcile(ctx))

	tg.o.tradePass(ctx, 1)
	assert.Equal(t, 2, tg.svc.count("CreateTrade"))
}

func TestFailedProposalIsRetried(t *testing.T) {
	ai := bot(1, 0, 5000)
	other := human(2, 0, 1500)
	tg := setupTestGame(t, []models.Player{ai, other}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = append(owned(ai, 16, 18), owned(other, 19)...)
		f.failWith["CreateTrade"] = &service.APIError{Status: http.StatusBadGateway, Message: "upstream"}
	})
	ctx := context.Background()

	tg.o.tradePass(ctx, 1)
	tg.svc.update(func(f *fakeService) { delete(f.failWith, "CreateTrade") })
	tg.o.tradePass(ctx, 1)
	tg.o.tradePass(ctx, 1)
	assert.Equal(t, 2, tg.svc.count("CreateTrade"))
}

func TestTwoPlayerTimeoutEndsTurnOnce(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	tg.svc.update(func(f *fakeService) {
		two := 2
		f.game.NextPlayerID = &two
		started := models.Epoch(tg.clk.now().Add(-125 * time.Second).Unix())
		f.seat(2).TurnStart = &started
		f.holdTurn = true
	})
	require.NoError(t, tg.o.Reconcile(ctx))

	for i := 0; i < 3; i++ {
		tg.o.Tick(ctx, tg.clk.now())
		tg.clk.advance(time.Second)
	}
	require.Equal(t, 1, tg.svc.count("EndTurn"))
	req := tg.svc.last("EndTurn").(service.EndTurnRequest)
	assert.Equal(t, 2, req.UserID)
	assert.True(t, req.TimedOut)
	assert.Zero(t, tg.svc.count("RecordTimeout"))
	assert.Equal(t, 1, tg.sink.count(EventTurnTimeout))
}

func TestMultiPlayerTimeoutRecordsStrike(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500), human(3, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	tg.svc.update(func(f *fakeService) {
		two := 2
		f.game.NextPlayerID = &two
		started := models.Epoch(tg.clk.now().Add(-121 * time.Second).Unix())
		f.seat(2).TurnStart = &started
	})
	require.NoError(t, tg.o.Reconcile(ctx))

	tg.o.Tick(ctx, tg.clk.now())
	tg.o.Tick(ctx, tg.clk.now())

	require.Equal(t, 1, tg.svc.count("RecordTimeout"))
	req := tg.svc.last("RecordTimeout").(service.VoteRequest)
	assert.Equal(t, 1, req.UserID)
	assert.Equal(t, 2, req.TargetUserID)
	assert.Zero(t, tg.svc.count("EndTurn"))
	assert.Equal(t, 1, tg.sink.count(EventVoteAvailable))
	require.Len(t, tg.o.VoteablePlayers(), 1)

	res, err := tg.o.VoteToRemove(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RequiredVotes)
	_, err = tg.o.VoteToRemove(ctx, 3)
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestTurnBudgetFreezesAfterRoll(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	tg.clk.advance(20 * time.Second)
	_, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingBuyDecision, tg.o.Phase())

	tg.clk.advance(200 * time.Second)
	assert.Equal(t, 100*time.Second, tg.o.TurnRemaining(tg.clk.now()))
	assert.True(t, tg.o.View().TimerFrozen)

	// The budget is frozen; only the inactivity timer ends the idle turn.
	tg.o.Tick(ctx, tg.clk.now())
	assert.Zero(t, tg.sink.count(EventTurnTimeout))
	require.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.False(t, tg.svc.last("EndTurn").(service.EndTurnRequest).TimedOut)
}

func TestEndTurnIsIdempotent(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, func(_ *Config, f *fakeService) {
		f.holdTurn = true
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, tg.o.EndTurn(ctx))
		}()
	}
	wg.Wait()
	require.NoError(t, tg.o.EndTurn(ctx))

	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.True(t, tg.o.Turn().Ended)
	assert.Equal(t, LockNone, tg.o.LockHeld())
}

func TestStaleEndTurnIsDropped(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, func(_ *Config, f *fakeService) {
		f.failWith["EndTurn"] = &service.APIError{Status: 409, Message: "Not your turn"}
	})
	require.NoError(t, tg.o.EndTurn(context.Background()))
	assert.Zero(t, tg.sink.count(EventError))
	assert.Zero(t, tg.sink.count(EventTurnEnded))
}

func TestActionLock(t *testing.T) {
	var l ActionLock
	require.True(t, l.TryAcquire(LockRoll))
	assert.False(t, l.TryAcquire(LockEnd))
	assert.False(t, l.TryAcquire(LockRoll))
	assert.Equal(t, LockRoll, l.Held())
	l.Release()
	assert.True(t, l.TryAcquire(LockEnd))
	assert.False(t, l.TryAcquire(LockRoll))
	l.Release()
	assert.Equal(t, LockNone, l.Held())
	assert.False(t, l.TryAcquire(LockNone))
}

func TestRollRejectedWhileEnding(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, nil)
	require.True(t, tg.o.lock.TryAcquire(LockEnd))

	_, err := tg.o.Roll(context.Background())
	assert.ErrorIs(t, err, ErrActionLocked)
	assert.Zero(t, tg.svc.count("ChangePosition"))
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())

	tg.o.lock.Release()
	_, err = tg.o.Roll(context.Background())
	assert.NoError(t, err)
}

func TestRollOutOfTurn(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(2, 0, 1500), human(1, 0, 1500)}, []int{1, 2}, nil)
	_, err := tg.o.Roll(context.Background())
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Zero(t, tg.svc.count("ChangePosition"))
}

func TestDoublesBankThenMove(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{2, 2, 1, 2}, nil)
	ctx := context.Background()

	out, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.True(t, out.Banked)
	assert.Equal(t, 4, tg.o.Turn().PendingRoll)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())
	assert.Zero(t, tg.svc.count("ChangePosition"))
	assert.Zero(t, tg.svc.count("EndTurn"))
	assert.Equal(t, 1, tg.sink.count(EventDoubles))

	out, err = tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.False(t, out.Banked)
	req := tg.svc.last("ChangePosition").(service.ChangePositionRequest)
	assert.Equal(t, 7, req.Position)
	assert.Equal(t, 7, req.Rolled)
	// Chance is not for sale: the turn ends on its own.
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.Equal(t, 2, tg.o.Turn().PlayerID)
}

func TestRollingTwelveRerolls(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{6, 6}, nil)
	out, err := tg.o.Roll(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Reroll)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())
	assert.Zero(t, tg.svc.count("ChangePosition"))

	tg2 := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{6, 6}, func(c *Config, _ *fakeService) {
		c.Rules = DefaultRules()
		c.Rules.RerollOnTwelve = false
	})
	out, err = tg2.o.Roll(context.Background())
	require.NoError(t, err)
	assert.True(t, out.Banked)
	assert.Equal(t, 12, tg2.o.Turn().PendingRoll)
}

func TestJailRollWithoutDoublesRequiresChoice(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{3, 4}, nil)
	ctx := context.Background()

	out, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.True(t, out.StillInJail)
	assert.Equal(t, PhaseJailChoiceRequired, tg.o.Phase())
	assert.Equal(t, 10, tg.svc.last("ChangePosition").(service.ChangePositionRequest).Position)
	assert.Zero(t, tg.svc.count("EndTurn"))

	choices := tg.o.View().Jail
	assert.True(t, choices.MustChoose)
	assert.True(t, choices.CanPay)
	assert.True(t, choices.CanStay)
	assert.False(t, choices.CanUseCard)
	assert.False(t, choices.CanRoll)

	_, err = tg.o.Roll(ctx)
	assert.ErrorIs(t, err, ErrWrongPhase)
	assert.ErrorIs(t, tg.o.UseJailCard(ctx), ErrNoJailCard)

	require.NoError(t, tg.o.StayInJail(ctx))
	assert.Equal(t, 1, tg.svc.count("StayInJail"))
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
}

func TestJailDoublesFreeAndMove(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{3, 3}, nil)

	out, err := tg.o.Roll(context.Background())
	require.NoError(t, err)
	assert.False(t, out.Banked)
	assert.False(t, out.StillInJail)
	req := tg.svc.last("ChangePosition").(service.ChangePositionRequest)
	assert.Equal(t, 16, req.Position)
	assert.True(t, req.IsDouble)
	assert.False(t, tg.seat(1).InJail)
	assert.Equal(t, 1, tg.sink.count(EventJailFreed))
	assert.Equal(t, PhaseAwaitingBuyDecision, tg.o.Phase())
}

func TestJailCardAfterFailedRollLetsPlayerRoll(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	jailed.CommunityChestJailCard = 1
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	out, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	require.True(t, out.StillInJail)
	require.NoError(t, tg.o.UseJailCard(ctx))
	assert.Equal(t, service.CommunityChestJailCard, tg.svc.last("UseJailCard").(service.JailRequest).CardType)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())
	assert.Zero(t, tg.svc.count("EndTurn"))
	assert.Equal(t, 1, tg.o.Turn().PlayerID)

	out, err = tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.False(t, out.StillInJail)
	assert.Equal(t, 13, tg.svc.last("ChangePosition").(service.ChangePositionRequest).Position)
	assert.Zero(t, tg.svc.count("EndTurn"))
}

func TestPayJailFineAfterFailedRollLetsPlayerRoll(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	_, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	require.Equal(t, PhaseJailChoiceRequired, tg.o.Phase())
	require.NoError(t, tg.o.PayJailFine(ctx))
	assert.Equal(t, 1450, tg.seat(1).Balance)
	assert.Equal(t, PhaseAwaitingRoll, tg.o.Phase())
	assert.Zero(t, tg.svc.count("EndTurn"))

	_, err = tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, tg.svc.count("ChangePosition"))
	assert.Equal(t, 13, tg.seat(1).Position)
	assert.Equal(t, PhaseAwaitingBuyDecision, tg.o.Phase())
}

func TestStayInJailEndsTurn(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	_, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	require.NoError(t, tg.o.StayInJail(ctx))
	assert.Equal(t, 1, tg.svc.count("StayInJail"))
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.Equal(t, 2, tg.o.Turn().PlayerID)
}

func TestAutonomousPaysOutAfterFailedRollAndMoves(t *testing.T) {
	ai := bot(1, 10, 100)
	ai.InJail = true
	tg := setupTestGame(t, []models.Player{ai, human(2, 0, 1500)}, []int{1, 2}, autonomous)

	require.NoError(t, tg.o.StepAutonomous(context.Background()))

	assert.Equal(t, 1, tg.svc.count("PayToLeaveJail"))
	assert.Zero(t, tg.svc.count("StayInJail"))
	assert.Equal(t, 2, tg.svc.count("ChangePosition"))
	assert.Equal(t, 13, tg.seat(1).Position)
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
}

func TestJailExitsTakeTheActionLock(t *testing.T) {
	jailed := human(1, 10, 1500)
	jailed.InJail = true
	jailed.ChanceJailCard = 1
	tg := setupTestGame(t, []models.Player{jailed, human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	require.True(t, tg.o.lock.TryAcquire(LockEnd))
	assert.ErrorIs(t, tg.o.PayJailFine(ctx), ErrActionLocked)
	assert.ErrorIs(t, tg.o.UseJailCard(ctx), ErrActionLocked)
	tg.o.lock.Release()

	_, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	require.True(t, tg.o.lock.TryAcquire(LockRoll))
	assert.ErrorIs(t, tg.o.StayInJail(ctx), ErrActionLocked)
	tg.o.lock.Release()

	assert.Zero(t, tg.svc.count("PayToLeaveJail"))
	assert.Zero(t, tg.svc.count("UseJailCard"))
	assert.Zero(t, tg.svc.count("StayInJail"))
	assert.Equal(t, PhaseJailChoiceRequired, tg.o.Phase())
}

func TestLocalRejectionsSkipService(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 35, 50), human(2, 0, 1500)}, []int{1, 3}, nil)
	ctx := context.Background()

	_, err := tg.o.Roll(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseAwaitingBuyDecision, tg.o.Phase())
	assert.Equal(t, 1, tg.sink.count(EventInsufficientFunds))
	prompt := tg.o.View().BuyPrompt
	require.NotNil(t, prompt)
	assert.Equal(t, 39, prompt.PropertyID)
	assert.False(t, prompt.Affordable)

	assert.ErrorIs(t, tg.o.Buy(ctx), ErrInsufficientFunds)
	assert.Zero(t, tg.svc.count("BuyProperty"))
	assert.ErrorIs(t, tg.o.PayJailFine(ctx), ErrNotInJail)
	assert.ErrorIs(t, tg.o.Develop(ctx, 39), ErrNotOwner)

	require.NoError(t, tg.o.SkipBuy(ctx))
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	assert.ErrorIs(t, tg.o.SkipBuy(ctx), ErrNotYourTurn)
}

func TestPropertyActionsGate(t *testing.T) {
	me := human(1, 0, 1500)
	tg := setupTestGame(t, []models.Player{me, human(2, 0, 1500)}, []int{1, 2}, func(_ *Config, f *fakeService) {
		f.props = owned(me, 16, 18)
	})
	ctx := context.Background()

	assert.ErrorIs(t, tg.o.Develop(ctx, 16), ErrNotBuildable)
	assert.ErrorIs(t, tg.o.Unmortgage(ctx, 16), ErrWrongPhase)
	assert.Zero(t, tg.svc.count("Develop"))

	require.NoError(t, tg.o.Mortgage(ctx, 16))
	assert.Equal(t, 1, tg.svc.count("Mortgage"))
	assert.Equal(t, 1590, tg.seat(1).Balance)
	assert.ErrorIs(t, tg.o.Mortgage(ctx, 16), ErrWrongPhase)
	require.NoError(t, tg.o.Unmortgage(ctx, 16))
}

func TestBankruptcyToHumanCreditorRunsOnce(t *testing.T) {
	ai := bot(1, 19, -500)
	creditor := human(2, 0, 1500)
	tg := setupTestGame(t, []models.Player{ai, creditor}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = append(owned(creditor, 19), owned(ai, 1, 3)...)
	})
	ctx := context.Background()

	require.NoError(t, tg.o.resolveDistress(ctx, 1))
	require.NoError(t, tg.o.resolveDistress(ctx, 1))
	require.NoError(t, tg.o.StepAutonomous(ctx))

	assert.Equal(t, 2, tg.svc.count("Mortgage"))
	require.Equal(t, 2, tg.svc.count("TransferProperty"))
	assert.Equal(t, []any{[2]int{101, creditor.ID}, [2]int{103, creditor.ID}}, tg.svc.params["TransferProperty"])
	assert.Zero(t, tg.svc.count("ReturnToBank"))
	assert.Equal(t, 1, tg.svc.count("EndTurn"))
	require.Equal(t, 1, tg.svc.count("Leave"))
	assert.Equal(t, "bankruptcy", tg.svc.last("Leave"))
	assert.Equal(t, 1, tg.sink.count(EventBankrupt))
	_, seated := tg.o.Snapshot().PlayerByUserID(1)
	assert.False(t, seated)
}

func TestBankruptcyToAutonomousCreditorReturnsToBank(t *testing.T) {
	debtor := bot(1, 39, -2000)
	other := bot(2, 0, 1500)
	tg := setupTestGame(t, []models.Player{debtor, other, human(3, 0, 1500)}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = append(owned(other, 39), owned(debtor, 5)...)
	})

	require.NoError(t, tg.o.StepAutonomous(context.Background()))
	assert.Equal(t, 1, tg.svc.count("ReturnToBank"))
	assert.Zero(t, tg.svc.count("TransferProperty"))
	assert.Equal(t, 1, tg.svc.count("Leave"))
}

func TestLiquidationSurvives(t *testing.T) {
	ai := bot(1, 0, -80)
	tg := setupTestGame(t, []models.Player{human(2, 0, 1500), ai}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		props := owned(ai, 16, 18, 19)
		props[2].Development = 2
		f.props = props
	})

	require.NoError(t, tg.o.StepAutonomous(context.Background()))
	assert.Equal(t, 2, tg.svc.count("Downgrade"))
	assert.Zero(t, tg.svc.count("Mortgage"))
	assert.Zero(t, tg.svc.count("Leave"))
	assert.Equal(t, 1, tg.sink.count(EventSurvived))
	assert.Equal(t, 20, tg.seat(1).Balance)
}

func TestReconcileLastIssuedWins(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	tg.svc.update(func(f *fakeService) {
		f.snapshotGate = func(n int) {
			if n == 2 {
				close(started)
				<-release
			}
		}
	})

	slow := make(chan error, 1)
	go func() { slow <- tg.o.Reconcile(ctx) }()
	<-started

	tg.svc.update(func(f *fakeService) { f.seat(1).Balance = 999 })
	require.NoError(t, tg.o.Reconcile(ctx))
	close(release)
	require.NoError(t, <-slow)

	assert.Equal(t, 999, tg.seat(1).Balance)
}

func TestReconcileThrottled(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, nil)
	ctx := context.Background()

	tg.o.ReconcileThrottled(ctx)
	assert.Equal(t, 1, tg.svc.count("Snapshot"))
	tg.clk.advance(3 * time.Second)
	tg.o.ReconcileThrottled(ctx)
	assert.Equal(t, 2, tg.svc.count("Snapshot"))
}

func TestVotedOutStopsSession(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(2, 0, 1500), human(1, 0, 1500), human(3, 0, 1500)}, []int{1, 2}, nil)
	tg.svc.update(func(f *fakeService) { f.game.Players = f.game.Players[:1] })
	require.NoError(t, tg.o.Reconcile(context.Background()))
	assert.Equal(t, 1, tg.sink.count(EventVotedOut))
	assert.True(t, tg.o.Done())
}

func TestFinishByTimeOnce(t *testing.T) {
	leader := human(1, 0, 1500)
	leader.TurnCount = 25
	tg := setupTestGame(t, []models.Player{leader, human(2, 0, 1500)}, []int{1, 2}, func(_ *Config, f *fakeService) {
		minutes := models.FlexInt(30)
		f.game.Duration = &minutes
	})
	ctx := context.Background()
	tg.svc.update(func(f *fakeService) {
		started := tg.clk.now().Add(-29 * time.Minute)
		f.game.StartedAt = &started
	})
	require.NoError(t, tg.o.Reconcile(ctx))

	tg.o.Tick(ctx, tg.clk.now())
	assert.Zero(t, tg.svc.count("FinishByTime"))

	tg.clk.advance(2 * time.Minute)
	tg.o.Tick(ctx, tg.clk.now())
	tg.o.Tick(ctx, tg.clk.now())

	assert.Equal(t, 1, tg.svc.count("FinishByTime"))
	assert.Equal(t, 1, tg.sink.count(EventGameFinished))
	require.NotNil(t, tg.o.View().Finish)
	assert.Equal(t, 1, tg.o.View().Finish.WinnerID)
	assert.True(t, tg.o.Done())
}

func TestVoteablePlayers(t *testing.T) {
	a, b := human(2, 0, 1500), human(3, 0, 1500)
	a.ConsecutiveTimeouts = 2
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), a}, []int{1, 2}, nil)
	assert.Empty(t, tg.o.VoteablePlayers())

	tg = setupTestGame(t, []models.Player{human(1, 0, 1500), a, b}, []int{1, 2}, nil)
	voteable := tg.o.VoteablePlayers()
	require.Len(t, voteable, 1)
	assert.Equal(t, 2, voteable[0].UserID)
}

func TestAutonomousSeatsAnswerTrades(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(2, 0, 1500), bot(1, 0, 1500), bot(3, 0, 1500)}, []int{1, 2}, func(c *Config, f *fakeService) {
		autonomous(c, f)
		f.props = owned(bot(1, 0, 0), 39)
		f.trades[1] = &service.TradeLists{Incoming: []models.TradeOffer{
			{ID: 500, PlayerID: 3, TargetPlayerID: 1, OfferAmount: 400, Status: models.TradePending},
			{ID: 501, PlayerID: 2, TargetPlayerID: 1, OfferAmount: 10, RequestedProperties: []int{39}, Status: models.TradePending},
		}}
	})
	ctx := context.Background()

	tg.o.RefreshTrades(ctx)
	tg.o.RefreshTrades(ctx)

	require.Equal(t, 1, tg.svc.count("AcceptTrade"))
	assert.Equal(t, [2]int{1, 500}, tg.svc.last("AcceptTrade"))
	require.Equal(t, 1, tg.svc.count("DeclineTrade"))
	assert.Equal(t, [2]int{1, 501}, tg.svc.last("DeclineTrade"))
}

func TestIncomingTradeNotifiesOnce(t *testing.T) {
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, func(_ *Config, f *fakeService) {
		f.trades[1] = &service.TradeLists{Incoming: []models.TradeOffer{{ID: 600, PlayerID: 2, TargetPlayerID: 1, OfferAmount: 50}}}
	})
	ctx := context.Background()

	tg.o.RefreshTrades(ctx)
	tg.o.RefreshTrades(ctx)
	assert.Equal(t, 1, tg.sink.count(EventTradeIncoming))
	require.Len(t, tg.o.Trades().Incoming, 1)

	require.NoError(t, tg.o.CounterTrade(ctx, 600, nil))
	counter := tg.svc.last("CounterTrade").(models.TradeOffer)
	assert.Equal(t, 1, counter.PlayerID)
	assert.Equal(t, 50, counter.RequestedAmount)
	assert.Equal(t, models.TradeCounter, counter.Status)

	require.NoError(t, tg.o.AcceptTrade(ctx, 600))
	assert.Equal(t, [2]int{1, 600}, tg.svc.last("AcceptTrade"))
	assert.ErrorIs(t, tg.o.DeclineTrade(ctx, 601), ErrUnknownTrade)
}

func TestProposeTradeToAutonomousPlayer(t *testing.T) {
	me, ai := human(1, 0, 1500), bot(2, 0, 1500)
	tg := setupTestGame(t, []models.Player{me, ai}, []int{1, 2}, func(_ *Config, f *fakeService) {
		f.props = append(owned(me, 1), owned(ai, 3)...)
	})
	ctx := context.Background()

	created, err := tg.o.ProposeTrade(ctx, models.TradeOffer{TargetPlayerID: 2, OfferAmount: 200, RequestedProperties: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, 1, created.PlayerID)
	assert.Equal(t, [2]int{2, created.ID}, tg.svc.last("AcceptTrade"))

	_, err = tg.o.ProposeTrade(ctx, models.TradeOffer{TargetPlayerID: 2, OfferProperties: []int{3}})
	assert.ErrorIs(t, err, ErrNotOwner)
	_, err = tg.o.ProposeTrade(ctx, models.TradeOffer{TargetPlayerID: 2, OfferAmount: 5000})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

type recorder struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (r *recorder) PublishGameAction(_ context.Context, rec cache.GameActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) types() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[string]bool{}
	for _, rec := range r.records {
		out[rec.ActionType] = true
	}
	return out
}

func TestConfirmedActionsArePublished(t *testing.T) {
	rec := &recorder{}
	tg := setupTestGame(t, []models.Player{human(1, 0, 1500), human(2, 0, 1500)}, []int{1, 2}, func(c *Config, _ *fakeService) {
		c.Recorder = rec
	})
	_, err := tg.o.Roll(context.Background())
	require.NoError(t, err)
	require.NoError(t, tg.o.Buy(context.Background()))

	require.Eventually(t, func() bool {
		seen := rec.types()
		return seen["roll"] && seen["move"] && seen["buy"] && seen["end_turn"]
	}, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, r := range rec.records {
		assert.Equal(t, "GAME1", r.GameCode)
		assert.Equal(t, 7, r.GameID)
	}
}

func TestRulesUpdate(t *testing.T) {
	r, err := ParseRules(map[string]interface{}{"turnTimerSec": float64(60), "rerollOnTwelve": false, "jailFine": 75}, DefaultRules())
	require.NoError(t, err)
	assert.Equal(t, 60, r.TurnTimerSec)
	assert.Equal(t, 75, r.JailFine)
	assert.False(t, r.RerollOnTwelve)
	assert.Equal(t, 30, r.InactivitySec)

	_, err = ParseRules(map[string]interface{}{"turnTimerSec": "sixty"}, DefaultRules())
	assert.Error(t, err)
	_, err = ParseRules(map[string]interface{}{"jailFine": -1}, DefaultRules())
	assert.Error(t, err)
	_, err = ParseRules(map[string]interface{}{"rerollOnTwelve": 1}, DefaultRules())
	assert.Error(t, err)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()
	b := New(Config{Code: "B"})
	a := New(Config{Code: "A"})
	assert.True(t, store.Add(b))
	assert.True(t, store.Add(a))
	assert.False(t, store.Add(New(Config{Code: "A"})))

	got, ok := store.Get("A")
	require.True(t, ok)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, []string{"A", "B"}, []string{store.List()[0].Code(), store.List()[1].Code()})
	store.Delete("A")
	_, ok = store.Get("A")
	assert.False(t, ok)
}
