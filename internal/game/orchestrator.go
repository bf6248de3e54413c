// internal/game/orchestrator.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/tycoon/internal/board"
	"github.com/jason-s-yu/tycoon/internal/cache"
	"github.com/jason-s-yu/tycoon/internal/models"
	"github.com/jason-s-yu/tycoon/internal/service"
	"github.com/jason-s-yu/tycoon/internal/strategy"
	"github.com/sirupsen/logrus"
)

// ActionRecorder receives every confirmed mutation for the action log.
type ActionRecorder interface {
	PublishGameAction(ctx context.Context, record cache.GameActionRecord) error
}

// Config wires an Orchestrator to its collaborators. Only Code and Service are required.
type Config struct {
	Code string
	// LocalUserID is the human seat driven through the exported actions. Zero
	// for a headless agent.
	LocalUserID int
	// Controls reports whether this client plays p autonomously.
	Controls func(p models.Player) bool

	Service  service.GameService
	Rules    Rules
	Roller   board.Roller
	Recorder ActionRecorder
	Notify   func(ev Event)
	Logger   *logrus.Entry
	Clock    func() time.Time
	Rand     *rand.Rand
}

// Orchestrator owns one game session: the turn phase, the action lock, the
// cached authoritative snapshot and every in-flight marker.
type Orchestrator struct {
	ID uuid.UUID

	code     string
	localID  int
	controls func(models.Player) bool
	svc      service.GameService
	rules    Rules
	roller   board.Roller
	recorder ActionRecorder
	notify   func(Event)
	log      *logrus.Entry
	now      func() time.Time
	rng      *rand.Rand

	lock   ActionLock
	aiBusy atomic.Bool

	mu            sync.Mutex
	snap          *models.Snapshot
	holdings      strategy.Holdings
	turn          TurnState
	fetchSeq      uint64
	appliedSeq    uint64
	lastReconcile time.Time
	lastTrigger   time.Time
	bankrupting   map[int]bool
	seenTrades    map[int]bool
	proposed      map[string]bool
	trades        service.TradeLists
	finishAsked   bool
	finish        *models.FinishResult
	finished      bool
	votedOut      bool
	actionIndex   int
}

// New builds an orchestrator. The first Reconcile loads the game.
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		ID:          uuid.New(),
		code:        cfg.Code,
		localID:     cfg.LocalUserID,
		controls:    cfg.Controls,
		svc:         cfg.Service,
		rules:       cfg.Rules,
		roller:      cfg.Roller,
		recorder:    cfg.Recorder,
		notify:      cfg.Notify,
		log:         cfg.Logger,
		now:         cfg.Clock,
		rng:         cfg.Rand,
		bankrupting: make(map[int]bool),
		seenTrades:  make(map[int]bool),
		proposed:    make(map[string]bool),
	}
	if o.rules == (Rules{}) {
		o.rules = DefaultRules()
	}
	if o.roller == nil {
		o.roller = board.NewRandRoller()
	}
	if o.log == nil {
		o.log = logrus.NewEntry(logrus.StandardLogger())
	}
	o.log = o.log.WithField("game_code", cfg.Code)
	if o.now == nil {
		o.now = time.Now
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.controls == nil {
		o.controls = func(models.Player) bool { return false }
	}
	return o
}

// Code is the game code this session plays.
func (o *Orchestrator) Code() string { return o.code }

// LocalUserID is the seat a human plays through this session, 0 for none.
func (o *Orchestrator) LocalUserID() int { return o.localID }

// Rules returns the active rules.
func (o *Orchestrator) Rules() Rules { return o.rules }

// Done is true once the game finished or the local player was voted out.
func (o *Orchestrator) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finished || o.votedOut
}

// Phase returns the current turn phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turn.Phase
}

// Turn returns a copy of the current turn state.
func (o *Orchestrator) Turn() TurnState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.turn
}

// Snapshot returns the last reconciled snapshot, nil before the first one.
func (o *Orchestrator) Snapshot() *models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap == nil {
		return nil
	}
	cp := *o.snap
	return &cp
}

// LockHeld reports which turn-critical action is in flight.
func (o *Orchestrator) LockHeld() LockKind { return o.lock.Held() }

func (o *Orchestrator) emit(events ...Event) {
	if o.notify == nil {
		return
	}
	for _, ev := range events {
		o.notify(ev)
	}
}

func (o *Orchestrator) emitError(playerID int, msg string, err error) {
	o.log.WithError(err).WithField("player_id", playerID).Warn(msg)
	o.emit(Event{Type: EventError, PlayerID: playerID, Message: msg + ": " + service.Message(err)})
}

// logAction publishes a confirmed mutation to the action log. Never blocks the caller.
func (o *Orchestrator) logAction(actorID int, action models.ActionType, payload map[string]interface{}) {
	if o.recorder == nil {
		return
	}
	o.mu.Lock()
	o.actionIndex++
	gameID := 0
	if o.snap != nil {
		gameID = o.snap.Game.ID
	}
	record := cache.GameActionRecord{
		ID:            uuid.New(),
		GameID:        gameID,
		GameCode:      o.code,
		ActionIndex:   o.actionIndex,
		ActorUserID:   actorID,
		ActionType:    string(action),
		ActionPayload: payload,
		Timestamp:     o.now().UnixMilli(),
	}
	o.mu.Unlock()
	if record.ActionPayload == nil {
		record.ActionPayload = make(map[string]interface{})
	}

	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.recorder.PublishGameAction(ctx, rec); err != nil {
			o.log.WithError(err).Warnf("publish action %d (%s)", rec.ActionIndex, rec.ActionType)
		}
	}(record)
}

// gameIDLocked returns the service id of the game. Caller holds mu.
func (o *Orchestrator) gameIDLocked() int {
	if o.snap == nil {
		return 0
	}
	return o.snap.Game.ID
}

func (o *Orchestrator) gameID() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gameIDLocked()
}

// player returns the cached seat for userID.
func (o *Orchestrator) player(userID int) (models.Player, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.snap == nil {
		return models.Player{}, false
	}
	return o.snap.PlayerByUserID(userID)
}

// currentLocked returns the seat whose turn it is. Caller holds mu.
func (o *Orchestrator) currentLocked() (models.Player, bool) {
	if o.snap == nil {
		return models.Player{}, false
	}
	return o.snap.CurrentPlayer()
}

// actorLocked validates that userID is to move. Caller holds mu.
func (o *Orchestrator) actorLocked(userID int) (models.Player, error) {
	if o.snap == nil {
		return models.Player{}, ErrNoSnapshot
	}
	if o.finished {
		return models.Player{}, ErrGameOver
	}
	cur, ok := o.snap.CurrentPlayer()
	if !ok || userID == 0 || cur.UserID != userID {
		return models.Player{}, ErrNotYourTurn
	}
	return cur, nil
}

// isControlled reports whether p is played autonomously by this client.
func (o *Orchestrator) isControlled(p models.Player) bool {
	return p.UserID != o.localID && o.controls(p)
}

// reporterLocked picks the seat this client speaks for when acting on
// another player's turn. Zero means this client cannot act. Caller holds mu.
func (o *Orchestrator) reporterLocked(exclude int) int {
	if o.localID != 0 && o.localID != exclude {
		if _, ok := o.snap.PlayerByUserID(o.localID); ok {
			return o.localID
		}
	}
	for _, p := range o.snap.Game.Players {
		if p.UserID != exclude && o.isControlled(p) {
			return p.UserID
		}
	}
	return 0
}

// touch records local interaction for the inactivity timer.
func (o *Orchestrator) touch() {
	o.mu.Lock()
	o.turn.LastActivity = o.now()
	o.mu.Unlock()
}
