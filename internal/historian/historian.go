// internal/historian/historian.go
package historian

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/jason-s-yu/tycoon/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records; Pop returns (nil, nil) on timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists action records.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkGameAbandoned(ctx context.Context, gameID int) error
}

// Config tunes batching and the inactivity sweep.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // idle time until a game is marked abandoned
	SweepEvery time.Duration
	PopTimeout time.Duration
}

// ConfigFromEnv reads HISTORIAN_BATCH_SIZE, HISTORIAN_FLUSH_MS and
// GAME_INACTIVITY_TIMEOUT_SEC.
func ConfigFromEnv() Config {
	return Config{
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
		SweepEvery: time.Minute,
		PopTimeout: 3 * time.Second,
	}
}

// Service moves action records from the queue to the archive and marks games
// abandoned once they stop producing actions.
type Service struct {
	src  Source
	sink Sink
	cfg  Config
	log  *logrus.Entry
	now  func() time.Time

	batchMu      sync.Mutex
	batch        []cache.GameActionRecord
	activityMu   sync.Mutex
	lastActivity map[int]time.Time
}

func New(src Source, sink Sink, cfg Config, log *logrus.Entry) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		src:          src,
		sink:         sink,
		cfg:          cfg,
		log:          log,
		now:          time.Now,
		batch:        make([]cache.GameActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[int]time.Time),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	s.log.Info("historian started")
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	lastFlush := s.now()
	for ctx.Err() == nil {
		rec, err := s.src.Pop(ctx, s.cfg.PopTimeout)
		if err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("pop action")
		}
		if rec != nil {
			s.Append(ctx, *rec)
		}
		if s.now().Sub(lastFlush) >= s.cfg.FlushDelay {
			s.Flush(ctx)
			lastFlush = s.now()
		}
	}
}

// Append adds a record to the batch and flushes once the batch is full.
func (s *Service) Append(ctx context.Context, rec cache.GameActionRecord) {
	s.activityMu.Lock()
	s.lastActivity[rec.GameID] = s.now()
	s.activityMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()
	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch in one transaction. A failed batch is kept
// for the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}
	batchCopy := make([]cache.GameActionRecord, len(s.batch))
	copy(batchCopy, s.batch)

	if err := s.sink.InsertActions(ctx, batchCopy); err != nil {
		s.log.WithError(err).WithField("records", len(batchCopy)).Error("flush actions")
		return
	}
	s.batch = s.batch[:0]
	s.log.WithField("records", len(batchCopy)).Debug("flushed actions")
}

// Pending is the number of records waiting for a flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}

func (s *Service) inactivityLoop(ctx context.Context) {
	every := s.cfg.SweepEvery
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx, s.now())
		}
	}
}

// Sweep marks every game idle for longer than the inactivity window as
// abandoned and stops tracking it.
func (s *Service) Sweep(ctx context.Context, now time.Time) {
	s.activityMu.Lock()
	var idle []int
	for gameID, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity {
			idle = append(idle, gameID)
			delete(s.lastActivity, gameID)
		}
	}
	s.activityMu.Unlock()

	for _, gameID := range idle {
		log := s.log.WithField("game_id", gameID)
		if err := s.sink.MarkGameAbandoned(ctx, gameID); err != nil {
			log.WithError(err).Warn("mark game abandoned")
			continue
		}
		log.Info("marked game abandoned due to inactivity")
	}
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
