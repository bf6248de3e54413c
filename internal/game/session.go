package game

import (
	"context"
	"time"

	"github.com/jason-s-yu/tycoon/internal/service"
)

// tickInterval is the cadence of the wall-clock checks and the autonomous driver.
const tickInterval = time.Second

// Run drives the session until ctx ends or the game is over: periodic and
// push-triggered reconciliation, timer ticks, trade polling and the
// autonomous seats. updates may be nil.
func (o *Orchestrator) Run(ctx context.Context, updates <-chan service.Update) error {
	if err := o.Reconcile(ctx); err != nil {
		o.log.WithError(err).Warn("initial reconcile")
	}

	poll := time.NewTicker(o.rules.PollInterval())
	defer poll.Stop()
	tick := time.NewTicker(tickInterval)
	defer tick.Stop()
	trades := time.NewTicker(o.rules.TradePoll())
	defer trades.Stop()

	o.log.WithField("session_id", o.ID).Info("session started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-poll.C:
			o.ReconcileThrottled(ctx)
		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			o.log.Debugf("push %s", u.Event)
			o.ReconcileThrottled(ctx)
		case <-tick.C:
			o.Tick(ctx, o.now())
			go func() {
				if err := o.StepAutonomous(ctx); err != nil {
					o.log.WithError(err).Warn("autonomous step")
				}
			}()
		case <-trades.C:
			o.RefreshTrades(ctx)
		}
		if o.Done() {
			o.log.Info("session finished")
			return nil
		}
	}
}
