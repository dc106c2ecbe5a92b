package manager

import (
	"context"
	"math/rand/v2"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TimedManager wraps a Manager and drives RetransmitAll on a timer
// whose period is re-rolled uniformly at random in [minInterval,
// maxInterval] after every tick, so that a fleet of peers started at
// the same moment does not converge on synchronized retransmit bursts.
type TimedManager struct {
	*Manager

	minInterval time.Duration
	maxInterval time.Duration

	cancel context.CancelFunc
	eg     *errgroup.Group
}

// NewTimed wraps m with a jittered retransmit driver and starts it
// immediately. minInterval must be <= maxInterval and both must be
// positive.
func NewTimed(m *Manager, minInterval, maxInterval time.Duration) *TimedManager {
	ctx, cancel := context.WithCancel(context.Background())
	eg, ctx := errgroup.WithContext(ctx)

	tm := &TimedManager{
		Manager:     m,
		minInterval: minInterval,
		maxInterval: maxInterval,
		cancel:      cancel,
		eg:          eg,
	}

	eg.Go(func() error {
		tm.run(ctx)
		return nil
	})
	return tm
}

func (tm *TimedManager) run(ctx context.Context) {
	timer := time.NewTimer(tm.nextInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("manager: timed retransmit driver stopping")
			return
		case <-timer.C:
			tm.RetransmitAll()
			timer.Reset(tm.nextInterval())
		}
	}
}

func (tm *TimedManager) nextInterval() time.Duration {
	if tm.maxInterval <= tm.minInterval {
		return tm.minInterval
	}
	span := tm.maxInterval - tm.minInterval
	return tm.minInterval + time.Duration(rand.Int64N(int64(span)+1))
}

// Stop cancels the retransmit driver, waits for it to exit, and then
// stops the underlying Manager's outbound workers.
func (tm *TimedManager) Stop() {
	tm.cancel()
	_ = tm.eg.Wait()
	tm.Manager.Stop()
}
