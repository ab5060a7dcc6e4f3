package lottery

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper schedules the deadline sweeper on a cron expression instead of a
// bare ticker, so deployments can align sweep frequency with their
// notification SLAs via configuration.
type Sweeper struct {
	engine     *Service
	cron       *cron.Cron
	batchLimit int
}

// NewSweeper parses cronExpr and registers the sweep job; it does not start
// the scheduler. batchLimit bounds each sweep run; a non-positive value
// falls back to storage.MaxBatchSize.
func NewSweeper(engine *Service, cronExpr string, batchLimit int) (*Sweeper, error) {
	c := cron.New()
	s := &Sweeper{engine: engine, cron: c, batchLimit: batchLimit}
	if _, err := c.AddFunc(cronExpr, s.runOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	swept, err := s.engine.RunDeadlineSweep(ctx, time.Now().UTC(), s.batchLimit)
	if err != nil {
		s.engine.log.WithContext(ctx).WithError(err).Error("deadline sweep failed")
		return
	}
	if swept > 0 {
		s.engine.log.WithContext(ctx).WithField("swept", swept).Info("deadline sweep completed")
	}
}

// Start begins the scheduler in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and returns a context that is done once any
// in-flight sweep has finished.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
