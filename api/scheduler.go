/*
scheduler.go - Periodic reconciliation

PURPOSE:
  Runs absence.Service.Reconcile on an interval so approved absences roll
  from planned to taken as they come due, and allowances left behind by a
  partial write are repaired without an operator.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on start
  - A failed run is logged and retried at the next tick

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether the scheduler is active (default: true)

USAGE:
  scheduler := NewReconcileScheduler(svc)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: Reconcile endpoint (manual reconciliation)
  - absence/reconcile.go: the rebuild itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/absence"
)

// ReconcileScheduler runs reconciliation on an interval.
type ReconcileScheduler struct {
	Service       *absence.Service
	CheckInterval time.Duration
	Timeout       time.Duration // per run; 0 means no limit
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReconcileScheduler creates a new scheduler.
func NewReconcileScheduler(svc *absence.Service) *ReconcileScheduler {
	return &ReconcileScheduler{
		Service:       svc,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler.
func (rs *ReconcileScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	log := logrus.WithField("component", "scheduler")
	if !rs.Enabled || rs.CheckInterval <= 0 {
		log.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.stop = make(chan struct{})
	rs.ticker = time.NewTicker(rs.CheckInterval)
	rs.wg.Add(1)

	go rs.run()

	log.WithField("interval", rs.CheckInterval.String()).Info("started")
}

// Stop stops the scheduler and waits for a run in progress to finish.
func (rs *ReconcileScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		logrus.WithField("component", "scheduler").Info("stopped")
	}
}

func (rs *ReconcileScheduler) run() {
	defer rs.wg.Done()

	// Run immediately on start
	rs.RunOnce()

	for {
		select {
		case <-rs.ticker.C:
			rs.RunOnce()
		case <-rs.stop:
			return
		}
	}
}

// RunOnce performs a single reconciliation and logs its outcome.
func (rs *ReconcileScheduler) RunOnce() {
	ctx := context.Background()
	if rs.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rs.Timeout)
		defer cancel()
	}

	log := logrus.WithField("component", "scheduler")
	report, err := rs.Service.Reconcile(ctx)
	if err != nil {
		log.WithError(err).Error("reconciliation failed")
		return
	}
	log.WithFields(logrus.Fields{
		"checked":   report.Checked,
		"updated":   len(report.Updated),
		"unchanged": report.Unchanged,
		"skipped":   len(report.Skipped),
	}).Info("reconciliation completed")
}
