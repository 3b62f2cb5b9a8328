package sync

import (
	"context"
	"time"
)

// Run drives the three background loops until ctx is cancelled: the
// fetch-and-match cycle, the pending announcer, and the approval poller.
// Each loop runs once immediately, then on its interval. The loops are
// isolated: a panic or error in one is logged and that loop simply tries
// again next tick while the others keep going.
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("Sync loops started",
		"fetch_interval", o.opts.Intervals.Fetch,
		"present_interval", o.opts.Intervals.Present,
		"approval_interval", o.opts.Intervals.Approval,
	)

	done := make(chan struct{})

	go func() {
		o.loop(ctx, "fetch", o.opts.Intervals.Fetch, func(ctx context.Context) error {
			_, err := o.RunCycle(ctx)
			return err
		})
		done <- struct{}{}
	}()

	go func() {
		o.loop(ctx, "present", o.opts.Intervals.Present, o.PresentPending)
		done <- struct{}{}
	}()

	go func() {
		o.loop(ctx, "approvals", o.opts.Intervals.Approval, o.PollApprovals)
		done <- struct{}{}
	}()

	for i := 0; i < 3; i++ {
		<-done
	}

	o.logger.Info("Sync loops stopped")
}

// loop runs step once, then every interval, until ctx is cancelled.
func (o *Orchestrator) loop(ctx context.Context, name string, every time.Duration, step func(context.Context) error) {
	if every <= 0 {
		every = 10 * time.Minute
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	o.runStep(ctx, name, step)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.runStep(ctx, name, step)
		}
	}
}

// runStep executes one loop iteration, containing both errors and panics
// so one bad iteration cannot take the loop down.
func (o *Orchestrator) runStep(ctx context.Context, name string, step func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("Loop iteration panicked", "loop", name, "panic", r)
		}
	}()

	if err := step(ctx); err != nil {
		o.logger.Error("Loop iteration failed", "loop", name, "error", err)
	}
}
