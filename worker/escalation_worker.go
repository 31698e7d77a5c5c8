package worker

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"samadhan/service"
	"samadhan/telemetry"
)

// EscalationWorker drives the periodic SLA sweep. Overlapping runs would be
// correct (escalation is idempotent per level) but wasteful, so a tick is
// skipped while the previous sweep is still running. Manual triggers bypass
// the skip guard.
type EscalationWorker struct {
	escalations *service.EscalationService
	interval    time.Duration
	stopChan    chan struct{}
	running     bool
	inFlight    atomic.Bool
	cancel      context.CancelFunc
}

// NewEscalationWorker creates the escalation scheduler.
func NewEscalationWorker(escalations *service.EscalationService, interval time.Duration) *EscalationWorker {
	return &EscalationWorker{
		escalations: escalations,
		interval:    interval,
		stopChan:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. The first sweep runs immediately.
func (w *EscalationWorker) Start() {
	if w.running {
		log.Println("[ESCALATION] worker already running")
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	log.Printf("[ESCALATION] worker started (interval: %v)", w.interval)

	go w.run(ctx)
}

// Stop cancels the in-flight sweep and stops the worker.
func (w *EscalationWorker) Stop() {
	if !w.running {
		return
	}
	close(w.stopChan)
	w.cancel()
	w.running = false
	log.Println("[ESCALATION] worker stopped")
}

func (w *EscalationWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-w.stopChan:
			return
		}
	}
}

// sweep runs one scheduled pass over the active set.
func (w *EscalationWorker) sweep(ctx context.Context) {
	if !w.inFlight.CompareAndSwap(false, true) {
		log.Println("[ESCALATION] previous sweep still running, skipping tick")
		return
	}
	defer w.inFlight.Store(false)

	start := time.Now()
	performed, err := w.escalations.RunOnce(ctx, true)
	if err != nil {
		log.Printf("[ESCALATION] sweep failed: %v", err)
		return
	}
	duration := time.Since(start)
	telemetry.RecordSchedulerRun(ctx, duration)
	log.Printf("[ESCALATION] sweep finished in %v: %d escalated", duration, performed)
}

// TriggerNow runs one sweep immediately on the caller's behalf and returns
// the number of escalations performed. It does not touch the tick schedule.
func (w *EscalationWorker) TriggerNow(ctx context.Context) (int, error) {
	log.Println("[ESCALATION] manual sweep triggered")
	return w.escalations.RunOnce(ctx, false)
}
