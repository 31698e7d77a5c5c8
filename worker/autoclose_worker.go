package worker

import (
	"context"
	"log"
	"time"

	"samadhan/service"
)

// AutoCloseWorker closes resolved complaints whose citizens never signed off.
// Each pass picks up complaints resolved longer ago than the silence window
// with no dispute under review, and closes them as SYSTEM.
type AutoCloseWorker struct {
	complaints *service.ComplaintService
	interval   time.Duration
	silence    time.Duration
	stopChan   chan struct{}
	running    bool
	cancel     context.CancelFunc
}

// NewAutoCloseWorker creates the auto-close sweeper. silence is how long a
// resolved complaint waits for the citizen before the system closes it.
func NewAutoCloseWorker(complaints *service.ComplaintService, interval, silence time.Duration) *AutoCloseWorker {
	return &AutoCloseWorker{
		complaints: complaints,
		interval:   interval,
		silence:    silence,
		stopChan:   make(chan struct{}),
	}
}

// Start launches the worker goroutine. The first pass runs immediately.
func (w *AutoCloseWorker) Start() {
	if w.running {
		log.Println("[AUTOCLOSE] worker already running")
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	log.Printf("[AUTOCLOSE] worker started (interval: %v, silence window: %v)", w.interval, w.silence)

	go w.run(ctx)
}

// Stop cancels the in-flight pass and stops the worker.
func (w *AutoCloseWorker) Stop() {
	if !w.running {
		return
	}
	close(w.stopChan)
	w.cancel()
	w.running = false
	log.Println("[AUTOCLOSE] worker stopped")
}

func (w *AutoCloseWorker) run(ctx context.Context) {
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

func (w *AutoCloseWorker) sweep(ctx context.Context) {
	start := time.Now()
	closed, err := w.complaints.AutoCloseBatch(ctx, w.silence)
	if err != nil {
		log.Printf("[AUTOCLOSE] sweep failed: %v", err)
		return
	}
	if closed > 0 {
		log.Printf("[AUTOCLOSE] sweep finished in %v: %d complaint(s) closed", time.Since(start), closed)
	}
}
