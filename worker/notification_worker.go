package worker

import (
	"context"
	"log"
	"time"

	"samadhan/models"
	"samadhan/service"
)

// NotificationWorker drains the dispatch queue and delivers each request.
// Delivery happens here, outside any business transaction, so a slow or
// failing channel never holds a database lock.
type NotificationWorker struct {
	notifier *service.NotificationService
	drain    time.Duration
	stopChan chan struct{}
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNotificationWorker creates the dispatch worker.
func NewNotificationWorker(notifier *service.NotificationService, drain time.Duration) *NotificationWorker {
	return &NotificationWorker{
		notifier: notifier,
		drain:    drain,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *NotificationWorker) Start() {
	if w.running {
		log.Println("[NOTIFY] worker already running")
		return
	}
	w.running = true

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	log.Println("[NOTIFY] worker started")

	go w.run(ctx)
}

// Stop drains what it can within the grace period, then stops the worker.
func (w *NotificationWorker) Stop() {
	if !w.running {
		return
	}
	close(w.stopChan)

	select {
	case <-w.done:
	case <-time.After(w.drain + time.Second):
		log.Println("[NOTIFY] worker did not drain in time")
	}
	w.cancel()
	w.running = false
	log.Println("[NOTIFY] worker stopped")
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case req := <-w.notifier.Queue():
			w.deliver(ctx, req)
		case <-w.stopChan:
			w.drainRemaining()
			return
		}
	}
}

// drainRemaining flushes requests still queued at shutdown, bounded by the
// grace period. Anything left after that is dropped; the queue carries
// awareness alerts, not records.
func (w *NotificationWorker) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), w.drain)
	defer cancel()

	for {
		select {
		case req := <-w.notifier.Queue():
			w.deliver(ctx, req)
		default:
			return
		}
		if ctx.Err() != nil {
			log.Println("[NOTIFY] drain window expired with requests still queued")
			return
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, req *models.NotificationRequest) {
	if err := w.notifier.Deliver(ctx, req); err != nil {
		log.Printf("[NOTIFY] delivery failed for user %d (%s): %v", req.UserID, req.Type, err)
	}
}
