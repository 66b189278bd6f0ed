package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Priya8975/webhook-receiver/internal/domain"
	"github.com/Priya8975/webhook-receiver/internal/metrics"
)

var (
	ErrPoolStopped = errors.New("worker pool stopped")
	ErrQueueFull   = errors.New("worker queue full")
)

// Dispatcher runs the handlers for one event.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.WebhookEvent) (int, error)
}

// Pool manages a fixed number of worker goroutines that dispatch stored
// webhook events to their handlers.
type Pool struct {
	numWorkers     int
	jobs           chan domain.WebhookEvent
	dispatcher     Dispatcher
	logger         *slog.Logger
	handlerTimeout time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a worker pool with the given number of workers.
func NewPool(numWorkers int, dispatcher Dispatcher, logger *slog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers:     numWorkers,
		jobs:           make(chan domain.WebhookEvent, numWorkers*16),
		dispatcher:     dispatcher,
		logger:         logger,
		handlerTimeout: 30 * time.Second,
	}
}

// Start launches all worker goroutines. They read from the jobs channel
// until it is closed. Cancelling ctx cancels in-flight handlers.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("worker pool started", "num_workers", p.numWorkers)
}

// Submit queues an event without blocking. It fails when the pool is stopped
// or the queue is full. A done ctx does not stop an event that fits.
func (p *Pool) Submit(ctx context.Context, event domain.WebhookEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobs <- event:
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the jobs channel and waits for queued events to drain.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// worker is a single goroutine that processes jobs from the channel.
func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for event := range p.jobs {
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		p.dispatch(ctx, id, event)
	}
}

func (p *Pool) dispatch(ctx context.Context, id int, event domain.WebhookEvent) {
	ctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("webhook handler panicked",
				"worker", id,
				"panic", r,
				"delivery_id", event.DeliveryID,
			)
		}
	}()

	ran, err := p.dispatcher.Dispatch(ctx, event)
	if err != nil {
		p.logger.Warn("dispatch finished with errors",
			"worker", id,
			"error", err,
			"delivery_id", event.DeliveryID,
			"event_type", event.EventType,
		)
		return
	}
	p.logger.Debug("dispatch complete",
		"worker", id,
		"handlers", ran,
		"delivery_id", event.DeliveryID,
	)
}
