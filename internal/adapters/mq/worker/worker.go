// Package worker drains queued activity events into the experience ledger.
package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/atomicvault/vaultpulse/internal/domain/leveling"
	"github.com/atomicvault/vaultpulse/internal/domain/model"
	"github.com/atomicvault/vaultpulse/pkg/logger"
	"github.com/atomicvault/vaultpulse/pkg/metrics"
)

const (
	defaultWorkerCount = 4
	shutdownTimeout    = 10 * time.Second
)

// Event is what workers read off the queue.
type Event = model.ActivityEvent

// Recorder applies one activity event to the experience ledger.
type Recorder interface {
	RecordActivity(ctx context.Context, userID string) (leveling.Result, error)
}

// Notifier dispatches the one-shot level-up side effect.
type Notifier interface {
	NotifyLevelUp(ctx context.Context, res leveling.Result)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until its queue channel closes.
type Worker struct {
	queue    Queue
	recorder Recorder
	notifier Notifier
	name     string
	done     chan struct{}
	logger   logger.Logger
}

// NewWorker creates a single worker.
func NewWorker(queue Queue, recorder Recorder, notifier Notifier, name string) *Worker {
	return &Worker{
		queue:    queue,
		recorder: recorder,
		notifier: notifier,
		name:     name,
		done:     make(chan struct{}),
		logger:   logger.Named(name),
	}
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			w.process(ctx, event)
		}
	}
}

func (w *Worker) process(ctx context.Context, event Event) {
	res, err := w.recorder.RecordActivity(ctx, event.UserID)
	if err != nil {
		w.logger.Error(ctx, "failed to record activity",
			logger.String("eventID", event.EventID),
			logger.String("userID", event.UserID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordActivityProcessed()

	if res.LeveledUp {
		metrics.RecordLevelUp()
		w.notifier.NotifyLevelUp(ctx, res)
	}
}

// Pool runs a fixed set of workers over one queue.
type Pool struct {
	workers []*Worker
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPool creates count workers over the queue. A non-positive count falls
// back to the default.
func NewPool(count int, queue Queue, recorder Recorder, notifier Notifier) *Pool {
	if count < 1 {
		count = defaultWorkerCount
	}
	p := &Pool{}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, NewWorker(queue, recorder, notifier, "worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(count)
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Stop cancels the workers and waits for them to finish, bounded by a
// shutdown timeout.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownTimeout):
	}
	metrics.UpdateWorkerCount(0)
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}
