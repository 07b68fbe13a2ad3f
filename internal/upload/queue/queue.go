package queue

import (
	"context"
	"sync"

	"github.com/saldotech/saldo/internal/upload/domain"
	"go.uber.org/zap"
)

// Runner drives one upload job to a terminal state. It must not panic
// and must persist its own outcome; the queue only schedules it.
type Runner interface {
	Run(ctx context.Context, uploadID int64)
}

// Queue fans accepted upload ids out to a fixed pool of workers over a
// bounded channel. Enqueue never blocks; when the channel is full the
// submitter gets domain.ErrQueueFull and decides what to tell the client.
type Queue struct {
	log     *zap.Logger
	runner  Runner
	jobs    chan int64
	workers int

	mu     sync.Mutex
	closed bool

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func New(log *zap.Logger, runner Runner, workers, capacity int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		log:     log.Named("upload.queue"),
		runner:  runner,
		jobs:    make(chan int64, capacity),
		workers: workers,
	}
}

// Start launches the worker pool. Ids enqueued before Start sit in the
// channel until a worker picks them up.
func (q *Queue) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work(ctx)
	}
	q.log.Info("upload workers started",
		zap.Int("workers", q.workers),
		zap.Int("capacity", cap(q.jobs)),
	)
}

func (q *Queue) work(ctx context.Context) {
	defer q.wg.Done()
	for id := range q.jobs {
		q.runner.Run(ctx, id)
	}
}

func (q *Queue) Enqueue(uploadID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return domain.ErrQueueFull
	}
	select {
	case q.jobs <- uploadID:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Stop closes the intake and waits for the workers to drain what is
// already queued. When ctx expires first, in-flight jobs are cancelled;
// whatever they persisted last stays in processing for the next sweep.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		q.log.Info("upload workers drained")
		return nil
	case <-ctx.Done():
		if q.cancel != nil {
			q.cancel()
		}
		q.log.Warn("upload workers stopped before draining")
		return ctx.Err()
	}
}
