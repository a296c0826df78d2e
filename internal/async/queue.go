package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/recognizer/internal/recognition"
)

// Job is one image waiting for recognition. The queue is in-memory only:
// durable job state belongs to whoever persists results.
type Job struct {
	ID            uuid.UUID
	Image         []byte
	ProviderOrder []string // optional per-job chain override
	SubmittedAt   time.Time
}

// ResultHandler receives every finished job. It runs on a worker goroutine;
// implementations decide what persistence means.
type ResultHandler func(ctx context.Context, job Job, res recognition.Result)

// RecognizerQueue bounds the number of concurrently in-flight recognition
// calls so provider rate limits are respected regardless of how fast uploads
// arrive.
type RecognizerQueue struct {
	svc     *recognition.Service
	handle  ResultHandler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RecognizerQueue)

func WithWorkers(n int) Option {
	return func(q *RecognizerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *RecognizerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(q *RecognizerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func NewRecognizerQueue(svc *recognition.Service, handle ResultHandler, logger *slog.Logger, opts ...Option) *RecognizerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RecognizerQueue{
		svc:     svc,
		handle:  handle,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *RecognizerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res := q.svc.Recognize(ctx, recognition.Request{
						Image:         job.Image,
						ProviderOrder: job.ProviderOrder,
					})
					if q.handle != nil {
						q.handle(ctx, job, res)
					}
					cancel()

					if res.Success {
						q.logger.Info("job processed", "worker_id", workerID, "job_id", job.ID,
							"provider", res.Provider, "needs_review", res.RequiresManualReview)
					} else {
						q.logger.Error("job failed", "worker_id", workerID, "job_id", job.ID,
							"error", res.PrimaryError)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue submits a job, blocking when the buffer is full. Jobs submitted
// after Shutdown are dropped with a warning.
func (q *RecognizerQueue) Enqueue(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return nil
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued job", "job_id", job.ID, "image_bytes", len(job.Image))
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		q.ch <- job
	}
	return nil
}

// Shutdown stops intake and waits for in-flight jobs to drain, up to ctx.
func (q *RecognizerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
