package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/Receipt-and-Invoice-Digitizer/internal/common"
)

// ProcessFunc handles one job. Errors are logged by the pool, not retried.
type ProcessFunc func(ctx context.Context, job Job) error

type Option func(*config)

type config struct {
	workers    int
	queueSize  int
	jobTimeout time.Duration
}

func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

func WithJobTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.jobTimeout = d
		}
	}
}

// WorkerPool is a bounded in-process queue. Enqueue never blocks; a full
// queue reports busy so callers can surface backpressure.
type WorkerPool struct {
	jobs    chan Job
	process ProcessFunc
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ Queue = (*WorkerPool)(nil)

func NewWorkerPool(process ProcessFunc, logger *slog.Logger, opts ...Option) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := config{workers: 2, queueSize: 64, jobTimeout: 5 * time.Minute}
	for _, o := range opts {
		o(&cfg)
	}

	p := &WorkerPool{
		jobs:    make(chan Job, cfg.queueSize),
		process: process,
		timeout: cfg.jobTimeout,
		log:     logger,
	}
	for i := 0; i < cfg.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	logger.Info("worker pool started", "workers", cfg.workers, "queue_size", cfg.queueSize)
	return p
}

func (p *WorkerPool) Enqueue(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return common.NewAppError("QUEUE_CLOSED", "queue is shut down", common.ErrBusy)
	}

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}
	select {
	case p.jobs <- job:
		p.log.Debug("queue.job.enqueued",
			"document_id", job.DocumentID, "trace_id", job.TraceID, "backlog", len(p.jobs))
		return nil
	default:
		return common.NewAppError("QUEUE_FULL", "processing queue is full", common.ErrBusy)
	}
}

// Backlog reports the number of jobs waiting for a worker.
func (p *WorkerPool) Backlog() int {
	return len(p.jobs)
}

// Shutdown stops intake and waits for in-flight jobs until ctx expires.
func (p *WorkerPool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("worker pool drained")
	case <-ctx.Done():
		p.log.Warn("worker pool shutdown timed out", "error", ctx.Err())
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobs {
		p.run(id, job)
	}
}

func (p *WorkerPool) run(id int, job Job) {
	ctx := context.Background()
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	p.log.Info("queue.job.start",
		"worker", id,
		"document_id", job.DocumentID,
		"trace_id", job.TraceID,
		"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
	)
	if err := p.process(ctx, job); err != nil {
		p.log.Error("queue.job.failed",
			"document_id", job.DocumentID, "trace_id", job.TraceID, "error", err)
		return
	}
	p.log.Info("queue.job.ok",
		"document_id", job.DocumentID,
		"trace_id", job.TraceID,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
