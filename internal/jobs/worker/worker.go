package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/yungbote/lingua-backend/internal/observability"
	"github.com/yungbote/lingua-backend/internal/platform/logger"
)

var (
	ErrQueueFull      = errors.New("worker: queue full")
	ErrClosed         = errors.New("worker: closed")
	ErrUnknownJobType = errors.New("worker: no handler for job type")
	ErrDuplicateJob   = errors.New("worker: job already scheduled for curriculum")
)

type Config struct {
	Concurrency int
	QueueSize   int
}

// Worker runs jobs on a bounded goroutine pool fed by a bounded queue. Enqueue never
// blocks; a full queue is reported to the caller.
type Worker struct {
	log      *logger.Logger
	registry *Registry
	metrics  *observability.Metrics

	pool  *ants.Pool
	queue chan Job

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
	closed   bool
	started  bool
	done     chan struct{}
	cancel   context.CancelFunc
}

// inflightKey identifies a queued or running job for one curriculum.
type inflightKey struct {
	jobType      string
	curriculumID uuid.UUID
}

func keyOf(job Job) (inflightKey, bool) {
	if job.CurriculumID == uuid.Nil {
		return inflightKey{}, false
	}
	return inflightKey{jobType: job.Type, curriculumID: job.CurriculumID}, true
}

func New(baseLog *logger.Logger, registry *Registry, cfg Config, metrics *observability.Metrics) (*Worker, error) {
	if baseLog == nil {
		baseLog = logger.NewNop()
	}
	if registry == nil {
		return nil, fmt.Errorf("registry required")
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1
	}
	log := baseLog.With("component", "JobWorker")
	pool, err := ants.NewPool(cfg.Concurrency, ants.WithPanicHandler(func(r any) {
		log.Error("Job handler panic escaped", "panic", r)
	}))
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Worker{
		log:      log,
		registry: registry,
		metrics:  metrics,
		pool:     pool,
		queue:    make(chan Job, cfg.QueueSize),
		inflight: make(map[inflightKey]struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start launches the dispatcher. Jobs run with a context derived from ctx.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started || w.closed {
		w.mu.Unlock()
		return
	}
	w.started = true
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	w.log.Info("Starting job worker pool", "concurrency", w.pool.Cap(), "queue_size", cap(w.queue))
	go w.dispatch(runCtx)
}

func (w *Worker) dispatch(ctx context.Context) {
	defer close(w.done)
	for job := range w.queue {
		if err := w.pool.Submit(func() { w.run(ctx, job) }); err != nil {
			w.log.Error("Job submit failed", "job_id", job.ID, "job_type", job.Type, "error", err)
			w.metrics.ObserveJob(job.Type, "dropped", 0)
			w.release(job)
		}
		w.publishPool()
	}
}

// Enqueue schedules job without waiting for it to run. A job for a curriculum that already
// has one of the same type queued or running is rejected with ErrDuplicateJob.
func (w *Worker) Enqueue(job Job) error {
	if _, ok := w.registry.Get(job.Type); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	key, tracked := keyOf(job)
	if tracked {
		if _, busy := w.inflight[key]; busy {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, job.CurriculumID)
		}
	}
	select {
	case w.queue <- job:
		if tracked {
			w.inflight[key] = struct{}{}
		}
		w.publishPool()
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Worker) run(ctx context.Context, job Job) {
	start := time.Now()
	status := "succeeded"
	defer func() {
		if r := recover(); r != nil {
			status = "panicked"
			w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.Type, "panic", r)
		}
		w.metrics.ObserveJob(job.Type, status, time.Since(start))
		w.release(job)
		w.publishPool()
	}()

	h, ok := w.registry.Get(job.Type)
	if !ok {
		status = "unhandled"
		w.log.Warn("No handler registered for job_type", "job_type", job.Type, "job_id", job.ID)
		return
	}
	if err := h.Run(ctx, job); err != nil {
		status = "failed"
		w.log.Warn("Job failed", "job_id", job.ID, "job_type", job.Type, "curriculum_id", job.CurriculumID, "error", err)
	}
}

func (w *Worker) release(job Job) {
	key, tracked := keyOf(job)
	if !tracked {
		return
	}
	w.mu.Lock()
	delete(w.inflight, key)
	w.mu.Unlock()
}

func (w *Worker) publishPool() {
	w.metrics.SetWorkerPool(w.pool.Running(), len(w.queue), w.pool.Cap())
}

// Close stops accepting jobs, lets queued and running jobs finish within timeout, and
// then cancels whatever is still running.
func (w *Worker) Close(timeout time.Duration) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	close(w.queue)
	w.mu.Unlock()

	if !started {
		w.pool.Release()
		return nil
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	deadline := time.Now().Add(timeout)
	select {
	case <-w.done:
	case <-time.After(timeout):
		w.log.Warn("Worker queue did not drain before timeout")
	}
	remaining := time.Until(deadline)
	if remaining < time.Millisecond {
		remaining = time.Millisecond
	}
	err := w.pool.ReleaseTimeout(remaining)
	w.cancel()
	if err != nil {
		return fmt.Errorf("release worker pool: %w", err)
	}
	return nil
}
