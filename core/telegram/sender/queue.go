// Package sender runs best-effort Telegram API calls on a small worker pool,
// retrying transient network failures and flood waits.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/soulbot/core/logger"
	"github.com/m3rciful/soulbot/core/telegram/netutil"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound queue.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o *Options) applyDefaults() {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
}

type job struct {
	ctx    context.Context
	action string
	run    func() error
}

// Queue executes outbound calls asynchronously with retries.
type Queue struct {
	opts Options

	mu     sync.RWMutex
	closed bool
	jobs   chan job

	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewQueue starts the workers. Zero options fall back to defaults.
func NewQueue(opts Options) *Queue {
	opts.applyDefaults()
	q := &Queue{
		opts: opts,
		jobs: make(chan job, opts.QueueSize),
	}
	q.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go q.worker()
	}
	return q
}

// Enqueue schedules run without blocking. run may be called more than once.
func (q *Queue) Enqueue(ctx context.Context, action string, run func() error) error {
	if run == nil {
		return errors.New("telegram sender: nil run function")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.jobs <- job{ctx: ctx, action: action, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failed returns the number of jobs that gave up.
func (q *Queue) Failed() uint64 {
	return q.failed.Load()
}

// Close stops intake and waits for queued jobs to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.execute(j)
	}
}

func (q *Queue) execute(j job) {
	// The job outlives the update that queued it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), q.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := q.opts.MaxRetries + 1
	var err error
retry:
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			logger.Debug(j.ctx, "tg.sender", "send.success",
				slog.String("action", j.action),
				slog.Int("attempts", attempt),
				slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
			)
			return
		}
		if !retryable(err) || attempt == attempts {
			break retry
		}
		delay := q.backoff(err, attempt)
		logger.Debug(j.ctx, "tg.sender", "send.retry",
			slog.String("action", j.action),
			slog.Int("attempts", attempt),
			slog.Int64("backoff_ms", delay.Milliseconds()),
		)
		if serr := netutil.Sleep(ctx, delay); serr != nil {
			err = errors.Join(err, serr)
			break retry
		}
	}

	q.failed.Add(1)
	logger.Error(j.ctx, "tg.sender", "send.fail",
		slog.String("action", j.action),
		slog.String("err", sanitizeErrorMessage(err)),
		slog.String("err_code", classifyError(err)),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	)
}

func (q *Queue) backoff(err error, attempt int) time.Duration {
	if wait := floodWait(err); wait > 0 {
		return wait
	}
	return netutil.Backoff{Base: q.opts.RetryBackoff}.Delay(attempt)
}
