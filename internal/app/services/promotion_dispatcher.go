package services

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/aliyavuz/registrar/internal/allocation"
	"github.com/aliyavuz/registrar/internal/app/models"
	"github.com/aliyavuz/registrar/internal/metrics"
	"github.com/aliyavuz/registrar/internal/pkg/apperrors"
)

// PromotionJob carries one freed-seat event to the promotion worker
type PromotionJob struct {
	Event        allocation.PromotionEvent
	AcademicYear int
	Term         models.Term
}

// PromotionHandler processes a single promotion job
type PromotionHandler func(ctx context.Context, event allocation.PromotionEvent, year int, term models.Term) error

// PromotionDispatcher feeds freed-seat events to a single worker goroutine.
// One worker is deliberate: promotions against the same course must not race,
// and event volume is low enough that serializing them is the simplest way to
// keep each event atomic.
type PromotionDispatcher struct {
	handler PromotionHandler
	jobs    chan PromotionJob
	logger  zerolog.Logger

	stopOnce sync.Once
	done     chan struct{}
}

// NewPromotionDispatcher creates a dispatcher with a bounded queue
func NewPromotionDispatcher(handler PromotionHandler, queueSize int, logger zerolog.Logger) *PromotionDispatcher {
	return &PromotionDispatcher{
		handler: handler,
		jobs:    make(chan PromotionJob, queueSize),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start launches the worker. It runs until Stop is called or the context is
// cancelled; queued jobs are drained before the worker exits on Stop.
func (d *PromotionDispatcher) Start(ctx context.Context) {
	go d.work(ctx)
}

// Stop closes the queue and waits for the worker to drain it
func (d *PromotionDispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.jobs)
	})
	<-d.done
}

// Enqueue queues a promotion job. It never blocks; a full queue returns
// ErrPromotionQueueFull so the caller can surface the failure instead of
// stalling a request.
func (d *PromotionDispatcher) Enqueue(job PromotionJob) error {
	select {
	case d.jobs <- job:
		metrics.PromotionQueueDepth.Set(float64(len(d.jobs)))
		return nil
	default:
		d.logger.Warn().
			Str("course", job.Event.CourseCode).
			Int("freed", job.Event.FreedCount).
			Msg("Promotion queue full, event dropped")
		return apperrors.ErrPromotionQueueFull
	}
}

func (d *PromotionDispatcher) work(ctx context.Context) {
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-d.jobs:
			if !ok {
				return
			}
			metrics.PromotionQueueDepth.Set(float64(len(d.jobs)))
			if err := d.handler(ctx, job.Event, job.AcademicYear, job.Term); err != nil {
				d.logger.Error().Err(err).
					Str("course", job.Event.CourseCode).
					Int("year", job.AcademicYear).
					Str("term", string(job.Term)).
					Msg("Promotion event failed")
			}
		}
	}
}
