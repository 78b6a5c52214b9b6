package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"hostel-allocation-backend/internal/logging"
	"hostel-allocation-backend/internal/metrics"
	"hostel-allocation-backend/internal/model"
)

// NoticeWriter defines the interface for persisting a decision notice.
type NoticeWriter interface {
	CreateNotice(ctx context.Context, notice *model.Notice) error
}

// DefaultDispatchTimeout bounds how long Dispatch waits for queue space.
const DefaultDispatchTimeout = 5 * time.Second

// WorkerPool manages a pool of workers that persist decision notices.
// Notices that cannot be queued are logged and dropped; the application
// decision itself is already committed.
type WorkerPool struct {
	size   int
	jobs   chan model.Notice
	writer NoticeWriter
	now    func() time.Time
	log    zerolog.Logger

	// DispatchTimeout is how long Dispatch waits on a full queue.
	DispatchTimeout time.Duration

	stopOnce sync.Once
	stopped  chan struct{}
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, writer NoticeWriter) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:   size,
		jobs:   make(chan model.Notice, 4*size), // Buffered channel
		writer: writer,
		now:    time.Now,
		log:    logging.WithComponent("notification"),

		DispatchTimeout: DefaultDispatchTimeout,
		stopped:         make(chan struct{}),
	}
}

// Start launches the worker goroutines. Once ctx is done the pool stops
// accepting notices.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		wp.stopOnce.Do(func() { close(wp.stopped) })
	}()
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.Debug().Int("worker", id).Msg("worker started")
	for {
		select {
		case notice := <-wp.jobs:
			wp.save(ctx, notice)
		case <-ctx.Done():
			wp.log.Debug().Int("worker", id).Msg("worker shutting down")
			return
		}
	}
}

// Dispatch sends a job to the worker pool. It never blocks past
// DispatchTimeout, and returns at once after the pool has stopped.
func (wp *WorkerPool) Dispatch(notice model.Notice) {
	select {
	case <-wp.stopped:
		wp.drop(notice, "stopped")
		return
	default:
	}

	timer := time.NewTimer(wp.DispatchTimeout)
	defer timer.Stop()

	select {
	case wp.jobs <- notice:
	case <-wp.stopped:
		wp.drop(notice, "stopped")
	case <-timer.C:
		wp.drop(notice, "timeout")
	}
}

func (wp *WorkerPool) drop(notice model.Notice, reason string) {
	metrics.NoticesDropped.WithLabelValues(reason).Inc()
	wp.log.Warn().
		Str("student_id", notice.StudentID).
		Str("application_id", notice.ApplicationID).
		Str("reason", reason).
		Msg("notice dropped")
}

// Notify queues the decision notice for a terminal application.
func (wp *WorkerPool) Notify(app model.Application) {
	wp.Dispatch(DecisionNotice(app, wp.now()))
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan model.Notice {
	return wp.jobs
}

func (wp *WorkerPool) save(ctx context.Context, notice model.Notice) {
	if err := wp.writer.CreateNotice(ctx, &notice); err != nil {
		wp.log.Error().Err(err).
			Str("student_id", notice.StudentID).
			Str("application_id", notice.ApplicationID).
			Msg("failed to save notice")
		return
	}
	wp.log.Info().
		Str("student_id", notice.StudentID).
		Str("status", string(notice.Status)).
		Msg("notice saved")
}

// DecisionNotice builds the inbox message for an approved or rejected application.
func DecisionNotice(app model.Application, at time.Time) model.Notice {
	var message string
	switch app.Status {
	case model.StatusApproved:
		message = fmt.Sprintf("Your application was approved: room %s, floor %s.", app.RoomNumber, app.Floor)
	case model.StatusRejected:
		message = fmt.Sprintf("Your application was rejected: %s", app.RejectionReason)
	default:
		message = fmt.Sprintf("Your application is %s.", app.Status)
	}
	return model.Notice{
		StudentID:     app.StudentID,
		ApplicationID: app.ID,
		Status:        app.Status,
		Message:       message,
		CreatedAt:     at,
	}
}
