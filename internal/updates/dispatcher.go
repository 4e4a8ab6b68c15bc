package updates

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrQueueFull         = errors.New("fan-out queue is full")
	ErrDispatcherStopped = errors.New("fan-out dispatcher is stopped")
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 4
)

type job struct {
	id   uuid.UUID
	kind models.UpdateType
	run  func(ctx context.Context) Outcome
}

// DispatcherStats is a point-in-time view of the dispatcher counters
type DispatcherStats struct {
	Queued    int   `json:"queued"`
	Enqueued  int64 `json:"enqueued"`
	Dropped   int64 `json:"dropped"`
	Completed int64 `json:"completed"`
}

// Dispatcher runs fan-out jobs off the caller's goroutine. Triggering code
// enqueues and returns at once; a full queue drops the job and logs it.
type Dispatcher struct {
	engine   *Engine
	logger   *zap.Logger
	jobs     chan job
	workers  int
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool

	enqueued  atomic.Int64
	dropped   atomic.Int64
	completed atomic.Int64
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(engine *Engine, logger *zap.Logger, queueSize, workers int) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Dispatcher{
		engine:   engine,
		logger:   logger,
		jobs:     make(chan job, queueSize),
		workers:  workers,
		stopChan: make(chan struct{}),
	}
}

// Start launches the worker pool. Cancelling ctx stops the workers; jobs
// already running are allowed to finish.
func (d *Dispatcher) Start(ctx context.Context) {
	if d.stopped.Load() || !d.started.CompareAndSwap(false, true) {
		return
	}
	jobCtx := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run(ctx, jobCtx)
	}
	d.logger.Info("fan-out dispatcher started", zap.Int("workers", d.workers), zap.Int("queue_size", cap(d.jobs)))
}

// Stop refuses new jobs and waits for the workers to exit. Jobs still queued
// are left for Drain.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stopChan)
		d.wg.Wait()
		d.logger.Info("fan-out dispatcher stopped", zap.Int("pending", len(d.jobs)))
	})
}

// Len returns the number of queued jobs
func (d *Dispatcher) Len() int {
	return len(d.jobs)
}

// Stats returns the dispatcher counters
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Queued:    len(d.jobs),
		Enqueued:  d.enqueued.Load(),
		Dropped:   d.dropped.Load(),
		Completed: d.completed.Load(),
	}
}

// Drain runs queued jobs on the calling goroutine until the queue is empty or
// ctx is done. It returns the number of jobs run.
func (d *Dispatcher) Drain(ctx context.Context) int {
	n := 0
	for {
		if ctx.Err() != nil {
			return n
		}
		select {
		case j := <-d.jobs:
			d.execute(ctx, j)
			n++
		default:
			return n
		}
	}
}

func (d *Dispatcher) run(ctx, jobCtx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopChan:
			return
		case <-ctx.Done():
			return
		case j := <-d.jobs:
			d.execute(jobCtx, j)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	defer d.completed.Add(1)
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("fan-out job panicked", zap.String("job_id", j.id.String()), zap.String("kind", string(j.kind)), zap.Any("panic", r))
		}
	}()
	j.run(ctx)
}

func (d *Dispatcher) submit(kind models.UpdateType, run func(ctx context.Context) Outcome) error {
	j := job{id: uuid.New(), kind: kind, run: run}
	if d.stopped.Load() {
		d.dropped.Add(1)
		d.logger.Warn("fan-out job dropped", zap.String("job_id", j.id.String()), zap.String("kind", string(kind)), zap.Error(ErrDispatcherStopped))
		return ErrDispatcherStopped
	}
	select {
	case d.jobs <- j:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		d.logger.Warn("fan-out job dropped", zap.String("job_id", j.id.String()), zap.String("kind", string(kind)), zap.Error(ErrQueueFull))
		return ErrQueueFull
	}
}

// PinCreated queues a new-pin fan-out
func (d *Dispatcher) PinCreated(pin models.Pin) {
	_ = d.submit(models.UpdateTypeNewPin, func(ctx context.Context) Outcome {
		return d.engine.PinCreated(ctx, pin)
	})
}

// Reply queues a reply fan-out
func (d *Dispatcher) Reply(pin models.Pin, reply models.Reply, author models.User, parent *models.Reply) {
	_ = d.submit(models.UpdateTypePinUpdate, func(ctx context.Context) Outcome {
		return d.engine.Reply(ctx, pin, reply, author, parent)
	})
}

// AttendanceChange queues an attendance fan-out
func (d *Dispatcher) AttendanceChange(pin models.Pin, attendee models.User, attending bool) {
	_ = d.submit(models.UpdateTypePinUpdate, func(ctx context.Context) Outcome {
		return d.engine.AttendanceChange(ctx, pin, attendee, attending)
	})
}

// BookmarkCreated queues a bookmark fan-out
func (d *Dispatcher) BookmarkCreated(pin models.Pin, bookmarker models.User) {
	_ = d.submit(models.UpdateTypeBookmarkUpdate, func(ctx context.Context) Outcome {
		return d.engine.BookmarkCreated(ctx, pin, bookmarker)
	})
}

// ChatMessage queues a chat fan-out
func (d *Dispatcher) ChatMessage(room models.ChatRoom, message models.ChatMessage, author models.User) {
	_ = d.submit(models.UpdateTypeChatMessage, func(ctx context.Context) Outcome {
		return d.engine.ChatMessage(ctx, room, message, author)
	})
}

// BadgeEarned queues a badge fan-out
func (d *Dispatcher) BadgeEarned(userID string, badge models.Badge, sourceUserID *string) {
	_ = d.submit(models.UpdateTypeBadgeEarned, func(ctx context.Context) Outcome {
		return d.engine.BadgeEarned(ctx, userID, badge, sourceUserID)
	})
}

// FriendRequest queues a friend request fan-out
func (d *Dispatcher) FriendRequest(request models.FriendRequest, requester models.User) {
	_ = d.submit(models.UpdateTypeFriendRequest, func(ctx context.Context) Outcome {
		return d.engine.FriendRequest(ctx, request, requester)
	})
}

// System queues an announcement
func (d *Dispatcher) System(recipientIDs []string, title, body, category string) {
	ids := append([]string(nil), recipientIDs...)
	_ = d.submit(models.UpdateTypeSystem, func(ctx context.Context) Outcome {
		return d.engine.System(ctx, ids, title, body, category)
	})
}
