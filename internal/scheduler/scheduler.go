package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/models"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/repositories"
	"github.com/a-barrel/The-Bulletin-MVP-Public-Copy-sub001/internal/updates"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Missed sweep window policies
const (
	PolicySkip    = "skip"
	PolicyCatchUp = "catch-up"
)

const (
	defaultInterval     = 5 * time.Minute
	defaultInitialDelay = 10 * time.Second
	defaultMaxCatchUp   = time.Hour
)

// Notifier receives the pins a sweep selected. *updates.Engine implements it.
type Notifier interface {
	EventStartingSoon(ctx context.Context, pin models.Pin, windowHours float64) updates.Outcome
	DiscussionExpiringSoon(ctx context.Context, pin models.Pin) updates.Outcome
}

// Window is one reminder horizon: pins whose date is Offset away from the
// sweep time are notified
type Window struct {
	Label  string
	Kind   models.PinType
	Offset time.Duration
}

// DefaultWindows are the event reminders at 24h, 2h and 15m before start and
// the discussion warning 24h before expiry
var DefaultWindows = []Window{
	{Label: "24h", Kind: models.PinTypeEvent, Offset: 24 * time.Hour},
	{Label: "2h", Kind: models.PinTypeEvent, Offset: 2 * time.Hour},
	{Label: "15m", Kind: models.PinTypeEvent, Offset: 15 * time.Minute},
	{Label: "24h", Kind: models.PinTypeDiscussion, Offset: 24 * time.Hour},
}

// Options configures a Scheduler. Zero values fall back to the defaults.
type Options struct {
	Interval     time.Duration
	InitialDelay time.Duration
	Policy       string
	MaxCatchUp   time.Duration
	Windows      []Window
	Locker       Locker
	Watermark    Watermark
	Now          func() time.Time
}

// WindowResult is what one window found during a sweep
type WindowResult struct {
	Label    string         `json:"label"`
	Kind     models.PinType `json:"kind"`
	From     time.Time      `json:"from"`
	Until    time.Time      `json:"until"`
	Matched  int            `json:"matched"`
	Inserted int            `json:"inserted"`
	Err      error          `json:"-"`
}

// Result summarizes one sweep attempt
type Result struct {
	At      time.Time      `json:"at"`
	Skipped bool           `json:"skipped"`
	Reason  string         `json:"reason,omitempty"`
	Windows []WindowResult `json:"windows,omitempty"`
	Err     error          `json:"-"`
}

// Status is a snapshot for health reporting
type Status struct {
	Running     bool       `json:"running"`
	Sweeping    bool       `json:"sweeping"`
	Policy      string     `json:"policy"`
	Interval    string     `json:"interval"`
	LastSweepAt *time.Time `json:"last_sweep_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Skipped     int64      `json:"skipped"`
}

// Scheduler periodically finds pins entering a reminder window and hands them
// to the Notifier. At most one sweep runs at a time in this process.
type Scheduler struct {
	pins     repositories.PinRepository
	notifier Notifier
	logger   *zap.Logger
	opts     Options

	sweeping atomic.Bool
	running  atomic.Bool
	skipped  atomic.Int64
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu   sync.RWMutex
	last *Result
}

// New creates a new Scheduler
func New(pins repositories.PinRepository, notifier Notifier, logger *zap.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = defaultInitialDelay
	}
	if opts.Policy != PolicyCatchUp {
		opts.Policy = PolicySkip
	}
	if opts.MaxCatchUp <= 0 {
		opts.MaxCatchUp = defaultMaxCatchUp
	}
	if len(opts.Windows) == 0 {
		opts.Windows = DefaultWindows
	}
	if opts.Locker == nil {
		opts.Locker = localLocker{}
	}
	if opts.Watermark == nil {
		opts.Watermark = &MemoryWatermark{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		pins:     pins,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		stopChan: make(chan struct{}),
	}
}

// Start runs the first sweep after the initial delay and then one per
// interval until ctx is done or Stop is called
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go s.run(ctx)
	s.logger.Info("scheduler started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("initial_delay", s.opts.InitialDelay),
		zap.String("policy", s.opts.Policy),
	)
}

// Stop ends the loop and waits for an in-flight sweep to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.running.Store(false)
		s.logger.Info("scheduler stopped")
	})
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	delay := time.NewTimer(s.opts.InitialDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return
	case <-s.stopChan:
		return
	case <-delay.C:
		s.Sweep(ctx)
	}

	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep evaluates every window against the current time
func (s *Scheduler) Sweep(ctx context.Context) Result {
	return s.SweepAt(ctx, s.opts.Now())
}

// SweepAt evaluates every window as if the clock read now. A pin is caught
// when now falls in [date - offset, date - offset + interval), which makes
// the store range (now + offset - interval, now + offset].
func (s *Scheduler) SweepAt(ctx context.Context, now time.Time) (result Result) {
	result.At = now
	if !s.sweeping.CompareAndSwap(false, true) {
		s.skipped.Add(1)
		s.logger.Warn("sweep skipped: previous sweep still running", zap.Time("at", now))
		return Result{At: now, Skipped: true, Reason: "previous sweep still running"}
	}
	defer s.sweeping.Store(false)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked", zap.Any("panic", r))
			result.Err = fmt.Errorf("sweep panicked: %v", r)
		}
		if !result.Skipped {
			s.record(result)
		}
	}()

	acquired, err := s.opts.Locker.TryLock(ctx, s.opts.Interval)
	if err != nil {
		s.logger.Error("sweep skipped: lock unavailable", zap.Error(err))
		s.skipped.Add(1)
		return Result{At: now, Skipped: true, Reason: "lock unavailable"}
	}
	if !acquired {
		s.logger.Info("sweep skipped: another instance holds the lock")
		s.skipped.Add(1)
		return Result{At: now, Skipped: true, Reason: "held by another instance"}
	}
	defer func() {
		if err := s.opts.Locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("release sweep lock", zap.Error(err))
		}
	}()

	from := s.lowerBound(ctx, now)
	result.Windows = make([]WindowResult, len(s.opts.Windows))

	var g errgroup.Group
	g.SetLimit(2)
	for i, w := range s.opts.Windows {
		g.Go(func() error {
			result.Windows[i] = s.sweepWindow(ctx, w, from, now)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, wr := range result.Windows {
		if wr.Err != nil {
			errs = append(errs, fmt.Errorf("window %s %s: %w", wr.Kind, wr.Label, wr.Err))
		}
	}
	result.Err = errors.Join(errs...)

	if result.Err != nil {
		s.logger.Error("sweep finished with errors", zap.Time("at", now), zap.Error(result.Err))
		return result
	}
	if err := s.opts.Watermark.Set(ctx, now); err != nil {
		s.logger.Warn("store sweep watermark", zap.Error(err))
	}
	return result
}

// lowerBound is the sweep time the window starts from. Under skip it is one
// interval back; catch-up reaches back to the previous sweep, capped at
// MaxCatchUp.
func (s *Scheduler) lowerBound(ctx context.Context, now time.Time) time.Time {
	from := now.Add(-s.opts.Interval)
	if s.opts.Policy != PolicyCatchUp {
		return from
	}

	last, ok, err := s.opts.Watermark.Get(ctx)
	if err != nil {
		s.logger.Warn("load sweep watermark", zap.Error(err))
		return from
	}
	if !ok || !last.Before(from) {
		return from
	}

	floor := now.Add(-s.opts.MaxCatchUp)
	if last.Before(floor) {
		s.logger.Warn("catch-up capped", zap.Time("last_sweep", last), zap.Duration("max_catch_up", s.opts.MaxCatchUp))
		last = floor
	}
	s.logger.Info("catching up missed sweeps", zap.Duration("gap", now.Sub(last)))
	return last
}

func (s *Scheduler) sweepWindow(ctx context.Context, w Window, from, now time.Time) (wr WindowResult) {
	wr = WindowResult{Label: w.Label, Kind: w.Kind, From: from.Add(w.Offset), Until: now.Add(w.Offset)}
	log := s.logger.With(zap.String("window", w.Label), zap.String("kind", string(w.Kind)))

	defer func() {
		if r := recover(); r != nil {
			log.Error("window panicked", zap.Any("panic", r))
			wr.Err = fmt.Errorf("panic: %v", r)
		}
	}()

	var pins []models.Pin
	switch w.Kind {
	case models.PinTypeEvent:
		pins, wr.Err = s.pins.ListEventsStartingBetween(ctx, wr.From, wr.Until)
	case models.PinTypeDiscussion:
		pins, wr.Err = s.pins.ListDiscussionsExpiringBetween(ctx, wr.From, wr.Until)
	default:
		wr.Err = fmt.Errorf("unknown pin kind %q", w.Kind)
	}
	if wr.Err != nil {
		log.Error("window query failed", zap.Error(wr.Err))
		return wr
	}

	wr.Matched = len(pins)
	for _, pin := range pins {
		if ctx.Err() != nil {
			wr.Err = ctx.Err()
			return wr
		}
		var out updates.Outcome
		if w.Kind == models.PinTypeEvent {
			out = s.notifier.EventStartingSoon(ctx, pin, w.Offset.Hours())
		} else {
			out = s.notifier.DiscussionExpiringSoon(ctx, pin)
		}
		wr.Inserted += out.Inserted
	}

	if wr.Matched > 0 {
		log.Info("window swept", zap.Int("matched", wr.Matched), zap.Int("inserted", wr.Inserted))
	}
	return wr
}

func (s *Scheduler) record(r Result) {
	s.mu.Lock()
	s.last = &r
	s.mu.Unlock()
}

// Status returns the scheduler state for health reporting
func (s *Scheduler) Status() Status {
	st := Status{
		Running:  s.running.Load(),
		Sweeping: s.sweeping.Load(),
		Policy:   s.opts.Policy,
		Interval: s.opts.Interval.String(),
		Skipped:  s.skipped.Load(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last != nil {
		at := s.last.At
		st.LastSweepAt = &at
		if s.last.Err != nil {
			st.LastError = s.last.Err.Error()
		}
	}
	return st
}
