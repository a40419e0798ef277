package scheduler

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeO7/LocalWake/internal/schedule"
	"github.com/MikeO7/LocalWake/pkg/log"
	"github.com/MikeO7/LocalWake/pkg/util"
)

// lateWarning is how far past its instant a wake may be dispatched before
// the delay is logged as a warning.
const lateWarning = time.Minute

// Reloader refreshes the manager's schedules, typically from the config file.
type Reloader func(mgr *schedule.Manager) error

// Scheduler sleeps until the next wake of its manager's schedules and hands
// every wake due at that instant to a Dispatcher.
type Scheduler struct {
	mgr         *schedule.Manager
	dispatcher  Dispatcher
	clock       Clock
	idleRecheck time.Duration
	reload      Reloader

	refresh chan struct{}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the real clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithIdleRecheck sets how long to wait before looking again when no
// schedule has an upcoming wake.
func WithIdleRecheck(d time.Duration) Option {
	return func(s *Scheduler) { s.idleRecheck = d }
}

// WithReloader installs the function run on SIGHUP.
func WithReloader(r Reloader) Option {
	return func(s *Scheduler) { s.reload = r }
}

// New returns a scheduler for mgr. A nil dispatcher logs wakes.
func New(mgr *schedule.Manager, dispatcher Dispatcher, opts ...Option) *Scheduler {
	if dispatcher == nil {
		dispatcher = LogDispatcher{}
	}
	s := &Scheduler{
		mgr:         mgr,
		dispatcher:  dispatcher,
		clock:       RealClock(),
		idleRecheck: time.Hour,
		refresh:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.idleRecheck <= 0 {
		s.idleRecheck = time.Hour
	}
	return s
}

// Run starts the scheduler main loop and returns when ctx is cancelled or a
// shutdown signal arrives.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Set up signal handling for graceful shutdown, debug toggling and reload
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR1, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	go handleSignals(ctx, sigChan, cancel, s.Reload)

	return s.Loop(ctx)
}

// Reload runs the reloader, if any, and makes the loop recompute its next
// wake.
func (s *Scheduler) Reload() {
	if s.reload != nil {
		if err := s.reload(s.mgr); err != nil {
			log.ErrorErr("Failed to reload schedules, keeping current ones", err)
			return
		}
		log.Infof("Reloaded %d schedules", len(s.mgr.Names()))
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Loop waits for and dispatches wakes until ctx is cancelled.
func (s *Scheduler) Loop(ctx context.Context) error {
	log.Infof("Starting scheduler with %d schedules, looking ahead %d days", len(s.mgr.Names()), s.mgr.LookaheadDays())

	cursor := s.clock.Now()
	for {
		if ctx.Err() != nil {
			log.Info("Scheduler stopped")
			return nil
		}

		due := s.mgr.NextAll(cursor)
		var wait time.Duration
		if len(due) == 0 {
			wait = s.idleRecheck
			log.Infof("No wake within %d days, checking again in %s", s.mgr.LookaheadDays(), util.FormatDuration(wait))
		} else {
			wait = due[0].At.Sub(s.clock.Now())
			log.Infof("Next wake: %s %s (in %s, %d due)", due[0].Local, due[0].Schedule, util.FormatDuration(wait), len(due))
		}

		select {
		case <-ctx.Done():
			log.Info("Scheduler stopped")
			return nil
		case <-s.refresh:
			cursor = s.clock.Now()
			continue
		case <-s.clock.After(wait):
		}

		if len(due) == 0 {
			cursor = s.clock.Now()
			continue
		}
		s.dispatchAll(ctx, due)
		cursor = due[0].At
	}
}

func (s *Scheduler) dispatchAll(ctx context.Context, due []schedule.Wake) {
	if late := s.clock.Now().Sub(due[0].At); late > lateWarning {
		log.WithFields(map[string]interface{}{
			"due":       len(due),
			"scheduled": due[0].At.Format(time.RFC3339),
		}).Warn().Msgf("Dispatching wakes %s late", util.FormatDuration(late))
	}
	for _, w := range due {
		if err := s.dispatcher.Dispatch(ctx, w); err != nil {
			log.WithSchedule(w.Schedule, w.Index).Error().Err(err).Msg("Wake dispatch failed")
		}
	}
}
