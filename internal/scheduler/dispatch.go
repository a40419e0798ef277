package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/MikeO7/LocalWake/internal/schedule"
	"github.com/MikeO7/LocalWake/pkg/log"
	"github.com/MikeO7/LocalWake/pkg/util"
)

// Dispatcher acts on a wake when its time arrives.
type Dispatcher interface {
	Dispatch(ctx context.Context, w schedule.Wake) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, w schedule.Wake) error

// Dispatch calls f.
func (f DispatcherFunc) Dispatch(ctx context.Context, w schedule.Wake) error {
	return f(ctx, w)
}

// LogDispatcher records each wake in the log and does nothing else.
type LogDispatcher struct{}

// Dispatch implements Dispatcher.
func (LogDispatcher) Dispatch(_ context.Context, w schedule.Wake) error {
	l := log.WithSchedule(w.Schedule, w.Index)
	ev := l.Info().
		Str("local", w.Local.String()).
		Time("utc", w.At).
		Str("categories", w.Item.Categories().String())
	if label := w.Item.Label(); label != "" {
		ev = ev.Str("label", label)
	}
	if !w.Scheduled.Equal(w.Local) {
		ev = ev.Str("scheduled", w.Scheduled.String())
	}
	ev.Msg("Wake")
	return nil
}

// Plan summarizes the upcoming wakes at one instant.
type Plan struct {
	Now         time.Time
	Next        *schedule.Wake
	FullWake    *schedule.Wake
	DataCapture *schedule.Wake
	PerSchedule []schedule.Wake
}

// BuildPlan queries mgr for every kind of next wake after now.
func BuildPlan(mgr *schedule.Manager, now time.Time) Plan {
	p := Plan{Now: now, PerSchedule: mgr.NextPerSchedule(now)}
	if w, ok := mgr.NextWake(now); ok {
		p.Next = &w
	}
	if w, ok := mgr.NextFullWake(now); ok {
		p.FullWake = &w
	}
	if w, ok := mgr.NextDataCapture(now); ok {
		p.DataCapture = &w
	}
	return p
}

// Write prints the plan in a human readable form.
func (p Plan) Write(w io.Writer) {
	line := func(kind string, wake *schedule.Wake) {
		if wake == nil {
			fmt.Fprintf(w, "%-18s none\n", kind+":")
			return
		}
		fmt.Fprintf(w, "%-18s %s  %s  (in %s, %s)\n", kind+":", wake.Local, wake.At.Format(time.RFC3339), util.FormatDuration(wake.At.Sub(p.Now)), wake.Schedule)
	}
	line("Next wake", p.Next)
	line("Next full wake", p.FullWake)
	line("Next data capture", p.DataCapture)
	for _, wake := range p.PerSchedule {
		fmt.Fprintf(w, "  %-16s %s  %s\n", wake.Schedule, wake.Local, wake.Item)
	}
}
