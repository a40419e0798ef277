package schedule

import (
	"fmt"
	"time"

	"github.com/MikeO7/LocalWake/internal/localtime"
)

// MinInterval is the smallest repeat interval accepted inside a TimeRange.
const MinInterval = time.Minute

// TimeRange is a time-of-day window on an active day. Without an interval it
// fires once, at Start; with one it fires at Start, Start+Interval, ... up to
// and including End. Start == End is a single instant trigger, not a full
// day; use FullDay for that.
type TimeRange struct {
	Start    localtime.HMS
	End      localtime.HMS
	Interval time.Duration

	// Expires is the last date the range is active on. Zero means never.
	Expires localtime.YMD
}

// InstantAt returns a range that fires once a day at h.
func InstantAt(h localtime.HMS) TimeRange {
	return TimeRange{Start: h, End: h}
}

// Between returns a range from start to end.
func Between(start, end localtime.HMS) TimeRange {
	return TimeRange{Start: start, End: end}
}

// FullDay returns the 00:00:00 to 23:59:59 range.
func FullDay() TimeRange {
	return TimeRange{Start: localtime.Midnight, End: localtime.EndOfDay}
}

// Every returns a copy that repeats every d inside the window.
func (r TimeRange) Every(d time.Duration) TimeRange {
	r.Interval = d
	return r
}

// Until returns a copy that stops after the given date.
func (r TimeRange) Until(last localtime.YMD) TimeRange {
	r.Expires = last
	return r
}

// Validate checks the range is well formed.
func (r TimeRange) Validate() error {
	if err := r.Start.Validate(); err != nil {
		return fmt.Errorf("%w: start: %v", ErrInvalidSchedule, err)
	}
	if err := r.End.Validate(); err != nil {
		return fmt.Errorf("%w: end: %v", ErrInvalidSchedule, err)
	}
	if r.End.Compare(r.Start) < 0 {
		return fmt.Errorf("%w: range ends at %s before it starts at %s", ErrInvalidSchedule, r.End, r.Start)
	}
	if r.Interval != 0 && (r.Interval < MinInterval || r.Interval%time.Second != 0) {
		return fmt.Errorf("%w: interval %v must be whole seconds and at least %v", ErrInvalidSchedule, r.Interval, MinInterval)
	}
	if !r.Expires.IsZero() {
		if err := r.Expires.Validate(); err != nil {
			return fmt.Errorf("%w: expiration: %v", ErrInvalidSchedule, err)
		}
	}
	return nil
}

// IsInstant reports whether the range fires exactly once per active day.
func (r TimeRange) IsInstant() bool {
	return r.Interval == 0 || r.Start == r.End
}

// Contains reports whether h falls inside the window, inclusive.
func (r TimeRange) Contains(h localtime.HMS) bool {
	return h.Compare(r.Start) >= 0 && h.Compare(r.End) <= 0
}

// Expired reports whether the range is no longer active on date d.
func (r TimeRange) Expired(d localtime.YMD) bool {
	return !r.Expires.IsZero() && d.After(r.Expires)
}

// First returns the first fire time of an active day.
func (r TimeRange) First() localtime.HMS {
	return r.Start
}

// NextAfter returns the earliest fire time strictly after h on the same day.
func (r TimeRange) NextAfter(h localtime.HMS) (localtime.HMS, bool) {
	if h.Compare(r.Start) < 0 {
		return r.Start, true
	}
	if r.IsInstant() {
		return localtime.HMS{}, false
	}
	step := int(r.Interval / time.Second)
	elapsed := h.Seconds() - r.Start.Seconds()
	next := r.Start.Seconds() + (elapsed/step+1)*step
	if next > r.End.Seconds() {
		return localtime.HMS{}, false
	}
	return localtime.HMSFromSeconds(next), true
}

func (r TimeRange) String() string {
	s := r.Start.String()
	if r.Start != r.End {
		s += "-" + r.End.String()
	}
	if r.Interval > 0 {
		s += " every " + r.Interval.String()
	}
	if !r.Expires.IsZero() {
		s += " until " + r.Expires.String()
	}
	return s
}
