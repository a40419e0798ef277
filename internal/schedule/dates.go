package schedule

import (
	"fmt"
	"time"

	"github.com/MikeO7/LocalWake/internal/localtime"
)

// DateRule selects the calendar dates a recurring item is active on.
// localtime.DayOfWeekMask is the common rule; DayOfMonth and NthWeekday cover
// monthly schedules.
type DateRule interface {
	Matches(d localtime.YMD) bool
	String() string
}

// DayOfMonth matches one day in every month. Positive values are the day
// number. Zero is the last day of the month and negative values count back
// from it, so -1 is the day before the last. Months without the day are
// skipped.
type DayOfMonth int

// Validate checks the day can occur in some month.
func (n DayOfMonth) Validate() error {
	if n > 31 || n < -27 {
		return fmt.Errorf("%w: day of month %d out of range", ErrInvalidSchedule, int(n))
	}
	return nil
}

// Matches implements DateRule.
func (n DayOfMonth) Matches(d localtime.YMD) bool {
	day := int(n)
	if day <= 0 {
		day += localtime.LastDayOfMonth(d.Year, d.Month)
	}
	return d.Day == day
}

func (n DayOfMonth) String() string {
	switch {
	case n > 0:
		return fmt.Sprintf("day %d", int(n))
	case n == 0:
		return "last day"
	}
	return fmt.Sprintf("last day %d", int(n))
}

// NthWeekday matches the Nth occurrence of a weekday in a month, such as the
// second Tuesday. Ordinal runs from 1 to 5; months without a fifth occurrence
// are skipped.
type NthWeekday struct {
	Ordinal int
	Weekday time.Weekday
}

// Validate checks the ordinal and weekday.
func (r NthWeekday) Validate() error {
	if r.Ordinal < 1 || r.Ordinal > 5 {
		return fmt.Errorf("%w: weekday ordinal %d out of range 1-5", ErrInvalidSchedule, r.Ordinal)
	}
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return fmt.Errorf("%w: invalid weekday %d", ErrInvalidSchedule, int(r.Weekday))
	}
	return nil
}

// Matches implements DateRule.
func (r NthWeekday) Matches(d localtime.YMD) bool {
	return d.Weekday() == r.Weekday && (d.Day-1)/7+1 == r.Ordinal
}

func (r NthWeekday) String() string {
	suffix := "th"
	switch r.Ordinal {
	case 1:
		suffix = "st"
	case 2:
		suffix = "nd"
	case 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s %s", r.Ordinal, suffix, r.Weekday.String()[:3])
}

// weekdayOf returns the single weekday set in m.
func weekdayOf(m localtime.DayOfWeekMask) (time.Weekday, bool) {
	found := -1
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !m.Has(d) {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = int(d)
	}
	return time.Weekday(found), found >= 0
}

// OrdinalOf returns the rule for the ordinal-th occurrence of the one weekday
// set in m.
func OrdinalOf(ordinal int, m localtime.DayOfWeekMask) (NthWeekday, error) {
	wd, ok := weekdayOf(m)
	if !ok {
		return NthWeekday{}, fmt.Errorf("%w: an ordinal needs exactly one weekday, got %s", ErrInvalidSchedule, m)
	}
	r := NthWeekday{Ordinal: ordinal, Weekday: wd}
	return r, r.Validate()
}
