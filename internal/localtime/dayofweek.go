package localtime

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeekMask is a set of weekdays. Bit 0 is Sunday, bit 6 is Saturday.
type DayOfWeekMask uint8

const (
	Sunday DayOfWeekMask = 1 << iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

const (
	Weekdays = Monday | Tuesday | Wednesday | Thursday | Friday
	Weekend  = Saturday | Sunday
	EveryDay = Weekdays | Weekend
)

var dayNames = map[string]DayOfWeekMask{
	"sun": Sunday, "sunday": Sunday,
	"mon": Monday, "monday": Monday,
	"tue": Tuesday, "tues": Tuesday, "tuesday": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday,
	"thu": Thursday, "thur": Thursday, "thurs": Thursday, "thursday": Thursday,
	"fri": Friday, "friday": Friday,
	"sat": Saturday, "saturday": Saturday,
	"weekdays": Weekdays, "weekday": Weekdays,
	"weekend": Weekend, "weekends": Weekend,
	"all": EveryDay, "every": EveryDay, "daily": EveryDay,
}

// MaskOf returns the mask containing the given weekdays.
func MaskOf(days ...time.Weekday) DayOfWeekMask {
	var m DayOfWeekMask
	for _, d := range days {
		m |= 1 << uint(d)
	}
	return m & EveryDay
}

// ParseDayOfWeekMask combines day names such as "mon", "Friday" or "weekend".
func ParseDayOfWeekMask(names ...string) (DayOfWeekMask, error) {
	var m DayOfWeekMask
	for _, n := range names {
		bits, ok := dayNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return 0, fmt.Errorf("%w: unknown day of week %q", ErrInvalidValue, n)
		}
		m |= bits
	}
	return m, nil
}

// Has reports whether the weekday is in the set.
func (m DayOfWeekMask) Has(d time.Weekday) bool {
	return d >= time.Sunday && d <= time.Saturday && m&(1<<uint(d)) != 0
}

// Matches reports whether the date's weekday is in the set.
func (m DayOfWeekMask) Matches(d YMD) bool {
	return m.Has(d.Weekday())
}

// IsEmpty reports whether no day is set; an empty mask matches nothing.
func (m DayOfWeekMask) IsEmpty() bool {
	return m&EveryDay == 0
}

func (m DayOfWeekMask) String() string {
	switch m & EveryDay {
	case 0:
		return "none"
	case EveryDay:
		return "every day"
	case Weekdays:
		return "weekdays"
	case Weekend:
		return "weekend"
	}
	var names []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if m.Has(d) {
			names = append(names, d.String()[:3])
		}
	}
	return strings.Join(names, ",")
}
