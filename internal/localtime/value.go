package localtime

import (
	"fmt"
	"strings"
	"time"
)

// Value is a civil date and time of day in the configured timezone. The day
// of week is always derived from the date.
//
// A Value produced by Converter.ToLocal for the second pass through a wall
// time that a fall-back transition repeats is marked as repeated, so it can
// be converted back to the exact instant it came from.
type Value struct {
	date     YMD
	clock    HMS
	repeated bool
}

// NewValue returns a validated local time.
func NewValue(year, month, day, hour, minute, second int) (Value, error) {
	d, err := NewYMD(year, month, day)
	if err != nil {
		return Value{}, err
	}
	h, err := NewHMS(hour, minute, second)
	if err != nil {
		return Value{}, err
	}
	return Value{date: d, clock: h}, nil
}

// At combines an already valid date and time of day.
func At(date YMD, clock HMS) Value {
	return Value{date: date, clock: clock}
}

// MustValue is NewValue for literals known to be valid; it panics otherwise.
func MustValue(year, month, day, hour, minute, second int) Value {
	v, err := NewValue(year, month, day, hour, minute, second)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseValue parses "YYYY-MM-DD HH:MM:SS"; a 'T' separator is also accepted.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	idx := strings.IndexAny(s, " T")
	if idx < 0 {
		return Value{}, fmt.Errorf("%w: %q is not YYYY-MM-DD HH:MM:SS", ErrInvalidValue, s)
	}
	d, err := ParseYMD(s[:idx])
	if err != nil {
		return Value{}, err
	}
	h, err := ParseHMS(s[idx+1:])
	if err != nil {
		return Value{}, err
	}
	return Value{date: d, clock: h}, nil
}

// FromWall builds a Value from a time whose wall clock fields are used as is,
// ignoring its location.
func FromWall(t time.Time) Value {
	return Value{
		date:  ymdFromTime(t),
		clock: HMS{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()},
	}
}

func fromWallSeconds(secs int64) Value {
	return FromWall(time.Unix(secs, 0).UTC())
}

// wallSeconds counts seconds since 1970-01-01 00:00:00 on the local wall
// clock, as if the wall clock were UTC.
func (v Value) wallSeconds() int64 {
	return v.date.civil().Unix() + int64(v.clock.Seconds())
}

func (v Value) Date() YMD             { return v.date }
func (v Value) Clock() HMS            { return v.clock }
func (v Value) Year() int             { return v.date.Year }
func (v Value) Month() int            { return v.date.Month }
func (v Value) Day() int              { return v.date.Day }
func (v Value) Hour() int             { return v.clock.Hour }
func (v Value) Minute() int           { return v.clock.Minute }
func (v Value) Second() int           { return v.clock.Second }
func (v Value) Weekday() time.Weekday { return v.date.Weekday() }

// Repeated reports whether the value is the second occurrence of a wall time
// duplicated by a fall-back transition.
func (v Value) Repeated() bool { return v.repeated }

// WithRepeated returns a copy with the repeated marker set to r.
func (v Value) WithRepeated(r bool) Value {
	v.repeated = r
	return v
}

// WithClock returns the same date at a different time of day.
func (v Value) WithClock(h HMS) Value {
	return Value{date: v.date, clock: h}
}

// AddDays returns the same time of day n days later.
func (v Value) AddDays(n int) Value {
	return Value{date: v.date.AddDays(n), clock: v.clock}
}

// Add returns the wall time shifted by d, truncated to seconds. It is plain
// calendar arithmetic and knows nothing about DST.
func (v Value) Add(d time.Duration) Value {
	return fromWallSeconds(v.wallSeconds() + int64(d/time.Second))
}

// Compare orders values by wall time; for equal wall times a repeated value
// sorts after a non-repeated one.
func (v Value) Compare(other Value) int {
	if c := v.date.Compare(other.date); c != 0 {
		return c
	}
	if c := v.clock.Compare(other.clock); c != 0 {
		return c
	}
	switch {
	case v.repeated == other.repeated:
		return 0
	case v.repeated:
		return 1
	}
	return -1
}

func (v Value) Before(other Value) bool { return v.Compare(other) < 0 }
func (v Value) After(other Value) bool  { return v.Compare(other) > 0 }
func (v Value) Equal(other Value) bool  { return v.Compare(other) == 0 }

// IsZero reports whether the value is unset.
func (v Value) IsZero() bool {
	return v == Value{}
}

func (v Value) String() string {
	return v.date.String() + " " + v.clock.String()
}
