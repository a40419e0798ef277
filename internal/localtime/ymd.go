package localtime

import (
	"fmt"
	"time"
)

// YMD is a calendar date without a time of day.
type YMD struct {
	Year  int
	Month int
	Day   int
}

// NewYMD returns a validated date.
func NewYMD(year, month, day int) (YMD, error) {
	d := YMD{Year: year, Month: month, Day: day}
	if err := d.Validate(); err != nil {
		return YMD{}, err
	}
	return d, nil
}

// ParseYMD parses a date in YYYY-MM-DD format.
func ParseYMD(s string) (YMD, error) {
	var d YMD
	var rest string
	n, _ := fmt.Sscanf(s, "%d-%d-%d%s", &d.Year, &d.Month, &d.Day, &rest)
	if n != 3 {
		return YMD{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidValue, s)
	}
	if err := d.Validate(); err != nil {
		return YMD{}, err
	}
	return d, nil
}

// Validate checks that the date exists in the proleptic Gregorian calendar.
func (d YMD) Validate() error {
	if d.Month < 1 || d.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidValue, d.Month)
	}
	if d.Day < 1 || d.Day > LastDayOfMonth(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidValue, d.Day, d.Year, d.Month)
	}
	return nil
}

// IsZero reports whether the date is unset.
func (d YMD) IsZero() bool {
	return d == YMD{}
}

// Weekday returns the day of week derived from the date.
func (d YMD) Weekday() time.Weekday {
	return d.civil().Weekday()
}

// AddDays returns the date n days later (or earlier when n is negative).
func (d YMD) AddDays(n int) YMD {
	return ymdFromTime(time.Date(d.Year, time.Month(d.Month), d.Day+n, 0, 0, 0, 0, time.UTC))
}

// DaysUntil returns the number of days from d to other, negative when other
// is earlier.
func (d YMD) DaysUntil(other YMD) int {
	return int(other.civil().Sub(d.civil()) / (24 * time.Hour))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or
// after other.
func (d YMD) Compare(other YMD) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(d.Month - other.Month)
	default:
		return sign(d.Day - other.Day)
	}
}

// Before reports whether d is strictly before other.
func (d YMD) Before(other YMD) bool { return d.Compare(other) < 0 }

// After reports whether d is strictly after other.
func (d YMD) After(other YMD) bool { return d.Compare(other) > 0 }

func (d YMD) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d YMD) civil() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

func ymdFromTime(t time.Time) YMD {
	return YMD{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// LastDayOfMonth returns the number of days in the month.
func LastDayOfMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
	return 0
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
