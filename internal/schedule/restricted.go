package schedule

import (
	"fmt"

	"github.com/MikeO7/LocalWake/internal/localtime"
)

// RestrictedDate is a single non-recurring occurrence. Once its time has
// passed it never matches again; it stays in its schedule until the owner
// removes it.
type RestrictedDate struct {
	Date localtime.YMD
	Time localtime.HMS

	// Expires disables the occurrence when Date is after it. Zero means never.
	Expires localtime.YMD
}

// OnDate returns a one-shot occurrence at the given date and time.
func OnDate(date localtime.YMD, at localtime.HMS) RestrictedDate {
	return RestrictedDate{Date: date, Time: at}
}

// Until returns a copy with an expiration date.
func (r RestrictedDate) Until(last localtime.YMD) RestrictedDate {
	r.Expires = last
	return r
}

// Validate checks the date and time exist.
func (r RestrictedDate) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return fmt.Errorf("%w: date: %v", ErrInvalidSchedule, err)
	}
	if err := r.Time.Validate(); err != nil {
		return fmt.Errorf("%w: time: %v", ErrInvalidSchedule, err)
	}
	if !r.Expires.IsZero() {
		if err := r.Expires.Validate(); err != nil {
			return fmt.Errorf("%w: expiration: %v", ErrInvalidSchedule, err)
		}
	}
	return nil
}

// Value returns the occurrence as a local time.
func (r RestrictedDate) Value() localtime.Value {
	return localtime.At(r.Date, r.Time)
}

// Expired reports whether the expiration date disables the occurrence.
func (r RestrictedDate) Expired() bool {
	return !r.Expires.IsZero() && r.Date.After(r.Expires)
}

// Next returns the occurrence if it is strictly after the given time.
func (r RestrictedDate) Next(after localtime.Value) (localtime.Value, bool) {
	if r.Expired() {
		return localtime.Value{}, false
	}
	v := r.Value()
	if !v.After(after.WithRepeated(false)) {
		return localtime.Value{}, false
	}
	return v, true
}

func (r RestrictedDate) String() string {
	s := r.Date.String() + " " + r.Time.String()
	if !r.Expires.IsZero() {
		s += " until " + r.Expires.String()
	}
	return s
}
