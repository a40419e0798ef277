package localtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// HMS is a time of day with one second resolution.
type HMS struct {
	Hour   int
	Minute int
	Second int
}

// Midnight is 00:00:00.
var Midnight = HMS{}

// EndOfDay is the last second of a day, 23:59:59.
var EndOfDay = HMS{Hour: 23, Minute: 59, Second: 59}

// NewHMS returns a validated time of day.
func NewHMS(hour, minute, second int) (HMS, error) {
	h := HMS{Hour: hour, Minute: minute, Second: second}
	if err := h.Validate(); err != nil {
		return HMS{}, err
	}
	return h, nil
}

// ParseHMS parses "H", "H:MM" or "H:MM:SS".
func ParseHMS(s string) (HMS, error) {
	h, err := parseClock(s)
	if err != nil {
		return HMS{}, err
	}
	if err := h.Validate(); err != nil {
		return HMS{}, err
	}
	return h, nil
}

// parseClock splits a clock string without range checks; TZ offsets and
// transition times reuse it and allow hours outside 0..23.
func parseClock(s string) (HMS, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return HMS{}, fmt.Errorf("%w: time %q is not H[:MM[:SS]]", ErrInvalidValue, s)
	}
	var values [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return HMS{}, fmt.Errorf("%w: time %q is not H[:MM[:SS]]", ErrInvalidValue, s)
		}
		values[i] = v
	}
	return HMS{Hour: values[0], Minute: values[1], Second: values[2]}, nil
}

// Validate checks the fields are within a single day.
func (h HMS) Validate() error {
	if h.Hour < 0 || h.Hour > 23 || h.Minute < 0 || h.Minute > 59 || h.Second < 0 || h.Second > 59 {
		return fmt.Errorf("%w: time of day %d:%02d:%02d out of range", ErrInvalidValue, h.Hour, h.Minute, h.Second)
	}
	return nil
}

// Seconds returns the number of seconds since midnight.
func (h HMS) Seconds() int {
	return h.Hour*3600 + h.Minute*60 + h.Second
}

// Duration returns the offset from midnight.
func (h HMS) Duration() time.Duration {
	return time.Duration(h.Seconds()) * time.Second
}

// HMSFromSeconds converts seconds since midnight; values outside one day wrap.
func HMSFromSeconds(secs int) HMS {
	secs %= 86400
	if secs < 0 {
		secs += 86400
	}
	return HMS{Hour: secs / 3600, Minute: secs / 60 % 60, Second: secs % 60}
}

// Compare returns -1, 0 or +1.
func (h HMS) Compare(other HMS) int {
	return sign(h.Seconds() - other.Seconds())
}

func (h HMS) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", h.Hour, h.Minute, h.Second)
}
