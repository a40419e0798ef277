package schedule

import "errors"

// ErrInvalidSchedule is returned when a schedule definition is malformed:
// an empty day mask, an out of range time or date, a range that ends before
// it starts, or a duplicate schedule name.
var ErrInvalidSchedule = errors.New("invalid schedule")
