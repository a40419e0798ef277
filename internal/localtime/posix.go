package localtime

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeChange is a POSIX "Mm.w.d[/time]" transition rule: the d-th weekday
// (0 = Sunday) of week w (1..5, 5 meaning the last one) of month m, at the
// given number of seconds after local midnight. The time may be negative or
// exceed one day.
type TimeChange struct {
	Month     int
	Week      int
	DayOfWeek int
	Time      int
}

// ParseTimeChange parses a transition rule such as "M3.2.0/2:00:00". When the
// time is omitted the change happens at 00:00:00.
func ParseTimeChange(s string) (TimeChange, error) {
	if !strings.HasPrefix(s, "M") {
		return TimeChange{}, fmt.Errorf("%w: transition %q must use the Mm.w.d form", ErrConfig, s)
	}
	rule, at, hasTime := strings.Cut(s[1:], "/")
	fields := strings.Split(rule, ".")
	if len(fields) != 3 {
		return TimeChange{}, fmt.Errorf("%w: transition %q must use the Mm.w.d form", ErrConfig, s)
	}
	var tc TimeChange
	for i, dst := range []*int{&tc.Month, &tc.Week, &tc.DayOfWeek} {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return TimeChange{}, fmt.Errorf("%w: transition %q: %v", ErrConfig, s, err)
		}
		*dst = v
	}
	if tc.Month < 1 || tc.Month > 12 || tc.Week < 1 || tc.Week > 5 || tc.DayOfWeek < 0 || tc.DayOfWeek > 6 {
		return TimeChange{}, fmt.Errorf("%w: transition %q out of range", ErrConfig, s)
	}
	if hasTime {
		secs, err := parseSignedClock(at)
		if err != nil {
			return TimeChange{}, fmt.Errorf("%w: transition %q: %v", ErrConfig, s, err)
		}
		tc.Time = secs
	}
	return tc, nil
}

// Date returns the calendar date of the transition in the given year.
func (tc TimeChange) Date(year int) YMD {
	first := YMD{Year: year, Month: tc.Month, Day: 1}
	day := 1 + (tc.DayOfWeek-int(first.Weekday())+7)%7 + (tc.Week-1)*7
	for day > LastDayOfMonth(year, tc.Month) {
		day -= 7
	}
	return YMD{Year: year, Month: tc.Month, Day: day}
}

// instant returns the UTC seconds of the transition in the given year, when
// the wall clock before the change runs at offset seconds east of UTC.
func (tc TimeChange) instant(year, offset int) int64 {
	return tc.Date(year).civil().Unix() + int64(tc.Time) - int64(offset)
}

func (tc TimeChange) String() string {
	return fmt.Sprintf("M%d.%d.%d/%s", tc.Month, tc.Week, tc.DayOfWeek, formatSignedClock(tc.Time))
}

// PosixRules is a RuleProvider described by a POSIX TZ string, for example
// "EST5EDT,M3.2.0/2:00:00,M11.1.0/2:00:00". Offsets in the string count hours
// west of UTC; the Offset values it reports count seconds east of UTC.
type PosixRules struct {
	raw string

	Standard Offset
	Daylight Offset
	DSTStart TimeChange
	DSTEnd   TimeChange
	hasDST   bool
}

// ParsePosix parses a POSIX TZ string.
func ParsePosix(s string) (*PosixRules, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty timezone", ErrConfig)
	}
	spec, rules, _ := strings.Cut(s, ",")

	p := &PosixRules{raw: s}
	name, rest, err := cutZoneName(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrConfig, s, err)
	}
	offsetStr, rest := cutOffset(rest)
	if offsetStr == "" {
		return nil, fmt.Errorf("%w: %q has no UTC offset", ErrConfig, s)
	}
	west, err := parseSignedClock(offsetStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrConfig, s, err)
	}
	p.Standard = Offset{Seconds: -west, Name: name}

	if rest != "" {
		dstName, tail, err := cutZoneName(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrConfig, s, err)
		}
		p.Daylight = Offset{Seconds: p.Standard.Seconds + 3600, DST: true, Name: dstName}
		if tail != "" {
			dstOffset, extra := cutOffset(tail)
			if extra != "" || dstOffset == "" {
				return nil, fmt.Errorf("%w: %q has trailing characters %q", ErrConfig, s, tail)
			}
			w, err := parseSignedClock(dstOffset)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrConfig, s, err)
			}
			p.Daylight.Seconds = -w
		}
		p.hasDST = true
	}

	switch {
	case rules == "" && p.hasDST:
		return nil, fmt.Errorf("%w: %q names a DST zone without transition rules", ErrConfig, s)
	case rules != "" && !p.hasDST:
		return nil, fmt.Errorf("%w: %q has transition rules but no DST zone", ErrConfig, s)
	case rules != "":
		start, end, ok := strings.Cut(rules, ",")
		if !ok {
			return nil, fmt.Errorf("%w: %q needs both a DST start and end rule", ErrConfig, s)
		}
		if p.DSTStart, err = ParseTimeChange(start); err != nil {
			return nil, err
		}
		if p.DSTEnd, err = ParseTimeChange(end); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// HasDST reports whether the zone observes daylight saving time.
func (p *PosixRules) HasDST() bool { return p.hasDST }

// Transitions returns the UTC instants at which DST starts and ends in the
// given year.
func (p *PosixRules) Transitions(year int) (dstStart, dstEnd time.Time) {
	// DST starts on the standard wall clock and ends on the daylight one.
	start := p.DSTStart.instant(year, p.Standard.Seconds)
	end := p.DSTEnd.instant(year, p.Daylight.Seconds)
	return time.Unix(start, 0).UTC(), time.Unix(end, 0).UTC()
}

// OffsetAt implements RuleProvider.
func (p *PosixRules) OffsetAt(t time.Time) Offset {
	if !p.hasDST {
		return p.Standard
	}
	start, end := p.Transitions(t.UTC().Year())
	var inDST bool
	if start.Before(end) {
		// Northern hemisphere: DST in the middle of the year.
		inDST = !t.Before(start) && t.Before(end)
	} else {
		// Southern hemisphere: DST spans the new year.
		inDST = t.Before(end) || !t.Before(start)
	}
	if inDST {
		return p.Daylight
	}
	return p.Standard
}

func (p *PosixRules) String() string { return p.raw }

// cutZoneName splits a zone abbreviation, either alphabetic or quoted in
// angle brackets, from the front of s.
func cutZoneName(s string) (name, rest string, err error) {
	if strings.HasPrefix(s, "<") {
		end := strings.IndexByte(s, '>')
		if end < 0 {
			return "", "", fmt.Errorf("unterminated zone name")
		}
		return s[1:end], s[end+1:], nil
	}
	i := 0
	for i < len(s) && (s[i] >= 'A' && s[i] <= 'Z' || s[i] >= 'a' && s[i] <= 'z') {
		i++
	}
	if i < 3 {
		return "", "", fmt.Errorf("zone name must have at least three letters")
	}
	return s[:i], s[i:], nil
}

// cutOffset splits a leading [+-]hh[:mm[:ss]] from s.
func cutOffset(s string) (offset, rest string) {
	i := 0
	for i < len(s) && (s[i] == '+' || s[i] == '-' || s[i] == ':' || s[i] >= '0' && s[i] <= '9') {
		i++
	}
	return s[:i], s[i:]
}

// parseSignedClock parses [+-]h[:mm[:ss]] into seconds. The sign applies to
// the whole value.
func parseSignedClock(s string) (int, error) {
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	h, err := parseClock(s)
	if err != nil {
		return 0, err
	}
	if h.Hour < 0 || h.Minute < 0 || h.Minute > 59 || h.Second < 0 || h.Second > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidValue, s)
	}
	secs := h.Hour*3600 + h.Minute*60 + h.Second
	if neg {
		secs = -secs
	}
	return secs, nil
}

func formatSignedClock(secs int) string {
	prefix := ""
	if secs < 0 {
		prefix, secs = "-", -secs
	}
	return fmt.Sprintf("%s%d:%02d:%02d", prefix, secs/3600, secs/60%60, secs%60)
}
