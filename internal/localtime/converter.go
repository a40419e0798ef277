package localtime

import (
	"fmt"
	"strings"
	"time"
)

// Offset describes the local clock in effect at an instant.
type Offset struct {
	// Seconds east of UTC; New York standard time is -18000.
	Seconds int
	DST     bool
	Name    string
}

// RuleProvider reports the UTC offset in effect at any instant. Providers
// must be safe for concurrent use.
type RuleProvider interface {
	OffsetAt(t time.Time) Offset
}

// LocationRules adapts a *time.Location (an IANA zone) to RuleProvider.
type LocationRules struct {
	Location *time.Location
}

// OffsetAt implements RuleProvider.
func (l LocationRules) OffsetAt(t time.Time) Offset {
	lt := t.In(l.Location)
	name, secs := lt.Zone()
	return Offset{Seconds: secs, DST: lt.IsDST(), Name: name}
}

func (l LocationRules) String() string { return l.Location.String() }

// LoadRules resolves a timezone setting. It is parsed as a POSIX TZ string
// first, then looked up as an IANA name such as "Europe/Berlin". A setting
// with transition rules reports the POSIX parse error when both fail.
func LoadRules(tz string) (RuleProvider, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, fmt.Errorf("%w: no timezone configured", ErrConfig)
	}
	if tz != "UTC" && tz != "Local" {
		p, perr := ParsePosix(tz)
		if perr == nil {
			return p, nil
		}
		if strings.Contains(tz, ",") {
			return nil, perr
		}
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return LocationRules{Location: loc}, nil
}

// Converter maps UTC instants to local civil time and back using a
// RuleProvider. It holds no mutable state.
type Converter struct {
	rules RuleProvider
}

// NewConverter returns a Converter for the given rules.
func NewConverter(rules RuleProvider) (*Converter, error) {
	if rules == nil {
		return nil, fmt.Errorf("%w: no timezone rule provider configured", ErrConfig)
	}
	return &Converter{rules: rules}, nil
}

// Rules returns the configured provider.
func (c *Converter) Rules() RuleProvider {
	if c == nil {
		return nil
	}
	return c.rules
}

// Offset returns the offset in effect at t.
func (c *Converter) Offset(t time.Time) (Offset, error) {
	if c == nil || c.rules == nil {
		return Offset{}, fmt.Errorf("%w: no timezone rule provider configured", ErrConfig)
	}
	return c.rules.OffsetAt(t), nil
}

// ToLocal converts an instant to local time, truncating to whole seconds.
// The result never lies in a spring-forward gap. For wall times repeated by
// a fall-back transition, the earlier instant maps to the pre-transition
// offset and the later one is returned marked as repeated.
func (c *Converter) ToLocal(t time.Time) (Value, error) {
	off, err := c.Offset(t)
	if err != nil {
		return Value{}, err
	}
	unix := t.Unix()
	v := fromWallSeconds(unix + int64(off.Seconds))
	if r := c.resolve(v.wallSeconds()); r.ambiguous() && unix == r.later {
		v.repeated = true
	}
	return v, nil
}

// ToUTC converts a local time to the instant it denotes. Wall times inside a
// spring-forward gap are moved forward by the length of the gap. Wall times
// repeated by a fall-back transition resolve to the earlier instant unless v
// is marked repeated.
func (c *Converter) ToUTC(v Value) (time.Time, error) {
	if c == nil || c.rules == nil {
		return time.Time{}, fmt.Errorf("%w: no timezone rule provider configured", ErrConfig)
	}
	r := c.resolve(v.wallSeconds())
	switch {
	case r.gap:
		return time.Unix(r.earlier, 0).UTC(), nil
	case v.repeated && r.ambiguous():
		return time.Unix(r.later, 0).UTC(), nil
	}
	return time.Unix(r.earlier, 0).UTC(), nil
}

// Candidates returns every instant whose local time is v's wall time, in
// increasing order: none inside a gap, two inside a repeated hour, one
// otherwise.
func (c *Converter) Candidates(v Value) ([]time.Time, error) {
	if c == nil || c.rules == nil {
		return nil, fmt.Errorf("%w: no timezone rule provider configured", ErrConfig)
	}
	r := c.resolve(v.wallSeconds())
	switch {
	case r.gap:
		return nil, nil
	case r.ambiguous():
		return []time.Time{time.Unix(r.earlier, 0).UTC(), time.Unix(r.later, 0).UTC()}, nil
	}
	return []time.Time{time.Unix(r.earlier, 0).UTC()}, nil
}

type resolution struct {
	earlier int64
	later   int64
	gap     bool
}

func (r resolution) ambiguous() bool { return !r.gap && r.later != r.earlier }

// resolve finds the instants whose local wall clock reads wall. Offsets a day
// either side bracket any single transition near wall. Inside a gap, earlier
// holds the instant obtained with the pre-transition offset, which lands
// after the transition and so reads gap-length later on the wall clock.
func (c *Converter) resolve(wall int64) resolution {
	before := c.rules.OffsetAt(time.Unix(wall-86400, 0)).Seconds
	after := c.rules.OffsetAt(time.Unix(wall+86400, 0)).Seconds

	valid := func(off int) (int64, bool) {
		u := wall - int64(off)
		return u, c.rules.OffsetAt(time.Unix(u, 0)).Seconds == off
	}

	uBefore, okBefore := valid(before)
	if before == after {
		return resolution{earlier: uBefore, later: uBefore}
	}
	uAfter, okAfter := valid(after)
	switch {
	case okBefore && okAfter:
		if uAfter < uBefore {
			uBefore, uAfter = uAfter, uBefore
		}
		return resolution{earlier: uBefore, later: uAfter}
	case okBefore:
		return resolution{earlier: uBefore, later: uBefore}
	case okAfter:
		return resolution{earlier: uAfter, later: uAfter}
	}
	return resolution{earlier: uBefore, later: uBefore, gap: true}
}
