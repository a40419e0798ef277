package schedule

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/MikeO7/LocalWake/internal/localtime"
	"github.com/MikeO7/LocalWake/pkg/log"
)

// maxResolveSteps bounds how often a candidate that turns out not to be in
// the future is skipped before a query gives up on an item.
const maxResolveSteps = 1500

// Wake is the answer to a next-wake query.
type Wake struct {
	Schedule string
	// Index is the item's position within its schedule.
	Index int
	Item  Item

	// Scheduled is the wall time the item asked for; Local is what the local
	// clock reads at At. They differ when Scheduled fell in a DST gap.
	Scheduled localtime.Value
	Local     localtime.Value
	At        time.Time
}

// Manager owns a set of named schedules and answers next-wake queries for
// them. It is safe for concurrent use; the lock covers only the name table,
// queries run on a snapshot.
type Manager struct {
	conv      *localtime.Converter
	lookahead int

	mu     sync.Mutex
	byName map[string]*Schedule
	order  []string
}

// Option configures a Manager.
type Option func(*Manager)

// WithLookahead sets the number of days a search scans ahead.
func WithLookahead(days int) Option {
	return func(m *Manager) { m.lookahead = days }
}

// NewManager returns an empty manager using conv for UTC conversions.
func NewManager(conv *localtime.Converter, opts ...Option) (*Manager, error) {
	if conv == nil || conv.Rules() == nil {
		return nil, fmt.Errorf("%w: no timezone rule provider configured", localtime.ErrConfig)
	}
	m := &Manager{
		conv:      conv,
		lookahead: DefaultLookaheadDays,
		byName:    make(map[string]*Schedule),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.lookahead < MinLookaheadDays {
		return nil, fmt.Errorf("%w: lookahead %d days is below the minimum of %d", ErrInvalidSchedule, m.lookahead, MinLookaheadDays)
	}
	return m, nil
}

// Converter returns the converter the manager uses.
func (m *Manager) Converter() *localtime.Converter { return m.conv }

// LookaheadDays returns the configured search bound.
func (m *Manager) LookaheadDays() int { return m.lookahead }

// Add registers a schedule. Names must be unique.
func (m *Manager) Add(s *Schedule) error {
	if s == nil {
		return fmt.Errorf("%w: nil schedule", ErrInvalidSchedule)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[s.name]; exists {
		return fmt.Errorf("%w: duplicate schedule name %q", ErrInvalidSchedule, s.name)
	}
	m.byName[s.name] = s
	m.order = append(m.order, s.name)
	log.Debugf("Added schedule %q with %d items", s.name, len(s.items))
	return nil
}

// Replace registers s, swapping out any schedule with the same name while
// keeping its position in iteration order.
func (m *Manager) Replace(s *Schedule) error {
	if s == nil {
		return fmt.Errorf("%w: nil schedule", ErrInvalidSchedule)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[s.name]; !exists {
		m.order = append(m.order, s.name)
	}
	m.byName[s.name] = s
	log.Debugf("Replaced schedule %q with %d items", s.name, len(s.items))
	return nil
}

// Remove deletes the named schedule and reports whether it existed.
func (m *Manager) Remove(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[name]; !exists {
		return false
	}
	delete(m.byName, name)
	m.order = slices.DeleteFunc(m.order, func(n string) bool { return n == name })
	log.Debugf("Removed schedule %q", name)
	return true
}

// Names returns schedule names in iteration order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.order)
}

// ScheduleByName looks up a schedule.
func (m *Manager) ScheduleByName(name string) (*Schedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byName[name]
	return s, ok
}

func (m *Manager) snapshot() []*Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Schedule, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.byName[name])
	}
	return out
}

// NextWake returns the soonest occurrence across all schedules.
func (m *Manager) NextWake(now time.Time) (Wake, bool) {
	return m.NextMatching(now, nil)
}

// NextFullWake returns the soonest occurrence among items tagged full wake.
func (m *Manager) NextFullWake(now time.Time) (Wake, bool) {
	return m.NextMatching(now, ByCategory(CategoryFullWake))
}

// NextDataCapture returns the soonest occurrence among items tagged data
// capture.
func (m *Manager) NextDataCapture(now time.Time) (Wake, bool) {
	return m.NextMatching(now, ByCategory(CategoryDataCapture))
}

// NextTimeByName returns the soonest occurrence of one schedule.
func (m *Manager) NextTimeByName(name string, now time.Time) (Wake, bool) {
	s, ok := m.ScheduleByName(name)
	if !ok {
		return Wake{}, false
	}
	return m.earliest(now, []*Schedule{s}, nil)
}

// NextMatching returns the soonest occurrence among items accepted by
// filter. Ties go to the schedule added first, then to the item defined
// first.
func (m *Manager) NextMatching(now time.Time, filter Filter) (Wake, bool) {
	return m.earliest(now, m.snapshot(), filter)
}

// NextPerSchedule returns the next occurrence of every schedule that has
// one, in iteration order.
func (m *Manager) NextPerSchedule(now time.Time) []Wake {
	var out []Wake
	for _, s := range m.snapshot() {
		if w, ok := m.earliest(now, []*Schedule{s}, nil); ok {
			out = append(out, w)
		}
	}
	return out
}

// NextAll returns every occurrence due at the soonest instant across all
// schedules, in tie-break order. Items sharing a trigger time all fire.
func (m *Manager) NextAll(now time.Time) []Wake {
	return m.collect(now, m.snapshot(), nil)
}

func (m *Manager) earliest(now time.Time, schedules []*Schedule, filter Filter) (Wake, bool) {
	wakes := m.collect(now, schedules, filter)
	if len(wakes) == 0 {
		return Wake{}, false
	}
	return wakes[0], true
}

// collect returns the occurrences tied for the soonest instant. Ties keep
// schedule order, then item order.
func (m *Manager) collect(now time.Time, schedules []*Schedule, filter Filter) []Wake {
	cursor, limit, err := m.searchStart(now)
	if err != nil {
		log.ErrorErr("Failed to convert current time to local time", err)
		return nil
	}
	var out []Wake
	for _, s := range schedules {
		for i, it := range s.items {
			if !filter.accepts(it) {
				continue
			}
			scheduled, at, ok := m.resolve(it, now, cursor, limit)
			if !ok {
				continue
			}
			w := Wake{Schedule: s.name, Index: i, Item: it, Scheduled: scheduled, At: at}
			switch {
			case len(out) == 0 || at.Before(out[0].At):
				out = append(out[:0], w)
			case at.Equal(out[0].At):
				out = append(out, w)
			}
		}
	}
	for i := range out {
		out[i].Local, _ = m.conv.ToLocal(out[i].At)
	}
	return out
}

// searchStart returns the local time item searches begin after and the last
// local date the lookahead window covers. Within one gap length after a
// spring-forward transition the wall clock as it would read without the jump
// is used, so occurrences scheduled inside the skipped hour are still found
// and moved forward rather than lost. The window is always measured from the
// real local date.
func (m *Manager) searchStart(now time.Time) (localtime.Value, localtime.YMD, error) {
	local, err := m.conv.ToLocal(now)
	if err != nil {
		return localtime.Value{}, localtime.YMD{}, err
	}
	limit := local.Date().AddDays(m.lookahead)

	current, _ := m.conv.Offset(now)
	earlier, _ := m.conv.Offset(now.Add(-24 * time.Hour))
	if earlier.Seconds >= current.Seconds {
		return local, limit, nil
	}
	gap := time.Duration(current.Seconds-earlier.Seconds) * time.Second
	if before, _ := m.conv.Offset(now.Add(-gap)); before.Seconds < current.Seconds {
		return localtime.FromWall(now.UTC().Add(time.Duration(before.Seconds) * time.Second)), limit, nil
	}
	return local, limit, nil
}

// resolve returns the first occurrence of it whose instant is strictly after
// now and whose date is no later than limit. Each wall time maps to one
// instant, the earlier one when a fall-back repeats it, so a candidate whose
// instant already passed is skipped rather than fired again on the second
// pass.
func (m *Manager) resolve(it Item, now time.Time, cursor localtime.Value, limit localtime.YMD) (localtime.Value, time.Time, bool) {
	for step := 0; step < maxResolveSteps; step++ {
		look := cursor.Date().DaysUntil(limit)
		if look < 0 {
			return localtime.Value{}, time.Time{}, false
		}
		cand, ok := it.Next(cursor, look)
		if !ok {
			return localtime.Value{}, time.Time{}, false
		}
		at, err := m.conv.ToUTC(cand)
		if err != nil {
			return localtime.Value{}, time.Time{}, false
		}
		if at.After(now) {
			return cand, at, true
		}
		cursor = cand
	}
	log.Warnf("Gave up resolving %s after %d steps", it, maxResolveSteps)
	return localtime.Value{}, time.Time{}, false
}
