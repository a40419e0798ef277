package schedule

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MikeO7/LocalWake/internal/localtime"
)

// Filter selects the items a query considers. A nil Filter selects all.
type Filter func(Item) bool

// ByCategory selects items tagged with c.
func ByCategory(c Category) Filter {
	return func(it Item) bool { return it.Categories().Has(c) }
}

func (f Filter) accepts(it Item) bool {
	return f == nil || f(it)
}

// Match is an item together with its next occurrence.
type Match struct {
	// Index is the item's position in definition order.
	Index int
	Item  Item
	At    localtime.Value
}

// Schedule is a named, ordered list of items. Definition order breaks ties.
type Schedule struct {
	name  string
	items []Item
}

// New returns a schedule holding a copy of items.
func New(name string, items ...Item) (*Schedule, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: schedule name is empty", ErrInvalidSchedule)
	}
	for i, it := range items {
		if !it.Valid() {
			return nil, fmt.Errorf("%w: schedule %q item %d was not built by a constructor", ErrInvalidSchedule, name, i)
		}
	}
	return &Schedule{name: name, items: slices.Clone(items)}, nil
}

func (s *Schedule) Name() string { return s.name }

// Items returns a copy of the items in definition order.
func (s *Schedule) Items() []Item { return slices.Clone(s.items) }

func (s *Schedule) Len() int { return len(s.items) }

// Next returns the item whose next occurrence after the given local time is
// earliest, among items accepted by filter. Ties go to the item defined
// first.
func (s *Schedule) Next(after localtime.Value, lookaheadDays int, filter Filter) (Match, bool) {
	var best Match
	found := false
	for i, it := range s.items {
		if !filter.accepts(it) {
			continue
		}
		at, ok := it.Next(after, lookaheadDays)
		if !ok {
			continue
		}
		if !found || at.Before(best.At) {
			best = Match{Index: i, Item: it, At: at}
			found = true
		}
	}
	return best, found
}
