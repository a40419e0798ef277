package schedule

import (
	"fmt"
	"slices"
	"strings"

	"github.com/MikeO7/LocalWake/internal/localtime"
)

// DefaultLookaheadDays bounds how far ahead a next-occurrence search scans.
const DefaultLookaheadDays = 366

// MinLookaheadDays is the smallest window a Manager accepts: today and
// tomorrow.
const MinLookaheadDays = 1

// Kind identifies which variant an Item holds.
type Kind uint8

const (
	KindRecurring Kind = iota + 1
	KindOneShot
)

func (k Kind) String() string {
	switch k {
	case KindRecurring:
		return "recurring"
	case KindOneShot:
		return "one-shot"
	}
	return "invalid"
}

// Category tags items with the purpose of a wake so callers can ask for the
// next wake of one kind only.
type Category uint8

const (
	CategoryFullWake Category = 1 << iota
	CategoryDataCapture
)

// ParseCategory accepts "full_wake" or "data_capture" and a few aliases.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "full_wake", "fullwake", "wake":
		return CategoryFullWake, nil
	case "data_capture", "datacapture", "capture":
		return CategoryDataCapture, nil
	}
	return 0, fmt.Errorf("%w: unknown category %q", ErrInvalidSchedule, s)
}

// Has reports whether all bits of other are set.
func (c Category) Has(other Category) bool {
	return other != 0 && c&other == other
}

func (c Category) String() string {
	var parts []string
	if c.Has(CategoryFullWake) {
		parts = append(parts, "full_wake")
	}
	if c.Has(CategoryDataCapture) {
		parts = append(parts, "data_capture")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Item is one entry of a schedule: either a recurring window on the dates a
// DateRule selects or a one-shot restricted date. Items are immutable once
// built.
type Item struct {
	kind       Kind
	label      string
	categories Category

	rule   DateRule
	window TimeRange
	only   []localtime.YMD
	except []localtime.YMD

	once RestrictedDate
}

// ItemOption configures an Item at construction time.
type ItemOption func(*Item)

// WithLabel names the item in logs and wake results.
func WithLabel(label string) ItemOption {
	return func(it *Item) { it.label = label }
}

// WithCategories tags the item.
func WithCategories(c Category) ItemOption {
	return func(it *Item) { it.categories |= c }
}

// WithExceptDates skips the given dates of a recurring item. Except dates
// win over every other date selection.
func WithExceptDates(dates ...localtime.YMD) ItemOption {
	return func(it *Item) { it.except = append(it.except, dates...) }
}

// WithOnlyOnDates adds dates a recurring item is active on in addition to
// those its rule selects. With an empty weekday mask the item fires on these
// dates alone.
func WithOnlyOnDates(dates ...localtime.YMD) ItemOption {
	return func(it *Item) { it.only = append(it.only, dates...) }
}

// NewRecurring returns an item that fires inside window on every date rule
// matches.
func NewRecurring(rule DateRule, window TimeRange, opts ...ItemOption) (Item, error) {
	if err := window.Validate(); err != nil {
		return Item{}, err
	}
	if v, ok := rule.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return Item{}, err
		}
	}
	it := Item{kind: KindRecurring, rule: rule, window: window}
	for _, opt := range opts {
		opt(&it)
	}
	if noDates(rule) && len(it.only) == 0 {
		return Item{}, fmt.Errorf("%w: item selects no dates", ErrInvalidSchedule)
	}
	for _, d := range it.only {
		if err := d.Validate(); err != nil {
			return Item{}, fmt.Errorf("%w: only-on date: %v", ErrInvalidSchedule, err)
		}
	}
	for _, d := range it.except {
		if err := d.Validate(); err != nil {
			return Item{}, fmt.Errorf("%w: except date: %v", ErrInvalidSchedule, err)
		}
	}
	it.only = slices.Clone(it.only)
	it.except = slices.Clone(it.except)
	return it, nil
}

func noDates(rule DateRule) bool {
	if rule == nil {
		return true
	}
	m, ok := rule.(localtime.DayOfWeekMask)
	return ok && m.IsEmpty()
}

// NewOneShot returns an item that fires once, at date.
func NewOneShot(date RestrictedDate, opts ...ItemOption) (Item, error) {
	if err := date.Validate(); err != nil {
		return Item{}, err
	}
	it := Item{kind: KindOneShot, once: date}
	for _, opt := range opts {
		opt(&it)
	}
	if len(it.except) > 0 || len(it.only) > 0 {
		return Item{}, fmt.Errorf("%w: except and only-on dates only apply to recurring items", ErrInvalidSchedule)
	}
	return it, nil
}

func (it Item) Kind() Kind                   { return it.kind }
func (it Item) Label() string                { return it.label }
func (it Item) Categories() Category         { return it.categories }
func (it Item) Rule() DateRule               { return it.rule }
func (it Item) Window() TimeRange            { return it.window }
func (it Item) Once() RestrictedDate         { return it.once }
func (it Item) OnlyOnDates() []localtime.YMD { return slices.Clone(it.only) }
func (it Item) ExceptDates() []localtime.YMD { return slices.Clone(it.except) }

// Valid reports whether the item was built by a constructor.
func (it Item) Valid() bool {
	return it.kind == KindRecurring || it.kind == KindOneShot
}

// Expires returns the last active date, if any.
func (it Item) Expires() (localtime.YMD, bool) {
	var d localtime.YMD
	switch it.kind {
	case KindRecurring:
		d = it.window.Expires
	case KindOneShot:
		d = it.once.Expires
	}
	return d, !d.IsZero()
}

// Next returns the earliest occurrence strictly after the given local time,
// scanning at most lookaheadDays days past its date.
func (it Item) Next(after localtime.Value, lookaheadDays int) (localtime.Value, bool) {
	switch it.kind {
	case KindRecurring:
		return it.nextRecurring(after, lookaheadDays)
	case KindOneShot:
		v, ok := it.once.Next(after)
		if !ok || v.Date().After(after.Date().AddDays(max(lookaheadDays, 0))) {
			return localtime.Value{}, false
		}
		return v, true
	}
	return localtime.Value{}, false
}

func (it Item) nextRecurring(after localtime.Value, lookaheadDays int) (localtime.Value, bool) {
	start := after.Date()
	for i := 0; i <= lookaheadDays; i++ {
		d := start.AddDays(i)
		if it.window.Expired(d) {
			return localtime.Value{}, false
		}
		if !it.ActiveOn(d) {
			continue
		}
		if i > 0 {
			return localtime.At(d, it.window.First()), true
		}
		if h, ok := it.window.NextAfter(after.Clock()); ok {
			return localtime.At(d, h), true
		}
	}
	return localtime.Value{}, false
}

// ActiveOn reports whether a recurring item may fire on d.
func (it Item) ActiveOn(d localtime.YMD) bool {
	if it.kind != KindRecurring || slices.Contains(it.except, d) {
		return false
	}
	return (it.rule != nil && it.rule.Matches(d)) || slices.Contains(it.only, d)
}

func (it Item) String() string {
	var s string
	switch it.kind {
	case KindRecurring:
		rule := "none"
		if it.rule != nil {
			rule = it.rule.String()
		}
		s = rule + " " + it.window.String()
		if len(it.only) > 0 {
			s += fmt.Sprintf(" (+%d dates)", len(it.only))
		}
	case KindOneShot:
		s = "once " + it.once.String()
	default:
		return "invalid item"
	}
	if it.label != "" {
		s = it.label + ": " + s
	}
	return s
}
