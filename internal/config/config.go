package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeO7/LocalWake/internal/localtime"
	"github.com/MikeO7/LocalWake/internal/schedule"
)

// Config represents the complete LocalWake configuration
type Config struct {
	Timezone      string           `yaml:"timezone"`
	LookaheadDays int              `yaml:"lookahead_days"`
	IdleRecheck   time.Duration    `yaml:"idle_recheck"`
	Schedules     []ScheduleConfig `yaml:"schedules"`
	Log           LogConfig        `yaml:"log"`

	// Runtime flags (not in YAML)
	RunOnce bool
}

// ScheduleConfig is one named schedule
type ScheduleConfig struct {
	Name  string       `yaml:"name"`
	Items []ItemConfig `yaml:"items"`
}

// ItemConfig describes a schedule item. Recurring items pick their dates
// with days, day_of_month or week plus a single day, and may add only_on
// dates; one-shot items set date instead.
type ItemConfig struct {
	Label      string        `yaml:"label"`
	Categories []string      `yaml:"categories"`
	Days       []string      `yaml:"days"`
	DayOfMonth *int          `yaml:"day_of_month"`
	Week       int           `yaml:"week"`
	Start      string        `yaml:"start"`
	End        string        `yaml:"end"`
	Every      time.Duration `yaml:"every"`
	OnlyOn     []string      `yaml:"only_on"`
	Except     []string      `yaml:"except"`
	Date       string        `yaml:"date"`
	Time       string        `yaml:"time"`
	Expires    string        `yaml:"expires"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level      string `yaml:"level"`
	JSON       bool   `yaml:"json"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a config with sensible defaults
func Default() Config {
	return Config{
		Timezone:      "UTC",
		LookaheadDays: schedule.DefaultLookaheadDays,
		IdleRecheck:   time.Hour,
		Schedules:     []ScheduleConfig{},
		Log: LogConfig{
			Level:      "info",
			JSON:       false,
			MaxSize:    10,
			MaxBackups: 1,
		},
		RunOnce: false,
	}
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (Config, error) {
	cfg := Default()

	// If file doesn't exist, return defaults
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// ApplyEnvironmentOverrides applies environment variable overrides to the config
func (c *Config) ApplyEnvironmentOverrides() {
	// LOCALWAKE_TIMEZONE wins over TZ, which devices often set to a POSIX rule
	if val := os.Getenv("LOCALWAKE_TIMEZONE"); val != "" {
		c.Timezone = val
	} else if val := os.Getenv("TZ"); val != "" {
		c.Timezone = val
	}

	if val := os.Getenv("LOCALWAKE_LOOKAHEAD_DAYS"); val != "" {
		if days, err := strconv.Atoi(val); err == nil {
			c.LookaheadDays = days
		}
	}

	if val := os.Getenv("LOCALWAKE_IDLE_RECHECK"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			c.IdleRecheck = duration
		}
	}

	if val := os.Getenv("LOCALWAKE_LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}

	if val := os.Getenv("LOCALWAKE_LOG_JSON"); val != "" {
		if jsonLog, err := strconv.ParseBool(val); err == nil {
			c.Log.JSON = jsonLog
		}
	}

	if val := os.Getenv("LOCALWAKE_LOG_FILE"); val != "" {
		c.Log.File = val
	}

	if val := os.Getenv("LOCALWAKE_LOG_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			c.Log.MaxSize = size
		}
	}

	if val := os.Getenv("LOCALWAKE_LOG_MAX_BACKUPS"); val != "" {
		if backups, err := strconv.Atoi(val); err == nil {
			c.Log.MaxBackups = backups
		}
	}
}

// Validate checks if the configuration is valid. Schedule definitions are
// checked in full by building them, so malformed entries surface here rather
// than at query time.
func (c *Config) Validate() error {
	if _, err := localtime.LoadRules(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	if c.LookaheadDays < schedule.MinLookaheadDays {
		return fmt.Errorf("lookahead_days must be at least %d", schedule.MinLookaheadDays)
	}

	if c.IdleRecheck <= 0 {
		return fmt.Errorf("idle_recheck must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	if c.Log.MaxSize < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("log.max_size and log.max_backups cannot be negative")
	}

	seen := make(map[string]bool)
	for i, sc := range c.Schedules {
		if seen[sc.Name] {
			return fmt.Errorf("schedules[%d]: duplicate name %q", i, sc.Name)
		}
		seen[sc.Name] = true
		if _, err := sc.Build(); err != nil {
			return fmt.Errorf("schedules[%d]: %w", i, err)
		}
	}

	return nil
}

// NewManager builds a schedule manager from the configuration
func (c *Config) NewManager() (*schedule.Manager, error) {
	rules, err := localtime.LoadRules(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	conv, err := localtime.NewConverter(rules)
	if err != nil {
		return nil, err
	}
	mgr, err := schedule.NewManager(conv, schedule.WithLookahead(c.LookaheadDays))
	if err != nil {
		return nil, err
	}
	if err := c.Sync(mgr); err != nil {
		return nil, err
	}
	return mgr, nil
}

// Sync makes mgr hold exactly the configured schedules. Every definition is
// built before mgr is touched, so a bad entry leaves it unchanged.
func (c *Config) Sync(mgr *schedule.Manager) error {
	built := make([]*schedule.Schedule, 0, len(c.Schedules))
	keep := make(map[string]bool, len(c.Schedules))
	for _, sc := range c.Schedules {
		if keep[sc.Name] {
			return fmt.Errorf("%w: duplicate schedule name %q", schedule.ErrInvalidSchedule, sc.Name)
		}
		s, err := sc.Build()
		if err != nil {
			return err
		}
		built = append(built, s)
		keep[sc.Name] = true
	}
	for _, name := range mgr.Names() {
		if !keep[name] {
			mgr.Remove(name)
		}
	}
	for _, s := range built {
		if err := mgr.Replace(s); err != nil {
			return err
		}
	}
	return nil
}

// Build converts the definition into a schedule
func (sc ScheduleConfig) Build() (*schedule.Schedule, error) {
	items := make([]schedule.Item, 0, len(sc.Items))
	for i, ic := range sc.Items {
		it, err := ic.Build()
		if err != nil {
			return nil, fmt.Errorf("schedule %q item %d: %w", sc.Name, i, err)
		}
		items = append(items, it)
	}
	return schedule.New(sc.Name, items...)
}

// Build converts the definition into a schedule item
func (ic ItemConfig) Build() (schedule.Item, error) {
	opts := []schedule.ItemOption{schedule.WithLabel(ic.Label)}
	for _, name := range ic.Categories {
		c, err := schedule.ParseCategory(name)
		if err != nil {
			return schedule.Item{}, err
		}
		opts = append(opts, schedule.WithCategories(c))
	}

	var expires localtime.YMD
	if ic.Expires != "" {
		d, err := localtime.ParseYMD(ic.Expires)
		if err != nil {
			return schedule.Item{}, invalid("expires", err)
		}
		expires = d
	}

	if ic.Date != "" {
		if len(ic.Days) > 0 || ic.DayOfMonth != nil || ic.Week != 0 || ic.Start != "" || ic.End != "" ||
			ic.Every != 0 || len(ic.OnlyOn) > 0 || len(ic.Except) > 0 {
			return schedule.Item{}, fmt.Errorf("%w: date cannot be combined with recurring fields", schedule.ErrInvalidSchedule)
		}
		return ic.buildOneShot(expires, opts)
	}
	return ic.buildRecurring(expires, opts)
}

func (ic ItemConfig) buildOneShot(expires localtime.YMD, opts []schedule.ItemOption) (schedule.Item, error) {
	date, err := localtime.ParseYMD(ic.Date)
	if err != nil {
		return schedule.Item{}, invalid("date", err)
	}
	at := localtime.Midnight
	if ic.Time != "" {
		if at, err = localtime.ParseHMS(ic.Time); err != nil {
			return schedule.Item{}, invalid("time", err)
		}
	}
	return schedule.NewOneShot(schedule.OnDate(date, at).Until(expires), opts...)
}

func (ic ItemConfig) buildRecurring(expires localtime.YMD, opts []schedule.ItemOption) (schedule.Item, error) {
	if ic.Time != "" {
		return schedule.Item{}, fmt.Errorf("%w: time is only valid with date; use start for recurring items", schedule.ErrInvalidSchedule)
	}
	rule, err := ic.dateRule()
	if err != nil {
		return schedule.Item{}, err
	}

	window := schedule.FullDay()
	if ic.Start != "" {
		start, err := localtime.ParseHMS(ic.Start)
		if err != nil {
			return schedule.Item{}, invalid("start", err)
		}
		window = schedule.InstantAt(start)
	}
	if ic.End != "" {
		end, err := localtime.ParseHMS(ic.End)
		if err != nil {
			return schedule.Item{}, invalid("end", err)
		}
		window.End = end
	}
	window = window.Every(ic.Every).Until(expires)

	for _, s := range ic.OnlyOn {
		d, err := localtime.ParseYMD(s)
		if err != nil {
			return schedule.Item{}, invalid("only_on", err)
		}
		opts = append(opts, schedule.WithOnlyOnDates(d))
	}
	for _, s := range ic.Except {
		d, err := localtime.ParseYMD(s)
		if err != nil {
			return schedule.Item{}, invalid("except", err)
		}
		opts = append(opts, schedule.WithExceptDates(d))
	}
	return schedule.NewRecurring(rule, window, opts...)
}

// dateRule picks the rule selecting a recurring item's dates. Without days
// or day_of_month an item runs every day, unless only_on lists its dates.
func (ic ItemConfig) dateRule() (schedule.DateRule, error) {
	if ic.DayOfMonth != nil {
		if len(ic.Days) > 0 || ic.Week != 0 {
			return nil, fmt.Errorf("%w: day_of_month cannot be combined with days or week", schedule.ErrInvalidSchedule)
		}
		return schedule.DayOfMonth(*ic.DayOfMonth), nil
	}

	if len(ic.Days) == 0 {
		if ic.Week != 0 {
			return nil, fmt.Errorf("%w: week needs exactly one day in days", schedule.ErrInvalidSchedule)
		}
		if len(ic.OnlyOn) > 0 {
			return localtime.DayOfWeekMask(0), nil
		}
		return localtime.EveryDay, nil
	}

	days, err := localtime.ParseDayOfWeekMask(ic.Days...)
	if err != nil {
		return nil, invalid("days", err)
	}
	if ic.Week != 0 {
		return schedule.OrdinalOf(ic.Week, days)
	}
	return days, nil
}

func invalid(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", schedule.ErrInvalidSchedule, field, err)
}
