package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MikeO7/LocalWake/internal/localtime"
	"github.com/MikeO7/LocalWake/internal/schedule"
)

func TestDefault(t *testing.T) {
	t.Log("Testing default configuration values")

	cfg := Default()

	tests := []struct {
		name  string
		got   interface{}
		want  interface{}
		field string
	}{
		{"timezone", cfg.Timezone, "UTC", "Timezone"},
		{"lookahead", cfg.LookaheadDays, schedule.DefaultLookaheadDays, "LookaheadDays"},
		{"idle recheck", cfg.IdleRecheck, time.Hour, "IdleRecheck"},
		{"run once", cfg.RunOnce, false, "RunOnce"},
		{"log level", cfg.Log.Level, "info", "Log.Level"},
		{"log json", cfg.Log.JSON, false, "Log.JSON"},
		{"log max size", cfg.Log.MaxSize, 10, "Log.MaxSize"},
		{"log max backups", cfg.Log.MaxBackups, 1, "Log.MaxBackups"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("Default().%s = %v, want %v", tt.field, tt.got, tt.want)
				t.Logf("  Got:  %v (type: %T)", tt.got, tt.got)
				t.Logf("  Want: %v (type: %T)", tt.want, tt.want)
			} else {
				t.Logf("✓ %s correctly set to %v", tt.field, tt.want)
			}
		})
	}

	t.Run("defaults validate", func(t *testing.T) {
		if err := cfg.Validate(); err != nil {
			t.Errorf("Default().Validate() = %v, want nil", err)
		} else {
			t.Logf("✓ Default configuration is valid")
		}
	})
}

const sampleYAML = `
timezone: "EST5EDT,M3.2.0/2:00:00,M11.1.0/2:00:00"
lookahead_days: 30
idle_recheck: "15m"

schedules:
  - name: sensors
    items:
      - label: morning
        days: [mon, wed, fri]
        start: "06:00"
        categories: [full_wake]
      - label: sampling
        days: [weekdays]
        start: "08:00"
        end: "17:00"
        every: "30m"
        expires: "2030-12-31"
        except: ["2030-12-25"]
        categories: [data_capture]
  - name: maintenance
    items:
      - date: "2030-06-01"
        time: "03:15"
        categories: [full_wake, data_capture]

log:
  level: "debug"
  json: true
  file: "/var/log/localwake.log"
  max_size: 50
`

func TestLoadFromFile(t *testing.T) {
	t.Log("Testing configuration file loading")

	t.Run("non-existent file returns defaults", func(t *testing.T) {
		cfg, err := LoadFromFile("/nonexistent/path/config.yml")
		if err != nil {
			t.Errorf("LoadFromFile() error = %v, want nil for non-existent file", err)
		}
		if cfg.Timezone != "UTC" || cfg.LookaheadDays != schedule.DefaultLookaheadDays {
			t.Errorf("LoadFromFile() with non-existent file should return defaults, got %+v", cfg)
		} else {
			t.Logf("✓ Non-existent file correctly returns defaults")
		}
	})

	t.Run("valid yaml file", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "config.yml")
		if err := os.WriteFile(cfgPath, []byte(sampleYAML), 0644); err != nil {
			t.Fatalf("Failed to write test config: %v", err)
		}

		cfg, err := LoadFromFile(cfgPath)
		if err != nil {
			t.Fatalf("LoadFromFile() error = %v, want nil", err)
		}

		tests := []struct {
			name  string
			got   interface{}
			want  interface{}
			field string
		}{
			{"timezone", cfg.Timezone, "EST5EDT,M3.2.0/2:00:00,M11.1.0/2:00:00", "Timezone"},
			{"lookahead", cfg.LookaheadDays, 30, "LookaheadDays"},
			{"idle recheck", cfg.IdleRecheck, 15 * time.Minute, "IdleRecheck"},
			{"schedule count", len(cfg.Schedules), 2, "len(Schedules)"},
			{"first schedule", cfg.Schedules[0].Name, "sensors", "Schedules[0].Name"},
			{"item every", cfg.Schedules[0].Items[1].Every, 30 * time.Minute, "Schedules[0].Items[1].Every"},
			{"item expires", cfg.Schedules[0].Items[1].Expires, "2030-12-31", "Schedules[0].Items[1].Expires"},
			{"one-shot date", cfg.Schedules[1].Items[0].Date, "2030-06-01", "Schedules[1].Items[0].Date"},
			{"log level", cfg.Log.Level, "debug", "Log.Level"},
			{"log json", cfg.Log.JSON, true, "Log.JSON"},
			{"log file", cfg.Log.File, "/var/log/localwake.log", "Log.File"},
			{"log max size", cfg.Log.MaxSize, 50, "Log.MaxSize"},
			{"log max backups kept", cfg.Log.MaxBackups, 1, "Log.MaxBackups"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.got != tt.want {
					t.Errorf("%s = %v, want %v", tt.field, tt.got, tt.want)
				} else {
					t.Logf("✓ %s correctly loaded: %v", tt.field, tt.want)
				}
			})
		}

		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("invalid yaml returns error", func(t *testing.T) {
		cfgPath := filepath.Join(t.TempDir(), "bad.yml")
		invalidYAML := `
this is not valid yaml: [
  - broken
`
		if err := os.WriteFile(cfgPath, []byte(invalidYAML), 0644); err != nil {
			t.Fatalf("Failed to write bad config: %v", err)
		}

		if _, err := LoadFromFile(cfgPath); err == nil {
			t.Error("LoadFromFile() with invalid YAML should return error")
		} else {
			t.Logf("✓ Invalid YAML correctly returned error: %v", err)
		}
	})
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	t.Log("Testing environment variable overrides")

	tests := []struct {
		name     string
		envKey   string
		envValue string
		check    func(*Config) (interface{}, interface{}, string)
	}{
		{
			name:     "timezone override",
			envKey:   "LOCALWAKE_TIMEZONE",
			envValue: "America/New_York",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Timezone, "America/New_York", "Timezone"
			},
		},
		{
			name:     "TZ fallback",
			envKey:   "TZ",
			envValue: "CET-1CEST,M3.5.0,M10.5.0/3",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Timezone, "CET-1CEST,M3.5.0,M10.5.0/3", "Timezone"
			},
		},
		{
			name:     "lookahead override",
			envKey:   "LOCALWAKE_LOOKAHEAD_DAYS",
			envValue: "14",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.LookaheadDays, 14, "LookaheadDays"
			},
		},
		{
			name:     "invalid lookahead ignored",
			envKey:   "LOCALWAKE_LOOKAHEAD_DAYS",
			envValue: "soon",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.LookaheadDays, schedule.DefaultLookaheadDays, "LookaheadDays"
			},
		},
		{
			name:     "idle recheck override",
			envKey:   "LOCALWAKE_IDLE_RECHECK",
			envValue: "2h",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.IdleRecheck, 2 * time.Hour, "IdleRecheck"
			},
		},
		{
			name:     "log level override",
			envKey:   "LOCALWAKE_LOG_LEVEL",
			envValue: "debug",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Log.Level, "debug", "Log.Level"
			},
		},
		{
			name:     "log json override",
			envKey:   "LOCALWAKE_LOG_JSON",
			envValue: "true",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Log.JSON, true, "Log.JSON"
			},
		},
		{
			name:     "log file override",
			envKey:   "LOCALWAKE_LOG_FILE",
			envValue: "/tmp/lw.log",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Log.File, "/tmp/lw.log", "Log.File"
			},
		},
		{
			name:     "log max size override",
			envKey:   "LOCALWAKE_LOG_MAX_SIZE",
			envValue: "100",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Log.MaxSize, 100, "Log.MaxSize"
			},
		},
		{
			name:     "log max backups override",
			envKey:   "LOCALWAKE_LOG_MAX_BACKUPS",
			envValue: "5",
			check: func(c *Config) (interface{}, interface{}, string) {
				return c.Log.MaxBackups, 5, "Log.MaxBackups"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOCALWAKE_TIMEZONE", "")
			t.Setenv("TZ", "")
			t.Logf("  Setting %s=%s", tt.envKey, tt.envValue)
			t.Setenv(tt.envKey, tt.envValue)

			cfg := Default()
			cfg.ApplyEnvironmentOverrides()

			got, want, field := tt.check(&cfg)
			if got != want {
				t.Errorf("%s = %v, want %v", field, got, want)
				t.Logf("  Env var: %s=%s", tt.envKey, tt.envValue)
			} else {
				t.Logf("✓ %s correctly overridden to %v", field, want)
			}
		})
	}

	t.Run("LOCALWAKE_TIMEZONE takes priority over TZ", func(t *testing.T) {
		t.Setenv("TZ", "Europe/London")
		t.Setenv("LOCALWAKE_TIMEZONE", "America/Los_Angeles")

		cfg := Default()
		cfg.ApplyEnvironmentOverrides()

		if cfg.Timezone != "America/Los_Angeles" {
			t.Errorf("Timezone = %s, want America/Los_Angeles", cfg.Timezone)
		}
	})
}

func TestValidate(t *testing.T) {
	t.Log("Testing configuration validation")

	recurring := ItemConfig{Days: []string{"mon"}, Start: "06:00"}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"posix timezone", func(c *Config) { c.Timezone = "IST-2IDT,M3.4.4/26,M10.5.0" }, false},
		{"iana timezone", func(c *Config) { c.Timezone = "America/New_York" }, false},
		{"bad timezone", func(c *Config) { c.Timezone = "Not/A_Zone" }, true},
		{"dst name without rules", func(c *Config) { c.Timezone = "XST5XDT" }, true},
		{"zero lookahead", func(c *Config) { c.LookaheadDays = 0 }, true},
		{"one day lookahead", func(c *Config) { c.LookaheadDays = 1 }, false},
		{"zero idle recheck", func(c *Config) { c.IdleRecheck = 0 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, true},
		{"negative log size", func(c *Config) { c.Log.MaxSize = -1 }, true},
		{"valid schedule", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{recurring}}}
		}, false},
		{"duplicate schedule", func(c *Config) {
			c.Schedules = []ScheduleConfig{
				{Name: "a", Items: []ItemConfig{recurring}},
				{Name: "a", Items: []ItemConfig{recurring}},
			}
		}, true},
		{"unnamed schedule", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Items: []ItemConfig{recurring}}}
		}, true},
		{"unknown day", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Days: []string{"funday"}, Start: "06:00"}}}}
		}, true},
		{"range ends before start", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Start: "10:00", End: "09:00", Every: time.Hour}}}}
		}, true},
		{"interval below one minute", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Start: "10:00", End: "11:00", Every: 30 * time.Second}}}}
		}, true},
		{"one-shot with days", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Date: "2030-01-01", Days: []string{"mon"}}}}}
		}, true},
		{"time without date", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Time: "06:00"}}}}
		}, true},
		{"unknown category", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Start: "06:00", Categories: []string{"reboot"}}}}}
		}, true},
		{"invalid date", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Date: "2030-02-30"}}}}
		}, true},
		{"day of month with days", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{DayOfMonth: intPtr(1), Days: []string{"mon"}}}}}
		}, true},
		{"day of month out of range", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{DayOfMonth: intPtr(32)}}}}
		}, true},
		{"week with two days", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Week: 2, Days: []string{"mon", "tue"}}}}}
		}, true},
		{"week without days", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Week: 2}}}}
		}, true},
		{"week out of range", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Week: 6, Days: []string{"tue"}}}}}
		}, true},
		{"one-shot with only_on", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{Date: "2030-01-01", OnlyOn: []string{"2030-01-02"}}}}}
		}, true},
		{"bad only_on date", func(c *Config) {
			c.Schedules = []ScheduleConfig{{Name: "a", Items: []ItemConfig{{OnlyOn: []string{"2030-13-01"}}}}}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			} else {
				t.Logf("✓ Validate() error = %v", err)
			}
		})
	}
}

func TestItemConfigBuild(t *testing.T) {
	t.Log("Testing item definitions")

	t.Run("recurring defaults to every day at midnight", func(t *testing.T) {
		it, err := ItemConfig{}.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		if it.Kind() != schedule.KindRecurring || it.Rule() != localtime.EveryDay {
			t.Errorf("Build() = %v, want a recurring item on every day", it)
		}
		if it.Window() != schedule.FullDay() {
			t.Errorf("Window() = %v, want full day", it.Window())
		}
		t.Logf("✓ Empty item built as %v", it)
	})

	t.Run("windowed item", func(t *testing.T) {
		it, err := ItemConfig{
			Label:      "sampling",
			Days:       []string{"weekdays"},
			Start:      "08:00",
			End:        "17:00",
			Every:      30 * time.Minute,
			Expires:    "2030-12-31",
			Except:     []string{"2030-12-25"},
			Categories: []string{"data_capture"},
		}.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		w := it.Window()
		if w.Start != (localtime.HMS{Hour: 8}) || w.End != (localtime.HMS{Hour: 17}) || w.Interval != 30*time.Minute {
			t.Errorf("Window() = %v", w)
		}
		if exp, ok := it.Expires(); !ok || exp != (localtime.YMD{Year: 2030, Month: 12, Day: 31}) {
			t.Errorf("Expires() = %v, %v", exp, ok)
		}
		if len(it.ExceptDates()) != 1 {
			t.Errorf("ExceptDates() = %v, want one date", it.ExceptDates())
		}
		if !it.Categories().Has(schedule.CategoryDataCapture) || it.Categories().Has(schedule.CategoryFullWake) {
			t.Errorf("Categories() = %v, want data_capture only", it.Categories())
		}
		t.Logf("✓ Windowed item built as %v", it)
	})

	t.Run("one-shot", func(t *testing.T) {
		it, err := ItemConfig{Date: "2030-06-01", Time: "03:15", Categories: []string{"wake"}}.Build()
		if err != nil {
			t.Fatalf("Build() error = %v", err)
		}
		once := it.Once()
		if it.Kind() != schedule.KindOneShot || once.Time != (localtime.HMS{Hour: 3, Minute: 15}) {
			t.Errorf("Build() = %v, want one-shot at 03:15", it)
		}
		t.Logf("✓ One-shot item built as %v", it)
	})

	t.Run("errors wrap ErrInvalidSchedule", func(t *testing.T) {
		_, err := ItemConfig{Start: "25:00"}.Build()
		if !errors.Is(err, schedule.ErrInvalidSchedule) {
			t.Errorf("Build() error = %v, want ErrInvalidSchedule", err)
		} else {
			t.Logf("✓ Invalid start rejected: %v", err)
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Log("Testing manager construction from configuration")

	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(cfgPath, []byte(sampleYAML), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	mgr, err := cfg.NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	if got := mgr.Names(); len(got) != 2 || got[0] != "sensors" || got[1] != "maintenance" {
		t.Errorf("Names() = %v, want [sensors maintenance]", got)
	}
	if mgr.LookaheadDays() != 30 {
		t.Errorf("LookaheadDays() = %d, want 30", mgr.LookaheadDays())
	}

	// Tuesday 2030-01-08 08:00 EST is 13:00 UTC.
	now := time.Date(2030, 1, 8, 13, 0, 0, 0, time.UTC)
	w, ok := mgr.NextFullWake(now)
	if !ok {
		t.Fatal("NextFullWake() found nothing")
	}
	want := localtime.MustValue(2030, 1, 9, 6, 0, 0)
	if !w.Local.Equal(want) || w.Schedule != "sensors" {
		t.Errorf("NextFullWake() = %s in %q, want %s in sensors", w.Local, w.Schedule, want)
	} else {
		t.Logf("✓ Next full wake %s (%s UTC)", w.Local, w.At.Format(time.RFC3339))
	}

	w, ok = mgr.NextDataCapture(now)
	if !ok {
		t.Fatal("NextDataCapture() found nothing")
	}
	want = localtime.MustValue(2030, 1, 8, 8, 30, 0)
	if !w.Local.Equal(want) {
		t.Errorf("NextDataCapture() = %s, want %s", w.Local, want)
	} else {
		t.Logf("✓ Next data capture %s", w.Local)
	}

	t.Run("invalid timezone", func(t *testing.T) {
		bad := Default()
		bad.Timezone = "Nowhere/Land"
		if _, err := bad.NewManager(); !errors.Is(err, localtime.ErrConfig) {
			t.Errorf("NewManager() error = %v, want ErrConfig", err)
		}
	})
}

func TestSync(t *testing.T) {
	t.Log("Testing schedule reload into an existing manager")

	cfg := Default()
	cfg.Schedules = []ScheduleConfig{
		{Name: "a", Items: []ItemConfig{{Start: "06:00"}}},
		{Name: "b", Items: []ItemConfig{{Start: "07:00"}}},
	}
	mgr, err := cfg.NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	cfg.Schedules = []ScheduleConfig{
		{Name: "b", Items: []ItemConfig{{Start: "08:00"}}},
		{Name: "c", Items: []ItemConfig{{Start: "09:00"}}},
	}
	if err := cfg.Sync(mgr); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if got := mgr.Names(); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("Names() = %v, want [b c]", got)
	}
	s, _ := mgr.ScheduleByName("b")
	if got := s.Items()[0].Window().Start; got != (localtime.HMS{Hour: 8}) {
		t.Errorf("schedule b starts at %s, want 08:00:00", got)
	} else {
		t.Logf("✓ Schedule b replaced in place")
	}

	t.Run("bad definition leaves manager unchanged", func(t *testing.T) {
		cfg.Schedules = []ScheduleConfig{{Name: "d", Items: []ItemConfig{{Start: "99:00"}}}}
		if err := cfg.Sync(mgr); err == nil {
			t.Fatal("Sync() with invalid item should fail")
		}
		if got := mgr.Names(); len(got) != 2 {
			t.Errorf("Names() = %v after failed sync, want [b c]", got)
		} else {
			t.Logf("✓ Failed sync kept %v", got)
		}
	})
}

func intPtr(n int) *int { return &n }

func TestItemConfigCalendarRules(t *testing.T) {
	const monthly = `
timezone: UTC
schedules:
  - name: billing
    items:
      - label: month end
        day_of_month: 0
        start: "23:00"
  - name: meeting
    items:
      - label: second tuesday
        days: [tue]
        week: 2
        start: "10:00"
  - name: holidays
    items:
      - label: holiday check
        only_on: ["2024-07-04", "2024-12-25"]
        start: "12:00"
`
	path := filepath.Join(t.TempDir(), "monthly.yml")
	if err := os.WriteFile(path, []byte(monthly), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	mgr, err := cfg.NewManager()
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		schedule string
		want     time.Time
	}{
		{"billing", time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC)},
		{"meeting", time.Date(2024, 2, 13, 10, 0, 0, 0, time.UTC)},
		{"holidays", time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		w, ok := mgr.NextTimeByName(tt.schedule, now)
		if !ok || !w.At.Equal(tt.want) {
			t.Errorf("NextTimeByName(%s) = %v, %v; want %v", tt.schedule, w.At, ok, tt.want)
			continue
		}
		t.Logf("✓ %s next fires %s (%s)", tt.schedule, w.Local, w.Item)
	}
}
