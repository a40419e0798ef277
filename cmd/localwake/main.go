package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/MikeO7/LocalWake/internal/config"
	"github.com/MikeO7/LocalWake/internal/schedule"
	"github.com/MikeO7/LocalWake/internal/scheduler"
	"github.com/MikeO7/LocalWake/pkg/log"
	flag "github.com/spf13/pflag"
)

const version = "0.1.0"

var (
	// commit is injected at build time
	commit = "unknown"
)

type appConfig struct {
	configPath   string
	timezone     string
	lookahead    int
	at           string
	scheduleName string
	once         bool
	logLevel     string
	showVersion  bool
}

func main() {
	// Panic recovery to ensure logs are flushed and errors captured
	defer func() {
		if r := recover(); r != nil {
			log.Error(fmt.Sprintf("PANIC: %v\nStack Trace:\n%s", r, debug.Stack()))
			os.Exit(1)
		}
	}()

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string) (appConfig, error) {
	var app appConfig
	fs := flag.NewFlagSet("localwake", flag.ContinueOnError)

	fs.StringVar(&app.configPath, "config", "/config/localwake.yml", "Path to config file")
	fs.StringVar(&app.timezone, "timezone", "", "POSIX TZ rule or IANA zone (e.g. 'EST5EDT,M3.2.0/2,M11.1.0/2', 'Europe/Berlin')")
	fs.IntVar(&app.lookahead, "lookahead", 0, "Override how many days ahead to search")
	fs.StringVar(&app.at, "at", "", "Evaluate as of this RFC3339 time instead of now (requires --once)")
	fs.StringVar(&app.scheduleName, "schedule", "", "Only report the named schedule (requires --once)")
	fs.BoolVar(&app.once, "once", false, "Print the upcoming wakes and exit")
	fs.StringVar(&app.logLevel, "log-level", "", "Logging level (debug, info, warn, error)")
	fs.BoolVar(&app.showVersion, "version", false, "Show version and exit")

	if err := fs.Parse(args); err != nil {
		return app, err
	}
	if fs.Changed("lookahead") && app.lookahead < schedule.MinLookaheadDays {
		return app, fmt.Errorf("--lookahead must be at least %d", schedule.MinLookaheadDays)
	}
	if !app.once && (app.at != "" || app.scheduleName != "") {
		return app, fmt.Errorf("--at and --schedule require --once")
	}
	return app, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app, err := parseFlags(args)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 2
	}

	if app.showVersion {
		fmt.Fprintf(stdout, "LocalWake version %s (commit: %s, %s/%s)\n", version, commit, runtime.GOOS, runtime.GOARCH)
		return 0
	}

	// Load configuration
	cfg, err := loadConfig(app.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Apply CLI flag overrides
	if app.timezone != "" {
		cfg.Timezone = app.timezone
	}
	if app.lookahead != 0 {
		cfg.LookaheadDays = app.lookahead
	}
	if app.once {
		cfg.RunOnce = true
	}
	if app.logLevel != "" {
		cfg.Log.Level = app.logLevel
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	// Initialize logger; once mode keeps stdout for the report
	logCfg := log.Config{
		Level:      cfg.Log.Level,
		JSON:       cfg.Log.JSON,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
	}
	if cfg.RunOnce {
		logCfg.Output = stderr
	}
	log.Initialize(logCfg)

	mgr, err := cfg.NewManager()
	if err != nil {
		log.ErrorErr("Failed to build schedules", err)
		return 1
	}

	if cfg.RunOnce {
		return report(app, mgr, stdout, stderr)
	}

	log.Infof("LocalWake version %s starting", version)
	log.Infof("Build: commit=%s, os=%s, arch=%s", commit, runtime.GOOS, runtime.GOARCH)
	log.Infof("Timezone: %s", cfg.Timezone)

	s := scheduler.New(mgr, scheduler.LogDispatcher{},
		scheduler.WithIdleRecheck(cfg.IdleRecheck),
		scheduler.WithReloader(func(m *schedule.Manager) error {
			fresh, err := loadConfig(app.configPath)
			if err != nil {
				return err
			}
			return fresh.Sync(m)
		}),
	)
	if err := s.Run(ctx); err != nil {
		log.ErrorErr("Scheduler error", err)
		return 1
	}

	log.Info("LocalWake stopped")
	return 0
}

// report prints the upcoming wakes as of --at, or now.
func report(app appConfig, mgr *schedule.Manager, stdout, stderr io.Writer) int {
	now := time.Now()
	if app.at != "" {
		t, err := time.Parse(time.RFC3339, app.at)
		if err != nil {
			fmt.Fprintf(stderr, "Invalid --at time: %v\n", err)
			return 2
		}
		now = t
	}

	if app.scheduleName != "" {
		if _, ok := mgr.ScheduleByName(app.scheduleName); !ok {
			fmt.Fprintf(stderr, "Unknown schedule %q\n", app.scheduleName)
			return 1
		}
		w, ok := mgr.NextTimeByName(app.scheduleName, now)
		if !ok {
			fmt.Fprintf(stdout, "%s: none within %d days\n", app.scheduleName, mgr.LookaheadDays())
			return 0
		}
		fmt.Fprintf(stdout, "%s: %s  %s  %s\n", w.Schedule, w.Local, w.At.Format(time.RFC3339), w.Item)
		return 0
	}

	scheduler.BuildPlan(mgr, now).Write(stdout)
	return 0
}

// loadConfig loads and merges configuration from file and environment
func loadConfig(path string) (config.Config, error) {
	// Check if config env var is set
	if envPath := os.Getenv("LOCALWAKE_CONFIG"); envPath != "" {
		path = envPath
	}

	// Load from file (or use defaults if file doesn't exist)
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return config.Config{}, err
	}

	// Apply environment variable overrides
	cfg.ApplyEnvironmentOverrides()

	return cfg, nil
}
