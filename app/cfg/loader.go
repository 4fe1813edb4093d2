package cfg

import (
	"cmp"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db" env:"DB_PATH" default:"./rss-mirror.sqlite3" description:"Path to the SQLite database file"`
	FeedsFile string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.txt" description:"Feed list: one URL per line, or a .yml/.yaml file with settings and filters"`

	// Read server
	Port      string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	BaseUrl   string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://mirror.example.com)"`
	StaticDir string `long:"static-dir" env:"STATIC_DIR" description:"Directory served under /static (optional)"`

	// Fetching
	UserAgent   string `long:"user-agent" env:"USER_AGENT" default:"RSS Mirror/1.0" description:"User agent string for HTTP requests"`
	Timeout     int    `long:"timeout" env:"HTTP_TIMEOUT" default:"30" description:"Per-request timeout in seconds (0 disables)"`
	MaxBodySize int64  `long:"max-body-size" env:"MAX_BODY_SIZE" default:"33554432" description:"Maximum response body size in bytes (0 disables)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for generated feeds (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses the process arguments and environment. It returns (nil, nil)
// when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be non-negative")
	}
	if raw.MaxBodySize < 0 {
		return nil, fmt.Errorf("max body size must be non-negative")
	}

	cfg := &Cfg{
		DBPath:      raw.DBPath,
		FeedsFile:   raw.FeedsFile,
		Port:        raw.Port,
		BaseUrl:     raw.BaseUrl,
		StaticDir:   raw.StaticDir,
		UserAgent:   raw.UserAgent,
		Timeout:     time.Duration(raw.Timeout) * time.Second,
		MaxBodySize: raw.MaxBodySize,
		Timezone:    raw.Timezone,
		Location:    time.UTC,
		Debug:       raw.Debug,
		Version:     GetVersion(),
	}

	if cfg.BaseUrl == "" {
		cfg.BaseUrl = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}

	if loc, err := loadLocation(cfg.Timezone); err != nil {
		slog.Warn("Invalid timezone, using UTC", "timezone", cfg.Timezone, "error", err)
	} else {
		cfg.Location = loc
	}

	return cfg, nil
}

func loadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(timezone)
}
