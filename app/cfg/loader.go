package cfg

import (
	"cmp"
	"errors"
	"fmt"
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
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./data.db" description:"Path to the SQLite database file"`
	SeedFile string `long:"seed-file" env:"SEED_FILE" default:"./dashboard.yml" description:"YAML file with feed sources and probe targets to upsert at startup"`

	// HTTP surface
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for write endpoints (writes are disabled when empty)"`

	// Background cycles
	FeedInterval   int  `long:"feed-interval" env:"FEED_INTERVAL" default:"900" description:"Feed ingestion interval in seconds"`
	ProbeInterval  int  `long:"probe-interval" env:"PROBE_INTERVAL" default:"60" description:"Reachability probe interval in seconds"`
	FetchTimeout   int  `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	PrivilegedICMP bool `long:"privileged-icmp" env:"PRIVILEGED_ICMP" description:"Use raw ICMP sockets instead of unprivileged datagram sockets"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Work Dash/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

// Load parses the process arguments and environment. It returns a nil
// config and no error when help was requested.
func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:         raw.DBPath,
		SeedFile:       raw.SeedFile,
		Port:           raw.Port,
		APIAccessKey:   raw.APIAccessKey,
		FeedInterval:   raw.FeedInterval,
		ProbeInterval:  raw.ProbeInterval,
		FetchTimeout:   raw.FetchTimeout,
		PrivilegedICMP: raw.PrivilegedICMP,
		UserAgent:      raw.UserAgent,
		Timezone:       raw.Timezone,
		Debug:          raw.Debug,
		Version:        GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func (c *Cfg) validate() error {
	if c.FeedInterval <= 0 {
		return fmt.Errorf("feed interval must be positive, got %d", c.FeedInterval)
	}
	if c.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %d", c.ProbeInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %d", c.FetchTimeout)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
