// Package config loads the service configuration.
//
// Values are layered, each layer overriding the previous one:
//   - built-in defaults
//   - an optional YAML file (--config or MEDIA_INTERNALS_CONFIG)
//   - MEDIA_INTERNALS_* environment variables, after loading a .env file
//   - command line flags the user actually set
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "MEDIA_INTERNALS_"

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the service configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Debug lowers the log level to debug.
	Debug bool `yaml:"debug"`

	// StaticDir, when set, is served as a single page app.
	StaticDir string `yaml:"static_dir"`

	Journal   JournalConfig   `yaml:"journal"`
	MPD       MPDConfig       `yaml:"mpd"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// JournalConfig configures the push journal.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`

	// ReplayOnStart rebuilds the state from the latest journaled session.
	ReplayOnStart bool `yaml:"replay_on_start"`
}

// MPDConfig configures the MPD instrumentation source.
type MPDConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	Password     string        `yaml:"password"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// DashboardConfig configures the web dashboards.
type DashboardConfig struct {
	// MaxExternalClients caps non-loopback dashboards. 0 means unlimited.
	MaxExternalClients int           `yaml:"max_external_clients"`
	DebounceWindow     time.Duration `yaml:"debounce_window"`
	DefaultFilter      string        `yaml:"default_filter"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":3001",
		Journal: JournalConfig{
			Enabled: true,
			Path:    "data/media-internals.db",
		},
		MPD: MPDConfig{
			Host:         "localhost",
			Port:         6600,
			PollInterval: time.Second,
		},
		Dashboard: DashboardConfig{
			MaxExternalClients: 4,
			DebounceWindow:     100 * time.Millisecond,
		},
	}
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, errors.New("journal path is empty"))
	}
	if c.Journal.ReplayOnStart && !c.Journal.Enabled {
		errs = append(errs, errors.New("replay on start needs the journal"))
	}
	if c.MPD.Enabled {
		if c.MPD.Host == "" {
			errs = append(errs, errors.New("mpd host is empty"))
		}
		if c.MPD.Port < 1 || c.MPD.Port > 65535 {
			errs = append(errs, fmt.Errorf("mpd port %d out of range", c.MPD.Port))
		}
	}
	if c.MPD.PollInterval < 0 {
		errs = append(errs, errors.New("mpd poll interval is negative"))
	}
	if c.Dashboard.MaxExternalClients < 0 {
		errs = append(errs, errors.New("max external clients is negative"))
	}
	if c.Dashboard.DebounceWindow < 0 {
		errs = append(errs, errors.New("debounce window is negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// LoadFile merges the YAML file at path into c.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Loader binds command line flags to configuration fields.
type Loader struct {
	fs      *pflag.FlagSet
	values  Config
	path    string
	envFile string
}

// NewLoader registers the configuration flags on fs.
func NewLoader(fs *pflag.FlagSet) *Loader {
	l := &Loader{fs: fs}
	d := Default()

	fs.StringVar(&l.path, "config", "", "YAML configuration file")
	fs.StringVar(&l.envFile, "env-file", ".env", "Environment file loaded before reading MEDIA_INTERNALS_* variables")
	fs.StringVar(&l.values.Listen, "listen", d.Listen, "HTTP listen address")
	fs.BoolVar(&l.values.Debug, "debug", d.Debug, "Enable debug logging")
	fs.StringVar(&l.values.StaticDir, "static", d.StaticDir, "Directory to serve static files from (optional)")
	fs.BoolVar(&l.values.Journal.Enabled, "journal-enabled", d.Journal.Enabled, "Journal accepted pushes")
	fs.StringVar(&l.values.Journal.Path, "journal", d.Journal.Path, "Journal database path")
	fs.BoolVar(&l.values.Journal.ReplayOnStart, "replay", d.Journal.ReplayOnStart, "Replay the latest journaled session on start")
	fs.BoolVar(&l.values.MPD.Enabled, "mpd", d.MPD.Enabled, "Enable the MPD source")
	fs.StringVar(&l.values.MPD.Host, "mpd-host", d.MPD.Host, "MPD host")
	fs.IntVar(&l.values.MPD.Port, "mpd-port", d.MPD.Port, "MPD port")
	fs.StringVar(&l.values.MPD.Password, "mpd-password", d.MPD.Password, "MPD password")
	fs.DurationVar(&l.values.MPD.PollInterval, "mpd-poll", d.MPD.PollInterval, "MPD elapsed time poll interval (0 disables)")
	fs.IntVar(&l.values.Dashboard.MaxExternalClients, "max-external-clients", d.Dashboard.MaxExternalClients, "Maximum non-loopback dashboards (0 = unlimited)")
	fs.DurationVar(&l.values.Dashboard.DebounceWindow, "debounce", d.Dashboard.DebounceWindow, "Dashboard list push debounce window")
	fs.StringVar(&l.values.Dashboard.DefaultFilter, "filter", d.Dashboard.DefaultFilter, "Default log filter for new dashboards")

	return l
}

// Load builds the configuration. The flag set must already be parsed.
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	if l.envFile != "" {
		if err := godotenv.Load(l.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", l.envFile, err)
		}
	}

	path := GetEnv(EnvPrefix+"CONFIG", "")
	if l.fs.Changed("config") {
		path = l.path
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	l.applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		*dst = GetEnv(EnvPrefix+name, *dst)
	}
	num := func(name string, dst *int) {
		if v, err := GetEnvInt(EnvPrefix+name, *dst); err != nil {
			errs = append(errs, err)
		} else {
			*dst = v
		}
	}
	flag := func(name string, dst *bool) {
		if v, err := GetEnvBool(EnvPrefix+name, *dst); err != nil {
			errs = append(errs, err)
		} else {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, err := GetEnvDuration(EnvPrefix+name, *dst); err != nil {
			errs = append(errs, err)
		} else {
			*dst = v
		}
	}

	str("LISTEN", &c.Listen)
	flag("DEBUG", &c.Debug)
	str("STATIC_DIR", &c.StaticDir)
	flag("JOURNAL_ENABLED", &c.Journal.Enabled)
	str("JOURNAL_PATH", &c.Journal.Path)
	flag("REPLAY_ON_START", &c.Journal.ReplayOnStart)
	flag("MPD_ENABLED", &c.MPD.Enabled)
	str("MPD_HOST", &c.MPD.Host)
	num("MPD_PORT", &c.MPD.Port)
	str("MPD_PASSWORD", &c.MPD.Password)
	dur("MPD_POLL_INTERVAL", &c.MPD.PollInterval)
	num("MAX_EXTERNAL_CLIENTS", &c.Dashboard.MaxExternalClients)
	dur("DEBOUNCE_WINDOW", &c.Dashboard.DebounceWindow)
	str("DEFAULT_FILTER", &c.Dashboard.DefaultFilter)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// applyFlags copies the flags the user set into cfg.
func (l *Loader) applyFlags(cfg *Config) {
	v := &l.values
	l.fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = v.Listen
		case "debug":
			cfg.Debug = v.Debug
		case "static":
			cfg.StaticDir = v.StaticDir
		case "journal-enabled":
			cfg.Journal.Enabled = v.Journal.Enabled
		case "journal":
			cfg.Journal.Path = v.Journal.Path
		case "replay":
			cfg.Journal.ReplayOnStart = v.Journal.ReplayOnStart
		case "mpd":
			cfg.MPD.Enabled = v.MPD.Enabled
		case "mpd-host":
			cfg.MPD.Host = v.MPD.Host
		case "mpd-port":
			cfg.MPD.Port = v.MPD.Port
		case "mpd-password":
			cfg.MPD.Password = v.MPD.Password
		case "mpd-poll":
			cfg.MPD.PollInterval = v.MPD.PollInterval
		case "max-external-clients":
			cfg.Dashboard.MaxExternalClients = v.Dashboard.MaxExternalClients
		case "debounce":
			cfg.Dashboard.DebounceWindow = v.Dashboard.DebounceWindow
		case "filter":
			cfg.Dashboard.DefaultFilter = v.Dashboard.DefaultFilter
		}
	})
}
