// Package config loads domscout settings from defaults, an optional
// domscout.yaml, DOMSCOUT_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FranksOps/domscout/internal/logging"
	"github.com/FranksOps/domscout/internal/probe"
)

// Backend kinds accepted by Output.Backend.
const (
	BackendText     = "text"
	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config is the complete runtime configuration.
type Config struct {
	Names     NamesConfig     `mapstructure:"names"`
	Registrar RegistrarConfig `mapstructure:"registrar"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Timing    TimingConfig    `mapstructure:"timing"`
	Output    OutputConfig    `mapstructure:"output"`
	Log       logging.Config  `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type NamesConfig struct {
	// File replaces the built-in name table when set.
	File    string `mapstructure:"file"`
	TLD     string `mapstructure:"tld"`
	Triples bool   `mapstructure:"triples"`
}

type RegistrarConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	QueryParam          string `mapstructure:"query_param"`
	AvailableSelector   string `mapstructure:"available_selector"`
	UnavailableSelector string `mapstructure:"unavailable_selector"`
}

// Registrar converts the settings into a probe.Registrar.
func (r RegistrarConfig) Registrar() probe.Registrar {
	return probe.Registrar{
		BaseURL:             r.BaseURL,
		QueryParam:          r.QueryParam,
		AvailableSelector:   r.AvailableSelector,
		UnavailableSelector: r.UnavailableSelector,
	}
}

type BrowserConfig struct {
	Headless  bool   `mapstructure:"headless"`
	NoSandbox bool   `mapstructure:"no_sandbox"`
	ExecPath  string `mapstructure:"exec_path"`
	Proxy     string `mapstructure:"proxy"`
	UserAgent string `mapstructure:"user_agent"`
}

type TimingConfig struct {
	Navigation time.Duration `mapstructure:"navigation"`
	Settle     time.Duration `mapstructure:"settle"`
	Poll       time.Duration `mapstructure:"poll"`
	Grace      time.Duration `mapstructure:"grace"`
}

// Timing converts the settings into probe.Timing.
func (t TimingConfig) Timing() probe.Timing {
	return probe.Timing{Navigation: t.Navigation, Settle: t.Settle, Poll: t.Poll, Grace: t.Grace}
}

type OutputConfig struct {
	Backend string `mapstructure:"backend"`
	// Path is the result file, or the database file for sqlite.
	Path string `mapstructure:"path"`
	// DSN and Table are used by the postgres backend.
	DSN             string `mapstructure:"dsn"`
	Table           string `mapstructure:"table"`
	CheckpointEvery int    `mapstructure:"checkpoint_every"`
	// Resume seeds the run with results already stored in the backend.
	Resume bool `mapstructure:"resume"`
}

type MetricsConfig struct {
	// Addr enables the Prometheus endpoint when non-empty, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

// SetDefaults registers every key on v. Keys without a default still need an
// entry so that AutomaticEnv can resolve them during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("names.file", "")
	v.SetDefault("names.tld", "top")
	v.SetDefault("names.triples", false)

	v.SetDefault("registrar.base_url", probe.DefaultRegistrar.BaseURL)
	v.SetDefault("registrar.query_param", probe.DefaultRegistrar.QueryParam)
	v.SetDefault("registrar.available_selector", probe.DefaultRegistrar.AvailableSelector)
	v.SetDefault("registrar.unavailable_selector", probe.DefaultRegistrar.UnavailableSelector)

	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.proxy", "")
	v.SetDefault("browser.user_agent", "")

	v.SetDefault("timing.navigation", probe.DefaultTiming.Navigation)
	v.SetDefault("timing.settle", probe.DefaultTiming.Settle)
	v.SetDefault("timing.poll", probe.DefaultTiming.Poll)
	v.SetDefault("timing.grace", probe.DefaultTiming.Grace)

	v.SetDefault("output.backend", BackendText)
	v.SetDefault("output.path", "hasil_scrap.txt")
	v.SetDefault("output.dsn", "")
	v.SetDefault("output.table", "probe_results")
	v.SetDefault("output.checkpoint_every", 100)
	v.SetDefault("output.resume", false)

	v.SetDefault("log.file", "log_domain_arent.txt")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.no_color", false)

	v.SetDefault("metrics.addr", "")
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("DOMSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file and decodes v into a validated Config.
// An empty configFile looks for domscout.yaml in the working directory and
// tolerates its absence.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("domscout")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Registrar.Registrar().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Timing.Navigation <= 0 || c.Timing.Poll <= 0 || c.Timing.Settle < 0 {
		return fmt.Errorf("invalid config: timing values must be positive")
	}

	if c.Output.CheckpointEvery <= 0 {
		return fmt.Errorf("invalid config: output.checkpoint_every must be positive, got %d", c.Output.CheckpointEvery)
	}

	switch c.Output.Backend {
	case BackendText, BackendCSV, BackendJSON, BackendSQLite:
		if c.Output.Path == "" {
			return fmt.Errorf("invalid config: output.path is required for the %s backend", c.Output.Backend)
		}
	case BackendPostgres:
		if c.Output.DSN == "" {
			return fmt.Errorf("invalid config: output.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("invalid config: unknown output.backend %q", c.Output.Backend)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}
