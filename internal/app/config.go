package app

import (
	"os"
	"time"
	_ "time/tzdata" // zoneinfo for images without /usr/share/zoneinfo

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"golang.org/x/text/language"

	"github.com/xenking/scankart/internal/printout"
)

// Config holds the complete application configuration, loadable from
// environment variables (SCANKART_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL; empty runs without a database (SCANKART_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CatalogFile string `usage:"Product feed (.json or .json.gz); empty uses the database or the built-in demo catalog" flag:"catalog-file"`
	JournalPath string `usage:"bbolt receipt journal file, used when no database is configured" flag:"journal-path"`
	Sessions    SessionConfig
	Printout    PrintoutConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// SessionConfig bounds the in-memory register sessions.
type SessionConfig struct {
	Max int           `default:"1024" usage:"Maximum open register sessions"`
	TTL time.Duration `default:"2h"   usage:"Idle time after which a session and its cart are dropped"`
}

// PrintoutConfig controls receipt rendering and price display.
type PrintoutConfig struct {
	Locale   string `default:"lo-LA"          usage:"BCP 47 locale for price formatting"`
	TimeZone string `default:"Asia/Vientiane" usage:"IANA time zone printed on receipts" flag:"time-zone"`
	Width    int    `default:"32"             usage:"Text receipt width in columns"`
	Labels   string `default:"lo"             usage:"Receipt labels: lo or en"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"600" usage:"Max requests per window; 0 disables limiting"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SCANKART",
		Files:     []string{"config.yaml", "/etc/scankart/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if _, err := cfg.Printout.Options(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps the DATABASE_URL and PORT variables that hosting
// platforms set to the SCANKART_ configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// Options converts the printout section into printer options.
func (c PrintoutConfig) Options() (printout.Options, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return printout.Options{}, errors.Wrapf(err, "parse locale %q", c.Locale)
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return printout.Options{}, errors.Wrapf(err, "load time zone %q", c.TimeZone)
	}

	var labels printout.Labels
	switch c.Labels {
	case "", "lo":
		labels = printout.LaoLabels()
	case "en":
		labels = printout.EnglishLabels()
	default:
		return printout.Options{}, errors.Errorf("unknown receipt labels %q", c.Labels)
	}

	return printout.Options{
		Locale:   tag,
		Location: loc,
		Width:    c.Width,
		Labels:   &labels,
	}, nil
}
