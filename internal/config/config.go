package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"DailySets/internal/selection"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "DAILYSETS_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	logLevelEnv       = "LOG_LEVEL"
	metricsAddrEnv    = "METRICS_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	SourceRSS      = "rss"
	SourceHTML     = "html"
	SourceWikidata = "wikidata"
	SourceStatic   = "static"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Logging       LoggingConfig      `yaml:"logging"`
	Generation    GenerationConfig   `yaml:"generation"`
	Ingestion     IngestionConfig    `yaml:"ingestion"`
	Notifications NotificationConfig `yaml:"notifications"`
	Metrics       MetricsConfig      `yaml:"metrics"`
	Modes         []ModeConfig       `yaml:"modes"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// DatabaseConfig selects the item store backend.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when the daily job runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	Regenerate     bool           `yaml:"regenerate"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GenerationConfig carries the constants of daily set generation.
type GenerationConfig struct {
	WindowDays     int  `yaml:"windowDays"`
	MinFresh       int  `yaml:"minFresh"`
	MinItems       int  `yaml:"minItems"`
	PositionOffset *int `yaml:"positionOffset"`
}

// Offset is the first position of every lineup.
func (g GenerationConfig) Offset() int {
	if g.PositionOffset == nil {
		return 1
	}
	return *g.PositionOffset
}

// IngestionConfig tunes the source connectors.
type IngestionConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	UserAgent         string        `yaml:"userAgent"`
	Timeout           time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// MetricsConfig sets the listen address of the /metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ModeConfig describes a game mode and its balancing rules.
type ModeConfig struct {
	ID         string   `yaml:"id"`
	Title      string   `yaml:"title"`
	Strategy   string   `yaml:"strategy"`
	Target     int      `yaml:"target"`
	PoolSize   int      `yaml:"poolSize"`
	Categories []string `yaml:"categories"`
	Active     *bool    `yaml:"active"`
}

// IsActive defaults to true when unset.
func (m ModeConfig) IsActive() bool {
	return m.Active == nil || *m.Active
}

// SourceConfig describes one upstream content source.
type SourceConfig struct {
	ID        string             `yaml:"id"`
	Name      string             `yaml:"name"`
	Kind      string             `yaml:"kind"`
	Mode      string             `yaml:"mode"`
	Category  string             `yaml:"category"`
	URL       string             `yaml:"url"`
	Selector  string             `yaml:"selector"`
	Query     string             `yaml:"query"`
	Prompt    string             `yaml:"prompt"`
	License   string             `yaml:"license"`
	MinLength int                `yaml:"minLength"`
	Options   map[string]string  `yaml:"options"`
	Items     []StaticItemConfig `yaml:"items"`
}

// StaticItemConfig is one entry of a static corpus.
type StaticItemConfig struct {
	Text     string         `yaml:"text"`
	Answer   string         `yaml:"answer"`
	Metadata map[string]any `yaml:"metadata"`
}

// Load reads YAML configuration (if present), applies environment overrides
// and validates modes and sources.
func Load() (Config, error) {
	return LoadPath(os.Getenv(configPathEnv))
}

// LoadPath is Load with an explicit file; an empty path uses defaults only.
func LoadPath(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		fileCfg, err := ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadFile parses a YAML config file without defaults.
func ReadFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fileCfg, nil
}

// Validate checks cross-references between modes and sources.
func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	modes := map[string]bool{}
	for _, m := range c.Modes {
		if m.ID == "" {
			errs = append(errs, errors.New("mode without id"))
			continue
		}
		if modes[m.ID] {
			errs = append(errs, fmt.Errorf("duplicate mode %s", m.ID))
		}
		modes[m.ID] = true
		if _, err := selection.ParseStrategy(m.Strategy); err != nil {
			errs = append(errs, fmt.Errorf("mode %s: %w", m.ID, err))
		}
		if m.Target < 0 || m.PoolSize < 0 {
			errs = append(errs, fmt.Errorf("mode %s: target and poolSize must not be negative", m.ID))
		}
	}

	sources := map[string]bool{}
	for _, s := range c.Sources {
		if s.ID == "" {
			errs = append(errs, errors.New("source without id"))
			continue
		}
		if sources[s.ID] {
			errs = append(errs, fmt.Errorf("duplicate source %s", s.ID))
		}
		sources[s.ID] = true
		if !modes[s.Mode] {
			errs = append(errs, fmt.Errorf("source %s: unknown mode %q", s.ID, s.Mode))
		}
		switch s.Kind {
		case SourceRSS, SourceHTML, SourceWikidata:
			if s.URL == "" && s.Kind != SourceWikidata {
				errs = append(errs, fmt.Errorf("source %s: url is required", s.ID))
			}
		case SourceStatic:
		default:
			errs = append(errs, fmt.Errorf("source %s: unknown kind %q", s.ID, s.Kind))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
		c.Database.Driver = DriverPostgres
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.Driver != "" {
		base.Database.Driver = strings.ToLower(override.Database.Driver)
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.CronExpression != "" {
		base.Scheduler.CronExpression = override.Scheduler.CronExpression
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.Regenerate {
		base.Scheduler.Regenerate = true
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Generation.WindowDays > 0 {
		base.Generation.WindowDays = override.Generation.WindowDays
	}
	if override.Generation.MinFresh > 0 {
		base.Generation.MinFresh = override.Generation.MinFresh
	}
	if override.Generation.MinItems > 0 {
		base.Generation.MinItems = override.Generation.MinItems
	}
	if override.Generation.PositionOffset != nil {
		base.Generation.PositionOffset = override.Generation.PositionOffset
	}

	if override.Ingestion.Concurrency > 0 {
		base.Ingestion.Concurrency = override.Ingestion.Concurrency
	}
	if override.Ingestion.RequestsPerSecond > 0 {
		base.Ingestion.RequestsPerSecond = override.Ingestion.RequestsPerSecond
	}
	if override.Ingestion.UserAgent != "" {
		base.Ingestion.UserAgent = override.Ingestion.UserAgent
	}
	if override.Ingestion.Timeout > 0 {
		base.Ingestion.Timeout = override.Ingestion.Timeout
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	if len(override.Modes) > 0 {
		base.Modes = override.Modes
	}
	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	offset := 1
	return Config{
		Database:  DatabaseConfig{Driver: DriverMemory},
		Scheduler: SchedulerConfig{CronExpression: "0 5 * * *", Timezone: defaultTimezone, location: tz},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Generation: GenerationConfig{
			WindowDays:     7,
			MinFresh:       20,
			MinItems:       5,
			PositionOffset: &offset,
		},
		Ingestion: IngestionConfig{
			Concurrency:       4,
			RequestsPerSecond: 2,
			UserAgent:         "DailySets/1.0",
			Timeout:           20 * time.Second,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
		Modes: []ModeConfig{
			{
				ID:         "headline-satire",
				Title:      "Real Headline or Satire",
				Strategy:   "binary",
				Target:     100,
				Categories: []string{"Real", "Satire"},
			},
			{
				ID:       "guess-the-era",
				Title:    "Guess the Art Era",
				Strategy: "round_robin",
				Target:   10,
				PoolSize: 50,
			},
		},
		Sources: []SourceConfig{
			{ID: "bbc-news", Name: "BBC News", Kind: SourceRSS, Mode: "headline-satire", Category: "Real", URL: "http://feeds.bbci.co.uk/news/world/rss.xml"},
			{ID: "nyt-world", Name: "NYT World", Kind: SourceRSS, Mode: "headline-satire", Category: "Real", URL: "https://rss.nytimes.com/services/xml/rss/nyt/World.xml"},
			{ID: "onion", Name: "The Onion", Kind: SourceRSS, Mode: "headline-satire", Category: "Satire", URL: "https://www.theonion.com/rss"},
			{ID: "beaverton", Name: "The Beaverton", Kind: SourceRSS, Mode: "headline-satire", Category: "Satire", URL: "https://www.thebeaverton.com/feed/"},
			{ID: "daily-mash", Name: "The Daily Mash", Kind: SourceRSS, Mode: "headline-satire", Category: "Satire", URL: "https://www.thedailymash.co.uk/feed"},
			{
				ID:     "wiki-art-era",
				Name:   "Guess the Art Era",
				Kind:   SourceWikidata,
				Mode:   "guess-the-era",
				Prompt: "Which art movement does this painting belong to?",
				Query: `SELECT ?item (?movementLabel as ?itemLabel) ?image WHERE {
  ?item wdt:P31 wd:Q3305213; wdt:P135 ?movement; wdt:P18 ?image.
  ?movement rdfs:label ?movementLabel.
  FILTER(LANG(?movementLabel) = "en")
} LIMIT 600`,
			},
		},
	}
}
