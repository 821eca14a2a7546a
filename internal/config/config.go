package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

type Config struct {
	Discord  DiscordConfig
	Bucket   BucketConfig
	LLM      LLMConfig
	Search   SearchConfig
	Store    StoreConfig
	Storage  StorageConfig
	History  HistoryConfig
	Agent    AgentConfig
	Schedule ScheduleConfig
	Server   ServerConfig
	Log      LogConfig

	// loadProblems are values that could not be parsed while loading.
	loadProblems []string
}

type DiscordConfig struct {
	BotToken        string
	GuildID         string
	GnomosChannelID string
	TestChannelID   string
}

type BucketConfig struct {
	URL string
}

type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type SearchConfig struct {
	TavilyAPIKey string
}

// StoreConfig selects the key-value backend. An empty Backend picks redis
// when RedisURL is set and disables persistence otherwise.
type StoreConfig struct {
	Backend  string
	RedisURL string
}

type StorageConfig struct {
	DataDir string
}

type HistoryConfig struct {
	TTLSeconds  int
	MaxMessages int
}

// TTL is the conversation expiry.
func (h HistoryConfig) TTL() time.Duration { return time.Duration(h.TTLSeconds) * time.Second }

type AgentConfig struct {
	MaxSteps int
}

type ScheduleConfig struct {
	Timezone     string
	ReminderCron string
	BirthdayCron string
}

// Location loads the configured timezone.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		LLM: LLMConfig{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		History: HistoryConfig{
			TTLSeconds:  86400,
			MaxMessages: 100,
		},
		Agent: AgentConfig{
			MaxSteps: 3,
		},
		Schedule: ScheduleConfig{
			Timezone:     "America/Bogota",
			ReminderCron: "* * * * *",
			BirthdayCron: "0 8 * * *",
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// dotenvFiles are loaded in order; a variable already set wins, so the
// process environment beats .env.local, which beats .env.
var dotenvFiles = []string{".env.local", ".env"}

// Load reads configuration and validates it. Sources, lowest precedence
// first: defaults, $XDG_CONFIG_HOME/gnomo/config.json, .env files in the
// working directory, environment variables. Secrets still missing after that
// are looked up in $XDG_DATA_HOME/gnomo/secrets.json.
//
// Every missing or invalid field is reported in a single *ValidationError.
func Load() (Config, error) {
	cfg, err := LoadPartial()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadPartial is Load without validation, for commands that only inspect
// configuration.
func LoadPartial() (Config, error) {
	if err := loadDotenv("."); err != nil {
		return Config{}, err
	}
	return loadWith(newPlatformBackend(), newSecretsFile())
}

func loadDotenv(dir string) error {
	for _, name := range dotenvFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
	}
	return nil
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	cfg.loadProblems = applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	return cfg, nil
}

// ValidationError lists every configuration problem found.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration:\n  - " + strings.Join(e.Problems, "\n  - ")
}

// Validate checks required fields and value ranges.
func (c Config) Validate() error {
	problems := append([]string(nil), c.loadProblems...)
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			problems = append(problems, fmt.Sprintf("%s is required (set %s)", key, envFor(key)))
		}
	}

	require("discord.bot_token", c.Discord.BotToken)
	require("discord.guild_id", c.Discord.GuildID)
	require("discord.gnomos_channel_id", c.Discord.GnomosChannelID)
	require("llm.api_key", c.LLM.APIKey)
	require("bucket.url", c.Bucket.URL)

	if c.Bucket.URL != "" && !validURL(c.Bucket.URL) {
		problems = append(problems, fmt.Sprintf("bucket.url must be an http(s) URL, got %q", c.Bucket.URL))
	}
	if c.LLM.BaseURL != "" && !validURL(c.LLM.BaseURL) {
		problems = append(problems, fmt.Sprintf("llm.base_url must be an http(s) URL, got %q", c.LLM.BaseURL))
	}

	switch c.Store.Backend {
	case "", "sqlite":
	case "redis":
		if c.Store.RedisURL == "" {
			problems = append(problems, "store.redis_url is required when store.backend is redis (set REDIS_URL)")
		}
	default:
		problems = append(problems, fmt.Sprintf("store.backend must be redis or sqlite, got %q", c.Store.Backend))
	}

	if c.History.TTLSeconds <= 0 {
		problems = append(problems, "history.ttl_seconds must be positive")
	}
	if c.History.MaxMessages <= 0 {
		problems = append(problems, "history.max_messages must be positive")
	}
	if c.Agent.MaxSteps < 1 {
		problems = append(problems, "agent.max_steps must be at least 1")
	}
	if _, err := c.Schedule.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("schedule.timezone: %v", err))
	}
	if c.Schedule.ReminderCron != "" {
		if _, err := cron.ParseStandard(c.Schedule.ReminderCron); err != nil {
			problems = append(problems, fmt.Sprintf("schedule.reminder_cron: %v", err))
		}
	}
	if _, err := cron.ParseStandard(c.Schedule.BirthdayCron); err != nil {
		problems = append(problems, fmt.Sprintf("schedule.birthday_cron: %v", err))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// IsValidationError reports whether err came from Validate.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
