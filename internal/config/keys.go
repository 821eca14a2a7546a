package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secrets file account name
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "discord.bot_token", typ: kString, env: "BOT_TOKEN",
		secret: true, account: "bot_token",
		apply:   func(cfg *Config, v any) { cfg.Discord.BotToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Discord.BotToken },
	},
	{
		key: "discord.guild_id", typ: kString, env: "GUILD_ID",
		apply:   func(cfg *Config, v any) { cfg.Discord.GuildID = v.(string) },
		extract: func(cfg Config) any { return cfg.Discord.GuildID },
	},
	{
		key: "discord.gnomos_channel_id", typ: kString, env: "GNOMOS_CHANNEL_ID",
		apply:   func(cfg *Config, v any) { cfg.Discord.GnomosChannelID = v.(string) },
		extract: func(cfg Config) any { return cfg.Discord.GnomosChannelID },
	},
	{
		key: "discord.test_channel_id", typ: kString, env: "TEST_CHANNEL_ID",
		apply:   func(cfg *Config, v any) { cfg.Discord.TestChannelID = v.(string) },
		extract: func(cfg Config) any { return cfg.Discord.TestChannelID },
	},
	{
		key: "bucket.url", typ: kString, env: "BUCKET_URL",
		apply:   func(cfg *Config, v any) { cfg.Bucket.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Bucket.URL },
	},
	{
		key: "llm.api_key", typ: kString, env: "OPENAI_API_KEY",
		secret: true, account: "openai_api_key",
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.base_url", typ: kString, env: "OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "search.api_key", typ: kString, env: "TAVILY_API_KEY",
		secret: true, account: "tavily_api_key",
		apply:   func(cfg *Config, v any) { cfg.Search.TavilyAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Search.TavilyAPIKey },
	},
	{
		key: "store.backend", typ: kString, env: "STORE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Store.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.Backend },
	},
	{
		key: "store.redis_url", typ: kString, env: "REDIS_URL",
		apply:   func(cfg *Config, v any) { cfg.Store.RedisURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Store.RedisURL },
	},
	{
		key: "storage.data_dir", typ: kString, env: "GNOMO_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "history.ttl_seconds", typ: kInt, env: "CONVERSATION_TTL",
		apply:   func(cfg *Config, v any) { cfg.History.TTLSeconds = v.(int) },
		extract: func(cfg Config) any { return cfg.History.TTLSeconds },
	},
	{
		key: "history.max_messages", typ: kInt, env: "MAX_CONVERSATION_MESSAGES",
		apply:   func(cfg *Config, v any) { cfg.History.MaxMessages = v.(int) },
		extract: func(cfg Config) any { return cfg.History.MaxMessages },
	},
	{
		key: "agent.max_steps", typ: kInt, env: "MAX_AGENT_STEPS",
		apply:   func(cfg *Config, v any) { cfg.Agent.MaxSteps = v.(int) },
		extract: func(cfg Config) any { return cfg.Agent.MaxSteps },
	},
	{
		key: "schedule.timezone", typ: kString, env: "USER_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Schedule.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.Timezone },
	},
	{
		key: "schedule.reminder_cron", typ: kString, env: "REMINDER_CRON",
		apply:   func(cfg *Config, v any) { cfg.Schedule.ReminderCron = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.ReminderCron },
	},
	{
		key: "schedule.birthday_cron", typ: kString, env: "BIRTHDAY_CRON",
		apply:   func(cfg *Config, v any) { cfg.Schedule.BirthdayCron = v.(string) },
		extract: func(cfg Config) any { return cfg.Schedule.BirthdayCron },
	},
	{
		key: "server.port", typ: kInt, env: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func envFor(key string) string {
	for _, s := range specs {
		if s.key == key {
			return s.env
		}
	}
	return ""
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

// applyEnvOverrides applies every set variable. Integers that do not parse
// are returned as problems for Validate to report.
func applyEnvOverrides(cfg *Config) []string {
	var problems []string
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			i, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				problems = append(problems, fmt.Sprintf("%s must be an integer (%s=%q)", s.key, s.env, raw))
				continue
			}
			s.apply(cfg, i)
		}
	}
	return problems
}

// applySecrets fills secrets the environment did not provide.
func applySecrets(cfg *Config, store secretStore) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg) != "" {
			continue
		}
		if v, err := store.Get(secretsService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
