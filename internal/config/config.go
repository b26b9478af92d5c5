package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port              int
	LogLevel          string
	AnthropicAPIKey   string
	AnthropicModel    string
	MaxTokens         int
	CompletionTimeout time.Duration
	DatabaseURL       string
	NatsURL           string
	NatsToken         string
	SlackBotToken     string
	SlackChannel      string
	KBURL             string
	KBAPIKey          string
	KBProjectID       string
	APIToken          string
	Responder         string
	SettingsFile      string
	ParallelTurns     bool
	SessionIdle       time.Duration
}

func Load() Config {
	return Config{
		Port:              envInt("LEADBOT_PORT", 8760),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey:   envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:    envStr("LEADBOT_MODEL", "claude-sonnet-4-20250514"),
		MaxTokens:         envInt("LEADBOT_MAX_TOKENS", 4096),
		CompletionTimeout: envDuration("LEADBOT_COMPLETION_TIMEOUT", 60*time.Second),
		DatabaseURL:       envStr("DATABASE_URL", ""),
		NatsURL:           envStr("NATS_URL", ""),
		NatsToken:         envStr("NATS_TOKEN", ""),
		SlackBotToken:     envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:      envStr("SLACK_LEADS_CHANNEL", ""),
		KBURL:             envStr("KB_URL", ""),
		KBAPIKey:          envStr("KB_API_KEY", ""),
		KBProjectID:       envStr("KB_PROJECT_ID", ""),
		APIToken:          envStr("LEADBOT_API_TOKEN", ""),
		Responder:         envStr("LEADBOT_RESPONDER", "completion"),
		SettingsFile:      envStr("LEADBOT_SETTINGS_FILE", ""),
		ParallelTurns:     envBool("LEADBOT_PARALLEL_TURNS", false),
		SessionIdle:       envDuration("LEADBOT_SESSION_IDLE", 30*time.Minute),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
