package config

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Secrets is the deployment secret bundle, passed as a single SECRETS env
// var holding JSON. Individual env vars override bundle values when set.
type Secrets struct {
	OpenAIAPIKey       string `json:"OPENAI_API_KEY"`
	SlackSigningSecret string `json:"SLACK_SIGNING_SECRET"`
	SlackBotToken      string `json:"SLACK_BOT_TOKEN"`
}

type Config struct {
	Port            int
	LogLevel        string
	OpenAIAPIKey    string
	SigningSecret   string
	SlackBotToken   string
	TargetUser      string
	Persona         string
	BotAlias        string
	CompletionModel string
	ChatModel       string
	ScheduleChannel string
	ReplyWorkers    int
}

func Load() Config {
	_ = godotenv.Load()

	var sec Secrets
	if raw := os.Getenv("SECRETS"); raw != "" {
		_ = json.Unmarshal([]byte(raw), &sec)
	}

	return Config{
		Port:            envInt("PORT", 3000),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		OpenAIAPIKey:    envStr("OPENAI_API_KEY", sec.OpenAIAPIKey),
		SigningSecret:   envStr("SLACK_SIGNING_SECRET", sec.SlackSigningSecret),
		SlackBotToken:   envStr("SLACK_BOT_TOKEN", sec.SlackBotToken),
		TargetUser:      envStr("PHIL_USERNAME", ""),
		Persona:         envStr("BOT_PERSONA", "Phil Barbeau"),
		BotAlias:        envStr("BOT_ALIAS", "PhilGPT"),
		CompletionModel: envStr("OPENAI_COMPLETION_MODEL", "curie:ft-personal:phil-gpt-2023-06-15-04-19-27"),
		ChatModel:       envStr("OPENAI_CHAT_MODEL", "gpt-3.5-turbo"),
		ScheduleChannel: envStr("SCHEDULE_CHANNEL", "random"),
		ReplyWorkers:    envInt("REPLY_WORKERS", 8),
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
