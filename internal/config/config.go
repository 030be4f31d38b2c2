package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                     string
	Env                      string
	LogLevel                 string
	DatabaseURL              string
	AutoMigrate              bool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
	Timezone                 string
	SessionTTLHours          int
	PublicFormRatePerMinute  int

	LLMProvider            string
	LLMMaxTokens           int
	LLMTimeoutSeconds      int
	LLMInputCostPerMTok    decimal.Decimal
	LLMOutputCostPerMTok   decimal.Decimal
	PrescriptionPromptPath string

	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string
	GeminiAPIKey    string
	GeminiModel     string
}

func Default() Config {
	return Config{
		Port:                     "8080",
		Env:                      "dev",
		LogLevel:                 "info",
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
		Timezone:                 "Local",
		SessionTTLHours:          12,
		PublicFormRatePerMinute:  5,
		LLMProvider:              "anthropic",
		LLMMaxTokens:             800,
		LLMTimeoutSeconds:        30,
		LLMInputCostPerMTok:      decimal.NewFromInt(3),
		LLMOutputCostPerMTok:     decimal.NewFromInt(15),
		AnthropicModel:           "claude-sonnet-4-20250514",
		OpenAIModel:              "gpt-4o-mini",
		GeminiModel:              "gemini-2.0-flash",
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("ENV"); raw != "" {
		cfg.Env = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = strings.ToLower(raw)
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if raw := os.Getenv("AUTO_MIGRATE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.AutoMigrate = value
		}
	}
	positiveInt("DB_MAX_OPEN_CONNS", &cfg.DBMaxOpenConns)
	positiveInt("DB_MAX_IDLE_CONNS", &cfg.DBMaxIdleConns)
	positiveInt("DB_CONN_MAX_LIFETIME_SECONDS", &cfg.DBConnMaxLifetimeSeconds)
	positiveInt("DB_CONN_MAX_IDLE_SECONDS", &cfg.DBConnMaxIdleTimeSeconds)
	if raw := os.Getenv("APP_TIMEZONE"); raw != "" {
		cfg.Timezone = raw
	}
	positiveInt("SESSION_TTL_HOURS", &cfg.SessionTTLHours)
	positiveInt("PUBLIC_FORM_RATE_PER_MINUTE", &cfg.PublicFormRatePerMinute)

	if raw := os.Getenv("LLM_PROVIDER"); raw != "" {
		cfg.LLMProvider = strings.ToLower(strings.TrimSpace(raw))
	}
	positiveInt("LLM_MAX_TOKENS", &cfg.LLMMaxTokens)
	positiveInt("LLM_TIMEOUT_SECONDS", &cfg.LLMTimeoutSeconds)
	if raw := os.Getenv("LLM_INPUT_COST_PER_MTOK"); raw != "" {
		if value, err := decimal.NewFromString(raw); err == nil && !value.IsNegative() {
			cfg.LLMInputCostPerMTok = value
		}
	}
	if raw := os.Getenv("LLM_OUTPUT_COST_PER_MTOK"); raw != "" {
		if value, err := decimal.NewFromString(raw); err == nil && !value.IsNegative() {
			cfg.LLMOutputCostPerMTok = value
		}
	}
	cfg.PrescriptionPromptPath = os.Getenv("PRESCRIPTION_PROMPT_PATH")

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	if raw := os.Getenv("ANTHROPIC_MODEL"); raw != "" {
		cfg.AnthropicModel = raw
	}
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if raw := os.Getenv("OPENAI_MODEL"); raw != "" {
		cfg.OpenAIModel = raw
	}
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if raw := os.Getenv("GEMINI_MODEL"); raw != "" {
		cfg.GeminiModel = raw
	}
	return cfg
}

// Location resolves the configured timezone, falling back to the process local zone.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func positiveInt(key string, dest *int) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if value, err := strconv.Atoi(raw); err == nil && value > 0 {
		*dest = value
	}
}
