package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/jwebster45206/dungeon-master/pkg/textfilter"
)

const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	DefaultOllamaURL = "http://localhost:11434"

	ScopeTree    = "tree"
	ScopeSession = "session"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level
	LogFile     string

	LLM LLMConfig

	PromptsFile string
	Scenario    string

	MaxValidationAttempts int
	NarrationAttempts     int
	DefaultDC             int
	ValidationScope       string
	ValidateNarrative     bool
	HistoryLimit          int
	DiceSeed              int64
	ContentRating         string

	RedisURL   string
	CampaignDB string

	Speech SpeechConfig
}

// LLMConfig selects the model backend and the model used at each stage.
type LLMConfig struct {
	Provider         string
	BaseURL          string
	APIKey           string
	IntentModel      string
	InterpreterModel string
	NarratorModel    string
	CampaignModel    string
	Temperature      float64
	Timeout          time.Duration
}

type SpeechConfig struct {
	Enabled bool
	URL     string
	Voice   string
	Output  string
	Player  string
}

// rawEnv holds the environment values before normalisation.
type rawEnv struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`

	Provider         string        `env:"LLM_PROVIDER" envDefault:"ollama"`
	BaseURL          string        `env:"LLM_BASE_URL"`
	APIKey           string        `env:"LLM_API_KEY"`
	IntentModel      string        `env:"INTENT_MODEL" envDefault:"mistral"`
	InterpreterModel string        `env:"INTERPRETER_MODEL" envDefault:"mistral"`
	NarratorModel    string        `env:"NARRATOR_MODEL" envDefault:"llama3.1:8b"`
	CampaignModel    string        `env:"CAMPAIGN_MODEL" envDefault:"llama3.2"`
	Temperature      float64       `env:"LLM_TEMPERATURE" envDefault:"0.7"`
	Timeout          time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`

	PromptsFile string `env:"PROMPTS_FILE"`
	Scenario    string `env:"SCENARIO" envDefault:"havenwood"`

	MaxValidationAttempts int    `env:"MAX_VALIDATION_ATTEMPTS" envDefault:"5"`
	NarrationAttempts     int    `env:"NARRATION_ATTEMPTS" envDefault:"5"`
	DefaultDC             int    `env:"DEFAULT_DC" envDefault:"2"`
	ValidationScope       string `env:"VALIDATION_SCOPE" envDefault:"tree"`
	ValidateNarrative     bool   `env:"VALIDATE_NARRATIVE" envDefault:"false"`
	HistoryLimit          int    `env:"HISTORY_LIMIT" envDefault:"20"`
	DiceSeed              int64  `env:"DICE_SEED" envDefault:"0"`
	ContentRating         string `env:"CONTENT_RATING" envDefault:"R"`

	RedisURL   string `env:"REDIS_URL"`
	CampaignDB string `env:"CAMPAIGN_DB" envDefault:"~/.dungeon-master/campaigns.db"`

	SpeechEnabled bool   `env:"SPEECH_ENABLED" envDefault:"false"`
	SpeechURL     string `env:"SPEECH_URL" envDefault:"http://localhost:8004/tts"`
	SpeechVoice   string `env:"SPEECH_VOICE" envDefault:"resources/narrator.wav"`
	SpeechOutput  string `env:"SPEECH_OUTPUT" envDefault:"response.wav"`
	AudioPlayer   string `env:"AUDIO_PLAYER"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{
		Port:        raw.Port,
		Environment: raw.Environment,
		LogLevel:    parseLogLevel(raw.LogLevel),
		LogFile:     raw.LogFile,
		LLM: LLMConfig{
			Provider:         strings.ToLower(raw.Provider),
			BaseURL:          strings.TrimRight(raw.BaseURL, "/"),
			APIKey:           raw.APIKey,
			IntentModel:      raw.IntentModel,
			InterpreterModel: raw.InterpreterModel,
			NarratorModel:    raw.NarratorModel,
			CampaignModel:    raw.CampaignModel,
			Temperature:      raw.Temperature,
			Timeout:          raw.Timeout,
		},
		PromptsFile:           raw.PromptsFile,
		Scenario:              raw.Scenario,
		MaxValidationAttempts: raw.MaxValidationAttempts,
		NarrationAttempts:     raw.NarrationAttempts,
		DefaultDC:             raw.DefaultDC,
		ValidationScope:       strings.ToLower(raw.ValidationScope),
		ValidateNarrative:     raw.ValidateNarrative,
		HistoryLimit:          raw.HistoryLimit,
		DiceSeed:              raw.DiceSeed,
		ContentRating:         string(textfilter.ParseRating(raw.ContentRating)),
		RedisURL:              raw.RedisURL,
		CampaignDB:            expandHome(raw.CampaignDB),
		Speech: SpeechConfig{
			Enabled: raw.SpeechEnabled,
			URL:     raw.SpeechURL,
			Voice:   raw.SpeechVoice,
			Output:  raw.SpeechOutput,
			Player:  raw.AudioPlayer,
		},
	}

	// Hosted providers leave it empty; their clients use the public endpoint.
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == ProviderOllama {
		cfg.LLM.BaseURL = DefaultOllamaURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	switch c.ValidationScope {
	case ScopeTree, ScopeSession:
	default:
		return fmt.Errorf("unsupported VALIDATION_SCOPE %q", c.ValidationScope)
	}
	if c.MaxValidationAttempts < 1 {
		return fmt.Errorf("MAX_VALIDATION_ATTEMPTS must be at least 1")
	}
	if c.NarrationAttempts < 1 {
		return fmt.Errorf("NARRATION_ATTEMPTS must be at least 1")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
