// Package dm runs a dungeon master turn: intent, event interpretation with
// target validation, execution against the game state, and narration.
package dm

import (
	"log/slog"
	"strings"

	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

// Defaults used when a config value is zero.
const (
	DefaultMaxValidationAttempts = 5
	DefaultNarrationAttempts     = 5
	DefaultDC                    = 2
	DefaultHistoryLimit          = 20
)

// Sentinel details for stage failures that become data.
const (
	DetailIntentFailed    = "Failed to interpret intent."
	DetailInterpretFailed = "Failed to interpret input."
	DetailNarrationFailed = "Failed to generate narration after retries."
)

// Models holds the backend for each model-driven stage. Stages may share a
// backend.
type Models struct {
	Intent      services.LLMService
	Interpreter services.LLMService
	Narrator    services.LLMService
}

// render fills {name} placeholders, but only in prompts that use one of
// vars. Prompts without placeholders often carry JSON examples whose
// doubled braces must stay as written.
func render(tmpl string, vars map[string]string) string {
	for name := range vars {
		if strings.Contains(tmpl, "{"+name+"}") {
			return prompts.Render(tmpl, vars)
		}
	}
	return tmpl
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
