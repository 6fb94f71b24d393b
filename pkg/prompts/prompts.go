// Package prompts loads the per-stage system prompts from a YAML file and
// assembles the chat messages sent to each model.
package prompts

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Stage names, which are also the top-level keys of the prompts file.
const (
	StageUserIntent        = "user_intent_prompt"
	StageInterpreter       = "interpreter_prompt"
	StageNarrator          = "narrator_prompt"
	StageValidateNarrative = "validate_narrative_prompt"
	StageCampaign          = "campaign_prompt"
	StagePlot              = "plot_prompt"
)

// DefaultFileName is looked up in the working directory and in the user's
// ~/.dungeon-master directory.
const DefaultFileName = "prompts.yaml"

//go:embed default.yaml
var defaultYAML []byte

// ErrUnknownStage is returned when the prompts file has no entry for a stage.
var ErrUnknownStage = errors.New("stage not found in prompts file")

// Store resolves stage prompts. The backing file is read on every call so
// prompts can be edited while the game runs.
type Store struct {
	// Path, when set, is the only file consulted. A read or parse failure is
	// returned rather than falling back.
	Path string
}

// NewStore returns a store reading from path, or from the default search
// order when path is empty.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load returns the system prompt for a stage.
// Search order: Path -> ./prompts.yaml -> ~/.dungeon-master/prompts.yaml -> embedded default
func (s *Store) Load(stage string) (string, error) {
	all, source, err := s.LoadAll()
	if err != nil {
		return "", err
	}
	p, ok := all[stage]
	if !ok || strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: %s (%s)", ErrUnknownStage, stage, source)
	}
	return p, nil
}

// LoadAll returns every stage prompt and the name of the source it came from.
func (s *Store) LoadAll() (map[string]string, string, error) {
	if s != nil && s.Path != "" {
		data, err := os.ReadFile(s.Path)
		if err != nil {
			return nil, s.Path, fmt.Errorf("failed to read prompts %s: %w", s.Path, err)
		}
		all, err := parse(data)
		if err != nil {
			return nil, s.Path, fmt.Errorf("failed to parse prompts %s: %w", s.Path, err)
		}
		return all, s.Path, nil
	}

	if data, err := os.ReadFile(DefaultFileName); err == nil {
		if all, err := parse(data); err == nil {
			return all, DefaultFileName, nil
		}
	}

	if p := userPromptsPath(); p != "" {
		if data, err := os.ReadFile(p); err == nil {
			if all, err := parse(data); err == nil {
				return all, p, nil
			}
		}
	}

	all, err := parse(defaultYAML)
	if err != nil {
		return nil, "embedded", fmt.Errorf("failed to parse embedded prompts: %w", err)
	}
	return all, "embedded", nil
}

func parse(data []byte) (map[string]string, error) {
	var all map[string]string
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New("prompts file is empty")
	}
	return all, nil
}

func userPromptsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dungeon-master", DefaultFileName)
}

// Render fills {name} placeholders from vars. Doubled braces are literal
// braces and unknown placeholders are left as written.
func Render(template string, vars map[string]string) string {
	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch {
		case c == '{' && i+1 < len(template) && template[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(template) && template[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				sb.WriteByte(c)
				continue
			}
			name := template[i+1 : i+1+end]
			if v, ok := vars[name]; ok {
				sb.WriteString(v)
				i += end + 1
				continue
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
