package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/dungeon-master/internal/campaign"
	"github.com/jwebster45206/dungeon-master/internal/config"
	"github.com/jwebster45206/dungeon-master/internal/dm"
	"github.com/jwebster45206/dungeon-master/internal/logger"
	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/internal/services/queue"
	"github.com/jwebster45206/dungeon-master/internal/storage"
	"github.com/jwebster45206/dungeon-master/pkg/dice"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

// app holds what every command shares.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	closeLog func()
	metrics  *metrics.Metrics
	prompts  *prompts.Store
	roller   *dice.Roller
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log, closeLog, err := logger.Setup(cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		metrics:  metrics.New(),
		prompts:  prompts.NewStore(cfg.PromptsFile),
		roller:   dice.NewRoller(cfg.DiceSeed),
	}, nil
}

func (a *app) Close() {
	a.closeLog()
}

// llm builds the backend for one stage. Intent and interpretation ask for
// JSON mode; narration does not, since its reply is parsed leniently.
func (a *app) llm(model string, json bool) (services.LLMService, error) {
	return services.NewLLMService(a.cfg.LLM, services.ModelOptions{
		Model:       model,
		JSON:        json,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.LLM.Timeout,
	}, a.log)
}

func (a *app) models() (dm.Models, error) {
	var (
		m   dm.Models
		err error
	)
	if m.Intent, err = a.llm(a.cfg.LLM.IntentModel, true); err != nil {
		return m, err
	}
	if m.Interpreter, err = a.llm(a.cfg.LLM.InterpreterModel, true); err != nil {
		return m, err
	}
	if m.Narrator, err = a.llm(a.cfg.LLM.NarratorModel, false); err != nil {
		return m, err
	}
	return m, nil
}

// initModels makes sure each distinct model is available before play.
func (a *app) initModels(ctx context.Context, m dm.Models) error {
	stages := []struct {
		svc   services.LLMService
		model string
	}{
		{m.Intent, a.cfg.LLM.IntentModel},
		{m.Interpreter, a.cfg.LLM.InterpreterModel},
		{m.Narrator, a.cfg.LLM.NarratorModel},
	}
	seen := map[string]bool{}
	for _, s := range stages {
		if seen[s.model] {
			continue
		}
		seen[s.model] = true
		if err := s.svc.InitModel(ctx, s.model); err != nil {
			return fmt.Errorf("failed to initialize model %s: %w", s.model, err)
		}
	}
	return nil
}

// speaker returns nil unless speech is enabled.
func (a *app) speaker() dm.Speaker {
	if !a.cfg.Speech.Enabled {
		return nil
	}
	return services.NewSpeechService(a.cfg.Speech, a.log)
}

// newEngine loads a scenario by name (or .json path) and wires a turn
// engine for it. With check set, the models are initialized first.
func (a *app) newEngine(ctx context.Context, scenario string, check bool) (*dm.Engine, error) {
	gs, err := state.LoadScenario(scenario)
	if err != nil {
		return nil, err
	}
	models, err := a.models()
	if err != nil {
		return nil, err
	}
	if check {
		if err := a.initModels(ctx, models); err != nil {
			return nil, err
		}
	}
	a.log.Info("Game started", "scenario", scenario, "location", gs.Session.LocationID())
	return dm.New(a.cfg, gs, models, a.prompts, a.roller, a.speaker(), a.metrics, a.log), nil
}

func (a *app) generator() (*campaign.Generator, error) {
	llm, err := a.llm(a.cfg.LLM.CampaignModel, true)
	if err != nil {
		return nil, err
	}
	return campaign.NewGenerator(llm, a.prompts, a.metrics, a.log), nil
}

func (a *app) archive() (*storage.Store, error) {
	return storage.Open(a.cfg.CampaignDB)
}

// actionQueue uses Redis when REDIS_URL is set and memory otherwise. The
// returned client is nil for the memory queue.
func (a *app) actionQueue(ctx context.Context) (queue.ActionQueue, *queue.Client, error) {
	if a.cfg.RedisURL == "" {
		a.log.Info("Using in-memory action queue")
		return queue.NewMemoryActionQueue(), nil, nil
	}
	client, err := queue.NewClient(ctx, a.cfg.RedisURL, a.log)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewRedisActionQueue(client), client, nil
}
