// Package campaign asks a model for campaign outlines and three-act plots.
package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jwebster45206/dungeon-master/internal/metrics"
	"github.com/jwebster45206/dungeon-master/internal/services"
	"github.com/jwebster45206/dungeon-master/pkg/campaign"
	"github.com/jwebster45206/dungeon-master/pkg/chat"
	"github.com/jwebster45206/dungeon-master/pkg/prompts"
)

// Generator produces campaigns with a single model call each.
type Generator struct {
	llm     services.LLMService
	prompts *prompts.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewGenerator(llm services.LLMService, store *prompts.Store, m *metrics.Metrics, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: llm, prompts: store, metrics: m, logger: logger}
}

// GenerateCampaign asks for a one-shot outline set in details and builds its
// world map. There is no retry.
func (g *Generator) GenerateCampaign(ctx context.Context, details string) (*campaign.Campaign, error) {
	reply, err := g.call(ctx, prompts.StageCampaign, map[string]string{"campaign_details": details})
	if err != nil {
		return nil, err
	}
	c, err := campaign.ParseCampaign(reply)
	if err != nil {
		g.metrics.LLMFailure(metrics.StageCampaign)
		return nil, err
	}
	g.logger.Info("Campaign generated", "locations", len(c.KeyLocations), "npcs", len(c.NPCs))
	return c, nil
}

// GeneratePlot asks for a full three-act plot for the given players.
func (g *Generator) GeneratePlot(ctx context.Context, details, players string) (*campaign.Plot, error) {
	reply, err := g.call(ctx, prompts.StagePlot, map[string]string{
		"campaign_details": details,
		"players":          players,
	})
	if err != nil {
		return nil, err
	}
	p, err := campaign.ParsePlot(reply)
	if err != nil {
		g.metrics.LLMFailure(metrics.StageCampaign)
		return nil, err
	}
	g.logger.Info("Plot generated", "main_quest", p.MainQuest)
	return p, nil
}

func (g *Generator) call(ctx context.Context, stage string, vars map[string]string) ([]byte, error) {
	defer g.metrics.Time(metrics.StageCampaign)()

	tmpl, err := g.prompts.Load(stage)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", stage, err)
	}

	messages, err := prompts.New(prompts.Render(tmpl, vars)).Build()
	if err != nil {
		return nil, err
	}

	resp, err := g.llm.Chat(ctx, messages)
	if err != nil {
		g.metrics.LLMFailure(metrics.StageCampaign)
		g.logger.Error("Campaign generation failed", "stage", stage, "error", err)
		return nil, fmt.Errorf("failed to generate campaign: %w", err)
	}

	raw, err := chat.ExtractJSON(resp.Message)
	if err != nil {
		g.metrics.LLMFailure(metrics.StageCampaign)
		return nil, fmt.Errorf("failed to parse campaign reply: %w", err)
	}
	return raw, nil
}
