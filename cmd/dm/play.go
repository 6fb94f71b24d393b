package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/internal/console"
	"github.com/jwebster45206/dungeon-master/pkg/state"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play in the terminal",
	Long: `Starts a game in the terminal. By default a full-screen console asks for
a scenario; --plain runs a line-based prompt instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")
		scenario, _ := cmd.Flags().GetString("scenario")
		skipInit, _ := cmd.Flags().GetBool("skip-init")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if plain {
			return runPlain(ctx, a, scenario, skipInit)
		}
		return runUI(ctx, a, skipInit)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)
	playCmd.Flags().Bool("plain", false, "Use the line-based console")
	playCmd.Flags().StringP("scenario", "s", "", "Scenario name or .json path for --plain (default $SCENARIO)")
	playCmd.Flags().Bool("skip-init", false, "Do not check that the models are available")
}

func runPlain(ctx context.Context, a *app, scenario string, skipInit bool) error {
	if scenario == "" {
		scenario = a.cfg.Scenario
	}
	engine, err := a.newEngine(ctx, scenario, !skipInit)
	if err != nil {
		return err
	}
	repl := console.NewREPL(engine, a.roller, a.cfg.LLM.Timeout, os.Stdin, os.Stdout, a.log)
	if err := repl.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runUI(ctx context.Context, a *app, skipInit bool) error {
	// The console owns the terminal; without a log file, logs are dropped.
	if a.cfg.LogFile == "" {
		a.log = slog.New(slog.DiscardHandler)
		slog.SetDefault(a.log)
	}

	scenarios, err := state.ListScenarios()
	if err != nil {
		return err
	}

	factory := func(name string) (console.Runner, error) {
		return a.newEngine(ctx, name, !skipInit)
	}

	p := tea.NewProgram(console.NewUI(factory, scenarios, a.roller, a.cfg.LLM.Timeout),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running console: %w", err)
	}
	return nil
}
