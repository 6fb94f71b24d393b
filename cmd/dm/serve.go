package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwebster45206/dungeon-master/internal/services/events"
	"github.com/jwebster45206/dungeon-master/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the campaign generator and the playtest pages",
	Long: `Starts the web server. / generates campaigns, /play runs a shared
multi-player game where each player opens /play?player=<pc id>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenario, _ := cmd.Flags().GetString("scenario")
		turnTimeout, _ := cmd.Flags().GetDuration("turn-timeout")
		skipInit, _ := cmd.Flags().GetBool("skip-init")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if scenario == "" {
			scenario = a.cfg.Scenario
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := a.newEngine(ctx, scenario, !skipInit)
		if err != nil {
			return err
		}
		generator, err := a.generator()
		if err != nil {
			return err
		}

		archive, err := a.archive()
		if err != nil {
			return err
		}
		defer func() {
			if err := archive.Close(); err != nil {
				a.log.Error("Error closing campaign archive", "error", err)
			}
		}()

		actions, client, err := a.actionQueue(ctx)
		if err != nil {
			return err
		}
		health := map[string]web.Pinger{"archive": archive}
		var bus events.Bus = events.NewMemoryBus()
		if client != nil {
			health["queue"] = client
			bus = events.NewRedisBus(client.Redis(), a.log)
			defer func() {
				if err := client.Close(); err != nil {
					a.log.Error("Error closing redis connection", "error", err)
				}
			}()
		}

		srv, err := web.New(web.Options{
			Generator:   generator,
			Archive:     archive,
			Game:        engine,
			Queue:       actions,
			Events:      events.NewBroadcaster(bus, a.log),
			TurnTimeout: turnTimeout,
			Health:      health,
			Metrics:     a.metrics,
			Logger:      a.log,
		})
		if err != nil {
			return err
		}

		server := &http.Server{
			Addr:        ":" + a.cfg.Port,
			Handler:     srv.Handler(),
			ReadTimeout: 15 * time.Second,
			// No WriteTimeout: a turn can take minutes.
			IdleTimeout: 60 * time.Second,
			// Cancelled on shutdown so open event streams end.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		serverErrors := make(chan error, 1)
		go func() {
			a.log.Info("Server starting", "addr", server.Addr, "scenario", scenario)
			serverErrors <- server.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
			a.log.Info("Server is shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.log.Error("Server forced to shutdown", "error", err)
			return server.Close()
		}
		a.log.Info("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("scenario", "s", "", "Scenario for the playtest game (default $SCENARIO)")
	serveCmd.Flags().Duration("turn-timeout", 10*time.Minute, "Limit for processing one playtest turn")
	serveCmd.Flags().Bool("skip-init", false, "Do not check that the models are available")
}
