// Command granary plays the city-state land and grain game: every year each
// city-state trades land, plants, feeds its people, harvests, weathers
// disasters and may go to war, until the run's years are spent.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/talgya/granary/internal/api"
	"github.com/talgya/granary/internal/config"
	"github.com/talgya/granary/internal/engine"
	"github.com/talgya/granary/internal/entropy"
	"github.com/talgya/granary/internal/logs"
	"github.com/talgya/granary/internal/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string
	root := &cobra.Command{
		Use:          "granary",
		Short:        "Rule rival city-states through years of harvest, famine and war",
		SilenceUsage: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", "", "config file (YAML)")
	pf.Int("years", 10, "years to play")
	pf.Int64("seed", 0, "random seed; 0 draws a fresh one")
	pf.String("mode", config.ModeSteward, "decider: steward, script or prompt")
	pf.String("script", "", "decision script for script mode")
	pf.String("log-level", "info", "log level")
	pf.String("log-file", "", "also log to this rotated file")
	pf.Duration("interval", 0, "pause between years")

	run := &cobra.Command{
		Use:   "run",
		Short: "Play the configured years and print the scores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			compact, _ := cmd.Flags().GetBool("compact")
			return play(cmd, cfgPath, options{compact: compact})
		},
	}
	run.Flags().Bool("compact", false, "one-line statuses")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Play with the spectator API up, and keep serving after the run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return play(cmd, cfgPath, options{serve: true})
		},
	}
	serve.Flags().Int("port", 8080, "spectator API port")

	root.AddCommand(run, serve)
	return root
}

type options struct {
	compact bool
	serve   bool
}

func play(cmd *cobra.Command, cfgPath string, opts options) error {
	cfg, err := config.Load(cfgPath, cmd.Flags())
	if err != nil {
		return err
	}

	logger, closer, err := logs.New(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	runID := uuid.NewString()
	slog.SetDefault(logger.With("run", runID))

	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.NewSeed(entropy.NewClient(cfg.Entropy.RandomOrgKey))
	}
	slog.Info("granary starting", "seed", seed, "years", cfg.Years, "decider", cfg.Decider.Mode)

	rng := entropy.NewStream(seed)
	world := buildWorld(cfg, rng)
	dec, err := newDecider(cfg.Decider, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	world.Decider = dec

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var reporters report.Fanout
	if !opts.serve || cfg.Decider.Mode == config.ModePrompt {
		console := report.NewConsole(os.Stdout)
		console.Compact = opts.compact
		reporters = append(reporters, console)
	}
	rec := report.NewRecorder(runID, seed)
	if opts.serve {
		reporters = append(reporters, report.NewLog(slog.Default()), rec)
	}
	world.Reporter = reporters

	eng := engine.NewEngine(cfg.Years)
	eng.Interval = cfg.Engine.Interval
	eng.OnYear = world.RunYear
	eng.OnFinish = world.Finish

	var httpSrv *api.Server
	var stopHTTP func()
	if opts.serve {
		hub := api.NewHub(runID)
		go hub.Run(ctx)
		rec.OnRecord(hub.Publish)

		httpSrv = &api.Server{
			Rec:       rec,
			Eng:       eng,
			Hub:       hub,
			Port:      cfg.API.Port,
			RateLimit: cfg.API.RateLimit,
			Origins:   cfg.API.Origins,
			RelayKey:  cfg.API.RelayKey,
		}
		srv := httpSrv.Start()
		stopHTTP = func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("HTTP shutdown", "error", err)
			}
			httpSrv.Close()
		}
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchSignals(ctx, sigCh, eng, cancel)

	err = eng.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "year", world.Year(), "error", err)
	}

	if opts.serve {
		if ctx.Err() == nil {
			fmt.Println("Run over. Spectator API stays up until Ctrl+C.")
			<-ctx.Done()
		}
		stopHTTP()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// watchSignals lets the first signal during a run finish the current year so
// the world stays whole and the summary is reported. A second signal, or any
// signal once the run is over, cancels ctx.
func watchSignals(ctx context.Context, sigs <-chan os.Signal, eng *engine.Engine, cancel context.CancelFunc) {
	stopping := false
	for {
		select {
		case sig := <-sigs:
			if eng.Running() && !stopping {
				slog.Info("received signal, finishing the current year", "signal", sig)
				stopping = true
				eng.Stop()
				continue
			}
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}
