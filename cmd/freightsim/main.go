// Command freightsim runs the freight brokerage market simulation.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"freightsim/internal/api"
	"freightsim/internal/config"
	"freightsim/internal/engine"
	"freightsim/internal/persistence"
	"freightsim/internal/report"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; flags and env vars below are the interface.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "path to config.yaml (defaults used when empty)")
		scenario   = flag.String("scenario", "", "named scenario override from the config file")
		listOnly   = flag.Bool("list-scenarios", false, "list scenarios in the config file and exit")
		seed       = flag.Int64("seed", 42, "random seed")
		steps      = flag.Int("steps", 1000, "number of simulation steps")
		dbPath     = flag.String("db", envOr("FREIGHTSIM_DB", ""), "SQLite path for the run time series (disabled when empty)")
		apiPort    = flag.Int("port", envIntOr("FREIGHTSIM_API_PORT", 0), "status API port (disabled when 0)")
	)
	flag.Parse()

	// ── Configuration ────────────────────────────────────────────────
	cfg := config.Default()
	if *configPath != "" {
		loader, err := config.Open(*configPath)
		if err != nil {
			slog.Error("failed to load config", "path", *configPath, "error", err)
			os.Exit(1)
		}

		if *listOnly {
			for name, desc := range loader.Scenarios() {
				fmt.Printf("%s: %s\n", name, desc)
			}
			return
		}

		cfg, err = loader.Resolve(*scenario)
		if err != nil {
			slog.Error("failed to resolve config", "scenario", *scenario, "error", err)
			os.Exit(1)
		}
	} else if *listOnly || *scenario != "" {
		slog.Error("scenario flags need -config")
		os.Exit(1)
	}

	slog.Info("configuration",
		"scenario", orBaseline(*scenario),
		"carriers", cfg.Simulation.NumCarriers,
		"grid_size", cfg.Simulation.GridSize,
		"time_step", cfg.Simulation.TimeStep,
		"load_rate", cfg.Simulation.LoadGenerationRate,
		"penalty_rate", cfg.Load.PenaltyRate,
		"max_rounds", cfg.Broker.MaxNegotiationRounds,
		"seed", *seed,
	)

	// ── Database ─────────────────────────────────────────────────────
	var db *persistence.DB
	var runID int64
	if *dbPath != "" {
		var err error
		db, err = persistence.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open database", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		runID, err = db.CreateRun(*scenario, *seed, *steps)
		if err != nil {
			slog.Error("failed to create run", "error", err)
			os.Exit(1)
		}
		slog.Info("database opened", "path", *dbPath, "run", runID)
	}

	// ── Simulation ───────────────────────────────────────────────────
	sim := engine.New(cfg, *seed)
	runner := engine.NewRunner(sim, *steps)

	if *apiPort > 0 {
		srv := &api.Server{Sim: sim, Port: *apiPort}
		srv.Start()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, finishing current step", "signal", sig)
		runner.Stop()
	}()

	runner.Run()

	// ── Results ──────────────────────────────────────────────────────
	if db != nil {
		if err := db.SaveSeries(runID, sim.Series); err != nil {
			slog.Error("failed to save time series", "error", err)
		}
		if err := db.FinishRun(runID, sim.Summary()); err != nil {
			slog.Error("failed to finish run", "error", err)
		}
	}

	report.Render(os.Stdout, sim.Summary(), sim.CarrierStatuses())
}

func orBaseline(scenario string) string {
	if scenario == "" {
		return "baseline"
	}
	return scenario
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
