package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alexanderramin/ludo/internal/cli"
	"github.com/alexanderramin/ludo/internal/cli/formatter"
	"github.com/alexanderramin/ludo/internal/config"
	"github.com/alexanderramin/ludo/internal/db"
	"github.com/alexanderramin/ludo/internal/pricing"
	"github.com/alexanderramin/ludo/internal/service"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	locale, err := cfg.Language()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Open database
	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Use-case observers: structured call log and in-process metrics
	var observers []service.UseCaseObserver
	if cfg.LogCalls {
		observers = append(observers, service.NewLogUseCaseObserver(os.Stderr))
	}
	var registry *prometheus.Registry
	if cfg.Metrics {
		registry = prometheus.NewRegistry()
		metrics, err := service.NewMetricsUseCaseObserver(registry)
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		observers = append(observers, metrics)
	}

	// Wire repositories and unit of work
	repos := service.NewSQLiteFeeRepos(database)
	uow := db.NewSQLiteUnitOfWork(database)
	cache := service.NewIncomeConfigCache()
	calc := pricing.NewCalculator(pricing.NewEvaluator(logger, cfg.MaxTreeDepth), logger)

	app := &cli.App{
		Fees:      service.NewFeeService(repos, uow, cache, calc, observers...),
		Trees:     service.NewTreeService(repos.Trees, repos.Schedules, uow, cfg.MaxTreeDepth, observers...),
		Members:   service.NewMemberService(repos.Members),
		Import:    service.NewImportService(uow, cache, cfg.MaxTreeDepth, observers...),
		Schedules: repos.Schedules,
		Locale:    locale,
	}

	// Confirmations prompt only on an interactive terminal.
	app.IsInteractive = func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	// Execute root command
	rootCmd := cli.NewRootCmd(app)
	err = rootCmd.Execute()

	if registry != nil {
		families, gatherErr := registry.Gather()
		if gatherErr != nil {
			logger.Warn("gathering metrics", "error", gatherErr)
		} else {
			fmt.Fprint(os.Stderr, formatter.FormatMetrics(families))
		}
	}
	return err
}
