// cmd/bondingctl/run.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvebond/internal/config"
	"github.com/rovshanmuradov/curvebond/internal/events"
	"github.com/rovshanmuradov/curvebond/internal/export"
	"github.com/rovshanmuradov/curvebond/internal/logger"
	"github.com/rovshanmuradov/curvebond/internal/metrics"
	"github.com/rovshanmuradov/curvebond/internal/scenario"
	"github.com/rovshanmuradov/curvebond/internal/storage"
	"github.com/rovshanmuradov/curvebond/internal/storage/sqlstore"
)

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to config file (yaml or json)")
	exportFormat := fs.String("export", "", "export executed trades: csv or json")
	workers := fs.Int("workers", 4, "scenarios run in parallel (memory store only)")
	metricsPath := fs.String("metrics", "", "write collected metrics in Prometheus text format to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no scenario files given")
	}
	if *exportFormat != "" && *exportFormat != string(export.FormatCSV) && *exportFormat != string(export.FormatJSON) {
		return fmt.Errorf("unsupported export format %q", *exportFormat)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	defer log.TrackPerformance("run")()

	var collector *metrics.Collector
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		collector = metrics.NewCollector(registry)
	}

	bus := events.NewBus(log.WithComponent("events"), cfg.EventBuffer)

	// Журнал сделок: в sql-режиме пишем и в базу.
	var sink export.TradeSink
	if cfg.Storage.Driver != config.DefaultDriver {
		journalStore, err := openSQL(ctx, cfg, log.WithComponent("journal"), collector)
		if err != nil {
			return err
		}
		defer journalStore.Close()
		sink = journalStore
	}
	journal := export.NewJournal(sink, log.WithComponent("journal"))
	journal.Attach(bus)

	opts := []scenario.Option{
		scenario.WithMetrics(collector),
		scenario.WithPublisher(bus),
		scenario.WithWorkers(*workers),
	}
	if cfg.Storage.Driver != config.DefaultDriver {
		// program state is shared through the database
		opts = append(opts,
			scenario.WithWorkers(1),
			scenario.WithStoreFactory(func(ctx context.Context, _ string) (storage.AccountStore, error) {
				return openSQL(ctx, cfg, log.WithComponent("store"), collector)
			}),
		)
	}
	runner := scenario.NewRunner(cfg.Program(), log.Logger, opts...)

	results, runErr := runner.RunFiles(ctx, fs.Args())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := bus.Shutdown(shutdownCtx); err != nil {
		log.LogError("Event bus shutdown failed", err)
	}

	for _, res := range results {
		if res != nil {
			fmt.Fprint(out, renderResult(res))
		}
	}

	if *exportFormat != "" && journal.Len() > 0 {
		path, err := export.NewTradeExporter(log.WithComponent("export")).ExportTrades(journal.Trades(), export.ExportOptions{
			Format:    export.ExportFormat(*exportFormat),
			OutputDir: cfg.ExportDir,
		})
		if err != nil {
			return fmt.Errorf("export trades: %w", err)
		}
		fmt.Fprintln(out, okStyle.Render("✓ exported "+path))
	}

	if registry != nil {
		families, err := registry.Gather()
		if err != nil {
			return fmt.Errorf("gather metrics: %w", err)
		}
		fmt.Fprint(out, renderMetrics(families))
		if *metricsPath != "" {
			if err := writeMetrics(*metricsPath, families); err != nil {
				return err
			}
			fmt.Fprintln(out, okStyle.Render("✓ metrics written to "+*metricsPath))
		}
	} else if *metricsPath != "" {
		log.Warn("Metrics are disabled in config, -metrics ignored")
	}

	return runErr
}

func openSQL(ctx context.Context, cfg *config.Config, log *zap.Logger, collector *metrics.Collector) (*sqlstore.Store, error) {
	return sqlstore.Open(ctx, sqlstore.Config{
		Driver:        cfg.Storage.Driver,
		DSN:           cfg.Storage.DSN,
		Retries:       cfg.Storage.Retries,
		RetryInterval: cfg.Storage.RetryInterval(),
		Verbose:       cfg.Log.Development,
	}, log, collector)
}
