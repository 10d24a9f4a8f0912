package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/LabsAtivai/boaventura/internal/browser"
	"github.com/LabsAtivai/boaventura/internal/config"
	"github.com/LabsAtivai/boaventura/internal/navigator"
	"github.com/LabsAtivai/boaventura/internal/observability"
	"github.com/LabsAtivai/boaventura/internal/orchestrator"
	"github.com/LabsAtivai/boaventura/internal/sink"
)

// newScrapeCmd creates and configures the `scrape` command.
func newScrapeCmd() *cobra.Command {
	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs the full unit and date sweep and writes the exports",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags so the command line overrides config and env.
			if err := viper.BindPFlag("target.url", cmd.Flags().Lookup("url")); err != nil {
				return err
			}
			if err := viper.BindPFlag("target.date_strategy", cmd.Flags().Lookup("date-strategy")); err != nil {
				return err
			}
			if err := viper.BindPFlag("sinks.output_dir", cmd.Flags().Lookup("output-dir")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("target.units", cmd.Flags().Lookup("unit"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			logger.Info("Starting docket sweep",
				zap.String("url", cfg.Target.URL),
				zap.String("date_strategy", cfg.Target.DateStrategy),
				zap.Strings("units", cfg.Target.Units),
			)

			return runScrape(ctx, cfg, logger)
		},
	}

	scrapeCmd.Flags().String("url", "", "Docket page URL. (Overrides config/env)")
	scrapeCmd.Flags().String("date-strategy", "", "Date navigation strategy: calendar, stepper or auto. (Overrides config/env)")
	scrapeCmd.Flags().StringP("output-dir", "o", "", "Directory for the CSV and spreadsheet exports. (Overrides config/env)")
	scrapeCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	scrapeCmd.Flags().StringArrayP("unit", "u", nil, "Restrict the sweep to these units; repeatable. (Overrides config/env)")

	return scrapeCmd
}

// runScrape wires all components, runs the sweep, and publishes the batch.
// The batch is published even when the sweep ends in an error so partial
// output is never discarded.
func runScrape(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	manager := browser.NewManager(ctx, cfg, logger)
	defer manager.Shutdown()

	session, err := manager.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() {
		if closeErr := session.Close(context.Background()); closeErr != nil {
			logger.Warn("Error while closing browser session", zap.Error(closeErr))
		}
	}()

	if err := session.Navigate(ctx, cfg.Target.URL); err != nil {
		return fmt.Errorf("failed to open docket page: %w", err)
	}

	guard := navigator.NewOverlayGuard(session, cfg.Selectors.OverlayBackdrop, logger)
	selector := navigator.NewSelectorStepper(session, cfg.Selectors, cfg.Target, guard, logger)
	dates := buildDateNavigator(cfg, session, guard, logger)
	stabilizer := navigator.NewStabilizer(session, cfg.Selectors, logger)
	extractor := navigator.NewExtractor(session, cfg.Selectors, logger)

	store, closeStore := probeStore(ctx, cfg, logger)
	defer closeStore()

	orch, err := orchestrator.New(cfg, orchestrator.Deps{
		Selector:   selector,
		Dates:      dates,
		Stabilizer: stabilizer,
		Extractor:  extractor,
		Store:      store,
	}, guard, logger)
	if err != nil {
		return err
	}

	run, runErr := orch.Run(ctx)
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			logger.Warn("Sweep aborted by user signal")
		} else {
			logger.Error("Sweep failed", zap.Error(runErr))
		}
	}

	var notifier orchestrator.Notifier
	if mailer := sink.NewMailer(cfg.Sinks.Mail, logger); mailer != nil {
		notifier = mailer
	}
	publisher := orchestrator.NewPublisher(cfg.Sinks.OutputDir,
		sink.NewCSVWriter(logger), sink.NewExcelWriter(logger), notifier, logger)

	// Publish against a fresh context: a cancelled run must still flush what
	// it extracted.
	pubErr := publisher.Publish(context.Background(), run)

	if runErr == nil && pubErr == nil {
		logger.Info("Sweep complete",
			zap.Int("rows", len(run.Rows)), zap.Int("skips", run.Skips()))
	}
	return errors.Join(runErr, pubErr)
}

// buildDateNavigator picks the configured date strategy.
func buildDateNavigator(cfg *config.Config, page navigator.Page, guard *navigator.OverlayGuard, logger *zap.Logger) navigator.DateNavigator {
	calendar := navigator.NewCalendarNavigator(page, cfg.Selectors, guard, logger)
	stepper := navigator.NewStepperNavigator(page, cfg.Selectors, guard, logger)

	switch cfg.Target.DateStrategy {
	case "calendar":
		return calendar
	case "stepper":
		return stepper
	default:
		return navigator.NewAutoNavigator(page, cfg.Selectors.CalendarTrigger, calendar, stepper, logger)
	}
}

// probeStore connects to Postgres once at startup. Any failure degrades the
// store to absent for the whole run; it is never retried mid-sweep.
func probeStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (orchestrator.RowStore, func()) {
	noop := func() {}
	if cfg.Sinks.Database.URL == "" {
		logger.Info("No database configured; store sink disabled.")
		return nil, noop
	}

	pool, err := pgxpool.New(ctx, cfg.Sinks.Database.URL)
	if err != nil {
		logger.Warn("Database connection failed; continuing without the store sink.", zap.Error(err))
		return nil, noop
	}

	store, err := sink.NewStore(ctx, pool, logger)
	if err != nil {
		logger.Warn("Database probe failed; continuing without the store sink.", zap.Error(err))
		pool.Close()
		return nil, noop
	}

	return store, pool.Close
}
