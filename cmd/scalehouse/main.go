package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scalehouse/scalehouse/internal/app"
	"github.com/scalehouse/scalehouse/internal/ledger"
	"github.com/scalehouse/scalehouse/internal/platform/db"
	"github.com/scalehouse/scalehouse/internal/scale"
	"github.com/scalehouse/scalehouse/internal/weighing"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	var source scale.Source
	switch cfg.ScaleMode {
	case "serial":
		source = scale.NewSerialSource(scale.SerialConfig{
			Port:        cfg.ScalePort,
			BaudRate:    cfg.ScaleBaudRate,
			ReadTimeout: cfg.ScaleReadTimeout,
		})
	default:
		source = scale.NewEmulator(scale.EmulatorConfig{
			BaseWeight:      cfg.SimBaseWeight,
			Fluctuation:     cfg.SimFluctuation,
			IncrementStep:   cfg.SimIncrementStep,
			LoadingSamples:  cfg.SimLoadingSamples,
			SettlingSamples: cfg.SimSettlingSamples,
		})
	}

	monitor := scale.NewMonitor(source, logger, cfg.ScalePollEvery)
	if err := monitor.Connect(); err != nil {
		// A missing device is not fatal; the operator can reconnect later.
		logger.Warn("scale connect", slog.String("mode", cfg.ScaleMode), slog.Any("error", err))
	}

	repo := ledger.NewPGRepository(pool)
	directory := ledger.NewDirectory(repo)
	ledgerSvc := ledger.NewService(repo, directory)
	ledgerHandler := ledger.NewHandler(logger, ledgerSvc, directory)

	weighingSvc := weighing.NewService(logger, ledgerSvc, directory, monitor)
	weighingHandler := weighing.NewHandler(logger, weighingSvc, monitor)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LedgerHandler:   ledgerHandler,
		WeighingHandler: weighingHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return monitor.Run(groupCtx)
	})

	group.Go(func() error {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("scale_mode", cfg.ScaleMode))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("runtime", slog.Any("error", err))
		os.Exit(1)
	}
}
