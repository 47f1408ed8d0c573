package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/tillpoint/tillpoint/internal/app"
	"github.com/tillpoint/tillpoint/internal/catalog"
	"github.com/tillpoint/tillpoint/internal/outbox"
	"github.com/tillpoint/tillpoint/internal/persist"
	"github.com/tillpoint/tillpoint/internal/platform/db"
	"github.com/tillpoint/tillpoint/internal/sales"
	"github.com/tillpoint/tillpoint/internal/store"
	"github.com/tillpoint/tillpoint/jobs"
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

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Warn("close database", slog.Any("error", err))
		}
	}()

	st := store.New(store.TableProducts, store.TableSales)

	adapter := persist.NewAdapter(conn, st, logger)
	if err := adapter.Init(ctx); err != nil {
		logger.Error("init schema", slog.Any("error", err))
		os.Exit(1)
	}
	if err := adapter.Load(ctx); err != nil {
		logger.Error("load tables", slog.Any("error", err))
		os.Exit(1)
	}
	if n, err := adapter.BackfillActive(ctx); err != nil {
		logger.Error("backfill active flag", slog.Any("error", err))
		os.Exit(1)
	} else if n > 0 {
		logger.Info("backfilled active flag", slog.Int("rows", n))
	}
	detach := adapter.AutoSave()
	defer detach()

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("close jobs client", slog.Any("error", err))
		}
	}()

	box := outbox.New(conn, st, jobsClient, cfg.SyncURL, logger)
	if err := box.Init(ctx); err != nil {
		logger.Error("init outbox", slog.Any("error", err))
		os.Exit(1)
	}

	// The queue worker runs in-process: stoolap is an embedded single-file
	// engine, so the outbox table must be read and written through the one
	// connection this process holds.
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSyncDeliver, Handler: func(ctx context.Context, t *asynq.Task) error {
				payload, err := jobs.ParseSyncDeliverPayload(t)
				if err != nil {
					return asynq.SkipRetry
				}
				return box.Deliver(ctx, payload.EntryID)
			}},
			{Type: jobs.TaskSyncSweep, Handler: func(ctx context.Context, t *asynq.Task) error {
				if err := box.Sweep(ctx); err != nil {
					return err
				}
				return box.Prune(ctx, cfg.SyncRetention)
			}},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: jobs.NewSyncSweepTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	catalogService := catalog.NewService(st, box, logger)
	salesService := sales.NewService(st, catalogService, box, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		CatalogHandler: catalog.NewHandler(logger, catalogService),
		SalesHandler:   sales.NewHandler(logger, salesService),
		SyncHandler:    outbox.NewHandler(logger, box),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server", slog.Any("error", err))
		os.Exit(1)
	}
}
