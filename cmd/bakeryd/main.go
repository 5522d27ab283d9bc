package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cestlavie/bakery/internal/auth"
	"github.com/cestlavie/bakery/internal/catalog"
	"github.com/cestlavie/bakery/internal/config"
	"github.com/cestlavie/bakery/internal/engine"
	"github.com/cestlavie/bakery/internal/httpapi"
	"github.com/cestlavie/bakery/internal/notify"
	"github.com/cestlavie/bakery/internal/scheduler"
	"github.com/cestlavie/bakery/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bakeryd\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger, *configPath); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("starting bakeryd",
		"version", version,
		"addr", cfg.Addr,
		"db", cfg.DBPath,
		"driver", storage.DriverName,
	)

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	var sink notify.Sink
	if cfg.SMTP.Host != "" {
		sink = notify.NewSMTP(cfg.SMTP)
	} else {
		logger.Warn("no SMTP relay configured, logging notifications instead")
		sink = notify.NewLog(logger)
	}

	engineCfg := engine.Config{
		Window: scheduler.Window{
			OpenHour:     cfg.Delivery.OpenHour,
			CloseHour:    cfg.Delivery.CloseHour,
			SlotInterval: cfg.Delivery.SlotInterval,
		},
		LeadTime:       cfg.LeadTime,
		StorageTimeout: cfg.StorageTimeout,
		AdminEmails:    cfg.AdminEmails,
	}
	orders := engine.New(store, sink, engineCfg, logger)
	cat := catalog.New(store, cfg.StorageTimeout, logger)
	authSvc := auth.New(store, sink, cfg.VerifyBaseURL, cfg.StorageTimeout, logger)

	handler := httpapi.New(orders, cat, authSvc, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
