package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/clock"
	"github.com/danielandresolateseguel/server1/internal/config"
	"github.com/danielandresolateseguel/server1/internal/router"
	"github.com/danielandresolateseguel/server1/internal/storage"
	"github.com/danielandresolateseguel/server1/internal/storefront"
	"github.com/danielandresolateseguel/server1/internal/ws"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain returns the process exit code so deferred cleanup, including
// flushing the logger, runs before exit.
func realMain(args []string) int {
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a YAML config file (default $STOREFRONT_CONFIG)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer log.Sync()
	undo := zap.ReplaceGlobals(log)
	defer undo()

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", zap.Error(err))
		return 1
	}
	return 0
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStorage(cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	api, err := backend.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, log.Named("backend"))
	if err != nil {
		return err
	}

	hub := ws.NewHub(log.Named("ws"))

	registry := storefront.NewRegistry(storefront.Deps{
		API:      api,
		Storage:  store,
		Clock:    clock.Real(),
		Logger:   log.Named("storefront"),
		Location: cfg.Location(),
		Timers: storefront.Timers{
			Poll:            cfg.Status.PollInterval,
			Toggle:          cfg.Status.ToggleInterval,
			Background:      cfg.Status.BackgroundInterval,
			BackgroundDelay: cfg.Status.BackgroundDelay,
			FetchTimeout:    cfg.HTTPTimeout,
			SubmitTimeout:   cfg.Status.SubmitTimeout,
		},
	}, hub.Publisher)
	defer registry.CloseAll()

	hub.OnRoomEmpty(registry.Disconnected)
	go hub.Run(ctx)
	registry.StartEviction(storefront.Eviction{
		IdleTimeout:     cfg.Sessions.IdleTimeout,
		DisconnectGrace: cfg.Sessions.DisconnectGrace,
		MaxAge:          cfg.TokenTTL,
		SweepInterval:   cfg.Sessions.SweepInterval,
		Connected:       func(id string) bool { return hub.Clients(id) > 0 },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(cfg, registry, api, hub, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr), zap.String("api_base_url", cfg.APIBaseURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(cfg *config.Config, log *zap.Logger) (storage.Store, func(), error) {
	if cfg.StoragePath == config.MemoryStorage {
		log.Warn("using in-memory storage; carts are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil
	}
	db, err := storage.OpenSQLite(cfg.StoragePath, log.Named("storage"))
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			log.Error("closing storage", zap.Error(err))
		}
	}, nil
}
