package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	configloader "github.com/foxseedlab/multihost/external/config"
	repositoryimpl "github.com/foxseedlab/multihost/external/repository"
	webhookimpl "github.com/foxseedlab/multihost/external/webhook"
	"github.com/foxseedlab/multihost/internal/config"
	"github.com/foxseedlab/multihost/internal/history"
	"github.com/foxseedlab/multihost/internal/httpapi"
	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/foxseedlab/multihost/internal/session"
	"github.com/samber/do/v2"
	"golang.org/x/sync/errgroup"
)

const migrateTimeout = 30 * time.Second

type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Run the session coordinator HTTP server (default)" default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Create or upgrade the history store schema and exit"`
}

type ServeCmd struct{}

type MigrateCmd struct{}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("multihost"),
		kong.Description("Coordinates hosts, layout and invitations of one live session."),
		kong.UsageOnError(),
	)

	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env, "store_driver", cfg.StoreDriver)

	if err := ctx.Run(cfg); err != nil {
		slog.Error("command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	session.RegisterDI(injector)
	history.RegisterDI(injector)
	httpapi.RegisterDI(injector)

	return injector
}

func (ServeCmd) Run(cfg *config.Config) error {
	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	repo, err := do.Invoke[repository.Repository](injector)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer shutdownRepository(repo)

	recorder, err := do.Invoke[*history.Recorder](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve history recorder: %w", err)
	}
	defer recorder.Detach()

	server, err := do.Invoke[*httpapi.Server](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve http server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, recorder, server)
	slog.Info("shutting down")
	return err
}

type recorderRunner interface {
	Run(ctx context.Context) error
}

type serverRunner interface {
	Serve(ctx context.Context) error
}

// runServer serves until ctx is done. The recorder keeps running until the
// server has finished its in-flight requests, then drains its queue.
func runServer(ctx context.Context, recorder recorderRunner, server serverRunner) error {
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return recorder.Run(recorderCtx) })
	g.Go(func() error {
		defer stopRecorder()
		return server.Serve(gctx)
	})
	return g.Wait()
}

func (MigrateCmd) Run(cfg *config.Config) error {
	if !cfg.HasHistoryStore() {
		slog.Info("no history store configured; nothing to migrate")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()

	repo, err := repositoryimpl.Open(ctx, cfg)
	if err != nil {
		return err
	}
	shutdownRepository(repo)
	slog.Info("history store schema is up to date", "store_driver", cfg.StoreDriver)
	return nil
}

func shutdownRepository(repo repository.Repository) {
	closer, ok := repo.(interface{ Shutdown() error })
	if !ok {
		return
	}
	if err := closer.Shutdown(); err != nil {
		slog.Error("history store close failed", "error", err)
	}
}
