package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/multihost/internal/config"
	"github.com/foxseedlab/multihost/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

const databaseInitTimeout = 15 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (repository.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		ctx, cancel := context.WithTimeout(context.Background(), databaseInitTimeout)
		defer cancel()
		return Open(ctx, cfg)
	})
}

// Open connects the history store selected by cfg.StoreDriver and brings its
// schema up to date.
func Open(ctx context.Context, cfg *config.Config) (repository.Repository, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return openPostgres(ctx, cfg.DatabaseURL)
	case config.StoreDriverSQLite:
		repo, err := OpenSQLite(cfg.SQLitePath, cfg.IsDevelopment())
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.StoreDriverNone:
		return NopRepository{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func openPostgres(ctx context.Context, databaseURL string) (repository.Repository, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := RunMigration(ctx, p); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to run migration: %w", err)
	}
	return NewPostgresRepository(p), nil
}
