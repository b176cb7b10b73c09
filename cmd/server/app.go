package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/dashboard/internal/board"
	"github.com/matthewbaird/dashboard/internal/config"
	"github.com/matthewbaird/dashboard/internal/options"
	"github.com/matthewbaird/dashboard/internal/render"
	"github.com/matthewbaird/dashboard/internal/schema"
	"github.com/matthewbaird/dashboard/internal/seed"
	"github.com/matthewbaird/dashboard/internal/store"
)

// app holds the wired services of one process.
type app struct {
	seed    *seed.Result
	repo    board.Repository
	catalog schema.Catalog
	render  *render.Service
	db      *sql.DB
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	res, err := loadSeed(cfg.Seed.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("seed loaded",
		zap.String("path", cfg.Seed.Path),
		zap.Int("collections", len(res.Registry.Names())),
		zap.Int("filters", len(res.Filters)),
		zap.Int("dashboards", len(res.Dashboards)))

	a := &app{seed: res, repo: res.Repository, catalog: res.Registry}

	var st store.Store
	switch cfg.Database.Driver {
	case config.DriverMemory:
		mem := store.NewMemoryStore(res.Registry)
		res.Populate(mem)
		st = mem
	default:
		d, err := store.DialectFor(cfg.SQLDriver())
		if err != nil {
			return nil, err
		}
		a.db, err = sql.Open(cfg.SQLDriver(), cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := a.db.PingContext(ctx); err != nil {
			a.db.Close()
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		if st, err = store.NewSQLStore(a.db, d, res.Registry); err != nil {
			a.db.Close()
			return nil, err
		}
		logger.Info("database connected", zap.String("driver", cfg.Database.Driver))
	}

	resolver := options.NewResolver(cfg.Render.Context, options.Defaults{ColumnOrder: cfg.Render.ColumnOrder}, logger)
	a.render = render.NewService(a.repo, a.catalog, st, resolver, logger, render.Config{ListLimit: cfg.Render.ListLimit})
	return a, nil
}

func loadSeed(path string) (*seed.Result, error) {
	if path == "" {
		return seed.Demo()
	}
	return seed.LoadFile(path)
}

// filterID resolves a filter argument given as a UUID or a seed key.
func (a *app) filterID(arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	if id, ok := a.seed.Filters[arg]; ok {
		return id, nil
	}
	return uuid.Nil, fmt.Errorf("unknown filter %q", arg)
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}
