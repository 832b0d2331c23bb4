package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mtlprog/cartera/internal/config"
	"github.com/mtlprog/cartera/internal/database"
	"github.com/mtlprog/cartera/internal/export"
	"github.com/mtlprog/cartera/internal/store"
)

func (a *app) accrue(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	trackerSvc := a.newTracker()
	report, err := trackerSvc.Accrue(c.Context, time.Now())
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, report)
}

func (a *app) portfolio(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	trackerSvc := a.newTracker()
	p, err := trackerSvc.Valuate(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, p)
}

func (a *app) exportBundle(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	b, err := store.Export(c.Context, a.store, time.Now())
	if err != nil {
		return err
	}
	out := c.String("out")
	if out == "" {
		return writeJSON(c.App.Writer, b)
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if err := writeJSON(f, b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", out, err)
	}
	slog.Info("cartera: bundle exported", "path", out, "movements", len(b.Movements))
	return nil
}

func (a *app) importBundle(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("import: bundle file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var b store.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	stats, err := store.Import(c.Context, a.store, b)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, stats)
}

func (a *app) report(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	trackerSvc := a.newTracker()
	p, err := trackerSvc.Valuate(c.Context)
	if err != nil {
		return err
	}
	path := c.String("xlsx")
	if err := export.NewXLSXWriter(path).Write(c.Context, export.BuildReport(p)); err != nil {
		return err
	}
	slog.Info("cartera: report written", "path", path, "holdings", len(p.Holdings))
	return nil
}

func (a *app) syncPush(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	stats, err := a.remote().Push(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, stats)
}

func (a *app) syncPull(c *cli.Context) error {
	if err := a.open(c.Context); err != nil {
		return err
	}
	stats, err := a.remote().Pull(c.Context)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, stats)
}

func (a *app) migrate(c *cli.Context) error {
	if a.cfg.Store != config.StorePostgres {
		return fmt.Errorf("migrate: store is %s, migrations apply to postgres only", a.cfg.Store)
	}
	pool, err := database.Connect(c.Context, a.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := applyMigrations(c.Context, pool)
	if err != nil {
		return err
	}
	slog.Info("cartera: migrations applied", "count", len(applied))
	return writeJSON(c.App.Writer, applied)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
