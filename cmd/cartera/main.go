package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/cartera/internal/api"
	"github.com/mtlprog/cartera/internal/config"
	"github.com/mtlprog/cartera/internal/database"
	"github.com/mtlprog/cartera/internal/export"
	"github.com/mtlprog/cartera/internal/external"
	"github.com/mtlprog/cartera/internal/remotesync"
	"github.com/mtlprog/cartera/internal/snapshot"
	"github.com/mtlprog/cartera/internal/store"
	"github.com/mtlprog/cartera/internal/tracker"
	"github.com/mtlprog/cartera/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("cartera: command failed", "error", err)
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg     config.Config
	store   store.Store
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp() *cli.App {
	a := &app{}
	return &cli.App{
		Name:  "cartera",
		Usage: "portfolio valuation and yield accrual",
		Before: func(*cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
			return nil
		},
		After: func(*cli.Context) error {
			a.close()
			return nil
		},
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run the HTTP API, workers and the accrual schedule", Action: a.serve},
			{Name: "accrue", Usage: "accrue yield and settle matured fixed-term deposits now", Action: a.accrue},
			{Name: "portfolio", Usage: "print the current valuation as JSON", Action: a.portfolio},
			{
				Name:   "export",
				Usage:  "write every record as a JSON bundle",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default stdout)"}},
				Action: a.exportBundle,
			},
			{Name: "import", Usage: "upsert the records of a JSON bundle", ArgsUsage: "<file>", Action: a.importBundle},
			{
				Name:   "report",
				Usage:  "write the valuation to an XLSX workbook",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "xlsx", Usage: "workbook path", Value: "cartera.xlsx"}},
				Action: a.report,
			},
			{
				Name:  "sync",
				Usage: "exchange records with the remote instance",
				Subcommands: []*cli.Command{
					{Name: "push", Usage: "send local records to the remote", Action: a.syncPush},
					{Name: "pull", Usage: "fetch remote records into the local store", Action: a.syncPull},
				},
			},
			{Name: "migrate", Usage: "apply pending PostgreSQL migrations", Action: a.migrate},
		},
	}
}

// open connects the configured store. A PostgreSQL store has pending migrations applied first.
func (a *app) open(ctx context.Context) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	a.store = st
	return nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	switch a.cfg.Store {
	case config.StoreMemory:
		slog.Warn("cartera: using in-memory store, data is lost on exit")
		return store.NewMemory(), nil
	case config.StoreSQLite:
		st, err := store.OpenSQLite(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := st.Close(); err != nil {
				slog.Warn("cartera: closing sqlite", "error", err)
			}
		})
		return st, nil
	case config.StorePostgres:
		pool, err := database.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		if _, err := applyMigrations(ctx, pool); err != nil {
			return nil, err
		}
		return store.NewPostgres(pool), nil
	default:
		return nil, fmt.Errorf("unknown store %q", a.cfg.Store)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	migrations, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("opening migrations: %w", err)
	}
	return database.RunMigrations(ctx, pool, migrations)
}

func (a *app) newTracker() *tracker.Service {
	cfg := a.cfg
	market := external.NewService(
		external.NewDolarAPIClient(cfg.DolarAPIURL, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay),
		a.store,
		cfg.QuoteCacheTTL,
		external.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay),
		external.NewYahooClient(cfg.YahooURL, cfg.HTTPRetryMax, cfg.HTTPRetryBaseDelay),
	)
	return tracker.NewService(a.store, market, cfg.Preferences)
}

// exporter returns the configured spreadsheet writers, or nil when none is configured.
func (a *app) exporter(ctx context.Context) *export.Service {
	var writers []export.Writer
	if a.cfg.ReportXLSXPath != "" {
		writers = append(writers, export.NewXLSXWriter(a.cfg.ReportXLSXPath))
	}
	if a.cfg.GoogleSheetsID != "" && a.cfg.GoogleCredentialsJSON != "" {
		sheets, err := export.NewSheetsWriter(ctx, a.cfg.GoogleSheetsID, a.cfg.GoogleCredentialsJSON)
		if err != nil {
			slog.Warn("cartera: Google Sheets export disabled", "error", err)
		} else {
			writers = append(writers, sheets)
		}
	}
	if len(writers) == 0 {
		return nil
	}
	return export.NewService(writers...)
}

func (a *app) remote() *remotesync.Service {
	var remote remotesync.Remote
	if a.cfg.SyncURL != "" {
		remote = remotesync.NewClient(a.cfg.SyncURL, a.cfg.SyncToken)
	}
	return remotesync.NewService(a.store, remote)
}

func (a *app) serve(c *cli.Context) error {
	ctx := c.Context
	if err := a.open(ctx); err != nil {
		return err
	}
	trackerSvc := a.newTracker()
	snapshotSvc := snapshot.NewService(trackerSvc, snapshot.NewStoreRepository(a.store))

	go worker.NewQuoteWorker(trackerSvc, a.cfg.QuoteWorkerInterval).Run(ctx)

	var hook worker.AfterSnapshotHook
	if exp := a.exporter(ctx); exp != nil {
		hook = exp
	}
	go worker.NewReportWorker(snapshotSvc, a.cfg.ReportWorkerInterval, hook).Run(ctx)

	scheduler := worker.NewScheduler(ctx, a.cfg.Preferences.Location())
	accrual := worker.NewAccrualJob(trackerSvc)
	if err := scheduler.AddJob(a.cfg.AccrualSchedule, accrual); err != nil {
		return err
	}
	// Catch up on days missed while the process was down.
	go scheduler.RunNow(accrual)
	go scheduler.Run()

	srv := api.NewServer(a.cfg.HTTPPort, api.NewHandler(trackerSvc, snapshotSvc, a.store), a.cfg.AdminAPIKey)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("cartera: HTTP server listening", "port", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
		slog.Error("cartera: HTTP server error", "error", serveErr)
	}
	slog.Info("cartera: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("cartera: HTTP server shutdown error", "error", err)
	}
	slog.Info("cartera: shutdown complete")
	return serveErr
}
