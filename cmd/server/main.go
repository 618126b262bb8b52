package main

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/willemschots/ecocredit/internal"
	"github.com/willemschots/ecocredit/internal/auth"
	authdb "github.com/willemschots/ecocredit/internal/auth/db"
	"github.com/willemschots/ecocredit/internal/db"
	"github.com/willemschots/ecocredit/internal/db/migrate"
	"github.com/willemschots/ecocredit/internal/ledger"
	ledgerdb "github.com/willemschots/ecocredit/internal/ledger/db"
	"github.com/willemschots/ecocredit/internal/stats"
	"github.com/willemschots/ecocredit/internal/web"
	"github.com/willemschots/ecocredit/migrations"
	"golang.org/x/sync/errgroup"
)

const migrateTimeout = 60 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Stderr))
}

func run(ctx context.Context, w io.Writer) int {
	logger := slog.New(slog.NewTextHandler(w, nil))

	cfg, err := configFromEnv()
	if err != nil {
		logger.Error("failed to get config from environment", "error", err)
		return 1
	}

	// SQLite performs best with separate pools for reading and writing.
	writeDB, err := db.OpenSQLite(cfg.db.file, true)
	if err != nil {
		logger.Error("failed to open write database", "error", err)
		return 1
	}
	defer closeDB(logger, writeDB)

	readDB, err := db.OpenSQLite(cfg.db.file, false)
	if err != nil {
		logger.Error("failed to open read database", "error", err)
		return 1
	}
	defer closeDB(logger, readDB)

	if cfg.db.migrate {
		err = migrateDB(ctx, logger, writeDB)
		if err != nil {
			logger.Error("failed to migrate database", "error", err)
			return 1
		}
	}

	authStore := authdb.New(writeDB, readDB)
	ledgerStore := ledgerdb.New(writeDB, readDB)

	authService, err := auth.NewService(authStore, cfg.auth)
	if err != nil {
		logger.Error("failed to create auth service", "error", err)
		return 1
	}

	server := web.NewServer(&web.ServerDeps{
		Logger:        logger,
		AuthService:   authService,
		LedgerService: ledger.NewService(ledgerStore),
		StatsService:  stats.NewService(authStore, ledgerStore),
	}, cfg.http.server)

	srv := &http.Server{
		Addr:         cfg.http.addr,
		ReadTimeout:  cfg.http.readTimeout,
		WriteTimeout: cfg.http.writeTimeout,
		IdleTimeout:  cfg.http.idleTimeout,
		Handler:      server,
	}

	// We need to run two tasks concurrently:
	// - Listen and serving of the HTTP server.
	// - Waiting for a signal to stop the server.

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"addr", cfg.http.addr,
			"version", internal.Version(),
			"buildRevisionTime", internal.BuildRevisionTime,
		)
		// ListenAndServe always returns a non-nil error,
		// g will cancel gCtx when an error is returned, so
		// this will also stop the other goroutine.
		return srv.ListenAndServe()
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("stopping http server")

		shutCtx, cancel := context.WithTimeout(context.Background(), cfg.http.shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutCtx)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server stopped with error", "error", err)
		return 1
	}

	logger.Info("http server stopped successfully")

	return 0
}

func migrateDB(ctx context.Context, logger *slog.Logger, writeDB *sql.DB) error {
	logger.Info("attempting to migrate database")

	ctx, cancel := context.WithTimeout(ctx, migrateTimeout)
	defer cancel()

	ran, err := migrate.RunFS(ctx, writeDB, migrations.FS, migrate.Metadata{
		AppVersion: internal.Version(),
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	for _, m := range ran {
		logger.Info("migration ran", "sequence", m.Sequence, "filename", m.Filename)
	}

	return nil
}

func closeDB(logger *slog.Logger, c io.Closer) {
	err := c.Close()
	if err != nil {
		logger.Error("failed to close database", "error", err)
	}
}
