/*
main.go - Server entrypoint

PURPOSE:
  Loads configuration, wires the selected tabular store backend into
  the ledger service, bootstraps the table layout, and serves the HTTP
  API with graceful shutdown.

BACKENDS (STORE_BACKEND):
  sheets  Google Sheets spreadsheet (production; needs SPREADSHEET_ID
          and GOOGLE_ACCESS_TOKEN)
  sqlite  Local file, same row/column semantics (default)
  memory  Volatile, for demos and tests

UPLOADS:
  With the sheets backend, images go to Google Drive. Otherwise they
  are returned inline as data URLs.

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Routes
*/
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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lotbook/stock-engine/api"
	"github.com/lotbook/stock-engine/config"
	"github.com/lotbook/stock-engine/identity"
	"github.com/lotbook/stock-engine/ledger"
	"github.com/lotbook/stock-engine/store/sheets"
	"github.com/lotbook/stock-engine/store/sqlite"
	"github.com/lotbook/stock-engine/tabular"
	"github.com/lotbook/stock-engine/tabular/memory"
	"github.com/lotbook/stock-engine/upload"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build store: %w", err)
	}
	defer cleanup()

	svc := ledger.NewService(store)
	if err := svc.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}

	uploader, err := buildUploader(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build uploader: %w", err)
	}

	handler := api.NewHandler(svc, uploader)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Str("backend", cfg.StoreBackend).
			Str("env", cfg.Env).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func setupLogger(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func buildStore(ctx context.Context, cfg *config.Config) (tabular.Store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendSheets:
		ts := identity.BearerToken(cfg.GoogleAccessToken)
		st, err := sheets.New(ctx, cfg.SpreadsheetID, ts)
		if err != nil {
			return nil, nil, err
		}
		return st, func() {}, nil

	case config.BackendSQLite:
		st, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil

	case config.BackendMemory:
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

func buildUploader(ctx context.Context, cfg *config.Config) (upload.Uploader, error) {
	if cfg.StoreBackend == config.BackendSheets && cfg.GoogleAccessToken != "" {
		return upload.NewDrive(ctx, identity.BearerToken(cfg.GoogleAccessToken), cfg.DriveFolderID)
	}
	return upload.Inline{}, nil
}
