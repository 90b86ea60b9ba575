// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/internal/lookup"
	"github.com/pdiddy/pmid2nct/internal/pubmed"
	"github.com/pdiddy/pmid2nct/internal/runstore"
	"github.com/pdiddy/pmid2nct/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the spreadsheet upload web UI",
	Long: `Serve starts the web UI. Users upload an .xlsx or .csv file with a PMID
column and get back a table of PMID to NCT ID associations, downloadable as
nct_results.csv. The same lookup is available as JSON on POST /api/lookup;
Prometheus metrics are served on /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewLogger("cli")

	client, err := pubmed.NewClient(nil, cfg.NCBI)
	if err != nil {
		return err
	}
	store, err := runstore.New(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	pipeline := lookup.NewPipeline(client, cfg.NCBI, nil)
	handler := server.NewHandler(pipeline, store, cfg.Ingest.Column, cfg.Server.MaxUploadBytes)
	srv := server.New(cfg.Server.Addr, server.NewRouter(handler))

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("store", cfg.Store.Path).Msg("starting pmid2nct server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
