// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pmid2nct/internal/ingest"
	"github.com/pdiddy/pmid2nct/internal/lookup"
	"github.com/pdiddy/pmid2nct/internal/pubmed"
	"github.com/pdiddy/pmid2nct/internal/report"
	"github.com/pdiddy/pmid2nct/internal/runstore"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [pmids...]",
	Short: "Look up NCT IDs for PMIDs given as arguments or in a spreadsheet",
	Long: `Lookup fetches the PubMed records for the given PMIDs in batches and
prints one row per distinct PMID with the NCT IDs found for it. PMIDs come
from the arguments, from the PMID column of an .xlsx or .csv file given with
--input, or both.

Any PubMed failure aborts the lookup; no partial results are written. When a
run store is configured (--store or store.path) the result is also saved and
listed by "pmid2nct runs".`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().String("input", "", "spreadsheet (.xlsx or .csv) with a PMID column")
	lookupCmd.Flags().String("output", "", "write results to this file instead of stdout")
	lookupCmd.Flags().String("format", "table", "output format: csv, json, yaml, or table")
	lookupCmd.Flags().String("column", "", "header of the PMID column (default PMID)")
	lookupCmd.Flags().Int("batch-size", 0, "PMIDs per efetch request (default 200)")

	_ = viper.BindPFlag("ingest.column", lookupCmd.Flags().Lookup("column"))
	_ = viper.BindPFlag("ncbi.batch_size", lookupCmd.Flags().Lookup("batch-size"))

	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	formatName, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	pmids := append([]string(nil), args...)
	source := "cli"
	input, _ := cmd.Flags().GetString("input")
	if input != "" {
		ids, err := ingest.ReadFile(input, cfg.Ingest.Column)
		if err != nil {
			return err
		}
		pmids = append(pmids, ids...)
		source = filepath.Base(input)
	}
	if len(pmids) == 0 {
		return fmt.Errorf("provide one or more PMIDs or an --input spreadsheet")
	}

	client, err := pubmed.NewClient(nil, cfg.NCBI)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline := lookup.NewPipeline(client, cfg.NCBI, os.Stderr)
	result, err := pipeline.Run(ctx, pmids)
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}

	if cfg.Store.Path != "" {
		store, err := runstore.New(cfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		run, err := store.Save(ctx, source, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", run.ID)
	}

	out := cmd.OutOrStdout()
	output, _ := cmd.Flags().GetString("output")
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}
	if err := report.Write(out, result, format); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "wrote %s\n", output)
	}
	return nil
}
