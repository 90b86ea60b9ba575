// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pmid2nct/internal/runstore"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List, export, or delete stored lookup runs",
	Long: `Runs lists lookups saved in the run store, newest first. Use the export
subcommand to write a stored run as YAML or JSON, and delete to remove one.
Requires a file-backed store (--store or store.path).`,
	RunE: runRunsList,
}

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write a stored run as YAML or JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsExport,
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a stored run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsDelete,
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// openStore opens the configured file-backed run store.
func openStore() (*runstore.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("no run store configured: set store.path or pass --store")
	}
	return runstore.New(cfg.Store)
}

func runRunsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored runs.")
		return nil
	}
	return printRuns(cmd, runs)
}

func printRuns(cmd *cobra.Command, runs []types.Run) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tPMIDS\tWITH NCT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Source,
			r.Result.Summary.UniquePMIDs, r.Result.Summary.WithTrials)
	}
	return tw.Flush()
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		return store.ExportYAML(context.Background(), args[0], cmd.OutOrStdout())
	case "json":
		return store.ExportJSON(context.Background(), args[0], cmd.OutOrStdout())
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

func runRunsDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(context.Background(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted run %s\n", args[0])
	return nil
}
