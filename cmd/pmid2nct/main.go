// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pmid2nct CLI. It looks up the
// ClinicalTrials.gov registrations cited by PubMed articles, either from
// the command line or through the web UI started by `pmid2nct serve`.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pmid2nct/internal/logging"
	"github.com/pdiddy/pmid2nct/internal/secrets"
	"github.com/pdiddy/pmid2nct/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the pmid2nct CLI.
var rootCmd = &cobra.Command{
	Use:   "pmid2nct",
	Short: "Map PubMed IDs to ClinicalTrials.gov NCT IDs",
	Long: `pmid2nct fetches citation records from PubMed and extracts the
ClinicalTrials.gov registration numbers (NCT IDs) they reference, from
secondary identifiers, data bank links, or the abstract text.

Use "lookup" for one-off lookups from the command line and "serve" for the
spreadsheet upload web UI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Setup(logging.FromTypes(cfg.Log))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.NewLogger("cli").Debug().Strs("keys", keys).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults()

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pmid2nct.yaml or ~/.config/pmid2nct/pmid2nct.yaml)")
	rootCmd.PersistentFlags().String("email", "", "contact email sent to NCBI (or .secrets/ncbi-email)")
	rootCmd.PersistentFlags().String("store", "", "SQLite file for stored runs (empty keeps runs in memory)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "human-readable log output")

	_ = viper.BindPFlag("ncbi.email", rootCmd.PersistentFlags().Lookup("email"))
	_ = viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.pretty", rootCmd.PersistentFlags().Lookup("log-pretty"))
}

// setDefaults registers every config key with viper so environment
// variables such as PMID2NCT_NCBI_EMAIL resolve during Unmarshal.
func setDefaults() {
	d := types.DefaultConfig()
	viper.SetDefault("ncbi.timeout", d.NCBI.Timeout)
	viper.SetDefault("ncbi.user_agent", d.NCBI.UserAgent)
	viper.SetDefault("ncbi.base_url", d.NCBI.BaseURL)
	viper.SetDefault("ncbi.email", d.NCBI.Email)
	viper.SetDefault("ncbi.tool", d.NCBI.Tool)
	viper.SetDefault("ncbi.api_key", d.NCBI.APIKey)
	viper.SetDefault("ncbi.batch_size", d.NCBI.BatchSize)
	viper.SetDefault("ncbi.batch_delay", d.NCBI.BatchDelay)
	viper.SetDefault("ncbi.rate_limit_retries", d.NCBI.RateLimitRetries)
	viper.SetDefault("ingest.column", d.Ingest.Column)
	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	viper.SetDefault("store.path", d.Store.Path)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.pretty", d.Log.Pretty)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pmid2nct")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pmid2nct"))
		}
	}

	viper.SetEnvPrefix("PMID2NCT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig resolves the effective configuration from defaults, config
// file, environment, and flags, then fills NCBI credentials from secrets.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	cfg.NCBI.Email = secrets.Default(loadedSecrets, secrets.KeyNCBIEmail, cfg.NCBI.Email)
	cfg.NCBI.APIKey = secrets.Default(loadedSecrets, secrets.KeyNCBIAPIKey, cfg.NCBI.APIKey)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
