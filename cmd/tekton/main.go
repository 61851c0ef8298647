package main

import (
	"fmt"
	"os"

	"github.com/pysugar/tekton-studio/internal/config"
	"github.com/pysugar/tekton-studio/internal/db"
	"github.com/pysugar/tekton-studio/internal/logging"
	"github.com/pysugar/tekton-studio/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "tekton",
		Short:         "Tekton Studio - website copy generation backed by Google Drive and n8n",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./config.yaml or ./configs/config.yaml)")

	rootCmd.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	return cfg, nil
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			gdb, err := db.InitDB(cfg.Database.Driver, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close(gdb)
			fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", cfg.Database.Driver)
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg.Redacted())
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
