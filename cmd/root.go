package cmd

import (
	"fmt"
	"os"

	"github.com/jmehdipour/qmail/cmd/worker"
	"github.com/jmehdipour/qmail/internal/config"
	"github.com/jmehdipour/qmail/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	rootCmd = &cobra.Command{
		Use:           "qmail",
		Short:         "QMail mailbox provisioner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(serialCmd)
	rootCmd.AddCommand(worker.NewWorkerCmd())
}

// loadConfig reads config and initialises the global logger from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(cfg.Log.Level); err != nil {
		return config.Config{}, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}
