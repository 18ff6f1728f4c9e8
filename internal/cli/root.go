// Package cli implements the ragfence commands.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragfence/ragfence/internal/config"
)

var (
	configPath string
	envFile    string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "ragfence",
	Short: "Query gateway for knowledge-base assistants",
	Long:  "ragfence validates, rate-limits and audits user queries before they reach a retrieval-augmented answering backend.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "ragfence.yaml", "Path to config file")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional .env file to load before reading config")
}

// Execute runs the root command.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	} else {
		// Best effort; a missing .env is not an error.
		_ = godotenv.Load()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
