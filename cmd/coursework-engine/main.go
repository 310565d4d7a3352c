// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the coursework-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/coursework-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the coursework-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "coursework-engine",
	Short: "Generate long-form BTEC coursework documents from assignment briefs",
	Long: `coursework-engine turns a structured assignment brief into a complete
coursework document: it plans an outline from the brief's learning aims and
criteria, writes each section sequentially through a completion provider,
augments criterion sections with tables and figure placeholders, and
assembles the result into a Markdown or docx artifact.

Each stage is reachable as a subcommand: brief validates and inspects
briefs, assignment manages assignment records, generate runs the pipeline,
and status, content, render, and ledger inspect the results.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
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
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./coursework-engine.yaml or ~/.config/coursework-engine/config.yaml)")
	rootCmd.PersistentFlags().String("user", "local", "acting user id for ownership and quota accounting")
	rootCmd.PersistentFlags().String("log-mode", "dev", "log encoding: dev or prod")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("coursework-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "coursework-engine"))
		}
	}

	viper.SetEnvPrefix("COURSEWORK_ENGINE")
	viper.AutomaticEnv()

	viper.SetDefault("completion.model", "gpt-4o-mini")
	viper.SetDefault("completion.temperature", 0.7)
	viper.SetDefault("completion.max_output_tokens", 4096)
	viper.SetDefault("store.state_dir", "state")
	viper.SetDefault("ledger.state_dir", "state")
	viper.SetDefault("ledger.initial_balance", 0)
	viper.SetDefault("render.output_dir", "output/documents")
	viper.SetDefault("render.format", "markdown")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
