package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "persona",
	Short: "A synthetic persona with memories that fade",
	Long: "Persona simulates a mind that remembers, forgets, sleeps and changes. " +
		"Memories decay over simulated days, interfere with each other and consolidate during sleep.",
	SilenceUsage: true,
}

// Persistent flags.
var (
	configPath string
	dbPath     string
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default ~/.persona/persona.db)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(memoriesCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
